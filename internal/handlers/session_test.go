package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"surveyapp/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkSessionUser(t *testing.T, set func(sessions.Session)) map[string]interface{} {
	t.Helper()
	router := setupGinWithSessions()
	router.GET("/check", func(c *gin.Context) {
		session := sessions.Default(c)
		set(session)
		_ = session.Save()
		id, ok := GetUserIDFromSession(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "id": id})
	})

	req, _ := http.NewRequest("GET", "/check", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetUserIDFromSession_NoUser(t *testing.T) {
	resp := checkSessionUser(t, func(sessions.Session) {})
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, float64(0), resp["id"]) // json unmarshals numbers as float64
}

func TestGetUserIDFromSession_ValidInt(t *testing.T) {
	resp := checkSessionUser(t, func(s sessions.Session) {
		s.Set(middleware.UserIDKey, 42)
		s.Set(middleware.UsernameKey, "alice")
	})
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, float64(42), resp["id"])
}

func TestGetUserIDFromSession_MissingUsername(t *testing.T) {
	resp := checkSessionUser(t, func(s sessions.Session) {
		s.Set(middleware.UserIDKey, 42)
	})
	assert.Equal(t, false, resp["ok"])
}

func TestGetUserIDFromSession_InvalidType(t *testing.T) {
	resp := checkSessionUser(t, func(s sessions.Session) {
		s.Set(middleware.UserIDKey, "seven")
		s.Set(middleware.UsernameKey, "alice")
	})
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, float64(0), resp["id"])
}
