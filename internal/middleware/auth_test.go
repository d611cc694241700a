package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	contextutils "surveyapp/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	router.Use(sessions.Sessions("test-session", store))
	return router
}

func setSessionCookie(t *testing.T, router *gin.Engine, values map[string]interface{}) *http.Cookie {
	setupPath := "/setup-session-" + t.Name()
	router.GET(setupPath, func(c *gin.Context) {
		session := sessions.Default(c)
		for k, v := range values {
			session.Set(k, v)
		}
		require.NoError(t, session.Save())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", setupPath, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func TestRequireAuth_AllowsSessionUser(t *testing.T) {
	router := newTestRouter()
	cookie := setSessionCookie(t, router, map[string]interface{}{
		UserIDKey:   42,
		UsernameKey: "alice",
	})

	router.GET("/surveys", RequireAuth(), func(c *gin.Context) {
		assert.Equal(t, 42, c.GetInt(UserIDKey))
		assert.Equal(t, "alice", c.GetString(UsernameKey))
		assert.Equal(t, 42, contextutils.GetUserIDFromContext(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/surveys", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth_RejectsMissingSession(t *testing.T) {
	router := newTestRouter()
	called := false
	router.GET("/surveys", RequireAuth(), func(c *gin.Context) {
		called = true
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/surveys", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "UNAUTHORIZED", body["code"])
}

func TestRequireAuth_RejectsIncompleteSession(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]interface{}
	}{
		{name: "missing username", values: map[string]interface{}{UserIDKey: 1}},
		{name: "empty username", values: map[string]interface{}{UserIDKey: 1, UsernameKey: ""}},
		{name: "string user id", values: map[string]interface{}{UserIDKey: "1", UsernameKey: "bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter()
			cookie := setSessionCookie(t, router, tt.values)
			router.GET("/surveys", RequireAuth(), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/surveys", nil)
			req.AddCookie(cookie)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRequireAuth_AcceptsFloatUserID(t *testing.T) {
	router := newTestRouter()
	cookie := setSessionCookie(t, router, map[string]interface{}{
		UserIDKey:   float64(7),
		UsernameKey: "carol",
	})

	router.GET("/surveys", RequireAuth(), func(c *gin.Context) {
		assert.Equal(t, 7, c.GetInt(UserIDKey))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/surveys", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
