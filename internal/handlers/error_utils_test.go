package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	contextutils "surveyapp/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHandleAppError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", contextutils.ErrRecordNotFound, http.StatusNotFound},
		{"validation", contextutils.NewValidationError(map[string]string{"title": "is required"}), http.StatusUnprocessableEntity},
		{"unknown question", contextutils.NewUnknownQuestionError("12"), http.StatusBadRequest},
		{"bad image", contextutils.ErrUnsupportedImageType, http.StatusBadRequest},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			router := gin.New()
			router.GET("/test", func(c *gin.Context) { HandleAppError(c, tt.err) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestPathID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/surveys/:id", func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/surveys/12", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	for _, bad := range []string{"abc", "0", "-4"} {
		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/surveys/"+bad, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
		assert.Contains(t, w.Body.String(), "Invalid id")
	}
}
