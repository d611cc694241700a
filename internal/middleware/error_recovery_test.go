package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"surveyapp/internal/observability"
	contextutils "surveyapp/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorRecoveryMiddleware_PanicRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zap.ErrorLevel)
	router := gin.New()
	router.Use(ErrorRecoveryMiddleware(&observability.Logger{Logger: zap.New(core)}))

	router.GET("/panic", func(_ *gin.Context) {
		panic("test panic")
	})

	req, _ := http.NewRequest("GET", "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body["code"])

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Panic recovered", logs.All()[0].Message)
	assert.Equal(t, "/panic", logs.All()[0].ContextMap()["path"])
}

func TestErrorRecoveryMiddleware_NormalRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorRecoveryMiddleware(nil))

	router.GET("/normal", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req, _ := http.NewRequest("GET", "/normal", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code     contextutils.ErrorCode
		expected int
	}{
		{contextutils.ErrorCodeValidationFailed, http.StatusUnprocessableEntity},
		{contextutils.ErrorCodeInvalidInput, http.StatusBadRequest},
		{contextutils.ErrorCodeInvalidImageFormat, http.StatusBadRequest},
		{contextutils.ErrorCodeUnsupportedImageType, http.StatusBadRequest},
		{contextutils.ErrorCodeImageDecode, http.StatusBadRequest},
		{contextutils.ErrorCodeUnknownQuestion, http.StatusBadRequest},
		{contextutils.ErrorCodeUnauthorized, http.StatusUnauthorized},
		{contextutils.ErrorCodeInvalidCredentials, http.StatusUnauthorized},
		{contextutils.ErrorCodeForbidden, http.StatusForbidden},
		{contextutils.ErrorCodeRecordNotFound, http.StatusNotFound},
		{contextutils.ErrorCodeRecordExists, http.StatusConflict},
		{contextutils.ErrorCodeServiceUnavailable, http.StatusServiceUnavailable},
		{contextutils.ErrorCodeDatabaseQuery, http.StatusInternalServerError},
		{contextutils.ErrorCodeInternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusForCode(tt.code))
		})
	}
}

func TestHandleAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("validation error carries fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		HandleAppError(c, contextutils.NewValidationError(map[string]string{"title": "is required"}))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, map[string]interface{}{"title": "is required"}, body["fields"])
		assert.Len(t, c.Errors, 1)
	})

	t.Run("unknown question message is kept", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		HandleAppError(c, contextutils.NewUnknownQuestionError("99"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, `invalid question ID: "99"`, body["message"])
	})

	t.Run("plain error becomes 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		HandleAppError(c, errors.New("boom"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "INTERNAL_SERVER_ERROR", body["code"])
	})
}
