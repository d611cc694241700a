package observability

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
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupRecordingTracer(t *testing.T) *tracetest.SpanRecorder {
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func setupGinWithSessions() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	store := cookie.NewStore([]byte("test-secret-key"))
	router.Use(sessions.Sessions("test-session", store))

	return router
}

func TestGinMiddleware_BasicFunctionality(t *testing.T) {
	setupRecordingTracer(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware("test-service"))
	router.GET("/v1/surveys/:id/guest", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	req, _ := http.NewRequest("GET", "/v1/surveys/12/guest", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "12", resp["id"])
}

func TestGinMiddleware_TraceHeadersPropagation(t *testing.T) {
	setupRecordingTracer(t)
	InitTracing(nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware("test-service"))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"has_traceparent": c.Request.Header.Get("traceparent") != ""})
	})

	req, _ := http.NewRequest("GET", "/health", nil)
	req.Header.Set("traceparent", "00-12345678901234567890123456789012-1234567890123456-01")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["has_traceparent"])
}

func TestGinMiddlewareWithErrorHandling_RecordsAppError(t *testing.T) {
	recorder := setupRecordingTracer(t)

	router := setupGinWithSessions()
	router.Use(GinMiddlewareWithErrorHandling("test-service")...)
	router.POST("/v1/surveys/:id/answer", func(c *gin.Context) {
		appErr := contextutils.NewUnknownQuestionError("99")
		_ = c.Error(appErr)
		c.JSON(http.StatusBadRequest, appErr.ToJSON())
	})

	req, _ := http.NewRequest("POST", "/v1/surveys/3/answer", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	spans := recorder.Ended()
	require.NotEmpty(t, spans)

	attrs := map[string]string{}
	for _, kv := range spans[len(spans)-1].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "UNKNOWN_QUESTION", attrs["error.code"])
	assert.Equal(t, "3", attrs["error.survey_id"])
	assert.Equal(t, "warn", attrs["error.severity"])
}

func TestGinMiddlewareWithErrorHandling_StatusCodes(t *testing.T) {
	setupRecordingTracer(t)

	router := setupGinWithSessions()
	router.Use(GinMiddlewareWithErrorHandling("test-service")...)

	codes := map[string]int{
		"/success":      http.StatusOK,
		"/client-error": http.StatusBadRequest,
		"/not-found":    http.StatusNotFound,
		"/forbidden":    http.StatusForbidden,
		"/server-error": http.StatusInternalServerError,
	}
	for path, code := range codes {
		code := code
		router.GET(path, func(c *gin.Context) {
			c.JSON(code, gin.H{"status": code})
		})
	}

	for path, code := range codes {
		req, _ := http.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, code, w.Code, path)
	}
}

func TestDetermineErrorSeverity(t *testing.T) {
	assert.Equal(t, "error", determineErrorSeverity(http.StatusInternalServerError, nil))
	assert.Equal(t, "warn", determineErrorSeverity(http.StatusNotFound, nil))
	assert.Equal(t, "info", determineErrorSeverity(http.StatusOK, nil))

	ginErrs := []*gin.Error{{Err: contextutils.ErrRecordNotFound}}
	assert.Equal(t, "info", determineErrorSeverity(http.StatusNotFound, ginErrs))
}
