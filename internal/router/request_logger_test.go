package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func loggedRequest(t *testing.T, register func(*gin.Engine), method, target string) observer.LoggedEntry {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(requestLogger(zap.New(core)))
	register(r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	r.ServeHTTP(w, req)

	require.Equal(t, 1, logs.Len())
	return logs.All()[0]
}

func TestRequestLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		level   zapcore.Level
		message string
	}{
		{"success", http.StatusOK, zapcore.DebugLevel, "Request served"},
		{"client error", http.StatusConflict, zapcore.WarnLevel, "Request rejected"},
		{"server error", http.StatusServiceUnavailable, zapcore.ErrorLevel, "Request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := loggedRequest(t, func(r *gin.Engine) {
				r.GET("/ping", func(c *gin.Context) { c.Status(tt.status) })
			}, http.MethodGet, "/ping")

			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, tt.message, entry.Message)
		})
	}
}

func TestRequestLoggerFields(t *testing.T) {
	entry := loggedRequest(t, func(r *gin.Engine) {
		r.POST("/api/sessions/:id/analyze", func(c *gin.Context) { c.Status(http.StatusOK) })
	}, http.MethodPost, "/api/sessions/3f1d2b44-aaaa-bbbb-cccc-1234567890ab/analyze?force=true")

	fields := entry.ContextMap()
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/api/sessions/3f1d2b44-aaaa-bbbb-cccc-1234567890ab/analyze", fields["path"])
	assert.Equal(t, "3f1d2b44-aaaa-bbbb-cccc-1234567890ab", fields["session_id"])
	assert.Equal(t, "force=true", fields["query"])
	assert.NotContains(t, fields, "errors")
}
