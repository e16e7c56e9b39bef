package router

import (
	"net/http"
	"time"

	"surveyguard/internal/handlers"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func rateLimitExceeded(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many analysis requests, try again later"})
}

// Setup wires the HTTP surface: the per-session analysis triggers, the
// hierarchical report endpoint, and health.
func Setup(log *zap.Logger, analysis *handlers.AnalysisHandler, reports *handlers.ReportsHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
		c.Next()
	})

	// Analysis runs the whole scorer pipeline per call; rate limit the
	// triggers so a misbehaving client cannot saturate the engine.
	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 30,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: rateLimitExceeded,
		KeyFunc:      keyFunc,
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		sessions := api.Group("/sessions")
		{
			sessions.POST("/:id/analyze", limiter, analysis.AnalyzeSession)
			sessions.POST("/:id/fraud", limiter, analysis.ComputeFraud)
			sessions.POST("/:id/grid/:questionID", limiter, analysis.ComputeGrid)
			sessions.POST("/:id/timing", limiter, analysis.ComputeTiming)
		}

		api.GET("/reports", reports.GetReport)
	}

	return router
}
