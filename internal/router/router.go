package router

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"prepai-go/internal/config"
	"prepai-go/internal/gateway"
	"prepai-go/internal/handlers"
	"prepai-go/internal/repository"
)

// Deps are the services the routes are built on.
type Deps struct {
	Server    config.ServerConfig
	Gateway   *gateway.Service
	Interview *repository.InterviewRepository
}

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":  "Too many requests. Try again later.",
		"detail": "retry after " + time.Until(info.ResetTime).Round(time.Second).String(),
	})
}

func Setup(log *zap.Logger, deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(Recovery(log))
	router.Use(RequestID())
	router.Use(RequestLogger(log))

	corsConfig := cors.Config{
		AllowOrigins:  deps.Server.AllowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		// The chart page loads echarts from its CDN.
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline' https://go-echarts.github.io; style-src 'self' 'unsafe-inline'",
	})
	router.Use(func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
	})

	gatewayHandler := handlers.NewGatewayHandler(log, deps.Gateway, deps.Server.MaxUploadMB)
	historyHandler := handlers.NewHistoryHandler(log, deps.Interview)

	limit := deps.Server.RateLimitPerMinute
	if limit == 0 {
		limit = 30
	}
	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: limit,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	router.GET("/healthz", handlers.Health(log, deps.Interview, deps.Gateway.Ready))

	// Both gateways spend provider quota.
	router.POST("/transcribe", limiter, gatewayHandler.Transcribe)
	router.POST("/evaluate", limiter, gatewayHandler.Evaluate)

	interviews := router.Group("/interviews")
	{
		interviews.POST("", historyHandler.Create)
		interviews.GET("", historyHandler.List)
		interviews.GET("/:id", historyHandler.Get)
		interviews.DELETE("/:id", historyHandler.Delete)
		interviews.GET("/:id/chart", historyHandler.Chart)
	}

	return router
}
