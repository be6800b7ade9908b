package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/medtracker/internal/handler/prometheus"
	"github.com/jwalitptl/medtracker/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine  *gin.Engine
	config  RouterConfig
	healthH Handler
	apiH    []Handler
	metrics *prometheus.Handler
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORSConfig       middleware.CORSConfig
	SizeLimit        middleware.SizeLimitConfig
	Security         middleware.SecurityConfig
	RequestTimeout   time.Duration
	// Compress gzips JSON responses under /api; nil disables it.
	Compress *middleware.CompressConfig
}

func DefaultRouterConfig() RouterConfig {
	rl := middleware.DefaultRateLimiterConfig()
	compress := middleware.DefaultCompressConfig()
	return RouterConfig{
		RateLimitEnabled: true,
		RateLimit:        rl.Rate,
		RateBurst:        rl.Burst,
		CORSConfig:       middleware.DefaultCORSConfig(),
		SizeLimit:        middleware.DefaultSizeLimitConfig(),
		Security:         middleware.DefaultSecurityConfig(),
		RequestTimeout:   middleware.DefaultTimeoutConfig().Duration,
		Compress:         &compress,
	}
}

// NewRouter builds the engine. metrics may be nil, in which case nothing is recorded and
// /metrics is not served.
func NewRouter(config RouterConfig, metrics *prometheus.Handler, healthH Handler, apiH ...Handler) *Router {
	engine := gin.New() // Use New() instead of Default() for more control
	engine.HandleMethodNotAllowed = true

	r := &Router{
		engine:  engine,
		config:  config,
		healthH: healthH,
		apiH:    apiH,
		metrics: metrics,
	}

	// Add core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
	)
	if metrics != nil {
		engine.Use(metrics.Middleware())
	}
	engine.Use(
		middleware.SecurityHeaders(config.Security),
		middleware.CORS(config.CORSConfig),
	)

	return r
}

func (r *Router) Setup() {
	if r.metrics != nil {
		r.engine.GET("/metrics", r.metrics.Handler())
	}
	if r.healthH != nil {
		r.healthH.RegisterRoutes(&r.engine.RouterGroup)
	}

	api := r.engine.Group("/api")
	if r.config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  r.config.RateLimit,
			Burst: r.config.RateBurst,
		})
		api.Use(limiter.RateLimit())
	}
	api.Use(
		middleware.SizeLimit(r.config.SizeLimit),
		middleware.Timeout(middleware.TimeoutConfig{Duration: r.config.RequestTimeout}),
	)
	if r.config.Compress != nil {
		api.Use(middleware.Compress(*r.config.Compress))
	}

	for _, h := range r.apiH {
		h.RegisterRoutes(api)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
