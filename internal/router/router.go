package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/consultation-api/internal/handler/prometheus"
	"github.com/jwalitptl/consultation-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine   *gin.Engine
	metrics  *prometheus.Handler
	health   Handler
	handlers []Handler
}

type RouterConfig struct {
	Mode       string
	Timeout    time.Duration
	RateLimit  rate.Limit
	RateBurst  int
	CORSConfig middleware.CORSConfig
}

// NewRouter builds the engine and its middleware chain. Domain handlers are
// mounted under /api by Setup; health stays at the root.
func NewRouter(config RouterConfig, metrics *prometheus.Handler, health Handler, handlers ...Handler) (*Router, error) {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if err := middleware.RegisterValidators(); err != nil {
		return nil, err
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		metrics:  metrics,
		health:   health,
		handlers: handlers,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		metrics.Middleware(),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	engine.Use(middleware.Timeout(config.Timeout))

	return r, nil
}

func (r *Router) Setup() {
	root := r.engine.Group("")
	if r.health != nil {
		r.health.RegisterRoutes(root)
	}
	r.engine.GET("/metrics", r.metrics.Handler())

	api := r.engine.Group("/api")
	for _, h := range r.handlers {
		h.RegisterRoutes(api)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
