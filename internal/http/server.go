package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmehdipour/worktimer/internal/command"
	"github.com/jmehdipour/worktimer/internal/config"
	"github.com/jmehdipour/worktimer/internal/http/middleware"
	"github.com/jmehdipour/worktimer/internal/service/devsync"
	"github.com/jmehdipour/worktimer/internal/service/report"
	echo "github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the services exposed over HTTP. Sync may be nil when no
// external tracker is configured.
type Deps struct {
	Bus      *command.Bus
	Report   *report.Service
	Sync     *devsync.Service
	Gatherer prometheus.Gatherer
	Now      func() time.Time
}

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

func NewServer(cfg config.Config, deps Deps, rds *redis.Client, log *zap.Logger) *Server {
	log = log.With(zap.String("component", "http"))
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMid.Recover(), requestLogger(log))

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(cfg.HTTP.APIKey)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		Burst:          cfg.RateLimit.Burst,
		KeyPrefix:      "rl:client:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.GET("/commands", listCommandsHandler(deps.Bus))
	v1.POST("/commands/:name", execCommandHandler(deps.Bus, log))
	v1.GET("/reports/customers", customerReportHandler(deps.Report, deps.Now, log))
	if deps.Sync != nil {
		v1.GET("/workitems", listWorkItemsHandler(deps.Sync, log))
		v1.POST("/sync/:customer", syncCustomerHandler(deps.Sync, log))
		v1.GET("/sync/status", syncStatusHandler(deps.Sync, log))
	}

	return &Server{e: e, log: log}
}

// requestLogger writes one structured line per request.
func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return echoMid.RequestLoggerWithConfig(echoMid.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echoMid.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			log.Info("request", fields...)
			return nil
		},
	})
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	s.log.Info("listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
