package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmehdipour/customers-api/internal/config"
	"github.com/jmehdipour/customers-api/internal/http/middleware"
	"github.com/jmehdipour/customers-api/internal/logger"
	"github.com/jmehdipour/customers-api/internal/metrics"
	"github.com/jmehdipour/customers-api/internal/service/customers"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Server struct{ e *echo.Echo }

// NewServer wires the customer routes. rds may be nil, which disables rate limiting.
func NewServer(cfg config.Config, svc *customers.Service, rds *redis.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(echoLevel(logger.Level()))
	e.HTTPErrorHandler = errorHandler

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.Use(
		middleware.MetricsMiddleware(),
		echoMid.Recover(),
		requestLogger(),
	)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ip:",
		Window:         time.Second,
		RetryAfterHint: true,
	})
	adminMW := middleware.AdminKeyMiddleware(cfg.HTTP.AdminAPIKey)

	e.GET("/", indexHandler())

	g := e.Group("/customers", rlMW, echoMid.BodyLimit(maxBodySize))
	g.GET("", listCustomersHandler(svc))
	g.POST("", createCustomerHandler(svc))
	g.DELETE("/reset", resetCustomersHandler(svc), adminMW)
	g.GET("/:id", getCustomerHandler(svc)).Name = routeGetCustomer
	g.PUT("/:id", updateCustomerHandler(svc))
	g.DELETE("/:id", deleteCustomerHandler(svc))
	g.PUT("/:id/unsubscribe", unsubscribeCustomerHandler(svc))
	g.GET("/:id/address", customerAddressHandler(svc))
	if svc.HistoryEnabled() {
		g.GET("/:id/events", customerEventsHandler(svc))
	}

	return &Server{e: e}
}

// Handler exposes the router, mostly for httptest.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	logger.Log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

func requestLogger() echo.MiddlewareFunc {
	return echoMid.RequestLoggerWithConfig(echoMid.RequestLoggerConfig{
		LogMethod:     true,
		LogURI:        true,
		LogStatus:     true,
		LogLatency:    true,
		LogRemoteIP:   true,
		LogError:      true,
		HandleError:   true,
		LogValuesFunc: func(c echo.Context, v echoMid.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			logger.Log.Info("request", fields...)
			return nil
		},
	})
}

func echoLevel(l zapcore.Level) log.Lvl {
	switch l {
	case zapcore.DebugLevel:
		return log.DEBUG
	case zapcore.WarnLevel:
		return log.WARN
	case zapcore.ErrorLevel:
		return log.ERROR
	default:
		return log.INFO
	}
}
