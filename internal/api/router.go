package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/llmgate/chat-gateway/docs" // registers the OpenAPI document served at /swagger
	"github.com/llmgate/chat-gateway/internal/api/handler"
	"github.com/llmgate/chat-gateway/internal/api/middleware"
	"github.com/llmgate/chat-gateway/internal/core/domain"
	"github.com/llmgate/chat-gateway/internal/core/ports"
	"github.com/llmgate/chat-gateway/internal/pkg/metrics"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Auth          ports.Authenticator
	Conversations ports.ConversationService
	Users         ports.CredentialStore
	// Readiness lists the dependencies probed by /health/ready.
	Readiness map[string]ports.Pinger
	Log       zerolog.Logger

	// Registerer and Gatherer back the HTTP metrics and /metrics. They
	// default to the Prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echomiddleware.CORS())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:          metrics.Namespace,
		Subsystem:          "http",
		Registerer:         d.Registerer,
		Skipper:            skipProbes,
		StatusCodeResolver: statusFor,
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	convHandler := handler.NewConversationHandler(d.Conversations)
	queryHandler := handler.NewQueryHandler(d.Conversations)
	userHandler := handler.NewUserHandler(d.Users)
	healthHandler := handler.NewHealthHandler(d.Readiness)

	auth := middleware.Auth(d.Auth)

	// --- Public routes ---
	e.POST("/api/login", authHandler.Login)

	// --- Authenticated routes ---
	api := e.Group("/api")
	api.GET("/conversations", convHandler.List, auth)
	api.POST("/conversations", convHandler.Create, auth)
	api.GET("/conversations/:id", convHandler.Get, auth)
	api.DELETE("/conversations/:id", convHandler.Delete, auth)
	api.GET("/conversations/:id/messages", convHandler.Messages, auth)
	api.POST("/conversations/:id/messages", convHandler.SendMessage, auth)
	api.GET("/me", userHandler.Me, auth)
	api.GET("/users", userHandler.List, auth, middleware.RequirePermission(domain.PermManageUsers))

	e.POST("/query", queryHandler.Query, auth)

	// --- Operational endpoints (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func skipProbes(c echo.Context) bool {
	switch c.Path() {
	case "/health", "/health/ready", "/metrics":
		return true
	}
	return false
}

// requestLogger writes one access-log line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= 500 {
				evt = log.Error()
			} else if v.Status >= 400 {
				evt = log.Warn()
			}
			evt.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP)
			if v.Error != nil {
				evt = evt.Err(v.Error)
			}
			evt.Msg("request")
			return nil
		},
	})
}
