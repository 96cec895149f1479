package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/lithammer/shortuuid/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Eursukkul/ticketing-service/internal/middleware"
	"github.com/Eursukkul/ticketing-service/internal/service"
)

type Services struct {
	Events    service.EventService
	Purchases service.PurchaseService
	Tickets   service.TicketIssuer
}

// NewRouter builds the echo instance with every route of the service.
func NewRouter(appName string, svc Services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler

	e.Use(echoMw.RequestIDWithConfig(echoMw.RequestIDConfig{
		Generator: func() string { return shortuuid.New() },
	}))
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))
	e.Use(echoMw.Recover())
	e.Use(middleware.Identity())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": appName})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	NewEventHandler(svc.Events).RegisterRoutes(e.Group("/api/v1/events"))
	NewPurchaseHandler(svc.Purchases, svc.Tickets).RegisterRoutes(e)
	return e
}
