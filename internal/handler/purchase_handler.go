package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Eursukkul/ticketing-service/internal/dto"
	"github.com/Eursukkul/ticketing-service/internal/middleware"
	"github.com/Eursukkul/ticketing-service/internal/models"
	"github.com/Eursukkul/ticketing-service/internal/service"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type PurchaseHandler struct {
	svc    service.PurchaseService
	issuer service.TicketIssuer
}

func NewPurchaseHandler(svc service.PurchaseService, issuer service.TicketIssuer) *PurchaseHandler {
	return &PurchaseHandler{svc: svc, issuer: issuer}
}

func (h *PurchaseHandler) RegisterRoutes(e *echo.Echo) {
	events := e.Group("/api/v1/events")
	events.POST("/:id/purchases", h.Purchase)
	events.GET("/:id/tickets", h.ListEventTickets)

	e.GET("/api/v1/me/tickets", h.ListMyTickets)
	e.GET("/api/v1/tickets/:id", h.GetTicket)
	e.DELETE("/api/v1/tickets/:id", h.CancelTicket)
}

var reasonStatus = map[models.DenyReason]int{
	models.ReasonUnauthenticated:   http.StatusUnauthorized,
	models.ReasonEventNotFound:     http.StatusNotFound,
	models.ReasonSoldOut:           http.StatusConflict,
	models.ReasonNotPurchasable:    http.StatusUnprocessableEntity,
	models.ReasonTransientConflict: http.StatusServiceUnavailable,
}

func (h *PurchaseHandler) Purchase(c echo.Context) error {
	result := h.svc.Purchase(c.Request().Context(), service.PurchaseRequest{
		CallerID:       middleware.CallerID(c),
		EventID:        c.Param("id"),
		IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey),
	})

	if result.Success {
		return c.JSON(http.StatusOK, dto.ToPurchaseResponse(result))
	}
	code, ok := reasonStatus[result.Reason]
	if !ok {
		code = http.StatusInternalServerError
	}
	return c.JSON(code, dto.ToPurchaseResponse(result))
}

func (h *PurchaseHandler) ListEventTickets(c echo.Context) error {
	if middleware.CallerID(c) == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing caller identity")
	}

	var status *models.TicketStatus
	if s := c.QueryParam("status"); s != "" {
		ts := models.TicketStatus(s)
		if ts != models.TicketActive && ts != models.TicketCancelled {
			return echo.NewHTTPError(http.StatusBadRequest, "status must be active or cancelled")
		}
		status = &ts
	}

	tickets, err := h.issuer.ListByEvent(c.Request().Context(), c.Param("id"), status)
	if err != nil {
		if errors.Is(err, models.ErrEventNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponses(tickets))
}

func (h *PurchaseHandler) ListMyTickets(c echo.Context) error {
	caller := middleware.CallerID(c)
	if caller == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing caller identity")
	}

	tickets, err := h.issuer.ListByBuyer(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponses(tickets))
}

func (h *PurchaseHandler) GetTicket(c echo.Context) error {
	caller := middleware.CallerID(c)
	if caller == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing caller identity")
	}

	ticket, err := h.issuer.GetTicket(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrTicketNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
		}
		return err
	}
	// other buyers' tickets are indistinguishable from missing ones
	if ticket.BuyerID != caller {
		return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}

func (h *PurchaseHandler) CancelTicket(c echo.Context) error {
	ticket, err := h.svc.CancelTicket(c.Request().Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnauthenticated):
			return echo.NewHTTPError(http.StatusUnauthorized, "missing caller identity")
		case errors.Is(err, models.ErrTicketNotFound), errors.Is(err, models.ErrTicketNotOwned):
			return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
		case errors.Is(err, models.ErrTicketCancelled):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, models.ErrConflict):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "please retry")
		default:
			return err
		}
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}
