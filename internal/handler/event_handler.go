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

type EventHandler struct {
	svc service.EventService
}

func NewEventHandler(svc service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

func (h *EventHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.CreateEvent)
	g.GET("", h.ListEvents)
	g.GET("/:id", h.GetEvent)
	g.GET("/:id/availability", h.GetAvailability)
	g.PUT("/:id/capacity", h.UpdateCapacity)
}

func (h *EventHandler) CreateEvent(c echo.Context) error {
	organizer := middleware.CallerID(c)
	if organizer == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing caller identity")
	}

	var req dto.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	event := &models.Event{
		Name:         req.Name,
		Description:  req.Description,
		Venue:        req.Venue,
		Location:     req.Location,
		ImageURL:     req.ImageURL,
		StartsAt:     req.StartsAt,
		TicketPrice:  req.TicketPrice,
		TotalTickets: req.TotalTickets,
		OrganizerID:  organizer,
		SalesStartAt: req.SalesStartAt,
		SalesEndAt:   req.SalesEndAt,
	}

	if err := h.svc.CreateEvent(c.Request().Context(), event); err != nil {
		if errors.Is(err, models.ErrInvalidEvent) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}

	return c.JSON(http.StatusCreated, dto.ToEventResponse(event))
}

func (h *EventHandler) GetEvent(c echo.Context) error {
	event, err := h.svc.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrEventNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "event not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, dto.ToEventResponse(event))
}

func (h *EventHandler) ListEvents(c echo.Context) error {
	var (
		events []models.Event
		err    error
	)
	if organizer := c.QueryParam("organizer_id"); organizer != "" {
		events, err = h.svc.ListByOrganizer(c.Request().Context(), organizer)
	} else {
		events, err = h.svc.ListEvents(c.Request().Context())
	}
	if err != nil {
		return err
	}

	resp := make([]dto.EventResponse, len(events))
	for i := range events {
		resp[i] = dto.ToEventResponse(&events[i])
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *EventHandler) GetAvailability(c echo.Context) error {
	a, err := h.svc.Availability(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrEventNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "event not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *EventHandler) UpdateCapacity(c echo.Context) error {
	if middleware.CallerID(c) == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing caller identity")
	}

	var req dto.UpdateCapacityRequest
	if err := c.Bind(&req); err != nil || req.TotalTickets == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "total_tickets is required")
	}

	event, err := h.svc.UpdateCapacity(c.Request().Context(), c.Param("id"), *req.TotalTickets)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrEventNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "event not found")
		case errors.Is(err, models.ErrInvalidEvent):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, models.ErrCapacityBelowSold):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return err
		}
	}

	return c.JSON(http.StatusOK, dto.ToEventResponse(event))
}
