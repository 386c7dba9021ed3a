package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"parking-lot/internal/parking"

	"github.com/labstack/echo/v4"
)

// ReceiptDispatcher hands a closed ticket's receipt to the notification path.
type ReceiptDispatcher interface {
	DispatchReceipt(ctx context.Context, r parking.Receipt) error
}

type Handlers struct {
	ticketService *TicketService
	receipts      ReceiptDispatcher
	binder        echo.DefaultBinder
	logger        *slog.Logger
}

func NewHandlers(ticketService *TicketService, receipts ReceiptDispatcher, logger *slog.Logger) *Handlers {
	return &Handlers{
		ticketService: ticketService,
		receipts:      receipts,
		logger:        logger,
	}
}

func (h *Handlers) Entry(c echo.Context) error {
	var req EntryRequest
	if err := h.binder.BindQueryParams(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		entriesTotal.WithLabelValues(resultLabel(parking.ErrInvalidRequest)).Inc()
		return h.renderError(c, parking.ErrInvalidRequest)
	}

	ticketID, err := h.ticketService.Enter(c.Request().Context(), req.Plate, req.ParkingLot)
	entriesTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		return h.renderError(c, err)
	}

	return c.JSON(http.StatusOK, EntryResponse{TicketID: ticketID})
}

func (h *Handlers) Exit(c echo.Context) error {
	var req ExitRequest
	if err := h.binder.BindQueryParams(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		exitsTotal.WithLabelValues(resultLabel(parking.ErrInvalidRequest)).Inc()
		return h.renderError(c, parking.ErrInvalidRequest)
	}

	ctx := c.Request().Context()
	receipt, err := h.ticketService.Exit(ctx, req.TicketID)
	exitsTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		return h.renderError(c, err)
	}
	chargeAmount.Observe(receipt.Charge)

	// the ticket is closed at this point; a failed receipt must not fail the exit
	if h.receipts != nil {
		if err := h.receipts.DispatchReceipt(ctx, *receipt); err != nil {
			h.logger.Error("h.receipts.DispatchReceipt()", "ticketID", receipt.TicketID, "error", err)
		}
	}

	return c.JSON(http.StatusOK, ExitResponse{
		LicensePlate:    receipt.LicensePlate,
		TotalParkedTime: receipt.TotalParkedTime,
		ParkingLotID:    receipt.ParkingLotID,
		Charge:          receipt.Charge,
	})
}

func (h *Handlers) GetTicket(c echo.Context) error {
	ticketID := c.Param("ticketId")
	if strings.TrimSpace(ticketID) == "" {
		return h.renderError(c, parking.ErrInvalidRequest)
	}

	ticket, err := h.ticketService.Lookup(c.Request().Context(), ticketID)
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(http.StatusOK, ticket)
}

func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) renderError(c echo.Context, err error) error {
	status := parking.StatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "status", status, "error", err)
	}
	return c.JSON(status, ErrorResponse{Error: parking.PublicMessage(err)})
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var pe *parking.Error
	if errors.As(err, &pe) {
		return strings.ToLower(pe.Code)
	}
	return "error"
}
