package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"parking-system/internal/parking"
)

func getServiceName() string {
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		return name
	}
	return "parking-system"
}

// callerIDHeader carries the pre-authenticated caller identity. Verifying it
// is the job of whatever sits in front of this service.
const callerIDHeader = "X-Caller-ID"

type Handler struct {
	engine *parking.InstrumentedEngine
}

func NewHandler(engine *parking.InstrumentedEngine) *Handler {
	return &Handler{engine: engine}
}

// statusForError maps the engine's error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, parking.ErrAlreadyParked),
		errors.Is(err, parking.ErrSlotsFull),
		errors.Is(err, parking.ErrTicketNotActive):
		return http.StatusConflict
	case errors.Is(err, parking.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, parking.ErrUnderPayment):
		return http.StatusPaymentRequired
	case errors.Is(err, parking.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, parking.ErrInvalidRate),
		errors.Is(err, parking.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, parking.ErrInvariantViolation):
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := r.Header.Get(callerIDHeader)
	if caller == "" {
		WriteError(r.Context(), w, http.StatusBadRequest, "X-Caller-ID header is required")
		return "", false
	}
	return caller, true
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": getServiceName(),
		"meta":    extractMeta(r.Context()),
	})
}

func (h *Handler) Enter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req EnterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	vehicle, err := parking.ParseVehicleType(req.VehicleType)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	lane, err := parking.ParseLaneType(req.LaneType)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	ticket, err := h.engine.Enter(ctx, caller, vehicle, lane, req.LicensePlate, time.Now())
	if err != nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	WriteSuccess(ctx, w, "Ticket issued", ticket)
}

func (h *Handler) Exit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req ExitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := h.engine.Exit(ctx, caller, time.Now(), req.AmountTendered)
	if err != nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	WriteSuccess(ctx, w, "Ticket retired", receipt)
}

func (h *Handler) ExitTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ExitTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TicketID == 0 {
		WriteError(ctx, w, http.StatusBadRequest, "ticket_id is required")
		return
	}

	receipt, err := h.engine.ExitTicket(ctx, req.TicketID, time.Now(), req.AmountTendered)
	if err != nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	WriteSuccess(ctx, w, "Ticket retired", receipt)
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	fee, err := h.engine.Quote(ctx, caller, time.Now())
	if err != nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	ticket, _ := h.engine.ActiveTicket(caller)
	WriteSuccess(ctx, w, "Projected fee", QuoteResponse{TicketID: ticket.ID, Fee: fee})
}

func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vehicle, err := parking.ParseVehicleType(r.URL.Query().Get("vehicle_type"))
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	lane, err := parking.ParseLaneType(r.URL.Query().Get("lane_type"))
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	available, err := h.engine.Available(vehicle, lane)
	if err != nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}
	rate, err := h.engine.RateFor(vehicle, lane)
	if err != nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	WriteSuccess(ctx, w, "Availability", AvailabilityResponse{
		VehicleType: vehicle.String(),
		LaneType:    lane.String(),
		Available:   available,
		RatePerHour: rate,
	})
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid ticket id")
		return
	}

	ticket, ok := h.engine.Ticket(id)
	if !ok {
		WriteError(ctx, w, http.StatusNotFound, parking.ErrTicketNotFound.Error())
		return
	}

	WriteSuccess(ctx, w, "Ticket found", ticket)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(r.Context(), w, "Ticket history", h.engine.History())
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(r.Context(), w, "Status", StatusResponse{
		Categories: h.engine.Status(),
		Stats:      h.engine.Stats(),
	})
}

func (h *Handler) AdjustRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req AdjustRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	vehicle, err := parking.ParseVehicleType(req.VehicleType)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	lane, err := parking.ParseLaneType(req.LaneType)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.AdjustRate(ctx, caller, vehicle, lane, req.NewRate); err != nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	WriteSuccess(ctx, w, "Rate adjusted", map[string]any{
		"vehicle_type": vehicle.String(),
		"lane_type":    lane.String(),
		"new_rate":     req.NewRate,
	})
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	amount, err := h.engine.Withdraw(ctx, caller)
	if err != nil {
		WriteError(ctx, w, statusForError(err), err.Error())
		return
	}

	WriteSuccess(ctx, w, "Revenue withdrawn", WithdrawResponse{Amount: amount})
}
