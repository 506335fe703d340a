package server

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"parking-system/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type EnterRequest struct {
	VehicleType  string `json:"vehicle_type"`
	LaneType     string `json:"lane_type"`
	LicensePlate string `json:"license_plate,omitempty"`
}

type ExitRequest struct {
	AmountTendered int64 `json:"amount_tendered"`
}

type ExitTicketRequest struct {
	TicketID       uint64 `json:"ticket_id"`
	AmountTendered int64  `json:"amount_tendered"`
}

type AdjustRateRequest struct {
	VehicleType string `json:"vehicle_type"`
	LaneType    string `json:"lane_type"`
	NewRate     int64  `json:"new_rate"`
}

type QuoteResponse struct {
	TicketID uint64 `json:"ticket_id"`
	Fee      int64  `json:"fee"`
}

type AvailabilityResponse struct {
	VehicleType string `json:"vehicle_type"`
	LaneType    string `json:"lane_type"`
	Available   int    `json:"available"`
	RatePerHour int64  `json:"rate_per_hour"`
}

type WithdrawResponse struct {
	Amount int64 `json:"amount"`
}

type StatusResponse struct {
	Categories []parking.CategoryStatus `json:"categories"`
	Stats      parking.Stats            `json:"stats"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}
