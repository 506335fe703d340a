package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-system/internal/config"
	"parking-system/internal/parking"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	telemetry, err := parking.NewTelemetryProvider()
	require.NoError(t, err)
	t.Cleanup(func() { telemetry.Shutdown(context.Background()) })

	cfg := parking.Config{
		Owner:      "owner",
		Categories: make(map[parking.Category]parking.CategoryConfig),
	}
	for _, c := range parking.Categories() {
		cfg.Categories[c] = parking.CategoryConfig{Capacity: 2, RatePerHour: 2}
	}

	engine, err := parking.NewInstrumentedEngine(cfg, telemetry)
	require.NoError(t, err)

	return NewServer(config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		IdleTimeout:  time.Second,
	}, engine)
}

func doJSON(t *testing.T, router http.Handler, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if caller != "" {
		req.Header.Set(callerIDHeader, caller)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEnterAndExitFlow(t *testing.T) {
	srv := testServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/parking/enter", "alice",
		EnterRequest{VehicleType: "car", LaneType: "normal", LicensePlate: "KA01HH1234"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Meta.RequestID)

	// Second entry by the same caller conflicts.
	rec = doJSON(t, router, http.MethodPost, "/api/parking/enter", "alice",
		EnterRequest{VehicleType: "car", LaneType: "normal"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Quote while parked.
	rec = doJSON(t, router, http.MethodGet, "/api/parking/quote", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Underpayment is rejected with 402.
	rec = doJSON(t, router, http.MethodPost, "/api/parking/exit", "alice",
		ExitRequest{AmountTendered: 1})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	// Full payment retires the ticket.
	rec = doJSON(t, router, http.MethodPost, "/api/parking/exit", "alice",
		ExitRequest{AmountTendered: 2})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Exiting again finds nothing.
	rec = doJSON(t, router, http.MethodPost, "/api/parking/exit", "alice",
		ExitRequest{AmountTendered: 2})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnterRequiresCallerHeader(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/parking/enter", "",
		EnterRequest{VehicleType: "car", LaneType: "normal"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnterRejectsUnknownCategory(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/parking/enter", "alice",
		EnterRequest{VehicleType: "boat", LaneType: "normal"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSlotsFullConflict(t *testing.T) {
	srv := testServer(t)
	router := srv.Router()

	for _, caller := range []string{"a", "b"} {
		rec := doJSON(t, router, http.MethodPost, "/api/parking/enter", caller,
			EnterRequest{VehicleType: "bike", LaneType: "fastlane"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/parking/enter", "c",
		EnterRequest{VehicleType: "bike", LaneType: "fastlane"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExitTicketByID(t *testing.T) {
	srv := testServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/parking/enter", "alice",
		EnterRequest{VehicleType: "truck", LaneType: "normal"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/parking/exit-ticket", "",
		ExitTicketRequest{TicketID: 1, AmountTendered: 2})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/parking/exit-ticket", "",
		ExitTicketRequest{TicketID: 42, AmountTendered: 2})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvailability(t *testing.T) {
	srv := testServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/parking/slots?vehicle_type=car&lane_type=normal", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var avail AvailabilityResponse
	require.NoError(t, json.Unmarshal(data, &avail))
	assert.Equal(t, 2, avail.Available)
	assert.Equal(t, int64(2), avail.RatePerHour)
}

func TestAdjustRateAuthorization(t *testing.T) {
	srv := testServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/parking/rate", "mallory",
		AdjustRateRequest{VehicleType: "car", LaneType: "normal", NewRate: 9})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/parking/rate", "owner",
		AdjustRateRequest{VehicleType: "car", LaneType: "normal", NewRate: 9})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWithdraw(t *testing.T) {
	srv := testServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/parking/enter", "alice",
		EnterRequest{VehicleType: "car", LaneType: "normal"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/api/parking/exit", "alice",
		ExitRequest{AmountTendered: 2})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/parking/withdraw", "mallory", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/parking/withdraw", "owner", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var withdrawn WithdrawResponse
	require.NoError(t, json.Unmarshal(data, &withdrawn))
	assert.Equal(t, int64(2), withdrawn.Amount)
}

func TestGetTicket(t *testing.T) {
	srv := testServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodGet, "/api/parking/ticket/1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/parking/enter", "alice",
		EnterRequest{VehicleType: "car", LaneType: "normal"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/parking/ticket/1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
