package parking

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedEngine wraps the core engine with OpenTelemetry spans and
// metrics. The core stays telemetry-free; everything observable lives here.
type InstrumentedEngine struct {
	*Engine
	telemetry *TelemetryProvider

	entryOperations  metric.Int64Counter
	exitOperations   metric.Int64Counter
	rejections       metric.Int64Counter
	occupancyGauge   metric.Int64UpDownCounter
	revenueCollected metric.Int64Counter
	operationTime    metric.Float64Histogram
}

func NewInstrumentedEngine(cfg Config, telemetry *TelemetryProvider) (*InstrumentedEngine, error) {
	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	meter := telemetry.Meter()

	entryOperations, err := meter.Int64Counter("parking_entries_total",
		metric.WithDescription("Total number of entry operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	exitOperations, err := meter.Int64Counter("parking_exits_total",
		metric.WithDescription("Total number of exit operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter("parking_rejections_total",
		metric.WithDescription("Rejected operations by reason"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_occupancy",
		metric.WithDescription("Currently occupied slots per category"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	revenueCollected, err := meter.Int64Counter("parking_revenue_collected_total",
		metric.WithDescription("Revenue credited from settled fees"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationTime, err := meter.Float64Histogram("parking_operation_duration_seconds",
		metric.WithDescription("Duration of engine operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &InstrumentedEngine{
		Engine:           engine,
		telemetry:        telemetry,
		entryOperations:  entryOperations,
		exitOperations:   exitOperations,
		rejections:       rejections,
		occupancyGauge:   occupancyGauge,
		revenueCollected: revenueCollected,
		operationTime:    operationTime,
	}, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyParked):
		return "already_parked"
	case errors.Is(err, ErrSlotsFull):
		return "slots_full"
	case errors.Is(err, ErrTicketNotFound):
		return "not_found"
	case errors.Is(err, ErrTicketNotActive):
		return "not_active"
	case errors.Is(err, ErrUnderPayment):
		return "under_payment"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrInvalidRate), errors.Is(err, ErrInvalidAmount):
		return "invalid_input"
	case errors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	}
	return "other"
}

func (ie *InstrumentedEngine) Enter(ctx context.Context, holder string, vehicle VehicleType, lane LaneType, licensePlate string, now time.Time) (Ticket, error) {
	tracer := ie.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking.enter",
		trace.WithAttributes(
			attribute.String("parking.holder", holder),
			attribute.String("parking.vehicle_type", vehicle.String()),
			attribute.String("parking.lane_type", lane.String()),
		))
	defer span.End()

	start := time.Now()
	ticket, err := ie.Engine.Enter(holder, vehicle, lane, licensePlate, now)
	duration := time.Since(start).Seconds()

	categoryAttrs := []attribute.KeyValue{
		attribute.String("vehicle_type", vehicle.String()),
		attribute.String("lane_type", lane.String()),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ie.rejections.Add(ctx, 1, metric.WithAttributes(
			append(categoryAttrs, attribute.String("reason", rejectionReason(err)))...))
	} else {
		span.SetAttributes(attribute.Int64("parking.ticket_id", int64(ticket.ID)))
		span.AddEvent("ticket_issued", trace.WithAttributes(
			attribute.Int64("ticket_id", int64(ticket.ID)),
		))
		ie.entryOperations.Add(ctx, 1, metric.WithAttributes(categoryAttrs...))
		ie.occupancyGauge.Add(ctx, 1, metric.WithAttributes(categoryAttrs...))
	}

	ie.operationTime.Record(ctx, duration, metric.WithAttributes(
		attribute.String("operation", "enter")))

	return ticket, err
}

func (ie *InstrumentedEngine) Quote(ctx context.Context, holder string, now time.Time) (int64, error) {
	tracer := ie.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking.quote",
		trace.WithAttributes(attribute.String("parking.holder", holder)))
	defer span.End()

	start := time.Now()
	fee, err := ie.Engine.Quote(holder, now)
	duration := time.Since(start).Seconds()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int64("parking.projected_fee", fee))
	}

	ie.operationTime.Record(ctx, duration, metric.WithAttributes(
		attribute.String("operation", "quote")))

	return fee, err
}

func (ie *InstrumentedEngine) Exit(ctx context.Context, holder string, now time.Time, amountTendered int64) (Receipt, error) {
	tracer := ie.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking.exit",
		trace.WithAttributes(
			attribute.String("parking.holder", holder),
			attribute.Int64("parking.amount_tendered", amountTendered),
		))
	defer span.End()

	start := time.Now()
	receipt, err := ie.Engine.Exit(holder, now, amountTendered)
	duration := time.Since(start).Seconds()

	ie.recordExit(ctx, span, receipt, err)
	ie.operationTime.Record(ctx, duration, metric.WithAttributes(
		attribute.String("operation", "exit")))

	return receipt, err
}

func (ie *InstrumentedEngine) ExitTicket(ctx context.Context, ticketID uint64, now time.Time, amountTendered int64) (Receipt, error) {
	tracer := ie.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking.exit_ticket",
		trace.WithAttributes(
			attribute.Int64("parking.ticket_id", int64(ticketID)),
			attribute.Int64("parking.amount_tendered", amountTendered),
		))
	defer span.End()

	start := time.Now()
	receipt, err := ie.Engine.ExitTicket(ticketID, now, amountTendered)
	duration := time.Since(start).Seconds()

	ie.recordExit(ctx, span, receipt, err)
	ie.operationTime.Record(ctx, duration, metric.WithAttributes(
		attribute.String("operation", "exit_ticket")))

	return receipt, err
}

func (ie *InstrumentedEngine) recordExit(ctx context.Context, span trace.Span, receipt Receipt, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ie.rejections.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", rejectionReason(err))))
		return
	}

	categoryAttrs := []attribute.KeyValue{
		attribute.String("vehicle_type", receipt.Ticket.Vehicle.String()),
		attribute.String("lane_type", receipt.Ticket.Lane.String()),
	}

	span.SetAttributes(
		attribute.Int64("parking.ticket_id", int64(receipt.Ticket.ID)),
		attribute.Int64("parking.fee", receipt.Fee),
	)
	span.AddEvent("ticket_retired", trace.WithAttributes(
		attribute.Int64("ticket_id", int64(receipt.Ticket.ID)),
		attribute.Int64("fee", receipt.Fee),
	))

	ie.exitOperations.Add(ctx, 1, metric.WithAttributes(categoryAttrs...))
	ie.occupancyGauge.Add(ctx, -1, metric.WithAttributes(categoryAttrs...))
	ie.revenueCollected.Add(ctx, receipt.Fee, metric.WithAttributes(categoryAttrs...))
}

func (ie *InstrumentedEngine) Withdraw(ctx context.Context, caller string) (int64, error) {
	tracer := ie.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking.withdraw")
	defer span.End()

	start := time.Now()
	amount, err := ie.Engine.Withdraw(caller)
	duration := time.Since(start).Seconds()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ie.rejections.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", rejectionReason(err))))
	} else {
		span.SetAttributes(attribute.Int64("parking.withdrawn", amount))
	}

	ie.operationTime.Record(ctx, duration, metric.WithAttributes(
		attribute.String("operation", "withdraw")))

	return amount, err
}

func (ie *InstrumentedEngine) AdjustRate(ctx context.Context, caller string, vehicle VehicleType, lane LaneType, newRate int64) error {
	tracer := ie.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking.adjust_rate",
		trace.WithAttributes(
			attribute.String("parking.vehicle_type", vehicle.String()),
			attribute.String("parking.lane_type", lane.String()),
			attribute.Int64("parking.new_rate", newRate),
		))
	defer span.End()

	start := time.Now()
	err := ie.Engine.AdjustRate(caller, vehicle, lane, newRate)
	duration := time.Since(start).Seconds()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ie.rejections.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", rejectionReason(err))))
	}

	ie.operationTime.Record(ctx, duration, metric.WithAttributes(
		attribute.String("operation", "adjust_rate")))

	return err
}
