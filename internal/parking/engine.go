package parking

import (
	"fmt"
	"sync"
	"time"
)

// Config is the construction-time setup for the engine.
type Config struct {
	// Owner is the single identity allowed to adjust rates and withdraw
	// revenue.
	Owner string

	// Categories maps each slot category to its capacity and initial
	// hourly rate. Missing categories get zero capacity.
	Categories map[Category]CategoryConfig

	// RefundOverpayment controls what happens to the excess when a caller
	// tenders more than the fee due: refund it in the receipt, or forfeit
	// it to revenue (the default).
	RefundOverpayment bool
}

// Receipt is the result of a successful exit.
type Receipt struct {
	Ticket Ticket `json:"ticket"`
	Fee    int64  `json:"fee"`
	Change int64  `json:"change"`
}

// Engine is the single entry point for the parking system: it composes the
// slot inventory, ticket ledger, billing and revenue account into
// entry/exit/payment/administration operations and enforces the
// cross-component invariants. Timestamps are injected by the caller; the
// engine never reads the wall clock.
type Engine struct {
	inventory *SlotInventory
	ledger    *TicketLedger
	revenue   *RevenueAccount

	refundOverpayment bool

	subMu sync.RWMutex
	subs  []Subscriber
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Owner == "" {
		return nil, fmt.Errorf("owner identity is required")
	}
	inventory, err := NewSlotInventory(cfg.Categories)
	if err != nil {
		return nil, err
	}
	return &Engine{
		inventory:         inventory,
		ledger:            NewTicketLedger(inventory),
		revenue:           NewRevenueAccount(cfg.Owner),
		refundOverpayment: cfg.RefundOverpayment,
	}, nil
}

// Subscribe registers a subscriber for ticket events.
func (e *Engine) Subscribe(s Subscriber) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subs = append(e.subs, s)
}

func (e *Engine) publish(kind string, t Ticket) {
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	for _, s := range e.subs {
		s.Notify(Event{Kind: kind, Ticket: t})
	}
}

// Enter issues a ticket for the holder in the given category. licensePlate
// is optional. Fails with ErrAlreadyParked if the holder has an active
// ticket, ErrSlotsFull if the category has no free slot; either way no state
// changes.
func (e *Engine) Enter(holder string, vehicle VehicleType, lane LaneType, licensePlate string, now time.Time) (Ticket, error) {
	if holder == "" {
		return Ticket{}, fmt.Errorf("holder identity is required")
	}

	t, err := e.ledger.Issue(holder, Category{Vehicle: vehicle, Lane: lane}, licensePlate, now)
	if err != nil {
		return Ticket{}, err
	}

	e.publish(EventTicketIssued, t)
	return t, nil
}

// Quote returns the fee the holder would owe if they exited at now. It is
// read-only: the projection uses the rate captured at entry and mutates
// nothing.
func (e *Engine) Quote(holder string, now time.Time) (int64, error) {
	t, ok := e.ledger.ActiveTicket(holder)
	if !ok {
		return 0, ErrTicketNotFound
	}
	return ComputeFee(t.EntryTime, now, t.RatePerHour), nil
}

// Exit retires the holder's active ticket, verifying payment against the
// authoritative fee. ErrUnderPayment leaves the ticket active and the slot
// occupied.
func (e *Engine) Exit(holder string, now time.Time, amountTendered int64) (Receipt, error) {
	return e.settle(ByHolder(holder), now, amountTendered)
}

// ExitTicket retires a session by ticket id, the lookup mode used when the
// caller holds a ticket number rather than parking under their own identity.
func (e *Engine) ExitTicket(ticketID uint64, now time.Time, amountTendered int64) (Receipt, error) {
	return e.settle(ByID(ticketID), now, amountTendered)
}

func (e *Engine) settle(ref TicketRef, now time.Time, amountTendered int64) (Receipt, error) {
	if amountTendered < 0 {
		return Receipt{}, ErrInvalidAmount
	}

	var fee int64
	t, err := e.ledger.Retire(ref, now, func(t Ticket) (int64, error) {
		fee = ComputeFee(t.EntryTime, now, t.RatePerHour)
		if amountTendered < fee {
			return 0, ErrUnderPayment
		}
		return fee, nil
	})
	if err != nil {
		return Receipt{}, err
	}

	credited := amountTendered
	change := int64(0)
	if e.refundOverpayment {
		credited = fee
		change = amountTendered - fee
	}
	if err := e.revenue.Credit(credited); err != nil {
		return Receipt{}, err
	}

	e.publish(EventTicketRetired, t)
	return Receipt{Ticket: t, Fee: fee, Change: change}, nil
}

// Available returns the number of free slots in the category.
func (e *Engine) Available(vehicle VehicleType, lane LaneType) (int, error) {
	return e.inventory.Available(Category{Vehicle: vehicle, Lane: lane})
}

// RateFor returns the current hourly rate for the category.
func (e *Engine) RateFor(vehicle VehicleType, lane LaneType) (int64, error) {
	return e.inventory.RateFor(Category{Vehicle: vehicle, Lane: lane})
}

// AdjustRate changes a category's hourly rate. Owner only. Tickets already
// issued keep the rate captured at entry.
func (e *Engine) AdjustRate(caller string, vehicle VehicleType, lane LaneType, newRate int64) error {
	if caller != e.revenue.Owner() {
		return ErrNotOwner
	}
	return e.inventory.SetRate(Category{Vehicle: vehicle, Lane: lane}, newRate)
}

// Withdraw pays out the collected revenue to the owner.
func (e *Engine) Withdraw(caller string) (int64, error) {
	return e.revenue.Withdraw(caller)
}

// ActiveTicket returns the holder's active ticket, if any.
func (e *Engine) ActiveTicket(holder string) (Ticket, bool) {
	return e.ledger.ActiveTicket(holder)
}

// Ticket returns the ticket with the given id, active or retired.
func (e *Engine) Ticket(id uint64) (Ticket, bool) {
	return e.ledger.Get(id)
}

// History returns every ticket ever issued, ordered by id.
func (e *Engine) History() []Ticket {
	return e.ledger.History()
}

// Status snapshots occupancy and rates per category.
func (e *Engine) Status() []CategoryStatus {
	return e.inventory.Status()
}

// Stats is an aggregate view over the whole system.
type Stats struct {
	TicketsIssued uint64 `json:"tickets_issued"`
	TotalRevenue  int64  `json:"total_revenue"`
	Balance       int64  `json:"balance"`
}

func (e *Engine) Stats() Stats {
	return Stats{
		TicketsIssued: e.ledger.Count(),
		TotalRevenue:  e.revenue.TotalRevenue(),
		Balance:       e.revenue.Balance(),
	}
}
