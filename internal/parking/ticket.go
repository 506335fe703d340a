package parking

import (
	"fmt"
	"sync"
	"time"
)

// Ticket records one parking session from entry to exit. Retired tickets are
// never deleted; the ledger keeps them as append-only history.
type Ticket struct {
	ID           uint64      `json:"id"`
	Holder       string      `json:"holder"`
	Vehicle      VehicleType `json:"vehicle_type"`
	Lane         LaneType    `json:"lane_type"`
	LicensePlate string      `json:"license_plate,omitempty"`
	RatePerHour  int64       `json:"rate_per_hour"`
	EntryTime    time.Time   `json:"entry_time"`
	ExitTime     *time.Time  `json:"exit_time,omitempty"`
	FeeCharged   int64       `json:"fee_charged"`
	Active       bool        `json:"active"`
}

func (t Ticket) Category() Category {
	return Category{Vehicle: t.Vehicle, Lane: t.Lane}
}

// TicketRef locates a ticket either by id or by the holder's current active
// ticket. The engine supports both lookup modes.
type TicketRef struct {
	id     uint64
	holder string
}

func ByID(id uint64) TicketRef { return TicketRef{id: id} }

func ByHolder(holder string) TicketRef { return TicketRef{holder: holder} }

// TicketLedger owns the set of tickets and each holder's active-ticket
// pointer. Slot capacity is reserved and released through the inventory
// atomically with ticket state changes.
type TicketLedger struct {
	mu        sync.Mutex
	inventory *SlotInventory

	tickets        map[uint64]*Ticket
	activeByHolder map[string]uint64
	nextID         uint64
}

func NewTicketLedger(inventory *SlotInventory) *TicketLedger {
	return &TicketLedger{
		inventory:      inventory,
		tickets:        make(map[uint64]*Ticket),
		activeByHolder: make(map[string]uint64),
	}
}

// Issue creates a new active ticket for the holder, reserving one slot in
// the category. The already-parked check runs before the reservation so a
// rejection never leaks a reserved slot. The rate in effect at entry is
// captured on the ticket; later rate changes do not affect it.
func (l *TicketLedger) Issue(holder string, c Category, licensePlate string, now time.Time) (Ticket, error) {
	if !c.Valid() {
		return Ticket{}, fmt.Errorf("category %s: %w", c, ErrInvariantViolation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, parked := l.activeByHolder[holder]; parked {
		return Ticket{}, ErrAlreadyParked
	}

	rate, err := l.inventory.RateFor(c)
	if err != nil {
		return Ticket{}, err
	}
	if err := l.inventory.TryReserve(c); err != nil {
		return Ticket{}, err
	}

	l.nextID++
	t := &Ticket{
		ID:           l.nextID,
		Holder:       holder,
		Vehicle:      c.Vehicle,
		Lane:         c.Lane,
		LicensePlate: licensePlate,
		RatePerHour:  rate,
		EntryTime:    now,
		Active:       true,
	}
	l.tickets[t.ID] = t
	l.activeByHolder[holder] = t.ID

	return *t, nil
}

// Retire ends the session identified by ref. The settle callback sees the
// ticket before any mutation and returns the fee to record; if it errors,
// or the slot release fails, nothing changes.
func (l *TicketLedger) Retire(ref TicketRef, now time.Time, settle func(Ticket) (int64, error)) (Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var t *Ticket
	if ref.id != 0 {
		t = l.tickets[ref.id]
	} else if id, ok := l.activeByHolder[ref.holder]; ok {
		t = l.tickets[id]
	}
	if t == nil {
		return Ticket{}, ErrTicketNotFound
	}
	if !t.Active {
		return Ticket{}, ErrTicketNotActive
	}

	fee, err := settle(*t)
	if err != nil {
		return Ticket{}, err
	}

	if err := l.inventory.Release(t.Category()); err != nil {
		return Ticket{}, err
	}

	exit := now
	t.ExitTime = &exit
	t.FeeCharged = fee
	t.Active = false
	delete(l.activeByHolder, t.Holder)

	return *t, nil
}

// ActiveTicket returns the holder's current active ticket, if any.
func (l *TicketLedger) ActiveTicket(holder string) (Ticket, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, ok := l.activeByHolder[holder]
	if !ok {
		return Ticket{}, false
	}
	return *l.tickets[id], true
}

// Get returns the ticket with the given id, active or retired.
func (l *TicketLedger) Get(id uint64) (Ticket, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tickets[id]
	if !ok {
		return Ticket{}, false
	}
	return *t, true
}

// History returns every ticket ever issued, ordered by id.
func (l *TicketLedger) History() []Ticket {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Ticket, 0, len(l.tickets))
	for id := uint64(1); id <= l.nextID; id++ {
		if t, ok := l.tickets[id]; ok {
			out = append(out, *t)
		}
	}
	return out
}

// Count returns how many tickets have been issued.
func (l *TicketLedger) Count() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextID
}
