package parking

import (
	"fmt"
	"sync"
)

// CategoryConfig is the construction-time setup for one slot category.
type CategoryConfig struct {
	Capacity    int
	RatePerHour int64
}

type slotCategory struct {
	mu       sync.Mutex
	capacity int
	occupied int
	rate     int64
	frozen   bool
}

// SlotInventory owns capacity counts and hourly rates per slot category.
// Each category carries its own lock so unrelated categories never serialize
// against each other.
type SlotInventory struct {
	categories map[Category]*slotCategory
}

// NewSlotInventory builds an inventory covering every modeled category.
// Categories absent from cfg start with zero capacity.
func NewSlotInventory(cfg map[Category]CategoryConfig) (*SlotInventory, error) {
	categories := make(map[Category]*slotCategory, len(Categories()))
	for _, c := range Categories() {
		cc := cfg[c]
		if cc.Capacity < 0 {
			return nil, fmt.Errorf("category %s: capacity must be non-negative", c)
		}
		if cc.RatePerHour < 0 {
			return nil, fmt.Errorf("category %s: %w", c, ErrInvalidRate)
		}
		categories[c] = &slotCategory{
			capacity: cc.Capacity,
			rate:     cc.RatePerHour,
		}
	}
	return &SlotInventory{categories: categories}, nil
}

func (inv *SlotInventory) category(c Category) (*slotCategory, error) {
	sc, ok := inv.categories[c]
	if !ok {
		return nil, fmt.Errorf("category %s: %w", c, ErrInvariantViolation)
	}
	return sc, nil
}

// TryReserve atomically claims one slot in the category. It either succeeds
// immediately or fails immediately with ErrSlotsFull; there is no queueing.
func (inv *SlotInventory) TryReserve(c Category) error {
	sc, err := inv.category(c)
	if err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.frozen {
		return fmt.Errorf("category %s is frozen: %w", c, ErrInvariantViolation)
	}
	if sc.occupied >= sc.capacity {
		return ErrSlotsFull
	}
	sc.occupied++
	return nil
}

// Release frees one slot in the category. A release that would drive
// occupancy negative marks the category broken and refuses all further
// mutation of it.
func (inv *SlotInventory) Release(c Category) error {
	sc, err := inv.category(c)
	if err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.frozen {
		return fmt.Errorf("category %s is frozen: %w", c, ErrInvariantViolation)
	}
	if sc.occupied <= 0 {
		sc.frozen = true
		return fmt.Errorf("category %s: occupancy would go negative: %w", c, ErrInvariantViolation)
	}
	sc.occupied--
	return nil
}

// Available returns capacity minus occupancy; never negative.
func (inv *SlotInventory) Available(c Category) (int, error) {
	sc, err := inv.category(c)
	if err != nil {
		return 0, err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.capacity - sc.occupied, nil
}

// RateFor returns the current hourly rate for the category.
func (inv *SlotInventory) RateFor(c Category) (int64, error) {
	sc, err := inv.category(c)
	if err != nil {
		return 0, err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.rate, nil
}

// SetRate changes the hourly rate for the category.
func (inv *SlotInventory) SetRate(c Category, rate int64) error {
	if rate < 0 {
		return ErrInvalidRate
	}

	sc, err := inv.category(c)
	if err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.frozen {
		return fmt.Errorf("category %s is frozen: %w", c, ErrInvariantViolation)
	}
	sc.rate = rate
	return nil
}

// CategoryStatus is a point-in-time view of one category.
type CategoryStatus struct {
	Vehicle     string `json:"vehicle_type"`
	Lane        string `json:"lane_type"`
	Capacity    int    `json:"capacity"`
	Occupied    int    `json:"occupied"`
	Available   int    `json:"available"`
	RatePerHour int64  `json:"rate_per_hour"`
}

// Status snapshots every category in a stable order.
func (inv *SlotInventory) Status() []CategoryStatus {
	var out []CategoryStatus
	for _, c := range Categories() {
		sc := inv.categories[c]
		sc.mu.Lock()
		out = append(out, CategoryStatus{
			Vehicle:     c.Vehicle.String(),
			Lane:        c.Lane.String(),
			Capacity:    sc.capacity,
			Occupied:    sc.occupied,
			Available:   sc.capacity - sc.occupied,
			RatePerHour: sc.rate,
		})
		sc.mu.Unlock()
	}
	return out
}
