package parking

import (
	"errors"
	"testing"
	"time"
)

func testLedger(t *testing.T, capacity int, rate int64) *TicketLedger {
	t.Helper()
	return NewTicketLedger(testInventory(t, capacity, rate))
}

func TestIssue(t *testing.T) {
	l := testLedger(t, 2, 5)
	now := time.Unix(100, 0)

	ticket, err := l.Issue("alice", Category{Vehicle: Car, Lane: Normal}, "KA01HH1234", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.ID != 1 {
		t.Errorf("expected ticket id 1, got %d", ticket.ID)
	}
	if !ticket.Active {
		t.Error("expected issued ticket to be active")
	}
	if !ticket.EntryTime.Equal(now) {
		t.Errorf("expected entry time %v, got %v", now, ticket.EntryTime)
	}
	if ticket.RatePerHour != 5 {
		t.Errorf("expected captured rate 5, got %d", ticket.RatePerHour)
	}
	if ticket.LicensePlate != "KA01HH1234" {
		t.Errorf("unexpected license plate %q", ticket.LicensePlate)
	}

	second, err := l.Issue("bob", Category{Vehicle: Car, Lane: Normal}, "", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != 2 {
		t.Errorf("expected monotonically increasing ids, got %d after 1", second.ID)
	}
}

func TestIssueAlreadyParked(t *testing.T) {
	l := testLedger(t, 2, 5)
	now := time.Unix(100, 0)
	carNormal := Category{Vehicle: Car, Lane: Normal}

	if _, err := l.Issue("alice", carNormal, "", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := l.Issue("alice", Category{Vehicle: Bike, Lane: Fastlane}, "", now)
	if !errors.Is(err, ErrAlreadyParked) {
		t.Fatalf("expected ErrAlreadyParked, got %v", err)
	}

	// The rejection must not reserve anything, in any category.
	if available, _ := l.inventory.Available(Category{Vehicle: Bike, Lane: Fastlane}); available != 2 {
		t.Errorf("rejected issue leaked a reservation: %d available", available)
	}
}

func TestIssueSlotsFull(t *testing.T) {
	l := testLedger(t, 1, 5)
	now := time.Unix(100, 0)
	cat := Category{Vehicle: Truck, Lane: Fastlane}

	if _, err := l.Issue("alice", cat, "", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := l.Issue("bob", cat, "", now)
	if !errors.Is(err, ErrSlotsFull) {
		t.Fatalf("expected ErrSlotsFull, got %v", err)
	}
	if _, parked := l.ActiveTicket("bob"); parked {
		t.Error("rejected holder must not have an active ticket")
	}
}

func noopSettle(Ticket) (int64, error) { return 0, nil }

func TestRetireByHolder(t *testing.T) {
	l := testLedger(t, 1, 5)
	entry := time.Unix(100, 0)
	exit := time.Unix(4000, 0)
	cat := Category{Vehicle: Car, Lane: Normal}

	issued, err := l.Issue("alice", cat, "", entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retired, err := l.Retire(ByHolder("alice"), exit, func(tk Ticket) (int64, error) {
		if tk.ID != issued.ID {
			t.Errorf("settle saw ticket %d, want %d", tk.ID, issued.ID)
		}
		return 10, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if retired.Active {
		t.Error("expected retired ticket to be inactive")
	}
	if retired.ExitTime == nil || !retired.ExitTime.Equal(exit) {
		t.Errorf("expected exit time %v, got %v", exit, retired.ExitTime)
	}
	if retired.FeeCharged != 10 {
		t.Errorf("expected fee 10, got %d", retired.FeeCharged)
	}

	if _, parked := l.ActiveTicket("alice"); parked {
		t.Error("holder index should be cleared after retirement")
	}
	if available, _ := l.inventory.Available(cat); available != 1 {
		t.Errorf("expected slot released, got %d available", available)
	}
}

func TestRetireByID(t *testing.T) {
	l := testLedger(t, 1, 5)
	now := time.Unix(100, 0)

	issued, err := l.Issue("alice", Category{Vehicle: Bike, Lane: Normal}, "", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retired, err := l.Retire(ByID(issued.ID), now, noopSettle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retired.ID != issued.ID {
		t.Errorf("retired wrong ticket: %d", retired.ID)
	}
}

func TestRetireErrors(t *testing.T) {
	l := testLedger(t, 1, 5)
	now := time.Unix(100, 0)

	if _, err := l.Retire(ByID(99), now, noopSettle); !errors.Is(err, ErrTicketNotFound) {
		t.Errorf("expected ErrTicketNotFound, got %v", err)
	}
	if _, err := l.Retire(ByHolder("nobody"), now, noopSettle); !errors.Is(err, ErrTicketNotFound) {
		t.Errorf("expected ErrTicketNotFound, got %v", err)
	}

	issued, _ := l.Issue("alice", Category{Vehicle: Car, Lane: Normal}, "", now)
	if _, err := l.Retire(ByID(issued.ID), now, noopSettle); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := l.Retire(ByID(issued.ID), now, noopSettle); !errors.Is(err, ErrTicketNotActive) {
		t.Errorf("expected ErrTicketNotActive, got %v", err)
	}
}

func TestRetireSettleFailureLeavesStateUntouched(t *testing.T) {
	l := testLedger(t, 1, 5)
	now := time.Unix(100, 0)
	cat := Category{Vehicle: Car, Lane: Normal}

	issued, _ := l.Issue("alice", cat, "", now)

	settleErr := errors.New("settle failed")
	_, err := l.Retire(ByID(issued.ID), now, func(Ticket) (int64, error) {
		return 0, settleErr
	})
	if !errors.Is(err, settleErr) {
		t.Fatalf("expected settle error, got %v", err)
	}

	current, ok := l.Get(issued.ID)
	if !ok || !current.Active {
		t.Error("ticket must stay active after failed settle")
	}
	if available, _ := l.inventory.Available(cat); available != 0 {
		t.Errorf("slot must stay occupied after failed settle, got %d available", available)
	}
}

func TestHistoryRetainsRetiredTickets(t *testing.T) {
	l := testLedger(t, 2, 5)
	now := time.Unix(100, 0)
	cat := Category{Vehicle: Car, Lane: Normal}

	l.Issue("alice", cat, "", now)
	l.Issue("bob", cat, "", now)
	l.Retire(ByHolder("alice"), now, noopSettle)

	history := l.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 tickets in history, got %d", len(history))
	}
	if history[0].ID != 1 || history[1].ID != 2 {
		t.Errorf("history not ordered by id: %d, %d", history[0].ID, history[1].ID)
	}
	if history[0].Active {
		t.Error("retired ticket should show inactive in history")
	}
	if !history[1].Active {
		t.Error("active ticket should show active in history")
	}

	if l.Count() != 2 {
		t.Errorf("expected count 2, got %d", l.Count())
	}
}
