package store_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"parking-system/internal/parking"
	"parking-system/internal/store"
)

func newTestArchive(t *testing.T) *store.TicketArchive {
	t.Helper()
	dir := t.TempDir()
	a, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open test archive: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func retiredTicket(id uint64) parking.Ticket {
	entry := time.Unix(100, 0).UTC()
	exit := entry.Add(2 * time.Hour)
	return parking.Ticket{
		ID:          id,
		Holder:      "alice",
		Vehicle:     parking.Car,
		Lane:        parking.Normal,
		RatePerHour: 2,
		EntryTime:   entry,
		ExitTime:    &exit,
		FeeCharged:  4,
		Active:      false,
	}
}

func TestListEmpty(t *testing.T) {
	a := newTestArchive(t)
	tickets, err := a.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != 0 {
		t.Fatalf("expected empty list, got %d tickets", len(tickets))
	}
}

func TestPutAndGet(t *testing.T) {
	a := newTestArchive(t)

	want := retiredTicket(1)
	if err := a.Put(want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := a.Get(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != want.ID || got.Holder != want.Holder || got.FeeCharged != want.FeeCharged {
		t.Errorf("archived ticket does not round-trip: got %+v", got)
	}

	_, err = a.Get(99)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutIsIdempotent(t *testing.T) {
	a := newTestArchive(t)

	first := retiredTicket(1)
	if err := a.Put(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A retried Put must not overwrite the stored record.
	altered := first
	altered.FeeCharged = 999
	if err := a.Put(altered); err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}

	got, err := a.Get(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FeeCharged != 4 {
		t.Errorf("retry overwrote archived ticket: fee %d", got.FeeCharged)
	}
}

func TestListOrderedByID(t *testing.T) {
	a := newTestArchive(t)

	for _, id := range []uint64{3, 1, 2} {
		if err := a.Put(retiredTicket(id)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	tickets, err := a.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("expected 3 tickets, got %d", len(tickets))
	}
	for i, want := range []uint64{1, 2, 3} {
		if tickets[i].ID != want {
			t.Errorf("position %d: expected id %d, got %d", i, want, tickets[i].ID)
		}
	}
}

func TestNotifyArchivesRetiredTickets(t *testing.T) {
	a := newTestArchive(t)

	a.Notify(parking.Event{Kind: parking.EventTicketIssued, Ticket: retiredTicket(1)})
	if _, err := a.Get(1); !errors.Is(err, store.ErrNotFound) {
		t.Error("issuance events must not be archived")
	}

	a.Notify(parking.Event{Kind: parking.EventTicketRetired, Ticket: retiredTicket(2)})
	if _, err := a.Get(2); err != nil {
		t.Errorf("retirement event was not archived: %v", err)
	}
}
