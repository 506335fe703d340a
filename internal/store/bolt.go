// Package store provides a BoltDB-backed archive of retired tickets.
//
// BoltDB is an embedded key/value store; all data lives in a single file, so
// the engine needs no external database process. The archive is append-only:
// a ticket is written once at retirement and never updated, which makes
// re-archiving after a retry a safe no-op.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	bolt "github.com/boltdb/bolt"

	"parking-system/internal/logging"
	"parking-system/internal/parking"
)

const bucketName = "tickets"

// ErrNotFound is returned when a requested ticket is not archived.
var ErrNotFound = errors.New("ticket not archived")

// TicketArchive persists retired tickets keyed by ticket id.
type TicketArchive struct {
	db *bolt.DB
}

// Open opens (or creates) the archive at the given path and ensures the
// tickets bucket exists.
func Open(path string) (*TicketArchive, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &TicketArchive{db: db}, nil
}

// Close releases the database file lock.
func (a *TicketArchive) Close() error {
	return a.db.Close()
}

func ticketKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// Put archives a retired ticket. If the ticket is already archived the
// stored record wins and no write happens, so retries are harmless.
func (a *TicketArchive) Put(t parking.Ticket) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		key := ticketKey(t.ID)
		if b.Get(key) != nil {
			return nil
		}

		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// Get retrieves an archived ticket by id. Returns ErrNotFound if the ticket
// was never archived.
func (a *TicketArchive) Get(id uint64) (parking.Ticket, error) {
	var t parking.Ticket

	err := a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		v := b.Get(ticketKey(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &t)
	})
	if err != nil {
		return parking.Ticket{}, err
	}

	return t, nil
}

// List returns all archived tickets in id order. The big-endian key encoding
// makes Bolt's byte order the id order.
func (a *TicketArchive) List() ([]parking.Ticket, error) {
	var tickets []parking.Ticket

	err := a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.ForEach(func(k, v []byte) error {
			var t parking.Ticket
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			tickets = append(tickets, t)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if tickets == nil {
		tickets = []parking.Ticket{}
	}
	return tickets, nil
}

// Notify implements parking.Subscriber: retired tickets are archived as they
// happen. Archive failures must not fail the exit that triggered them, so
// they are logged and swallowed.
func (a *TicketArchive) Notify(e parking.Event) {
	if e.Kind != parking.EventTicketRetired {
		return
	}
	if err := a.Put(e.Ticket); err != nil {
		logging.Logger().Error().
			Err(err).
			Uint64("ticket_id", e.Ticket.ID).
			Msg("failed to archive retired ticket")
	}
}
