package hftcore

import (
	"fmt"

	"github.com/rs/xid"
)

// BookSnapshot contains the full resting state of a single OrderBook.
// Orders are listed best price first and in arrival order within a level,
// so loading them back in sequence reproduces both priorities.
type BookSnapshot struct {
	SchemaVersion int     `json:"schema_version"`
	Name          string  `json:"name"`
	Session       xid.ID  `json:"session"`
	Sequence      uint64  `json:"sequence"`
	Timestamp     int64   `json:"timestamp"` // Unix nano
	Bids          []Order `json:"bids"`
	Asks          []Order `json:"asks"`
}

// Snapshot copies the resting orders out of the book. It allocates and is
// meant for session boundaries and diagnostics, not the hot path.
func (book *OrderBook) Snapshot() BookSnapshot {
	return BookSnapshot{
		SchemaVersion: SnapshotSchemaVersion,
		Name:          book.name,
		Session:       book.session,
		Sequence:      book.sequence,
		Timestamp:     book.clock(),
		Bids:          book.bidSide.appendOrders(make([]Order, 0, book.Len())),
		Asks:          book.askSide.appendOrders(make([]Order, 0, book.Len())),
	}
}

// LoadSnapshot resets the book and adds every order of snap in order. The
// original timestamps are kept; sequence numbers are reassigned. Loading
// stops at the first order the book rejects.
func (book *OrderBook) LoadSnapshot(snap BookSnapshot) error {
	if snap.SchemaVersion != SnapshotSchemaVersion {
		return fmt.Errorf("snapshot schema %d, want %d: %w", snap.SchemaVersion, SnapshotSchemaVersion, ErrInvalidParam)
	}

	book.Reset()
	for _, orders := range [][]Order{snap.Bids, snap.Asks} {
		for _, o := range orders {
			if !book.AddOrder(o) {
				return fmt.Errorf("load order %d: %s: %w", o.ID, book.lastReject, ErrInvalidParam)
			}
		}
	}

	logger.Info("order book snapshot loaded",
		"book", book.name,
		"session", book.session.String(),
		"from_session", snap.Session.String(),
		"orders", book.Len(),
	)
	return nil
}
