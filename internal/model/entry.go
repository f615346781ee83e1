package model

import (
	"time"
)

type JournalEntry struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	TimeBlock string    `db:"time_block"`
	Timestamp time.Time `db:"timestamp"`

	// Loaded alongside the entry, not a column
	Answers []*Answer `db:"-"`
}

// Answer has no lifecycle of its own: rows are created and destroyed only
// as part of their owning entry. Position preserves submission order.
type Answer struct {
	ID       string `db:"id"`
	EntryID  string `db:"entry_id"`
	Position int    `db:"position"`
	Question string `db:"question"`
	Content  string `db:"content"`
}
