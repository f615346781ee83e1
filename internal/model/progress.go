package model

import (
	"time"
)

type GoalProgress struct {
	ID             string    `db:"id"`
	GoalID         string    `db:"goal_id"`
	JournalEntryID *string   `db:"journal_entry_id"` // Nullable: progress may be logged without an entry
	Date           time.Time `db:"date"`
	Note           string    `db:"note"`
	Rating         *int      `db:"rating"` // Nullable 1-5
	CreatedAt      time.Time `db:"created_at"`
}
