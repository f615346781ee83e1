package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/daybookhq/daybook/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrEntryNotFound = errors.New("journal entry not found")
)

type EntryRepository interface {
	Create(entry *model.JournalEntry) error
	ByID(entryID string) (*model.JournalEntry, error)
	ByOwner(ownerID string) ([]*model.JournalEntry, error)
	ByOwnerInRange(ownerID string, start, end time.Time) ([]*model.JournalEntry, error)
	Update(entry *model.JournalEntry) error
}

type entryRepository struct {
	db *sqlx.DB
}

func NewEntryRepository(db *sqlx.DB) EntryRepository {
	return &entryRepository{db: db}
}

// Create inserts the entry row and all its answer rows in one transaction
// so a partial write (entry without answers) is never committed.
func (r *entryRepository) Create(entry *model.JournalEntry) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO journal_entries (id, owner_id, time_block, timestamp) VALUES ($1, $2, $3, $4)`
	_, err = tx.Exec(query, entry.ID, entry.OwnerID, entry.TimeBlock, entry.Timestamp)
	if err != nil {
		return err
	}

	err = insertAnswers(tx, entry)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *entryRepository) ByID(entryID string) (*model.JournalEntry, error) {
	entry := &model.JournalEntry{}
	query := `SELECT * FROM journal_entries WHERE id = $1`

	err := r.db.Get(entry, query, entryID)
	if err == sql.ErrNoRows {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}

	err = r.attachAnswers(entry)
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (r *entryRepository) ByOwner(ownerID string) ([]*model.JournalEntry, error) {
	var entries []*model.JournalEntry
	query := `SELECT * FROM journal_entries WHERE owner_id = $1 ORDER BY timestamp DESC`

	err := r.db.Select(&entries, query, ownerID)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		err = r.attachAnswers(entry)
		if err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// ByOwnerInRange returns entries with timestamp in [start, end] inclusive,
// ordered ascending.
func (r *entryRepository) ByOwnerInRange(ownerID string, start, end time.Time) ([]*model.JournalEntry, error) {
	var entries []*model.JournalEntry
	query := `SELECT * FROM journal_entries
	          WHERE owner_id = $1 AND timestamp >= $2 AND timestamp <= $3
	          ORDER BY timestamp ASC`

	err := r.db.Select(&entries, query, ownerID, start, end)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		err = r.attachAnswers(entry)
		if err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// Update replaces the entry's time block, timestamp, and entire answer set.
// Old answers are deleted, the new set inserted; callers lose prior answer
// identity. Wrapped in a transaction for the same reason as Create.
func (r *entryRepository) Update(entry *model.JournalEntry) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `UPDATE journal_entries SET time_block = $1, timestamp = $2 WHERE id = $3 AND owner_id = $4`
	result, err := tx.Exec(query, entry.TimeBlock, entry.Timestamp, entry.ID, entry.OwnerID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrEntryNotFound
	}

	_, err = tx.Exec(`DELETE FROM answers WHERE entry_id = $1`, entry.ID)
	if err != nil {
		return err
	}

	err = insertAnswers(tx, entry)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func insertAnswers(tx *sql.Tx, entry *model.JournalEntry) error {
	query := `INSERT INTO answers (id, entry_id, position, question, content) VALUES ($1, $2, $3, $4, $5)`

	for i, answer := range entry.Answers {
		answer.ID = uuid.New().String()
		answer.EntryID = entry.ID
		answer.Position = i

		_, err := tx.Exec(query, answer.ID, answer.EntryID, answer.Position, answer.Question, answer.Content)
		if err != nil {
			return fmt.Errorf("failed to insert answer %d: %w", i, err)
		}
	}

	return nil
}

func (r *entryRepository) attachAnswers(entry *model.JournalEntry) error {
	entry.Answers = []*model.Answer{}
	query := `SELECT * FROM answers WHERE entry_id = $1 ORDER BY position ASC`

	return r.db.Select(&entry.Answers, query, entry.ID)
}
