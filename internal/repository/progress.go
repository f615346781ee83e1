package repository

import (
	"github.com/daybookhq/daybook/internal/model"
	"github.com/jmoiron/sqlx"
)

const DefaultProgressLimit = 30

type ProgressRepository interface {
	Create(progress *model.GoalProgress) error
	ByGoal(goalID string, limit int) ([]*model.GoalProgress, error)
}

type progressRepository struct {
	db *sqlx.DB
}

func NewProgressRepository(db *sqlx.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Create(progress *model.GoalProgress) error {
	query := `INSERT INTO goal_progress (id, goal_id, journal_entry_id, date, note, rating, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query,
		progress.ID,
		progress.GoalID,
		progress.JournalEntryID,
		progress.Date,
		progress.Note,
		progress.Rating,
		progress.CreatedAt,
	)

	return err
}

// ByGoal returns the most recent progress rows for a goal, newest-first,
// capped at limit.
func (r *progressRepository) ByGoal(goalID string, limit int) ([]*model.GoalProgress, error) {
	if limit <= 0 {
		limit = DefaultProgressLimit
	}

	var rows []*model.GoalProgress
	query := `SELECT * FROM goal_progress WHERE goal_id = $1 ORDER BY date DESC LIMIT $2`

	err := r.db.Select(&rows, query, goalID, limit)
	if err != nil {
		return nil, err
	}

	return rows, nil
}
