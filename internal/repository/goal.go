package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/daybookhq/daybook/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrGoalNotFound = errors.New("goal not found")
)

type GoalRepository interface {
	Create(goal *model.Goal) error
	ByID(goalID string) (*model.Goal, error)
	ByUser(userID string, includeInactive bool) ([]*model.Goal, error)
	ActiveByUser(userID string) ([]*model.Goal, error)
	Update(goal *model.Goal) error
	Archive(goal *model.Goal) error
}

type goalRepository struct {
	db *sqlx.DB
}

func NewGoalRepository(db *sqlx.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) Create(goal *model.Goal) error {
	query := `INSERT INTO goals (id, user_id, title, description, category, status, target_frequency, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(query,
		goal.ID,
		goal.UserID,
		goal.Title,
		goal.Description,
		goal.Category,
		goal.Status,
		goal.TargetFrequency,
		goal.IsActive,
		goal.CreatedAt,
		goal.UpdatedAt,
	)

	return err
}

func (r *goalRepository) ByID(goalID string) (*model.Goal, error) {
	goal := &model.Goal{}
	query := `SELECT * FROM goals WHERE id = $1`

	err := r.db.Get(goal, query, goalID)
	if err == sql.ErrNoRows {
		return nil, ErrGoalNotFound
	}

	return goal, err
}

// ByUser returns the user's goals newest-first. Soft-deleted goals are
// excluded unless includeInactive is set.
func (r *goalRepository) ByUser(userID string, includeInactive bool) ([]*model.Goal, error) {
	var goals []*model.Goal

	query := `SELECT * FROM goals WHERE user_id = $1 ORDER BY created_at DESC`
	if !includeInactive {
		query = `SELECT * FROM goals WHERE user_id = $1 AND is_active = TRUE ORDER BY created_at DESC`
	}

	err := r.db.Select(&goals, query, userID)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

func (r *goalRepository) ActiveByUser(userID string) ([]*model.Goal, error) {
	var goals []*model.Goal
	query := `SELECT * FROM goals
	          WHERE user_id = $1 AND is_active = TRUE AND status = $2
	          ORDER BY created_at DESC`

	err := r.db.Select(&goals, query, userID, model.GoalStatusActive)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

func (r *goalRepository) Update(goal *model.Goal) error {
	goal.UpdatedAt = time.Now()

	query := `UPDATE goals
	          SET title = $1, description = $2, category = $3, status = $4,
	              target_frequency = $5, is_active = $6, updated_at = $7
	          WHERE id = $8 AND user_id = $9`

	result, err := r.db.Exec(query,
		goal.Title,
		goal.Description,
		goal.Category,
		goal.Status,
		goal.TargetFrequency,
		goal.IsActive,
		goal.UpdatedAt,
		goal.ID,
		goal.UserID,
	)

	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrGoalNotFound
	}

	return nil
}

// Archive soft-deletes: the row stays, listings and analytics skip it.
func (r *goalRepository) Archive(goal *model.Goal) error {
	goal.IsActive = false
	goal.Status = model.GoalStatusArchived
	return r.Update(goal)
}
