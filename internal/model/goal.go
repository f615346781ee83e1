package model

import (
	"time"
)

const (
	GoalStatusActive    = "active"
	GoalStatusPaused    = "paused"
	GoalStatusCompleted = "completed"
	GoalStatusArchived  = "archived"
)

const (
	GoalCategoryHealth       = "health"
	GoalCategoryProductivity = "productivity"
	GoalCategoryHabits       = "habits"
	GoalCategoryPersonalDev  = "personal_development"
	GoalCategoryRelations    = "relationships"
	GoalCategoryCareer       = "career"
	GoalCategoryFinance      = "finance"
	GoalCategoryOther        = "other"
)

type Goal struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	Title           string    `db:"title"`
	Description     string    `db:"description"`
	Category        string    `db:"category"`
	Status          string    `db:"status"`
	TargetFrequency string    `db:"target_frequency"`
	IsActive        bool      `db:"is_active"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// goalTransitions encodes the status state machine:
// active <-> paused <-> completed, with archived terminal and reachable
// from every state (that is what delete does).
var goalTransitions = map[string][]string{
	GoalStatusActive:    {GoalStatusPaused, GoalStatusCompleted, GoalStatusArchived},
	GoalStatusPaused:    {GoalStatusActive, GoalStatusCompleted, GoalStatusArchived},
	GoalStatusCompleted: {GoalStatusActive, GoalStatusPaused, GoalStatusArchived},
	GoalStatusArchived:  {},
}

// CanTransition reports whether a goal may move from its current status to
// another. Restating the current status is allowed so patch requests that
// repeat it do not fail.
func (g *Goal) CanTransition(to string) bool {
	if g.Status == to {
		return true
	}
	for _, next := range goalTransitions[g.Status] {
		if next == to {
			return true
		}
	}
	return false
}
