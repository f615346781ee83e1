package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/repository"
	"github.com/daybookhq/daybook/internal/schema"
	"github.com/google/uuid"
)

var (
	ErrInvalidTransition = errors.New("invalid goal status transition")
)

type GoalService struct {
	goalRepository     repository.GoalRepository
	progressRepository repository.ProgressRepository
}

func NewGoalService(goalRepository repository.GoalRepository, progressRepository repository.ProgressRepository) *GoalService {
	return &GoalService{
		goalRepository:     goalRepository,
		progressRepository: progressRepository,
	}
}

// GoalPatch carries patch semantics: nil fields are left untouched.
type GoalPatch struct {
	Title           *string
	Description     *string
	Category        *string
	Status          *string
	TargetFrequency *string
}

func (s *GoalService) Create(userID, title, description, category, targetFrequency string) (*model.Goal, error) {
	if category == "" {
		category = model.GoalCategoryOther
	}
	if targetFrequency == "" {
		targetFrequency = "daily"
	}

	now := time.Now()
	goal := &model.Goal{
		ID:              uuid.New().String(),
		UserID:          userID,
		Title:           title,
		Description:     description,
		Category:        category,
		Status:          model.GoalStatusActive,
		TargetFrequency: targetFrequency,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.goalRepository.Create(goal)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	return goal, nil
}

func (s *GoalService) Goals(userID string, includeInactive bool) ([]*model.Goal, error) {
	return s.goalRepository.ByUser(userID, includeInactive)
}

func (s *GoalService) Goal(goalID string) (*model.Goal, error) {
	return s.goalRepository.ByID(goalID)
}

func (s *GoalService) ActiveGoals(userID string) ([]*model.Goal, error) {
	return s.goalRepository.ActiveByUser(userID)
}

// Update applies only the fields present in the patch. Status changes go
// through the goal state machine; a move to archived is a soft delete and
// clears the active flag.
func (s *GoalService) Update(goal *model.Goal, patch GoalPatch) (*model.Goal, error) {
	if patch.Title != nil {
		goal.Title = *patch.Title
	}
	if patch.Description != nil {
		goal.Description = *patch.Description
	}
	if patch.Category != nil {
		goal.Category = *patch.Category
	}
	if patch.TargetFrequency != nil {
		goal.TargetFrequency = *patch.TargetFrequency
	}
	if patch.Status != nil {
		if !goal.CanTransition(*patch.Status) {
			return nil, fmt.Errorf("cannot move goal from %s to %s: %w", goal.Status, *patch.Status, ErrInvalidTransition)
		}
		goal.Status = *patch.Status
		if goal.Status == model.GoalStatusArchived {
			goal.IsActive = false
		}
	}

	err := s.goalRepository.Update(goal)
	if err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}

	return goal, nil
}

// Delete soft-deletes: the goal is archived and deactivated, the row and
// its progress history persist.
func (s *GoalService) Delete(goal *model.Goal) (*model.Goal, error) {
	err := s.goalRepository.Archive(goal)
	if err != nil {
		return nil, fmt.Errorf("failed to archive goal: %w", err)
	}

	return goal, nil
}

func (s *GoalService) CreateProgress(goal *model.Goal, date *time.Time, note string, rating *int, journalEntryID *string) (*model.GoalProgress, error) {
	now := time.Now()
	when := now
	if date != nil {
		when = *date
	}

	progress := &model.GoalProgress{
		ID:             uuid.New().String(),
		GoalID:         goal.ID,
		JournalEntryID: journalEntryID,
		Date:           when,
		Note:           note,
		Rating:         rating,
		CreatedAt:      now,
	}

	err := s.progressRepository.Create(progress)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal progress: %w", err)
	}

	return progress, nil
}

func (s *GoalService) Progress(goalID string, limit int) ([]*model.GoalProgress, error) {
	return s.progressRepository.ByGoal(goalID, limit)
}

// Analytics aggregates the caller's active goals: counts by category and
// target frequency, plus recent-progress counts and average ratings per
// goal. Soft-deleted goals are excluded.
func (s *GoalService) Analytics(userID string) (*schema.GoalAnalyticsResponse, error) {
	goals, err := s.goalRepository.ActiveByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active goals: %w", err)
	}

	out := &schema.GoalAnalyticsResponse{
		TotalActiveGoals: len(goals),
		ByCategory:       map[string]int{},
		ByFrequency:      map[string]int{},
		Goals:            []schema.GoalProgressSummary{},
	}

	for _, goal := range goals {
		out.ByCategory[goal.Category]++
		out.ByFrequency[goal.TargetFrequency]++

		rows, err := s.progressRepository.ByGoal(goal.ID, repository.DefaultProgressLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load progress for goal %s: %w", goal.ID, err)
		}

		summary := schema.GoalProgressSummary{
			GoalID:              goal.ID,
			Title:               goal.Title,
			Category:            goal.Category,
			TargetFrequency:     goal.TargetFrequency,
			RecentProgressCount: len(rows),
		}

		var sum, n int
		for _, row := range rows {
			if row.Rating != nil {
				sum += *row.Rating
				n++
			}
		}
		if n > 0 {
			avg := float64(sum) / float64(n)
			summary.AverageRating = &avg
		}

		out.Goals = append(out.Goals, summary)
	}

	return out, nil
}
