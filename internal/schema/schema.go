// Package schema defines the request and response shapes of the JSON API,
// independent of storage representation. Validation rules live here so
// enumerated values are rejected at the boundary, not at storage.
package schema

import (
	"time"

	"github.com/daybookhq/daybook/internal/model"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks a request struct against its validation tags.
func Validate(s any) error {
	return validate.Struct(s)
}

type UserCreate struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type AnswerCreate struct {
	Question string `json:"question" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

type AnswerResponse struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Content  string `json:"content"`
}

type JournalEntryCreate struct {
	TimeBlock string         `json:"time_block" validate:"required,max=255"`
	Answers   []AnswerCreate `json:"answers" validate:"dive"`
}

type JournalEntryResponse struct {
	ID        string           `json:"id"`
	OwnerID   string           `json:"owner_id"`
	TimeBlock string           `json:"time_block"`
	Timestamp time.Time        `json:"timestamp"`
	Answers   []AnswerResponse `json:"answers"`
}

// JournalEntryPayload is a client-supplied past entry for question
// generation. It never touches storage.
type JournalEntryPayload struct {
	TimeBlock string         `json:"time_block"`
	Timestamp time.Time      `json:"timestamp"`
	Answers   []AnswerCreate `json:"answers"`
}

type GoalCreate struct {
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description"`
	Category        string `json:"category" validate:"omitempty,oneof=health productivity habits personal_development relationships career finance other"`
	TargetFrequency string `json:"target_frequency"`
}

// GoalUpdate carries patch semantics: nil fields are left untouched.
type GoalUpdate struct {
	Title           *string `json:"title" validate:"omitempty,max=200"`
	Description     *string `json:"description"`
	Category        *string `json:"category" validate:"omitempty,oneof=health productivity habits personal_development relationships career finance other"`
	Status          *string `json:"status" validate:"omitempty,oneof=active paused completed archived"`
	TargetFrequency *string `json:"target_frequency"`
}

type GoalResponse struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	Status          string    `json:"status"`
	TargetFrequency string    `json:"target_frequency"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ProgressCreate struct {
	Date           *time.Time `json:"date"`
	Note           string     `json:"note"`
	Rating         *int       `json:"rating" validate:"omitempty,min=1,max=5"`
	JournalEntryID *string    `json:"journal_entry_id"`
}

// EntryProgressItem links a progress note to a goal from within a journal
// entry context.
type EntryProgressItem struct {
	GoalID string     `json:"goal_id" validate:"required"`
	Date   *time.Time `json:"date"`
	Note   string     `json:"note"`
	Rating *int       `json:"rating" validate:"omitempty,min=1,max=5"`
}

type ProgressResponse struct {
	ID             string    `json:"id"`
	GoalID         string    `json:"goal_id"`
	JournalEntryID *string   `json:"journal_entry_id,omitempty"`
	Date           time.Time `json:"date"`
	Note           string    `json:"note"`
	Rating         *int      `json:"rating,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type GenerateQuestionsRequest struct {
	PastEntries []JournalEntryPayload `json:"past_entries"`
	TimeBlock   string                `json:"time_block" validate:"required"`
}

type InsightsResponse struct {
	Insights string `json:"insights"`
}

type QuestionsResponse struct {
	Questions []string `json:"questions"`
}

type SummaryResponse struct {
	SummaryInsights string `json:"summary_insights"`
}

// GoalProgressSummary is the per-goal slice of the analytics response.
type GoalProgressSummary struct {
	GoalID              string   `json:"goal_id"`
	Title               string   `json:"title"`
	Category            string   `json:"category"`
	TargetFrequency     string   `json:"target_frequency"`
	RecentProgressCount int      `json:"recent_progress_count"`
	AverageRating       *float64 `json:"average_rating,omitempty"`
}

type GoalAnalyticsResponse struct {
	TotalActiveGoals int                   `json:"total_active_goals"`
	ByCategory       map[string]int        `json:"by_category"`
	ByFrequency      map[string]int        `json:"by_frequency"`
	Goals            []GoalProgressSummary `json:"goals"`
}

func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

func NewJournalEntryResponse(e *model.JournalEntry) JournalEntryResponse {
	answers := make([]AnswerResponse, 0, len(e.Answers))
	for _, a := range e.Answers {
		answers = append(answers, AnswerResponse{
			ID:       a.ID,
			Question: a.Question,
			Content:  a.Content,
		})
	}

	return JournalEntryResponse{
		ID:        e.ID,
		OwnerID:   e.OwnerID,
		TimeBlock: e.TimeBlock,
		Timestamp: e.Timestamp,
		Answers:   answers,
	}
}

func NewJournalEntryResponses(entries []*model.JournalEntry) []JournalEntryResponse {
	out := make([]JournalEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewJournalEntryResponse(e))
	}
	return out
}

func NewGoalResponse(g *model.Goal) GoalResponse {
	return GoalResponse{
		ID:              g.ID,
		UserID:          g.UserID,
		Title:           g.Title,
		Description:     g.Description,
		Category:        g.Category,
		Status:          g.Status,
		TargetFrequency: g.TargetFrequency,
		IsActive:        g.IsActive,
		CreatedAt:       g.CreatedAt,
		UpdatedAt:       g.UpdatedAt,
	}
}

func NewGoalResponses(goals []*model.Goal) []GoalResponse {
	out := make([]GoalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, NewGoalResponse(g))
	}
	return out
}

func NewProgressResponse(p *model.GoalProgress) ProgressResponse {
	return ProgressResponse{
		ID:             p.ID,
		GoalID:         p.GoalID,
		JournalEntryID: p.JournalEntryID,
		Date:           p.Date,
		Note:           p.Note,
		Rating:         p.Rating,
		CreatedAt:      p.CreatedAt,
	}
}

func NewProgressResponses(rows []*model.GoalProgress) []ProgressResponse {
	out := make([]ProgressResponse, 0, len(rows))
	for _, p := range rows {
		out = append(out, NewProgressResponse(p))
	}
	return out
}
