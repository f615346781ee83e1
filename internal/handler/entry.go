package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/daybookhq/daybook/internal/ctxkeys"
	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/repository"
	"github.com/daybookhq/daybook/internal/schema"
	"github.com/daybookhq/daybook/internal/service"
)

type EntryHandler struct {
	journalService *service.JournalService
	insightService *service.InsightService
	goalService    *service.GoalService
}

func NewEntryHandler(journalService *service.JournalService, insightService *service.InsightService, goalService *service.GoalService) *EntryHandler {
	return &EntryHandler{
		journalService: journalService,
		insightService: insightService,
		goalService:    goalService,
	}
}

// Create handles POST /journal-entries/.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req schema.JournalEntryCreate
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	err = schema.Validate(req)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	entry, err := h.journalService.Create(user.ID, req.TimeBlock, toAnswers(req.Answers))
	if err != nil {
		slog.Error("failed to create journal entry", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "failed to create journal entry")
		return
	}

	respondJSON(w, http.StatusOK, schema.NewJournalEntryResponse(entry))
}

// List handles GET /journal-entries/.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	entries, err := h.journalService.Entries(user.ID)
	if err != nil {
		slog.Error("failed to list journal entries", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "failed to list journal entries")
		return
	}

	respondJSON(w, http.StatusOK, schema.NewJournalEntryResponses(entries))
}

// Get handles GET /journal-entries/{id}.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry := h.ownedEntry(w, r)
	if entry == nil {
		return
	}

	respondJSON(w, http.StatusOK, schema.NewJournalEntryResponse(entry))
}

// Update handles PUT /journal-entries/{id}: a full replace of time block
// and answer set, never a merge.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	entry := h.ownedEntry(w, r)
	if entry == nil {
		return
	}

	var req schema.JournalEntryCreate
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	err = schema.Validate(req)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	updated, err := h.journalService.Update(entry, req.TimeBlock, toAnswers(req.Answers))
	if err != nil {
		slog.Error("failed to update journal entry", "error", err, "entry_id", entry.ID)
		respondError(w, http.StatusInternalServerError, "failed to update journal entry")
		return
	}

	respondJSON(w, http.StatusOK, schema.NewJournalEntryResponse(updated))
}

// Insights handles GET /journal-entries/{id}/insights. Remote-model
// failures surface as fallback text, never as an error status.
func (h *EntryHandler) Insights(w http.ResponseWriter, r *http.Request) {
	entry := h.ownedEntry(w, r)
	if entry == nil {
		return
	}

	insights := h.insightService.EntryInsights(r.Context(), entry)
	respondJSON(w, http.StatusOK, schema.InsightsResponse{Insights: insights})
}

// GenerateQuestions handles POST /generate-questions/. Past entries are
// client-supplied; the caller's active goals are loaded to tailor the
// questions.
func (h *EntryHandler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req schema.GenerateQuestionsRequest
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	err = schema.Validate(req)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	goals, err := h.goalService.ActiveGoals(user.ID)
	if err != nil {
		slog.Error("failed to load goals for question generation", "error", err, "user_id", user.ID)
		goals = nil // questions still work without goal context
	}

	pastEntries := make([]*model.JournalEntry, 0, len(req.PastEntries))
	for _, p := range req.PastEntries {
		pastEntries = append(pastEntries, &model.JournalEntry{
			TimeBlock: p.TimeBlock,
			Timestamp: p.Timestamp,
			Answers:   toAnswers(p.Answers),
		})
	}

	questions := h.insightService.AdaptiveQuestions(r.Context(), pastEntries, req.TimeBlock, goals)
	respondJSON(w, http.StatusOK, schema.QuestionsResponse{Questions: questions})
}

// Summary handles GET /journal-entries/insights/summary?time_range=daily|weekly|monthly.
func (h *EntryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	timeRange := r.URL.Query().Get("time_range")
	if timeRange == "" {
		timeRange = "weekly"
	}

	summary, err := h.insightService.SummaryInsights(r.Context(), user.ID, timeRange)
	if errors.Is(err, service.ErrInvalidTimeRange) {
		respondError(w, http.StatusBadRequest, "invalid time_range, must be daily, weekly, or monthly")
		return
	}
	if err != nil {
		slog.Error("failed to build summary insights", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "failed to build summary insights")
		return
	}

	respondJSON(w, http.StatusOK, schema.SummaryResponse{SummaryInsights: summary})
}

// LinkGoalProgress handles POST /journal-entries/{id}/goal-progress:
// records progress rows against the entry. Items referencing goals the
// caller does not own are skipped silently.
func (h *EntryHandler) LinkGoalProgress(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	entry := h.ownedEntry(w, r)
	if entry == nil {
		return
	}

	var items []schema.EntryProgressItem
	err := decodeJSON(r, &items)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	created := []schema.ProgressResponse{}
	for _, item := range items {
		err = schema.Validate(item)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		goal, err := h.goalService.Goal(item.GoalID)
		if errors.Is(err, repository.ErrGoalNotFound) {
			continue
		}
		if err != nil {
			slog.Error("failed to load goal for progress link", "error", err, "goal_id", item.GoalID)
			respondError(w, http.StatusInternalServerError, "failed to record goal progress")
			return
		}
		if goal.UserID != user.ID {
			// Not the caller's goal: skip, do not reveal its existence
			continue
		}

		progress, err := h.goalService.CreateProgress(goal, item.Date, item.Note, item.Rating, &entry.ID)
		if err != nil {
			slog.Error("failed to create goal progress", "error", err, "goal_id", goal.ID)
			respondError(w, http.StatusInternalServerError, "failed to record goal progress")
			return
		}

		created = append(created, schema.NewProgressResponse(progress))
	}

	respondJSON(w, http.StatusOK, created)
}

// ownedEntry loads the path entry and enforces the ownership rule: absent
// is 404, someone else's is 403. Returns nil after writing the error.
func (h *EntryHandler) ownedEntry(w http.ResponseWriter, r *http.Request) *model.JournalEntry {
	user := ctxkeys.User(r.Context())
	entryID := r.PathValue("id")

	entry, err := h.journalService.Entry(entryID)
	if errors.Is(err, repository.ErrEntryNotFound) {
		respondError(w, http.StatusNotFound, "journal entry not found")
		return nil
	}
	if err != nil {
		slog.Error("failed to load journal entry", "error", err, "entry_id", entryID)
		respondError(w, http.StatusInternalServerError, "failed to load journal entry")
		return nil
	}

	if entry.OwnerID != user.ID {
		respondError(w, http.StatusForbidden, "not authorized to access this entry")
		return nil
	}

	return entry
}

func toAnswers(in []schema.AnswerCreate) []*model.Answer {
	answers := make([]*model.Answer, 0, len(in))
	for _, a := range in {
		answers = append(answers, &model.Answer{
			Question: a.Question,
			Content:  a.Content,
		})
	}
	return answers
}
