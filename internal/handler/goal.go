package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/daybookhq/daybook/internal/ctxkeys"
	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/repository"
	"github.com/daybookhq/daybook/internal/schema"
	"github.com/daybookhq/daybook/internal/service"
)

type GoalHandler struct {
	goalService    *service.GoalService
	journalService *service.JournalService
}

func NewGoalHandler(goalService *service.GoalService, journalService *service.JournalService) *GoalHandler {
	return &GoalHandler{
		goalService:    goalService,
		journalService: journalService,
	}
}

// Create handles POST /goals/.
func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req schema.GoalCreate
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

	goal, err := h.goalService.Create(user.ID, req.Title, req.Description, req.Category, req.TargetFrequency)
	if err != nil {
		slog.Error("failed to create goal", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "failed to create goal")
		return
	}

	respondJSON(w, http.StatusOK, schema.NewGoalResponse(goal))
}

// List handles GET /goals/?include_inactive=true.
func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	goals, err := h.goalService.Goals(user.ID, includeInactive)
	if err != nil {
		slog.Error("failed to list goals", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "failed to list goals")
		return
	}

	respondJSON(w, http.StatusOK, schema.NewGoalResponses(goals))
}

// Analytics handles GET /goals/analytics.
func (h *GoalHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	analytics, err := h.goalService.Analytics(user.ID)
	if err != nil {
		slog.Error("failed to build goal analytics", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "failed to build goal analytics")
		return
	}

	respondJSON(w, http.StatusOK, analytics)
}

// Get handles GET /goals/{id}.
func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	goal := h.ownedGoal(w, r)
	if goal == nil {
		return
	}

	respondJSON(w, http.StatusOK, schema.NewGoalResponse(goal))
}

// Update handles PUT /goals/{id}. Fields absent from the body are left
// untouched; status changes are validated against the goal state machine.
func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	goal := h.ownedGoal(w, r)
	if goal == nil {
		return
	}

	var req schema.GoalUpdate
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

	updated, err := h.goalService.Update(goal, service.GoalPatch{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Status:          req.Status,
		TargetFrequency: req.TargetFrequency,
	})
	if errors.Is(err, service.ErrInvalidTransition) {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		slog.Error("failed to update goal", "error", err, "goal_id", goal.ID)
		respondError(w, http.StatusInternalServerError, "failed to update goal")
		return
	}

	respondJSON(w, http.StatusOK, schema.NewGoalResponse(updated))
}

// Delete handles DELETE /goals/{id}: archives the goal rather than
// removing the row, so progress history survives.
func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	goal := h.ownedGoal(w, r)
	if goal == nil {
		return
	}

	archived, err := h.goalService.Delete(goal)
	if err != nil {
		slog.Error("failed to archive goal", "error", err, "goal_id", goal.ID)
		respondError(w, http.StatusInternalServerError, "failed to delete goal")
		return
	}

	respondJSON(w, http.StatusOK, schema.NewGoalResponse(archived))
}

// CreateProgress handles POST /goals/{id}/progress. An optional
// journal_entry_id ties the note to an entry; it must belong to the
// caller.
func (h *GoalHandler) CreateProgress(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	goal := h.ownedGoal(w, r)
	if goal == nil {
		return
	}

	var req schema.ProgressCreate
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

	if req.JournalEntryID != nil {
		entry, err := h.journalService.Entry(*req.JournalEntryID)
		if errors.Is(err, repository.ErrEntryNotFound) {
			respondError(w, http.StatusNotFound, "journal entry not found")
			return
		}
		if err != nil {
			slog.Error("failed to load journal entry for progress", "error", err, "entry_id", *req.JournalEntryID)
			respondError(w, http.StatusInternalServerError, "failed to record goal progress")
			return
		}
		if entry.OwnerID != user.ID {
			respondError(w, http.StatusForbidden, "not authorized to access this entry")
			return
		}
	}

	progress, err := h.goalService.CreateProgress(goal, req.Date, req.Note, req.Rating, req.JournalEntryID)
	if err != nil {
		slog.Error("failed to create goal progress", "error", err, "goal_id", goal.ID)
		respondError(w, http.StatusInternalServerError, "failed to record goal progress")
		return
	}

	respondJSON(w, http.StatusOK, schema.NewProgressResponse(progress))
}

// ListProgress handles GET /goals/{id}/progress?limit=30, newest first.
func (h *GoalHandler) ListProgress(w http.ResponseWriter, r *http.Request) {
	goal := h.ownedGoal(w, r)
	if goal == nil {
		return
	}

	limit := repository.DefaultProgressLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := h.goalService.Progress(goal.ID, limit)
	if err != nil {
		slog.Error("failed to list goal progress", "error", err, "goal_id", goal.ID)
		respondError(w, http.StatusInternalServerError, "failed to list goal progress")
		return
	}

	respondJSON(w, http.StatusOK, schema.NewProgressResponses(rows))
}

// ownedGoal loads the path goal and enforces the ownership rule: absent
// is 404, someone else's is 403. Returns nil after writing the error.
func (h *GoalHandler) ownedGoal(w http.ResponseWriter, r *http.Request) *model.Goal {
	user := ctxkeys.User(r.Context())
	goalID := r.PathValue("id")

	goal, err := h.goalService.Goal(goalID)
	if errors.Is(err, repository.ErrGoalNotFound) {
		respondError(w, http.StatusNotFound, "goal not found")
		return nil
	}
	if err != nil {
		slog.Error("failed to load goal", "error", err, "goal_id", goalID)
		respondError(w, http.StatusInternalServerError, "failed to load goal")
		return nil
	}

	if goal.UserID != user.ID {
		respondError(w, http.StatusForbidden, "not authorized to access this goal")
		return nil
	}

	return goal
}
