package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/daybookhq/daybook/internal/model"
	"github.com/daybookhq/daybook/internal/repository"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time_range, must be daily, weekly, or monthly")
)

const (
	insightsFallback = "Could not generate insights at this time."
	summaryFallback  = "Could not generate summary insights at this time."

	maxQuestions = 5
	minQuestions = 3
)

// fallbackQuestions are served when the model is unavailable or returns
// unusable output, keyed by time block.
var fallbackQuestions = map[string][]string{
	"Morning": {
		"What is one small, actionable step you will take today to move closer to a key habit or goal?",
		"How will you ensure discipline in your most important task today?",
		"What positive intention are you setting for yourself this morning?",
	},
	"Lunch": {
		"What is one success, no matter how small, you've achieved so far today?",
		"How have you demonstrated discipline or focus in your work this morning?",
		"What challenge have you faced, and how did you approach it?",
	},
	"Evening": {
		"What specific actions did you take today that align with your long-term goals or habits?",
		"What was your biggest win or moment of discipline today, and why?",
		"What are you grateful for or proud of from today's efforts?",
		"What is one thing you will do differently tomorrow to improve your discipline or motivation?",
	},
}

var defaultFallbackQuestions = []string{"How was your day?"}

// goalQuestionTemplates produce goal-aware fallback questions, keyed by
// goal category. The %s placeholder takes the goal title.
var goalQuestionTemplates = map[string]string{
	model.GoalCategoryHealth:       "What did you do today to support your health goal \"%s\"?",
	model.GoalCategoryProductivity: "What was your most focused stretch of work toward \"%s\" today?",
	model.GoalCategoryHabits:       "Did you keep up \"%s\" today? What helped or got in the way?",
	model.GoalCategoryPersonalDev:  "What did you learn today that moves \"%s\" forward?",
	model.GoalCategoryRelations:    "How did you invest in \"%s\" today?",
	model.GoalCategoryCareer:       "What step, however small, did you take toward \"%s\" today?",
	model.GoalCategoryFinance:      "What money decision did you make today that affects \"%s\"?",
	model.GoalCategoryOther:        "What progress did you make on \"%s\" today?",
}

// interrogatives mark a line as question-like even without a trailing '?'.
var interrogatives = []string{"what", "how", "why", "when", "where", "who", "which", "did you", "do you", "have you", "are you", "will you"}

// generator is the remote generative model, an untrusted black box.
type generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

type InsightService struct {
	model           generator
	entryRepository repository.EntryRepository
}

func NewInsightService(model generator, entryRepository repository.EntryRepository) *InsightService {
	return &InsightService{
		model:           model,
		entryRepository: entryRepository,
	}
}

// EntryInsights returns the model's analysis of a single entry, or a fixed
// user-safe fallback. Remote failures never propagate to the caller.
func (s *InsightService) EntryInsights(ctx context.Context, entry *model.JournalEntry) string {
	var b strings.Builder
	b.WriteString("Analyze the following journal entry and provide insights and actionable suggestions.\n\n")
	fmt.Fprintf(&b, "**Time Block:** %s\n", entry.TimeBlock)
	fmt.Fprintf(&b, "**Timestamp:** %s\n\n", entry.Timestamp.Format(time.RFC3339))
	b.WriteString("**Answers:**\n")
	for _, answer := range entry.Answers {
		fmt.Fprintf(&b, "- %s: %s\n", answer.Question, answer.Content)
	}
	b.WriteString("\n**Insights:**\n")
	b.WriteString("Please provide a brief analysis of this entry, identifying any notable patterns, sentiments, or themes.\n\n")
	b.WriteString("**Actionable Suggestions:**\n")
	b.WriteString("Based on the entry, suggest 1-2 simple, actionable steps the user could take to improve their well-being, productivity, or alignment with their goals.")

	text, err := s.model.GenerateContent(ctx, b.String())
	if err != nil {
		slog.Warn("entry insights generation failed, serving fallback", "error", err, "entry_id", entry.ID)
		return insightsFallback
	}

	return text
}

// AdaptiveQuestions asks the model for 3-5 new questions tailored to past
// entries and the caller's goals. Output is parsed line by line; anything
// that does not look like a question is dropped. If the model fails or too
// few questions survive, a fixed per-time-block set is served, augmented
// with up to two goal-specific questions.
func (s *InsightService) AdaptiveQuestions(ctx context.Context, pastEntries []*model.JournalEntry, timeBlock string, goals []*model.Goal) []string {
	prompt := buildQuestionsPrompt(pastEntries, timeBlock, goals)

	text, err := s.model.GenerateContent(ctx, prompt)
	if err != nil {
		slog.Warn("question generation failed, serving fallback", "error", err, "time_block", timeBlock)
		return s.fallbackFor(timeBlock, goals)
	}

	questions := parseQuestions(text)
	if len(questions) < minQuestions {
		slog.Warn("question generation returned too few usable questions, serving fallback",
			"time_block", timeBlock, "usable", len(questions))
		return s.fallbackFor(timeBlock, goals)
	}

	return questions
}

// SummaryInsights resolves the time range to a window ending now, loads the
// caller's entries in that window, and summarizes them. Zero entries short-
// circuits without a remote call.
func (s *InsightService) SummaryInsights(ctx context.Context, ownerID, timeRange string) (string, error) {
	window, err := rangeWindow(timeRange)
	if err != nil {
		return "", err
	}

	end := time.Now()
	start := end.Add(-window)

	entries, err := s.entryRepository.ByOwnerInRange(ownerID, start, end)
	if err != nil {
		return "", fmt.Errorf("failed to load entries: %w", err)
	}

	if len(entries) == 0 {
		return fmt.Sprintf("No journal entries found for the %s period.", timeRange), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following journal entries from the past %s for a user focused on habit building, discipline, recognizing successes, and motivation. ", timeRange)
	b.WriteString("Provide a concise summary of trends, successes, challenges, and areas for improvement. ")
	b.WriteString("Then, offer 2-3 actionable suggestions for building better habits, discipline, and motivation.\n\n")
	fmt.Fprintf(&b, "**Journal Entries (%s):**\n", timeRange)
	for _, entry := range entries {
		fmt.Fprintf(&b, "\n--- Entry from %s (%s) ---\n", entry.Timestamp.Format("2006-01-02 15:04"), entry.TimeBlock)
		for _, answer := range entry.Answers {
			fmt.Fprintf(&b, "- %s: %s\n", answer.Question, answer.Content)
		}
	}
	b.WriteString("\n**Summary of Trends, Successes, Challenges, and Areas for Improvement:**\n\n")
	b.WriteString("**Actionable Suggestions for Habits, Discipline, and Motivation:**\n")

	text, err := s.model.GenerateContent(ctx, b.String())
	if err != nil {
		slog.Warn("summary generation failed, serving fallback", "error", err, "time_range", timeRange)
		return summaryFallback, nil
	}

	return text, nil
}

func rangeWindow(timeRange string) (time.Duration, error) {
	switch timeRange {
	case "daily":
		return 24 * time.Hour, nil
	case "weekly":
		return 7 * 24 * time.Hour, nil
	case "monthly":
		return 30 * 24 * time.Hour, nil
	}
	return 0, ErrInvalidTimeRange
}

func buildQuestionsPrompt(pastEntries []*model.JournalEntry, timeBlock string, goals []*model.Goal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following past journal entries and long-term goals for the '%s' time block, ", timeBlock)
	b.WriteString("generate 3-5 new, relevant, and engaging questions for the user to answer. ")
	b.WriteString("The questions should encourage reflection and progress, and ideally build upon themes or challenges identified in previous entries. ")
	fmt.Fprintf(&b, "If no specific themes are apparent, generate general but insightful questions for the '%s' time block.\n\n", timeBlock)

	b.WriteString("**Goals:**\n")
	if len(goals) == 0 {
		b.WriteString("No goals defined.\n")
	}
	for _, goal := range goals {
		fmt.Fprintf(&b, "- %s (%s, target: %s)", goal.Title, goal.Category, goal.TargetFrequency)
		if goal.Description != "" {
			fmt.Fprintf(&b, ": %s", goal.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n**Past Entries:**\n")
	if len(pastEntries) == 0 {
		b.WriteString("No past entries available.\n")
	}
	for _, entry := range pastEntries {
		fmt.Fprintf(&b, "\n- Entry from %s:\n", entry.Timestamp.Format("2006-01-02"))
		for _, answer := range entry.Answers {
			fmt.Fprintf(&b, "  - %s: %s\n", answer.Question, answer.Content)
		}
	}

	b.WriteString("\n**New Questions (list only the questions, one per line):**\n")
	return b.String()
}

// parseQuestions splits model output into discrete questions: one per line,
// bullets and numbering stripped, non-question lines dropped, at most
// maxQuestions kept.
func parseQuestions(text string) []string {
	var questions []string
	for _, line := range strings.Split(text, "\n") {
		line = stripListMarker(strings.TrimSpace(line))
		if line == "" || !looksLikeQuestion(line) {
			continue
		}
		questions = append(questions, line)
		if len(questions) == maxQuestions {
			break
		}
	}
	return questions
}

func stripListMarker(line string) string {
	line = strings.TrimLeft(line, "-*• \t")
	// Numbered lists: "1. ", "2) "
	for i, r := range line {
		if r >= '0' && r <= '9' {
			continue
		}
		if (r == '.' || r == ')') && i > 0 {
			return strings.TrimSpace(line[i+1:])
		}
		break
	}
	return strings.TrimSpace(line)
}

func looksLikeQuestion(line string) bool {
	if strings.HasSuffix(line, "?") {
		return true
	}
	lower := strings.ToLower(line)
	for _, word := range interrogatives {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// fallbackFor combines the fixed per-time-block questions with up to two
// goal-specific templated questions.
func (s *InsightService) fallbackFor(timeBlock string, goals []*model.Goal) []string {
	base, ok := fallbackQuestions[timeBlock]
	if !ok {
		base = defaultFallbackQuestions
	}

	questions := make([]string, len(base))
	copy(questions, base)

	added := 0
	for _, goal := range goals {
		if added == 2 {
			break
		}
		tmpl, ok := goalQuestionTemplates[goal.Category]
		if !ok {
			continue
		}
		questions = append(questions, fmt.Sprintf(tmpl, goal.Title))
		added++
	}

	return questions
}
