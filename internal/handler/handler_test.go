package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/daybookhq/daybook/internal/app"
	"github.com/daybookhq/daybook/internal/config"
	"github.com/daybookhq/daybook/internal/db"
	"github.com/daybookhq/daybook/internal/gemini"
	"github.com/daybookhq/daybook/internal/repository"
	"github.com/daybookhq/daybook/internal/routes"
	"github.com/daybookhq/daybook/internal/schema"
	"github.com/daybookhq/daybook/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGemini mimics the generateContent endpoint. Set text for the next
// responses, or fail to make every call error.
type fakeGemini struct {
	srv  *httptest.Server
	text string
	fail bool
}

func newFakeGemini(t *testing.T) *fakeGemini {
	t.Helper()

	f := &fakeGemini{text: "Generated insight text."}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.fail {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"backend unavailable"}}`)
			return
		}

		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": f.text}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(f.srv.Close)

	return f
}

func newTestServer(t *testing.T) (http.Handler, *fakeGemini) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Init("sqlite", path+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))

	userRepo := repository.NewUserRepository(database)
	entryRepo := repository.NewEntryRepository(database)
	goalRepo := repository.NewGoalRepository(database)
	progressRepo := repository.NewProgressRepository(database)

	fake := newFakeGemini(t)
	model := gemini.New("test-key", "gemini-pro", fake.srv.URL, 2*time.Second)

	a := &app.App{
		Cfg: &config.Config{
			AppName:        "Daybook",
			AppEnv:         "development",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		DB:             database,
		AuthService:    service.NewAuthService(userRepo, "test-secret", 30*time.Minute),
		JournalService: service.NewJournalService(entryRepo),
		GoalService:    service.NewGoalService(goalRepo, progressRepo),
		InsightService: service.NewInsightService(model, entryRepo),
	}

	return routes.SetupRoutes(a), fake
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func registerAndLogin(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/users/", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, "register: %s", rec.Body.String())

	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	tokenRec := httptest.NewRecorder()
	h.ServeHTTP(tokenRec, req)
	require.Equal(t, http.StatusOK, tokenRec.Code, "token: %s", tokenRec.Body.String())

	token := decodeBody[schema.TokenResponse](t, tokenRec)
	assert.Equal(t, "bearer", token.TokenType)
	return token.AccessToken
}

func createEntry(t *testing.T, h http.Handler, token, timeBlock string) schema.JournalEntryResponse {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/journal-entries/", token, map[string]any{
		"time_block": timeBlock,
		"answers": []map[string]string{
			{"question": "How do you feel?", "content": "Rested."},
			{"question": "What is your focus?", "content": "Shipping."},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[schema.JournalEntryResponse](t, rec)
}

func createGoal(t *testing.T, h http.Handler, token string, body map[string]any) schema.GoalResponse {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/goals/", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[schema.GoalResponse](t, rec)
}

func TestHealthRoot(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Backend is running"}`, rec.Body.String())
}

func TestRegister(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/users/", "", map[string]string{
		"username": "alice",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decodeBody[schema.UserResponse](t, rec)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, user.ID)
	assert.NotContains(t, rec.Body.String(), "secret123")

	t.Run("duplicate username", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/users/", "", map[string]string{
			"username": "alice",
			"password": "othersecret",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("password too short", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/users/", "", map[string]string{
			"username": "bob",
			"password": "short",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/users/", "", map[string]string{
			"username": "carol",
			"password": "secret123",
			"email":    "carol@example.com",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestToken(t *testing.T) {
	h, _ := newTestServer(t)
	registerAndLogin(t, h, "alice", "secret123")

	t.Run("wrong password", func(t *testing.T) {
		form := url.Values{"username": {"alice"}, "password": {"wrongpass"}}
		req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("missing fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader("username=alice"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestMe(t *testing.T) {
	h, _ := newTestServer(t)
	token := registerAndLogin(t, h, "alice", "secret123")

	rec := doJSON(t, h, http.MethodGet, "/users/me/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody[schema.UserResponse](t, rec)
	assert.Equal(t, "alice", user.Username)

	t.Run("no token", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/users/me/", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"could not validate credentials"}`, rec.Body.String())
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/users/me/", "not.a.token", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"could not validate credentials"}`, rec.Body.String())
	})
}

func TestJournalEntryLifecycle(t *testing.T) {
	h, _ := newTestServer(t)
	token := registerAndLogin(t, h, "alice", "secret123")

	entry := createEntry(t, h, token, "Morning")
	require.Len(t, entry.Answers, 2)
	assert.Equal(t, "How do you feel?", entry.Answers[0].Question)
	assert.Equal(t, "What is your focus?", entry.Answers[1].Question)

	t.Run("list", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/journal-entries/", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		entries := decodeBody[[]schema.JournalEntryResponse](t, rec)
		require.Len(t, entries, 1)
		assert.Equal(t, entry.ID, entries[0].ID)
	})

	t.Run("get", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/journal-entries/"+entry.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeBody[schema.JournalEntryResponse](t, rec)
		assert.Equal(t, "Morning", got.TimeBlock)
	})

	t.Run("get missing", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/journal-entries/no-such-id", token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update replaces answers", func(t *testing.T) {
		time.Sleep(10 * time.Millisecond)
		rec := doJSON(t, h, http.MethodPut, "/journal-entries/"+entry.ID, token, map[string]any{
			"time_block": "Evening",
			"answers": []map[string]string{
				{"question": "What went well?", "content": "Everything."},
			},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decodeBody[schema.JournalEntryResponse](t, rec)
		assert.Equal(t, "Evening", updated.TimeBlock)
		require.Len(t, updated.Answers, 1)
		assert.Equal(t, "What went well?", updated.Answers[0].Question)
		assert.True(t, updated.Timestamp.After(entry.Timestamp))
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		otherToken := registerAndLogin(t, h, "mallory", "secret123")

		rec := doJSON(t, h, http.MethodGet, "/journal-entries/"+entry.ID, otherToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = doJSON(t, h, http.MethodPut, "/journal-entries/"+entry.ID, otherToken, map[string]any{
			"time_block": "Evening",
			"answers":    []map[string]string{},
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestEntryInsights(t *testing.T) {
	h, fake := newTestServer(t)
	token := registerAndLogin(t, h, "alice", "secret123")
	entry := createEntry(t, h, token, "Morning")

	fake.text = "You sound focused and rested."
	rec := doJSON(t, h, http.MethodGet, "/journal-entries/"+entry.ID+"/insights", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[schema.InsightsResponse](t, rec)
	assert.Equal(t, "You sound focused and rested.", got.Insights)

	t.Run("model failure yields fallback, not error", func(t *testing.T) {
		fake.fail = true
		rec := doJSON(t, h, http.MethodGet, "/journal-entries/"+entry.ID+"/insights", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeBody[schema.InsightsResponse](t, rec)
		assert.Equal(t, "Could not generate insights at this time.", got.Insights)
	})
}

func TestGenerateQuestions(t *testing.T) {
	h, fake := newTestServer(t)
	token := registerAndLogin(t, h, "alice", "secret123")

	fake.text = "What energized you today?\nHow will you keep momentum?\nWhy did that task stall?"
	rec := doJSON(t, h, http.MethodPost, "/generate-questions/", token, map[string]any{
		"time_block":   "Morning",
		"past_entries": []any{},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[schema.QuestionsResponse](t, rec)
	require.Len(t, got.Questions, 3)
	assert.Equal(t, "What energized you today?", got.Questions[0])

	t.Run("model failure yields time block fallback", func(t *testing.T) {
		fake.fail = true
		rec := doJSON(t, h, http.MethodPost, "/generate-questions/", token, map[string]any{
			"time_block":   "Lunch",
			"past_entries": []any{},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeBody[schema.QuestionsResponse](t, rec)
		require.Len(t, got.Questions, 3)
		assert.Contains(t, got.Questions[0], "success")
	})

	t.Run("missing time block rejected", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/generate-questions/", token, map[string]any{
			"past_entries": []any{},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestSummaryInsights(t *testing.T) {
	h, fake := newTestServer(t)
	token := registerAndLogin(t, h, "alice", "secret123")

	t.Run("no entries", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/journal-entries/insights/summary", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decodeBody[schema.SummaryResponse](t, rec)
		// time_range defaults to weekly
		assert.Equal(t, "No journal entries found for the weekly period.", got.SummaryInsights)
	})

	t.Run("invalid time range", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/journal-entries/insights/summary?time_range=yearly", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("with entries", func(t *testing.T) {
		createEntry(t, h, token, "Evening")
		fake.text = "A steady week of progress."

		rec := doJSON(t, h, http.MethodGet, "/journal-entries/insights/summary?time_range=daily", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeBody[schema.SummaryResponse](t, rec)
		assert.Equal(t, "A steady week of progress.", got.SummaryInsights)
	})
}

func TestGoalLifecycle(t *testing.T) {
	h, _ := newTestServer(t)
	token := registerAndLogin(t, h, "alice", "secret123")

	goal := createGoal(t, h, token, map[string]any{"title": "Meditate"})
	assert.Equal(t, "other", goal.Category)
	assert.Equal(t, "daily", goal.TargetFrequency)
	assert.Equal(t, "active", goal.Status)
	assert.True(t, goal.IsActive)

	t.Run("invalid category rejected", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/goals/", token, map[string]any{
			"title":    "Bad",
			"category": "sports",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("patch update", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPut, "/goals/"+goal.ID, token, map[string]any{
			"status": "paused",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decodeBody[schema.GoalResponse](t, rec)
		assert.Equal(t, "paused", updated.Status)
		// Unpatched fields untouched
		assert.Equal(t, "Meditate", updated.Title)

		rec = doJSON(t, h, http.MethodPut, "/goals/"+goal.ID, token, map[string]any{
			"status": "active",
		})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("delete archives", func(t *testing.T) {
		victim := createGoal(t, h, token, map[string]any{"title": "Short lived"})

		rec := doJSON(t, h, http.MethodDelete, "/goals/"+victim.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		archived := decodeBody[schema.GoalResponse](t, rec)
		assert.Equal(t, "archived", archived.Status)
		assert.False(t, archived.IsActive)

		// Archived is terminal
		rec = doJSON(t, h, http.MethodPut, "/goals/"+victim.ID, token, map[string]any{
			"status": "active",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		// Hidden from the default listing, visible with include_inactive
		rec = doJSON(t, h, http.MethodGet, "/goals/", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		goals := decodeBody[[]schema.GoalResponse](t, rec)
		for _, g := range goals {
			assert.NotEqual(t, victim.ID, g.ID)
		}

		rec = doJSON(t, h, http.MethodGet, "/goals/?include_inactive=true", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		all := decodeBody[[]schema.GoalResponse](t, rec)
		found := false
		for _, g := range all {
			if g.ID == victim.ID {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("other user", func(t *testing.T) {
		otherToken := registerAndLogin(t, h, "mallory", "secret123")

		rec := doJSON(t, h, http.MethodGet, "/goals/"+goal.ID, otherToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = doJSON(t, h, http.MethodGet, "/goals/no-such-id", otherToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGoalProgress(t *testing.T) {
	h, _ := newTestServer(t)
	token := registerAndLogin(t, h, "alice", "secret123")
	goal := createGoal(t, h, token, map[string]any{"title": "Run 5k", "category": "health"})

	rec := doJSON(t, h, http.MethodPost, "/goals/"+goal.ID+"/progress", token, map[string]any{
		"note":   "ran 3k",
		"rating": 4,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	progress := decodeBody[schema.ProgressResponse](t, rec)
	assert.Equal(t, goal.ID, progress.GoalID)
	require.NotNil(t, progress.Rating)
	assert.Equal(t, 4, *progress.Rating)
	assert.Nil(t, progress.JournalEntryID)

	t.Run("rating out of range", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/goals/"+goal.ID+"/progress", token, map[string]any{
			"note":   "bad rating",
			"rating": 9,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("linked journal entry must be owned", func(t *testing.T) {
		otherToken := registerAndLogin(t, h, "mallory", "secret123")
		foreign := createEntry(t, h, otherToken, "Morning")

		rec := doJSON(t, h, http.MethodPost, "/goals/"+goal.ID+"/progress", token, map[string]any{
			"note":             "sneaky",
			"journal_entry_id": foreign.ID,
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("list with limit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			rec := doJSON(t, h, http.MethodPost, "/goals/"+goal.ID+"/progress", token, map[string]any{
				"note": fmt.Sprintf("session %d", i),
			})
			require.Equal(t, http.StatusOK, rec.Code)
		}

		rec := doJSON(t, h, http.MethodGet, "/goals/"+goal.ID+"/progress?limit=2", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rows := decodeBody[[]schema.ProgressResponse](t, rec)
		assert.Len(t, rows, 2)

		rec = doJSON(t, h, http.MethodGet, "/goals/"+goal.ID+"/progress?limit=0", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("history survives goal deletion", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodDelete, "/goals/"+goal.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, h, http.MethodGet, "/goals/"+goal.ID+"/progress", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rows := decodeBody[[]schema.ProgressResponse](t, rec)
		assert.NotEmpty(t, rows)
	})
}

func TestGoalAnalytics(t *testing.T) {
	h, _ := newTestServer(t)
	token := registerAndLogin(t, h, "alice", "secret123")

	health := createGoal(t, h, token, map[string]any{"title": "Run 5k", "category": "health", "target_frequency": "weekly"})
	createGoal(t, h, token, map[string]any{"title": "Read", "category": "habits"})

	rec := doJSON(t, h, http.MethodPost, "/goals/"+health.ID+"/progress", token, map[string]any{
		"note":   "ran",
		"rating": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/goals/analytics", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[schema.GoalAnalyticsResponse](t, rec)

	assert.Equal(t, 2, got.TotalActiveGoals)
	assert.Equal(t, 1, got.ByCategory["health"])
	assert.Equal(t, 1, got.ByCategory["habits"])
	assert.Equal(t, 1, got.ByFrequency["weekly"])
	require.Len(t, got.Goals, 2)
}

func TestLinkGoalProgressToEntry(t *testing.T) {
	h, _ := newTestServer(t)
	token := registerAndLogin(t, h, "alice", "secret123")
	otherToken := registerAndLogin(t, h, "mallory", "secret123")

	entry := createEntry(t, h, token, "Evening")
	owned := createGoal(t, h, token, map[string]any{"title": "Run 5k", "category": "health"})
	foreign := createGoal(t, h, otherToken, map[string]any{"title": "Not yours"})

	rec := doJSON(t, h, http.MethodPost, "/journal-entries/"+entry.ID+"/goal-progress", token, []map[string]any{
		{"goal_id": owned.ID, "note": "kept it up", "rating": 4},
		{"goal_id": foreign.ID, "note": "should be skipped"},
		{"goal_id": "no-such-goal", "note": "also skipped"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	created := decodeBody[[]schema.ProgressResponse](t, rec)
	require.Len(t, created, 1)
	assert.Equal(t, owned.ID, created[0].GoalID)
	require.NotNil(t, created[0].JournalEntryID)
	assert.Equal(t, entry.ID, *created[0].JournalEntryID)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/journal-entries/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
