package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitlog/internal/db"
	"github.com/habitlog/internal/handler"
	"github.com/habitlog/internal/logger"
	"github.com/habitlog/internal/router"
	"gorm.io/driver/sqlite"
	gormlogger "gorm.io/gorm/logger"
)

type e2eSuite struct {
	handler http.Handler
	client  httpClient
	now     time.Time
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type localClient struct {
	handler http.Handler
}

func (c *localClient) Do(req *http.Request) (*http.Response, error) {
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return w.Result(), nil
}

type habitResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	Logs      []struct {
		ID   uint   `json:"id"`
		Date string `json:"date"`
		Done bool   `json:"done"`
	} `json:"logs"`
}

type statsResponse struct {
	CurrentStreak int `json:"current_streak"`
	Last7         []struct {
		Date string `json:"date"`
		Done bool   `json:"done"`
	} `json:"last7"`
	Rate7  float64 `json:"rate7"`
	Rate30 float64 `json:"rate30"`
}

func TestE2E_HabitLifecycle(t *testing.T) {
	suite := newE2ESuite(t)

	t.Run("toggle today twice", suite.testToggleTodayTwice)
	t.Run("three day streak", suite.testThreeDayStreak)
	t.Run("crud", suite.testCRUD)
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.Open(sqlite.Open("file:e2e?mode=memory&cache=shared&_foreign_keys=on"), gormlogger.Default.LogMode(gormlogger.Silent))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	db.DB = gdb
	t.Cleanup(func() { db.Close(gdb) })

	now := time.Date(2025, 3, 15, 21, 30, 0, 0, time.UTC)
	h := router.SetupRouter(handler.Settings{
		Location: time.UTC,
		Now:      func() time.Time { return now },
		Logger:   logger.Discard(),
	})

	return &e2eSuite{handler: h, client: &localClient{handler: h}, now: now}
}

func (s *e2eSuite) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp.StatusCode, data
}

func (s *e2eSuite) createHabit(t *testing.T, name string) habitResponse {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/habits", map[string]any{"name": name})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 creating habit, got %d: %s", status, body)
	}
	var habit habitResponse
	if err := json.Unmarshal(body, &habit); err != nil {
		t.Fatalf("failed to decode habit: %v", err)
	}
	return habit
}

func (s *e2eSuite) stats(t *testing.T, id uint) statsResponse {
	t.Helper()
	status, body := s.do(t, http.MethodGet, fmt.Sprintf("/api/habits/%d/stats", id), nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for stats, got %d: %s", status, body)
	}
	var stats statsResponse
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	return stats
}

func (s *e2eSuite) testToggleTodayTwice(t *testing.T) {
	habit := s.createHabit(t, "Read")
	togglePath := fmt.Sprintf("/api/habits/%d/toggle", habit.ID)

	status, body := s.do(t, http.MethodPost, togglePath, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on first toggle, got %d: %s", status, body)
	}
	var entry struct {
		ID   uint   `json:"id"`
		Date string `json:"date"`
		Done bool   `json:"done"`
	}
	if err := json.Unmarshal(body, &entry); err != nil {
		t.Fatalf("failed to decode entry: %v", err)
	}
	if entry.ID == 0 || entry.Date != "2025-03-15" || !entry.Done {
		t.Fatalf("unexpected entry: %s", body)
	}

	status, body = s.do(t, http.MethodPost, togglePath, map[string]any{})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on second toggle, got %d", status)
	}
	if string(body) != `{"toggled":"undone","date":"2025-03-15"}` {
		t.Fatalf("unexpected undone payload: %s", body)
	}

	stats := s.stats(t, habit.ID)
	if stats.CurrentStreak != 0 || stats.Rate7 != 0 || stats.Rate30 != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
	if len(stats.Last7) != 7 || stats.Last7[6].Date != "2025-03-15" {
		t.Fatalf("unexpected last7: %+v", stats.Last7)
	}
	for _, day := range stats.Last7 {
		if day.Done {
			t.Fatalf("expected all days undone, got %+v", stats.Last7)
		}
	}
}

func (s *e2eSuite) testThreeDayStreak(t *testing.T) {
	habit := s.createHabit(t, "Run")
	togglePath := fmt.Sprintf("/api/habits/%d/toggle", habit.ID)

	for i := 0; i < 3; i++ {
		date := s.now.AddDate(0, 0, -i).Format("2006-01-02")
		if status, body := s.do(t, http.MethodPost, togglePath, map[string]any{"date": date}); status != http.StatusOK {
			t.Fatalf("toggle %s failed: %d %s", date, status, body)
		}
	}

	stats := s.stats(t, habit.ID)
	if stats.CurrentStreak != 3 {
		t.Fatalf("expected streak 3, got %d", stats.CurrentStreak)
	}
	if stats.Rate7 != 0.43 {
		t.Fatalf("expected rate7 0.43, got %v", stats.Rate7)
	}
	if stats.Rate30 != 0.1 {
		t.Fatalf("expected rate30 0.1, got %v", stats.Rate30)
	}

	if status, _ := s.do(t, http.MethodPost, togglePath, map[string]any{"date": "2025/03/15"}); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %d", status)
	}
	if status, _ := s.do(t, http.MethodGet, "/api/habits/999/stats", nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown habit, got %d", status)
	}
}

func (s *e2eSuite) testCRUD(t *testing.T) {
	habit := s.createHabit(t, "Stretch")

	status, body := s.do(t, http.MethodPost, fmt.Sprintf("/api/habits/%d/toggle", habit.ID), map[string]any{"date": "2025-03-10"})
	if status != http.StatusOK {
		t.Fatalf("toggle failed: %d %s", status, body)
	}
	if status, body = s.do(t, http.MethodPost, fmt.Sprintf("/api/habits/%d/toggle", habit.ID), map[string]any{"date": "2025-03-12"}); status != http.StatusOK {
		t.Fatalf("toggle failed: %d %s", status, body)
	}

	status, body = s.do(t, http.MethodPatch, fmt.Sprintf("/api/habits/%d", habit.ID), map[string]any{"name": "Stretch daily"})
	if status != http.StatusOK {
		t.Fatalf("patch failed: %d %s", status, body)
	}

	status, body = s.do(t, http.MethodGet, fmt.Sprintf("/api/habits/%d", habit.ID), nil)
	if status != http.StatusOK {
		t.Fatalf("get failed: %d %s", status, body)
	}
	var loaded habitResponse
	if err := json.Unmarshal(body, &loaded); err != nil {
		t.Fatalf("failed to decode habit: %v", err)
	}
	if loaded.Name != "Stretch daily" || loaded.CreatedAt != habit.CreatedAt {
		t.Fatalf("unexpected habit after patch: %+v", loaded)
	}
	if len(loaded.Logs) != 2 || loaded.Logs[0].Date != "2025-03-12" {
		t.Fatalf("expected logs ordered by date desc, got %+v", loaded.Logs)
	}

	status, body = s.do(t, http.MethodGet, "/api/habits", nil)
	if status != http.StatusOK {
		t.Fatalf("list failed: %d", status)
	}
	var list []habitResponse
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(list) == 0 || list[0].ID != habit.ID {
		t.Fatalf("expected newest habit first, got %+v", list)
	}

	if status, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/habits/%d", habit.ID), nil); status != http.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d", status)
	}
	if status, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/habits/%d", habit.ID), nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
}
