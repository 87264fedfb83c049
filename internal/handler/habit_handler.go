package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitlog/internal/db"
	"github.com/habitlog/internal/service"
)

type habitPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type habitPatchPayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type togglePayload struct {
	Date *string `json:"date"`
}

type habitLogItem struct {
	ID   uint   `json:"id"`
	Date string `json:"date"`
	Done bool   `json:"done"`
}

type habitItem struct {
	ID              uint           `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	DescriptionHTML string         `json:"description_html"`
	CreatedAt       string         `json:"created_at"`
	Logs            []habitLogItem `json:"logs"`
}

type dayItem struct {
	Date string `json:"date"`
	Done bool   `json:"done"`
}

type habitStatsPayload struct {
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	Last7         []dayItem `json:"last7"`
	Rate7         float64   `json:"rate7"`
	Rate30        float64   `json:"rate30"`
}

type undonePayload struct {
	Toggled string `json:"toggled"`
	Date    string `json:"date"`
}

// APIRoot 列出可用资源
func (a *API) APIRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"habits": "/api/habits"})
}

// ListHabits 返回习惯列表，最新创建的在前
func (a *API) ListHabits(c *gin.Context) {
	habits, err := a.habits.List(c.Request.Context())
	if err != nil {
		a.handleHabitError(c, err)
		return
	}

	items := make([]habitItem, 0, len(habits))
	for _, habit := range habits {
		items = append(items, habitToPayload(habit))
	}

	c.JSON(http.StatusOK, items)
}

// GetHabit 返回单个习惯详情
func (a *API) GetHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	habit, err := a.habits.Get(c.Request.Context(), id)
	if err != nil {
		a.handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, habitToPayload(*habit))
}

// CreateHabit 创建习惯
func (a *API) CreateHabit(c *gin.Context) {
	var payload habitPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	habit, err := a.habits.Create(c.Request.Context(), service.HabitInput{
		Name:        payload.Name,
		Description: payload.Description,
	})
	if err != nil {
		a.handleHabitError(c, err)
		return
	}

	a.logger.Info("habit created", "habit_id", habit.ID, "name", habit.Name)
	c.JSON(http.StatusCreated, habitToPayload(*habit))
}

// UpdateHabit 整体更新习惯
func (a *API) UpdateHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload habitPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	habit, err := a.habits.Update(c.Request.Context(), id, service.HabitInput{
		Name:        payload.Name,
		Description: payload.Description,
	})
	if err != nil {
		a.handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, habitToPayload(*habit))
}

// PatchHabit 部分更新习惯，未提供的字段保持不变
func (a *API) PatchHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload habitPatchPayload
	if !bindOptionalJSON(c, &payload, "请求参数不合法") {
		return
	}

	habit, err := a.habits.Patch(c.Request.Context(), id, service.HabitPatch{
		Name:        payload.Name,
		Description: payload.Description,
	})
	if err != nil {
		a.handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, habitToPayload(*habit))
}

// DeleteHabit 删除习惯及其打卡记录
func (a *API) DeleteHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	if err := a.habits.Delete(c.Request.Context(), id); err != nil {
		a.handleHabitError(c, err)
		return
	}

	a.logger.Info("habit deleted", "habit_id", id)
	c.Status(http.StatusNoContent)
}

// ToggleHabit 切换某一天的打卡状态，date 缺省为今天
func (a *API) ToggleHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload togglePayload
	if !bindOptionalJSON(c, &payload, "请求参数不合法") {
		return
	}

	day := a.today()
	if payload.Date != nil && strings.TrimSpace(*payload.Date) != "" {
		day, err = service.ParseDay(*payload.Date)
		if err != nil {
			a.handleHabitError(c, err)
			return
		}
	}

	result, err := a.tracker.Toggle(c.Request.Context(), id, day)
	if err != nil {
		a.handleHabitError(c, err)
		return
	}

	if result.State == service.LogAbsent {
		c.JSON(http.StatusOK, undonePayload{Toggled: "undone", Date: service.FormatDay(result.Date)})
		return
	}

	c.JSON(http.StatusOK, serializeHabitLog(*result.Entry))
}

// GetHabitStats 返回连胜、近七天状态与 7/30 天完成率
func (a *API) GetHabitStats(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	stats, err := a.tracker.Stats(c.Request.Context(), id, a.today())
	if err != nil {
		a.handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, serializeHabitStats(stats))
}

func habitToPayload(habit db.Habit) habitItem {
	logs := make([]habitLogItem, 0, len(habit.Logs))
	for _, log := range habit.Logs {
		logs = append(logs, serializeHabitLog(log))
	}

	return habitItem{
		ID:              habit.ID,
		Name:            habit.Name,
		Description:     habit.Description,
		DescriptionHTML: service.RenderDescription(habit.Description),
		CreatedAt:       habit.CreatedAt.UTC().Format(time.RFC3339),
		Logs:            logs,
	}
}

func serializeHabitLog(log db.HabitLog) habitLogItem {
	return habitLogItem{ID: log.ID, Date: log.Date, Done: log.Done}
}

func serializeHabitStats(stats *service.HabitStats) habitStatsPayload {
	days := make([]dayItem, 0, len(stats.Last7))
	for _, day := range stats.Last7 {
		days = append(days, dayItem{Date: service.FormatDay(day.Date), Done: day.Done})
	}

	return habitStatsPayload{
		CurrentStreak: stats.CurrentStreak,
		LongestStreak: stats.LongestStreak,
		Last7:         days,
		Rate7:         stats.Rate7,
		Rate30:        stats.Rate30,
	}
}

func (a *API) handleHabitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHabitNotFound):
		respondError(c, http.StatusNotFound, "习惯不存在")
	case errors.Is(err, service.ErrHabitInvalidName):
		respondError(c, http.StatusBadRequest, "习惯名称无效")
	case errors.Is(err, service.ErrInvalidDate):
		respondError(c, http.StatusBadRequest, "无效的日期，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrLogConflict):
		respondError(c, http.StatusConflict, "打卡记录冲突，请重试")
	default:
		a.logger.Error("habit request failed", "path", c.FullPath(), "err", err)
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
