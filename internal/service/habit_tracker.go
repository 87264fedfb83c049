package service

import (
	"context"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/habitlog/internal/db"
)

const (
	shortWindowDays = 7
	longWindowDays  = 30

	// DefaultStreakChunkDays 连胜跨越查询窗口时，每次向前多读取的天数
	DefaultStreakChunkDays = 30
)

// LogState 表示某习惯在某一天的打卡状态
type LogState int

const (
	LogAbsent LogState = iota
	LogDone
)

// Toggle 返回切换后的状态：Absent -> Done，Done -> Absent
func (s LogState) Toggle() LogState {
	if s == LogDone {
		return LogAbsent
	}
	return LogDone
}

func (s LogState) String() string {
	if s == LogDone {
		return "done"
	}
	return "undone"
}

// stateOf 只按 done 字段判断，残留的 done=false 记录视为未打卡
func stateOf(entry *db.HabitLog) LogState {
	if entry != nil && entry.Done {
		return LogDone
	}
	return LogAbsent
}

// ToggleResult 描述一次切换的结果，State 为 LogAbsent 时 Entry 为 nil
type ToggleResult struct {
	Date  time.Time
	State LogState
	Entry *db.HabitLog
}

// DayStatus 是最近七天中的单日状态
type DayStatus struct {
	Date time.Time
	Done bool
}

// HabitStats 汇总以 Today 为参考日的统计数据
type HabitStats struct {
	Today         time.Time
	CurrentStreak int
	LongestStreak int
	Last7         []DayStatus
	Rate7         float64
	Rate30        float64
}

// Tracker 负责打卡切换与统计
type Tracker struct {
	store     LogStore
	chunkDays int
	logger    *log.Logger
}

// NewTracker 构造 Tracker，chunkDays <= 0 时使用默认值
func NewTracker(store LogStore, chunkDays int, logger *log.Logger) *Tracker {
	if chunkDays <= 0 {
		chunkDays = DefaultStreakChunkDays
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Tracker{store: store, chunkDays: chunkDays, logger: logger}
}

// Toggle 切换习惯在 day 当天的打卡状态，每次调用只创建、更新或删除一条记录
func (t *Tracker) Toggle(ctx context.Context, habitID uint, day time.Time) (*ToggleResult, error) {
	day = normalizeToDate(day)
	result := &ToggleResult{Date: day}

	err := t.store.WithinTx(ctx, func(store LogStore) error {
		if _, err := store.GetHabit(ctx, habitID); err != nil {
			return err
		}

		entry, created, err := store.GetOrCreate(ctx, habitID, day)
		if err != nil {
			return err
		}

		if created {
			result.State = LogDone
			result.Entry = entry
			return nil
		}

		next := stateOf(entry).Toggle()
		if next == LogDone {
			entry.Done = true
			if err := store.Update(ctx, entry); err != nil {
				return err
			}
			result.Entry = entry
		} else if err := store.Delete(ctx, entry); err != nil {
			return err
		}

		result.State = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.logger.Debug("habit toggled", "habit_id", habitID, "date", FormatDay(day), "state", result.State)
	return result, nil
}

// Stats 以 today 为参考日计算连胜、近七天状态与 7/30 天完成率。
// 连胜到达查询窗口边界时会继续向前分段读取，直到遇到未打卡的日期。
func (t *Tracker) Stats(ctx context.Context, habitID uint, today time.Time) (*HabitStats, error) {
	today = normalizeToDate(today)

	if _, err := t.store.GetHabit(ctx, habitID); err != nil {
		return nil, err
	}

	oldest := today.AddDate(0, 0, -longWindowDays)
	logs, err := t.store.Since(ctx, habitID, oldest)
	if err != nil {
		return nil, err
	}

	done := make(map[string]struct{}, len(logs))
	collectDone(done, logs)
	isDone := func(day time.Time) bool {
		_, ok := done[FormatDay(day)]
		return ok
	}

	stats := &HabitStats{
		Today: today,
		Last7: make([]DayStatus, 0, shortWindowDays),
	}

	completed7 := 0
	for i := shortWindowDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		status := DayStatus{Date: day, Done: isDone(day)}
		if status.Done {
			completed7++
		}
		stats.Last7 = append(stats.Last7, status)
	}

	completed30, run := 0, 0
	for i := longWindowDays - 1; i >= 0; i-- {
		if isDone(today.AddDate(0, 0, -i)) {
			completed30++
			run++
			stats.LongestStreak = max(stats.LongestStreak, run)
		} else {
			run = 0
		}
	}

	stats.Rate7 = roundRate(completed7, shortWindowDays)
	stats.Rate30 = roundRate(completed30, longWindowDays)

	for day := today; isDone(day); day = day.AddDate(0, 0, -1) {
		stats.CurrentStreak++

		prev := day.AddDate(0, 0, -1)
		if !prev.Before(oldest) {
			continue
		}

		start := oldest.AddDate(0, 0, -t.chunkDays)
		older, err := t.store.Between(ctx, habitID, start, oldest.AddDate(0, 0, -1))
		if err != nil {
			return nil, err
		}
		collectDone(done, older)
		oldest = start
	}

	return stats, nil
}

func collectDone(set map[string]struct{}, logs []db.HabitLog) {
	for _, entry := range logs {
		if stateOf(&entry) == LogDone {
			set[entry.Date] = struct{}{}
		}
	}
}

// roundRate 保留两位小数，采用四舍五入（远离零）
func roundRate(count, days int) float64 {
	if days <= 0 {
		return 0
	}
	return math.Round(float64(count)/float64(days)*100) / 100
}
