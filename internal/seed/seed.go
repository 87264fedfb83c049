package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/habitlog/internal/db"
	"github.com/habitlog/internal/service"
	"gorm.io/gorm"
)

// Days 是演示数据覆盖的天数（含今天）
const Days = 60

type demoHabit struct {
	name        string
	description string
	// done 决定距今 offset 天是否打卡
	done func(offset int) bool
}

var demoHabits = []demoHabit{
	{
		name:        "Read",
		description: "每天至少 **20** 页",
		done:        func(offset int) bool { return offset < 40 || offset%3 == 0 },
	},
	{
		name:        "晨跑",
		description: "5 公里，下雨改为跳绳",
		done:        func(offset int) bool { return offset%7 != 5 && offset%7 != 6 },
	},
	{
		name: "冥想",
		done: func(offset int) bool { return offset%2 == 0 },
	},
	{
		name:        "写日记",
		description: "睡前记录三件好事",
		done:        func(offset int) bool { return offset > 0 && offset%5 != 0 },
	},
}

// Summary 汇总生成结果
type Summary struct {
	Skipped bool
	Habits  int
	Logs    int
}

// Run 生成演示习惯及最近 Days 天的打卡记录，已有习惯时直接跳过。
// 打卡通过 Tracker.Toggle 写入，与 API 走同一条路径。
func Run(ctx context.Context, gdb *gorm.DB, today time.Time, logger *log.Logger) (Summary, error) {
	var count int64
	if err := gdb.WithContext(ctx).Model(&db.Habit{}).Count(&count).Error; err != nil {
		return Summary{}, fmt.Errorf("count habits: %w", err)
	}
	if count > 0 {
		logger.Info("habits already exist, skip seeding", "count", count)
		return Summary{Skipped: true}, nil
	}

	habits := service.NewHabitService(gdb)
	tracker := service.NewTracker(service.NewGormLogStore(gdb), 0, logger)

	var summary Summary
	for _, demo := range demoHabits {
		habit, err := habits.Create(ctx, service.HabitInput{Name: demo.name, Description: demo.description})
		if err != nil {
			return summary, fmt.Errorf("create demo habit %s: %w", demo.name, err)
		}
		summary.Habits++

		for offset := Days - 1; offset >= 0; offset-- {
			if !demo.done(offset) {
				continue
			}
			if _, err := tracker.Toggle(ctx, habit.ID, today.AddDate(0, 0, -offset)); err != nil {
				return summary, fmt.Errorf("toggle demo habit %s: %w", demo.name, err)
			}
			summary.Logs++
		}

		logger.Info("demo habit created", "habit_id", habit.ID, "name", habit.Name)
	}

	return summary, nil
}
