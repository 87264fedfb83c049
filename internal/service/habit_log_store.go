package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habitlog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LogStore 是打卡引擎依赖的存储接口。
// (habit_id, date) 的唯一性由存储保证，GetOrCreate 必须是原子的。
type LogStore interface {
	GetHabit(ctx context.Context, id uint) (*db.Habit, error)
	// GetOrCreate 查找指定日期的记录，不存在时以 done=true 创建
	GetOrCreate(ctx context.Context, habitID uint, day time.Time) (*db.HabitLog, bool, error)
	Update(ctx context.Context, entry *db.HabitLog) error
	Delete(ctx context.Context, entry *db.HabitLog) error
	// Since 返回 date >= threshold 的记录，日期倒序
	Since(ctx context.Context, habitID uint, threshold time.Time) ([]db.HabitLog, error)
	// Between 返回闭区间 [start, end] 内的记录，日期倒序
	Between(ctx context.Context, habitID uint, start, end time.Time) ([]db.HabitLog, error)
	WithinTx(ctx context.Context, fn func(LogStore) error) error
}

// GormLogStore 基于 GORM 的 LogStore 实现
type GormLogStore struct {
	db *gorm.DB
}

// NewGormLogStore 构造 GormLogStore
func NewGormLogStore(gdb *gorm.DB) *GormLogStore {
	return &GormLogStore{db: gdb}
}

func (s *GormLogStore) GetHabit(ctx context.Context, id uint) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.WithContext(ctx).First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

// GetOrCreate 使用 INSERT ... ON CONFLICT DO NOTHING，冲突时再读取已存在的记录
func (s *GormLogStore) GetOrCreate(ctx context.Context, habitID uint, day time.Time) (*db.HabitLog, bool, error) {
	record := db.HabitLog{
		HabitID: habitID,
		Date:    FormatDay(day),
		Done:    true,
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "habit_id"}, {Name: "date"}},
		DoNothing: true,
	}).Create(&record)
	if result.Error != nil {
		return nil, false, translateLogError("create habit log", result.Error)
	}
	if result.RowsAffected == 1 {
		return &record, true, nil
	}

	var existing db.HabitLog
	if err := s.db.WithContext(ctx).
		Where("habit_id = ? AND date = ?", habitID, record.Date).
		First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("%w: %s vanished after conflict", ErrLogConflict, record.Date)
		}
		return nil, false, fmt.Errorf("reload habit log: %w", err)
	}
	return &existing, false, nil
}

func (s *GormLogStore) Update(ctx context.Context, entry *db.HabitLog) error {
	if err := s.db.WithContext(ctx).Save(entry).Error; err != nil {
		return translateLogError("update habit log", err)
	}
	return nil
}

// Delete 物理删除，保证同一日期之后可以重新创建
func (s *GormLogStore) Delete(ctx context.Context, entry *db.HabitLog) error {
	result := s.db.WithContext(ctx).Delete(&db.HabitLog{}, entry.ID)
	if result.Error != nil {
		return fmt.Errorf("delete habit log: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: log %d already removed", ErrLogConflict, entry.ID)
	}
	return nil
}

func (s *GormLogStore) Since(ctx context.Context, habitID uint, threshold time.Time) ([]db.HabitLog, error) {
	var logs []db.HabitLog
	if err := s.db.WithContext(ctx).
		Where("habit_id = ? AND date >= ?", habitID, FormatDay(threshold)).
		Order("date DESC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}
	return logs, nil
}

func (s *GormLogStore) Between(ctx context.Context, habitID uint, start, end time.Time) ([]db.HabitLog, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("invalid range: end before start")
	}

	var logs []db.HabitLog
	if err := s.db.WithContext(ctx).
		Where("habit_id = ?", habitID).
		Where("date BETWEEN ? AND ?", FormatDay(start), FormatDay(end)).
		Order("date DESC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}
	return logs, nil
}

func (s *GormLogStore) WithinTx(ctx context.Context, fn func(LogStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormLogStore{db: tx})
	})
}

func translateLogError(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", op, ErrLogConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
