package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/habitlog/internal/db"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

const maxHabitNameRunes = 120

var namePolicy = bluemonday.StrictPolicy()

// HabitService 负责 Habit 数据的增删改查，查询结果附带打卡记录（日期倒序）
type HabitService struct {
	db *gorm.DB
}

// HabitInput 定义创建/整体更新习惯时可配置字段
type HabitInput struct {
	Name        string
	Description string
}

// HabitPatch 描述部分更新，nil 字段保持不变
type HabitPatch struct {
	Name        *string
	Description *string
}

// NewHabitService 构造 HabitService
func NewHabitService(gdb *gorm.DB) *HabitService {
	return &HabitService{db: gdb}
}

func (s *HabitService) withLogs(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Logs", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("date DESC")
	})
}

// List 返回全部习惯，最新创建的在前
func (s *HabitService) List(ctx context.Context) ([]db.Habit, error) {
	var habits []db.Habit
	if err := s.withLogs(ctx).Order("created_at DESC").Order("id DESC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return habits, nil
}

// Get 根据 ID 获取习惯
func (s *HabitService) Get(ctx context.Context, id uint) (*db.Habit, error) {
	var habit db.Habit
	if err := s.withLogs(ctx).First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

// Create 新建习惯
func (s *HabitService) Create(ctx context.Context, input HabitInput) (*db.Habit, error) {
	name, err := normalizeHabitName(input.Name)
	if err != nil {
		return nil, err
	}

	habit := db.Habit{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
	}

	if err := s.db.WithContext(ctx).Create(&habit).Error; err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	habit.Logs = []db.HabitLog{}
	return &habit, nil
}

// Update 整体更新习惯，CreatedAt 不会被改写
func (s *HabitService) Update(ctx context.Context, id uint, input HabitInput) (*db.Habit, error) {
	name := input.Name
	description := input.Description
	return s.Patch(ctx, id, HabitPatch{Name: &name, Description: &description})
}

// Patch 部分更新习惯
func (s *HabitService) Patch(ctx context.Context, id uint, patch HabitPatch) (*db.Habit, error) {
	updates := map[string]any{}

	if patch.Name != nil {
		name, err := normalizeHabitName(*patch.Name)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if patch.Description != nil {
		updates["description"] = strings.TrimSpace(*patch.Description)
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&db.Habit{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("update habit: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrHabitNotFound
		}
	}

	return s.Get(ctx, id)
}

// Delete 删除习惯及其全部打卡记录
func (s *HabitService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("habit_id = ?", id).Delete(&db.HabitLog{}).Error; err != nil {
			return fmt.Errorf("delete habit logs: %w", err)
		}

		result := tx.Delete(&db.Habit{}, id)
		if result.Error != nil {
			return fmt.Errorf("delete habit: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrHabitNotFound
		}
		return nil
	})
}

// normalizeHabitName 去除 HTML 标签与首尾空白，并校验长度
func normalizeHabitName(raw string) (string, error) {
	name := strings.TrimSpace(html.UnescapeString(namePolicy.Sanitize(raw)))
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrHabitInvalidName)
	}
	if utf8.RuneCountInString(name) > maxHabitNameRunes {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrHabitInvalidName, maxHabitNameRunes)
	}
	return name, nil
}
