package service

import "errors"

var (
	// ErrHabitNotFound 在指定习惯不存在时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrHabitInvalidName 当习惯名称为空或过长时返回
	ErrHabitInvalidName = errors.New("invalid habit name")
	// ErrInvalidDate 当日期不是 YYYY-MM-DD 格式时返回
	ErrInvalidDate = errors.New("invalid date")
	// ErrLogConflict 打卡记录在写入过程中被并发修改，或违反唯一约束
	ErrLogConflict = errors.New("habit log conflict")
)
