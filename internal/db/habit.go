package db

import "time"

// Habit 定义了习惯模型
// 名称在写入前已去除 HTML，Description 为可选 Markdown
// CreatedAt 仅在创建时写入，之后不再修改
type Habit struct {
	ID          uint   `gorm:"primarykey"`
	Name        string `gorm:"size:120;not null"`
	Description string
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
	Logs        []HabitLog `gorm:"constraint:OnDelete:CASCADE"`
}

// HabitLog 记录某一天的打卡状态
// HabitID + Date 采用唯一索引，保证每个习惯每天至多一条记录
// Date 使用 YYYY-MM-DD 字符串存储，字典序即时间序
type HabitLog struct {
	ID        uint   `gorm:"primarykey"`
	HabitID   uint   `gorm:"not null;index;uniqueIndex:idx_habit_log_unique"`
	Date      string `gorm:"size:10;not null;uniqueIndex:idx_habit_log_unique"`
	Done      bool   `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 重写确保唯一索引作用到 habit_id + date
func (HabitLog) TableName() string {
	return "habit_logs"
}
