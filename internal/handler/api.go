package handler

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/habitlog/internal/service"
	"gorm.io/gorm"
)

// Settings 汇总 handler 层的运行参数
type Settings struct {
	// Location 用于计算“今天”，为空时使用服务器本地时区
	Location *time.Location
	// Now 为空时使用 time.Now，测试中可固定参考时间
	Now             func() time.Time
	StreakChunkDays int
	Logger          *log.Logger
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db      *gorm.DB
	habits  *service.HabitService
	tracker *service.Tracker
	loc     *time.Location
	now     func() time.Time
	logger  *log.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB, settings Settings) *API {
	loc := settings.Location
	if loc == nil {
		loc = time.Local
	}
	now := settings.Now
	if now == nil {
		now = time.Now
	}
	logger := settings.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &API{
		db:      db,
		habits:  service.NewHabitService(db),
		tracker: service.NewTracker(service.NewGormLogStore(db), settings.StreakChunkDays, logger),
		loc:     loc,
		now:     now,
		logger:  logger,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

// today 在每次调用时根据时钟重新计算，不在请求间缓存
func (a *API) today() time.Time {
	return service.Today(a.now(), a.loc)
}
