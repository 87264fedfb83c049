package service

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout 是 API 与存储共用的日历日期格式
const DateLayout = "2006-01-02"

// ParseDay 严格解析 YYYY-MM-DD，不接受时间或时区后缀
func ParseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	day, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return day, nil
}

// FormatDay 输出 YYYY-MM-DD
func FormatDay(day time.Time) string {
	return day.Format(DateLayout)
}

// Today 返回 now 在 loc 时区下的日历日期
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return normalizeToDate(now.In(loc))
}

// normalizeToDate 取 t 自身时区下的年月日，统一表示为 UTC 零点，
// 之后的 AddDate 运算不受夏令时影响。
func normalizeToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
