package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// DateLayout 日期字符串格式（对应 PostgreSQL DATE）
const DateLayout = "2006-01-02"

// ── PostgreSQL DATE 自定义类型 ──

// Date 对应 PostgreSQL DATE 类型，实现 GORM Scanner/Valuer 接口。
// 内部统一保存为 UTC 零点，读写均按 YYYY-MM-DD 文本传输，避免会话时区导致日期偏移。
type Date struct {
	time.Time
}

// NewDate 截取 t 在其自身时区中的年月日
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate 解析 YYYY-MM-DD 格式的日历日期
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

// String 返回 YYYY-MM-DD
func (d Date) String() string { return d.Format(DateLayout) }

// Scan 将 PostgreSQL 返回的 DATE 解析为 Date。
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = Date{time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)}
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("Date.Scan: unsupported type %T", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("Date.Scan: invalid date %q: %w", s, err)
	}
	*d = parsed
	return nil
}

// Value 将 Date 序列化为 YYYY-MM-DD 文本。
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}
