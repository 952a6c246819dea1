package schedule

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout 边界上交换的日期格式
	DateLayout = "2006-01-02"
	// ClockLayout 边界上交换的时刻格式（24 小时制）
	ClockLayout = "15:04"
)

// Date 无时间分量的日历日期。
// 可比较、可作为 map key；两个 Date 相等当且仅当其 YYYY-MM-DD 序列化相等。
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate 构造日期，越界的月/日按 time.Date 规则归一化（如 1 月 32 日 → 2 月 1 日）。
func NewDate(year int, month time.Month, day int) Date {
	return DateFromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateFromTime 取 t 在其自身时区下的年月日（不做时区换算）。
func DateFromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("无效的日期 %q: %w", s, err)
	}
	return DateFromTime(t), nil
}

// IsZero 是否为零值
func (d Date) IsZero() bool { return d == Date{} }

// String 序列化为 YYYY-MM-DD
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time 返回该日 UTC 零点，仅用于日期算术
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays 加减天数
func (d Date) AddDays(n int) Date {
	return DateFromTime(d.Time().AddDate(0, 0, n))
}

// Weekday 0=Sunday … 6=Saturday
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

// Compare 返回 -1 / 0 / 1
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(int(d.Month) - int(o.Month))
	default:
		return sign(d.Day - o.Day)
	}
}

// Before 严格早于
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

// After 严格晚于
func (d Date) After(o Date) bool { return d.Compare(o) > 0 }

// DaysUntil 返回 o - d 的天数差（o 早于 d 时为负）
func (d Date) DaysUntil(o Date) int {
	return int(o.Time().Sub(d.Time()).Hours() / 24)
}

// MarshalText 实现 encoding.TextMarshaler，JSON map key 同样生效
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// ── 时刻 ──

// ParseClock 校验并规范化 HH:MM（"9:05" → "09:05"）
func ParseClock(s string) (string, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("无效的时刻 %q: %w", s, err)
	}
	return t.Format(ClockLayout), nil
}

// ── 固定时区 ──

// Zone 应用级固定时区。日期的判定只依赖注入的 Zone，从不读取设备/进程本地时区。
type Zone struct {
	loc *time.Location
}

// NewZone 由 *time.Location 构造；nil 视为 UTC
func NewZone(loc *time.Location) Zone {
	if loc == nil {
		loc = time.UTC
	}
	return Zone{loc: loc}
}

// LoadZone 按 IANA 名称加载
func LoadZone(name string) (Zone, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, fmt.Errorf("无效的时区 %q: %w", name, err)
	}
	return NewZone(loc), nil
}

// Location 返回底层 *time.Location
func (z Zone) Location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

// String 时区名称
func (z Zone) String() string { return z.Location().String() }

// DateOf 返回时间戳在该时区下的日历日期
func (z Zone) DateOf(t time.Time) Date {
	return DateFromTime(t.In(z.Location()))
}

// ClockOf 返回时间戳在该时区下的 HH:MM
func (z Zone) ClockOf(t time.Time) string {
	return t.In(z.Location()).Format(ClockLayout)
}

// At 将日期 + HH:MM 组合为该时区下的时间点
func (z Zone) At(d Date, clock string) (time.Time, error) {
	hhmm, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	t, _ := time.Parse(ClockLayout, hhmm)
	return time.Date(d.Year, d.Month, d.Day, t.Hour(), t.Minute(), 0, 0, z.Location()), nil
}

// Midnight 该日期在该时区的零点
func (z Zone) Midnight(d Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, z.Location())
}
