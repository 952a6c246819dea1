package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// WeeklyPattern 每周重复模式：启用的星期（0=周日 … 6=周六）及各自的时刻列表。
// 启用但无时刻的星期视为"每日 1 次、手动打卡"。
// 零值为空模式；值语义，修改方法均返回新值。
type WeeklyPattern struct {
	days [7]weekdaySlot
}

type weekdaySlot struct {
	enabled bool
	times   []string
}

// NewWeeklyPattern 由持久化形态构造模式。
// times 的 key 为星期的十进制字符串（"0"…"6"）；未启用星期的时刻设置被丢弃。
func NewWeeklyPattern(weekdays []int, times map[string][]string) (WeeklyPattern, error) {
	var p WeeklyPattern
	for _, wd := range weekdays {
		if wd < 0 || wd > 6 {
			return WeeklyPattern{}, fmt.Errorf("无效的星期 %d（应为 0-6）", wd)
		}
		p.days[wd].enabled = true
	}
	for key, list := range times {
		wd, err := strconv.Atoi(key)
		if err != nil || wd < 0 || wd > 6 {
			return WeeklyPattern{}, fmt.Errorf("无效的星期键 %q", key)
		}
		if !p.days[wd].enabled {
			continue
		}
		normalized, err := normalizeClocks(list)
		if err != nil {
			return WeeklyPattern{}, err
		}
		p.days[wd].times = normalized
	}
	return p, nil
}

// Has 该星期是否启用
func (p WeeklyPattern) Has(wd time.Weekday) bool {
	return p.days[wd].enabled
}

// Times 该星期的时刻（副本，已排序去重）
func (p WeeklyPattern) Times(wd time.Weekday) []string {
	if !p.days[wd].enabled {
		return nil
	}
	return append([]string(nil), p.days[wd].times...)
}

// Sessions 启用星期的每日需完成次数：有时刻时为时刻数，否则为 1；未启用为 0
func (p WeeklyPattern) Sessions(wd time.Weekday) int {
	slot := p.days[wd]
	if !slot.enabled {
		return 0
	}
	if len(slot.times) == 0 {
		return 1
	}
	return len(slot.times)
}

// Weekdays 已启用星期（升序）
func (p WeeklyPattern) Weekdays() []int {
	out := make([]int, 0, 7)
	for wd, slot := range p.days {
		if slot.enabled {
			out = append(out, wd)
		}
	}
	return out
}

// TimeSettings 持久化形态的时刻设置，仅包含非空项
func (p WeeklyPattern) TimeSettings() map[string][]string {
	out := make(map[string][]string)
	for wd, slot := range p.days {
		if slot.enabled && len(slot.times) > 0 {
			out[strconv.Itoa(wd)] = append([]string(nil), slot.times...)
		}
	}
	return out
}

// IsEmpty 无任何启用星期
func (p WeeklyPattern) IsEmpty() bool {
	for _, slot := range p.days {
		if slot.enabled {
			return false
		}
	}
	return true
}

// HasAnyTime 是否至少有一个星期配置了时刻
func (p WeeklyPattern) HasAnyTime() bool {
	for _, slot := range p.days {
		if slot.enabled && len(slot.times) > 0 {
			return true
		}
	}
	return false
}

// With 启用星期并设置时刻（times 为空表示手动打卡）
func (p WeeklyPattern) With(wd time.Weekday, times ...string) (WeeklyPattern, error) {
	normalized, err := normalizeClocks(times)
	if err != nil {
		return p, err
	}
	out := p.clone()
	out.days[wd] = weekdaySlot{enabled: true, times: normalized}
	return out, nil
}

// Without 停用星期，同时丢弃其时刻设置
func (p WeeklyPattern) Without(wd time.Weekday) WeeklyPattern {
	out := p.clone()
	out.days[wd] = weekdaySlot{}
	return out
}

// Equal 逐星期比较
func (p WeeklyPattern) Equal(o WeeklyPattern) bool {
	for wd := range p.days {
		a, b := p.days[wd], o.days[wd]
		if a.enabled != b.enabled || len(a.times) != len(b.times) {
			return false
		}
		for i := range a.times {
			if a.times[i] != b.times[i] {
				return false
			}
		}
	}
	return true
}

func (p WeeklyPattern) clone() WeeklyPattern {
	var out WeeklyPattern
	for wd, slot := range p.days {
		out.days[wd] = weekdaySlot{enabled: slot.enabled, times: append([]string(nil), slot.times...)}
	}
	return out
}

// normalizeClocks 校验、规范化、去重并排序
func normalizeClocks(list []string) ([]string, error) {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, raw := range list {
		c, err := ParseClock(raw)
		if err != nil {
			return nil, err
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ── 日期集合 ──

// DateSet 日期集合
type DateSet map[Date]struct{}

// NewDateSet 由日期列表构造
func NewDateSet(dates ...Date) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

// ParseDateSet 解析 YYYY-MM-DD 列表
func ParseDateSet(list []string) (DateSet, error) {
	s := make(DateSet, len(list))
	for _, raw := range list {
		d, err := ParseDate(raw)
		if err != nil {
			return nil, err
		}
		s[d] = struct{}{}
	}
	return s, nil
}

// Has 是否包含
func (s DateSet) Has(d Date) bool {
	_, ok := s[d]
	return ok
}

// Sorted 升序日期列表
func (s DateSet) Sorted() []Date {
	out := make([]Date, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Strings 升序 YYYY-MM-DD 列表
func (s DateSet) Strings() []string {
	dates := s.Sorted()
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}

// Clone 副本（nil 返回空集合）
func (s DateSet) Clone() DateSet {
	out := make(DateSet, len(s))
	for d := range s {
		out[d] = struct{}{}
	}
	return out
}
