package schedule

import (
	"sort"
	"time"
)

// EventSource 日历事件来源
type EventSource string

const (
	// SourceWeekly 由每周模式派生的只读镜像
	SourceWeekly EventSource = "weekly"
	// SourceOverride 用户为某一天单独录入的时刻
	SourceOverride EventSource = "override"
)

// OverrideEvent 附着于目标某一天的显式时刻
type OverrideEvent struct {
	Date    Date        `json:"date"`
	Time    string      `json:"time"`
	Source  EventSource `json:"source"`
	GroupID string      `json:"group_id,omitempty"`
}

// Decision 单日判定结果
type Decision struct {
	Scheduled bool     `json:"scheduled"`
	Base      bool     `json:"base"` // 星期命中每周模式
	Count     int      `json:"count"`
	Times     []string `json:"times,omitempty"`
}

// OverrideStore 将每周模式、包含/排除日期、覆盖事件合并为逐日判定。
// 值语义：Toggle 等操作返回新的 OverrideStore，原值不变。
type OverrideStore struct {
	Pattern WeeklyPattern
	Include DateSet
	Exclude DateSet
	Events  []OverrideEvent
}

// Decide 基础判定：(命中星期 且 未排除) 或 显式包含
func (s OverrideStore) Decide(d Date) Decision {
	wd := d.Weekday()
	base := s.Pattern.Has(wd)
	scheduled := (base && !s.Exclude.Has(d)) || s.Include.Has(d)
	if !scheduled {
		return Decision{Base: base}
	}
	count := s.Pattern.Sessions(wd)
	if count == 0 {
		count = 1
	}
	return Decision{Scheduled: true, Base: base, Count: count, Times: s.Pattern.Times(wd)}
}

// IsScheduled 是否排期
func (s OverrideStore) IsScheduled(d Date) bool { return s.Decide(d).Scheduled }

// RequiredCount 基础规则下的当日需完成次数
func (s OverrideStore) RequiredCount(d Date) int { return s.Decide(d).Count }

// RequiredWithEvents 计入覆盖事件后的当日需求：
// 每周派生时刻（仅当由星期命中且未排除）与 source=override 事件时刻的去重并集。
// 仅有覆盖事件的日期同样排期；已排期但并集为空时记 1 次（手动打卡）。
func (s OverrideStore) RequiredWithEvents(d Date) Decision {
	wd := d.Weekday()
	base := s.Pattern.Has(wd)
	union := make(map[string]bool)
	if base && !s.Exclude.Has(d) {
		for _, t := range s.Pattern.Times(wd) {
			union[t] = true
		}
	}
	for _, ev := range s.Events {
		if ev.Source != SourceOverride || ev.Date != d {
			continue
		}
		if c, err := ParseClock(ev.Time); err == nil {
			union[c] = true
		}
	}

	scheduled := len(union) > 0 || (base && !s.Exclude.Has(d)) || s.Include.Has(d)
	if !scheduled {
		return Decision{Base: base}
	}
	times := make([]string, 0, len(union))
	for t := range union {
		times = append(times, t)
	}
	sort.Strings(times)
	count := len(times)
	if count == 0 {
		count = 1
	}
	return Decision{Scheduled: true, Base: base, Count: count, Times: times}
}

// ── 编辑 ──

// Toggle 翻转某日的排期状态。
// scope 非 nil 时按 include/exclude 双向维护并在其范围内执行星期回写；
// scope 为 nil 时只增删 Include。
// 任意操作完成后同一日期不会同时出现在 Include 与 Exclude 中。
func (s OverrideStore) Toggle(d Date, scope *DateRange) OverrideStore {
	return s.set(d, !s.IsScheduled(d), scope)
}

// SetRange 将 r 内每一天设置为 enabled 状态，最后统一回写一次星期模式
func (s OverrideStore) SetRange(r DateRange, enabled bool, scope *DateRange) OverrideStore {
	out := s.clone()
	r = Normalize(r.Start, r.End)
	if scope != nil {
		clamped, ok := r.Clamp(*scope)
		if !ok {
			return out
		}
		r = clamped
	}
	r.Each(func(d Date) bool {
		out = out.apply(d, enabled, scope != nil)
		return true
	})
	if scope != nil {
		out = out.ReconcileWeekdays(*scope)
	}
	return out
}

func (s OverrideStore) set(d Date, enabled bool, scope *DateRange) OverrideStore {
	out := s.clone().apply(d, enabled, scope != nil)
	if scope != nil {
		out = out.ReconcileWeekdays(*scope)
	}
	return out
}

// apply 在副本上原地修改；调用方保证 s 已 clone
func (s OverrideStore) apply(d Date, enabled, scoped bool) OverrideStore {
	if !scoped {
		if enabled {
			s.Include[d] = struct{}{}
		} else {
			delete(s.Include, d)
		}
		delete(s.Exclude, d)
		return s
	}

	base := s.Pattern.Has(d.Weekday())
	if enabled {
		delete(s.Exclude, d)
		if base {
			delete(s.Include, d)
		} else {
			s.Include[d] = struct{}{}
		}
		return s
	}
	delete(s.Include, d)
	if base {
		s.Exclude[d] = struct{}{}
	}
	return s
}

// ReconcileWeekdays 在 scope 内将包含/排除日期回写到每周模式（尽力而为，单向）：
//   - 某启用星期在 scope 内的全部出现都被排除 → 停用该星期并丢弃其时刻；
//     排除记录保留，作为"整星期被排除过"的依据；
//   - 某未启用星期在 scope 内至少有一天被包含、其余出现全部被排除 → 重新启用该星期，
//     被包含的日期转为由模式命中。
//
// 回写前后 scope 内每一天的排期结果保持不变，重复调用结果不变。
func (s OverrideStore) ReconcileWeekdays(scope DateRange) OverrideStore {
	scope = Normalize(scope.Start, scope.End)
	out := s.clone()

	byWeekday := make(map[time.Weekday][]Date, 7)
	scope.Each(func(d Date) bool {
		byWeekday[d.Weekday()] = append(byWeekday[d.Weekday()], d)
		return true
	})

	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		dates := byWeekday[wd]
		if len(dates) == 0 {
			continue
		}
		if out.Pattern.Has(wd) {
			allExcluded := true
			for _, d := range dates {
				if !out.Exclude.Has(d) || out.Include.Has(d) {
					allExcluded = false
					break
				}
			}
			if !allExcluded {
				continue
			}
			out.Pattern = out.Pattern.Without(wd)
			continue
		}

		included, restExcluded := false, true
		for _, d := range dates {
			switch {
			case out.Include.Has(d):
				included = true
			case !out.Exclude.Has(d):
				restExcluded = false
			}
		}
		if !included || !restExcluded {
			continue
		}
		out.Pattern, _ = out.Pattern.With(wd)
		for _, d := range dates {
			if out.Include.Has(d) {
				delete(out.Include, d)
				delete(out.Exclude, d)
			}
		}
	}
	return out
}

func (s OverrideStore) clone() OverrideStore {
	return OverrideStore{
		Pattern: s.Pattern.clone(),
		Include: s.Include.Clone(),
		Exclude: s.Exclude.Clone(),
		Events:  append([]OverrideEvent(nil), s.Events...),
	}
}
