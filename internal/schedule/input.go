package schedule

import "fmt"

// RawSchedule 持久化层提供的原始字符串形态
type RawSchedule struct {
	StartDate          string
	EndDate            string
	WeeklyWeekdays     []int
	WeeklyTimeSettings map[string][]string
	IncludeDates       []string
	ExcludeDates       []string
	Events             []RawEvent
}

// RawEvent 日历事件原始形态
type RawEvent struct {
	Date    string
	Time    string
	Source  string
	GroupID string
}

// Resolved 解析后的日程输入
type Resolved struct {
	Period *DateRange
	Store  OverrideStore
}

// Resolve 解析并校验原始输入，格式错误以原因列表返回而不是 error。
// 同一日期同时出现在包含与排除中时以包含为准，并从排除中移除。
func (r RawSchedule) Resolve() (Resolved, ValidationResult) {
	v := ValidationResult{IsValid: true}
	var out Resolved

	switch {
	case r.StartDate == "" && r.EndDate == "":
	case r.StartDate == "" || r.EndDate == "":
		v.fail("开始日期与结束日期需同时提供")
	default:
		start, errS := ParseDate(r.StartDate)
		end, errE := ParseDate(r.EndDate)
		switch {
		case errS != nil:
			v.fail("开始日期格式应为 YYYY-MM-DD: %s", r.StartDate)
		case errE != nil:
			v.fail("结束日期格式应为 YYYY-MM-DD: %s", r.EndDate)
		case end.Before(start):
			v.fail("结束日期 %s 早于开始日期 %s", end, start)
		default:
			period := DateRange{Start: start, End: end}
			out.Period = &period
		}
	}

	pattern, err := NewWeeklyPattern(r.WeeklyWeekdays, r.WeeklyTimeSettings)
	if err != nil {
		v.fail("每周模式无效: %v", err)
	}
	out.Store.Pattern = pattern

	include, err := ParseDateSet(r.IncludeDates)
	if err != nil {
		v.fail("包含日期无效: %v", err)
		include = DateSet{}
	}
	exclude, err := ParseDateSet(r.ExcludeDates)
	if err != nil {
		v.fail("排除日期无效: %v", err)
		exclude = DateSet{}
	}
	for d := range include {
		delete(exclude, d)
	}
	out.Store.Include, out.Store.Exclude = include, exclude

	for i, raw := range r.Events {
		ev, err := raw.resolve()
		if err != nil {
			v.fail("第 %d 个日历事件无效: %v", i+1, err)
			continue
		}
		out.Store.Events = append(out.Store.Events, ev)
	}
	return out, v
}

func (e RawEvent) resolve() (OverrideEvent, error) {
	d, err := ParseDate(e.Date)
	if err != nil {
		return OverrideEvent{}, err
	}
	clock, err := ParseClock(e.Time)
	if err != nil {
		return OverrideEvent{}, err
	}
	src := EventSource(e.Source)
	if src != SourceWeekly && src != SourceOverride {
		return OverrideEvent{}, fmt.Errorf("未知的事件来源 %q", e.Source)
	}
	return OverrideEvent{Date: d, Time: clock, Source: src, GroupID: e.GroupID}, nil
}
