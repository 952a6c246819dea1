package service

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/SNU-Hackathon/Doany-sub004/internal/schedule"
)

// ── iCalendar 适配 ──────────────────────────────────────────
//
// 导入：VEVENT 的 DTSTART 给出日期与时刻，RRULE / EXDATE 交给 rrule-go 展开，
// 目标周期之外的实例丢弃，每个实例成为一条 source=override 事件。
// 全天事件没有时刻，不能作为覆盖事件，记录原因后跳过。
//
// 导出：每周模式的每个 (星期, 时刻) 生成一条带 RRULE 的 VEVENT，
// 排除日期写入 EXDATE；显式包含的非模式日期与覆盖事件各自生成单次 VEVENT。
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 2 * 1024 * 1024
	icsFetchTimeout = 15 * time.Second
	// icsMaxOccurrences 单个重复事件最多展开的实例数
	icsMaxOccurrences = 366
	icsProductID      = "-//Doany//Schedule//ZH"
)

var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

var icsLayouts = []string{"20060102T150405Z", "20060102T150405", "20060102"}

// importedEvent ICS 中展开出的单次时刻
type importedEvent struct {
	Date    schedule.Date
	Time    string
	UID     string
	Summary string
}

// FetchICSContent 从 URL 获取 ICS 内容，webcal:// 视为 https://
func FetchICSContent(rawURL string) (io.ReadCloser, error) {
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// parseICSEvents 解析 ICS 并展开到 period 内。skipped 为逐条可读的跳过原因。
func parseICSEvents(r io.Reader, zone schedule.Zone, period schedule.DateRange) (events []importedEvent, skipped []string, err error) {
	cal, err := ics.ParseCalendar(io.LimitReader(r, icsMaxFileSize))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrICSParse, err)
	}

	rangeStart, rangeEnd := dayBounds(zone, period)
	for i, ve := range cal.Events() {
		uid := fmt.Sprintf("event-%d", i+1)
		if p := ve.GetProperty(ics.ComponentPropertyUniqueId); p != nil && p.Value != "" {
			uid = p.Value
		}
		summary := ""
		if p := ve.GetProperty(ics.ComponentPropertySummary); p != nil {
			summary = strings.TrimSpace(p.Value)
		}

		start, allDay, err := parseICSDateTime(ve, ics.ComponentPropertyDtStart, zone.Location())
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: DTSTART 无效", uid))
			continue
		}
		if allDay {
			skipped = append(skipped, fmt.Sprintf("%s: 全天事件没有时刻", uid))
			continue
		}

		times, truncated, err := expandICSOccurrences(ve, start, zone.Location(), rangeStart, rangeEnd)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: RRULE 无效: %v", uid, err))
			continue
		}
		if truncated {
			skipped = append(skipped, fmt.Sprintf("%s: 实例超过 %d 个，其余已忽略", uid, icsMaxOccurrences))
		}
		for _, t := range times {
			events = append(events, importedEvent{
				Date:    zone.DateOf(t),
				Time:    zone.ClockOf(t),
				UID:     uid,
				Summary: summary,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].Time < events[j].Time
	})
	return events, skipped, nil
}

// expandICSOccurrences 单次事件直接返回 DTSTART；重复事件经 rrule.Set 展开并应用 EXDATE
func expandICSOccurrences(ve *ics.VEvent, start time.Time, loc *time.Location, from, to time.Time) ([]time.Time, bool, error) {
	prop := ve.GetProperty(ics.ComponentPropertyRrule)
	if prop == nil {
		if start.Before(from) || !start.Before(to) {
			return nil, false, nil
		}
		return []time.Time{start}, false, nil
	}

	r, err := rrule.StrToRRule(prop.Value)
	if err != nil {
		return nil, false, err
	}
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range parseExDates(ve, loc) {
		set.ExDate(ex)
	}

	// Between 的 inc=true 包含 to 本身，to 是下一天零点，需排除
	occ := set.Between(from, to.Add(-time.Second), true)
	if len(occ) > icsMaxOccurrences {
		return occ[:icsMaxOccurrences], true, nil
	}
	return occ, false, nil
}

// parseExDates 解析所有 EXDATE，逗号分隔的多值同样展开
func parseExDates(ve *ics.VEvent, loc *time.Location) []time.Time {
	var out []time.Time
	for _, prop := range ve.GetProperties(ics.ComponentPropertyExdate) {
		tzLoc := loc
		if tzid := icsParam(prop.ICalParameters, "TZID"); tzid != "" {
			if l, err := time.LoadLocation(tzid); err == nil {
				tzLoc = l
			}
		}
		for _, part := range strings.Split(prop.Value, ",") {
			if t, _, err := parseICSValue(strings.TrimSpace(part), tzLoc); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

// parseICSDateTime 解析日期时间属性，按 TZID 或 UTC 后缀换算到 loc
func parseICSDateTime(ve *ics.VEvent, name ics.ComponentProperty, loc *time.Location) (time.Time, bool, error) {
	prop := ve.GetProperty(name)
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("缺少属性 %s", name)
	}

	tzLoc := loc
	if tzid := icsParam(prop.ICalParameters, "TZID"); tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			tzLoc = l
		}
	}
	t, allDay, err := parseICSValue(prop.Value, tzLoc)
	if err != nil {
		return time.Time{}, false, err
	}
	if strings.EqualFold(icsParam(prop.ICalParameters, "VALUE"), "DATE") {
		allDay = true
	}
	return t.In(loc), allDay, nil
}

func parseICSValue(val string, loc *time.Location) (time.Time, bool, error) {
	for _, layout := range icsLayouts {
		if strings.HasSuffix(layout, "Z") {
			if t, err := time.Parse(layout, val); err == nil {
				return t, false, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, val, loc); err == nil {
			return t, layout == "20060102", nil
		}
	}
	return time.Time{}, false, fmt.Errorf("无法解析日期: %s", val)
}

func icsParam(params map[string][]string, key string) string {
	for k, v := range params {
		if strings.EqualFold(k, key) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// ════════════════════════════════════════════════════════════
// 导出
// ════════════════════════════════════════════════════════════

// calendarInput 导出日历所需的已解析目标
type calendarInput struct {
	GoalID      string
	Title       string
	Description string
	Period      schedule.DateRange
	Store       schedule.OverrideStore
	Zone        schedule.Zone
	Stamp       time.Time
}

// buildCalendar 生成 VCALENDAR
func buildCalendar(in calendarInput) (*ics.Calendar, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetName(in.Title)
	cal.SetXWRTimezone(in.Zone.Location().String())

	store := in.Store
	for _, wd := range store.Pattern.Weekdays() {
		first, ok := firstWeekday(in.Period, time.Weekday(wd))
		if !ok {
			continue
		}
		var excluded []schedule.Date
		in.Period.Each(func(d schedule.Date) bool {
			if int(d.Weekday()) == wd && !store.IsScheduled(d) {
				excluded = append(excluded, d)
			}
			return true
		})

		times := store.Pattern.Times(time.Weekday(wd))
		if len(times) == 0 {
			if err := addWeeklyEvent(cal, in, wd, first, "", excluded); err != nil {
				return nil, err
			}
			continue
		}
		for _, clock := range times {
			if err := addWeeklyEvent(cal, in, wd, first, clock, excluded); err != nil {
				return nil, err
			}
		}
	}

	// 显式包含且不在模式星期上的日期
	for _, d := range store.Include.Sorted() {
		if !in.Period.Contains(d) || store.Pattern.Has(d.Weekday()) {
			continue
		}
		ev := cal.AddEvent(eventUID(in.GoalID, "include:"+d.String()))
		ev.SetDtStampTime(in.Stamp)
		ev.SetSummary(in.Title)
		ev.SetAllDayStartAt(in.Zone.Midnight(d))
		ev.SetAllDayEndAt(in.Zone.Midnight(d.AddDays(1)))
	}

	for _, e := range store.Events {
		if e.Source != schedule.SourceOverride || !in.Period.Contains(e.Date) {
			continue
		}
		start, err := in.Zone.At(e.Date, e.Time)
		if err != nil {
			return nil, err
		}
		ev := cal.AddEvent(eventUID(in.GoalID, "override:"+e.Date.String()+"T"+e.Time))
		ev.SetDtStampTime(in.Stamp)
		ev.SetSummary(in.Title)
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(time.Hour))
	}
	return cal, nil
}

// addWeeklyEvent clock 为空时生成全天重复事件
func addWeeklyEvent(cal *ics.Calendar, in calendarInput, wd int, first schedule.Date, clock string, excluded []schedule.Date) error {
	allDay := clock == ""
	start := in.Zone.Midnight(first)
	if !allDay {
		var err error
		if start, err = in.Zone.At(first, clock); err != nil {
			return err
		}
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleWeekdays[wd]},
		Dtstart:   start,
		Until:     in.Zone.Midnight(in.Period.End.AddDays(1)).Add(-time.Second),
	})
	if err != nil {
		return fmt.Errorf("构造 RRULE 失败: %w", err)
	}

	ev := cal.AddEvent(eventUID(in.GoalID, fmt.Sprintf("weekly:%d:%s", wd, clock)))
	ev.SetDtStampTime(in.Stamp)
	ev.SetSummary(in.Title + " · " + schedule.WeekdayName(time.Weekday(wd)))
	if in.Description != "" {
		ev.SetDescription(in.Description)
	}
	if allDay {
		ev.SetAllDayStartAt(start)
		ev.SetAllDayEndAt(start.AddDate(0, 0, 1))
	} else {
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(time.Hour))
	}
	ev.AddRrule(rule.OrigOptions.RRuleString())

	for _, d := range excluded {
		if allDay {
			ev.AddExdate(strings.ReplaceAll(d.String(), "-", ""), &ics.KeyValues{Key: "VALUE", Value: []string{"DATE"}})
			continue
		}
		t, err := in.Zone.At(d, clock)
		if err != nil {
			return err
		}
		ev.AddExdate(t.UTC().Format("20060102T150405Z"))
	}
	return nil
}

func firstWeekday(r schedule.DateRange, wd time.Weekday) (schedule.Date, bool) {
	for i := 0; i < 7; i++ {
		d := r.Start.AddDays(i)
		if d.After(r.End) {
			break
		}
		if d.Weekday() == wd {
			return d, true
		}
	}
	return schedule.Date{}, false
}

func eventUID(goalID, key string) string {
	return schedule.QuestID(goalID, "ics:"+key) + "@doany"
}
