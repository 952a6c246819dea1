package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/SNU-Hackathon/Doany-sub004/internal/schedule"
)

func mustRange(t *testing.T, start, end string) schedule.DateRange {
	t.Helper()
	s, err := schedule.ParseDate(start)
	if err != nil {
		t.Fatal(err)
	}
	e, err := schedule.ParseDate(end)
	if err != nil {
		t.Fatal(err)
	}
	return schedule.DateRange{Start: s, End: e}
}

func wrapICS(body string) string {
	return "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//test//EN\r\n" + body + "END:VCALENDAR\r\n"
}

func TestParseICSEvents_TZID(t *testing.T) {
	shanghai, err := schedule.LoadZone("Asia/Shanghai")
	if err != nil {
		t.Skipf("缺少时区数据: %v", err)
	}
	body := "BEGIN:VEVENT\r\n" +
		"UID:a\r\n" +
		"DTSTART;TZID=Asia/Tokyo:20250107T090000\r\n" +
		"END:VEVENT\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:b\r\n" +
		"DTSTART:20250107T170000Z\r\n" + // 上海次日 01:00
		"END:VEVENT\r\n"

	events, skipped, err := parseICSEvents(strings.NewReader(wrapICS(body)), shanghai, mustRange(t, "2025-01-06", "2025-01-19"))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(skipped) != 0 || len(events) != 2 {
		t.Fatalf("期望 2 个实例, 实际 %+v skipped=%v", events, skipped)
	}
	if events[0].Date.String() != "2025-01-07" || events[0].Time != "08:00" {
		t.Errorf("东京 09:00 期望上海 08:00, 实际 %s %s", events[0].Date, events[0].Time)
	}
	if events[1].Date.String() != "2025-01-08" || events[1].Time != "01:00" {
		t.Errorf("UTC 17:00 期望上海次日 01:00, 实际 %s %s", events[1].Date, events[1].Time)
	}
}

func TestParseICSEvents_RRuleWithExdateList(t *testing.T) {
	body := "BEGIN:VEVENT\r\n" +
		"UID:daily\r\n" +
		"DTSTART:20250101T063000Z\r\n" +
		"RRULE:FREQ=DAILY;INTERVAL=2\r\n" +
		"EXDATE:20250108T063000Z,20250110T063000Z\r\n" +
		"END:VEVENT\r\n"

	events, _, err := parseICSEvents(strings.NewReader(wrapICS(body)), schedule.NewZone(time.UTC), mustRange(t, "2025-01-06", "2025-01-12"))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	// 隔天：01-07、01-09、01-11 在范围内，EXDATE 落在非实例日期上不影响结果
	var got []string
	for _, e := range events {
		got = append(got, e.Date.String())
	}
	if strings.Join(got, ",") != "2025-01-07,2025-01-09,2025-01-11" {
		t.Errorf("展开结果不符, 实际 %v", got)
	}

	body = strings.Replace(body, "20250108T063000Z,20250110T063000Z", "20250109T063000Z,20250111T063000Z", 1)
	events, _, _ = parseICSEvents(strings.NewReader(wrapICS(body)), schedule.NewZone(time.UTC), mustRange(t, "2025-01-06", "2025-01-12"))
	if len(events) != 1 || events[0].Date.String() != "2025-01-07" {
		t.Errorf("逗号分隔的 EXDATE 应全部生效, 实际 %+v", events)
	}
}

func TestParseICSEvents_SkipsInvalid(t *testing.T) {
	body := "BEGIN:VEVENT\r\n" +
		"UID:allday\r\n" +
		"DTSTART;VALUE=DATE:20250107\r\n" +
		"END:VEVENT\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:bad-rule\r\n" +
		"DTSTART:20250107T080000Z\r\n" +
		"RRULE:FREQ=SOMETIMES\r\n" +
		"END:VEVENT\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:no-start\r\n" +
		"SUMMARY:x\r\n" +
		"END:VEVENT\r\n"

	events, skipped, err := parseICSEvents(strings.NewReader(wrapICS(body)), schedule.NewZone(time.UTC), mustRange(t, "2025-01-06", "2025-01-19"))
	if err != nil {
		t.Fatalf("单条事件错误不应中断解析: %v", err)
	}
	if len(events) != 0 || len(skipped) != 3 {
		t.Errorf("期望 3 条跳过原因, 实际 events=%d skipped=%v", len(events), skipped)
	}
	if !strings.HasPrefix(skipped[0], "allday:") {
		t.Errorf("跳过原因应以 UID 开头, 实际 %s", skipped[0])
	}
}

func TestParseICSEvents_CapsOccurrences(t *testing.T) {
	body := "BEGIN:VEVENT\r\n" +
		"UID:hourly\r\n" +
		"DTSTART:20250101T000000Z\r\n" +
		"RRULE:FREQ=HOURLY\r\n" +
		"END:VEVENT\r\n"

	events, skipped, err := parseICSEvents(strings.NewReader(wrapICS(body)), schedule.NewZone(time.UTC), mustRange(t, "2025-01-01", "2025-01-31"))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(events) != icsMaxOccurrences || len(skipped) != 1 {
		t.Errorf("期望截断为 %d 并给出提示, 实际 %d skipped=%v", icsMaxOccurrences, len(events), skipped)
	}
}

func TestParseICSEvents_Malformed(t *testing.T) {
	_, _, err := parseICSEvents(strings.NewReader("BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\n"), schedule.NewZone(time.UTC), mustRange(t, "2025-01-06", "2025-01-19"))
	if !errors.Is(err, ErrICSParse) {
		t.Errorf("期望 ErrICSParse, 实际 %v", err)
	}
}

func TestFirstWeekday(t *testing.T) {
	r := mustRange(t, "2025-01-06", "2025-01-08") // 周一至周三
	if d, ok := firstWeekday(r, time.Wednesday); !ok || d.String() != "2025-01-08" {
		t.Errorf("期望 2025-01-08, 实际 %s %v", d, ok)
	}
	if _, ok := firstWeekday(r, time.Friday); ok {
		t.Error("范围内没有周五时应返回 false")
	}
}
