package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/SNU-Hackathon/Doany-sub004/internal/dto"
	pkgerrors "github.com/SNU-Hackathon/Doany-sub004/pkg/errors"
)

func boolPtr(b bool) *bool { return &b }

// ── GetSchedule ──

func TestScheduleService_GetSchedule(t *testing.T) {
	env := newTestEnv("2025-01-01")
	id := mustCreate(t, env, morningRun()).Goal.ID

	resp, err := env.svc.Schedule.GetSchedule(context.Background(), id)
	if err != nil {
		t.Fatalf("查询日程失败: %v", err)
	}
	if len(resp.Occurrences) != 6 || resp.RequiredTotal != 6 {
		t.Errorf("期望 6 个排期日期, 实际 occurrences=%d required=%d", len(resp.Occurrences), resp.RequiredTotal)
	}
	if len(resp.Weeks) != 2 || !resp.Weeks[1].Complete {
		t.Errorf("14 天期望 2 个完整周, 实际 %+v", resp.Weeks)
	}
	if len(resp.ScheduledRanges) != 6 {
		t.Errorf("不相邻的日期应各自成段, 实际 %v", resp.ScheduledRanges)
	}
	if resp.Version != 1 {
		t.Errorf("期望版本 1, 实际 %d", resp.Version)
	}
}

func TestScheduleService_GetSchedule_NotFound(t *testing.T) {
	env := newTestEnv("2025-01-01")
	if _, err := env.svc.Schedule.GetSchedule(context.Background(), "missing"); !errors.Is(err, ErrGoalNotFound) {
		t.Errorf("期望 ErrGoalNotFound, 实际 %v", err)
	}
}

// ── ToggleDate ──

func TestScheduleService_ToggleDate_RetiresQuest(t *testing.T) {
	env := newTestEnv("2025-01-01")
	id := mustCreate(t, env, morningRun()).Goal.ID

	resp, err := env.svc.Schedule.ToggleDate(context.Background(), id, &dto.ToggleDateRequest{Date: "2025-01-08", Version: 1})
	if err != nil {
		t.Fatalf("切换失败: %v", err)
	}
	if !reflect.DeepEqual(resp.ExcludeDates, []string{"2025-01-08"}) {
		t.Errorf("期望排除 2025-01-08, 实际 %v", resp.ExcludeDates)
	}
	if resp.Version != 2 || len(resp.Occurrences) != 5 {
		t.Errorf("期望版本 2、5 个排期, 实际 version=%d occurrences=%d", resp.Version, len(resp.Occurrences))
	}
	for _, d := range env.quests.datesOf(id) {
		if d == "2025-01-08" {
			t.Error("被排除日期的 pending 任务应退役")
		}
	}
	if len(env.quests.retired) != 1 {
		t.Errorf("期望退役 1 个任务, 实际 %d", len(env.quests.retired))
	}

	// 再次开启：同一 ID 的任务复活
	if _, err := env.svc.Schedule.ToggleDate(context.Background(), id, &dto.ToggleDateRequest{Date: "2025-01-08", Version: 2}); err != nil {
		t.Fatalf("切换失败: %v", err)
	}
	if got := env.quests.datesOf(id); len(got) != 6 || len(env.quests.retired) != 0 {
		t.Errorf("期望恢复 6 个任务, 实际 %v", got)
	}
}

func TestScheduleService_ToggleDate_DropsWeekday(t *testing.T) {
	env := newTestEnv("2025-01-01")
	id := mustCreate(t, env, morningRun()).Goal.ID

	ctx := context.Background()
	if _, err := env.svc.Schedule.ToggleDate(ctx, id, &dto.ToggleDateRequest{Date: "2025-01-08", Version: 1}); err != nil {
		t.Fatalf("切换失败: %v", err)
	}
	resp, err := env.svc.Schedule.ToggleDate(ctx, id, &dto.ToggleDateRequest{Date: "2025-01-15", Version: 2})
	if err != nil {
		t.Fatalf("切换失败: %v", err)
	}
	if !reflect.DeepEqual(resp.WeeklyWeekdays, []int{1, 5}) {
		t.Errorf("周期内所有周三被排除后应停用周三, 实际 %v", resp.WeeklyWeekdays)
	}
	if len(resp.Occurrences) != 4 || len(env.quests.datesOf(id)) != 4 {
		t.Errorf("期望剩余 4 个排期与任务, 实际 %d / %d", len(resp.Occurrences), len(env.quests.datesOf(id)))
	}
}

func TestScheduleService_ToggleDate_Unscoped(t *testing.T) {
	env := newTestEnv("2025-01-01")
	id := mustCreate(t, env, morningRun()).Goal.ID

	resp, err := env.svc.Schedule.ToggleDate(context.Background(), id, &dto.ToggleDateRequest{
		Date: "2025-01-07", Scoped: boolPtr(false), Version: 1,
	})
	if err != nil {
		t.Fatalf("切换失败: %v", err)
	}
	if !reflect.DeepEqual(resp.IncludeDates, []string{"2025-01-07"}) || !reflect.DeepEqual(resp.WeeklyWeekdays, []int{1, 3, 5}) {
		t.Errorf("不回写时只应新增包含日期, 实际 include=%v weekdays=%v", resp.IncludeDates, resp.WeeklyWeekdays)
	}
	if got := env.quests.datesOf(id); len(got) != 7 {
		t.Errorf("期望新增 1 个任务共 7 个, 实际 %v", got)
	}
}

func TestScheduleService_ToggleDate_Errors(t *testing.T) {
	env := newTestEnv("2025-01-01")
	id := mustCreate(t, env, morningRun()).Goal.ID
	ctx := context.Background()

	if _, err := env.svc.Schedule.ToggleDate(ctx, id, &dto.ToggleDateRequest{Date: "2025-02-01", Version: 1}); !errors.Is(err, ErrDateOutOfPeriod) {
		t.Errorf("期望 ErrDateOutOfPeriod, 实际 %v", err)
	}
	if _, err := env.svc.Schedule.ToggleDate(ctx, id, &dto.ToggleDateRequest{Date: "2025-01-08", Version: 9}); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock, 实际 %v", err)
	}
}

// ── ApplyRange ──

func TestScheduleService_ApplyRange_Disable(t *testing.T) {
	env := newTestEnv("2025-01-01")
	id := mustCreate(t, env, morningRun()).Goal.ID

	resp, err := env.svc.Schedule.ApplyRange(context.Background(), id, &dto.ApplyRangeRequest{
		StartDate: "2025-01-13", EndDate: "2025-01-19", Enabled: boolPtr(false), Version: 1,
	})
	if err != nil {
		t.Fatalf("批量关闭失败: %v", err)
	}
	if !reflect.DeepEqual(resp.ExcludeDates, []string{"2025-01-13", "2025-01-15", "2025-01-17"}) {
		t.Errorf("期望排除第二周三天, 实际 %v", resp.ExcludeDates)
	}
	if resp.RequiredTotal != 3 || len(env.quests.datesOf(id)) != 3 {
		t.Errorf("期望需求与任务均为 3, 实际 %d / %d", resp.RequiredTotal, len(env.quests.datesOf(id)))
	}
}

func TestScheduleService_ApplyRange_EnableWholePeriod(t *testing.T) {
	env := newTestEnv("2025-01-01")
	id := mustCreate(t, env, morningRun()).Goal.ID

	resp, err := env.svc.Schedule.ApplyRange(context.Background(), id, &dto.ApplyRangeRequest{
		StartDate: "2025-01-06", EndDate: "2025-01-19", Enabled: boolPtr(true), Version: 1,
	})
	if err != nil {
		t.Fatalf("批量开启失败: %v", err)
	}
	if len(resp.WeeklyWeekdays) != 7 || len(resp.IncludeDates) != 0 {
		t.Errorf("全部开启后应回写为每天且无包含日期, 实际 weekdays=%v include=%v", resp.WeeklyWeekdays, resp.IncludeDates)
	}
	if got := env.quests.datesOf(id); len(got) != 14 {
		t.Errorf("期望 14 个任务, 实际 %d", len(got))
	}
}

// ── Preview ──

func TestScheduleService_Preview(t *testing.T) {
	env := newTestEnv("2025-01-01")

	resp, err := env.svc.Schedule.Preview(context.Background(), &dto.PreviewRequest{GoalDefinition: morningRun().GoalDefinition})
	if err != nil {
		t.Fatalf("预览失败: %v", err)
	}
	if !resp.Validation.IsValid || len(resp.Occurrences) != 6 || len(resp.Quests) != 6 {
		t.Errorf("期望校验通过且 6 个排期/任务, 实际 %+v", resp.Validation)
	}
	if len(env.goals.goals) != 0 || len(env.quests.quests) != 0 {
		t.Error("预览不应写库")
	}
}

func TestScheduleService_Preview_InvalidKeepsReasons(t *testing.T) {
	env := newTestEnv("2025-01-01")
	def := morningRun().GoalDefinition
	def.WeeklyWeekdays = nil
	def.WeeklyTimeSettings = nil
	def.DefaultTime = ""

	resp, err := env.svc.Schedule.Preview(context.Background(), &dto.PreviewRequest{GoalDefinition: def})
	if err != nil {
		t.Fatalf("预览失败: %v", err)
	}
	if resp.Validation.IsValid || len(resp.Validation.Reasons) < 2 {
		t.Errorf("期望列出全部失败原因, 实际 %v", resp.Validation.Reasons)
	}
	if len(resp.Quests) != 0 {
		t.Error("校验失败时不应展开任务")
	}
}

func TestScheduleService_Preview_Truncated(t *testing.T) {
	env := newTestEnv("2025-01-01")
	def := morningRun().GoalDefinition
	def.EndDate = "2025-12-31"
	def.WeeklyWeekdays = []int{0, 1, 2, 3, 4, 5, 6}

	resp, _ := env.svc.Schedule.Preview(context.Background(), &dto.PreviewRequest{GoalDefinition: def})
	if !resp.Truncated || len(resp.Occurrences) != 100 || len(resp.Quests) != 100 {
		t.Errorf("期望截断为 100, 实际 occurrences=%d quests=%d", len(resp.Occurrences), len(resp.Quests))
	}
}

// ── 日历事件 ──

func TestScheduleService_EventsAffectRequirement(t *testing.T) {
	env := newTestEnv("2025-01-01")
	id := mustCreate(t, env, morningRun()).Goal.ID
	ctx := context.Background()

	for _, req := range []dto.CreateEventRequest{
		{Date: "2025-01-06", Time: "18:00"}, // 周一额外一次
		{Date: "2025-01-07", Time: "19:00"}, // 非排期日
	} {
		if _, err := env.svc.Schedule.CreateEvent(ctx, id, &req); err != nil {
			t.Fatalf("创建事件失败: %v", err)
		}
	}

	resp, err := env.svc.Schedule.GetSchedule(ctx, id)
	if err != nil {
		t.Fatalf("查询日程失败: %v", err)
	}
	if len(resp.Occurrences) != 7 || resp.RequiredTotal != 8 {
		t.Errorf("期望 7 个排期、需求 8, 实际 %d / %d", len(resp.Occurrences), resp.RequiredTotal)
	}
	if !reflect.DeepEqual(resp.Occurrences[0].Times, []string{"07:00", "18:00"}) {
		t.Errorf("周一时刻应为每周时刻与覆盖事件的并集, 实际 %v", resp.Occurrences[0].Times)
	}
}

func TestScheduleService_CreateEvent_OutOfPeriod(t *testing.T) {
	env := newTestEnv("2025-01-01")
	id := mustCreate(t, env, morningRun()).Goal.ID
	_, err := env.svc.Schedule.CreateEvent(context.Background(), id, &dto.CreateEventRequest{Date: "2025-03-01", Time: "08:00"})
	if !errors.Is(err, ErrDateOutOfPeriod) {
		t.Errorf("期望 ErrDateOutOfPeriod, 实际 %v", err)
	}
}

func TestScheduleService_ListAndDeleteEvents(t *testing.T) {
	env := newTestEnv("2025-01-01")
	id := mustCreate(t, env, morningRun()).Goal.ID
	ctx := context.Background()

	created, err := env.svc.Schedule.CreateEvent(ctx, id, &dto.CreateEventRequest{Date: "2025-01-07", Time: "19:00"})
	if err != nil {
		t.Fatalf("创建事件失败: %v", err)
	}

	events, err := env.svc.Schedule.ListEvents(ctx, id, &dto.EventListRequest{})
	if err != nil {
		t.Fatalf("查询事件失败: %v", err)
	}
	// 只有周一设置了时刻：01-06、01-13 两条镜像 + 1 条覆盖
	if len(events) != 3 {
		t.Fatalf("期望 3 条事件, 实际 %+v", events)
	}
	if events[0].Source != "weekly" || events[1].ID != created.ID || events[2].Date != "2025-01-13" {
		t.Errorf("事件应按日期排序, 实际 %+v", events)
	}

	if err := env.svc.Schedule.DeleteEvent(ctx, id, events[0].ID); !errors.Is(err, ErrEventReadOnly) {
		t.Errorf("删除镜像事件期望 ErrEventReadOnly, 实际 %v", err)
	}
	if err := env.svc.Schedule.DeleteEvent(ctx, id, "missing"); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("期望 ErrEventNotFound, 实际 %v", err)
	}
	if err := env.svc.Schedule.DeleteEvent(ctx, id, created.ID); err != nil {
		t.Fatalf("删除覆盖事件失败: %v", err)
	}
	if len(env.events.events) != 0 {
		t.Error("覆盖事件应被删除")
	}
}

// ── ICS 导入 ──

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:gym@example.com\r\n" +
	"SUMMARY:健身房\r\n" +
	"DTSTART:20250107T190000Z\r\n" +
	"DTEND:20250107T200000Z\r\n" +
	"RRULE:FREQ=WEEKLY;COUNT=3\r\n" +
	"EXDATE:20250114T190000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:single@example.com\r\n" +
	"SUMMARY:补练\r\n" +
	"DTSTART:20250110T080000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:holiday@example.com\r\n" +
	"SUMMARY:休息日\r\n" +
	"DTSTART;VALUE=DATE:20250112\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestScheduleService_ImportICS(t *testing.T) {
	env := newTestEnv("2025-01-01")
	id := mustCreate(t, env, morningRun()).Goal.ID
	ctx := context.Background()

	resp, err := env.svc.Schedule.ImportICS(ctx, id, strings.NewReader(sampleICS))
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	// 01-07 导入；01-14 被 EXDATE 排除；01-21 超出周期；全天事件跳过
	if resp.Imported != 2 || resp.Skipped != 1 || len(resp.Errors) != 1 {
		t.Errorf("期望导入 2 跳过 1, 实际 %+v", resp)
	}
	got := map[string]bool{}
	for _, e := range env.events.events {
		got[e.Date+" "+e.Time] = true
		if e.Source != "override" {
			t.Errorf("导入的事件应为 override, 实际 %s", e.Source)
		}
	}
	if !got["2025-01-07 19:00"] || !got["2025-01-10 08:00"] {
		t.Errorf("导入结果不符, 实际 %v", got)
	}

	again, err := env.svc.Schedule.ImportICS(ctx, id, strings.NewReader(sampleICS))
	if err != nil {
		t.Fatalf("重复导入失败: %v", err)
	}
	if again.Imported != 0 || again.Skipped != 3 {
		t.Errorf("重复导入应全部跳过, 实际 %+v", again)
	}
}

func TestScheduleService_ImportICS_Malformed(t *testing.T) {
	env := newTestEnv("2025-01-01")
	id := mustCreate(t, env, morningRun()).Goal.ID
	_, err := env.svc.Schedule.ImportICS(context.Background(), id, strings.NewReader("not a calendar"))
	if !errors.Is(err, ErrICSParse) {
		t.Errorf("期望 ErrICSParse, 实际 %v", err)
	}
}
