package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SNU-Hackathon/Doany-sub004/internal/dto"
	"github.com/SNU-Hackathon/Doany-sub004/internal/schedule"
)

// ── ExportAchievement ──

func TestExportService_ExportAchievement(t *testing.T) {
	env := newTestEnv("2025-01-20")
	id := mustCreate(t, env, morningRun()).Goal.ID
	record(t, env, id, "2025-01-06 08:00", "success")
	record(t, env, id, "2025-01-08 08:00", "success")
	record(t, env, id, "2025-01-13 08:00", "success")

	buf, filename, err := env.svc.Export.ExportAchievement(context.Background(), id)
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	if filename != "达成率_晨跑.xlsx" {
		t.Errorf("文件名不符, 实际 %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("打开 Excel 失败: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 3 || sheets[0] != "概览" || sheets[1] != "逐日" || sheets[2] != "按周" {
		t.Fatalf("期望 概览/逐日/按周 三个 Sheet, 实际 %v", sheets)
	}

	if v, _ := f.GetCellValue("概览", "B9"); v != "50%" {
		t.Errorf("达成率期望 50%%, 实际 %s", v)
	}
	rows, _ := f.GetRows("逐日")
	if len(rows) != 7 {
		t.Errorf("逐日期望表头 + 6 行, 实际 %d 行", len(rows))
	}
	if v, _ := f.GetCellValue("逐日", "B2"); v != "周一" {
		t.Errorf("首行星期期望 周一, 实际 %s", v)
	}
	if v, _ := f.GetCellValue("按周", "A3"); v != "第2周" {
		t.Errorf("按周第二行期望 第2周, 实际 %s", v)
	}
}

func TestExportService_ExportAchievement_NotFound(t *testing.T) {
	env := newTestEnv("2025-01-01")
	if _, _, err := env.svc.Export.ExportAchievement(context.Background(), "missing"); !errors.Is(err, ErrGoalNotFound) {
		t.Errorf("期望 ErrGoalNotFound, 实际 %v", err)
	}
}

// ── ExportCalendar ──

func TestExportService_ExportCalendar(t *testing.T) {
	env := newTestEnv("2025-01-01")
	id := mustCreate(t, env, morningRun()).Goal.ID
	ctx := context.Background()

	if _, err := env.svc.Schedule.ToggleDate(ctx, id, &dto.ToggleDateRequest{Date: "2025-01-13", Version: 1}); err != nil {
		t.Fatalf("切换失败: %v", err)
	}
	if _, err := env.svc.Schedule.ToggleDate(ctx, id, &dto.ToggleDateRequest{Date: "2025-01-11", Scoped: boolPtr(false), Version: 2}); err != nil {
		t.Fatalf("切换失败: %v", err)
	}
	if _, err := env.svc.Schedule.CreateEvent(ctx, id, &dto.CreateEventRequest{Date: "2025-01-07", Time: "19:00"}); err != nil {
		t.Fatalf("创建事件失败: %v", err)
	}

	buf, filename, err := env.svc.Export.ExportCalendar(ctx, id)
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	if filename != "晨跑.ics" {
		t.Errorf("文件名不符, 实际 %s", filename)
	}

	out := buf.String()
	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"FREQ=WEEKLY",
		"BYDAY=MO",
		"BYDAY=WE",
		"BYDAY=FR",
		"EXDATE",
		"20250113",
		"20250111",
		"DTSTART:20250107T190000Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("导出的日历缺少 %q", want)
		}
	}
	if n := strings.Count(out, "BEGIN:VEVENT"); n != 5 {
		t.Errorf("期望 3 条每周事件 + 1 条包含日期 + 1 条覆盖事件, 实际 %d", n)
	}
}

func TestExportService_ExportCalendar_RoundTrip(t *testing.T) {
	env := newTestEnv("2025-01-01")
	id := mustCreate(t, env, morningRun()).Goal.ID
	ctx := context.Background()

	buf, _, err := env.svc.Export.ExportCalendar(ctx, id)
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}

	// 导出的周一 07:00 系列可被重新解析为两次实例
	g, resolved, err := env.svc.Schedule.Load(ctx, id)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	events, _, err := parseICSEvents(strings.NewReader(buf.String()), schedule.NewZone(time.UTC), *resolved.Period)
	if err != nil {
		t.Fatalf("重新解析失败: %v", err)
	}
	var mondays []string
	for _, e := range events {
		if e.Time == "07:00" {
			mondays = append(mondays, e.Date.String())
		}
	}
	if len(mondays) != 2 || mondays[0] != "2025-01-06" || mondays[1] != "2025-01-13" {
		t.Errorf("目标 %s 期望周一两次实例, 实际 %v", g.Title, mondays)
	}
}
