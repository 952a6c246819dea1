package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/SNU-Hackathon/Doany-sub004/internal/schedule"
)

// ExportService 导出业务接口
//
// 导出内容以 bytes.Buffer 返回，由 Handler 层设置响应头后写入。
type ExportService interface {
	// ExportAchievement 达成率导出为 Excel：概览、逐日、按周三个 Sheet
	ExportAchievement(ctx context.Context, goalID string) (*bytes.Buffer, string, error)
	// ExportCalendar 物化后的日程导出为 iCalendar
	ExportCalendar(ctx context.Context, goalID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	settings    Settings
	schedule    ScheduleService
	achievement AchievementService
	logger      *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(
	settings Settings,
	sched ScheduleService,
	achievement AchievementService,
	logger *zap.Logger,
) ExportService {
	return &exportService{
		settings:    settings.withDefaults(),
		schedule:    sched,
		achievement: achievement,
		logger:      logger,
	}
}

// ═══════════════════════════════════════════════════════════
// ExportAchievement
// ═══════════════════════════════════════════════════════════
//
// Sheet「概览」：目标、周期、策略、需完成 / 已达成 / 达成率
// Sheet「逐日」：日期 | 星期 | 需完成 | 成功 | 失败 | 达成
// Sheet「按周」：周次 | 起止 | 需完成 | 成功 | 达成

func (s *exportService) ExportAchievement(ctx context.Context, goalID string) (*bytes.Buffer, string, error) {
	goal, resolved, err := s.schedule.Load(ctx, goalID)
	if err != nil {
		return nil, "", err
	}
	ach, err := s.achievement.Get(ctx, goalID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// ── 概览 ──
	overview := "概览"
	idx, _ := f.NewSheet(overview)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")
	f.SetColWidth(overview, "A", "A", 14)
	f.SetColWidth(overview, "B", "B", 36)

	period := "-"
	if resolved.Period != nil {
		period = fmt.Sprintf("%s ~ %s", resolved.Period.Start, resolved.Period.End)
	}
	complete := "-"
	if ach.CompleteRange != nil {
		complete = fmt.Sprintf("%s ~ %s", ach.CompleteRange.Start, ach.CompleteRange.End)
	}
	rows := [][2]interface{}{
		{"目标", goal.Title},
		{"类型", goal.GoalType},
		{"周期", period},
		{"统计区间", complete},
		{"计数策略", ach.Policy},
		{"时区", ach.Timezone},
		{"需完成", ach.RequiredTotal},
		{"已达成", ach.TotalAchieved},
		{"达成率", fmt.Sprintf("%d%%", ach.Percent)},
		{"计算时间", ach.ComputedAt},
	}
	for i, r := range rows {
		f.SetCellValue(overview, cell("A", i+1), r[0])
		f.SetCellValue(overview, cell("B", i+1), r[1])
	}
	f.SetCellStyle(overview, "A1", cell("A", len(rows)), headerStyle)

	// ── 逐日 ──
	daily := "逐日"
	f.NewSheet(daily)
	writeHeader(f, daily, headerStyle, []string{"日期", "星期", "需完成", "成功", "失败", "达成"})
	for i, d := range ach.Days {
		row := i + 2
		f.SetCellValue(daily, cell("A", row), d.Date.String())
		f.SetCellValue(daily, cell("B", row), schedule.WeekdayName(d.Date.Weekday()))
		f.SetCellValue(daily, cell("C", row), d.Required)
		f.SetCellValue(daily, cell("D", row), d.Success)
		f.SetCellValue(daily, cell("E", row), d.Fail)
		f.SetCellValue(daily, cell("F", row), d.Achieved)
	}

	// ── 按周 ──
	weekly := "按周"
	f.NewSheet(weekly)
	writeHeader(f, weekly, headerStyle, []string{"周次", "开始", "结束", "需完成", "成功", "达成"})
	for i, w := range ach.Weeks {
		row := i + 2
		f.SetCellValue(weekly, cell("A", row), fmt.Sprintf("第%d周", w.Index))
		f.SetCellValue(weekly, cell("B", row), w.Range.Start.String())
		f.SetCellValue(weekly, cell("C", row), w.Range.End.String())
		f.SetCellValue(weekly, cell("D", row), w.Required)
		f.SetCellValue(weekly, cell("E", row), w.Success)
		f.SetCellValue(weekly, cell("F", row), w.Achieved)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("达成率_%s.xlsx", goal.Title), nil
}

func writeHeader(f *excelize.File, sheet string, style int, titles []string) {
	for i, t := range titles {
		f.SetCellValue(sheet, cell(colName(i), 1), t)
		f.SetColWidth(sheet, colName(i), colName(i), 12)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(titles)-1), 1), style)
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportCalendar(ctx context.Context, goalID string) (*bytes.Buffer, string, error) {
	goal, resolved, err := s.schedule.Load(ctx, goalID)
	if err != nil {
		return nil, "", err
	}
	if resolved.Period == nil {
		return nil, "", ErrGoalNoPeriod
	}

	cal, err := buildCalendar(calendarInput{
		GoalID:      goal.GoalID,
		Title:       goal.Title,
		Description: goal.Description,
		Period:      *resolved.Period,
		Store:       resolved.Store,
		Zone:        s.settings.Zone,
		Stamp:       s.settings.Now(),
	})
	if err != nil {
		s.logger.Error("生成日历失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, fmt.Sprintf("%s.ics", goal.Title), nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
