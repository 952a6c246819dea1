package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SNU-Hackathon/Doany-sub004/internal/dto"
	"github.com/SNU-Hackathon/Doany-sub004/internal/model"
	"github.com/SNU-Hackathon/Doany-sub004/internal/schedule"
)

const timestampLayout = "2006-01-02T15:04:05Z07:00"

// ── 目标 ⇄ 日程核心 ──

// rawScheduleOf 把持久化的目标与事件还原为核心的原始输入
func rawScheduleOf(goal *model.Goal, events []model.CalendarEvent) (schedule.RawSchedule, error) {
	settings, err := goal.TimeSettings()
	if err != nil {
		return schedule.RawSchedule{}, fmt.Errorf("解析 weekly_time_settings 失败: %w", err)
	}
	raw := schedule.RawSchedule{
		StartDate:          goal.StartDate,
		EndDate:            goal.EndDate,
		WeeklyWeekdays:     goal.WeeklyWeekdays,
		WeeklyTimeSettings: settings,
		IncludeDates:       goal.IncludeDates,
		ExcludeDates:       goal.ExcludeDates,
	}
	for _, e := range events {
		raw.Events = append(raw.Events, schedule.RawEvent{
			Date:    e.Date,
			Time:    e.Time,
			Source:  e.Source,
			GroupID: e.GroupID,
		})
	}
	return raw, nil
}

// resolveGoal 已保存的目标在写入时校验过，这里的失败原因视为数据损坏
func resolveGoal(goal *model.Goal, events []model.CalendarEvent) (schedule.Resolved, error) {
	raw, err := rawScheduleOf(goal, events)
	if err != nil {
		return schedule.Resolved{}, err
	}
	resolved, v := raw.Resolve()
	if !v.IsValid {
		return schedule.Resolved{}, fmt.Errorf("目标 %s 的日程数据无效: %v", goal.GoalID, v.Reasons)
	}
	return resolved, nil
}

// goalSpecOf 组装任务展开输入
func goalSpecOf(goal *model.Goal, resolved schedule.Resolved) (schedule.GoalSpec, error) {
	milestones, err := goal.MilestoneLabels()
	if err != nil {
		return schedule.GoalSpec{}, fmt.Errorf("解析 milestones 失败: %w", err)
	}
	methods := make([]schedule.VerificationMethod, 0, len(goal.VerificationMethods))
	for _, m := range goal.VerificationMethods {
		methods = append(methods, schedule.VerificationMethod(m))
	}
	return schedule.GoalSpec{
		GoalID:      goal.GoalID,
		Title:       goal.Title,
		Description: goal.Description,
		Type:        schedule.GoalType(goal.GoalType),
		Period:      resolved.Period,
		Store:       resolved.Store,
		DefaultTime: goal.DefaultTime,
		PerWeek:     goal.PerWeek,
		Milestones:  milestones,
		Methods:     methods,
	}, nil
}

// applyStore 把核心计算后的模式与覆盖写回目标（规范化后的形态）
func applyStore(goal *model.Goal, store schedule.OverrideStore) error {
	goal.WeeklyWeekdays = model.IntArray(store.Pattern.Weekdays())
	goal.IncludeDates = model.StringArray(store.Include.Strings())
	goal.ExcludeDates = model.StringArray(store.Exclude.Strings())
	return goal.SetTimeSettings(store.Pattern.TimeSettings())
}

// applyPeriod 写回周期；nil 表示未设置
func applyPeriod(goal *model.Goal, period *schedule.DateRange) {
	goal.StartDate, goal.EndDate = "", ""
	if period != nil {
		goal.StartDate = period.Start.String()
		goal.EndDate = period.End.String()
	}
}

// definitionSchedule 从请求体构造原始日程
func definitionSchedule(def *dto.GoalDefinition) schedule.RawSchedule {
	return schedule.RawSchedule{
		StartDate:          def.StartDate,
		EndDate:            def.EndDate,
		WeeklyWeekdays:     def.WeeklyWeekdays,
		WeeklyTimeSettings: def.WeeklyTimeSettings,
		IncludeDates:       def.IncludeDates,
		ExcludeDates:       def.ExcludeDates,
	}
}

// ── 任务 ⇄ 模型 ──

func questModelOf(q schedule.Quest) (model.Quest, error) {
	rules, err := json.Marshal(q.VerificationRules)
	if err != nil {
		return model.Quest{}, err
	}
	m := model.Quest{
		QuestID:           q.ID,
		GoalID:            q.GoalID,
		MatchKey:          q.MatchKey(),
		Title:             q.Title,
		Description:       q.Description,
		WeekNumber:        q.WeekNumber,
		Sequence:          q.Sequence,
		Times:             model.StringArray(q.Times),
		VerificationRules: rules,
		Status:            string(q.Status),
	}
	if m.Times == nil {
		m.Times = model.StringArray{}
	}
	if q.TargetDate != nil {
		s := q.TargetDate.String()
		m.TargetDate = &s
	}
	return m, nil
}

func questOfModel(m model.Quest) (schedule.Quest, error) {
	q := schedule.Quest{
		ID:          m.QuestID,
		GoalID:      m.GoalID,
		Title:       m.Title,
		Description: m.Description,
		WeekNumber:  m.WeekNumber,
		Sequence:    m.Sequence,
		Times:       m.Times,
		Status:      schedule.QuestStatus(m.Status),
	}
	if m.TargetDate != nil && *m.TargetDate != "" {
		d, err := schedule.ParseDate(*m.TargetDate)
		if err != nil {
			return schedule.Quest{}, err
		}
		q.TargetDate = &d
	}
	if len(m.VerificationRules) > 0 {
		if err := json.Unmarshal(m.VerificationRules, &q.VerificationRules); err != nil {
			return schedule.Quest{}, err
		}
	}
	return q, nil
}

// ── 响应转换 ──

func toGoalResponse(g *model.Goal) dto.GoalResponse {
	settings, _ := g.TimeSettings()
	if settings == nil {
		settings = map[string][]string{}
	}
	milestones, _ := g.MilestoneLabels()
	return dto.GoalResponse{
		ID:                  g.GoalID,
		OwnerID:             g.OwnerID,
		Title:               g.Title,
		Description:         g.Description,
		GoalType:            g.GoalType,
		StartDate:           g.StartDate,
		EndDate:             g.EndDate,
		WeeklyWeekdays:      nonNilInts(g.WeeklyWeekdays),
		WeeklyTimeSettings:  settings,
		IncludeDates:        nonNilStrings(g.IncludeDates),
		ExcludeDates:        nonNilStrings(g.ExcludeDates),
		DefaultTime:         g.DefaultTime,
		PerWeek:             g.PerWeek,
		Milestones:          milestones,
		VerificationMethods: nonNilStrings(g.VerificationMethods),
		Version:             g.Version,
		CreatedAt:           g.CreatedAt.Format(timestampLayout),
		UpdatedAt:           g.UpdatedAt.Format(timestampLayout),
	}
}

func toQuestResponse(q schedule.Quest) dto.QuestResponse {
	resp := dto.QuestResponse{
		ID:                q.ID,
		GoalID:            q.GoalID,
		Title:             q.Title,
		Description:       q.Description,
		WeekNumber:        q.WeekNumber,
		Sequence:          q.Sequence,
		Times:             q.Times,
		VerificationRules: q.VerificationRules,
		Status:            string(q.Status),
	}
	if q.TargetDate != nil {
		resp.TargetDate = q.TargetDate.String()
	}
	return resp
}

func toQuestResponses(quests []schedule.Quest) []dto.QuestResponse {
	out := make([]dto.QuestResponse, 0, len(quests))
	for _, q := range quests {
		out = append(out, toQuestResponse(q))
	}
	return out
}

func toEventResponse(e *model.CalendarEvent) dto.EventResponse {
	return dto.EventResponse{
		ID:      e.EventID,
		GoalID:  e.GoalID,
		Date:    e.Date,
		Time:    e.Time,
		Source:  e.Source,
		GroupID: e.GroupID,
		Title:   e.Title,
	}
}

func toOccurrenceResponses(occ []schedule.Occurrence) []dto.OccurrenceResponse {
	out := make([]dto.OccurrenceResponse, 0, len(occ))
	for _, o := range occ {
		out = append(out, dto.OccurrenceResponse{
			Date:    o.Date.String(),
			Weekday: int(o.Date.Weekday()),
			Count:   o.Count,
			Times:   o.Times,
		})
	}
	return out
}

func toVerificationResponse(v *model.Verification, zone schedule.Zone) dto.VerificationResponse {
	return dto.VerificationResponse{
		ID:         v.VerificationID,
		GoalID:     v.GoalID,
		QuestID:    v.QuestID,
		OccurredAt: v.OccurredAt.In(zone.Location()).Format(timestampLayout),
		Date:       zone.DateOf(v.OccurredAt).String(),
		Status:     v.Status,
		Method:     v.Method,
		Note:       v.Note,
	}
}

func nonNilInts(a []int) []int {
	if a == nil {
		return []int{}
	}
	return a
}

func nonNilStrings(a []string) []string {
	if a == nil {
		return []string{}
	}
	return a
}

// dayBounds 日期区间在时区下对应的 [from, to) 时间范围
func dayBounds(zone schedule.Zone, r schedule.DateRange) (time.Time, time.Time) {
	return zone.Midnight(r.Start), zone.Midnight(r.End.AddDays(1))
}
