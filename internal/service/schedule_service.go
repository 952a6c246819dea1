package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SNU-Hackathon/Doany-sub004/internal/dto"
	"github.com/SNU-Hackathon/Doany-sub004/internal/model"
	"github.com/SNU-Hackathon/Doany-sub004/internal/repository"
	"github.com/SNU-Hackathon/Doany-sub004/internal/schedule"
	pkgerrors "github.com/SNU-Hackathon/Doany-sub004/pkg/errors"
)

// ScheduleService 日程业务接口
//
// 目标的每周模式、包含/排除日期保存在 goals 表，覆盖事件保存在 calendar_events 表。
// 所有修改先在内存中经核心计算得到新的 OverrideStore，再以乐观锁整体写回，
// 随后在同一事务内同步今天及以后的任务。
type ScheduleService interface {
	GetSchedule(ctx context.Context, goalID string) (*dto.ScheduleResponse, error)
	// UpdateSchedule 整体替换周期、每周模式与包含/排除日期
	UpdateSchedule(ctx context.Context, goalID string, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error)
	// ToggleDate 翻转单日排期；默认在目标周期内回写星期模式
	ToggleDate(ctx context.Context, goalID string, req *dto.ToggleDateRequest) (*dto.ScheduleResponse, error)
	// ApplyRange 批量开启或关闭一段日期，只回写一次星期模式
	ApplyRange(ctx context.Context, goalID string, req *dto.ApplyRangeRequest) (*dto.ScheduleResponse, error)
	// Preview 不落库的物化与任务展开
	Preview(ctx context.Context, req *dto.PreviewRequest) (*dto.PreviewResponse, error)

	ListEvents(ctx context.Context, goalID string, req *dto.EventListRequest) ([]dto.EventResponse, error)
	CreateEvent(ctx context.Context, goalID string, req *dto.CreateEventRequest) (*dto.EventResponse, error)
	DeleteEvent(ctx context.Context, goalID, eventID string) error
	// ImportICS 将 ICS 中落在目标周期内的实例导入为覆盖事件
	ImportICS(ctx context.Context, goalID string, r io.Reader) (*dto.ImportEventsResponse, error)

	// Load 读取目标及其解析后的日程
	Load(ctx context.Context, goalID string) (*model.Goal, schedule.Resolved, error)
}

type scheduleService struct {
	settings    Settings
	repo        *repository.Repository
	quest       QuestService
	achievement AchievementService
	logger      *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(
	settings Settings,
	repo *repository.Repository,
	quest QuestService,
	achievement AchievementService,
	logger *zap.Logger,
) ScheduleService {
	return &scheduleService{
		settings:    settings.withDefaults(),
		repo:        repo,
		quest:       quest,
		achievement: achievement,
		logger:      logger,
	}
}

func (s *scheduleService) Load(ctx context.Context, goalID string) (*model.Goal, schedule.Resolved, error) {
	goal, err := s.repo.Goal.GetByID(ctx, goalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, schedule.Resolved{}, ErrGoalNotFound
		}
		s.logger.Error("查询目标失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, schedule.Resolved{}, err
	}
	events, err := s.repo.CalendarEvent.ListByGoal(ctx, goalID, "", "")
	if err != nil {
		s.logger.Error("查询日历事件失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, schedule.Resolved{}, err
	}
	resolved, err := resolveGoal(goal, events)
	if err != nil {
		s.logger.Error("解析目标日程失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, schedule.Resolved{}, err
	}
	return goal, resolved, nil
}

// ════════════════════════════════════════════════════════════
// GetSchedule
// ════════════════════════════════════════════════════════════

func (s *scheduleService) GetSchedule(ctx context.Context, goalID string) (*dto.ScheduleResponse, error) {
	goal, resolved, err := s.Load(ctx, goalID)
	if err != nil {
		return nil, err
	}
	return buildScheduleResponse(goal, resolved), nil
}

func buildScheduleResponse(goal *model.Goal, resolved schedule.Resolved) *dto.ScheduleResponse {
	store := resolved.Store
	resp := &dto.ScheduleResponse{
		GoalID:          goal.GoalID,
		Period:          resolved.Period,
		WeeklyWeekdays:  nonNilInts(store.Pattern.Weekdays()),
		TimeSettings:    store.Pattern.TimeSettings(),
		IncludeDates:    nonNilStrings(store.Include.Strings()),
		ExcludeDates:    nonNilStrings(store.Exclude.Strings()),
		Occurrences:     []dto.OccurrenceResponse{},
		Requirement:     schedule.Requirement{},
		ScheduledRanges: []schedule.DateRange{},
		Weeks:           []schedule.Window{},
		Version:         goal.Version,
	}
	if resolved.Period == nil {
		return resp
	}
	period := *resolved.Period

	req := store.MaterializeWithEvents(period)
	partition := schedule.PartitionCompleteWeeks(period, req)
	resp.Occurrences = toOccurrenceResponses(store.Occurrences(period, true))
	resp.Requirement = req
	resp.ScheduledRanges = req.Ranges()
	resp.RequiredTotal = partition.RequiredTotal
	resp.Weeks = partition.Weeks
	return resp
}

// ────────────────────── 修改 ──────────────────────

func (s *scheduleService) UpdateSchedule(ctx context.Context, goalID string, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	raw := schedule.RawSchedule{
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		WeeklyWeekdays:     req.WeeklyWeekdays,
		WeeklyTimeSettings: req.WeeklyTimeSettings,
		IncludeDates:       req.IncludeDates,
		ExcludeDates:       req.ExcludeDates,
	}
	next, v := raw.Resolve()
	if !v.IsValid {
		return nil, pkgerrors.NewValidationError(v.Reasons...)
	}

	return s.mutate(ctx, goalID, req.Version, func(goal *model.Goal, cur schedule.Resolved) (schedule.Resolved, error) {
		next.Store.Events = cur.Store.Events
		spec, err := goalSpecOf(goal, next)
		if err != nil {
			return schedule.Resolved{}, err
		}
		if v := schedule.ValidateQuestGeneration(spec); !v.IsValid {
			return schedule.Resolved{}, pkgerrors.NewValidationError(v.Reasons...)
		}
		return next, nil
	})
}

func (s *scheduleService) ToggleDate(ctx context.Context, goalID string, req *dto.ToggleDateRequest) (*dto.ScheduleResponse, error) {
	d, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("日期格式应为 YYYY-MM-DD: %s", req.Date))
	}
	scoped := req.Scoped == nil || *req.Scoped

	return s.mutate(ctx, goalID, req.Version, func(_ *model.Goal, cur schedule.Resolved) (schedule.Resolved, error) {
		if cur.Period == nil {
			return schedule.Resolved{}, ErrGoalNoPeriod
		}
		if !cur.Period.Contains(d) {
			return schedule.Resolved{}, ErrDateOutOfPeriod
		}
		var scope *schedule.DateRange
		if scoped {
			scope = cur.Period
		}
		cur.Store = cur.Store.Toggle(d, scope)
		return cur, nil
	})
}

func (s *scheduleService) ApplyRange(ctx context.Context, goalID string, req *dto.ApplyRangeRequest) (*dto.ScheduleResponse, error) {
	start, errS := schedule.ParseDate(req.StartDate)
	end, errE := schedule.ParseDate(req.EndDate)
	if errS != nil || errE != nil {
		return nil, pkgerrors.NewValidationError("日期格式应为 YYYY-MM-DD")
	}
	r := schedule.Normalize(start, end)

	return s.mutate(ctx, goalID, req.Version, func(_ *model.Goal, cur schedule.Resolved) (schedule.Resolved, error) {
		if cur.Period == nil {
			return schedule.Resolved{}, ErrGoalNoPeriod
		}
		if _, ok := r.Clamp(*cur.Period); !ok {
			return schedule.Resolved{}, ErrDateOutOfPeriod
		}
		cur.Store = cur.Store.SetRange(r, *req.Enabled, cur.Period)
		return cur, nil
	})
}

// mutate 读取 → 计算 → 乐观锁写回 → 同步任务，写回与同步在同一事务内
func (s *scheduleService) mutate(
	ctx context.Context,
	goalID string,
	version int,
	change func(goal *model.Goal, cur schedule.Resolved) (schedule.Resolved, error),
) (*dto.ScheduleResponse, error) {
	goal, cur, err := s.Load(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.Version != version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	next, err := change(goal, cur)
	if err != nil {
		return nil, err
	}
	applyPeriod(goal, next.Period)
	if err := applyStore(goal, next.Store); err != nil {
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)
	rollback := func() {
		if tx != nil {
			tx.Rollback()
		}
	}

	if err := txRepo.Goal.Update(ctx, goal); err != nil {
		rollback()
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新目标日程失败", zap.String("goal_id", goalID), zap.Error(err))
		}
		return nil, err
	}
	if _, err := s.quest.SyncGoal(ctx, txRepo, goal); err != nil {
		rollback()
		return nil, err
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}
	s.achievement.Invalidate(ctx, goalID)

	s.logger.Info("目标日程已更新", zap.String("goal_id", goalID), zap.Int("version", goal.Version))
	return buildScheduleResponse(goal, next), nil
}

// ════════════════════════════════════════════════════════════
// Preview 纯计算，不读写数据库
// ════════════════════════════════════════════════════════════

func (s *scheduleService) Preview(_ context.Context, req *dto.PreviewRequest) (*dto.PreviewResponse, error) {
	resp := &dto.PreviewResponse{
		Occurrences: []dto.OccurrenceResponse{},
		Weeks:       []schedule.Window{},
		Quests:      []dto.QuestResponse{},
	}

	resolved, v := definitionSchedule(&req.GoalDefinition).Resolve()
	spec := previewSpec(&req.GoalDefinition, resolved)
	v = v.Merge(schedule.ValidateQuestGeneration(spec))
	resp.Validation = dto.ValidationResponse{IsValid: v.IsValid, Reasons: v.Reasons}

	if resolved.Period != nil {
		period := *resolved.Period
		occ := resolved.Store.Occurrences(period, false)
		if len(occ) > s.settings.PreviewCap {
			occ = occ[:s.settings.PreviewCap]
			resp.Truncated = true
		}
		resp.Occurrences = toOccurrenceResponses(occ)
		resp.Weeks = schedule.PartitionCompleteWeeks(period, resolved.Store.Materialize(period)).Weeks
	}

	if v.IsValid {
		quests, _ := schedule.Expander{Cap: s.settings.PreviewCap + 1}.Expand(spec)
		if len(quests) > s.settings.PreviewCap {
			quests = quests[:s.settings.PreviewCap]
			resp.Truncated = true
		}
		resp.Quests = toQuestResponses(quests)
	}
	return resp, nil
}

func previewSpec(def *dto.GoalDefinition, resolved schedule.Resolved) schedule.GoalSpec {
	methods := make([]schedule.VerificationMethod, 0, len(def.VerificationMethods))
	for _, m := range def.VerificationMethods {
		methods = append(methods, schedule.VerificationMethod(m))
	}
	return schedule.GoalSpec{
		GoalID:      "preview",
		Title:       def.Title,
		Description: def.Description,
		Type:        schedule.GoalType(def.GoalType),
		Period:      resolved.Period,
		Store:       resolved.Store,
		DefaultTime: def.DefaultTime,
		PerWeek:     def.PerWeek,
		Milestones:  def.Milestones,
		Methods:     methods,
	}
}

// ════════════════════════════════════════════════════════════
// 日历事件
// ════════════════════════════════════════════════════════════

// mirrorEventID 每周模式镜像事件不落库，ID 由目标、日期与时刻派生
func mirrorEventID(goalID string, d schedule.Date, clock string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("doany:weekly:"+goalID+":"+d.String()+"T"+clock)).String()
}

// weeklyMirrors 列出 r 内由每周模式派生的时刻
func weeklyMirrors(goalID string, store schedule.OverrideStore, r schedule.DateRange) []dto.EventResponse {
	out := make([]dto.EventResponse, 0)
	r.Each(func(d schedule.Date) bool {
		if !store.Pattern.Has(d.Weekday()) || store.Exclude.Has(d) {
			return true
		}
		for _, clock := range store.Pattern.Times(d.Weekday()) {
			out = append(out, dto.EventResponse{
				ID:      mirrorEventID(goalID, d, clock),
				GoalID:  goalID,
				Date:    d.String(),
				Time:    clock,
				Source:  string(schedule.SourceWeekly),
				GroupID: fmt.Sprintf("weekly-%d", int(d.Weekday())),
			})
		}
		return true
	})
	return out
}

func (s *scheduleService) ListEvents(ctx context.Context, goalID string, req *dto.EventListRequest) ([]dto.EventResponse, error) {
	goal, resolved, err := s.Load(ctx, goalID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.EventResponse, 0)
	if resolved.Period != nil {
		window := *resolved.Period
		if req.From != "" || req.To != "" {
			bound := window
			if d, err := schedule.ParseDate(req.From); err == nil {
				bound.Start = d
			}
			if d, err := schedule.ParseDate(req.To); err == nil {
				bound.End = d
			}
			clamped, ok := window.Clamp(bound)
			if !ok {
				clamped = schedule.DateRange{Start: window.End.AddDays(1), End: window.End}
			}
			window = clamped
		}
		if window.Start.Compare(window.End) <= 0 {
			out = append(out, weeklyMirrors(goal.GoalID, resolved.Store, window)...)
		}
	}

	rows, err := s.repo.CalendarEvent.ListByGoal(ctx, goalID, req.From, req.To)
	if err != nil {
		s.logger.Error("查询日历事件失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, err
	}
	for i := range rows {
		out = append(out, toEventResponse(&rows[i]))
	}

	sortEvents(out)
	return out, nil
}

func sortEvents(events []dto.EventResponse) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.Source > b.Source // weekly 在 override 之前
	})
}

func (s *scheduleService) CreateEvent(ctx context.Context, goalID string, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	_, resolved, err := s.Load(ctx, goalID)
	if err != nil {
		return nil, err
	}
	d, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("日期格式应为 YYYY-MM-DD: %s", req.Date))
	}
	clock, err := schedule.ParseClock(req.Time)
	if err != nil {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("时刻格式应为 HH:MM: %s", req.Time))
	}
	if resolved.Period == nil {
		return nil, ErrGoalNoPeriod
	}
	if !resolved.Period.Contains(d) {
		return nil, ErrDateOutOfPeriod
	}

	event := &model.CalendarEvent{
		GoalID:  goalID,
		Date:    d.String(),
		Time:    clock,
		Source:  string(schedule.SourceOverride),
		GroupID: req.GroupID,
		Title:   req.Title,
	}
	if err := s.repo.CalendarEvent.Create(ctx, event); err != nil {
		s.logger.Error("创建日历事件失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, err
	}
	s.achievement.Invalidate(ctx, goalID)

	resp := toEventResponse(event)
	return &resp, nil
}

func (s *scheduleService) DeleteEvent(ctx context.Context, goalID, eventID string) error {
	event, err := s.repo.CalendarEvent.GetByID(ctx, eventID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询日历事件失败", zap.String("event_id", eventID), zap.Error(err))
			return err
		}
		// 镜像事件不落库，命中镜像 ID 时提示只读
		_, resolved, lerr := s.Load(ctx, goalID)
		if lerr != nil {
			return lerr
		}
		if resolved.Period != nil {
			for _, m := range weeklyMirrors(goalID, resolved.Store, *resolved.Period) {
				if m.ID == eventID {
					return ErrEventReadOnly
				}
			}
		}
		return ErrEventNotFound
	}
	if event.GoalID != goalID {
		return ErrEventNotFound
	}
	if event.Source == string(schedule.SourceWeekly) {
		return ErrEventReadOnly
	}

	if err := s.repo.CalendarEvent.Delete(ctx, eventID); err != nil {
		s.logger.Error("删除日历事件失败", zap.String("event_id", eventID), zap.Error(err))
		return err
	}
	s.achievement.Invalidate(ctx, goalID)
	return nil
}

// ────────────────────── ICS 导入 ──────────────────────

func (s *scheduleService) ImportICS(ctx context.Context, goalID string, r io.Reader) (*dto.ImportEventsResponse, error) {
	_, resolved, err := s.Load(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if resolved.Period == nil {
		return nil, ErrGoalNoPeriod
	}

	parsed, skipped, err := parseICSEvents(r, s.settings.Zone, *resolved.Period)
	if err != nil {
		s.logger.Warn("ICS 解析失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, err
	}

	// 已存在的 (日期, 时刻) 不重复导入
	seen := make(map[string]bool)
	for _, e := range resolved.Store.Events {
		seen[e.Date.String()+" "+e.Time] = true
	}

	resp := &dto.ImportEventsResponse{Errors: skipped}
	events := make([]model.CalendarEvent, 0, len(parsed))
	for _, p := range parsed {
		key := p.Date.String() + " " + p.Time
		if seen[key] {
			resp.Skipped++
			continue
		}
		seen[key] = true
		events = append(events, model.CalendarEvent{
			GoalID:  goalID,
			Date:    p.Date.String(),
			Time:    p.Time,
			Source:  string(schedule.SourceOverride),
			GroupID: truncate(p.UID, 64),
			Title:   truncate(p.Summary, 200),
		})
	}
	resp.Skipped += len(skipped)

	if len(events) > 0 {
		if err := s.repo.CalendarEvent.BatchCreate(ctx, events); err != nil {
			s.logger.Error("导入日历事件失败", zap.String("goal_id", goalID), zap.Error(err))
			return nil, err
		}
		s.achievement.Invalidate(ctx, goalID)
	}
	resp.Imported = len(events)

	s.logger.Info("ICS 导入完成",
		zap.String("goal_id", goalID),
		zap.Int("imported", resp.Imported),
		zap.Int("skipped", resp.Skipped),
	)
	return resp, nil
}

// truncate 按字符截断
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
