package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SNU-Hackathon/Doany-sub004/internal/model"
	"github.com/SNU-Hackathon/Doany-sub004/internal/repository"
	"github.com/SNU-Hackathon/Doany-sub004/internal/schedule"
	pkgerrors "github.com/SNU-Hackathon/Doany-sub004/pkg/errors"
	"github.com/SNU-Hackathon/Doany-sub004/pkg/redis"
)

// ── Mock GoalRepository ──

type mockGoalRepo struct {
	goals map[string]*model.Goal
}

func newMockGoalRepo() *mockGoalRepo {
	return &mockGoalRepo{goals: make(map[string]*model.Goal)}
}

func (m *mockGoalRepo) Create(_ context.Context, goal *model.Goal) error {
	if goal.GoalID == "" {
		goal.GoalID = fmt.Sprintf("goal-%d", len(m.goals)+1)
	}
	goal.Version = 1
	cp := *goal
	m.goals[goal.GoalID] = &cp
	return nil
}

func (m *mockGoalRepo) GetByID(_ context.Context, id string) (*model.Goal, error) {
	if g, ok := m.goals[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGoalRepo) List(_ context.Context, ownerID, goalType string, offset, limit int) ([]model.Goal, int64, error) {
	var result []model.Goal
	for _, g := range m.goals {
		if ownerID != "" && g.OwnerID != ownerID {
			continue
		}
		if goalType != "" && g.GoalType != goalType {
			continue
		}
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GoalID < result[j].GoalID })
	total := int64(len(result))
	if offset >= len(result) {
		return []model.Goal{}, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockGoalRepo) ListActiveOn(_ context.Context, date string) ([]model.Goal, error) {
	var result []model.Goal
	for _, g := range m.goals {
		if g.StartDate != "" && g.StartDate <= date && g.EndDate >= date {
			result = append(result, *g)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GoalID < result[j].GoalID })
	return result, nil
}

func (m *mockGoalRepo) Update(_ context.Context, goal *model.Goal) error {
	cur, ok := m.goals[goal.GoalID]
	if !ok || cur.Version != goal.Version {
		return pkgerrors.ErrOptimisticLock
	}
	goal.Version++
	cp := *goal
	m.goals[goal.GoalID] = &cp
	return nil
}

func (m *mockGoalRepo) Delete(_ context.Context, id string) error {
	delete(m.goals, id)
	return nil
}

// ── Mock CalendarEventRepository ──

type mockEventRepo struct {
	events map[string]*model.CalendarEvent
	seq    int
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: make(map[string]*model.CalendarEvent)}
}

func (m *mockEventRepo) Create(_ context.Context, e *model.CalendarEvent) error {
	m.seq++
	if e.EventID == "" {
		e.EventID = fmt.Sprintf("event-%d", m.seq)
	}
	cp := *e
	m.events[e.EventID] = &cp
	return nil
}

func (m *mockEventRepo) BatchCreate(ctx context.Context, events []model.CalendarEvent) error {
	for i := range events {
		if err := m.Create(ctx, &events[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockEventRepo) GetByID(_ context.Context, id string) (*model.CalendarEvent, error) {
	if e, ok := m.events[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEventRepo) ListByGoal(_ context.Context, goalID, from, to string) ([]model.CalendarEvent, error) {
	var result []model.CalendarEvent
	for _, e := range m.events {
		if e.GoalID != goalID {
			continue
		}
		if (from != "" && e.Date < from) || (to != "" && e.Date > to) {
			continue
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Time < result[j].Time
	})
	return result, nil
}

func (m *mockEventRepo) Delete(_ context.Context, id string) error {
	delete(m.events, id)
	return nil
}

func (m *mockEventRepo) DeleteByGoal(_ context.Context, goalID string) error {
	for id, e := range m.events {
		if e.GoalID == goalID {
			delete(m.events, id)
		}
	}
	return nil
}

// ── Mock QuestRepository ──

// mockQuestRepo retired 记录被软删除的任务，CreateBatch 以同一 ID 复活
type mockQuestRepo struct {
	quests  map[string]*model.Quest
	retired map[string]*model.Quest
}

func newMockQuestRepo() *mockQuestRepo {
	return &mockQuestRepo{
		quests:  make(map[string]*model.Quest),
		retired: make(map[string]*model.Quest),
	}
}

func (m *mockQuestRepo) GetByID(_ context.Context, id string) (*model.Quest, error) {
	if q, ok := m.quests[id]; ok {
		cp := *q
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQuestRepo) ListByGoal(_ context.Context, goalID, status string) ([]model.Quest, error) {
	var result []model.Quest
	for _, q := range m.quests {
		if q.GoalID != goalID || (status != "" && q.Status != status) {
			continue
		}
		result = append(result, *q)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MatchKey < result[j].MatchKey })
	return result, nil
}

func (m *mockQuestRepo) CreateBatch(_ context.Context, quests []model.Quest) error {
	for _, q := range quests {
		if _, ok := m.quests[q.QuestID]; ok {
			continue
		}
		delete(m.retired, q.QuestID)
		cp := q
		m.quests[q.QuestID] = &cp
	}
	return nil
}

func (m *mockQuestRepo) Retire(_ context.Context, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if q, ok := m.quests[id]; ok && q.Status == string(schedule.QuestPending) {
			m.retired[id] = q
			delete(m.quests, id)
			n++
		}
	}
	return n, nil
}

func (m *mockQuestRepo) UpdateStatus(_ context.Context, id, status string, completedAt *time.Time) error {
	q, ok := m.quests[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.Status = status
	q.CompletedAt = completedAt
	return nil
}

func (m *mockQuestRepo) DeleteByGoal(_ context.Context, goalID string) error {
	for id, q := range m.quests {
		if q.GoalID == goalID {
			delete(m.quests, id)
		}
	}
	return nil
}

func (m *mockQuestRepo) datesOf(goalID string) []string {
	var out []string
	for _, q := range m.quests {
		if q.GoalID == goalID && q.TargetDate != nil {
			out = append(out, *q.TargetDate)
		}
	}
	sort.Strings(out)
	return out
}

// ── Mock VerificationRepository / SnapshotRepository ──

type mockVerificationRepo struct {
	items []model.Verification
}

func (m *mockVerificationRepo) Create(_ context.Context, v *model.Verification) error {
	v.VerificationID = fmt.Sprintf("ver-%d", len(m.items)+1)
	m.items = append(m.items, *v)
	return nil
}

func (m *mockVerificationRepo) ListByGoal(_ context.Context, goalID string, from, to *time.Time, offset, limit int) ([]model.Verification, int64, error) {
	var result []model.Verification
	for _, v := range m.items {
		if v.GoalID != goalID {
			continue
		}
		if (from != nil && v.OccurredAt.Before(*from)) || (to != nil && !v.OccurredAt.Before(*to)) {
			continue
		}
		result = append(result, v)
	}
	total := int64(len(result))
	if limit <= 0 {
		return result, total, nil
	}
	if offset >= len(result) {
		return []model.Verification{}, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

type mockSnapshotRepo struct {
	snapshots map[string]model.AchievementSnapshot
}

func (m *mockSnapshotRepo) Upsert(_ context.Context, s *model.AchievementSnapshot) error {
	if m.snapshots == nil {
		m.snapshots = make(map[string]model.AchievementSnapshot)
	}
	m.snapshots[s.GoalID+"|"+s.SnapshotDate] = *s
	return nil
}

func (m *mockSnapshotRepo) ListByGoal(_ context.Context, goalID string) ([]model.AchievementSnapshot, error) {
	var out []model.AchievementSnapshot
	for _, s := range m.snapshots {
		if s.GoalID == goalID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SnapshotDate < out[j].SnapshotDate })
	return out, nil
}

// ── Mock Cache ──

type mockCache struct {
	data    map[string][]byte
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	b, ok := m.data[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (m *mockCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func (m *mockCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
		m.deletes++
	}
	return nil
}

// ── 测试环境 ──

type testEnv struct {
	goals         *mockGoalRepo
	events        *mockEventRepo
	quests        *mockQuestRepo
	verifications *mockVerificationRepo
	snapshots     *mockSnapshotRepo
	cache         *mockCache
	repo          *repository.Repository
	svc           *Service
}

// newTestEnv 固定在 today 当天 12:00（UTC）的服务聚合
func newTestEnv(today string) *testEnv {
	env := &testEnv{
		goals:         newMockGoalRepo(),
		events:        newMockEventRepo(),
		quests:        newMockQuestRepo(),
		verifications: &mockVerificationRepo{},
		snapshots:     &mockSnapshotRepo{},
		cache:         newMockCache(),
	}
	env.repo = &repository.Repository{
		Goal:          env.goals,
		CalendarEvent: env.events,
		Quest:         env.quests,
		Verification:  env.verifications,
		Snapshot:      env.snapshots,
	}

	d, err := schedule.ParseDate(today)
	if err != nil {
		panic(err)
	}
	zone := schedule.NewZone(time.UTC)
	now, _ := zone.At(d, "12:00")
	settings := Settings{
		Zone:           zone,
		QuestCap:       schedule.DefaultQuestCap,
		PreviewCap:     schedule.DefaultQuestCap,
		Policy:         schedule.CountEach,
		AchievementTTL: time.Minute,
		Now:            func() time.Time { return now },
	}
	env.svc = NewService(settings, env.repo, env.cache, zap.NewNop())
	return env
}
