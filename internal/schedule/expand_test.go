package schedule

import (
	"reflect"
	"testing"
)

func scheduleSpec(t *testing.T, start, end string, weekdays ...int) GoalSpec {
	t.Helper()
	p, err := NewWeeklyPattern(weekdays, nil)
	if err != nil {
		t.Fatalf("NewWeeklyPattern 失败: %v", err)
	}
	period := rng(t, start, end)
	return GoalSpec{
		GoalID:      "goal-1",
		Title:       "晨跑",
		Type:        GoalTypeSchedule,
		Period:      &period,
		Store:       OverrideStore{Pattern: p, Include: DateSet{}, Exclude: DateSet{}},
		DefaultTime: "07:00",
	}
}

func TestExpand_Schedule(t *testing.T) {
	spec := scheduleSpec(t, "2025-01-06", "2025-01-19", 1, 3, 5)
	spec.Store.Exclude = NewDateSet(mustDate(t, "2025-01-08"))

	quests, v := Expander{}.Expand(spec)
	if !v.IsValid {
		t.Fatalf("期望校验通过, 实际 %v", v.Reasons)
	}
	if len(quests) != 5 {
		t.Fatalf("期望 5 个任务, 实际 %d", len(quests))
	}
	first := quests[0]
	if first.TargetDate == nil || first.TargetDate.String() != "2025-01-06" {
		t.Errorf("第一个任务期望 2025-01-06, 实际 %v", first.TargetDate)
	}
	if first.Title != "晨跑 · 周一" {
		t.Errorf("标题期望 '晨跑 · 周一', 实际 %q", first.Title)
	}
	if !reflect.DeepEqual(first.Times, []string{"07:00"}) {
		t.Errorf("无星期时刻时应回退默认时间, 实际 %v", first.Times)
	}
	if first.Status != QuestPending || first.GoalID != "goal-1" || first.ID == "" {
		t.Errorf("任务应带 ID、目标 ID 且为 pending, 实际 %+v", first)
	}
	for _, q := range quests {
		if q.TargetDate.String() == "2025-01-08" {
			t.Error("已排除日期不应生成任务")
		}
	}
}

func TestExpand_FrequencyTwoWeeks(t *testing.T) {
	period := rng(t, "2025-01-06", "2025-01-19")
	spec := GoalSpec{GoalID: "goal-f", Title: "健身", Type: GoalTypeFrequency, Period: &period, PerWeek: 3}

	quests, v := Expander{}.Expand(spec)
	if !v.IsValid {
		t.Fatalf("期望校验通过, 实际 %v", v.Reasons)
	}
	if len(quests) != 6 {
		t.Fatalf("14 天每周 3 次期望 6 个任务, 实际 %d", len(quests))
	}
	perWeek := map[int]int{}
	for _, q := range quests {
		perWeek[q.WeekNumber]++
		if q.TargetDate != nil {
			t.Error("按频率任务不应有具体日期")
		}
	}
	if perWeek[1] != 3 || perWeek[2] != 3 {
		t.Errorf("期望每周 3 个, 实际 %v", perWeek)
	}
	if quests[0].MatchKey() != "week:1:1" || quests[5].MatchKey() != "week:2:3" {
		t.Errorf("顺序应为第1周第1次 ... 第2周第3次, 实际 %s ... %s", quests[0].MatchKey(), quests[5].MatchKey())
	}
}

func TestExpand_FrequencyPartialWeek(t *testing.T) {
	period := rng(t, "2025-01-06", "2025-01-15") // 10 天
	spec := GoalSpec{Title: "健身", Type: GoalTypeFrequency, Period: &period, PerWeek: 2}
	quests, _ := Expander{}.Expand(spec)
	if len(quests) != 4 {
		t.Errorf("ceil(10/7)=2 周期望 4 个任务, 实际 %d", len(quests))
	}
}

func TestExpand_Milestones(t *testing.T) {
	period := rng(t, "2025-01-01", "2025-01-31")
	spec := GoalSpec{
		GoalID: "goal-m", Title: "读书", Type: GoalTypeMilestone, Period: &period,
		Milestones: []string{"开始", "过半", "完成"},
	}

	quests, v := Expander{}.Expand(spec)
	if !v.IsValid {
		t.Fatalf("期望校验通过, 实际 %v", v.Reasons)
	}
	want := []string{"2025-01-01", "2025-01-16", "2025-01-31"}
	if len(quests) != len(want) {
		t.Fatalf("期望 %d 个里程碑, 实际 %d", len(want), len(quests))
	}
	for i, q := range quests {
		if q.TargetDate.String() != want[i] {
			t.Errorf("里程碑 %d 期望 %s, 实际 %s", i+1, want[i], q.TargetDate)
		}
	}

	spec.Milestones = []string{"完成"}
	single, _ := Expander{}.Expand(spec)
	if single[0].TargetDate.String() != "2025-01-31" {
		t.Errorf("单个里程碑应落在周期末尾, 实际 %s", single[0].TargetDate)
	}
}

func TestExpand_TruncatesInChronologicalOrder(t *testing.T) {
	spec := scheduleSpec(t, "2025-01-01", "2025-12-31", 0, 1, 2, 3, 4, 5, 6)

	quests, _ := Expander{}.Expand(spec)
	if len(quests) != DefaultQuestCap {
		t.Fatalf("期望截断为 %d, 实际 %d", DefaultQuestCap, len(quests))
	}
	if quests[0].TargetDate.String() != "2025-01-01" {
		t.Errorf("应保留最早的日期, 实际首个 %s", quests[0].TargetDate)
	}
	if quests[99].TargetDate.String() != "2025-04-10" {
		t.Errorf("第 100 个期望 2025-04-10, 实际 %s", quests[99].TargetDate)
	}
	for i := 1; i < len(quests); i++ {
		if !quests[i-1].TargetDate.Before(*quests[i].TargetDate) {
			t.Fatalf("任务应按时间升序: %s 后是 %s", quests[i-1].TargetDate, quests[i].TargetDate)
		}
	}

	small, _ := Expander{Cap: 10}.Expand(spec)
	if len(small) != 10 {
		t.Errorf("自定义上限期望 10, 实际 %d", len(small))
	}
}

func TestExpand_DeterministicIDs(t *testing.T) {
	spec := scheduleSpec(t, "2025-01-06", "2025-01-19", 1, 3, 5)
	a, _ := Expander{}.Expand(spec)
	b, _ := Expander{}.Expand(spec)
	if !reflect.DeepEqual(a, b) {
		t.Error("相同输入两次展开结果应一致")
	}
	if a[0].ID != QuestID("goal-1", "date:2025-01-06") {
		t.Errorf("任务 ID 应由目标 ID 与匹配键派生, 实际 %s", a[0].ID)
	}
	if a[0].ID == a[1].ID {
		t.Error("不同匹配键不应得到相同 ID")
	}
}

func TestExpandFrom_SkipsPast(t *testing.T) {
	spec := scheduleSpec(t, "2025-01-06", "2025-01-19", 1, 3, 5)
	quests, _ := Expander{}.ExpandFrom(spec, mustDate(t, "2025-01-11"))
	if len(quests) != 3 {
		t.Fatalf("期望 2025-01-11 之后剩余 3 个, 实际 %d", len(quests))
	}
	if quests[0].TargetDate.String() != "2025-01-13" {
		t.Errorf("首个任务期望 2025-01-13, 实际 %s", quests[0].TargetDate)
	}
}

func TestValidateQuestGeneration(t *testing.T) {
	period := rng(t, "2025-01-06", "2025-01-19")
	tests := []struct {
		name string
		spec GoalSpec
	}{
		{"缺少标题", GoalSpec{Type: GoalTypeFrequency, Period: &period, PerWeek: 1}},
		{"缺少周期", GoalSpec{Title: "x", Type: GoalTypeFrequency, PerWeek: 1}},
		{"日程无星期", GoalSpec{Title: "x", Type: GoalTypeSchedule, Period: &period, DefaultTime: "07:00"}},
		{"日程无时间", scheduleSpecNoTime(t)},
		{"频率为 0", GoalSpec{Title: "x", Type: GoalTypeFrequency, Period: &period}},
		{"无里程碑", GoalSpec{Title: "x", Type: GoalTypeMilestone, Period: &period}},
		{"未知类型", GoalSpec{Title: "x", Type: "habit", Period: &period}},
		{"未知验证方式", GoalSpec{Title: "x", Type: GoalTypeFrequency, Period: &period, PerWeek: 1, Methods: []VerificationMethod{"face"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quests, v := Expander{}.Expand(tt.spec)
			if v.IsValid || len(v.Reasons) == 0 {
				t.Errorf("期望校验失败并给出原因, 实际 %+v", v)
			}
			if quests != nil {
				t.Error("校验失败时不应生成任务")
			}
		})
	}
}

func scheduleSpecNoTime(t *testing.T) GoalSpec {
	spec := scheduleSpec(t, "2025-01-06", "2025-01-19", 1)
	spec.DefaultTime = ""
	return spec
}

func TestBuildVerificationRules(t *testing.T) {
	got := BuildVerificationRules(nil)
	if !reflect.DeepEqual(got, []VerificationRule{{Method: MethodManual, Required: true}}) {
		t.Errorf("未选择验证方式时应兜底 manual, 实际 %+v", got)
	}

	got = BuildVerificationRules([]VerificationMethod{MethodPhoto, MethodPhoto, MethodLocation})
	want := []VerificationRule{
		{Method: MethodPhoto, Required: true},
		{Method: MethodLocation, Required: true},
		{Method: MethodManual, Required: false},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("期望 %+v, 实际 %+v", want, got)
	}
}
