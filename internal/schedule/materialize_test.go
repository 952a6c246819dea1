package schedule

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestMaterialize_OnlyScheduledDates(t *testing.T) {
	s, period := monWedFri(t)
	req := Materialize(period, s.Pattern, s.Include, s.Exclude)

	if len(req) != 6 {
		t.Fatalf("期望 6 个排期日期, 实际 %d", len(req))
	}
	if _, ok := req[mustDate(t, "2025-01-07")]; ok {
		t.Error("未排期日期不应出现在需求表中")
	}
	for d, n := range req {
		if n != 1 {
			t.Errorf("%s 期望 1 次, 实际 %d", d, n)
		}
	}
}

func TestMaterialize_TimesDriveCount(t *testing.T) {
	p, _ := NewWeeklyPattern([]int{1}, map[string][]string{"1": {"07:00", "12:00", "18:00"}})
	req := Materialize(rng(t, "2025-01-06", "2025-01-12"), p, nil, nil)
	if got := req[mustDate(t, "2025-01-06")]; got != 3 {
		t.Errorf("期望 3 次, 实际 %d", got)
	}
}

func TestMaterialize_SingleDay(t *testing.T) {
	s, _ := monWedFri(t)
	if got := len(s.Materialize(rng(t, "2025-01-06", "2025-01-06"))); got != 1 {
		t.Errorf("单日范围期望 1 个条目, 实际 %d", got)
	}
	if got := len(s.Materialize(rng(t, "2025-01-07", "2025-01-07"))); got != 0 {
		t.Errorf("单日未排期期望 0 个条目, 实际 %d", got)
	}
}

func TestMaterialize_Deterministic(t *testing.T) {
	s, period := monWedFri(t)
	s.Include = NewDateSet(mustDate(t, "2025-01-11"), mustDate(t, "2025-01-12"))
	s.Exclude = NewDateSet(mustDate(t, "2025-01-15"))

	a, _ := json.Marshal(s.Materialize(period))
	b, _ := json.Marshal(s.Materialize(period))
	if string(a) != string(b) {
		t.Errorf("相同输入两次物化结果应逐字节一致:\n%s\n%s", a, b)
	}
	var decoded map[string]int
	if err := json.Unmarshal(a, &decoded); err != nil {
		t.Fatalf("反序列化失败: %v", err)
	}
	if decoded["2025-01-11"] != 1 {
		t.Errorf("JSON key 应为 YYYY-MM-DD, 实际 %s", a)
	}
}

func TestOccurrences_WithEvents(t *testing.T) {
	s, period := monWedFri(t)
	s.Events = []OverrideEvent{{Date: mustDate(t, "2025-01-07"), Time: "20:00", Source: SourceOverride}}

	base := s.Occurrences(period, false)
	withEvents := s.Occurrences(period, true)
	if len(withEvents) != len(base)+1 {
		t.Errorf("计入覆盖事件后期望多 1 天, base=%d events=%d", len(base), len(withEvents))
	}
	if withEvents[1].Date.String() != "2025-01-07" || !reflect.DeepEqual(withEvents[1].Times, []string{"20:00"}) {
		t.Errorf("第 2 个出现期望 2025-01-07 [20:00], 实际 %s %v", withEvents[1].Date, withEvents[1].Times)
	}
}

func TestRequirement_Ranges(t *testing.T) {
	p, _ := NewWeeklyPattern([]int{1, 2, 3}, nil)
	req := Materialize(rng(t, "2025-01-06", "2025-01-19"), p, nil, nil)
	want := []DateRange{rng(t, "2025-01-06", "2025-01-08"), rng(t, "2025-01-13", "2025-01-15")}
	if got := req.Ranges(); !reflect.DeepEqual(got, want) {
		t.Errorf("期望 %v, 实际 %v", want, got)
	}
}

// ════════════════════════════════════════════════════════════
// 完整周划分
// ════════════════════════════════════════════════════════════

func TestPartitionCompleteWeeks_ShorterThanAWeek(t *testing.T) {
	p, _ := NewWeeklyPattern([]int{0, 1, 2, 3, 4, 5, 6}, nil)
	goal := rng(t, "2025-01-01", "2025-01-05")
	got := PartitionCompleteWeeks(goal, Materialize(goal, p, nil, nil))

	if got.RequiredTotal != 0 {
		t.Errorf("不足 7 天期望 requiredTotal=0, 实际 %d", got.RequiredTotal)
	}
	if len(got.PerDate) != 0 {
		t.Errorf("不足 7 天期望 perDate 为空, 实际 %v", got.PerDate)
	}
}

func TestPartitionCompleteWeeks_TwoFullWeeks(t *testing.T) {
	s, period := monWedFri(t)
	got := PartitionCompleteWeeks(period, s.Materialize(period))

	if got.RequiredTotal != 6 {
		t.Errorf("期望 requiredTotal=6, 实际 %d", got.RequiredTotal)
	}
	if len(got.Weeks) != 2 || !got.Weeks[0].Complete || !got.Weeks[1].Complete {
		t.Errorf("期望 2 个完整周, 实际 %+v", got.Weeks)
	}
	if got.Weeks[1].Range.Start.String() != "2025-01-13" {
		t.Errorf("第 2 周应从 2025-01-13 开始, 实际 %s", got.Weeks[1].Range.Start)
	}
}

func TestPartitionCompleteWeeks_DropsTrailingPartialWeek(t *testing.T) {
	s, _ := monWedFri(t)
	goal := rng(t, "2025-01-06", "2025-01-22") // 17 天：2 个完整周 + 3 天
	got := PartitionCompleteWeeks(goal, s.Materialize(goal))

	if got.RequiredTotal != 6 {
		t.Errorf("末尾不足一周不计入, 期望 6, 实际 %d", got.RequiredTotal)
	}
	if len(got.Weeks) != 3 {
		t.Fatalf("期望 3 个窗口（含不完整窗口）, 实际 %d", len(got.Weeks))
	}
	tail := got.Weeks[2]
	if tail.Complete || tail.Required != 2 {
		t.Errorf("末尾窗口期望不完整且需求 2 (周一+周三), 实际 complete=%v required=%d", tail.Complete, tail.Required)
	}
	if _, ok := got.PerDate[mustDate(t, "2025-01-20")]; ok {
		t.Error("perDate 不应包含不完整窗口的日期")
	}
	if r, ok := got.CompleteRange(); !ok || r != rng(t, "2025-01-06", "2025-01-19") {
		t.Errorf("完整周区间期望 [2025-01-06, 2025-01-19], 实际 %v", r)
	}
}

func TestPartitionCompleteWeeks_AnchoredAtGoalStart(t *testing.T) {
	p, _ := NewWeeklyPattern([]int{0, 1, 2, 3, 4, 5, 6}, nil)
	goal := rng(t, "2025-01-08", "2025-01-14") // 周三起的 7 天
	got := PartitionCompleteWeeks(goal, Materialize(goal, p, nil, nil))
	if got.RequiredTotal != 7 {
		t.Errorf("以起始日为锚点的 7 天应为 1 个完整周, 期望 7, 实际 %d", got.RequiredTotal)
	}
}
