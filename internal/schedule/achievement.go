package schedule

import (
	"fmt"
	"math"
	"time"
)

// VerificationStatus 验证结果
type VerificationStatus string

const (
	VerificationSuccess VerificationStatus = "success"
	VerificationFail    VerificationStatus = "fail"
)

// VerificationEvent 外部验证子系统提供的完成/验证事件
type VerificationEvent struct {
	Timestamp time.Time          `json:"timestamp"`
	Status    VerificationStatus `json:"status"`
}

// DuplicatePolicy 同一天多条事件的计数策略
type DuplicatePolicy string

const (
	// CountEach 每条事件单独计数（默认）
	CountEach DuplicatePolicy = "count_each"
	// DedupeByDate 同一天同一状态只计 1 次
	DedupeByDate DuplicatePolicy = "dedupe_date"
	// DedupeBySlot 同一天同一 HH:MM 同一状态只计 1 次
	DedupeBySlot DuplicatePolicy = "dedupe_slot"
)

// ParseDuplicatePolicy 解析策略名，空串返回默认策略
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(s); p {
	case "":
		return CountEach, nil
	case CountEach, DedupeByDate, DedupeBySlot:
		return p, nil
	default:
		return "", fmt.Errorf("未知的重复计数策略 %q", s)
	}
}

// DayResult 单日统计
type DayResult struct {
	Date     Date `json:"date"`
	Required int  `json:"required"`
	Success  int  `json:"success"`
	Fail     int  `json:"fail"`
	Achieved int  `json:"achieved"`
}

// Achievement 达成率统计结果
type Achievement struct {
	RequiredTotal int            `json:"required_total"`
	TotalAchieved int            `json:"total_achieved"`
	Percent       int            `json:"achievement_percent"`
	Days          []DayResult    `json:"days"`
	Weeks         []WindowResult `json:"weeks,omitempty"`
}

// WindowResult 按周统计（频率目标）
type WindowResult struct {
	Index    int       `json:"index"`
	Range    DateRange `json:"range"`
	Required int       `json:"required"`
	Success  int       `json:"success"`
	Achieved int       `json:"achieved"`
}

// Aggregator 将需求表与验证事件求交
type Aggregator struct {
	Zone   Zone
	Policy DuplicatePolicy
}

// Aggregate 对 perDate 中的每一天：achieved = min(success, required)。
// 超出需求的成功不抬高比例；requiredTotal 为 0 时 Percent 为 0。
func (a Aggregator) Aggregate(perDate Requirement, events []VerificationEvent) Achievement {
	success, fail := a.count(events)

	result := Achievement{Days: make([]DayResult, 0, len(perDate))}
	for _, d := range perDate.Dates() {
		required := perDate[d]
		achieved := success[d]
		if achieved > required {
			achieved = required
		}
		result.RequiredTotal += required
		result.TotalAchieved += achieved
		result.Days = append(result.Days, DayResult{
			Date:     d,
			Required: required,
			Success:  success[d],
			Fail:     fail[d],
			Achieved: achieved,
		})
	}
	result.Percent = Percent(result.TotalAchieved, result.RequiredTotal)
	return result
}

// AggregateWeekly 频率目标没有逐日需求：每个完整周需要 perWeek 次成功，
// 周内成功次数封顶为 perWeek。不足 7 天的目标与末尾不完整周不计入。
func (a Aggregator) AggregateWeekly(goal DateRange, perWeek int, events []VerificationEvent) Achievement {
	success, _ := a.count(events)
	result := Achievement{Days: []DayResult{}, Weeks: []WindowResult{}}
	if perWeek <= 0 {
		return result
	}

	for _, w := range PartitionCompleteWeeks(goal, nil).Weeks {
		if !w.Complete {
			continue
		}
		wr := WindowResult{Index: w.Index, Range: w.Range, Required: perWeek}
		w.Range.Each(func(d Date) bool {
			wr.Success += success[d]
			return true
		})
		wr.Achieved = min(wr.Success, perWeek)
		result.RequiredTotal += wr.Required
		result.TotalAchieved += wr.Achieved
		result.Weeks = append(result.Weeks, wr)
	}
	result.Percent = Percent(result.TotalAchieved, result.RequiredTotal)
	return result
}

func (a Aggregator) count(events []VerificationEvent) (success, fail map[Date]int) {
	success = make(map[Date]int)
	fail = make(map[Date]int)
	seen := make(map[string]bool)
	for _, ev := range events {
		d := a.Zone.DateOf(ev.Timestamp)
		switch a.Policy {
		case DedupeByDate, DedupeBySlot:
			key := d.String() + "|" + string(ev.Status)
			if a.Policy == DedupeBySlot {
				key += "|" + a.Zone.ClockOf(ev.Timestamp)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		switch ev.Status {
		case VerificationSuccess:
			success[d]++
		case VerificationFail:
			fail[d]++
		}
	}
	return success, fail
}

// Percent round(100 * achieved / required)，required <= 0 时为 0
func Percent(achieved, required int) int {
	if required <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(achieved) / float64(required)))
}
