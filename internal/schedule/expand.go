package schedule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// DefaultQuestCap 单个目标展开任务的上限
const DefaultQuestCap = 100

// questNamespace 任务 ID 的 UUIDv5 命名空间；同一目标同一匹配键总是得到同一 ID
var questNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://doany.app/quests"))

// QuestID 由目标 ID 与匹配键派生确定性任务 ID
func QuestID(goalID, matchKey string) string {
	return uuid.NewSHA1(questNamespace, []byte(goalID+"/"+matchKey)).String()
}

// Expander 确定性任务展开器
type Expander struct {
	Cap int
}

// Expand 展开整个目标周期
func (e Expander) Expand(spec GoalSpec) ([]Quest, ValidationResult) {
	return e.ExpandFrom(spec, Date{})
}

// ExpandFrom 只保留覆盖区间结束于 from 当天或之后的任务，再按时间顺序截取前 Cap 个。
// from 为零值时不过滤。周次与序号始终以目标起始日为锚点。
func (e Expander) ExpandFrom(spec GoalSpec, from Date) ([]Quest, ValidationResult) {
	v := ValidateQuestGeneration(spec)
	if !v.IsValid {
		return nil, v
	}
	period := Normalize(spec.Period.Start, spec.Period.End)
	rules := BuildVerificationRules(spec.Methods)

	var quests []Quest
	switch spec.Type {
	case GoalTypeSchedule:
		quests = expandSchedule(spec, period)
	case GoalTypeFrequency:
		quests = expandFrequency(spec, period)
	case GoalTypeMilestone:
		quests = expandMilestones(spec, period)
	}

	sort.SliceStable(quests, func(i, j int) bool {
		a, b := quests[i].Span(period.Start), quests[j].Span(period.Start)
		if c := a.Start.Compare(b.Start); c != 0 {
			return c < 0
		}
		return quests[i].Sequence < quests[j].Sequence
	})

	out := make([]Quest, 0, len(quests))
	for _, q := range quests {
		if !from.IsZero() && q.Span(period.Start).End.Before(from) {
			continue
		}
		q.GoalID = spec.GoalID
		q.ID = QuestID(spec.GoalID, q.MatchKey())
		q.Status = QuestPending
		q.VerificationRules = append([]VerificationRule(nil), rules...)
		out = append(out, q)
	}

	limit := e.Cap
	if limit <= 0 {
		limit = DefaultQuestCap
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, v
}

// expandSchedule 完整周期内每个已排期日期一条任务（不受完整周限制）
func expandSchedule(spec GoalSpec, period DateRange) []Quest {
	var defaultTimes []string
	if spec.DefaultTime != "" {
		if c, err := ParseClock(spec.DefaultTime); err == nil {
			defaultTimes = []string{c}
		}
	}

	occurrences := spec.Store.Occurrences(period, false)
	quests := make([]Quest, 0, len(occurrences))
	for _, occ := range occurrences {
		d := occ.Date
		times := occ.Times
		if len(times) == 0 {
			times = defaultTimes
		}
		name := WeekdayName(d.Weekday())
		desc := fmt.Sprintf("%s（%s）完成「%s」", d, name, spec.Title)
		if len(times) > 0 {
			desc += "，时间 " + strings.Join(times, "、")
		}
		quests = append(quests, Quest{
			Title:       fmt.Sprintf("%s · %s", spec.Title, name),
			Description: desc,
			TargetDate:  &d,
			Times:       times,
		})
	}
	return quests
}

// expandFrequency ceil(总天数/7) 个周，每周 PerWeek 次；末尾不足 7 天的周同样生成
func expandFrequency(spec GoalSpec, period DateRange) []Quest {
	weeks := (period.Days() + WeekLength - 1) / WeekLength
	quests := make([]Quest, 0, weeks*spec.PerWeek)
	for w := 1; w <= weeks; w++ {
		start := period.Start.AddDays((w - 1) * WeekLength)
		end := start.AddDays(WeekLength - 1)
		if end.After(period.End) {
			end = period.End
		}
		for k := 1; k <= spec.PerWeek; k++ {
			quests = append(quests, Quest{
				Title:       fmt.Sprintf("%s · 第%d周 第%d次", spec.Title, w, k),
				Description: fmt.Sprintf("%s ~ %s 内完成第 %d/%d 次「%s」", start, end, k, spec.PerWeek, spec.Title),
				WeekNumber:  w,
				Sequence:    k,
			})
		}
	}
	return quests
}

// expandMilestones 按 index/(count-1) 比例把里程碑均匀分布在整个周期上；
// 只有一个里程碑时落在周期末尾
func expandMilestones(spec GoalSpec, period DateRange) []Quest {
	span := period.Days() - 1
	count := len(spec.Milestones)
	quests := make([]Quest, 0, count)
	for i, label := range spec.Milestones {
		offset := span
		if count > 1 {
			offset = i * span / (count - 1)
		}
		d := period.Start.AddDays(offset)
		quests = append(quests, Quest{
			Title:       fmt.Sprintf("%s · 里程碑 %d: %s", spec.Title, i+1, label),
			Description: fmt.Sprintf("%s 前达成「%s」", d, label),
			TargetDate:  &d,
			Sequence:    i + 1,
		})
	}
	return quests
}
