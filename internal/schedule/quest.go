package schedule

import (
	"fmt"
	"strings"
	"time"
)

// GoalType 目标类型
type GoalType string

const (
	GoalTypeSchedule  GoalType = "schedule"
	GoalTypeFrequency GoalType = "frequency"
	GoalTypeMilestone GoalType = "milestone"
)

// VerificationMethod 验证方式
type VerificationMethod string

const (
	MethodManual   VerificationMethod = "manual"
	MethodPhoto    VerificationMethod = "photo"
	MethodLocation VerificationMethod = "location"
	MethodTime     VerificationMethod = "time"
)

var knownMethods = map[VerificationMethod]bool{
	MethodManual: true, MethodPhoto: true, MethodLocation: true, MethodTime: true,
}

// VerificationRule 单条验证规则
type VerificationRule struct {
	Method   VerificationMethod `json:"method"`
	Required bool               `json:"required"`
}

// QuestStatus 任务状态。状态流转由外部验证子系统驱动。
type QuestStatus string

const (
	QuestPending   QuestStatus = "pending"
	QuestCompleted QuestStatus = "completed"
	QuestFailed    QuestStatus = "failed"
	QuestSkipped   QuestStatus = "skipped"
)

// ValidQuestStatus 是否为已知状态
func ValidQuestStatus(s string) bool {
	switch QuestStatus(s) {
	case QuestPending, QuestCompleted, QuestFailed, QuestSkipped:
		return true
	}
	return false
}

// Quest 展开后的一次具体任务
type Quest struct {
	ID                string             `json:"id"`
	GoalID            string             `json:"goal_id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	TargetDate        *Date              `json:"target_date,omitempty"`
	WeekNumber        int                `json:"week_number,omitempty"`
	Sequence          int                `json:"sequence"`
	Times             []string           `json:"times,omitempty"`
	VerificationRules []VerificationRule `json:"verification_rules"`
	Status            QuestStatus        `json:"status"`
}

// MatchKey 新旧任务集比对用的键：按日期 / 周次+序号 / 里程碑序号+日期
func (q Quest) MatchKey() string {
	switch {
	case q.WeekNumber > 0:
		return fmt.Sprintf("week:%d:%d", q.WeekNumber, q.Sequence)
	case q.TargetDate != nil && q.Sequence > 0:
		return fmt.Sprintf("milestone:%d:%s", q.Sequence, q.TargetDate)
	case q.TargetDate != nil:
		return "date:" + q.TargetDate.String()
	}
	return "seq:" + fmt.Sprint(q.Sequence)
}

// Span 任务覆盖的日期区间：带日期的任务为当天，按周任务为该统计周
func (q Quest) Span(periodStart Date) DateRange {
	if q.TargetDate != nil {
		return DateRange{Start: *q.TargetDate, End: *q.TargetDate}
	}
	start := periodStart.AddDays((q.WeekNumber - 1) * WeekLength)
	return DateRange{Start: start, End: start.AddDays(WeekLength - 1)}
}

// GoalSpec 任务展开所需的已解析输入
type GoalSpec struct {
	GoalID      string
	Title       string
	Description string
	Type        GoalType
	Period      *DateRange
	Store       OverrideStore
	DefaultTime string
	PerWeek     int
	Milestones  []string
	Methods     []VerificationMethod
}

// ValidationResult 校验结果：失败原因以可读文本列出，由调用方决定阻断或提示
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Reasons []string `json:"reasons,omitempty"`
}

func (v *ValidationResult) fail(format string, args ...interface{}) {
	v.IsValid = false
	v.Reasons = append(v.Reasons, fmt.Sprintf(format, args...))
}

// Merge 合并另一组原因
func (v ValidationResult) Merge(o ValidationResult) ValidationResult {
	out := ValidationResult{IsValid: v.IsValid && o.IsValid}
	out.Reasons = append(append(out.Reasons, v.Reasons...), o.Reasons...)
	return out
}

// ValidateQuestGeneration 展开前校验
func ValidateQuestGeneration(spec GoalSpec) ValidationResult {
	v := ValidationResult{IsValid: true}
	if strings.TrimSpace(spec.Title) == "" {
		v.fail("目标标题不能为空")
	}
	if spec.Period == nil {
		v.fail("目标周期（开始/结束日期）不能为空")
	}
	switch spec.Type {
	case GoalTypeSchedule:
		if spec.Store.Pattern.IsEmpty() {
			v.fail("按日程目标至少需要选择一个星期")
		}
		if spec.DefaultTime == "" && !spec.Store.Pattern.HasAnyTime() {
			v.fail("按日程目标需要设置时间")
		} else if spec.DefaultTime != "" {
			if _, err := ParseClock(spec.DefaultTime); err != nil {
				v.fail("时间格式应为 HH:MM: %s", spec.DefaultTime)
			}
		}
	case GoalTypeFrequency:
		if spec.PerWeek < 1 {
			v.fail("按频率目标每周次数至少为 1")
		}
	case GoalTypeMilestone:
		if len(spec.Milestones) == 0 {
			v.fail("里程碑目标至少需要一个里程碑")
		}
	default:
		v.fail("未知的目标类型: %q", spec.Type)
	}
	for _, m := range spec.Methods {
		if !knownMethods[m] {
			v.fail("未知的验证方式: %q", m)
		}
	}
	return v
}

// BuildVerificationRules 按选择顺序去重生成规则；manual 未选时作为兜底追加
func BuildVerificationRules(methods []VerificationMethod) []VerificationRule {
	rules := make([]VerificationRule, 0, len(methods)+1)
	seen := make(map[VerificationMethod]bool)
	for _, m := range methods {
		if seen[m] {
			continue
		}
		seen[m] = true
		rules = append(rules, VerificationRule{Method: m, Required: true})
	}
	if !seen[MethodManual] {
		rules = append(rules, VerificationRule{Method: MethodManual, Required: len(rules) == 0})
	}
	return rules
}

// WeekdayName 星期的中文名称
func WeekdayName(wd time.Weekday) string {
	return weekdayNames[wd]
}

var weekdayNames = [...]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}
