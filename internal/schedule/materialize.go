package schedule

import "sort"

// Requirement 逐日需完成次数。只包含已排期日期，不存在值为 0 的条目。
// 从不持久化：同样的输入总是得到同样的结果。
type Requirement map[Date]int

// Occurrence 一个已排期日期及其时刻
type Occurrence struct {
	Date  Date     `json:"date"`
	Count int      `json:"count"`
	Times []string `json:"times,omitempty"`
}

// Materialize 逐日遍历 r（含两端），按基础规则生成需求表
func Materialize(r DateRange, pattern WeeklyPattern, include, exclude DateSet) Requirement {
	return OverrideStore{Pattern: pattern, Include: include, Exclude: exclude}.Materialize(r)
}

// Materialize 基础规则下的需求表
func (s OverrideStore) Materialize(r DateRange) Requirement {
	return s.materialize(r, s.Decide)
}

// MaterializeWithEvents 计入覆盖事件的需求表（用于达成率统计）
func (s OverrideStore) MaterializeWithEvents(r DateRange) Requirement {
	return s.materialize(r, s.RequiredWithEvents)
}

func (s OverrideStore) materialize(r DateRange, decide func(Date) Decision) Requirement {
	r = Normalize(r.Start, r.End)
	req := make(Requirement)
	r.Each(func(d Date) bool {
		if dec := decide(d); dec.Scheduled {
			req[d] = dec.Count
		}
		return true
	})
	return req
}

// Occurrences 按日期升序列出排期日期及时刻；withEvents 为 true 时计入覆盖事件
func (s OverrideStore) Occurrences(r DateRange, withEvents bool) []Occurrence {
	decide := s.Decide
	if withEvents {
		decide = s.RequiredWithEvents
	}
	r = Normalize(r.Start, r.End)
	out := make([]Occurrence, 0)
	r.Each(func(d Date) bool {
		if dec := decide(d); dec.Scheduled {
			out = append(out, Occurrence{Date: d, Count: dec.Count, Times: dec.Times})
		}
		return true
	})
	return out
}

// Dates 升序日期
func (req Requirement) Dates() []Date {
	out := make([]Date, 0, len(req))
	for d := range req {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Total 需完成次数合计
func (req Requirement) Total() int {
	total := 0
	for _, n := range req {
		total += n
	}
	return total
}

// Within 截取 r 内的条目
func (req Requirement) Within(r DateRange) Requirement {
	out := make(Requirement)
	for d, n := range req {
		if r.Contains(d) {
			out[d] = n
		}
	}
	return out
}

// Ranges 已排期日期压缩为连续区间（用于日历渲染）
func (req Requirement) Ranges() []DateRange {
	return RangesFromDates(req.Dates())
}
