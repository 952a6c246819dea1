package schedule

// WeekLength 统计窗口长度（天）
const WeekLength = 7

// Window 以目标起始日为锚点切出的 7 日统计窗口
type Window struct {
	Index    int       `json:"index"` // 1-based
	Range    DateRange `json:"range"`
	Complete bool      `json:"complete"`
	Required int       `json:"required"`
}

// WeekPartition 完整周划分结果
type WeekPartition struct {
	RequiredTotal int         `json:"required_total"`
	PerDate       Requirement `json:"per_date"`
	Weeks         []Window    `json:"weeks"`
}

// PartitionCompleteWeeks 将需求表按完整周划分。
//
// 边界规则：
//   - 目标总天数 < 7 时没有完整周，直接返回零结果（不是错误）；
//   - 从 goal.Start 起每 7 天切一个窗口，末尾窗口按 goal.End 截断；
//   - 只有恰好 7 天的窗口计入合计，末尾不足 7 天的窗口照常计算但不计入，
//     PerDate 同样只包含完整周内的日期。
func PartitionCompleteWeeks(goal DateRange, req Requirement) WeekPartition {
	goal = Normalize(goal.Start, goal.End)
	result := WeekPartition{PerDate: make(Requirement), Weeks: make([]Window, 0)}
	if goal.Days() < WeekLength {
		return result
	}

	index := 1
	for cursor := goal.Start; !cursor.After(goal.End); cursor = cursor.AddDays(WeekLength) {
		end := cursor.AddDays(WeekLength - 1)
		if end.After(goal.End) {
			end = goal.End
		}
		w := Window{Index: index, Range: DateRange{Start: cursor, End: end}}
		w.Complete = w.Range.Days() == WeekLength
		w.Range.Each(func(d Date) bool {
			w.Required += req[d]
			return true
		})

		if w.Complete {
			result.RequiredTotal += w.Required
			w.Range.Each(func(d Date) bool {
				if n, ok := req[d]; ok {
					result.PerDate[d] = n
				}
				return true
			})
		}
		result.Weeks = append(result.Weeks, w)
		index++
	}
	return result
}

// CompleteRange 完整周覆盖的区间；没有完整周时 ok=false
func (p WeekPartition) CompleteRange() (DateRange, bool) {
	ranges := make([]DateRange, 0, len(p.Weeks))
	for _, w := range p.Weeks {
		if w.Complete {
			ranges = append(ranges, w.Range)
		}
	}
	return Bounds(ranges)
}
