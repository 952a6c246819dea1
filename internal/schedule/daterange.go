package schedule

import "sort"

// DateRange 闭区间 [Start, End]，不变式 Start <= End（经 Normalize 构造）
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Normalize 将任意两个日期排序为合法区间
func Normalize(a, b Date) DateRange {
	if b.Before(a) {
		return DateRange{Start: b, End: a}
	}
	return DateRange{Start: a, End: b}
}

// Days 区间包含的天数（含两端）
func (r DateRange) Days() int {
	return r.Start.DaysUntil(r.End) + 1
}

// Contains 日期是否落在区间内（含两端）
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Each 按日遍历区间；fn 返回 false 时提前结束
func (r DateRange) Each(fn func(Date) bool) {
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		if !fn(d) {
			return
		}
	}
}

// Clamp 返回 r 与 bound 的交集；无交集时 ok=false
func (r DateRange) Clamp(bound DateRange) (DateRange, bool) {
	start, end := r.Start, r.End
	if start.Before(bound.Start) {
		start = bound.Start
	}
	if end.After(bound.End) {
		end = bound.End
	}
	if end.Before(start) {
		return DateRange{}, false
	}
	return DateRange{Start: start, End: end}, true
}

// MergeRanges 合并重叠或相邻（相差 1 天）的区间。
// 输出按 Start 排序、互不重叠且互不相邻。
func MergeRanges(ranges []DateRange) []DateRange {
	sorted := make([]DateRange, 0, len(ranges))
	for _, r := range ranges {
		sorted = append(sorted, Normalize(r.Start, r.End))
	}
	sort.Slice(sorted, func(i, j int) bool {
		if c := sorted[i].Start.Compare(sorted[j].Start); c != 0 {
			return c < 0
		}
		return sorted[i].End.Before(sorted[j].End)
	})

	merged := make([]DateRange, 0, len(sorted))
	for _, r := range sorted {
		if n := len(merged); n > 0 && !r.Start.After(merged[n-1].End.AddDays(1)) {
			if r.End.After(merged[n-1].End) {
				merged[n-1].End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// AddRange 并入一个区间
func AddRange(ranges []DateRange, r DateRange) []DateRange {
	all := make([]DateRange, 0, len(ranges)+1)
	all = append(all, ranges...)
	all = append(all, Normalize(r.Start, r.End))
	return MergeRanges(all)
}

// SubtractRange 从集合中扣除 cut。
// 与 cut 部分重叠的区间保留剩余部分，边界向外平移 1 天；cut 落在中间时一分为二。
func SubtractRange(ranges []DateRange, cut DateRange) []DateRange {
	cut = Normalize(cut.Start, cut.End)
	out := make([]DateRange, 0, len(ranges)+1)
	for _, r := range MergeRanges(ranges) {
		if r.End.Before(cut.Start) || r.Start.After(cut.End) {
			out = append(out, r)
			continue
		}
		if r.Start.Before(cut.Start) {
			out = append(out, DateRange{Start: r.Start, End: cut.Start.AddDays(-1)})
		}
		if r.End.After(cut.End) {
			out = append(out, DateRange{Start: cut.End.AddDays(1), End: r.End})
		}
	}
	return out
}

// Bounds 返回整体包络区间（minMax）；空集合时 ok=false
func Bounds(ranges []DateRange) (DateRange, bool) {
	if len(ranges) == 0 {
		return DateRange{}, false
	}
	b := Normalize(ranges[0].Start, ranges[0].End)
	for _, r := range ranges[1:] {
		r = Normalize(r.Start, r.End)
		if r.Start.Before(b.Start) {
			b.Start = r.Start
		}
		if r.End.After(b.End) {
			b.End = r.End
		}
	}
	return b, true
}

// ContainsDate 日期是否落在任一区间内
func ContainsDate(d Date, ranges []DateRange) bool {
	for _, r := range ranges {
		if Normalize(r.Start, r.End).Contains(d) {
			return true
		}
	}
	return false
}

// RangesFromDates 将离散日期压缩为连续区间
func RangesFromDates(dates []Date) []DateRange {
	ranges := make([]DateRange, 0, len(dates))
	for _, d := range dates {
		ranges = append(ranges, DateRange{Start: d, End: d})
	}
	return MergeRanges(ranges)
}
