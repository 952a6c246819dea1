package schedule

// QuestDiff 新旧任务集的比对结果
type QuestDiff struct {
	ToCreate []Quest `json:"to_create"`
	ToRetire []Quest `json:"to_retire"`
	Kept     []Quest `json:"kept"`
}

// DiffQuests 按 MatchKey 比对已有任务与新候选集。
//   - 候选集中有、已有任务中没有 → ToCreate
//   - 两边都有 → 保留已有记录（Kept），不在原地修改
//   - 已有任务中有、候选集中没有：pending 的 → ToRetire；已有完成历史的 → Kept
func DiffQuests(existing, candidates []Quest) QuestDiff {
	diff := QuestDiff{ToCreate: []Quest{}, ToRetire: []Quest{}, Kept: []Quest{}}

	byKey := make(map[string]Quest, len(existing))
	for _, q := range existing {
		byKey[q.MatchKey()] = q
	}
	wanted := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		key := c.MatchKey()
		if wanted[key] {
			continue
		}
		wanted[key] = true
		if _, ok := byKey[key]; !ok {
			diff.ToCreate = append(diff.ToCreate, c)
		}
	}

	for _, q := range existing {
		switch {
		case wanted[q.MatchKey()]:
			diff.Kept = append(diff.Kept, q)
		case q.Status == QuestPending || q.Status == "":
			diff.ToRetire = append(diff.ToRetire, q)
		default:
			diff.Kept = append(diff.Kept, q)
		}
	}
	return diff
}

// QuestsWithin 保留覆盖区间与 window 相交的任务
func QuestsWithin(quests []Quest, window DateRange, periodStart Date) []Quest {
	out := make([]Quest, 0, len(quests))
	for _, q := range quests {
		if _, ok := q.Span(periodStart).Clamp(window); ok {
			out = append(out, q)
		}
	}
	return out
}
