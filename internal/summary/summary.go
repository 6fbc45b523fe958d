package summary

import (
	"sort"
	"time"
)

// TopN 是摘要图中列出的国家数量
const TopN = 5

// Entry 是生成摘要所需的单条记录
type Entry struct {
	Name         string
	EstimatedGDP *float64
}

// Ranked 是排行中的一行
type Ranked struct {
	Rank int
	Name string
	GDP  float64
}

// Summary 是摘要图的内容
type Summary struct {
	Total       int
	RefreshedAt time.Time
	Top         []Ranked
}

// BuildSummary 统计总数并按GDP降序选出前五。GDP为空或为0的记录不参与排行，
// GDP相同时保持输入顺序。
func BuildSummary(entries []Entry, ts time.Time) Summary {
	candidates := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.EstimatedGDP == nil || *e.EstimatedGDP == 0 {
			continue
		}
		candidates = append(candidates, e)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return *candidates[i].EstimatedGDP > *candidates[j].EstimatedGDP
	})
	if len(candidates) > TopN {
		candidates = candidates[:TopN]
	}

	top := make([]Ranked, len(candidates))
	for i, e := range candidates {
		top[i] = Ranked{Rank: i + 1, Name: e.Name, GDP: *e.EstimatedGDP}
	}
	return Summary{Total: len(entries), RefreshedAt: ts.UTC(), Top: top}
}
