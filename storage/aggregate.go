package storage

import (
	"fmt"
)

// UsageBucket 是一个时间桶内 LLM 调用的用量汇总。
// Bucket 是桶起点（epoch ms），整除对齐。
type UsageBucket struct {
	Bucket           int64   `json:"bucket"`
	Count            int64   `json:"count"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	Cost             float64 `json:"cost"`
}

// UsageTrend 返回从 since 到当前时刻、按 bucketMs 对齐的用量桶序列。
// 没有数据的桶以零值补齐，调用方拿到的是连续序列。
// 只统计 kind = llm 的 span。
func (s *Store) UsageTrend(since, bucketMs int64) ([]UsageBucket, error) {
	if bucketMs <= 0 {
		return nil, fmt.Errorf("bucket size must be positive, got %d", bucketMs)
	}

	type row struct {
		Bucket           int64
		Count            int64
		PromptTokens     int64
		CompletionTokens int64
		TotalTokens      int64
		Cost             float64
	}
	var rows []row
	err := s.db.Raw(`
		SELECT (start_time / ?) * ? AS bucket,
		       COUNT(*) AS count,
		       COALESCE(SUM(prompt_tokens), 0) AS prompt_tokens,
		       COALESCE(SUM(completion_tokens), 0) AS completion_tokens,
		       COALESCE(SUM(total_tokens), 0) AS total_tokens,
		       COALESCE(SUM(cost), 0) AS cost
		FROM spans
		WHERE kind = 'llm' AND start_time >= ?
		GROUP BY bucket
		ORDER BY bucket ASC`,
		bucketMs, bucketMs, since,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate usage trend: %w", err)
	}

	filled := make(map[int64]row, len(rows))
	for _, r := range rows {
		filled[r.Bucket] = r
	}

	first := (since / bucketMs) * bucketMs
	last := (s.nowFn() / bucketMs) * bucketMs
	if last < first {
		last = first
	}

	out := make([]UsageBucket, 0, (last-first)/bucketMs+1)
	for b := first; b <= last; b += bucketMs {
		r := filled[b]
		out = append(out, UsageBucket{
			Bucket:           b,
			Count:            r.Count,
			PromptTokens:     r.PromptTokens,
			CompletionTokens: r.CompletionTokens,
			TotalTokens:      r.TotalTokens,
			Cost:             r.Cost,
		})
	}
	return out, nil
}

// GroupCost 是按某一维度（provider 或 model）分组的成本汇总。
type GroupCost struct {
	Key         string  `json:"key"`
	Count       int64   `json:"count"`
	TotalTokens int64   `json:"total_tokens"`
	Cost        float64 `json:"cost"`
}

// CostByProvider 返回 since 之后按 provider 分组的成本，成本降序。
func (s *Store) CostByProvider(since int64) ([]GroupCost, error) {
	return s.groupCost("provider", since)
}

// CostByModel 返回 since 之后按 model 分组的成本，成本降序。
func (s *Store) CostByModel(since int64) ([]GroupCost, error) {
	return s.groupCost("model", since)
}

func (s *Store) groupCost(column string, since int64) ([]GroupCost, error) {
	var rows []GroupCost
	stmt := fmt.Sprintf(`
		SELECT %s AS key,
		       COUNT(*) AS count,
		       COALESCE(SUM(total_tokens), 0) AS total_tokens,
		       COALESCE(SUM(cost), 0) AS cost
		FROM spans
		WHERE kind = 'llm' AND start_time >= ? AND %s <> ''
		GROUP BY %s
		ORDER BY cost DESC`, column, column, column)
	if err := s.db.Raw(stmt, since).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregate cost by %s: %w", column, err)
	}
	return rows, nil
}

const dayMs = 24 * 60 * 60 * 1000

// DailySummary 返回最近 days 天按天对齐的用量汇总。
func (s *Store) DailySummary(days int) ([]UsageBucket, error) {
	if days <= 0 {
		days = 7
	}
	since := s.nowFn() - int64(days-1)*dayMs
	return s.UsageTrend(since, dayMs)
}
