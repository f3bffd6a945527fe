package storage

import (
	"github.com/HelgeSverre/llmflow-sub000/types"
)

// SpanTree 是一条 trace 的完整重建结果：按开始时间升序的全部
// span、父到子的邻接表，以及根集合。父标识指向 trace 外部的
// span 视为根，不丢弃。
type SpanTree struct {
	TraceID  string              `json:"trace_id"`
	Spans    []types.Span        `json:"spans"`
	Children map[string][]string `json:"children"`
	Roots    []string            `json:"roots"`
}

// GetSpanTree 从任意一个成员 span 的标识出发重建整条 trace。
func (s *Store) GetSpanTree(spanID string) (*SpanTree, error) {
	anchor, err := s.GetSpan(spanID)
	if err != nil {
		return nil, err
	}

	var spans []types.Span
	err = s.db.Where("trace_id = ?", anchor.TraceID).
		Order("start_time ASC, row_id ASC").
		Find(&spans).Error
	if err != nil {
		return nil, err
	}

	return buildTree(anchor.TraceID, spans), nil
}

func buildTree(traceID string, spans []types.Span) *SpanTree {
	present := make(map[string]bool, len(spans))
	for _, sp := range spans {
		present[sp.SpanID] = true
	}

	tree := &SpanTree{
		TraceID:  traceID,
		Spans:    spans,
		Children: make(map[string][]string),
		Roots:    make([]string, 0, 1),
	}
	for _, sp := range spans {
		if sp.ParentID != nil && present[*sp.ParentID] {
			tree.Children[*sp.ParentID] = append(tree.Children[*sp.ParentID], sp.SpanID)
			continue
		}
		tree.Roots = append(tree.Roots, sp.SpanID)
	}
	return tree
}
