package api

// =============================================================================
// OTLP 摄入响应
// =============================================================================

// PartialSuccess 对应 OTLP 导出响应里的 partialSuccess 块。
// 三个 rejected 字段按信号各用各的，序列化时只出现对应的那个。
type PartialSuccess struct {
	RejectedSpans      int64  `json:"rejectedSpans,omitempty"`
	RejectedLogRecords int64  `json:"rejectedLogRecords,omitempty"`
	RejectedDataPoints int64  `json:"rejectedDataPoints,omitempty"`
	ErrorMessage       string `json:"errorMessage,omitempty"`
}

// ExportResponse 是 OTLP 导出端点的响应体。
// 全部接受时为空对象；部分拒绝时带 partialSuccess。
type ExportResponse struct {
	PartialSuccess *PartialSuccess `json:"partialSuccess,omitempty"`
}

// =============================================================================
// 查询响应
// =============================================================================

// ListResponse 是分页列表响应的统一外壳。
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}
