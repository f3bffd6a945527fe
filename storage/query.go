package storage

import (
	"errors"

	"gorm.io/gorm"

	"github.com/HelgeSverre/llmflow-sub000/types"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// SpanFilter 描述 span 查询条件。零值字段不参与过滤。
type SpanFilter struct {
	TraceID  string         `json:"trace_id"`
	Model    string         `json:"model"`
	Provider string         `json:"provider"`
	Service  string         `json:"service"`
	Kind     types.SpanKind `json:"kind"`
	Search   string         `json:"search"` // 对 name/request/attributes 做子串匹配
	MinCost  *float64       `json:"min_cost"`
	MaxCost  *float64       `json:"max_cost"`
	Since    *int64         `json:"since"` // epoch ms，含
	Until    *int64         `json:"until"` // epoch ms，含
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
}

// QuerySpans 按过滤条件返回 span，最新优先。
func (s *Store) QuerySpans(f SpanFilter) ([]types.Span, error) {
	q := s.db.Model(&types.Span{})
	if f.TraceID != "" {
		q = q.Where("trace_id = ?", f.TraceID)
	}
	if f.Model != "" {
		q = q.Where("model = ?", f.Model)
	}
	if f.Provider != "" {
		q = q.Where("provider = ?", f.Provider)
	}
	if f.Service != "" {
		q = q.Where("service_name = ?", f.Service)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", string(f.Kind))
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where("(name LIKE ? OR request LIKE ? OR attributes LIKE ?)", pattern, pattern, pattern)
	}
	if f.MinCost != nil {
		q = q.Where("cost >= ?", *f.MinCost)
	}
	if f.MaxCost != nil {
		q = q.Where("cost <= ?", *f.MaxCost)
	}
	if f.Since != nil {
		q = q.Where("start_time >= ?", *f.Since)
	}
	if f.Until != nil {
		q = q.Where("start_time <= ?", *f.Until)
	}

	var spans []types.Span
	err := q.Order("start_time DESC, row_id DESC").
		Limit(clampLimit(f.Limit)).Offset(maxInt(f.Offset, 0)).
		Find(&spans).Error
	return spans, err
}

// LogFilter 描述日志查询条件。
type LogFilter struct {
	Service     string `json:"service"`
	EventName   string `json:"event_name"`
	TraceID     string `json:"trace_id"`
	Search      string `json:"search"` // 对 body/attributes 做子串匹配
	MinSeverity *int   `json:"min_severity"`
	Since       *int64 `json:"since"`
	Until       *int64 `json:"until"`
	Limit       int    `json:"limit"`
	Offset      int    `json:"offset"`
}

// QueryLogs 按过滤条件返回日志记录，最新优先。
func (s *Store) QueryLogs(f LogFilter) ([]types.LogRecord, error) {
	q := s.db.Model(&types.LogRecord{})
	if f.Service != "" {
		q = q.Where("service_name = ?", f.Service)
	}
	if f.EventName != "" {
		q = q.Where("event_name = ?", f.EventName)
	}
	if f.TraceID != "" {
		q = q.Where("trace_id = ?", f.TraceID)
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where("(body LIKE ? OR attributes LIKE ?)", pattern, pattern)
	}
	if f.MinSeverity != nil {
		q = q.Where("severity_number >= ?", *f.MinSeverity)
	}
	if f.Since != nil {
		q = q.Where("timestamp >= ?", *f.Since)
	}
	if f.Until != nil {
		q = q.Where("timestamp <= ?", *f.Until)
	}

	var records []types.LogRecord
	err := q.Order("timestamp DESC, row_id DESC").
		Limit(clampLimit(f.Limit)).Offset(maxInt(f.Offset, 0)).
		Find(&records).Error
	return records, err
}

// MetricFilter 描述指标查询条件。
type MetricFilter struct {
	Name    string           `json:"name"`
	Service string           `json:"service"`
	Type    types.MetricType `json:"type"`
	Since   *int64           `json:"since"`
	Until   *int64           `json:"until"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// QueryMetrics 按过滤条件返回指标数据点，最新优先。
func (s *Store) QueryMetrics(f MetricFilter) ([]types.MetricPoint, error) {
	q := s.db.Model(&types.MetricPoint{})
	if f.Name != "" {
		q = q.Where("name = ?", f.Name)
	}
	if f.Service != "" {
		q = q.Where("service_name = ?", f.Service)
	}
	if f.Type != "" {
		q = q.Where("type = ?", string(f.Type))
	}
	if f.Since != nil {
		q = q.Where("timestamp >= ?", *f.Since)
	}
	if f.Until != nil {
		q = q.Where("timestamp <= ?", *f.Until)
	}

	var points []types.MetricPoint
	err := q.Order("timestamp DESC, row_id DESC").
		Limit(clampLimit(f.Limit)).Offset(maxInt(f.Offset, 0)).
		Find(&points).Error
	return points, err
}

// GetSpan 按 span 标识返回单条记录；不存在时返回 ErrNotFound。
func (s *Store) GetSpan(spanID string) (*types.Span, error) {
	var span types.Span
	err := s.db.Where("span_id = ?", spanID).First(&span).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &span, nil
}

// Models 返回出现过的模型名（去重，升序）。
func (s *Store) Models() ([]string, error) {
	return s.distinct(&types.Span{}, "model")
}

// Services 返回出现过的服务名（去重，升序）。
func (s *Store) Services() ([]string, error) {
	return s.distinct(&types.Span{}, "service_name")
}

// EventNames 返回日志里出现过的事件名（去重，升序）。
func (s *Store) EventNames() ([]string, error) {
	return s.distinct(&types.LogRecord{}, "event_name")
}

// MetricNames 返回出现过的指标名（去重，升序）。
func (s *Store) MetricNames() ([]string, error) {
	return s.distinct(&types.MetricPoint{}, "name")
}

func (s *Store) distinct(model any, column string) ([]string, error) {
	var values []string
	err := s.db.Model(model).
		Distinct(column).
		Where(column+" <> ''").
		Order(column + " ASC").
		Pluck(column, &values).Error
	return values, err
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
