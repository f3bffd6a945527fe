package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/api"
	"github.com/HelgeSverre/llmflow-sub000/storage"
	"github.com/HelgeSverre/llmflow-sub000/types"
)

// =============================================================================
// 🔍 遥测查询 Handler
// =============================================================================

// QueryHandler 提供 span / 日志 / 指标的过滤查询、span 树与聚合统计。
type QueryHandler struct {
	store  *storage.Store
	logger *zap.Logger
}

// NewQueryHandler 创建查询处理器
func NewQueryHandler(store *storage.Store, logger *zap.Logger) *QueryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryHandler{
		store:  store,
		logger: logger.With(zap.String("component", "query")),
	}
}

// HandleSpans 处理 GET /api/spans
func (h *QueryHandler) HandleSpans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.SpanFilter{
		TraceID:  q.Get("trace_id"),
		Model:    q.Get("model"),
		Provider: q.Get("provider"),
		Service:  q.Get("service"),
		Kind:     types.SpanKind(q.Get("kind")),
		Search:   q.Get("search"),
		MinCost:  queryFloatPtr(r, "min_cost"),
		MaxCost:  queryFloatPtr(r, "max_cost"),
		Since:    queryInt64Ptr(r, "since"),
		Until:    queryInt64Ptr(r, "until"),
		Limit:    queryInt(r, "limit", 0),
		Offset:   queryInt(r, "offset", 0),
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		WriteError(w, &types.Error{
			Code:       types.ErrInvalidRequest,
			Message:    "unknown span kind: " + string(filter.Kind),
			HTTPStatus: http.StatusBadRequest,
		}, nil)
		return
	}

	spans, err := h.store.QuerySpans(filter)
	if err != nil {
		h.queryFailure(w, err)
		return
	}
	WriteSuccess(w, api.ListResponse[types.Span]{
		Items: spans, Count: len(spans),
		Limit: filter.Limit, Offset: filter.Offset,
	})
}

// HandleSpan 处理 GET /api/spans/{id}
func (h *QueryHandler) HandleSpan(w http.ResponseWriter, r *http.Request) {
	span, err := h.store.GetSpan(r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		WriteError(w, &types.Error{
			Code:       types.ErrInvalidRequest,
			Message:    "span not found: " + r.PathValue("id"),
			HTTPStatus: http.StatusNotFound,
		}, nil)
		return
	}
	if err != nil {
		h.queryFailure(w, err)
		return
	}
	WriteSuccess(w, span)
}

// HandleSpanTree 处理 GET /api/spans/{id}/tree
func (h *QueryHandler) HandleSpanTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.store.GetSpanTree(r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		WriteError(w, &types.Error{
			Code:       types.ErrInvalidRequest,
			Message:    "span not found: " + r.PathValue("id"),
			HTTPStatus: http.StatusNotFound,
		}, nil)
		return
	}
	if err != nil {
		h.queryFailure(w, err)
		return
	}
	WriteSuccess(w, tree)
}

// HandleLogs 处理 GET /api/logs
func (h *QueryHandler) HandleLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.LogFilter{
		Service:   q.Get("service"),
		EventName: q.Get("event_name"),
		TraceID:   q.Get("trace_id"),
		Search:    q.Get("search"),
		Since:     queryInt64Ptr(r, "since"),
		Until:     queryInt64Ptr(r, "until"),
		Limit:     queryInt(r, "limit", 0),
		Offset:    queryInt(r, "offset", 0),
	}
	if v := q.Get("min_severity"); v != "" {
		sev := queryInt(r, "min_severity", 0)
		filter.MinSeverity = &sev
	}

	records, err := h.store.QueryLogs(filter)
	if err != nil {
		h.queryFailure(w, err)
		return
	}
	WriteSuccess(w, api.ListResponse[types.LogRecord]{
		Items: records, Count: len(records),
		Limit: filter.Limit, Offset: filter.Offset,
	})
}

// HandleMetrics 处理 GET /api/metrics
func (h *QueryHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.MetricFilter{
		Name:    q.Get("name"),
		Service: q.Get("service"),
		Type:    types.MetricType(q.Get("type")),
		Since:   queryInt64Ptr(r, "since"),
		Until:   queryInt64Ptr(r, "until"),
		Limit:   queryInt(r, "limit", 0),
		Offset:  queryInt(r, "offset", 0),
	}

	points, err := h.store.QueryMetrics(filter)
	if err != nil {
		h.queryFailure(w, err)
		return
	}
	WriteSuccess(w, api.ListResponse[types.MetricPoint]{
		Items: points, Count: len(points),
		Limit: filter.Limit, Offset: filter.Offset,
	})
}

// HandleModels 处理 GET /api/models
func (h *QueryHandler) HandleModels(w http.ResponseWriter, r *http.Request) {
	h.listing(w, h.store.Models)
}

// HandleServices 处理 GET /api/services
func (h *QueryHandler) HandleServices(w http.ResponseWriter, r *http.Request) {
	h.listing(w, h.store.Services)
}

// HandleEventNames 处理 GET /api/logs/events
func (h *QueryHandler) HandleEventNames(w http.ResponseWriter, r *http.Request) {
	h.listing(w, h.store.EventNames)
}

// HandleMetricNames 处理 GET /api/metrics/names
func (h *QueryHandler) HandleMetricNames(w http.ResponseWriter, r *http.Request) {
	h.listing(w, h.store.MetricNames)
}

// =============================================================================
// 📈 聚合统计
// =============================================================================

// HandleUsageTrend 处理 GET /api/stats/usage?since=&bucket=
func (h *QueryHandler) HandleUsageTrend(w http.ResponseWriter, r *http.Request) {
	since := time.Now().Add(-24 * time.Hour).UnixMilli()
	if v := queryInt64Ptr(r, "since"); v != nil {
		since = *v
	}
	bucket := int64(time.Hour / time.Millisecond)
	if v := queryInt64Ptr(r, "bucket"); v != nil && *v > 0 {
		bucket = *v
	}

	buckets, err := h.store.UsageTrend(since, bucket)
	if err != nil {
		h.queryFailure(w, err)
		return
	}
	WriteSuccess(w, buckets)
}

// HandleCost 处理 GET /api/stats/cost?by=provider|model&since=
func (h *QueryHandler) HandleCost(w http.ResponseWriter, r *http.Request) {
	since := int64(0)
	if v := queryInt64Ptr(r, "since"); v != nil {
		since = *v
	}

	var (
		groups []storage.GroupCost
		err    error
	)
	switch by := r.URL.Query().Get("by"); by {
	case "", "provider":
		groups, err = h.store.CostByProvider(since)
	case "model":
		groups, err = h.store.CostByModel(since)
	default:
		WriteError(w, &types.Error{
			Code:       types.ErrInvalidRequest,
			Message:    "unknown grouping: " + by,
			HTTPStatus: http.StatusBadRequest,
		}, nil)
		return
	}
	if err != nil {
		h.queryFailure(w, err)
		return
	}
	WriteSuccess(w, groups)
}

// HandleDaily 处理 GET /api/stats/daily?days=
func (h *QueryHandler) HandleDaily(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.store.DailySummary(queryInt(r, "days", 7))
	if err != nil {
		h.queryFailure(w, err)
		return
	}
	WriteSuccess(w, buckets)
}

func (h *QueryHandler) listing(w http.ResponseWriter, fetch func() ([]string, error)) {
	values, err := fetch()
	if err != nil {
		h.queryFailure(w, err)
		return
	}
	WriteSuccess(w, values)
}

func (h *QueryHandler) queryFailure(w http.ResponseWriter, err error) {
	WriteError(w, &types.Error{
		Code:       types.ErrStorageFailure,
		Message:    err.Error(),
		HTTPStatus: http.StatusInternalServerError,
	}, h.logger)
}
