package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/api"
	"github.com/HelgeSverre/llmflow-sub000/internal/metrics"
	"github.com/HelgeSverre/llmflow-sub000/otlp"
	"github.com/HelgeSverre/llmflow-sub000/storage"
	"github.com/HelgeSverre/llmflow-sub000/types"
)

// maxIngestBytes 限制单次 OTLP 导出请求体大小。
const maxIngestBytes = 20 << 20

// =============================================================================
// 📥 OTLP 摄入 Handler
// =============================================================================

// IngestHandler 处理 OTLP/HTTP JSON 导出请求。
// 单条记录的归一化失败只计入 partialSuccess，不影响同批其余记录；
// 只有整个请求体不可解析或存储写入失败才返回非 200。
type IngestHandler struct {
	normalizer *otlp.Normalizer
	store      *storage.Store
	collector  *metrics.Collector
	logger     *zap.Logger
}

// NewIngestHandler 创建 OTLP 摄入处理器
func NewIngestHandler(n *otlp.Normalizer, store *storage.Store, collector *metrics.Collector, logger *zap.Logger) *IngestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestHandler{
		normalizer: n,
		store:      store,
		collector:  collector,
		logger:     logger.With(zap.String("component", "ingest")),
	}
}

// HandleTraces 处理 POST /v1/traces
func (h *IngestHandler) HandleTraces(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.readPayload(w, r)
	if !ok {
		return
	}

	spans, summary, err := h.normalizer.NormalizeTraces(payload)
	if err != nil {
		h.rejectAll(w, "traces", err)
		return
	}
	for i := range spans {
		if err := h.store.InsertSpan(&spans[i]); err != nil {
			h.storageFailure(w, "traces", err)
			return
		}
	}
	h.respond(w, "traces", summary, func(ps *api.PartialSuccess) {
		ps.RejectedSpans = int64(summary.Rejected)
	})
}

// HandleLogs 处理 POST /v1/logs
func (h *IngestHandler) HandleLogs(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.readPayload(w, r)
	if !ok {
		return
	}

	records, summary, err := h.normalizer.NormalizeLogs(payload)
	if err != nil {
		h.rejectAll(w, "logs", err)
		return
	}
	for i := range records {
		if err := h.store.InsertLog(&records[i]); err != nil {
			h.storageFailure(w, "logs", err)
			return
		}
	}
	h.respond(w, "logs", summary, func(ps *api.PartialSuccess) {
		ps.RejectedLogRecords = int64(summary.Rejected)
	})
}

// HandleMetrics 处理 POST /v1/metrics
func (h *IngestHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.readPayload(w, r)
	if !ok {
		return
	}

	points, summary, err := h.normalizer.NormalizeMetrics(payload)
	if err != nil {
		h.rejectAll(w, "metrics", err)
		return
	}
	for i := range points {
		if err := h.store.InsertMetric(&points[i]); err != nil {
			h.storageFailure(w, "metrics", err)
			return
		}
	}
	h.respond(w, "metrics", summary, func(ps *api.PartialSuccess) {
		ps.RejectedDataPoints = int64(summary.Rejected)
	})
}

// =============================================================================
// 🔧 内部辅助
// =============================================================================

func (h *IngestHandler) readPayload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBytes))
	if err != nil {
		WriteError(w, &types.Error{
			Code:       types.ErrInvalidRequest,
			Message:    fmt.Sprintf("read export payload: %v", err),
			HTTPStatus: http.StatusBadRequest,
		}, h.logger)
		return nil, false
	}
	return payload, true
}

// respond 按 OTLP 约定返回：全部接受时空对象，部分拒绝时 partialSuccess。
func (h *IngestHandler) respond(w http.ResponseWriter, signal string, summary types.IngestSummary, fill func(*api.PartialSuccess)) {
	if h.collector != nil {
		h.collector.RecordIngest(signal, summary.Accepted, summary.Rejected)
	}
	resp := api.ExportResponse{}
	if summary.Rejected > 0 {
		ps := &api.PartialSuccess{ErrorMessage: strings.Join(summary.Errors, "; ")}
		fill(ps)
		resp.PartialSuccess = ps
		h.logger.Warn("partial ingest",
			zap.String("signal", signal),
			zap.Int("accepted", summary.Accepted),
			zap.Int("rejected", summary.Rejected))
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (h *IngestHandler) rejectAll(w http.ResponseWriter, signal string, err error) {
	if h.collector != nil {
		h.collector.RecordIngest(signal, 0, 1)
	}
	WriteError(w, &types.Error{
		Code:       types.ErrInvalidRequest,
		Message:    fmt.Sprintf("unparseable %s export: %v", signal, err),
		HTTPStatus: http.StatusBadRequest,
	}, h.logger)
}

func (h *IngestHandler) storageFailure(w http.ResponseWriter, signal string, err error) {
	WriteError(w, &types.Error{
		Code:       types.ErrStorageFailure,
		Message:    fmt.Sprintf("persist %s: %v", signal, err),
		HTTPStatus: http.StatusInternalServerError,
	}, h.logger)
}
