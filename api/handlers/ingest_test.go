package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/api"
	"github.com/HelgeSverre/llmflow-sub000/otlp"
	"github.com/HelgeSverre/llmflow-sub000/pricing"
	"github.com/HelgeSverre/llmflow-sub000/storage"
)

// =============================================================================
// 🧪 OTLP 摄入 Handler 测试
// =============================================================================

func newIngestHandler(t *testing.T) (*IngestHandler, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:", storage.DefaultRetention(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	n := otlp.NewNormalizer(pricing.NewCalculator(), zap.NewNop())
	return NewIngestHandler(n, store, nil, zap.NewNop()), store
}

func postJSON(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func TestHandleTraces_FullSuccess(t *testing.T) {
	h, store := newIngestHandler(t)

	body := `{"resourceSpans":[{"scopeSpans":[{"spans":[
		{"spanId":"aa01","traceId":"t1","name":"step","startTimeUnixNano":"1000000","endTimeUnixNano":"2000000"}
	]}]}]}`
	w := postJSON(h.HandleTraces, "/v1/traces", body)

	require.Equal(t, http.StatusOK, w.Code)
	// 全量成功时返回空对象，无 partialSuccess
	assert.JSONEq(t, `{}`, w.Body.String())

	spans, err := store.QuerySpans(storage.SpanFilter{})
	require.NoError(t, err)
	assert.Len(t, spans, 1)
}

func TestHandleTraces_PartialSuccess(t *testing.T) {
	h, store := newIngestHandler(t)

	body := `{"resourceSpans":[{"scopeSpans":[{"spans":[
		{"spanId":"aa01","traceId":"t1","name":"good","startTimeUnixNano":"1000000","endTimeUnixNano":"2000000"},
		{"spanId":"","name":"bad"}
	]}]}]}`
	w := postJSON(h.HandleTraces, "/v1/traces", body)

	// partialSuccess 仍然是 HTTP 200
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.ExportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.PartialSuccess)
	assert.Equal(t, int64(1), resp.PartialSuccess.RejectedSpans)
	assert.Contains(t, resp.PartialSuccess.ErrorMessage, "missing spanId")

	spans, err := store.QuerySpans(storage.SpanFilter{})
	require.NoError(t, err)
	assert.Len(t, spans, 1)
}

func TestHandleTraces_UnparseableBody(t *testing.T) {
	h, _ := newIngestHandler(t)
	w := postJSON(h.HandleTraces, "/v1/traces", "{broken")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleLogs_PartialSuccess(t *testing.T) {
	h, store := newIngestHandler(t)

	body := `{"resourceLogs":[{"scopeLogs":[{"logRecords":[
		{"timeUnixNano":"1000000","body":{"stringValue":"ok"}},
		{"body":{"stringValue":"no timestamp"}}
	]}]}]}`
	w := postJSON(h.HandleLogs, "/v1/logs", body)

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.ExportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.PartialSuccess)
	assert.Equal(t, int64(1), resp.PartialSuccess.RejectedLogRecords)

	logs, err := store.QueryLogs(storage.LogFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestHandleMetrics_Success(t *testing.T) {
	h, store := newIngestHandler(t)

	body := `{"resourceMetrics":[{"scopeMetrics":[{"metrics":[
		{"name":"tokens","sum":{"dataPoints":[{"timeUnixNano":"1000000","asInt":"5"}]}}
	]}]}]}`
	w := postJSON(h.HandleMetrics, "/v1/metrics", body)

	require.Equal(t, http.StatusOK, w.Code)
	points, err := store.QueryMetrics(storage.MetricFilter{})
	require.NoError(t, err)
	assert.Len(t, points, 1)
}
