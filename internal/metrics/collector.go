package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 代理转发指标
	proxyRequestsTotal   *prometheus.CounterVec
	proxyRequestDuration *prometheus.HistogramVec
	proxyTokensUsed      *prometheus.CounterVec
	proxyCost            *prometheus.CounterVec

	// OTLP 摄入指标
	ingestRecordsTotal *prometheus.CounterVec

	// 存储指标
	storeInsertDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 代理转发指标
	c.proxyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_requests_total",
			Help:      "Total number of proxied LLM calls",
		},
		[]string{"provider", "model", "status"},
	)

	c.proxyRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "proxy_request_duration_seconds",
			Help:      "Proxied LLM call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)

	c.proxyTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_tokens_total",
			Help:      "Total tokens consumed by proxied calls",
		},
		[]string{"provider", "model", "type"},
	)

	c.proxyCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_cost_usd_total",
			Help:      "Accumulated cost of proxied calls in USD",
		},
		[]string{"provider", "model"},
	)

	// OTLP 摄入指标
	c.ingestRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_total",
			Help:      "OTLP records processed, by signal and outcome",
		},
		[]string{"signal", "outcome"},
	)

	// 存储指标
	c.storeInsertDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_insert_duration_seconds",
			Help:      "Telemetry insert duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"table"},
	)

	return c
}

// =============================================================================
// 🌐 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// =============================================================================
// 🔀 代理指标记录
// =============================================================================

// RecordProxyRequest 记录一次代理转发
func (c *Collector) RecordProxyRequest(provider, model string, status int, duration time.Duration, promptTokens, completionTokens int, cost float64) {
	c.proxyRequestsTotal.WithLabelValues(provider, model, strconv.Itoa(status)).Inc()
	c.proxyRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.proxyTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.proxyTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	c.proxyCost.WithLabelValues(provider, model).Add(cost)
}

// =============================================================================
// 📥 摄入指标记录
// =============================================================================

// RecordIngest 记录一批 OTLP 摄入的接受/拒绝计数
func (c *Collector) RecordIngest(signal string, accepted, rejected int) {
	c.ingestRecordsTotal.WithLabelValues(signal, "accepted").Add(float64(accepted))
	c.ingestRecordsTotal.WithLabelValues(signal, "rejected").Add(float64(rejected))
}

// RecordStoreInsert 记录一次落库耗时
func (c *Collector) RecordStoreInsert(table string, duration time.Duration) {
	c.storeInsertDuration.WithLabelValues(table).Observe(duration.Seconds())
}
