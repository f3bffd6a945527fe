package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/api/handlers"
	"github.com/HelgeSverre/llmflow-sub000/config"
	"github.com/HelgeSverre/llmflow-sub000/internal/metrics"
	"github.com/HelgeSverre/llmflow-sub000/internal/server"
	"github.com/HelgeSverre/llmflow-sub000/live"
	"github.com/HelgeSverre/llmflow-sub000/otlp"
	"github.com/HelgeSverre/llmflow-sub000/pricing"
	"github.com/HelgeSverre/llmflow-sub000/providers"
	"github.com/HelgeSverre/llmflow-sub000/providers/anthropic"
	"github.com/HelgeSverre/llmflow-sub000/providers/azure"
	"github.com/HelgeSverre/llmflow-sub000/providers/gemini"
	"github.com/HelgeSverre/llmflow-sub000/providers/mistral"
	"github.com/HelgeSverre/llmflow-sub000/providers/openai"
	"github.com/HelgeSverre/llmflow-sub000/providers/openrouter"
	"github.com/HelgeSverre/llmflow-sub000/proxy"
	"github.com/HelgeSverre/llmflow-sub000/storage"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 把存储、适配器注册表、转发器、摄入与查询 API 装配为
// 单个 HTTP 服务。
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	store     *storage.Store
	registry  *providers.Registry
	recorder  *proxy.Recorder
	hub       *live.Hub
	collector *metrics.Collector

	manager *server.Manager
}

// NewServer 创建并装配服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	// 1. 存储与实时推送
	store, err := storage.Open(cfg.Storage.Path, cfg.Storage.Retention, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	s.store = store
	s.hub = live.NewHub(logger)
	store.SetInsertHook(s.hub.Publish)

	// 2. 价格表（内置价目 + 配置覆盖）
	calc := pricing.NewCalculator()
	for _, p := range cfg.Pricing {
		calc.SetPrice(p.Model, p.Input, p.Output)
	}

	// 3. 适配器注册表
	s.registry = buildRegistry(cfg.Providers, logger)

	// 4. 转发器与摄入
	s.recorder = proxy.NewRecorder(s.registry, store, calc, cfg.Server.UpstreamTimeout, logger)
	s.collector = metrics.NewCollector("llmflow", logger)
	s.recorder.SetMetrics(s.collector)
	store.SetInsertObserver(s.collector.RecordStoreInsert)

	normalizer := otlp.NewNormalizer(calc, logger)
	ingest := handlers.NewIngestHandler(normalizer, store, s.collector, logger)
	query := handlers.NewQueryHandler(store, logger)
	health := handlers.NewHealthHandler(Version, logger)

	// 5. 路由
	mux := http.NewServeMux()

	// OTLP 摄入（标准 OTLP/HTTP 路径）
	mux.HandleFunc("POST /v1/traces", ingest.HandleTraces)
	mux.HandleFunc("POST /v1/logs", ingest.HandleLogs)
	mux.HandleFunc("POST /v1/metrics", ingest.HandleMetrics)

	// 查询 API
	mux.HandleFunc("GET /api/spans", query.HandleSpans)
	mux.HandleFunc("GET /api/spans/{id}", query.HandleSpan)
	mux.HandleFunc("GET /api/spans/{id}/tree", query.HandleSpanTree)
	mux.HandleFunc("GET /api/logs", query.HandleLogs)
	mux.HandleFunc("GET /api/logs/events", query.HandleEventNames)
	mux.HandleFunc("GET /api/metrics", query.HandleMetrics)
	mux.HandleFunc("GET /api/metrics/names", query.HandleMetricNames)
	mux.HandleFunc("GET /api/models", query.HandleModels)
	mux.HandleFunc("GET /api/services", query.HandleServices)
	mux.HandleFunc("GET /api/stats/usage", query.HandleUsageTrend)
	mux.HandleFunc("GET /api/stats/cost", query.HandleCost)
	mux.HandleFunc("GET /api/stats/daily", query.HandleDaily)

	// 实时推送、指标、健康
	mux.Handle("GET /ws", s.hub)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", health.HandleHealth)

	// 其余一切都是代理转发
	mux.HandleFunc("/", s.handleProxy)

	handler := Chain(mux,
		Recovery(logger),
		RequestLogger(logger),
		MetricsMiddleware(s.collector),
	)

	s.manager = server.NewManager(server.Config{
		Addr:            ":" + strconv.Itoa(cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, handler, logger)

	return s, nil
}

// buildRegistry 按配置注册全部适配器
func buildRegistry(cfg config.ProvidersConfig, logger *zap.Logger) *providers.Registry {
	reg := providers.NewRegistry()
	reg.Register("/openai", openai.NewAdapter(cfg.OpenAI, logger))
	reg.Register("/anthropic", anthropic.NewAdapter(cfg.Anthropic, logger))
	reg.Register("/gemini", gemini.NewAdapter(cfg.Gemini, logger))
	reg.Register("/azure", azure.NewAdapter(cfg.Azure, logger))
	reg.Register("/mistral", mistral.NewAdapter(cfg.Mistral, logger))
	reg.Register("/openrouter", openrouter.NewAdapter(cfg.OpenRouter, logger))

	def := cfg.Default
	if _, ok := reg.Get(def); !ok {
		def = "openai"
	}
	reg.SetDefault(def)
	return reg
}

// handleProxy 把未被其他路由命中的请求当作代理调用处理
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	preq, err := proxy.ParseRequest(r)
	if err != nil {
		handlers.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	_ = s.recorder.Forward(r.Context(), w, preq)
}

// =============================================================================
// 🚀 生命周期
// =============================================================================

// Start 启动 HTTP 服务
func (s *Server) Start() error {
	if err := s.manager.Start(); err != nil {
		return err
	}
	s.logger.Info("LLMFlow ready",
		zap.String("addr", s.manager.Addr()),
		zap.Strings("providers", s.registry.List()),
	)
	return nil
}

// WaitForShutdown 阻塞到收到终止信号，然后优雅收尾
func (s *Server) WaitForShutdown() {
	if err := s.manager.WaitForShutdown(); err != nil {
		s.logger.Error("shutdown error", zap.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("close storage", zap.Error(err))
	}
}
