package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config 服务器配置
type Config struct {
	// 监听地址
	Addr string `yaml:"addr" json:"addr"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout"`
	// 写入超时；流式转发场景应为 0
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// Manager HTTP 服务器管理器。
// Start 非阻塞；WaitForShutdown 监听 SIGINT/SIGTERM 并在配置的
// 超时内优雅关闭。
type Manager struct {
	server   *http.Server
	listener net.Listener
	config   Config
	logger   *zap.Logger
	group    *errgroup.Group
	mu       sync.Mutex
	running  bool
}

// NewManager 创建服务器管理器
func NewManager(cfg Config, handler http.Handler, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	return &Manager{
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		config: cfg,
		logger: logger.With(zap.String("component", "server")),
	}
}

// Start 在后台启动监听，端口被占用等监听错误立刻返回。
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("server already running on %s", m.listener.Addr())
	}

	ln, err := net.Listen("tcp", m.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", m.config.Addr, err)
	}
	m.listener = ln
	m.running = true

	m.group = &errgroup.Group{}
	m.group.Go(func() error {
		err := m.server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	m.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr 返回实际监听地址（端口 0 时由系统分配）。
func (m *Manager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

// Shutdown 优雅关闭：排空在途请求，超时后强制断开。
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.config.ShutdownTimeout)
	defer cancel()

	if err := m.server.Shutdown(ctx); err != nil {
		m.logger.Warn("graceful shutdown incomplete, forcing close", zap.Error(err))
		_ = m.server.Close()
	}
	if err := m.group.Wait(); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	m.logger.Info("server stopped")
	return nil
}

// WaitForShutdown 阻塞到收到 SIGINT/SIGTERM，然后优雅关闭。
func (m *Manager) WaitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	return m.Shutdown()
}
