package server

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 服务器生命周期测试
// =============================================================================

func testHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	return mux
}

func TestManager_StartServeShutdown(t *testing.T) {
	m := NewManager(Config{Addr: "127.0.0.1:0", ShutdownTimeout: 5 * time.Second}, testHandler(), zap.NewNop())

	require.NoError(t, m.Start())
	addr := m.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))

	require.NoError(t, m.Shutdown())

	// 关闭后端口不再接受连接
	_, err = http.Get("http://" + addr + "/ping")
	assert.Error(t, err)
}

func TestManager_DoubleStart(t *testing.T) {
	m := NewManager(Config{Addr: "127.0.0.1:0"}, testHandler(), zap.NewNop())
	require.NoError(t, m.Start())
	defer func() { _ = m.Shutdown() }()

	assert.Error(t, m.Start())
}

func TestManager_ShutdownWithoutStart(t *testing.T) {
	m := NewManager(Config{Addr: "127.0.0.1:0"}, testHandler(), zap.NewNop())
	assert.NoError(t, m.Shutdown())
}

func TestManager_ListenConflict(t *testing.T) {
	first := NewManager(Config{Addr: "127.0.0.1:0"}, testHandler(), zap.NewNop())
	require.NoError(t, first.Start())
	defer func() { _ = first.Shutdown() }()

	second := NewManager(Config{Addr: first.Addr()}, testHandler(), zap.NewNop())
	assert.Error(t, second.Start())
}

func TestManager_AddrBeforeStart(t *testing.T) {
	m := NewManager(Config{Addr: "127.0.0.1:0"}, testHandler(), zap.NewNop())
	assert.Empty(t, m.Addr())
}
