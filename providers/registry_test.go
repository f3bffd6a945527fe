package providers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HelgeSverre/llmflow-sub000/types"
)

// fakeAdapter is a minimal Adapter for registry tests.
type fakeAdapter struct{ name string }

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) ResolveTarget(*types.ProxyRequest) types.TargetDescriptor {
	return types.TargetDescriptor{Host: f.name, Port: 443, Scheme: "https"}
}
func (f *fakeAdapter) TransformRequestHeaders(h http.Header) http.Header { return h }
func (f *fakeAdapter) TransformRequestBody(b []byte) []byte              { return b }
func (f *fakeAdapter) NormalizeResponse(b []byte) NormalizedResponse {
	return NormalizedResponse{Body: b}
}
func (f *fakeAdapter) ParseStreamChunk(st StreamState, _ []byte) StreamState { return st }

func newTestRegistry() *Registry {
	reg := NewRegistry()
	reg.Register("/openai", &fakeAdapter{name: "openai"})
	reg.Register("/anthropic", &fakeAdapter{name: "anthropic"})
	reg.SetDefault("openai")
	return reg
}

func TestRegistry_ResolveByPrefix(t *testing.T) {
	reg := newTestRegistry()

	a, stripped := reg.Resolve("/anthropic/v1/messages", nil)
	require.NotNil(t, a)
	assert.Equal(t, "anthropic", a.Name())
	assert.Equal(t, "/v1/messages", stripped)
}

func TestRegistry_ResolveDefault(t *testing.T) {
	reg := newTestRegistry()

	// no prefix match falls back to the default adapter, path untouched
	a, stripped := reg.Resolve("/v1/chat/completions", nil)
	require.NotNil(t, a)
	assert.Equal(t, "openai", a.Name())
	assert.Equal(t, "/v1/chat/completions", stripped)
}

func TestRegistry_ResolveOverrideHeader(t *testing.T) {
	reg := newTestRegistry()

	h := http.Header{}
	h.Set(OverrideHeader, "anthropic")
	a, stripped := reg.Resolve("/v1/chat/completions", h)
	require.NotNil(t, a)
	assert.Equal(t, "anthropic", a.Name())
	assert.Equal(t, "/v1/chat/completions", stripped)

	// unknown override name falls through to prefix/default resolution
	h.Set(OverrideHeader, "nope")
	a, _ = reg.Resolve("/v1/chat/completions", h)
	assert.Equal(t, "openai", a.Name())
}

func TestRegistry_LongestPrefixWins(t *testing.T) {
	reg := newTestRegistry()
	reg.Register("/anthropic/beta", &fakeAdapter{name: "anthropic-beta"})

	a, stripped := reg.Resolve("/anthropic/beta/v1/messages", nil)
	assert.Equal(t, "anthropic-beta", a.Name())
	assert.Equal(t, "/v1/messages", stripped)
}

func TestRegistry_PrefixBoundary(t *testing.T) {
	reg := newTestRegistry()

	// "/anthropically" must not match prefix "/anthropic"
	a, _ := reg.Resolve("/anthropically/v1", nil)
	assert.Equal(t, "openai", a.Name())
}

func TestRegistry_BarePrefixPath(t *testing.T) {
	reg := newTestRegistry()

	a, stripped := reg.Resolve("/anthropic", nil)
	assert.Equal(t, "anthropic", a.Name())
	assert.Equal(t, "/", stripped)
}

func TestRegistry_List(t *testing.T) {
	reg := newTestRegistry()
	assert.Equal(t, []string{"anthropic", "openai"}, reg.List())
}
