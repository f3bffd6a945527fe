package providers

import (
	"net/http"
	"sort"
	"strings"
	"sync"
)

// OverrideHeader names the inbound header that forces a specific adapter
// regardless of path prefix.
const OverrideHeader = "X-Llmflow-Provider"

// Registry is a thread-safe lookup table resolving an inbound request to one
// Adapter, keyed by path prefix or by the explicit override header. A request
// is never unroutable: resolution always falls back to the default adapter.
type Registry struct {
	mu          sync.RWMutex
	byName      map[string]Adapter
	byPrefix    map[string]Adapter
	defaultName string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]Adapter),
		byPrefix: make(map[string]Adapter),
	}
}

// Register adds an adapter under the given path prefix (e.g. "/anthropic").
// Registering the same prefix again replaces the previous adapter.
func (r *Registry) Register(prefix string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix = "/" + strings.Trim(prefix, "/")
	r.byPrefix[prefix] = a
	r.byName[a.Name()] = a
}

// SetDefault designates the fallback adapter by name.
func (r *Registry) SetDefault(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultName = name
}

// Get retrieves an adapter by name.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byName[name]
	return a, ok
}

// Resolve maps an inbound path and header set to an adapter plus the path
// with the provider prefix stripped. Resolution order: override header,
// longest matching path prefix, then the default adapter with the path
// unchanged.
func (r *Registry) Resolve(path string, h http.Header) (Adapter, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h != nil {
		if name := strings.ToLower(strings.TrimSpace(h.Get(OverrideHeader))); name != "" {
			if a, ok := r.byName[name]; ok {
				return a, path
			}
		}
	}

	var bestPrefix string
	for prefix := range r.byPrefix {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if len(path) > len(prefix) && path[len(prefix)] != '/' {
			continue
		}
		if len(prefix) > len(bestPrefix) {
			bestPrefix = prefix
		}
	}
	if bestPrefix != "" {
		stripped := strings.TrimPrefix(path, bestPrefix)
		if stripped == "" {
			stripped = "/"
		}
		return r.byPrefix[bestPrefix], stripped
	}

	return r.byName[r.defaultName], path
}

// List returns the sorted names of all registered adapters.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
