package ai

import (
	"fmt"
	"strings"
	"sync"
)

type BackendFactory func() (Backend, error)

// Registry maps provider names to backend constructors.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]BackendFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]BackendFactory)}
}

func (r *Registry) Register(name string, f BackendFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(name string) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return f()
}
