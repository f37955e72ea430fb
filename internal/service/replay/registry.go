package replay

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrViewNotFound is returned for an unknown replay view ID.
var ErrViewNotFound = errors.New("replay view not found")

// Registry 管理各个回放视图，每个视图拥有独立的 Engine
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*Engine
	opts    []Option
}

// NewRegistry 创建回放视图注册表，opts 应用于每个新建的 Engine
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		engines: make(map[string]*Engine),
		opts:    opts,
	}
}

// Create 新建一个回放视图
func (r *Registry) Create(extra ...Option) (string, *Engine) {
	opts := append(append([]Option(nil), r.opts...), extra...)
	engine := New(opts...)
	id := uuid.NewString()

	r.mu.Lock()
	r.engines[id] = engine
	r.mu.Unlock()

	return id, engine
}

// Get 获取回放视图
func (r *Registry) Get(id string) (*Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engine, ok := r.engines[id]
	if !ok {
		return nil, ErrViewNotFound
	}
	return engine, nil
}

// Remove 关闭并移除回放视图
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	engine, ok := r.engines[id]
	delete(r.engines, id)
	r.mu.Unlock()

	if !ok {
		return ErrViewNotFound
	}
	engine.Close()
	return nil
}

// Len 返回当前视图数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}

// CloseAll 关闭所有回放视图
func (r *Registry) CloseAll() {
	r.mu.Lock()
	engines := r.engines
	r.engines = make(map[string]*Engine)
	r.mu.Unlock()

	for _, engine := range engines {
		engine.Close()
	}
}
