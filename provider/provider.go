package provider

import (
	"fmt"
	"sync"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/fansqz/debug-adapter/session"
	"github.com/sirupsen/logrus"
)

// Provider 调试会话的协作组件，在launch成功后初始化
type Provider interface {
	Name() string
	// DefaultOptions 该provider自身的默认参数，会和公共参数合并后传入Initialize
	DefaultOptions() map[string]interface{}
	Initialize(sctx *session.Context, options map[string]interface{}) error
}

// Registry 按注册顺序保存provider
type Registry struct {
	mu        sync.RWMutex
	providers *linkedhashmap.Map
}

func NewRegistry() *Registry {
	return &Registry{providers: linkedhashmap.New()}
}

// NewDefaultRegistry 包含源码查找、表达式求值、热替换、自动补全四个provider
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewSourceLookupProvider())
	r.Register(NewEvaluationProvider())
	r.Register(NewHotCodeReplaceProvider())
	r.Register(NewCompletionsProvider())
	return r
}

// Register 同名的provider会被替换
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers.Put(p.Name(), p)
}

func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.providers.Get(name)
	if !ok {
		return nil, false
	}
	return value.(Provider), true
}

func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Provider, 0, r.providers.Size())
	for _, value := range r.providers.Values() {
		result = append(result, value.(Provider))
	}
	return result
}

// InitializeAll 用公共参数加上各自的默认参数初始化每个provider，公共参数优先
func (r *Registry) InitializeAll(sctx *session.Context, common map[string]interface{}) error {
	for _, p := range r.All() {
		options := make(map[string]interface{}, len(common))
		for key, value := range p.DefaultOptions() {
			options[key] = value
		}
		for key, value := range common {
			options[key] = value
		}
		if err := p.Initialize(sctx, options); err != nil {
			return fmt.Errorf("initialize %s provider: %w", p.Name(), err)
		}
		logrus.Debugf("[Provider] %s initialized", p.Name())
	}
	return nil
}

// optionsHolder 保存初始化参数
type optionsHolder struct {
	mu      sync.RWMutex
	options map[string]interface{}
}

func (h *optionsHolder) store(options map[string]interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.options = options
}

// Option returns the value the provider was initialized with.
func (h *optionsHolder) Option(key string) (interface{}, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	value, ok := h.options[key]
	return value, ok
}
