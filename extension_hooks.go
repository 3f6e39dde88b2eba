package vdrpool

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-vdrpool/core"
)

const (
	EngineGenesis = "genesis"
	EngineFake    = "fake"
)

// EnginePack names a pool factory so services can pick an engine by name.
type EnginePack struct {
	Name    string
	Factory core.PoolFactory
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

type ExtensionHooks struct {
	mu sync.RWMutex

	engines map[string]EnginePack
	bundles map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		engines: map[string]EnginePack{},
		bundles: map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterEngine(pack EnginePack) error {
	if h == nil {
		return fmt.Errorf("vdrpool: extension hooks are nil")
	}
	name := normalizeEngineName(pack.Name)
	if name == "" {
		return fmt.Errorf("vdrpool: engine name is required")
	}
	if pack.Factory == nil {
		return fmt.Errorf("vdrpool: engine %q has no pool factory", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.engines[name]; exists {
		return fmt.Errorf("vdrpool: engine %q already registered", name)
	}
	h.engines[name] = EnginePack{Name: name, Factory: pack.Factory}
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("vdrpool: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("vdrpool: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("vdrpool: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("vdrpool: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// Engine returns the factory registered under name.
func (h *ExtensionHooks) Engine(name string) (core.PoolFactory, bool) {
	if h == nil {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	pack, ok := h.engines[normalizeEngineName(name)]
	if !ok {
		return nil, false
	}
	return pack.Factory, true
}

// WithEngine resolves name to a WithPoolFactory option.
func (h *ExtensionHooks) WithEngine(name string) (Option, error) {
	factory, ok := h.Engine(name)
	if !ok {
		return nil, fmt.Errorf("vdrpool: engine %q is not registered", strings.TrimSpace(name))
	}
	return core.WithPoolFactory(factory), nil
}

func (h *ExtensionHooks) EngineNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.engines))
	for name := range h.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("vdrpool: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		names = append(names, name)
		factories[name] = factory
	}
	h.mu.RUnlock()
	sort.Strings(names)

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, fmt.Errorf("vdrpool: build bundle %q: %w", name, err)
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeEngineName(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}
