package interactions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-interactions/core"
)

// HandlerPack is a named set of command-bus handlers an embedding application
// contributes, e.g. one pack per slash-command family.
type HandlerPack struct {
	Name     string
	Handlers []any
}

// ObserverPack is a named set of interaction observers that run alongside the
// default command-bus observer.
type ObserverPack struct {
	Name      string
	Observers []core.InteractionObserver
}

// FacadeBundleFactory builds an extension bundle over the wired facade.
type FacadeBundleFactory func(facade *Facade) (any, error)

// ExtensionHooks collects the packs downstream applications register before
// the runtime is assembled.
type ExtensionHooks struct {
	mu sync.RWMutex

	handlerPacks  map[string]HandlerPack
	observerPacks map[string]ObserverPack
	bundles       map[string]FacadeBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		handlerPacks:  map[string]HandlerPack{},
		observerPacks: map[string]ObserverPack{},
		bundles:       map[string]FacadeBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterHandlerPack(pack HandlerPack) error {
	if h == nil {
		return fmt.Errorf("interactions: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("interactions: handler pack name is required")
	}
	if len(pack.Handlers) == 0 {
		return fmt.Errorf("interactions: handler pack %q has no handlers", name)
	}

	normalized := HandlerPack{
		Name:     name,
		Handlers: append([]any(nil), pack.Handlers...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.handlerPacks[name]; exists {
		return fmt.Errorf("interactions: handler pack %q already registered", name)
	}
	h.handlerPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterObserverPack(pack ObserverPack) error {
	if h == nil {
		return fmt.Errorf("interactions: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("interactions: observer pack name is required")
	}
	if len(pack.Observers) == 0 {
		return fmt.Errorf("interactions: observer pack %q has no observers", name)
	}

	normalized := ObserverPack{
		Name:      name,
		Observers: append([]core.InteractionObserver(nil), pack.Observers...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.observerPacks[name]; exists {
		return fmt.Errorf("interactions: observer pack %q already registered", name)
	}
	h.observerPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterFacadeBundle(name string, factory FacadeBundleFactory) error {
	if h == nil {
		return fmt.Errorf("interactions: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("interactions: facade bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("interactions: facade bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("interactions: facade bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// ApplyHandlerPacks registers every pack's handlers into the registrar in
// name order.
func (h *ExtensionHooks) ApplyHandlerPacks(registrar CommandRegistrar) error {
	if h == nil {
		return nil
	}
	if registrar == nil {
		return fmt.Errorf("interactions: command registrar is required")
	}

	for _, pack := range h.HandlerPacks() {
		for _, handler := range pack.Handlers {
			if handler == nil {
				return fmt.Errorf("interactions: handler pack %q contains nil handler", pack.Name)
			}
			if err := registrar.RegisterCommand(handler); err != nil {
				return err
			}
		}
	}
	return nil
}

// ComposeObserver fans each interaction out to the base observer and every
// registered observer pack, in name order.
func (h *ExtensionHooks) ComposeObserver(base core.InteractionObserver) core.InteractionObserver {
	if h == nil {
		return base
	}
	packs := h.ObserverPacks()
	if len(packs) == 0 {
		return base
	}

	return core.ObserverFunc(func(ctx context.Context, interaction *core.Interaction) {
		if base != nil {
			base.OnInteraction(ctx, interaction)
		}
		for _, pack := range packs {
			for _, observer := range pack.Observers {
				if observer == nil {
					continue
				}
				observer.OnInteraction(ctx, interaction)
			}
		}
	})
}

func (h *ExtensionHooks) BuildFacadeBundles(facade *Facade) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if facade == nil {
		return nil, fmt.Errorf("interactions: facade is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]FacadeBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](facade)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) HandlerPacks() []HandlerPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.handlerPacks))
	for name := range h.handlerPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]HandlerPack, 0, len(names))
	for _, name := range names {
		pack := h.handlerPacks[name]
		out = append(out, HandlerPack{
			Name:     pack.Name,
			Handlers: append([]any(nil), pack.Handlers...),
		})
	}
	return out
}

func (h *ExtensionHooks) ObserverPacks() []ObserverPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.observerPacks))
	for name := range h.observerPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ObserverPack, 0, len(names))
	for _, name := range names {
		pack := h.observerPacks[name]
		out = append(out, ObserverPack{
			Name:      pack.Name,
			Observers: append([]core.InteractionObserver(nil), pack.Observers...),
		})
	}
	return out
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
