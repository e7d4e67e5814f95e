package dispatcher

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-dispatcher/core"
)

// ComponentPack declares a downstream component and the correlation spaces
// it issues codes from.
type ComponentPack struct {
	Name   string
	Spaces []string
}

// CommandQueryBundleFactory builds a component specific bundle of handlers
// on top of the shared dispatch service.
type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

type ExtensionHooks struct {
	mu sync.RWMutex

	componentPacks map[string]ComponentPack
	bundles        map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		componentPacks: map[string]ComponentPack{},
		bundles:        map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterComponentPack(pack ComponentPack) error {
	if h == nil {
		return fmt.Errorf("dispatcher: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("dispatcher: component pack name is required")
	}
	if len(pack.Spaces) == 0 {
		return fmt.Errorf("dispatcher: component pack %q declares no spaces", name)
	}
	spaces := make([]string, 0, len(pack.Spaces))
	for _, space := range pack.Spaces {
		normalized := core.NormalizeSpace(space)
		if normalized != core.SpaceActivity && normalized != core.SpacePermission {
			return fmt.Errorf("dispatcher: component pack %q: %w", name, &core.UnknownSpaceError{Space: space})
		}
		if !slices.Contains(spaces, normalized) {
			spaces = append(spaces, normalized)
		}
	}
	sort.Strings(spaces)

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.componentPacks[name]; exists {
		return fmt.Errorf("dispatcher: component pack %q already registered", name)
	}
	h.componentPacks[name] = ComponentPack{Name: name, Spaces: spaces}
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("dispatcher: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("dispatcher: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("dispatcher: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("dispatcher: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// BuildCommandQueryBundles runs every registered factory against service in
// name order and stops at the first error.
func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("dispatcher: command/query service is required")
	}

	h.mu.RLock()
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, fmt.Errorf("dispatcher: build bundle %q: %w", name, err)
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) ComponentPacks() []ComponentPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.componentPacks))
	for name := range h.componentPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ComponentPack, 0, len(names))
	for _, name := range names {
		pack := h.componentPacks[name]
		out = append(out, ComponentPack{
			Name:   pack.Name,
			Spaces: append([]string(nil), pack.Spaces...),
		})
	}
	return out
}

// ComponentsForSpace lists the components sharing a space.
func (h *ExtensionHooks) ComponentsForSpace(space string) []string {
	if h == nil {
		return nil
	}
	space = core.NormalizeSpace(space)
	out := []string{}
	for _, pack := range h.ComponentPacks() {
		if slices.Contains(pack.Spaces, space) {
			out = append(out, pack.Name)
		}
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
