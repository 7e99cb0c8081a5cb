package schema

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]Preset)
	registryMu sync.RWMutex
)

// Register adds a mapping preset to the registry.
// Panics if a preset with the same key is already registered.
func Register(p Preset) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[p.Key]; exists {
		panic(fmt.Sprintf("mapping preset already registered: %s", p.Key))
	}
	if err := p.Mapping.Validate(); err != nil {
		panic(fmt.Sprintf("mapping preset %s: %v", p.Key, err))
	}

	registry[p.Key] = p
}

// Get returns a preset by key.
// Returns false if not found.
func Get(key string) (Preset, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	p, ok := registry[key]
	return p, ok
}

// All returns all registered presets, sorted by key for consistent
// ordering.
func All() []Preset {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Preset, 0, len(registry))
	for _, p := range registry {
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// Keys returns the registered preset keys, sorted.
func Keys() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
