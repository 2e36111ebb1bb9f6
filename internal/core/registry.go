package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]DatasetDefinition)
	registryMu sync.RWMutex
)

// Register adds a dataset definition to the registry.
// Panics if a dataset with the same key is already registered or the
// definition is invalid.
func Register(def DatasetDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Key]; exists {
		panic(fmt.Sprintf("dataset already registered: %s", def.Key))
	}
	if err := def.Validate(); err != nil {
		panic(err)
	}

	if def.FileName == "" {
		def.FileName = def.Key + ".csv"
	}

	registry[def.Key] = def
}

// Replace swaps an existing definition, typically with one overridden from
// a rule file. Returns false if key was never registered.
func Replace(def DatasetDefinition) (bool, error) {
	if err := def.Validate(); err != nil {
		return false, err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Key]; !exists {
		return false, nil
	}
	if def.FileName == "" {
		def.FileName = def.Key + ".csv"
	}
	registry[def.Key] = def
	return true, nil
}

// Unregister removes a dataset definition. Returns false if key was not
// registered.
func Unregister(key string) bool {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[key]; !exists {
		return false
	}
	delete(registry, key)
	return true
}

// Get returns a dataset definition by key.
// Returns false if not found.
func Get(key string) (DatasetDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered dataset definitions sorted by key.
func All() []DatasetDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DatasetDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// Keys returns all registered keys, sorted.
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

// DatasetCount returns the number of registered datasets.
func DatasetCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered datasets.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]DatasetDefinition)
}
