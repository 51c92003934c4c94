package core

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// The registry is process-wide: tables register at init and
// LoadDefinitions adds more at startup.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]Definition)
)

// Register adds def to the registry and panics if it is invalid or its key
// is taken. Meant for init functions.
func Register(def Definition) {
	if err := register(def); err != nil {
		panic(err)
	}
}

func register(def Definition) error {
	if def.Info.Key == "" {
		return errors.New("dataset definition has no key")
	}
	if len(def.Info.Columns) == 0 {
		for _, spec := range def.FieldSpecs {
			def.Info.Columns = append(def.Info.Columns, spec.Name)
		}
	}
	for i, row := range def.Sample {
		if len(row) != len(def.Info.Columns) {
			return fmt.Errorf("dataset %s: sample row %d has %d cells, want %d",
				def.Info.Key, i+1, len(row), len(def.Info.Columns))
		}
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, taken := registry[def.Info.Key]; taken {
		return fmt.Errorf("dataset already registered: %s", def.Info.Key)
	}
	registry[def.Info.Key] = def
	return nil
}

// Get looks up a definition by key.
func Get(key string) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	def, ok := registry[key]
	return def, ok
}

// All returns every definition ordered by key.
func All() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return slices.SortedFunc(maps.Values(registry), func(a, b Definition) int {
		return cmp.Compare(a.Info.Key, b.Info.Key)
	})
}

// DatasetCount returns the number of registered datasets.
func DatasetCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
