package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/pixkit"
	"github.com/gogpu/pixkit/gpucore"
)

// registry holds registered device factories.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for device selection (first that opens wins).
	// WebGL > WGPU > Software.
	backendPriority = []string{BackendWebGL, BackendWGPU, BackendSoftware}
)

// Register registers a device factory under name.
// This is typically called from init() functions in backend packages.
// A factory registered under an existing name replaces it.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a factory from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open opens the device registered under name.
func Open(name string) (gpucore.Device, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", ErrBackendNotAvailable, name)
	}
	dev, err := factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackendNotAvailable, name, err)
	}
	pixkit.Logger().Info("backend: device opened", "backend", name)
	return dev, nil
}

// Default opens the best available device based on priority, then any
// other registered backend. Backends that fail to open are logged at Warn
// and skipped.
func Default() (gpucore.Device, error) {
	names := make([]string, 0, len(backendPriority))
	names = append(names, backendPriority...)
	for _, name := range Available() {
		if !contains(backendPriority, name) {
			names = append(names, name)
		}
	}

	for _, name := range names {
		if !IsRegistered(name) {
			continue
		}
		dev, err := Open(name)
		if err == nil {
			return dev, nil
		}
		pixkit.Logger().Warn("backend: open failed, trying next", "backend", name, "err", err)
	}
	return nil, ErrBackendNotAvailable
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
