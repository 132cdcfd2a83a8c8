package gpucore

import (
	"fmt"
	"sort"
	"sync"
)

// KernelRegistry compiles kernels once per device and hands out their IDs
// by name. It replaces a process-wide program cache: each device owns its
// registry and the registry is passed to the components that need kernels.
//
// KernelRegistry is safe for concurrent use.
type KernelRegistry struct {
	mu      sync.RWMutex
	dev     Device
	kernels map[string]registeredKernel
}

type registeredKernel struct {
	id   KernelID
	desc *KernelDesc
}

// NewKernelRegistry creates an empty registry bound to dev.
func NewKernelRegistry(dev Device) *KernelRegistry {
	return &KernelRegistry{
		dev:     dev,
		kernels: make(map[string]registeredKernel),
	}
}

// Register compiles desc on the registry's device and stores it under
// desc.Name. Registering a name twice returns ErrDuplicateKernel.
// Compilation errors are returned unchanged (wrapping ErrKernelCompile or
// ErrKernelSource) and nothing is stored.
func (r *KernelRegistry) Register(desc *KernelDesc) (KernelID, error) {
	if desc == nil || desc.Name == "" {
		return InvalidID, fmt.Errorf("%w: kernel name is empty", ErrInvalidDescriptor)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.kernels[desc.Name]; ok {
		return InvalidID, fmt.Errorf("%w: %q", ErrDuplicateKernel, desc.Name)
	}

	id, err := r.dev.CreateKernel(desc)
	if err != nil {
		return InvalidID, fmt.Errorf("register %q: %w", desc.Name, err)
	}
	r.kernels[desc.Name] = registeredKernel{id: id, desc: desc}
	return id, nil
}

// Kernel returns the ID and descriptor registered under name.
func (r *KernelRegistry) Kernel(name string) (KernelID, *KernelDesc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.kernels[name]
	if !ok {
		return InvalidID, nil, fmt.Errorf("%w: %q", ErrKernelNotFound, name)
	}
	return k.id, k.desc, nil
}

// Names returns the registered kernel names in sorted order.
func (r *KernelRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.kernels))
	for name := range r.kernels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Device returns the device kernels are compiled on.
func (r *KernelRegistry) Device() Device {
	return r.dev
}

// Close destroys every registered kernel and empties the registry.
func (r *KernelRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, k := range r.kernels {
		r.dev.DestroyKernel(k.id)
		delete(r.kernels, name)
	}
}
