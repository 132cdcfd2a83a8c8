package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/pixkit/backend/software"
	"github.com/gogpu/pixkit/gpucore"
)

func TestSoftwareRegistered(t *testing.T) {
	if !IsRegistered(BackendSoftware) {
		t.Fatal("software backend not registered on import")
	}
	dev, err := Open(BackendSoftware)
	if err != nil {
		t.Fatalf("Open(software) error = %v", err)
	}
	if dev.Name() != "software" {
		t.Errorf("Name() = %q, want software", dev.Name())
	}
	Close(dev)
	if _, err := dev.CreateBuffer(&gpucore.BufferDesc{Size: 4}); !errors.Is(err, gpucore.ErrDeviceClosed) {
		t.Errorf("CreateBuffer after Close error = %v, want ErrDeviceClosed", err)
	}
	if _, ok := dev.(*software.Device); !ok {
		t.Errorf("Open(software) returned %T", dev)
	}
}

func TestRegistryOpenUnregistered(t *testing.T) {
	if _, err := Open("nonexistent"); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(nonexistent) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRegistryRegisterAndUnregister(t *testing.T) {
	Register("test", func() (gpucore.Device, error) { return software.New(software.WithWorkers(1)), nil })
	t.Cleanup(func() { Unregister("test") })

	if !IsRegistered("test") {
		t.Fatal("IsRegistered(test) = false after Register")
	}
	if !slices.Contains(Available(), "test") {
		t.Errorf("Available() = %v, missing test", Available())
	}

	Unregister("test")
	if IsRegistered("test") {
		t.Error("IsRegistered(test) = true after Unregister")
	}
}

func TestRegistryDefaultFallsBack(t *testing.T) {
	errNoGPU := errors.New("no adapter")
	Register(BackendWebGL, func() (gpucore.Device, error) { return nil, errNoGPU })
	t.Cleanup(func() { Unregister(BackendWebGL) })

	if _, err := Open(BackendWebGL); !errors.Is(err, errNoGPU) || !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(webgl) error = %v, want both ErrBackendNotAvailable and cause", err)
	}

	dev, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	// wgpu is not imported by this test binary, so software wins.
	if dev.Name() != BackendSoftware {
		t.Errorf("Default().Name() = %q, want software", dev.Name())
	}
	dev.(*software.Device).Close()
}

func TestRegistryDefaultNone(t *testing.T) {
	saved := Available()
	registryMu.Lock()
	old := factories
	factories = make(map[string]Factory)
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		factories = old
		registryMu.Unlock()
	})

	if _, err := Default(); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Default() with empty registry error = %v, want ErrBackendNotAvailable (had %v)", err, saved)
	}
}
