package backend

import (
	"errors"

	"github.com/gogpu/pixkit/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or failed to open.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend name constants.
const (
	// BackendSoftware is the name of the CPU reference device.
	BackendSoftware = "software"
	// BackendWGPU is the name of the Pure Go GPU device (gogpu/wgpu HAL).
	BackendWGPU = "wgpu"
	// BackendWebGL is the name of the browser WebGL2 device.
	BackendWebGL = "webgl"
)

// Factory opens a device. Factories that need hardware return an error
// when it is missing so that Default can fall back.
type Factory func() (gpucore.Device, error)

// Close releases dev if its backend holds resources beyond the device
// objects, as the software worker pool and GPU devices do.
func Close(dev gpucore.Device) {
	if c, ok := dev.(interface{ Close() }); ok {
		c.Close()
	}
}
