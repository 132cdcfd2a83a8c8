package backend

import (
	"github.com/gogpu/pixkit/backend/software"
	"github.com/gogpu/pixkit/gpucore"
)

// init registers the software device on package import.
func init() {
	Register(BackendSoftware, func() (gpucore.Device, error) {
		return software.New(), nil
	})
}
