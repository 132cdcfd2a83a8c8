//go:build js && wasm

package webgl

import (
	"github.com/gogpu/pixkit/backend"
	"github.com/gogpu/pixkit/gpucore"
)

func init() {
	backend.Register(backend.BackendWebGL, func() (gpucore.Device, error) {
		d, err := New()
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}
