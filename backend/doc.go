// Package backend selects the gpucore.Device a pixkit program runs on.
//
// # Backend Registration
//
// Device factories are registered via init() functions and selected at
// runtime. The software device is registered on import of this package;
// GPU backends register themselves when imported:
//
//	import (
//		"github.com/gogpu/pixkit/backend"
//		_ "github.com/gogpu/pixkit/backend/wgpu"
//	)
//
// # Backend Selection
//
// Use Default to open the best available device, or Open to request one
// by name:
//
//	dev, err := backend.Default()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	dev, err = backend.Open("software")
//
// # Available Backends
//
//   - "software": CPU reference device (always available)
//   - "wgpu": gogpu/wgpu HAL compute (Vulkan), build tag !nogpu
//   - "webgl": WebGL2 transform feedback, GOOS=js GOARCH=wasm
package backend
