// Package webgl provides a gpucore.Device on a browser WebGL2 context.
//
// Kernels are GLSL ES 3.00 vertex shaders. A feedback pass binds inputs as
// vertex attributes at their slots, the uniform block at binding point 0 and
// textures to units in slot order, then draws points with rasterization
// discarded while transform feedback captures the outputs into separate
// buffers. Every texture is a TEXTURE_2D_ARRAY, so samplers are declared as
// sampler2DArray.
//
// The device is available only when built for js/wasm. It registers itself
// as "webgl" with the backend registry, opening a WebGL2 context on a
// detached canvas.
package webgl
