package gpucore

import "errors"

// Sentinel errors for gpucore and its device implementations.
var (
	// ErrDeviceClosed is returned when operating on a destroyed device.
	ErrDeviceClosed = errors.New("gpucore: device is closed")

	// ErrUnknownBuffer is returned when a buffer ID is not tracked by the device.
	ErrUnknownBuffer = errors.New("gpucore: unknown buffer")

	// ErrUnknownTexture is returned when a texture ID is not tracked by the device.
	ErrUnknownTexture = errors.New("gpucore: unknown texture")

	// ErrUnknownKernel is returned when a kernel ID is not tracked by the device.
	ErrUnknownKernel = errors.New("gpucore: unknown kernel")

	// ErrOutOfRange is returned for reads, writes or copies past a resource's bounds.
	ErrOutOfRange = errors.New("gpucore: access out of range")

	// ErrInvalidDescriptor is returned for zero sizes or unknown formats.
	ErrInvalidDescriptor = errors.New("gpucore: invalid descriptor")

	// ErrKernelSource is returned when a kernel has no source for the backend.
	ErrKernelSource = errors.New("gpucore: kernel has no source for this backend")

	// ErrKernelCompile is returned when a kernel fails to compile or link.
	ErrKernelCompile = errors.New("gpucore: kernel compilation failed")

	// ErrKernelNotFound is returned by KernelRegistry for unregistered names.
	ErrKernelNotFound = errors.New("gpucore: kernel not registered")

	// ErrDuplicateKernel is returned when registering a name twice.
	ErrDuplicateKernel = errors.New("gpucore: kernel already registered")

	// ErrPassEnded is returned when using a feedback pass after Draw or End.
	ErrPassEnded = errors.New("gpucore: feedback pass already ended")

	// ErrMissingBinding is returned by Draw when an input, output or texture is unbound.
	ErrMissingBinding = errors.New("gpucore: missing binding")

	// ErrAliasedFeedback is returned when a feedback buffer is also bound as an input.
	ErrAliasedFeedback = errors.New("gpucore: feedback buffer aliases an input")
)
