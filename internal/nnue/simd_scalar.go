//go:build !goexperiment.simd || !amd64

package nnue

// Without GOEXPERIMENT=simd on amd64 the accelerated set is the scalar one.
var accelKernels = scalarKernels

// HasAcceleration reports whether the AVX2 kernels can run on this CPU.
func HasAcceleration() bool {
	return false
}
