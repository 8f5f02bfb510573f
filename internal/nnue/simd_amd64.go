//go:build goexperiment.simd && amd64

package nnue

import (
	"simd/archsimd"

	"golang.org/x/sys/cpu"
)

// AVX2 lane counts.
const (
	int16Lanes = 16
	int32Lanes = 8
)

var accelKernels = kernels{addRow: addRowAVX2, subRow: subRowAVX2, dot: dotAVX2}

// HasAcceleration reports whether the AVX2 kernels can run on this CPU.
func HasAcceleration() bool {
	return cpu.X86.HasAVX2
}

func addRowAVX2(acc *[L1Size]int16, row []int16) {
	row = row[:L1Size]
	for i := 0; i < L1Size; i += int16Lanes {
		a := archsimd.LoadInt16x16(acc[i:])
		r := archsimd.LoadInt16x16(row[i:])
		archsimd.StoreInt16x16(acc[i:], a.Add(r))
	}
}

func subRowAVX2(acc *[L1Size]int16, row []int16) {
	row = row[:L1Size]
	for i := 0; i < L1Size; i += int16Lanes {
		a := archsimd.LoadInt16x16(acc[i:])
		r := archsimd.LoadInt16x16(row[i:])
		archsimd.StoreInt16x16(acc[i:], a.Sub(r))
	}
}

// dotAVX2 widens eight activations and weights to int32 lanes per step and
// keeps eight partial sums. Lengths are multiples of 8; any tail is summed
// in scalar code.
func dotAVX2(a []uint8, w []int8) int32 {
	w = w[:len(a)]
	var sum archsimd.Int32x8
	var wa, ww [int32Lanes]int32
	i := 0
	for ; i+int32Lanes <= len(a); i += int32Lanes {
		for j := 0; j < int32Lanes; j++ {
			wa[j] = int32(a[i+j])
			ww[j] = int32(w[i+j])
		}
		va := archsimd.LoadInt32x8(wa[:])
		vw := archsimd.LoadInt32x8(ww[:])
		sum = sum.Add(va.Mul(vw))
	}
	var out int32
	for j := 0; j < int32Lanes; j++ {
		out += sum.Get(j)
	}
	for ; i < len(a); i++ {
		out += int32(a[i]) * int32(w[i])
	}
	return out
}
