// Package fft wraps gonum's complex FFT for the fixed-size transforms the
// partitioned-convolution HRTF engine needs: forward transform of a
// zero-padded real block, and the matching inverse.
package fft

import "gonum.org/v1/gonum/dsp/fourier"

// Manager holds one gonum CmplxFFT sized for a fixed transform length and
// reuses it across calls, matching the fixed block/segment sizing the
// partitioned convolver runs at (no per-call allocation of the transform
// plan itself; scratch slices are still owned by the caller).
type Manager struct {
	n   int
	fft *fourier.CmplxFFT
}

// New builds a manager for transforms of length n (the zero-padded,
// doubled block length, 2*block).
func New(n int) *Manager {
	return &Manager{n: n, fft: fourier.NewCmplxFFT(n)}
}

// Len returns the transform length this manager was built for.
func (m *Manager) Len() int { return m.n }

// Forward packs a real-valued time-domain block (length n, the caller is
// responsible for zero-padding) into dst as the complex spectrum. dst may
// be nil, in which case a new slice is allocated. Forward also allocates a
// complex packing buffer on every call; ForwardComplex does not pack.
func (m *Manager) Forward(dst []complex128, real []float64) []complex128 {
	src := make([]complex128, m.n)
	for i, v := range real {
		src[i] = complex(v, 0)
	}
	return m.fft.Coefficients(dst, src)
}

// ForwardComplex transforms an already-complex block in place (no packing);
// used on the hot multiply-accumulate path where the input segment is built
// directly as complex.
func (m *Manager) ForwardComplex(dst, src []complex128) []complex128 {
	return m.fft.Coefficients(dst, src)
}

// Inverse runs the inverse transform and normalizes by 1/n so that
// Inverse(Forward(x)) == x within floating-point tolerance, matching the
// FFT round-trip testable property.
func (m *Manager) Inverse(dst, src []complex128) []complex128 {
	dst = m.fft.Sequence(dst, src)
	scale := 1 / float64(m.n)
	for i := range dst {
		dst[i] *= complex(scale, 0)
	}
	return dst
}
