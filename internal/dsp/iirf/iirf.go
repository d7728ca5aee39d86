// Package iirf implements a generic direct-form-II-transposed recursive
// filter: one streaming primitive reused for the air-absorption one-pole,
// the FDN per-line absorptive filter, and the HRTF IIR approximation.
package iirf

// Filter is a causal, real-coefficient IIR filter in direct-form-II
// transposed. Coefficients are normalized so a[0] == 1; b and a must have
// equal length after normalization. A zero value is not usable; construct
// with New.
type Filter struct {
	b []float64
	a []float64
	z []float64
}

// New builds a filter from numerator b and denominator a coefficients
// (a[0] need not be 1; it is divided out). b and a are padded with
// trailing zeros to a common length if they differ.
func New(b, a []float64) *Filter {
	n := len(b)
	if len(a) > n {
		n = len(a)
	}
	if n < 1 {
		n = 1
	}
	bb := make([]float64, n)
	copy(bb, b)
	aa := make([]float64, n)
	copy(aa, a)
	if len(aa) == 0 || aa[0] == 0 {
		aa = append([]float64{1}, aa...)
		aa = aa[:n]
	}
	a0 := aa[0]
	if a0 != 1 {
		for i := range bb {
			bb[i] /= a0
		}
		for i := range aa {
			aa[i] /= a0
		}
	}
	return &Filter{
		b: bb,
		a: aa,
		z: make([]float64, n-1),
	}
}

// Tick runs one sample through the filter.
func (f *Filter) Tick(x float64) float64 {
	n := len(f.b)
	if n == 1 {
		return f.b[0] * x
	}
	y := f.b[0]*x + f.z[0]
	last := n - 2
	for i := 0; i < last; i++ {
		f.z[i] = f.b[i+1]*x - f.a[i+1]*y + f.z[i+1]
	}
	f.z[last] = f.b[last+1]*x - f.a[last+1]*y
	return y
}

// Reset zeros the internal state without touching coefficients.
func (f *Filter) Reset() {
	for i := range f.z {
		f.z[i] = 0
	}
}

// SetCoeffs replaces the filter's coefficients in place, reusing the
// existing coefficient slices and keeping the existing state when their
// lengths match; otherwise reallocating and zeroing.
// Used by the HRTF IIR spatializer's old/new coefficient swap (§4.5).
func (f *Filter) SetCoeffs(b, a []float64) {
	n := len(b)
	if len(a) > n {
		n = len(a)
	}
	bb, aa := f.b, f.a
	if len(bb) != n {
		bb = make([]float64, n)
	}
	if len(aa) != n {
		aa = make([]float64, n)
	}
	for i := range bb {
		bb[i], aa[i] = 0, 0
	}
	copy(bb, b)
	copy(aa, a)
	a0 := aa[0]
	if a0 != 1 && a0 != 0 {
		for i := range bb {
			bb[i] /= a0
		}
		for i := range aa {
			aa[i] /= a0
		}
	}
	f.b = bb
	f.a = aa
	if len(f.z) != n-1 {
		f.z = make([]float64, n-1)
	}
}

// CopyFrom copies src's coefficients and running tap state into f, reusing
// f's existing slices when their lengths already match src's (always true
// for two filters built from the same HRTF coefficient set) so this never
// allocates on the audio path. Used by the HRTF IIR spatializer's old/new
// handoff (§4.5), which must carry the outgoing chain's live state forward
// rather than resetting it.
func (f *Filter) CopyFrom(src *Filter) {
	if len(f.b) != len(src.b) {
		f.b = make([]float64, len(src.b))
	}
	if len(f.a) != len(src.a) {
		f.a = make([]float64, len(src.a))
	}
	if len(f.z) != len(src.z) {
		f.z = make([]float64, len(src.z))
	}
	copy(f.b, src.b)
	copy(f.a, src.a)
	copy(f.z, src.z)
}

// OnePole is the air-absorption low-pass: y = b0*x + a1*y_prev, transfer
// function (1-α)/(1-α·z^-1).
type OnePole struct {
	b0, a1 float64
	z      float64
}

// NewOnePole builds a one-pole filter with feedback coefficient alpha.
func NewOnePole(alpha float64) *OnePole {
	return &OnePole{b0: 1 - alpha, a1: alpha}
}

// SetAlpha updates the feedback coefficient without touching state.
func (p *OnePole) SetAlpha(alpha float64) {
	p.b0 = 1 - alpha
	p.a1 = alpha
}

// Tick runs one sample through the one-pole filter.
func (p *OnePole) Tick(x float64) float64 {
	y := p.b0*x + p.a1*p.z
	p.z = y
	return y
}

// Reset zeros the filter state.
func (p *OnePole) Reset() {
	p.z = 0
}
