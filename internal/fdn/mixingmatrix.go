package fdn

import "math"

// mixingOrder is N in the 24-line feedback delay network.
const mixingOrder = 24

// paleyPrime is q = 23, the prime used in the Paley construction: q ≡ 3
// (mod 4), giving a (non-symmetric) Hadamard matrix of order q+1 = 24. 24 is not
// a power of 2, so the usual Sylvester doubling construction does not
// apply; Paley's construction is the standard alternative for orders of
// the form (prime ≡ 3 mod 4) + 1.
const paleyPrime = 23

// buildHadamard24 returns the order-24 ±1 Hadamard matrix from the Paley
// construction, normalized so that H·Hᵀ = I (constant-power mixing).
func buildHadamard24() [mixingOrder][mixingOrder]float64 {
	q := paleyPrime

	residues := make(map[int]bool, q/2)
	for a := 1; a < q; a++ {
		residues[(a*a)%q] = true
	}
	chi := func(a int) int {
		a = ((a % q) + q) % q
		if a == 0 {
			return 0
		}
		if residues[a] {
			return 1
		}
		return -1
	}

	var h [mixingOrder][mixingOrder]float64
	h[0][0] = 1
	for k := 0; k < q; k++ {
		h[0][1+k] = 1
		h[1+k][0] = 1
	}
	for i := 0; i < q; i++ {
		for j := 0; j < q; j++ {
			v := chi(j - i)
			if i == j {
				v--
			}
			h[1+i][1+j] = float64(v)
		}
	}

	scale := 1 / math.Sqrt(float64(mixingOrder))
	for i := range h {
		for j := range h[i] {
			h[i][j] *= scale
		}
	}
	return h
}

// Matrix is the normalized 24x24 Hadamard mixing matrix.
type Matrix struct {
	h [mixingOrder][mixingOrder]float64
}

// NewMatrix builds the mixing matrix.
func NewMatrix() *Matrix {
	return &Matrix{h: buildHadamard24()}
}

// Apply mixes in (the 24 delay-line outputs for one sample) into out (the
// 24 feedback inputs for the next sample): a hand-expanded sum of ±
// weighted inputs per output line, scaled by 1/√24 — expressed here as 24
// dot products rather than 24 literal lines of transcribed arithmetic, see
// DESIGN.md.
func (m *Matrix) Apply(in *[mixingOrder]float64, out *[mixingOrder]float64) {
	for n := 0; n < mixingOrder; n++ {
		var sum float64
		row := &m.h[n]
		for k := 0; k < mixingOrder; k++ {
			sum += row[k] * in[k]
		}
		out[n] = sum
	}
}
