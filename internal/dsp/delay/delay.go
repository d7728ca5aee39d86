// Package delay implements the circular delay line with air absorption
// described for image-source propagation: a power-of-two buffer, a
// continuously-advancing fractional read head, and a one-pole low-pass
// applied in series with the delayed read.
package delay

import (
	"math"

	"auralis/internal/dsp/iirf"
)

// Line is a single delay line. Not safe for concurrent use; owned by one
// renderer-side ISM node.
type Line struct {
	buf    []float32
	mask   int64
	wp     int64
	rp     float64
	cap    int
	absorb *iirf.OnePole
}

// New allocates a line whose capacity is the next power of two at or above
// capacitySamples.
func New(capacitySamples int) *Line {
	n := nextPow2(capacitySamples)
	return &Line{
		buf:    make([]float32, n),
		mask:   int64(n - 1),
		cap:    n,
		absorb: iirf.NewOnePole(0),
	}
}

func nextPow2(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Capacity returns the buffer length in samples.
func (l *Line) Capacity() int { return l.cap }

// DelaySamples returns the current read/write gap in samples. Invariant
// under Process (both heads advance together), so it reflects whatever was
// last requested via SetDelaySamples (post-clamp).
func (l *Line) DelaySamples() float64 {
	return float64(l.wp) - l.rp
}

// SetDelaySamples sets the read head so that it trails the write head by d
// samples. Values beyond capacity are clamped to capacity-1, per the delay
// line contract.
func (l *Line) SetDelaySamples(d float64) {
	max := float64(l.cap - 1)
	if d > max {
		d = max
	}
	if d < 0 {
		d = 0
	}
	l.rp = float64(l.wp) - d
}

// SetAirAbsorption derives the one-pole coefficient from a propagation
// distance in meters: α = 0.2·ln(d/3 + 1).
func (l *Line) SetAirAbsorption(distanceMeters float64) {
	if distanceMeters < 0 {
		distanceMeters = 0
	}
	alpha := 0.2 * math.Log(distanceMeters/3+1)
	l.absorb.SetAlpha(alpha)
}

// Process writes x at the write head, advances both heads by one sample,
// and returns the absorption-filtered, linearly-interpolated delayed read.
// The write comes first, so a delay of 0 returns x itself.
func (l *Line) Process(x float32) float32 {
	l.write(x)
	return float32(l.absorb.Tick(float64(l.read())))
}

func (l *Line) read() float32 {
	pos := l.rp
	l.rp++
	i0 := int64(math.Floor(pos))
	frac := float32(pos - float64(i0))
	v0 := l.buf[i0&l.mask]
	v1 := l.buf[(i0+1)&l.mask]
	return v0 + (v1-v0)*frac
}

func (l *Line) write(x float32) {
	l.buf[l.wp&l.mask] = x
	l.wp++
}

// CopyFrom copies src's buffer contents, read/write heads and absorption
// filter state into l without allocating. The two lines must share the
// same capacity, true for any pair built via New with the same
// capacitySamples (as the IIR HRTF engine's old/new ear pairs are).
func (l *Line) CopyFrom(src *Line) {
	copy(l.buf, src.buf)
	l.mask = src.mask
	l.wp = src.wp
	l.rp = src.rp
	l.cap = src.cap
	*l.absorb = *src.absorb
}

// Reset zeros the buffer and both heads, and clears the absorption filter
// state. Used only at construction/topology-reset time, never on the
// steady-state audio path.
func (l *Line) Reset() {
	for i := range l.buf {
		l.buf[i] = 0
	}
	l.wp = 0
	l.rp = 0
	l.absorb.Reset()
}
