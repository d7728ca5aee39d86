// Package fdn implements the 24-line feedback delay network: the late
// reverberation tail fed by a channel-mapped sum of image-source outputs,
// mixed by a normalized Hadamard matrix, and binauralized through HRTFs
// sampled at 24 quasi-uniform directions on the sphere (spec.md §4.6).
package fdn

import (
	"math"
	"math/rand"

	"auralis/internal/dsp/delay"
	"auralis/internal/dsp/iirf"
	"auralis/internal/hrtf"
	"auralis/internal/spatial"
)

// NumLines is N, the number of parallel delay lines.
const NumLines = mixingOrder

// presetDelaySecondsTable gives 24 mutually incommensurate delay-line
// lengths in seconds, spanning a typical small-to-medium room reverb tail.
// Per spec.md's Open Question (ii), exact tuning is out of scope; these are
// a reasonable fixed default, chosen as primes (in tenths of a millisecond)
// to avoid common factors that would otherwise comb-filter the tail.
var presetDelaySecondsTable = [NumLines]float64{
	0.0293, 0.0307, 0.0331, 0.0349, 0.0367, 0.0389,
	0.0409, 0.0431, 0.0449, 0.0467, 0.0491, 0.0509,
	0.0541, 0.0563, 0.0587, 0.0607, 0.0631, 0.0653,
	0.0673, 0.0701, 0.0727, 0.0751, 0.0773, 0.0797,
}

// ChannelForImageSource is k mod 24: the deterministic, even distribution
// of a real source's image-source indices across FDN feed lines.
func ChannelForImageSource(k int) int {
	m := k % NumLines
	if m < 0 {
		m += NumLines
	}
	return m
}

// fdnLine is one delay line plus its per-line absorptive IIR. Distinct from
// internal/dsp/delay's own built-in air-absorption one-pole: this filter
// models frequency-dependent wall/air damping of the reverb tail itself,
// not propagation distance.
type fdnLine struct {
	delay  *delay.Line
	absorb *iirf.Filter
}

func newFDNLine(delaySamples float64, b, a []float64, capacity int) *fdnLine {
	d := delay.New(capacity)
	d.SetDelaySamples(delaySamples)
	return &fdnLine{delay: d, absorb: iirf.New(b, a)}
}

func (l *fdnLine) tick(x float64) float64 {
	return l.absorb.Tick(float64(l.delay.Process(float32(x))))
}

// defaultDampingCoeffs returns a default low-pass damping filter for a line
// of the given length, with DC loop gain g chosen to decay -60 dB over
// rt60Seconds. The filter has a single real pole (0.35·g); it is stored in
// an order-8 (b,a) shape whose higher coefficients are all zero.
func defaultDampingCoeffs(delaySamples float64, sampleRate, rt60Seconds float64) (b, a []float64) {
	loopSeconds := delaySamples / sampleRate
	g := math.Pow(10, -3*loopSeconds/rt60Seconds)
	const order = 8
	a = make([]float64, order+1)
	a[0] = 1
	pole := g * 0.35
	for i := 1; i <= order; i++ {
		a[i] = 0
	}
	a[1] = -pole
	b = make([]float64, order+1)
	b[0] = g * (1 - pole)
	return b, a
}

// FDN is the full 24-line feedback delay network plus its binauralization
// stage.
type FDN struct {
	lines  [NumLines]*fdnLine
	matrix *Matrix

	state   [NumLines]float64
	outputs [NumLines]float64
	mixed   [NumLines]float64

	block    int
	accum    [NumLines][]float32
	lineOut  [NumLines][]float32

	binaural [NumLines]*spatial.IIREngine
	angleID  [NumLines]int
}

// New builds an FDN using the fixed preset delay-line-length table, a
// sampleRate-derived capacity, a default per-line damping filter tuned to
// rt60Seconds, and one fixed-angle IIR spatializer per line looked up in
// store.
func New(block int, sampleRate, rt60Seconds float64, store *hrtf.Store) *FDN {
	f := &FDN{matrix: NewMatrix(), block: block}
	angles := fibonacciAngles(NumLines)

	for n := 0; n < NumLines; n++ {
		delaySamples := presetDelaySecondsTable[n] * sampleRate
		capacity := int(delaySamples) + 2
		b, a := defaultDampingCoeffs(delaySamples, sampleRate, rt60Seconds)
		f.lines[n] = newFDNLine(delaySamples, b, a, capacity)

		f.accum[n] = make([]float32, block)
		f.lineOut[n] = make([]float32, block)

		itdCapacity := int(sampleRate*0.001) + 4
		f.binaural[n] = spatial.NewIIREngine(store, itdCapacity)
		f.angleID[n] = store.Nearest(angles[n].AzimuthDeg, angles[n].ElevationDeg)
	}
	return f
}

// NewFromRoomGeometry derives delay-line lengths from room dimensions
// instead of the fixed preset table, following the prototype's randomized
// approach (spec.md's Open Question ii, kept as an alternate constructor):
// each line's length is the room's mean free path times a random factor in
// [0.5, 1.5) drawn from rng.
func NewFromRoomGeometry(block int, sampleRate, rt60Seconds float64, store *hrtf.Store, roomWidth, roomHeight, roomLength float64, rng *rand.Rand) *FDN {
	f := &FDN{matrix: NewMatrix(), block: block}
	angles := fibonacciAngles(NumLines)

	volume := float64(roomWidth) * float64(roomHeight) * float64(roomLength)
	surface := 2 * (roomWidth*roomHeight + roomWidth*roomLength + roomHeight*roomLength)
	meanFreePath := 4 * volume / math.Max(surface, 1e-6)
	baseSeconds := meanFreePath / 343.0

	for n := 0; n < NumLines; n++ {
		frac := 0.5 + rng.Float64()
		delaySeconds := baseSeconds * frac
		delaySamples := delaySeconds * sampleRate
		capacity := int(delaySamples) + 2
		b, a := defaultDampingCoeffs(delaySamples, sampleRate, rt60Seconds)
		f.lines[n] = newFDNLine(delaySamples, b, a, capacity)

		f.accum[n] = make([]float32, block)
		f.lineOut[n] = make([]float32, block)

		itdCapacity := int(sampleRate*0.001) + 4
		f.binaural[n] = spatial.NewIIREngine(store, itdCapacity)
		f.angleID[n] = store.Nearest(angles[n].AzimuthDeg, angles[n].ElevationDeg)
	}
	return f
}

// ResetAccum zeros the per-line external-input accumulator ahead of a new
// block.
func (f *FDN) ResetAccum() {
	for n := 0; n < NumLines; n++ {
		buf := f.accum[n]
		for i := range buf {
			buf[i] = 0
		}
	}
}

// Accumulate adds v into FDN feed channel for sample index i within the
// current block, per spec.md §4.6's "plus the external contribution".
func (f *FDN) Accumulate(channel, i int, v float32) {
	f.accum[channel][i] += v
}

// Advance runs the network for one block of samples and adds its
// binauralized output into out (interleaved stereo, length 2*block).
func (f *FDN) Advance(out []float32) {
	n := f.block
	for i := 0; i < n; i++ {
		for c := 0; c < NumLines; c++ {
			in := f.state[c] + float64(f.accum[c][i])
			o := f.lines[c].tick(in)
			f.outputs[c] = o
			f.lineOut[c][i] = float32(o)
		}
		f.matrix.Apply(&f.outputs, &f.mixed)
		f.state = f.mixed
	}

	for c := 0; c < NumLines; c++ {
		id := f.angleID[c]
		f.binaural[c].Process(f.lineOut[c], out, id, id, 1.0)
	}
}
