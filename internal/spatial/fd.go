package spatial

import (
	"auralis/internal/dsp/fft"
	"auralis/internal/hrtf"
)

// FDEngine is the partitioned uniform overlap-save convolution
// spatializer: one frequency-domain segment per block is pushed into a
// ring each call, and both the active and previous HRTF's segments are
// convolved against the ring before crossfading, per spec.md §4.4.
type FDEngine struct {
	store *hrtf.Store
	mgr   *fft.Manager

	ring    [][]complex128
	ringPos int

	lastBlock      []float64
	scratchTime    []float64
	scratchComplex []complex128

	accActiveL, accActiveR   []complex128
	accPrevL, accPrevR       []complex128
	timeActiveL, timeActiveR []complex128
	timePrevL, timePrevR     []complex128
}

// NewFDEngine builds an engine bound to store, whose Block/FFTLen/
// NSegments determine every buffer's size.
func NewFDEngine(store *hrtf.Store) *FDEngine {
	fftLen := store.FFTLen
	e := &FDEngine{
		store:          store,
		mgr:            fft.New(fftLen),
		ring:           make([][]complex128, store.NSegments),
		lastBlock:      make([]float64, store.Block),
		scratchTime:    make([]float64, fftLen),
		scratchComplex: make([]complex128, fftLen),
		accActiveL:     make([]complex128, fftLen),
		accActiveR:     make([]complex128, fftLen),
		accPrevL:       make([]complex128, fftLen),
		accPrevR:       make([]complex128, fftLen),
		timeActiveL:    make([]complex128, fftLen),
		timeActiveR:    make([]complex128, fftLen),
		timePrevL:      make([]complex128, fftLen),
		timePrevR:      make([]complex128, fftLen),
	}
	for i := range e.ring {
		e.ring[i] = make([]complex128, fftLen)
	}
	return e
}

// Process implements Spatializer.
func (e *FDEngine) Process(input []float32, out []float32, activeID, prevID int, distGain float64) {
	n := e.store.Block

	// Step 1: shift. Old last-N samples occupy the first half, new N
	// samples occupy the second half of the 2N buffer.
	copy(e.scratchTime[:n], e.lastBlock)
	for i := 0; i < n; i++ {
		v := float64(input[i])
		e.scratchTime[n+i] = v
		e.lastBlock[i] = v
	}
	for i, v := range e.scratchTime {
		e.scratchComplex[i] = complex(v, 0)
	}

	// Step 2: FFT into the ring at the next slot.
	e.ringPos = (e.ringPos + 1) % len(e.ring)
	e.mgr.ForwardComplex(e.ring[e.ringPos], e.scratchComplex)

	active := e.store.FD[activeID]
	prev := e.store.FD[prevID]

	// Step 3: multiply-accumulate across stored segments, per filter, per
	// ear; IFFT each accumulated spectrum.
	accumulate(e.accActiveL, e.ring, e.ringPos, active.Left)
	accumulate(e.accActiveR, e.ring, e.ringPos, active.Right)
	accumulate(e.accPrevL, e.ring, e.ringPos, prev.Left)
	accumulate(e.accPrevR, e.ring, e.ringPos, prev.Right)

	e.mgr.Inverse(e.timeActiveL, e.accActiveL)
	e.mgr.Inverse(e.timeActiveR, e.accActiveR)
	e.mgr.Inverse(e.timePrevL, e.accPrevL)
	e.mgr.Inverse(e.timePrevR, e.accPrevR)

	// Step 4: crossfade the second half (length N) of each inverse
	// transform into the output bus.
	half := n
	for i := 0; i < n; i++ {
		fadeIn, fadeOut := CrossfadeWeights(i, n)
		aL := real(e.timeActiveL[half+i])
		aR := real(e.timeActiveR[half+i])
		pL := real(e.timePrevL[half+i])
		pR := real(e.timePrevR[half+i])
		out[i*2+0] += float32((fadeIn*aL + fadeOut*pL) * distGain)
		out[i*2+1] += float32((fadeIn*aR + fadeOut*pR) * distGain)
	}
}

func accumulate(dst []complex128, ring [][]complex128, pos int, filterSegs [][]complex128) {
	for i := range dst {
		dst[i] = 0
	}
	s := len(ring)
	nSeg := len(filterSegs)
	if nSeg > s {
		nSeg = s
	}
	for k := 0; k < nSeg; k++ {
		idx := ((pos-k)%s + s) % s
		seg := ring[idx]
		filt := filterSegs[k]
		for i := range dst {
			dst[i] += seg[i] * filt[i]
		}
	}
}
