package spatial

import (
	"auralis/internal/dsp/delay"
	"auralis/internal/dsp/iirf"
	"auralis/internal/hrtf"
)

// iirEarPair is one (ITD delay, recursive filter) chain per ear, for
// either the "new" or "old" coefficient set.
type iirEarPair struct {
	id      int
	delayL  *delay.Line
	delayR  *delay.Line
	filterL *iirf.Filter
	filterR *iirf.Filter
}

func newIIREarPair(itdCapacitySamples int) *iirEarPair {
	return &iirEarPair{
		id:      -1,
		delayL:  delay.New(itdCapacitySamples),
		delayR:  delay.New(itdCapacitySamples),
		filterL: iirf.New([]float64{0}, []float64{1}),
		filterR: iirf.New([]float64{0}, []float64{1}),
	}
}

// copyFrom takes over src's id, coefficients and running tap/delay state,
// without allocating. Used to hand the outgoing "new" chain's live state
// to "old" at the moment a chain transition happens, so the chain that is
// about to fade out keeps sounding like what was actually playing instead
// of being silently flushed.
func (p *iirEarPair) copyFrom(src *iirEarPair) {
	p.id = src.id
	p.delayL.CopyFrom(src.delayL)
	p.delayR.CopyFrom(src.delayR)
	p.filterL.CopyFrom(src.filterL)
	p.filterR.CopyFrom(src.filterR)
}

// install loads id's coefficient set and ITD into p and flushes its
// filter/delay state. Only ever called on the chain that is newly taking
// over as "new"; the chain being replaced already had its state carried
// off via copyFrom.
func (p *iirEarPair) install(store *hrtf.Store, id int) {
	set, ok := store.IIR[id]
	if !ok {
		set, ok = store.IIR[0]
		if !ok {
			return
		}
	}
	p.filterL.SetCoeffs(set.BL, set.AL)
	p.filterL.Reset()
	p.filterR.SetCoeffs(set.BR, set.AR)
	p.filterR.Reset()
	p.delayL.SetDelaySamples(set.ITDL)
	p.delayR.SetDelaySamples(set.ITDR)
	p.id = id
}

// IIREngine is the low-order recursive HRTF approximation with ITD
// fractional delay, spec.md §4.5. "new" is always the chain for the
// currently active HRTF id; "old" only exists to fade out whatever chain
// "new" just displaced. A chain transition is driven solely by activeID
// actually changing (mirroring HrtfProcessorIIR::update in the Rust
// prototype, which is a distinct call from per-block processing): on
// transition, "old" inherits "new"'s live filter and delay state via
// copyFrom before "new" is re-installed for the new id, so the fading-out
// chain keeps its continuity instead of snapping to silence.
type IIREngine struct {
	store *hrtf.Store
	new   *iirEarPair
	old   *iirEarPair
}

// NewIIREngine builds an engine bound to store, with ITD delay lines
// sized for itdCapacitySamples (must exceed the largest ITD in the
// store, in samples).
func NewIIREngine(store *hrtf.Store, itdCapacitySamples int) *IIREngine {
	return &IIREngine{
		store: store,
		new:   newIIREarPair(itdCapacitySamples),
		old:   newIIREarPair(itdCapacitySamples),
	}
}

// Process implements Spatializer. prevID is accepted for interface parity
// with FDEngine (whose filters are stateless and so can look up "previous"
// independently every call) but is not used here: the IIR chains track
// their own active id across calls and only transition on an actual change,
// since prevID itself changes every block during continuous angle motion.
func (e *IIREngine) Process(input []float32, out []float32, activeID, prevID int, distGain float64) {
	transitioned := e.new.id != activeID
	if transitioned {
		if e.new.id < 0 {
			// First install: no chain has played yet, so there is nothing
			// to fade out and the block plays unfaded.
			e.new.install(e.store, activeID)
			transitioned = false
		} else {
			e.old.copyFrom(e.new)
			e.new.install(e.store, activeID)
		}
	}

	n := len(input)
	for i := 0; i < n; i++ {
		x := input[i]

		newL := e.new.filterL.Tick(float64(e.new.delayL.Process(x)))
		newR := e.new.filterR.Tick(float64(e.new.delayR.Process(x)))

		var outL, outR float64
		if transitioned {
			oldL := e.old.filterL.Tick(float64(e.old.delayL.Process(x)))
			oldR := e.old.filterR.Tick(float64(e.old.delayR.Process(x)))
			fadeIn, fadeOut := CrossfadeWeights(i, n)
			outL = fadeIn*newL + fadeOut*oldL
			outR = fadeIn*newR + fadeOut*oldR
		} else {
			outL, outR = newL, newR
		}

		out[i*2+0] += float32(outL * distGain)
		out[i*2+1] += float32(outR * distGain)
	}
}
