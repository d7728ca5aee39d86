// Package render drives the per-audio-callback orchestration: applying
// the latest published scene to the image-source forest, mixing every
// active node's delayed, spatialized output into the stereo bus, and
// feeding/advancing the feedback delay network, grounded on the teacher's
// hrtfReader.Read (internal/components/hrtfaudiosource.go): an io.Reader
// driven by oto.Player's playback goroutine, generalized from one
// panner-per-source to the full ISM + FDN pipeline.
package render

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"auralis/internal/audiosrc"
	"auralis/internal/fdn"
	"auralis/internal/hrtf"
	"auralis/internal/ism"
	"auralis/internal/scene"
	"auralis/internal/spatial"
)

// State is the renderer's lifecycle, spec.md §4.7.
type State int

const (
	StateUninitialized State = iota
	StateWaitingForFirstSnapshot
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateWaitingForFirstSnapshot:
		return "WaitingForFirstSnapshot"
	case StateRunning:
		return "Running"
	default:
		return "?"
	}
}

// Config bundles the fixed construction parameters of a Renderer.
type Config struct {
	Block        int
	SampleRate   int
	SpeedOfSound float64
	Order        int
	MaxSources   int
	GainEpsilon  float64
	RT60Seconds  float64
	Room         scene.Room
}

// Renderer owns every piece of render-path DSP state: the ISM forest, the
// FDN, and per-node spatializers. It is driven exclusively by Read, never
// by ingest, per spec.md §5's shared-resource policy.
type Renderer struct {
	state  State
	queue  *scene.Queue
	logger *log.Logger
	stats  *Stats

	forest  *ism.Forest
	network *fdn.FDN
	store   *hrtf.Store
	sources []*audiosrc.Source
	nearest ism.NearestFunc

	room       scene.Room
	block      int
	sampleRate int

	// nodeSpatializers[tree][node] is built once: the root of every tree
	// uses the frequency-domain engine (reserved for the direct path per
	// spec.md §4.7's timing budget note); every deeper node uses the
	// cheaper IIR engine.
	nodeSpatializers [][]spatial.Spatializer

	scratchMono [][]float32   // per source slot, length block
	nodeOut     [][][]float32 // [tree][node], length block
	stereoOut   []float32     // length 2*block

	outBuf       []byte // fixed-size encoded block, reused every call
	outBufOffset int    // how much of outBuf has already been copied to a caller
}

// itdCapacitySamples bounds every IIR spatializer's ITD delay line.
func itdCapacitySamples(sampleRate int) int {
	return sampleRate/1000 + 8
}

// New constructs a Renderer. sources are assigned to forest tree slots in
// order; slots beyond len(sources) stay inactive until a snapshot grows
// the active source count (clamped to MaxSources).
func New(cfg Config, store *hrtf.Store, sources []*audiosrc.Source, queue *scene.Queue, logger *log.Logger) *Renderer {
	delayCapacity := int(cfg.SampleRate) * 2 // two seconds of samples, independent of room size; longer per-hop delays are clamped

	forest := ism.NewForest(cfg.MaxSources, cfg.Order, delayCapacity, float64(cfg.SampleRate), cfg.SpeedOfSound, cfg.GainEpsilon)
	network := fdn.New(cfg.Block, float64(cfg.SampleRate), cfg.RT60Seconds, store)

	nodeCount := forest.Trees[0].NodeCount()
	nodeSpatializers := make([][]spatial.Spatializer, cfg.MaxSources)
	nodeOut := make([][][]float32, cfg.MaxSources)
	scratchMono := make([][]float32, cfg.MaxSources)
	for t := 0; t < cfg.MaxSources; t++ {
		nodeSpatializers[t] = make([]spatial.Spatializer, nodeCount)
		nodeOut[t] = make([][]float32, nodeCount)
		for n := 0; n < nodeCount; n++ {
			nodeOut[t][n] = make([]float32, cfg.Block)
			if n == 0 {
				nodeSpatializers[t][n] = spatial.NewFDEngine(store)
			} else {
				nodeSpatializers[t][n] = spatial.NewIIREngine(store, itdCapacitySamples(cfg.SampleRate))
			}
		}
		scratchMono[t] = make([]float32, cfg.Block)
	}

	return &Renderer{
		state:            StateUninitialized,
		queue:            queue,
		logger:           logger,
		stats:            NewStats(5 * time.Second),
		forest:           forest,
		network:          network,
		store:            store,
		sources:          sources,
		nearest:          store.Nearest,
		room:             cfg.Room,
		block:            cfg.Block,
		sampleRate:       cfg.SampleRate,
		nodeSpatializers: nodeSpatializers,
		scratchMono:      scratchMono,
		nodeOut:          nodeOut,
		stereoOut:        make([]float32, cfg.Block*2),
		outBuf:           make([]byte, cfg.Block*2*4),
		outBufOffset:     cfg.Block * 2 * 4, // force a render on the first Read
	}
}

// State returns the renderer's current lifecycle state.
func (r *Renderer) State() State { return r.state }

// Read implements io.Reader for oto.Player: buf is filled with interleaved
// stereo float32-LE samples, rendering in r.block-sized chunks regardless
// of how buf aligns to that size.
func (r *Renderer) Read(buf []byte) (int, error) {
	written := 0
	for written < len(buf) {
		if r.outBufOffset >= len(r.outBuf) {
			r.renderOneBlock()
			r.outBufOffset = 0
		}
		n := copy(buf[written:], r.outBuf[r.outBufOffset:])
		r.outBufOffset += n
		written += n
	}
	return written, nil
}

func (r *Renderer) renderOneBlock() {
	switch r.state {
	case StateUninitialized:
		r.state = StateWaitingForFirstSnapshot
		fallthrough
	case StateWaitingForFirstSnapshot:
		if snap := r.queue.TryConsume(); snap != nil {
			r.applySnapshot(snap)
			r.state = StateRunning
		} else {
			r.emitSilence()
			return
		}
	case StateRunning:
		if snap := r.queue.TryConsume(); snap != nil {
			r.applySnapshot(snap)
		} else {
			r.stats.BlocksWithoutNewSnapshot.Add(1)
		}
	}

	r.mixBlock()
	r.stats.BlocksRendered.Add(1)
	r.stats.MaybeReport(time.Now(), r.logger)
	r.encodeStereoOut()
}

func (r *Renderer) applySnapshot(snap *scene.Snapshot) {
	r.room = snap.Room
	r.forest.Update(snap.Room, snap.Listener, snap.Sources, r.nearest)
	r.stats.SnapshotsApplied.Add(1)
}

func (r *Renderer) emitSilence() {
	for i := range r.stereoOut {
		r.stereoOut[i] = 0
	}
	r.encodeStereoOut()
}

// mixBlock implements spec.md §4.7's per-callback steps 1-5.
func (r *Renderer) mixBlock() {
	for i := range r.stereoOut {
		r.stereoOut[i] = 0
	}
	r.network.ResetAccum()

	for t := 0; t < r.forest.Active; t++ {
		tree := r.forest.Trees[t]
		mono := r.scratchMono[t]
		if t < len(r.sources) {
			r.sources[t].Read(mono)
		} else {
			for i := range mono {
				mono[i] = 0
			}
		}

		for ni := range tree.Nodes {
			node := &tree.Nodes[ni]
			var parentBuf []float32
			if ni == 0 {
				parentBuf = mono
			} else {
				parentBuf = r.nodeOut[t][node.ParentIndex]
			}
			out := r.nodeOut[t][ni]
			for s, x := range parentBuf {
				out[s] = node.Delay.Process(x)
			}

			r.nodeSpatializers[t][ni].Process(out, r.stereoOut, node.CurrentHRTFID, node.PreviousHRTFID, node.DistanceGain)

			channel := fdn.ChannelForImageSource(ni)
			for s, v := range out {
				r.network.Accumulate(channel, s, v)
			}
		}
	}

	r.network.Advance(r.stereoOut)

	for i, v := range r.stereoOut {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			v = 0
		}
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		r.stereoOut[i] = v
	}
}

func (r *Renderer) encodeStereoOut() {
	for i, v := range r.stereoOut {
		binary.LittleEndian.PutUint32(r.outBuf[i*4:], math.Float32bits(v))
	}
}
