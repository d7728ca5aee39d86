// Package audiosrc loads per-source WAV files and serves them as cyclic
// mono sample buffers for the render callback, generalizing the teacher's
// hand-rolled RIFF parser (hrtfaudiosource.go::loadWavFile) to a real WAV
// decoder.
package audiosrc

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// Source is one loaded audio file, read out cyclically.
type Source struct {
	Path       string
	SampleRate int
	samples    []float32
	playhead   int
	Loop       bool
}

// Load decodes path as a WAV file and mixes it down to mono float32 in
// [-1, 1].
func Load(path string, loop bool) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audiosrc: open %s: %w", path, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("audiosrc: %s is not a valid WAV file", path)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audiosrc: decode %s: %w", path, err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	bitDepth := d.SampleBitDepth()
	if bitDepth == 0 {
		bitDepth = 16
	}
	fullScale := float32(int(1) << (bitDepth - 1))

	numFrames := len(buf.Data) / channels
	samples := make([]float32, numFrames)
	for i := 0; i < numFrames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(buf.Data[i*channels+ch]) / fullScale
		}
		samples[i] = sum / float32(channels)
	}

	return &Source{
		Path:       path,
		SampleRate: int(d.SampleRate),
		samples:    samples,
		Loop:       loop,
	}, nil
}

// Read fills out with the next len(out) mono samples, looping or padding
// with silence past end-of-file per s.Loop. Never allocates.
func (s *Source) Read(out []float32) {
	for i := range out {
		if s.playhead >= len(s.samples) {
			if s.Loop && len(s.samples) > 0 {
				s.playhead = 0
			} else {
				out[i] = 0
				continue
			}
		}
		out[i] = s.samples[s.playhead]
		s.playhead++
	}
}

// Reset rewinds playback to the start of the buffer.
func (s *Source) Reset() {
	s.playhead = 0
}
