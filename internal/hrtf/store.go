// Package hrtf holds the immutable, memory-resident HRTF filter store: the
// two representations spec.md calls for (partitioned frequency-domain
// segments and low-order IIR + ITD), the angle nearest-neighbor index, and
// the binary asset loaders for both on-disk formats.
package hrtf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"auralis/internal/dsp/fft"
)

// FDFilter is one angle's partitioned frequency-domain representation:
// per-ear arrays of complex spectrum segments, pre-scaled by 1/fftLen.
type FDFilter struct {
	Left, Right [][]complex128
}

// IIRFilterSet is one angle's low-order IIR approximation: per-ear
// (b, a, ITD) triples. b has length 33, a has length 17.
type IIRFilterSet struct {
	ITDL, ITDR float64
	BL, AL     []float64
	BR, AR     []float64
}

// Store is the full HRTF asset: the angle index plus whichever of the two
// filter representations were loaded (LoadFFT and LoadIIR fill one each;
// Load fills both, as the renderer needs: FD for each tree's root, IIR for
// deeper nodes and the FDN).
type Store struct {
	Angles *AngleTree

	FD  map[int]*FDFilter
	IIR map[int]*IIRFilterSet

	Block     int
	FFTLen    int
	NSegments int
}

// Nearest satisfies ism.NearestFunc.
func (s *Store) Nearest(az, el float64) int {
	return s.Angles.Nearest(az, el)
}

func readAngles(path string) ([]AnglePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening angle file %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading angle file %s: %w", path, err)
	}
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("angle file %s: %d bytes is not a whole number of (az,el) pairs", path, len(data))
	}

	n := len(data) / 8
	out := make([]AnglePoint, n)
	for i := 0; i < n; i++ {
		out[i] = AnglePoint{
			Az: float64(math.Float32frombits(binary.BigEndian.Uint32(data[i*8:]))),
			El: float64(math.Float32frombits(binary.BigEndian.Uint32(data[i*8+4:]))),
			ID: i + 1, // id 0 is reserved for the sentinel
		}
	}
	return out, nil
}

func readFloat32BE(r io.Reader, n int) ([]float64, error) {
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(buf[i*4:])))
	}
	return out, nil
}

// LoadFFT reads the angle table and the interleaved L/R HRIR taps, and
// partitions each ear's taps into ceil(tapCount/block) segments of length
// block, zero-padded (trailing) to 2*block, FFT'd and scaled by 1/fftLen.
func LoadFFT(anglesPath, hrirPath string, block, tapCount int) (*Store, error) {
	angles, err := readAngles(anglesPath)
	if err != nil {
		return nil, err
	}
	fd, fftLen, nSegments, err := loadFDFilters(angles, hrirPath, block, tapCount)
	if err != nil {
		return nil, err
	}
	return &Store{
		Angles:    NewAngleTree(angles),
		FD:        fd,
		Block:     block,
		FFTLen:    fftLen,
		NSegments: nSegments,
	}, nil
}

func loadFDFilters(angles []AnglePoint, hrirPath string, block, tapCount int) (map[int]*FDFilter, int, int, error) {
	f, err := os.Open(hrirPath)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("opening HRIR file %s: %w", hrirPath, err)
	}
	defer f.Close()

	fftLen := 2 * block
	nSegments := (tapCount + block - 1) / block
	mgr := fft.New(fftLen)

	fd := make(map[int]*FDFilter, len(angles))
	for _, a := range angles {
		lTaps, err := readFloat32BE(f, tapCount)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("HRIR file %s: angle %d: reading left taps: %w", hrirPath, a.ID, err)
		}
		rTaps, err := readFloat32BE(f, tapCount)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("HRIR file %s: angle %d: reading right taps: %w", hrirPath, a.ID, err)
		}
		fd[a.ID] = &FDFilter{
			Left:  partition(mgr, lTaps, block, nSegments),
			Right: partition(mgr, rTaps, block, nSegments),
		}
	}
	fd[sentinelAngle.ID] = silentFD(nSegments, fftLen)
	return fd, fftLen, nSegments, nil
}

// silentFD is the filter installed at the sentinel angle id: an all-zero
// spectrum, so a lookup that lands on the sentinel (which should only
// happen before any real angle has been measured near it) renders silence
// rather than an undefined or panicking filter.
func silentFD(nSegments, fftLen int) *FDFilter {
	zero := func() [][]complex128 {
		segs := make([][]complex128, nSegments)
		for i := range segs {
			segs[i] = make([]complex128, fftLen)
		}
		return segs
	}
	return &FDFilter{Left: zero(), Right: zero()}
}

func partition(mgr *fft.Manager, taps []float64, block, nSegments int) [][]complex128 {
	segs := make([][]complex128, nSegments)
	scale := 1 / float64(mgr.Len())
	for s := 0; s < nSegments; s++ {
		buf := make([]float64, mgr.Len())
		start := s * block
		for i := 0; i < block; i++ {
			idx := start + i
			if idx < len(taps) {
				buf[i] = taps[idx]
			}
		}
		spec := mgr.Forward(nil, buf)
		for i := range spec {
			spec[i] *= complex(scale, 0)
		}
		segs[s] = spec
	}
	return segs
}

// LoadIIR reads the angle table, the per-angle ITD pair, and the per-angle
// (b, a) coefficient quadruple (b length 33, a length 17, per ear).
func LoadIIR(anglesPath, delaysPath, coeffsPath string) (*Store, error) {
	angles, err := readAngles(anglesPath)
	if err != nil {
		return nil, err
	}
	iir, err := loadIIRFilters(angles, delaysPath, coeffsPath)
	if err != nil {
		return nil, err
	}
	return &Store{
		Angles: NewAngleTree(angles),
		IIR:    iir,
	}, nil
}

func loadIIRFilters(angles []AnglePoint, delaysPath, coeffsPath string) (map[int]*IIRFilterSet, error) {
	delaysFile, err := os.Open(delaysPath)
	if err != nil {
		return nil, fmt.Errorf("opening ITD file %s: %w", delaysPath, err)
	}
	defer delaysFile.Close()

	coeffsFile, err := os.Open(coeffsPath)
	if err != nil {
		return nil, fmt.Errorf("opening coefficient file %s: %w", coeffsPath, err)
	}
	defer coeffsFile.Close()

	const bLen, aLen = 33, 17

	iir := make(map[int]*IIRFilterSet, len(angles))
	for _, a := range angles {
		itd, err := readFloat32BE(delaysFile, 2)
		if err != nil {
			return nil, fmt.Errorf("ITD file %s: angle %d: %w (entry count must match the angle file)", delaysPath, a.ID, err)
		}

		bl, err := readFloat32BE(coeffsFile, bLen)
		if err != nil {
			return nil, fmt.Errorf("coefficient file %s: angle %d: b_L: %w", coeffsPath, a.ID, err)
		}
		al, err := readFloat32BE(coeffsFile, aLen)
		if err != nil {
			return nil, fmt.Errorf("coefficient file %s: angle %d: a_L: %w", coeffsPath, a.ID, err)
		}
		br, err := readFloat32BE(coeffsFile, bLen)
		if err != nil {
			return nil, fmt.Errorf("coefficient file %s: angle %d: b_R: %w", coeffsPath, a.ID, err)
		}
		ar, err := readFloat32BE(coeffsFile, aLen)
		if err != nil {
			return nil, fmt.Errorf("coefficient file %s: angle %d: a_R: %w", coeffsPath, a.ID, err)
		}

		iir[a.ID] = &IIRFilterSet{
			ITDL: itd[0],
			ITDR: itd[1],
			BL:   bl,
			AL:   al,
			BR:   br,
			AR:   ar,
		}
	}

	iir[sentinelAngle.ID] = silentIIR()
	return iir, nil
}

// Load builds a combined Store serving both the FD and IIR representations
// from one shared angle table: every ISM node is assigned one HRTF id against one angle
// tree regardless of which representation its spatializer uses, so the
// asset build's IIR angle file is expected to list the same directions as
// the FD angle file (anglesPath is read once and reused for both).
func Load(anglesPath, hrirPath, delaysPath, coeffsPath string, block, tapCount int) (*Store, error) {
	angles, err := readAngles(anglesPath)
	if err != nil {
		return nil, err
	}
	fd, fftLen, nSegments, err := loadFDFilters(angles, hrirPath, block, tapCount)
	if err != nil {
		return nil, err
	}
	iir, err := loadIIRFilters(angles, delaysPath, coeffsPath)
	if err != nil {
		return nil, err
	}
	return &Store{
		Angles:    NewAngleTree(angles),
		FD:        fd,
		IIR:       iir,
		Block:     block,
		FFTLen:    fftLen,
		NSegments: nSegments,
	}, nil
}

// silentIIR is the sentinel angle's filter: zero numerator, stable
// (non-recursive) denominator, so it always outputs silence.
func silentIIR() *IIRFilterSet {
	return &IIRFilterSet{
		BL: make([]float64, 33),
		AL: append([]float64{1}, make([]float64, 16)...),
		BR: make([]float64, 33),
		AR: append([]float64{1}, make([]float64, 16)...),
	}
}
