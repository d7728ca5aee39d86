package hrtf

import (
	"encoding/binary"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"testing"
)

func writeBE(t *testing.T, path string, values []float32) {
	t.Helper()
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", path, err)
	}
}

func TestLoadFFTRoundTripsAndIndexes(t *testing.T) {
	dir := t.TempDir()
	anglesPath := filepath.Join(dir, "angles.bin")
	hrirPath := filepath.Join(dir, "hrir.bin")

	writeBE(t, anglesPath, []float32{0, 0, 90, 0})

	const tapCount = 6
	var hrir []float32
	// angle 1: left = impulse, right = zeros
	hrir = append(hrir, 1, 0, 0, 0, 0, 0)
	hrir = append(hrir, 0, 0, 0, 0, 0, 0)
	// angle 2: left = zeros, right = impulse
	hrir = append(hrir, 0, 0, 0, 0, 0, 0)
	hrir = append(hrir, 1, 0, 0, 0, 0, 0)
	writeBE(t, hrirPath, hrir)

	store, err := LoadFFT(anglesPath, hrirPath, 4, tapCount)
	if err != nil {
		t.Fatalf("LoadFFT: %v", err)
	}

	if got := store.Nearest(0, 0); got != 1 {
		t.Errorf("expected angle id 1 at (0,0), got %d", got)
	}
	if got := store.Nearest(90, 0); got != 2 {
		t.Errorf("expected angle id 2 at (90,0), got %d", got)
	}

	if len(store.FD) != 3 { // 2 real angles + sentinel
		t.Errorf("expected 3 stored filters (2 angles + sentinel), got %d", len(store.FD))
	}
	if store.NSegments != 2 { // ceil(6/4)
		t.Errorf("expected 2 segments for tapCount=6 block=4, got %d", store.NSegments)
	}

	sentinel := store.FD[0]
	for _, seg := range sentinel.Left {
		for _, c := range seg {
			if cmplx.Abs(c) != 0 {
				t.Fatalf("sentinel filter should be exactly silent, got %v", c)
			}
		}
	}
}

func TestLoadFFTMismatchedAnglesFatal(t *testing.T) {
	dir := t.TempDir()
	anglesPath := filepath.Join(dir, "angles.bin")
	hrirPath := filepath.Join(dir, "hrir.bin")

	writeBE(t, anglesPath, []float32{0, 0, 90, 0}) // 2 angles
	writeBE(t, hrirPath, make([]float32, 6))        // only enough data for one angle's left taps

	if _, err := LoadFFT(anglesPath, hrirPath, 4, 6); err == nil {
		t.Fatal("expected an error when the HRIR file is too short for the angle count")
	}
}

func TestLoadIIRRoundTrips(t *testing.T) {
	dir := t.TempDir()
	anglesPath := filepath.Join(dir, "angles.bin")
	delaysPath := filepath.Join(dir, "delays.bin")
	coeffsPath := filepath.Join(dir, "coeffs.bin")

	writeBE(t, anglesPath, []float32{45, 10})
	writeBE(t, delaysPath, []float32{3.5, 1.2})

	var coeffs []float32
	coeffs = append(coeffs, onesAndZeros(33, 1)...)
	coeffs = append(coeffs, onesAndZeros(17, 0.5)...)
	coeffs = append(coeffs, onesAndZeros(33, 2)...)
	coeffs = append(coeffs, onesAndZeros(17, 0.25)...)
	writeBE(t, coeffsPath, coeffs)

	store, err := LoadIIR(anglesPath, delaysPath, coeffsPath)
	if err != nil {
		t.Fatalf("LoadIIR: %v", err)
	}

	set, ok := store.IIR[1]
	if !ok {
		t.Fatal("expected angle id 1 to be present")
	}
	if set.ITDL != 3.5 || set.ITDR != 1.2 {
		t.Errorf("ITD mismatch: got (%v,%v), want (3.5,1.2)", set.ITDL, set.ITDR)
	}
	if len(set.BL) != 33 || len(set.AL) != 17 {
		t.Errorf("coefficient length mismatch: len(BL)=%d len(AL)=%d", len(set.BL), len(set.AL))
	}
}

func onesAndZeros(n int, first float32) []float32 {
	out := make([]float32, n)
	out[0] = first
	return out
}
