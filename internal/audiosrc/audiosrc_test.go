package audiosrc

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// writeTestWav emits a minimal PCM16 mono WAV file with the given samples.
func writeTestWav(t *testing.T, samples []int16) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wav")

	dataSize := len(samples) * 2
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	write := func(b []byte) {
		if _, err := f.Write(b); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	u32 := func(v uint32) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v)
		return b
	}
	u16 := func(v uint16) []byte {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, v)
		return b
	}

	write([]byte("RIFF"))
	write(u32(uint32(36 + dataSize)))
	write([]byte("WAVE"))
	write([]byte("fmt "))
	write(u32(16))
	write(u16(1))       // PCM
	write(u16(1))       // mono
	write(u32(44100))   // sample rate
	write(u32(44100*2)) // byte rate
	write(u16(2))       // block align
	write(u16(16))      // bits per sample
	write([]byte("data"))
	write(u32(uint32(dataSize)))
	for _, s := range samples {
		write(u16(uint16(s)))
	}

	return path
}

func TestLoadAndReadNonLooping(t *testing.T) {
	path := writeTestWav(t, []int16{32767, -32768, 0, 16384})
	src, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", src.SampleRate)
	}

	out := make([]float32, 6)
	src.Read(out)
	if out[0] < 0.99 || out[0] > 1.0001 {
		t.Errorf("out[0] = %v, want ~1.0", out[0])
	}
	if out[1] > -0.99 {
		t.Errorf("out[1] = %v, want ~-1.0", out[1])
	}
	if out[4] != 0 || out[5] != 0 {
		t.Errorf("expected silence past end-of-file, got %v %v", out[4], out[5])
	}
}

func TestLoadAndReadLooping(t *testing.T) {
	path := writeTestWav(t, []int16{32767, 0})
	src, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	out := make([]float32, 5)
	src.Read(out)
	if out[0] == 0 || out[2] == 0 || out[4] == 0 {
		t.Errorf("expected nonzero samples at loop-wrapped even indices, got %v", out)
	}
}

func TestResetRewindsPlayhead(t *testing.T) {
	path := writeTestWav(t, []int16{100, 200, 300})
	src, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	first := make([]float32, 3)
	src.Read(first)
	src.Reset()
	second := make([]float32, 3)
	src.Read(second)

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("sample %d: %v != %v after Reset", i, first[i], second[i])
		}
	}
}
