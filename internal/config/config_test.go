package config

import "testing"

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Block != defaultBlock {
		t.Errorf("Block = %d, want %d", cfg.Block, defaultBlock)
	}
	if cfg.SampleRate != defaultSampleRate {
		t.Errorf("SampleRate = %d, want %d", cfg.SampleRate, defaultSampleRate)
	}
	if cfg.OSCAddr != defaultOSCAddr {
		t.Errorf("OSCAddr = %q, want %q", cfg.OSCAddr, defaultOSCAddr)
	}
}

func TestParsePositionalBlockSize(t *testing.T) {
	cfg, err := Parse([]string{"256"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Block != 256 {
		t.Errorf("Block = %d, want 256 from positional arg", cfg.Block)
	}
}

func TestParseExplicitFlagWinsOverPositional(t *testing.T) {
	cfg, err := Parse([]string{"--block", "512", "256"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Block != 512 {
		t.Errorf("Block = %d, want 512 (explicit flag should win)", cfg.Block)
	}
}

func TestParseRoomDimensions(t *testing.T) {
	cfg, err := Parse([]string{"--room", "6,2.5,8"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.RoomWidth != 6 || cfg.RoomHeight != 2.5 || cfg.RoomLength != 8 {
		t.Errorf("room = %v,%v,%v, want 6,2.5,8", cfg.RoomWidth, cfg.RoomHeight, cfg.RoomLength)
	}
}

func TestParseRepeatableSources(t *testing.T) {
	cfg, err := Parse([]string{"--source", "a.wav", "--source", "b.wav"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[0] != "a.wav" || cfg.Sources[1] != "b.wav" {
		t.Errorf("Sources = %v, want [a.wav b.wav]", cfg.Sources)
	}
}

func TestParseRejectsNonPositiveBlock(t *testing.T) {
	if _, err := Parse([]string{"--block", "0"}); err == nil {
		t.Fatal("expected error for zero block size")
	}
}

func TestParseRejectsMalformedRoom(t *testing.T) {
	if _, err := Parse([]string{"--room", "4,3"}); err == nil {
		t.Fatal("expected error for malformed room dimensions")
	}
}
