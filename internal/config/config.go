// Package config resolves CLI flags, defaults, and asset paths for the
// renderer binary, and constructs its logger. Flag parsing generalizes the
// teacher's hand-rolled os.Args check in cmd/test3d/main.go to a real flag
// library; asset resolution follows the same executable-relative-path
// pattern.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

const (
	defaultBlock      = 128
	defaultSampleRate = 48000
	defaultOSCAddr    = "127.0.0.1:7001"
	defaultOrder      = 1
	defaultHRTFDir    = "assets/hrtf"
	defaultRoomWidth  = 4.0
	defaultRoomHeight = 3.0
	defaultRoomLength = 5.0

	defaultSpeedOfSound = 343.0
	defaultMaxSources   = 8
	defaultGainEpsilon  = 1e-3
	defaultRT60Seconds  = 1.5
	defaultTapCount     = 384

	// DefaultSpeedOfSound, DefaultMaxSources, DefaultGainEpsilon,
	// DefaultRT60Seconds and DefaultTapCount export the flag defaults for
	// use outside of a parsed Config. cmd/auralis itself takes these
	// values from the parsed Config.
	DefaultSpeedOfSound = defaultSpeedOfSound
	DefaultMaxSources   = defaultMaxSources
	DefaultGainEpsilon  = defaultGainEpsilon
	DefaultRT60Seconds  = defaultRT60Seconds
	DefaultTapCount     = defaultTapCount
)

// Config holds every value the renderer needs to start. Flags are parsed
// once at startup; nothing here changes at runtime.
type Config struct {
	Block      int
	SampleRate int
	OSCAddr    string
	HRTFDir    string
	Order      int
	Sources    []string
	RoomWidth  float64
	RoomHeight float64
	RoomLength float64
	Verbose    bool

	MaxSources   int
	SpeedOfSound float64
	GainEpsilon  float64
	RT60Seconds  float64
	TapCount     int
}

// Parse reads flags from args (typically os.Args[1:]). Positional arg 1 is
// accepted as a backward-compatible alias for --block, per spec.md §6.5.
func Parse(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("auralis", pflag.ContinueOnError)

	block := fs.Int("block", defaultBlock, "audio buffer size in frames")
	sampleRate := fs.Int("sample-rate", defaultSampleRate, "output sample rate in Hz")
	oscAddr := fs.String("osc-addr", defaultOSCAddr, "OSC/UDP bind address")
	hrtfDir := fs.String("hrtf-dir", defaultHRTFDir, "directory containing HRTF asset files")
	order := fs.Int("order", defaultOrder, "image-source reflection order")
	sources := fs.StringArray("source", nil, "path to a per-source audio file (repeatable)")
	room := fs.String("room", "", "room dimensions as W,H,L in meters")
	verbose := fs.BoolP("verbose", "v", false, "enable verbose logging")
	maxSources := fs.Int("max-sources", defaultMaxSources, "maximum number of concurrently active real sources")
	speedOfSound := fs.Float64("speed-of-sound", defaultSpeedOfSound, "speed of sound in m/s")
	gainEpsilon := fs.Float64("gain-epsilon", defaultGainEpsilon, "minimum distance used for the 1/max(d,epsilon) gain law")
	rt60 := fs.Float64("rt60", defaultRT60Seconds, "target reverberation time in seconds for the FDN's per-line damping")
	tapCount := fs.Int("tap-count", defaultTapCount, "HRIR tap count baked into the FFT HRTF asset build")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{
		Block:      *block,
		SampleRate: *sampleRate,
		OSCAddr:    *oscAddr,
		HRTFDir:    *hrtfDir,
		Order:      *order,
		Sources:    *sources,
		RoomWidth:  defaultRoomWidth,
		RoomHeight: defaultRoomHeight,
		RoomLength: defaultRoomLength,
		Verbose:    *verbose,

		MaxSources:   *maxSources,
		SpeedOfSound: *speedOfSound,
		GainEpsilon:  *gainEpsilon,
		RT60Seconds:  *rt60,
		TapCount:     *tapCount,
	}

	if *room != "" {
		w, h, l, err := parseRoom(*room)
		if err != nil {
			return nil, fmt.Errorf("config: --room: %w", err)
		}
		cfg.RoomWidth, cfg.RoomHeight, cfg.RoomLength = w, h, l
	}

	if rest := fs.Args(); len(rest) > 0 && !fs.Changed("block") {
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return nil, fmt.Errorf("config: positional block size %q: %w", rest[0], err)
		}
		cfg.Block = n
	}

	if cfg.Block <= 0 {
		return nil, fmt.Errorf("config: block size must be positive, got %d", cfg.Block)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("config: sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.Order < 0 {
		return nil, fmt.Errorf("config: order must be non-negative, got %d", cfg.Order)
	}
	if cfg.MaxSources <= 0 {
		return nil, fmt.Errorf("config: max-sources must be positive, got %d", cfg.MaxSources)
	}

	return cfg, nil
}

func parseRoom(s string) (w, h, l float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("expected W,H,L, got %q", s)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid dimension %q: %w", p, err)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], nil
}

// NewLogger builds the process logger, verbose at debug level.
func NewLogger(verbose bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}

// AssetPath resolves name under the HRTF asset directory, itself resolved
// relative to the running executable's directory so assets are found
// regardless of the caller's working directory (following the teacher's
// os.Executable-relative chdir in cmd/test3d/main.go, without the chdir
// side effect).
func (c *Config) AssetPath(name string) string {
	dir := c.HRTFDir
	if !filepath.IsAbs(dir) {
		if execPath, err := os.Executable(); err == nil {
			dir = filepath.Join(filepath.Dir(execPath), dir)
		}
	}
	return filepath.Join(dir, name)
}

// AnglesPath, HRIRPath, ITDPath, and CoeffsPath resolve the four fixed
// on-disk asset filenames spec.md §6.2 describes, under HRTFDir.
func (c *Config) AnglesPath() string { return c.AssetPath("angles.bin") }
func (c *Config) HRIRPath() string   { return c.AssetPath("hrir.bin") }
func (c *Config) ITDPath() string    { return c.AssetPath("itd.bin") }
func (c *Config) CoeffsPath() string { return c.AssetPath("coeffs.bin") }
