// Command auralis is the renderer binary: it parses flags, loads the HRTF
// and audio-file assets, opens the default audio output device, starts the
// OSC/UDP ingest listener, and runs the real-time rendering pipeline until
// interrupted, per spec.md §6.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ebitengine/oto/v3"

	"auralis/internal/audiosrc"
	"auralis/internal/config"
	"auralis/internal/hrtf"
	"auralis/internal/ingest"
	"auralis/internal/render"
	"auralis/internal/scene"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so main can stay a one-liner: 0 on a
// normal shutdown, 1 on a flag-parse error. Asset, listener and device
// failures exit with status 1 from inside run via logger.Fatal.
func run() int {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "auralis: %v\n", err)
		return 1
	}

	logger := config.NewLogger(cfg.Verbose)

	store, err := hrtf.Load(cfg.AnglesPath(), cfg.HRIRPath(), cfg.ITDPath(), cfg.CoeffsPath(), cfg.Block, cfg.TapCount)
	if err != nil {
		logger.Fatal("loading HRTF assets", "err", err)
		return 1
	}

	sources := make([]*audiosrc.Source, 0, len(cfg.Sources))
	for _, path := range cfg.Sources {
		src, err := audiosrc.Load(path, true)
		if err != nil {
			logger.Fatal("loading source audio", "path", path, "err", err)
			return 1
		}
		sources = append(sources, src)
	}

	queue := &scene.Queue{}

	listener, err := ingest.Listen(cfg.OSCAddr, queue, logger)
	if err != nil {
		logger.Fatal("binding OSC listener", "addr", cfg.OSCAddr, "err", err)
		return 1
	}
	defer listener.Close()

	stopIngest := make(chan struct{})
	go listener.Run(stopIngest)

	rendererCfg := render.Config{
		Block:        cfg.Block,
		SampleRate:   cfg.SampleRate,
		SpeedOfSound: cfg.SpeedOfSound,
		Order:        cfg.Order,
		MaxSources:   cfg.MaxSources,
		GainEpsilon:  cfg.GainEpsilon,
		RT60Seconds:  cfg.RT60Seconds,
		Room: scene.Room{
			Width:  float32(cfg.RoomWidth),
			Height: float32(cfg.RoomHeight),
			Length: float32(cfg.RoomLength),
		},
	}
	renderer := render.New(rendererCfg, store, sources, queue, logger)

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		logger.Fatal("opening audio device", "err", err)
		return 1
	}
	<-ready

	player := otoCtx.NewPlayer(renderer)
	defer player.Close()
	player.Play()

	logger.Info("auralis running", "block", cfg.Block, "sample_rate", cfg.SampleRate, "osc_addr", cfg.OSCAddr, "order", cfg.Order, "sources", len(sources))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	close(stopIngest)
	player.Pause()

	return 0
}
