// ABOUTME: Entry point for the playout player
// ABOUTME: Parses CLI flags and config, then plays files or a test tone
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/Resonate-Protocol/playout/internal/app"
	"github.com/Resonate-Protocol/playout/internal/config"
	"github.com/Resonate-Protocol/playout/internal/observe"
	"github.com/Resonate-Protocol/playout/internal/ui"
	"github.com/Resonate-Protocol/playout/internal/version"
	"github.com/Resonate-Protocol/playout/pkg/audio/source"
)

var (
	configPath  = flag.String("config", "", "Path to a YAML config file")
	backend     = flag.String("backend", "", "Output backend (malgo, oto, portaudio, null)")
	device      = flag.String("device", "", "Output device name (default: system default)")
	bufferMs    = flag.Int("buffer-ms", 0, "Device buffer period in milliseconds")
	logFile     = flag.String("log-file", "", "Log file path")
	streamLogs  = flag.Bool("stream-logs", false, "Mirror logs to stdout (disables the TUI)")
	noTUI       = flag.Bool("no-tui", false, "Disable the TUI")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	tone        = flag.Float64("tone", 440, "Test tone frequency in Hz when no files are given")
	toneLength  = flag.Duration("tone-duration", 0, "Test tone length (0 plays until interrupted)")
)

const progressInterval = 500 * time.Millisecond

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Set up logging
	f, err := os.OpenFile(cfg.Log.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	useTUI := !(*noTUI || cfg.Log.Stream)
	if cfg.Log.Stream {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	} else {
		// TUI or quiet mode: log only to file
		log.SetOutput(f)
	}

	log.Printf("Starting %s", version.String())

	if err := run(cfg, flag.Args(), useTUI); err != nil {
		fmt.Fprintf(os.Stderr, "playout: %v\n", err)
		log.Printf("Exiting with error: %v", err)
		os.Exit(1)
	}
	log.Printf("Player stopped")
}

// loadConfig reads the config file, then applies flags that were set
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "backend":
			cfg.Output.Backend = *backend
		case "device":
			cfg.Output.Device = *device
		case "buffer-ms":
			cfg.Output.BufferMs = *bufferMs
		case "log-file":
			cfg.Log.File = *logFile
		case "stream-logs":
			cfg.Log.Stream = *streamLogs
		case "metrics-addr":
			cfg.Metrics.Addr = *metricsAddr
		}
	})

	return cfg, config.Validate(cfg)
}

func run(cfg *config.Config, files []string, useTUI bool) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	var metrics *observe.Metrics
	var provider *observe.Provider
	if cfg.Metrics.Addr != "" {
		var err error
		provider, err = observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version.Version})
		if err != nil {
			return fmt.Errorf("failed to init metrics: %w", err)
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				log.Printf("Error shutting down metrics: %v", err)
			}
		}()

		if metrics, err = observe.NewMetrics(provider.MeterProvider); err != nil {
			return fmt.Errorf("failed to create metrics: %w", err)
		}
	}

	player := app.New(app.Config{
		Backend:  cfg.Output.Backend,
		Device:   cfg.Output.Device,
		BufferMs: cfg.Output.BufferMs,
		Metrics:  metrics,
	})
	if err := player.Start(); err != nil {
		return err
	}
	defer func() {
		if err := player.Stop(); err != nil {
			log.Printf("Error closing player: %v", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	if provider != nil {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(provider)}
		g.Go(func() error {
			log.Printf("Serving metrics on %s", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if useTUI {
		ctrl := ui.NewControls()
		prog := ui.Run(ctrl)
		g.Go(func() error {
			defer cancel()
			if _, err := prog.Run(); err != nil {
				return fmt.Errorf("tui: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			statusLoop(gctx, prog, player, ctrl)
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		return playAll(gctx, player, files)
	})

	return g.Wait()
}

// statusLoop feeds the TUI until ctx ends or the user quits
func statusLoop(ctx context.Context, prog *tea.Program, player *app.Player, ctrl *ui.Controls) {
	defer prog.Quit()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	if stream := player.Stream(); stream != nil {
		prog.Send(ui.StatusMsg{Device: stream.Device(), Config: stream.Config().String()})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ctrl.Quit:
			log.Printf("Received quit signal from TUI")
			return
		case <-ticker.C:
			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			stats := player.Stats()

			msg := ui.StatusMsg{
				State:      "playing",
				Active:     stats.Active,
				Added:      stats.Added,
				Finished:   stats.Finished,
				Frames:     stats.Frames,
				Goroutines: runtime.NumGoroutine(),
				MemAlloc:   mem.Alloc,
			}
			if id, name, ok := player.Current(); ok {
				p, _ := player.Progress()
				msg.TrackID, msg.Track = id, name
				msg.Position, msg.Duration, msg.Fraction = p.Position, p.Duration, p.Fraction
			}
			if player.Finished() {
				msg.State = "finished"
			}
			prog.Send(msg)
		}
	}
}

func metricsMux(p *observe.Provider) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	return mux
}

// playAll plays files one after another, or the test tone when there are none
func playAll(ctx context.Context, player *app.Player, files []string) error {
	if len(files) == 0 {
		src := source.Sine(2, 48000, *tone, 0.2)
		var err error
		if *toneLength > 0 {
			_, err = player.PlaySource(fmt.Sprintf("%.0fHz tone", *tone), source.Take(src, *toneLength))
		} else {
			_, err = player.PlaySource(fmt.Sprintf("%.0fHz tone", *tone), src)
		}
		if err != nil {
			return err
		}
		return waitTrack(ctx, player)
	}

	for _, path := range files {
		if _, err := player.Play(path); err != nil {
			log.Printf("Skipping %s: %v", path, err)
			continue
		}
		if err := waitTrack(ctx, player); err != nil {
			return err
		}
	}
	return nil
}

// waitTrack logs progress until the current track finishes or ctx ends
func waitTrack(ctx context.Context, player *app.Player) error {
	monitor := app.NewProgressMonitor(player.Progress)
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Shutdown signal received")
			return nil
		case <-ticker.C:
			if p, ok := monitor.Update(); ok {
				_, name, _ := player.Current()
				log.Printf("%s: %s", name, app.FormatProgress(p))
			}
			if player.Finished() || monitor.Status() == app.StatusStopped {
				stats := player.Stats()
				log.Printf("Track finished (mixed %d frames, %d active sources)", stats.Frames, stats.Active)
				return nil
			}
		}
	}
}
