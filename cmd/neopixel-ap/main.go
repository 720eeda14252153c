package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/neopixel-ap/internal/ap"
	"github.com/coreman2200/neopixel-ap/internal/app"
	"github.com/coreman2200/neopixel-ap/internal/config"
	"github.com/coreman2200/neopixel-ap/internal/device"
	"github.com/coreman2200/neopixel-ap/internal/led"
	"github.com/coreman2200/neopixel-ap/internal/server"
)

func main() {
	// ---- Flags (config.yaml values win unless a flag is given explicitly) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		driver     = flag.String("driver", "sim", "driver: sim | spi | gpio | nrz")
		addr       = flag.String("addr", ":80", "HTTP listen address")
		divider    = flag.Int("clock-divider", 1, "sim: source clock divider")
		logLevel   = flag.String("log-level", "info", "trace | debug | info | warn | error")
		simOnly    = flag.Bool("sim-only", false, "force simulation (no hardware output)")
		writeCfg   = flag.Bool("write-config", false, "write the effective config to -config and exit")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	zerolog.DefaultContextLogger = &log.Logger

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(&device.ConfigurationError{Phase: device.Booting, Err: err})
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["driver"] {
		cfg.Driver = *driver
	}
	if set["addr"] {
		cfg.HTTP.Addr = *addr
	}
	if set["clock-divider"] {
		cfg.Sim.ClockDivider = *divider
	}
	if set["log-level"] {
		cfg.LogLevel = *logLevel
	}
	if *simOnly {
		cfg.Driver = "sim"
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fatal(&device.ConfigurationError{Phase: device.Booting, Err: err})
	}
	zerolog.SetGlobalLevel(lvl)

	if err := cfg.Validate(); err != nil {
		fatal(&device.ConfigurationError{Phase: device.Booting, Err: err})
	}
	if *writeCfg {
		if err := config.Save(*configPath, cfg); err != nil {
			fatal(err)
		}
		log.Info().Str("path", *configPath).Msg("config written")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fatal(err)
	}
	log.Info().Msg("stopped")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("config not found; using defaults and flags")
		return config.Default(), nil
	}
	return cfg, err
}

func run(ctx context.Context, cfg *config.Config) error {
	dev := device.New(time.Duration(cfg.IdleMs) * time.Millisecond)

	var (
		ch led.Channel
		ln net.Listener
	)
	err := dev.Boot(ctx,
		func() (err error) {
			ch, err = app.OpenChannel(cfg)
			if err == nil {
				log.Info().Str("driver", cfg.Driver).Stringer("tick_freq", ch.TickFrequency()).Msg("LED channel ready")
			}
			return err
		},
		func(ctx context.Context) (err error) {
			if err := ap.Start(ctx, cfg.AP); err != nil {
				return err
			}
			ln, err = net.Listen("tcp", cfg.HTTP.Addr)
			return err
		},
	)
	if err != nil {
		if ch != nil {
			_ = ch.Close()
		}
		return err
	}

	core := app.InitCore(cfg, ch)
	defer func() {
		if err := core.Close(); err != nil {
			log.Warn().Err(err).Msg("close LED channel")
		}
	}()

	srv := server.NewHTTPServer(core.Server.Routes(), cfg.HTTP)
	return dev.Serve(ctx, func(ctx context.Context) error {
		log.Info().Str("addr", ln.Addr().String()).Str("driver", cfg.Driver).Msg("HTTP server starting")
		return serveHTTP(ctx, srv, ln)
	})
}

// serveHTTP serves until ctx is done, then shuts srv down gracefully. It
// returns only after the shutdown goroutine has finished.
func serveHTTP(ctx context.Context, srv *http.Server, ln net.Listener) error {
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	err := srv.Serve(ln)
	close(done)
	<-stopped
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func fatal(err error) {
	log.Error().Err(err).Msg("fatal")
	os.Exit(1)
}
