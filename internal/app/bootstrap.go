package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/coreman2200/neopixel-ap/internal/config"
	"github.com/coreman2200/neopixel-ap/internal/diagnostics"
	"github.com/coreman2200/neopixel-ap/internal/led"
	"github.com/coreman2200/neopixel-ap/internal/server"
	"github.com/coreman2200/neopixel-ap/internal/update"
	"github.com/coreman2200/neopixel-ap/internal/ws"
	"github.com/coreman2200/neopixel-ap/model"
)

// OpenChannel builds the backend named by cfg.Driver. Hardware backends
// initialize the periph host first.
func OpenChannel(cfg *config.Config) (led.Channel, error) {
	switch cfg.Driver {
	case "sim":
		s := led.NewSim(cfg.Sim.TickFrequency())
		s.Realtime = cfg.Sim.Realtime
		return s, nil
	case "spi", "gpio", "nrz":
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}

	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	for _, f := range state.Failed {
		log.Debug().Str("driver", f.D.String()).Err(f.Err).Msg("periph driver failed to load")
	}

	switch cfg.Driver {
	case "spi":
		latch := time.Duration(cfg.SPI.LatchUs) * time.Microsecond
		s, err := led.OpenSPI(cfg.SPI.Dev, physic.Frequency(cfg.SPI.Speed), latch)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "gpio":
		s, err := led.OpenStream(cfg.GPIO.Pin, physic.Frequency(cfg.GPIO.Freq))
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	n, err := led.OpenNRZ(cfg.NRZ.Dev, cfg.NRZ.Pixels, 0)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Core is the running update pipeline around one channel.
type Core struct {
	Owner   *led.Owner
	Service *update.Service
	Hub     *ws.Hub
	Server  *server.Server
}

// InitCore takes ownership of ch. Accepted colors are broadcast on /ws and
// failures pushed to /diag.
func InitCore(cfg *config.Config, ch led.Channel) *Core {
	owner := led.NewOwner(ch)

	var hub *ws.Hub
	svc := update.New(owner, update.Hooks{
		OnAccepted: func(c model.Color) { hub.BroadcastColor(c) },
		OnError:    func(err error) { hub.PushDiag(diagnostics.FromError(err)) },
	})
	hub = ws.NewHub(svc)

	srv := server.New(svc, hub, server.Info{Driver: cfg.Driver, TickFreq: ch.TickFrequency()})
	return &Core{Owner: owner, Service: svc, Hub: hub, Server: srv}
}

// Close waits for the running transmission, then releases the channel.
func (c *Core) Close() error {
	return c.Owner.Close()
}
