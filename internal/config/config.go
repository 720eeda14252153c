package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/neopixel-ap/internal/ap"
)

// Frequency is a physic.Frequency written as "80MHz" in YAML.
type Frequency physic.Frequency

func (f *Frequency) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	var p physic.Frequency
	if err := p.Set(s); err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*f = Frequency(p)
	return nil
}

func (f Frequency) MarshalYAML() (any, error) {
	return physic.Frequency(f).String(), nil
}

type Sim struct {
	SourceClock  Frequency `yaml:"source_clock"`  // e.g. 80MHz
	ClockDivider int       `yaml:"clock_divider"` // ticks per source clock
	Realtime     bool      `yaml:"realtime"`      // sleep for the train duration
}

// TickFrequency is the source clock divided down.
func (s Sim) TickFrequency() physic.Frequency {
	return physic.Frequency(s.SourceClock) / physic.Frequency(max(1, s.ClockDivider))
}

type SPI struct {
	Dev     string    `yaml:"dev"`      // e.g. SPI0.0 or /dev/spidev0.0
	Speed   Frequency `yaml:"speed"`    // e.g. 2.4MHz
	LatchUs int       `yaml:"latch_us"` // e.g. 300
}

type GPIO struct {
	Pin  string    `yaml:"pin"`  // e.g. GPIO18
	Freq Frequency `yaml:"freq"` // stream sample rate
}

type NRZ struct {
	Dev    string `yaml:"dev"`
	Pixels int    `yaml:"pixels"`
}

type HTTP struct {
	Addr          string `yaml:"addr"`
	ReadTimeoutS  int    `yaml:"read_timeout_s"`
	WriteTimeoutS int    `yaml:"write_timeout_s"`
	IdleTimeoutS  int    `yaml:"idle_timeout_s"`
}

func (h HTTP) ReadTimeout() time.Duration  { return time.Duration(h.ReadTimeoutS) * time.Second }
func (h HTTP) WriteTimeout() time.Duration { return time.Duration(h.WriteTimeoutS) * time.Second }
func (h HTTP) IdleTimeout() time.Duration  { return time.Duration(h.IdleTimeoutS) * time.Second }

type Config struct {
	Driver   string `yaml:"driver"` // "sim" | "spi" | "gpio" | "nrz"
	LogLevel string `yaml:"log_level"`
	IdleMs   int    `yaml:"idle_ms"`

	Sim  Sim         `yaml:"sim"`
	SPI  SPI         `yaml:"spi"`
	GPIO GPIO        `yaml:"gpio"`
	NRZ  NRZ         `yaml:"nrz"`
	HTTP HTTP        `yaml:"http"`
	AP   ap.Settings `yaml:"ap"`
}

var Drivers = []string{"sim", "spi", "gpio", "nrz"}

func Default() *Config {
	return &Config{
		Driver:   "sim",
		LogLevel: "info",
		IdleMs:   1000,
		Sim: Sim{
			SourceClock:  Frequency(80 * physic.MegaHertz),
			ClockDivider: 1,
		},
		SPI: SPI{
			Dev:     "SPI0.0",
			Speed:   Frequency(2400 * physic.KiloHertz),
			LatchUs: 300,
		},
		GPIO: GPIO{
			Pin:  "GPIO18",
			Freq: Frequency(8 * physic.MegaHertz),
		},
		NRZ: NRZ{
			Dev:    "SPI0.0",
			Pixels: 1,
		},
		HTTP: HTTP{
			Addr:          ":80",
			ReadTimeoutS:  5,
			WriteTimeoutS: 10,
			IdleTimeoutS:  60,
		},
		AP: ap.Default(),
	}
}

// Load reads path over Default, so a file only needs the keys it changes.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	known := false
	for _, d := range Drivers {
		known = known || d == c.Driver
	}
	if !known {
		errs = append(errs, fmt.Errorf("unknown driver %q", c.Driver))
	}
	if c.IdleMs <= 0 {
		errs = append(errs, fmt.Errorf("idle_ms must be positive, got %d", c.IdleMs))
	}
	switch c.Driver {
	case "sim":
		if c.Sim.SourceClock <= 0 || c.Sim.ClockDivider < 1 || c.Sim.ClockDivider > 255 {
			errs = append(errs, errors.New("sim: source_clock must be positive and clock_divider 1-255"))
		}
	case "spi":
		if c.SPI.Dev == "" || c.SPI.Speed <= 0 {
			errs = append(errs, errors.New("spi: dev and speed are required"))
		}
		if c.SPI.LatchUs < 0 {
			errs = append(errs, fmt.Errorf("spi: latch_us must not be negative, got %d", c.SPI.LatchUs))
		}
	case "gpio":
		if c.GPIO.Pin == "" || c.GPIO.Freq <= 0 {
			errs = append(errs, errors.New("gpio: pin and freq are required"))
		}
	case "nrz":
		if c.NRZ.Dev == "" || c.NRZ.Pixels < 1 {
			errs = append(errs, errors.New("nrz: dev and at least one pixel are required"))
		}
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http: addr is required"))
	}
	if err := c.AP.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ap: %w", err))
	}
	return errors.Join(errs...)
}
