// Package ap describes the open access point clients join to reach the
// device. Bringing the radio up is left to hostapd; this package validates
// the settings and renders its configuration.
package ap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
)

type Settings struct {
	SSID       string `yaml:"ssid"`
	Channel    int    `yaml:"channel"`
	MaxClients int    `yaml:"max_clients"`
	Hidden     bool   `yaml:"hidden"`
	Interface  string `yaml:"interface"`
	// HostapdConf, when set, is where Start writes the hostapd configuration.
	HostapdConf string `yaml:"hostapd_conf,omitempty"`
}

func Default() Settings {
	return Settings{
		SSID:       "WiFiCurse",
		Channel:    9,
		MaxClients: 5,
		Interface:  "wlan0",
	}
}

func (s Settings) Validate() error {
	var errs []error
	if n := len(s.SSID); n == 0 || n > 32 {
		errs = append(errs, fmt.Errorf("ssid must be 1-32 bytes, got %d", n))
	}
	if s.Channel < 1 || s.Channel > 13 {
		errs = append(errs, fmt.Errorf("channel %d outside 1-13", s.Channel))
	}
	if s.MaxClients < 1 || s.MaxClients > 10 {
		errs = append(errs, fmt.Errorf("max_clients %d outside 1-10", s.MaxClients))
	}
	if s.Interface == "" {
		errs = append(errs, errors.New("interface is required"))
	}
	return errors.Join(errs...)
}

// WriteHostapd renders an open (no authentication) 802.11b/g/n AP.
func (s Settings) WriteHostapd(w io.Writer) error {
	hidden := 0
	if s.Hidden {
		hidden = 1
	}
	_, err := fmt.Fprintf(w, `interface=%s
driver=nl80211
ssid=%s
hw_mode=g
ieee80211n=1
channel=%d
auth_algs=1
wpa=0
ignore_broadcast_ssid=%d
max_num_sta=%d
`, s.Interface, s.SSID, s.Channel, hidden, s.MaxClients)
	return err
}

// Start validates the settings and writes the hostapd configuration when a
// path is configured.
func Start(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("access point: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.HostapdConf != "" {
		var buf bytes.Buffer
		if err := s.WriteHostapd(&buf); err != nil {
			return err
		}
		if err := os.WriteFile(s.HostapdConf, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("write hostapd config: %w", err)
		}
	}
	log.Info().
		Str("ssid", s.SSID).
		Int("channel", s.Channel).
		Int("max_clients", s.MaxClients).
		Str("hostapd_conf", s.HostapdConf).
		Msg("access point configured")
	return nil
}
