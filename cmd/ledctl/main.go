// Command ledctl sets the LED color on a running device.
//
//	ledctl -addr http://192.168.4.1 '#ff8000'
//	ledctl 255 128 0
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/neopixel-ap/model"
)

func main() {
	var (
		addr    = flag.String("addr", "http://192.168.4.1", "device base URL")
		timeout = flag.Duration("timeout", 5*time.Second, "request timeout")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	c, err := parseColor(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "usage: ledctl [-addr URL] '#rrggbb' | R G B")
		log.Fatal().Err(err).Msg("bad color")
	}

	client := &http.Client{Timeout: *timeout}
	echo, err := send(client, *addr, c)
	if err != nil {
		log.Fatal().Err(err).Str("addr", *addr).Stringer("color", c).Msg("set color failed")
	}
	fmt.Println(echo)
}

// parseColor accepts a single hex color or three decimal channel values.
func parseColor(args []string) (model.Color, error) {
	switch len(args) {
	case 1:
		return model.ParseHex(args[0])
	case 3:
		var v [3]uint8
		for i, a := range args {
			n, err := strconv.ParseUint(a, 10, 8)
			if err != nil {
				return model.Color{}, fmt.Errorf("channel %d: %w", i, err)
			}
			v[i] = uint8(n)
		}
		return model.RGB(v[0], v[1], v[2]), nil
	}
	return model.Color{}, fmt.Errorf("want 1 or 3 arguments, got %d", len(args))
}

// send posts the color and returns the device's echo.
func send(client *http.Client, base string, c model.Color) (model.Color, error) {
	url := strings.TrimSuffix(base, "/") + "/led"
	res, err := client.Post(url, "application/octet-stream", bytes.NewReader(c.Bytes()))
	if err != nil {
		return model.Color{}, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(io.LimitReader(res.Body, 1024))
	if err != nil {
		return model.Color{}, err
	}
	if res.StatusCode != http.StatusOK {
		return model.Color{}, fmt.Errorf("%s: %s", res.Status, strings.TrimSpace(string(b)))
	}
	if len(b) != 3 {
		return model.Color{}, fmt.Errorf("unexpected reply of %d bytes", len(b))
	}
	return model.RGB(b[0], b[1], b[2]), nil
}
