package diagnostics

import (
	"errors"
	"time"

	"github.com/coreman2200/neopixel-ap/internal/led"
	"github.com/coreman2200/neopixel-ap/internal/pulse"
	"github.com/coreman2200/neopixel-ap/internal/update"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Time           time.Time      `json:"time"`
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// FromError describes a failed color update for the /diag feed.
func FromError(err error) Diagnostic {
	d := Diagnostic{
		Time:     time.Now(),
		Severity: Err,
		Code:     "UPDATE.FAILED",
		Summary:  "Color update failed",
		Detail:   err.Error(),
	}

	var reqErr *update.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.Kind {
		case update.MalformedBody:
			d.Severity = Warn
			d.Code = "REQUEST.MALFORMED"
			d.Summary = "Request body is not 3 bytes"
			d.Evidence = map[string]any{"len": reqErr.Len}
			d.SuggestedFixes = []string{"POST exactly 3 raw bytes (R, G, B) to /led"}
		case update.EncodingFailed:
			d.Code = "ENCODE.FAILED"
			d.Summary = "Tick frequency cannot represent the LED timing"
			d.LikelyCauses = []string{"clock divider too large", "SPI or stream frequency too low"}
			d.SuggestedFixes = []string{"lower the clock divider or raise the tick frequency"}
		case update.TransmitFailed:
			d.Code = "TRANSMIT.FAILED"
			d.Summary = "LED transmission failed"
			d.LikelyCauses = []string{"pin or bus not available", "device closed during shutdown"}
		}
	}

	var encErr *pulse.EncodingError
	if errors.As(err, &encErr) {
		d.Evidence = map[string]any{
			"duration_ns": encErr.Duration.Nanoseconds(),
			"tick_freq":   encErr.Freq.String(),
		}
	}
	var txErr *led.TransmitError
	if errors.As(err, &txErr) {
		d.Evidence = map[string]any{"backend": txErr.Backend}
	}
	return d
}
