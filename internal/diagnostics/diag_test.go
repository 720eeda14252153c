package diagnostics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/neopixel-ap/internal/led"
	"github.com/coreman2200/neopixel-ap/internal/pulse"
	"github.com/coreman2200/neopixel-ap/internal/update"
)

func TestFromError(t *testing.T) {
	d := FromError(&update.RequestError{Kind: update.MalformedBody, Len: 4})
	assert.Equal(t, Warn, d.Severity)
	assert.Equal(t, "REQUEST.MALFORMED", d.Code)
	assert.Equal(t, 4, d.Evidence["len"])

	enc := &pulse.EncodingError{Duration: 350 * time.Nanosecond, Freq: physic.MegaHertz, Reason: "shorter than one tick"}
	d = FromError(&update.RequestError{Kind: update.EncodingFailed, Err: enc})
	assert.Equal(t, Err, d.Severity)
	assert.Equal(t, "ENCODE.FAILED", d.Code)
	assert.Equal(t, int64(350), d.Evidence["duration_ns"])
	assert.Equal(t, "1MHz", d.Evidence["tick_freq"])

	tx := &led.TransmitError{Backend: "spi", Err: errors.New("tx")}
	d = FromError(&update.RequestError{Kind: update.TransmitFailed, Err: tx})
	assert.Equal(t, "TRANSMIT.FAILED", d.Code)
	assert.Equal(t, "spi", d.Evidence["backend"])

	d = FromError(errors.New("other"))
	assert.Equal(t, "UPDATE.FAILED", d.Code)
	assert.Equal(t, "other", d.Detail)
}
