package led

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio/gpiostream"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/coreman2200/neopixel-ap/internal/pulse"
	"github.com/coreman2200/neopixel-ap/model"
)

func train(t *testing.T, freq physic.Frequency, colors ...model.Color) pulse.Train {
	t.Helper()
	tr, err := pulse.Encode(colors, freq)
	require.NoError(t, err)
	return tr
}

func TestTransmitError(t *testing.T) {
	cause := errors.New("bus gone")
	err := fault("spi", cause)
	assert.ErrorIs(t, err, ErrHardwareFault)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "led spi: bus gone", err.Error())

	var te *TransmitError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "spi", te.Backend)

	assert.NoError(t, fault("spi", nil))
}

func TestSimRecords(t *testing.T) {
	sim := NewSim(0)
	assert.Equal(t, DefaultSimFreq, sim.TickFrequency())

	_, ok := sim.Showing()
	assert.False(t, ok)

	require.NoError(t, sim.Emit(train(t, DefaultSimFreq, model.RGB(9, 8, 7))))
	require.NoError(t, sim.Emit(train(t, DefaultSimFreq, model.RGB(1, 2, 3))))
	assert.Len(t, sim.Trains(), 2)

	showing, ok := sim.Showing()
	require.True(t, ok)
	assert.Equal(t, []model.Color{model.RGB(1, 2, 3)}, showing)
}

func TestSimFaults(t *testing.T) {
	sim := NewSim(0)
	sim.FailNext(nil)
	assert.ErrorIs(t, sim.Emit(train(t, DefaultSimFreq, model.RGB(1, 1, 1))), ErrHardwareFault)
	assert.NoError(t, sim.Emit(train(t, DefaultSimFreq, model.RGB(1, 1, 1))))

	err := sim.Emit(train(t, 40*physic.MegaHertz, model.RGB(1, 1, 1)))
	assert.ErrorIs(t, err, ErrHardwareFault)
	assert.Len(t, sim.Trains(), 1)
}

func TestSPIEmit(t *testing.T) {
	buf := bytes.Buffer{}
	s, err := NewSPI(spitest.NewRecordRaw(&buf), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSPIFreq, s.TickFrequency())

	tr := train(t, DefaultSPIFreq, model.RGB(0, 0x80, 0))
	require.NoError(t, s.Emit(tr))

	want := append(pulse.Raster(tr), make([]byte, 90)...)
	assert.Equal(t, want, buf.Bytes())
	assert.Equal(t, byte(0xd2), buf.Bytes()[0])

	assert.ErrorIs(t, s.Emit(train(t, DefaultSimFreq, model.RGB(1, 1, 1))), ErrHardwareFault)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Emit(tr), ErrClosed)
}

type streamPin struct {
	*gpiotest.Pin
	got []*gpiostream.BitStream
	err error
}

func (p *streamPin) StreamOut(s gpiostream.Stream) error {
	if p.err != nil {
		return p.err
	}
	b, ok := s.(*gpiostream.BitStream)
	if !ok {
		return errors.New("unexpected stream type")
	}
	p.got = append(p.got, b)
	return nil
}

func TestStreamEmit(t *testing.T) {
	p := &streamPin{Pin: &gpiotest.Pin{N: "GPIO18", Num: 18}}
	s := NewStream(p, 0)
	assert.Equal(t, DefaultStreamFreq, s.TickFrequency())

	tr := train(t, DefaultStreamFreq, model.RGB(10, 20, 30), model.RGB(40, 50, 60))
	require.NoError(t, s.Emit(tr))
	require.Len(t, p.got, 1)
	assert.Equal(t, DefaultStreamFreq, p.got[0].Freq)
	assert.False(t, p.got[0].LSBF)
	assert.Equal(t, pulse.Raster(tr), p.got[0].Bits)

	p.err = errors.New("dma busy")
	assert.ErrorIs(t, s.Emit(tr), ErrHardwareFault)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Emit(tr), ErrClosed)
}

func TestNRZEmit(t *testing.T) {
	buf := bytes.Buffer{}
	n, err := NewNRZ(spitest.NewRecordRaw(&buf), 1, 0)
	require.NoError(t, err)

	require.NoError(t, n.Emit(train(t, n.TickFrequency(), model.RGB(255, 0, 0))))
	// 3 latch bytes, 4 SPI bytes per channel, 3 latch bytes.
	assert.Equal(t, 3+12+3, buf.Len())

	err = n.Emit(train(t, n.TickFrequency(), model.RGB(1, 1, 1), model.RGB(2, 2, 2)))
	assert.ErrorIs(t, err, ErrHardwareFault)

	_, err = NewNRZ(spitest.NewRecordRaw(&buf), 0, 0)
	assert.Error(t, err)
}
