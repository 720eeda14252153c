package model_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/coreman2200/neopixel-ap/model"
)

var TestRGBIsExpectedGRB = []struct {
	R      uint8
	G      uint8
	B      uint8
	Expect uint32
}{
	{0x01, 0x02, 0x04, 0x020104},
	{0xFF, 0x00, 0x00, 0x00FF00},
	{0x00, 0xFF, 0x00, 0xFF0000},
	{0x00, 0x00, 0xFF, 0x0000FF},
	{0x22, 0x11, 0x33, 0x112233},
	{0xFF, 0xFF, 0xFF, 0xFFFFFF},
}

func TestColorGRB(t *testing.T) {
	for k, v := range TestRGBIsExpectedGRB {
		t.Run("Given RGB"+strconv.Itoa(k), func(t *testing.T) {
			col := RGB(v.R, v.G, v.B)
			assert.Equal(t, v.Expect, col.GRB(), "packed word")
			assert.Equal(t, col, FromGRB(col.GRB()), "unpacked color")
		})
	}
}

func TestFromGRBIgnoresHighByte(t *testing.T) {
	assert.Equal(t, RGB(1, 2, 4), FromGRB(0xFF020104))
}

func TestColorBytesAndString(t *testing.T) {
	c := RGB(0x0a, 0x80, 0xff)
	assert.Equal(t, []byte{0x0a, 0x80, 0xff}, c.Bytes())
	assert.Equal(t, "#0a80ff", c.String())
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#ff8800")
	require.NoError(t, err)
	assert.Equal(t, RGB(0xff, 0x88, 0x00), c)

	c, err = ParseHex("#0f0")
	require.NoError(t, err)
	assert.Equal(t, RGB(0, 0xff, 0), c)

	_, err = ParseHex("orange")
	assert.Error(t, err)
}
