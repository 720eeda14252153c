package pulse

import "periph.io/x/conn/v3/gpio"

// Raster samples the train once per tick into a densely packed MSB-first bit
// stream, high = 1. The last byte is padded low.
//
// At 2.4MHz a WS2812 bit expands to the classic 3-bit SPI patterns: 0b100 for
// a 0 and 0b110 for a 1.
func Raster(t Train) []byte {
	out := make([]byte, (t.Ticks()+7)/8)
	pos := 0
	for _, s := range t.Symbols {
		if s.Level == gpio.Low {
			pos += int(s.Ticks)
			continue
		}
		for i := 0; i < int(s.Ticks); i++ {
			out[pos/8] |= 0x80 >> uint(pos%8)
			pos++
		}
	}
	return out
}
