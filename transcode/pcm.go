package transcode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-audio/audio"
)

// WAVE format tags
const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatExtensible = 0xFFFE
)

// pcmDivisor returns the value that maps a signed integer sample of the
// given bit depth onto [-1, 1)
func pcmDivisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 8, 16, 24, 32:
		return float64(audio.IntMaxSignedValue(bitDepth) + 1), nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}

// decodePCM converts little-endian sample bytes to floats in [-1, 1].
// 8-bit integer samples are unsigned, wider ones signed; float32 is taken
// as is. A trailing partial sample is ignored.
func decodePCM(raw []byte, bitDepth int, float bool) ([]float64, error) {
	if float {
		if bitDepth != 32 {
			return nil, fmt.Errorf("unsupported float bit depth: %d", bitDepth)
		}
		out := make([]float64, len(raw)/4)
		for i := range out {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
		}
		return out, nil
	}

	divisor, err := pcmDivisor(bitDepth)
	if err != nil {
		return nil, err
	}

	width := bitDepth / 8
	out := make([]float64, len(raw)/width)
	for i := range out {
		b := raw[i*width:]
		var v int32
		switch bitDepth {
		case 8:
			v = int32(b[0]) - 128
		case 16:
			v = int32(int16(binary.LittleEndian.Uint16(b)))
		case 24:
			v = audio.Int24LETo32(b[:3])
		case 32:
			v = int32(binary.LittleEndian.Uint32(b))
		}
		out[i] = float64(v) / divisor
	}
	return out, nil
}

// scaleInts converts integer samples as returned by go-audio decoders
func scaleInts(data []int, bitDepth int) ([]float64, error) {
	divisor, err := pcmDivisor(bitDepth)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(data))
	for i, v := range data {
		if bitDepth == 8 {
			v -= 128
		}
		out[i] = float64(v) / divisor
	}
	return out, nil
}
