package psg

import "math"

const (
	// ClockHz is the PSG reference frequency; one period unit is ClockHz / 2^17 Hz.
	ClockHz = 48828.125

	// MaxVolume is the largest value the 6-bit volume register holds.
	MaxVolume = 63

	periodScale = (1 << 17) / ClockHz
	volumeSlope = 28.0
	volumeBase  = 6.0
)

// Peak is one spectral candidate for a frame: frequency in Hz and linear magnitude.
type Peak struct {
	Freq      float64
	Magnitude float64
}

// Quantized is a peak expressed as PSG register values.
type Quantized struct {
	PeriodLo byte
	PeriodHi byte
	Volume   uint8
}

// Period converts a frequency in Hz to the chip's period value. Values beyond
// 16 bits are returned as-is; PeriodBytes keeps only the low 16 bits, so
// out-of-range frequencies alias rather than saturate.
func Period(freq float64) int64 {
	if math.IsNaN(freq) || freq <= 0 {
		return 0
	}
	p := math.RoundToEven(freq * periodScale)
	if p > math.MaxInt64/2 {
		return math.MaxInt64 / 2
	}
	return int64(p)
}

// PeriodBytes splits a period into its low and high register bytes.
func PeriodBytes(period int64) (lo byte, hi byte) {
	return byte(period & 0xFF), byte((period >> 8) & 0xFF)
}

// PeriodToFreq is the inverse of Period for a 16-bit register value.
func PeriodToFreq(lo byte, hi byte) float64 {
	return float64(int(hi)<<8|int(lo)) / periodScale
}

// Volume maps a linear magnitude to the 6-bit volume scale:
// round(28*ln(6a)/ln 6) clamped to [0,63]. Non-positive and NaN magnitudes
// yield 0.
func Volume(magnitude float64) uint8 {
	x := magnitude * volumeBase
	if math.IsNaN(x) || x <= 0 {
		return 0
	}
	n := math.RoundToEven(volumeSlope * math.Log(x) / math.Log(volumeBase))
	switch {
	case n > MaxVolume:
		return MaxVolume
	case n < 0:
		return 0
	}
	return uint8(n)
}

// QuantizePeak converts one candidate to register values.
func QuantizePeak(p Peak) Quantized {
	lo, hi := PeriodBytes(Period(p.Freq))
	return Quantized{PeriodLo: lo, PeriodHi: hi, Volume: Volume(p.Magnitude)}
}

// QuantizeFrame quantizes an already ranked frame, preserving order.
func QuantizeFrame(peaks []Peak) []Quantized {
	out := make([]Quantized, len(peaks))
	for i, p := range peaks {
		out[i] = QuantizePeak(p)
	}
	return out
}
