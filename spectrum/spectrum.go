// Package spectrum turns PCM audio into per-tick lists of spectral peaks.
package spectrum

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-psg/psg"
)

// Params controls frame slicing and peak picking.
type Params struct {
	// TickRate is the number of analysis frames per second; the hop is
	// sampleRate/TickRate samples.
	TickRate int
	// WindowSeconds is the length of each Hamming-windowed frame.
	WindowSeconds float64
	// FFTSize is zero for the next power of two at or above the window length.
	FFTSize int
	MinHz   float64
	MaxHz   float64
	// ThresholdRatio discards peaks below this fraction of the frame maximum.
	ThresholdRatio float64
	// Gain scales normalized magnitudes (a full-scale sine reads as 1.0).
	Gain float64
}

// DefaultParams returns 60 frames/s with a 1/3 s window over 20 Hz..20 kHz.
func DefaultParams() Params {
	return Params{
		TickRate:       60,
		WindowSeconds:  1.0 / 3.0,
		MinHz:          20,
		MaxHz:          20000,
		ThresholdRatio: 0.1,
		Gain:           1.0,
	}
}

// Validate reports the first invalid field.
func (p Params) Validate() error {
	if p.TickRate < 1 {
		return fmt.Errorf("tick rate must be >= 1")
	}
	if p.WindowSeconds <= 0 {
		return fmt.Errorf("window must be > 0 seconds")
	}
	if p.FFTSize != 0 && (p.FFTSize < 2 || p.FFTSize&(p.FFTSize-1) != 0) {
		return fmt.Errorf("fft size must be a power of two, got %d", p.FFTSize)
	}
	if p.MinHz < 0 || p.MaxHz <= p.MinHz {
		return fmt.Errorf("frequency band invalid: %g..%g Hz", p.MinHz, p.MaxHz)
	}
	if p.ThresholdRatio <= 0 || p.ThresholdRatio > 1 {
		return fmt.Errorf("threshold ratio must be in (0,1], got %g", p.ThresholdRatio)
	}
	if p.Gain <= 0 {
		return fmt.Errorf("gain must be > 0")
	}
	return nil
}

// Analyze slices mono samples into frames one tick apart and returns the
// peaks found in each frame, in bin order. Frames are only taken where the
// full window fits.
func Analyze(samples []float64, sampleRate int, p Params) ([][]psg.Peak, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	frameLen := int(math.Round(p.WindowSeconds * float64(sampleRate)))
	hop := int(math.Round(float64(sampleRate) / float64(p.TickRate)))
	if frameLen < 2 || hop < 1 {
		return nil, fmt.Errorf("window or hop too short at %d Hz", sampleRate)
	}
	fftSize := p.FFTSize
	if fftSize == 0 {
		fftSize = nextPow2(frameLen)
	}
	if fftSize < frameLen {
		return nil, fmt.Errorf("fft size %d shorter than window %d", fftSize, frameLen)
	}

	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}

	window := hamming(frameLen)
	var wsum float64
	for _, w := range window {
		wsum += w
	}
	norm := 2.0 * p.Gain / wsum
	binHz := float64(sampleRate) / float64(fftSize)

	loK := int(math.Ceil(p.MinHz / binHz))
	hiK := int(math.Floor(p.MaxHz / binHz))
	if loK < 1 {
		loK = 1
	}
	if hiK > fftSize/2-1 {
		hiK = fftSize/2 - 1
	}

	buf := make([]float64, fftSize)
	spec := make([]complex128, fftSize/2+1)
	mag := make([]float64, fftSize/2+1)

	var frames [][]psg.Peak
	for start := 0; start+frameLen <= len(samples); start += hop {
		for i := 0; i < frameLen; i++ {
			buf[i] = samples[start+i] * window[i]
		}
		for i := frameLen; i < fftSize; i++ {
			buf[i] = 0
		}
		plan.Forward(spec, buf)

		var peak float64
		for k := range spec {
			mag[k] = cmplx.Abs(spec[k]) * norm
			if mag[k] > peak {
				peak = mag[k]
			}
		}
		frames = append(frames, pickPeaks(mag, loK, hiK, peak*p.ThresholdRatio, binHz))
	}
	return frames, nil
}

// pickPeaks returns strict local maxima in mag[loK..hiK] at or above floor.
// The band edges themselves are never peaks.
func pickPeaks(mag []float64, loK int, hiK int, floor float64, binHz float64) []psg.Peak {
	if floor <= 0 {
		return nil
	}
	var out []psg.Peak
	for k := loK + 1; k < hiK; k++ {
		m := mag[k]
		if m < floor || m <= mag[k-1] || m <= mag[k+1] {
			continue
		}
		out = append(out, psg.Peak{Freq: float64(k) * binHz, Magnitude: m})
	}
	return out
}

func hamming(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
