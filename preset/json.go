package preset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cwbudde/algo-psg/psg"
	"github.com/cwbudde/algo-psg/spectrum"
)

// Config is everything a conversion needs besides its input.
type Config struct {
	// AnalysisSampleRate resamples the input before analysis; zero keeps
	// the file's rate.
	AnalysisSampleRate int
	Spectrum           spectrum.Params
	Encoder            psg.Options
}

// NewDefaultConfig returns the reference conversion settings.
func NewDefaultConfig() *Config {
	return &Config{
		Spectrum: spectrum.DefaultParams(),
		Encoder:  psg.DefaultOptions(),
	}
}

// SetTickRate changes the frame rate for both analysis and the stream header.
func (c *Config) SetTickRate(rate int) {
	c.Spectrum.TickRate = rate
	c.Encoder.TickRate = rate
}

// Validate checks the combined configuration.
func (c *Config) Validate() error {
	if c.AnalysisSampleRate < 0 {
		return fmt.Errorf("analysis_sample_rate must be >= 0")
	}
	if c.Spectrum.TickRate != c.Encoder.TickRate {
		return fmt.Errorf("analysis tick rate %d differs from stream tick rate %d", c.Spectrum.TickRate, c.Encoder.TickRate)
	}
	if err := c.Spectrum.Validate(); err != nil {
		return err
	}
	return c.Encoder.Validate()
}

// File is the JSON schema for conversion presets. Absent fields keep their
// defaults.
type File struct {
	TickRate           *int     `json:"tick_rate"`
	AnalysisSampleRate *int     `json:"analysis_sample_rate"`
	WindowSeconds      *float64 `json:"window_seconds"`
	FFTSize            *int     `json:"fft_size"`
	MinHz              *float64 `json:"min_hz"`
	MaxHz              *float64 `json:"max_hz"`
	ThresholdRatio     *float64 `json:"threshold_ratio"`
	Gain               *float64 `json:"gain"`
	MaxPeaks           *int     `json:"max_peaks"`
	AdvanceOnWrite     *bool    `json:"advance_on_write"`
}

// LoadJSON loads a preset JSON file and applies it on top of the defaults.
func LoadJSON(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c := NewDefaultConfig()
	if err := ApplyFile(c, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ApplyFile applies a parsed preset file onto an existing config.
func ApplyFile(dst *Config, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination config")
	}
	if f == nil {
		return nil
	}

	if f.TickRate != nil {
		if *f.TickRate < 1 || *f.TickRate > 0xFFFF {
			return fmt.Errorf("tick_rate must be in 1..65535")
		}
		dst.SetTickRate(*f.TickRate)
	}
	if f.AnalysisSampleRate != nil {
		if *f.AnalysisSampleRate < 0 {
			return fmt.Errorf("analysis_sample_rate must be >= 0")
		}
		dst.AnalysisSampleRate = *f.AnalysisSampleRate
	}
	if f.WindowSeconds != nil {
		if *f.WindowSeconds <= 0 {
			return fmt.Errorf("window_seconds must be > 0")
		}
		dst.Spectrum.WindowSeconds = *f.WindowSeconds
	}
	if f.FFTSize != nil {
		n := *f.FFTSize
		if n != 0 && (n < 2 || n&(n-1) != 0) {
			return fmt.Errorf("fft_size must be 0 or a power of two")
		}
		dst.Spectrum.FFTSize = n
	}
	if f.MinHz != nil {
		dst.Spectrum.MinHz = *f.MinHz
	}
	if f.MaxHz != nil {
		dst.Spectrum.MaxHz = *f.MaxHz
	}
	if dst.Spectrum.MinHz < 0 || dst.Spectrum.MaxHz <= dst.Spectrum.MinHz {
		return fmt.Errorf("min_hz must be >= 0 and below max_hz")
	}
	if f.ThresholdRatio != nil {
		if *f.ThresholdRatio <= 0 || *f.ThresholdRatio > 1 {
			return fmt.Errorf("threshold_ratio must be in (0,1]")
		}
		dst.Spectrum.ThresholdRatio = *f.ThresholdRatio
	}
	if f.Gain != nil {
		if *f.Gain <= 0 {
			return fmt.Errorf("gain must be > 0")
		}
		dst.Spectrum.Gain = *f.Gain
	}
	if f.MaxPeaks != nil {
		if *f.MaxPeaks < 1 {
			return fmt.Errorf("max_peaks must be >= 1")
		}
		dst.Encoder.MaxPeaks = *f.MaxPeaks
	}
	if f.AdvanceOnWrite != nil {
		dst.Encoder.AdvanceOnWrite = *f.AdvanceOnWrite
	}
	return nil
}
