// Package render plays an encoded PSG event stream back to PCM so a
// conversion can be auditioned without the target hardware.
package render

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-approx"
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-psg/psg"
)

// Waveform selectors held in bits 7:6 of a channel's waveform register.
const (
	WavePulse = iota
	WaveSawtooth
	WaveTriangle
	WaveNoise
)

// Params configures the preview.
type Params struct {
	SampleRate int
	// TailTicks of audio are rendered after the end marker so the last
	// write group is audible.
	TailTicks  int
	MasterGain float32
	// CutoffHz of the output lowpass; zero disables it.
	CutoffHz float64
}

// DefaultParams renders at 48 kHz with a one second tail.
func DefaultParams() Params {
	return Params{
		SampleRate: 48000,
		TailTicks:  60,
		MasterGain: 0.25,
		CutoffHz:   12000,
	}
}

type voice struct {
	regs  [4]byte
	phase float64
	noise uint16
	level float32
}

func (v *voice) freq() float64 {
	return psg.PeriodToFreq(v.regs[psg.RegPeriodLo], v.regs[psg.RegPeriodHi])
}

func (v *voice) gain() float32 {
	vol := v.regs[psg.RegVolume] & 0x3F
	if vol == 0 || v.regs[psg.RegVolume]&psg.VolumeMask == 0 {
		return 0
	}
	// 0.5 dB per step below full scale.
	return pow2Approx(float32(int(vol)-psg.MaxVolume) / 12.0)
}

func (v *voice) next(sampleRate float64) float32 {
	g := v.gain()
	f := v.freq()
	if g == 0 || f <= 0 {
		return 0
	}
	prev := v.phase
	v.phase += f / sampleRate
	v.phase -= math.Floor(v.phase)

	var s float32
	switch v.regs[psg.RegWaveform] >> 6 {
	case WavePulse:
		width := float64(v.regs[psg.RegWaveform]&0x3F+1) / 128.0
		s = -1
		if v.phase < width {
			s = 1
		}
	case WaveSawtooth:
		s = float32(2*v.phase - 1)
	case WaveTriangle:
		s = float32(1 - 4*math.Abs(v.phase-0.5))
	case WaveNoise:
		if v.phase < prev {
			bit := (v.noise ^ v.noise>>1) & 1
			v.noise = v.noise>>1 | bit<<15
		}
		s = float32(int(v.noise&1)*2 - 1)
	}
	return s * g
}

// Chip is a register-level model of the sixteen voices.
type Chip struct {
	voices     [psg.NumChannels]voice
	sampleRate float64
	lpA        float32
	lpState    float32
	dcPrevIn   float32
	dcPrevOut  float32
	gain       float32
}

// NewChip returns a silent chip.
func NewChip(p Params) *Chip {
	c := &Chip{sampleRate: float64(p.SampleRate), gain: p.MasterGain}
	if p.CutoffHz > 0 {
		c.lpA = float32(math.Exp(-2.0 * math.Pi * p.CutoffHz / float64(p.SampleRate)))
	}
	for i := range c.voices {
		c.voices[i].noise = 0xACE1 + uint16(i)
	}
	return c
}

// Write applies one register write. Addresses beyond the voice block are ignored.
func (c *Chip) Write(w psg.Write) {
	ch := int(w.Addr) / 4
	if ch >= psg.NumChannels {
		return
	}
	c.voices[ch].regs[int(w.Addr)%4] = w.Data
}

// Process renders n samples.
func (c *Chip) Process(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		var sum float32
		for v := range c.voices {
			sum += c.voices[v].next(c.sampleRate)
		}
		out[i] = c.bandLimit(sum * c.gain)
	}
	return out
}

func (c *Chip) bandLimit(x float32) float32 {
	dcOut := x - c.dcPrevIn + 0.995*c.dcPrevOut
	c.dcPrevIn = x
	c.dcPrevOut = float32(dspcore.FlushDenormals(float64(dcOut)))
	if c.lpA == 0 {
		return c.dcPrevOut
	}
	lp := (1.0-c.lpA)*c.dcPrevOut + c.lpA*c.lpState
	lp = float32(dspcore.FlushDenormals(float64(lp)))
	c.lpState = lp
	return lp
}

// Render replays a stream: preamble first, then write groups separated by
// their delay events, each group holding for the stream's WriteGroupTicks,
// then TailTicks of trailing audio.
func Render(s *psg.Stream, p Params) ([]float32, error) {
	if s == nil {
		return nil, fmt.Errorf("nil stream")
	}
	if p.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", p.SampleRate)
	}
	if s.Header.TickRate <= 0 {
		return nil, fmt.Errorf("invalid tick rate %d", s.Header.TickRate)
	}

	c := NewChip(p)
	for _, w := range s.Preamble {
		c.Write(w)
	}

	samplesPerTick := float64(p.SampleRate) / float64(s.Header.TickRate)
	var out []float32
	var clock float64
	advance := func(ticks int) {
		clock += float64(ticks) * samplesPerTick
		if n := int(clock) - len(out); n > 0 {
			out = append(out, c.Process(n)...)
		}
	}

	for _, ev := range s.Events {
		switch ev.Kind {
		case psg.EventDelay:
			advance(ev.Ticks)
		case psg.EventWriteGroup:
			for _, w := range ev.Writes {
				c.Write(w)
			}
			advance(s.WriteGroupTicks)
		case psg.EventEnd:
			advance(p.TailTicks)
			return out, nil
		}
	}
	return nil, fmt.Errorf("stream has no end marker")
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}
