package main

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-psg/internal/audioio"
	"github.com/cwbudde/algo-psg/preset"
	"github.com/cwbudde/algo-psg/psg"
	"github.com/cwbudde/algo-psg/zsm"
)

func tones(sampleRate int, seconds float64, freqs []float64, amp float64) []float64 {
	out := make([]float64, int(float64(sampleRate)*seconds))
	for _, f := range freqs {
		for i := range out {
			out[i] += amp * math.Sin(2*math.Pi*f*float64(i)/float64(sampleRate))
		}
	}
	return out
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		format, path, want string
		wantErr            bool
	}{
		{"auto", "song.yml", formatYAML, false},
		{"", "song.YAML", formatYAML, false},
		{"auto", "song.zsm", formatBinary, false},
		{"auto", "song", formatBinary, false},
		{"yaml", "song.zsm", formatYAML, false},
		{"binary", "song.yml", formatBinary, false},
		{"midi", "song.mid", "", true},
	}
	for _, tt := range tests {
		got, err := outputFormat(tt.format, tt.path)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%q/%q: expected error", tt.format, tt.path)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%q/%q: got %q, %v want %q", tt.format, tt.path, got, err, tt.want)
		}
	}
}

func TestConvertSteadyTone(t *testing.T) {
	sr := 48000
	cfg := preset.NewDefaultConfig()
	cfg.Spectrum.Gain = 4
	s, stats, err := convert(tones(sr, 1.0, []float64{440}, 0.5), sr, cfg)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if stats.Frames != 41 {
		t.Fatalf("frames: %d", stats.Frames)
	}
	// A steady tone is written once; later frames repeat the same registers.
	if stats.WriteGroups != 1 {
		t.Fatalf("write groups: %d (%+v)", stats.WriteGroups, s.Events)
	}
	var group psg.Event
	for _, ev := range s.Events {
		if ev.Kind == psg.EventWriteGroup {
			group = ev
		}
	}
	if len(group.Writes) != 3 || group.Writes[0].Addr != 0 || group.Writes[1].Addr != 1 || group.Writes[2].Addr != 2 {
		t.Fatalf("first group writes: %+v", group.Writes)
	}
	if group.Writes[2].Data&psg.VolumeMask != psg.VolumeMask {
		t.Fatalf("volume write missing output mask: %#02x", group.Writes[2].Data)
	}
}

func TestConvertFromWAVFile(t *testing.T) {
	sr := 48000
	path := filepath.Join(t.TempDir(), "tone.wav")
	src := tones(sr, 1.0, []float64{440}, 0.9)
	data := make([]float32, len(src))
	for i, v := range src {
		data[i] = float32(v)
	}
	if err := audioio.WriteMonoWAV(path, data, sr); err != nil {
		t.Fatalf("WriteMonoWAV: %v", err)
	}
	samples, gotSR, err := audioio.ReadWAVMono(path)
	if err != nil {
		t.Fatalf("ReadWAVMono: %v", err)
	}
	var peak float64
	for _, v := range samples {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak < 0.85 || peak > 0.95 {
		t.Fatalf("decoded peak %.4f, want about 0.9", peak)
	}
	_, stats, err := convert(samples, gotSR, preset.NewDefaultConfig())
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if stats.WriteGroups == 0 || stats.Writes == 0 {
		t.Fatalf("a full-scale tone produced no writes: %+v", stats)
	}
}

func TestConvertSurfacesOutOfChannels(t *testing.T) {
	sr := 48000
	var freqs []float64
	for f := 200.0; f <= 4000; f += 200 {
		freqs = append(freqs, f)
	}
	cfg := preset.NewDefaultConfig()
	cfg.Encoder.MaxPeaks = len(freqs)
	_, _, err := convert(tones(sr, 0.5, freqs, 0.04), sr, cfg)
	if !errors.Is(err, psg.ErrOutOfChannels) {
		t.Fatalf("expected ErrOutOfChannels, got %v", err)
	}
}

func TestSerializeFormats(t *testing.T) {
	s, _, err := psg.Encode([][]psg.Peak{{{Freq: 440, Magnitude: 1}}}, psg.DefaultOptions())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	y, err := serialize(s, formatYAML)
	if err != nil {
		t.Fatalf("serialize yaml: %v", err)
	}
	if !bytes.HasPrefix(y, []byte("zsm:\n")) || !bytes.HasSuffix(y, []byte("  - eod\n")) {
		t.Fatalf("unexpected yaml document:\n%s", y)
	}
	b, err := serialize(s, formatBinary)
	if err != nil {
		t.Fatalf("serialize binary: %v", err)
	}
	back, err := zsm.ReadBinary(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}
	if back.Header != s.Header {
		t.Fatalf("header mismatch: %+v vs %+v", back.Header, s.Header)
	}
	if _, err := serialize(s, "wav"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
