package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-psg/preset"
	"github.com/cwbudde/algo-psg/psg"
	"github.com/cwbudde/algo-psg/spectrum"
	"github.com/cwbudde/algo-psg/zsm"
)

const (
	formatYAML   = "yaml"
	formatBinary = "zsm"
)

// outputFormat resolves -format, falling back to the output extension.
func outputFormat(format string, path string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" || f == "auto" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yml", ".yaml":
			return formatYAML, nil
		default:
			return formatBinary, nil
		}
	}
	switch f {
	case "yaml", "yml":
		return formatYAML, nil
	case "zsm", "binary":
		return formatBinary, nil
	}
	return "", fmt.Errorf("unknown format %q (use yaml|zsm|auto)", format)
}

// convert runs analysis and encoding over a whole mono signal.
func convert(samples []float64, sampleRate int, cfg *preset.Config) (*psg.Stream, psg.Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, psg.Stats{}, err
	}
	frames, err := spectrum.Analyze(samples, sampleRate, cfg.Spectrum)
	if err != nil {
		return nil, psg.Stats{}, fmt.Errorf("analysis: %w", err)
	}
	s, stats, err := psg.Encode(frames, cfg.Encoder)
	if err != nil {
		return nil, psg.Stats{}, fmt.Errorf("encode: %w", err)
	}
	return s, stats, nil
}

// serialize renders the stream in memory so nothing is written on failure.
func serialize(s *psg.Stream, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case formatYAML:
		err = zsm.WriteYAML(&buf, s)
	case formatBinary:
		err = zsm.WriteBinary(&buf, s)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
