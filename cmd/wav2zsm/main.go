package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cwbudde/algo-psg/internal/audioio"
	"github.com/cwbudde/algo-psg/preset"
	"github.com/cwbudde/algo-psg/render"
)

func main() {
	inputPath := flag.String("input", "", "Input WAV path")
	outputPath := flag.String("output", "out.zsm", "Output path")
	format := flag.String("format", "auto", "Output format: yaml|zsm|auto (by extension)")
	presetPath := flag.String("preset", "", "Optional preset JSON path")
	tickRate := flag.Int("tick-rate", 60, "Frames per second (overrides preset)")
	maxPeaks := flag.Int("max-peaks", 16, "Peaks per frame passed to the allocator (overrides preset)")
	threshold := flag.Float64("threshold", 0.1, "Peak threshold as a fraction of the frame maximum (overrides preset)")
	gain := flag.Float64("gain", 1.0, "Magnitude gain before volume quantization (overrides preset)")
	analysisRate := flag.Int("analysis-rate", 0, "Resample to this rate before analysis; 0 keeps the file rate (overrides preset)")
	advanceOnWrite := flag.Bool("advance-on-write", false, "Count a tick for frames that write too (overrides preset)")
	previewPath := flag.String("preview", "", "Optional preview WAV rendered from the encoded stream")
	previewRate := flag.Int("preview-rate", 48000, "Preview sample rate in Hz")
	jsonOut := flag.Bool("json", false, "Print run statistics as JSON")
	flag.Parse()

	if *inputPath == "" {
		die("missing -input")
	}
	outFormat, err := outputFormat(*format, *outputPath)
	if err != nil {
		die("%v", err)
	}

	cfg := preset.NewDefaultConfig()
	if *presetPath != "" {
		cfg, err = preset.LoadJSON(*presetPath)
		if err != nil {
			die("failed to load preset: %v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tick-rate":
			cfg.SetTickRate(*tickRate)
		case "max-peaks":
			cfg.Encoder.MaxPeaks = *maxPeaks
		case "threshold":
			cfg.Spectrum.ThresholdRatio = *threshold
		case "gain":
			cfg.Spectrum.Gain = *gain
		case "analysis-rate":
			cfg.AnalysisSampleRate = *analysisRate
		case "advance-on-write":
			cfg.Encoder.AdvanceOnWrite = *advanceOnWrite
		}
	})

	start := time.Now()
	samples, sr, err := audioio.ReadWAVMono(*inputPath)
	if err != nil {
		die("failed to read input: %v", err)
	}
	samples, err = audioio.ResampleIfNeeded(samples, sr, cfg.AnalysisSampleRate)
	if err != nil {
		die("failed to resample input: %v", err)
	}
	if cfg.AnalysisSampleRate > 0 {
		sr = cfg.AnalysisSampleRate
	}
	fmt.Fprintf(os.Stderr, "Input: %d samples @ %d Hz (%.2fs)\n", len(samples), sr, float64(len(samples))/float64(sr))

	stream, stats, err := convert(samples, sr, cfg)
	if err != nil {
		die("conversion failed: %v", err)
	}
	data, err := serialize(stream, outFormat)
	if err != nil {
		die("serialization failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(*outputPath), 0o755); err != nil {
		die("failed to create output directory: %v", err)
	}
	if err := os.WriteFile(*outputPath, data, 0o644); err != nil {
		die("failed to write output: %v", err)
	}

	if *previewPath != "" {
		rp := render.DefaultParams()
		rp.SampleRate = *previewRate
		pcm, err := render.Render(stream, rp)
		if err != nil {
			die("preview failed: %v", err)
		}
		if err := audioio.WriteMonoWAV(*previewPath, pcm, rp.SampleRate); err != nil {
			die("failed to write preview: %v", err)
		}
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(newReport(stats, *outputPath, outFormat, len(data), time.Since(start))); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}

	fmt.Printf("Frames:          %d (%d idle)\n", stats.Frames, stats.IdleFrames)
	fmt.Printf("Write groups:    %d\n", stats.WriteGroups)
	fmt.Printf("Register writes: %d\n", stats.Writes)
	fmt.Printf("Delay events:    %d\n", stats.DelayEvents)
	fmt.Printf("Dropped ticks:   %d (trailing silence)\n", stats.DiscardedTicks)
	fmt.Printf("Channel writes: ")
	for _, n := range stats.ChannelWrites {
		fmt.Printf(" %d", n)
	}
	fmt.Println()
	fmt.Printf("Wrote %s (%s, %d bytes) in %.2fs\n", *outputPath, outFormat, len(data), time.Since(start).Seconds())
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
