package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-psg/internal/audioio"
	"github.com/cwbudde/algo-psg/render"
	"github.com/cwbudde/algo-psg/zsm"
)

func main() {
	inputPath := flag.String("input", "", "Input ZSM file")
	output := flag.String("output", "preview.wav", "Output WAV file path")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	tail := flag.Int("tail-ticks", 60, "Ticks rendered after the end marker")
	gain := flag.Float64("gain", 0.25, "Master gain")
	flag.Parse()

	if *inputPath == "" {
		die("missing -input")
	}
	f, err := os.Open(*inputPath)
	if err != nil {
		die("failed to open input: %v", err)
	}
	stream, err := zsm.ReadBinary(f)
	f.Close()
	if err != nil {
		die("failed to parse %s: %v", *inputPath, err)
	}

	p := render.DefaultParams()
	p.SampleRate = *sampleRate
	p.TailTicks = *tail
	p.MasterGain = float32(*gain)

	fmt.Printf("Rendering %s (%d events, %d ticks/s) at %d Hz...\n", *inputPath, len(stream.Events), stream.Header.TickRate, p.SampleRate)
	pcm, err := render.Render(stream, p)
	if err != nil {
		die("render failed: %v", err)
	}
	if err := audioio.WriteMonoWAV(*output, pcm, p.SampleRate); err != nil {
		die("failed to write %s: %v", *output, err)
	}
	fmt.Printf("Wrote %s (%.2fs)\n", *output, float64(len(pcm))/float64(p.SampleRate))
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
