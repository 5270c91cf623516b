// Package zsm serializes PSG event streams as ZSM music files, either as the
// annotated YAML description or as the binary container.
package zsm

import (
	"bufio"
	"fmt"
	"io"

	"github.com/cwbudde/algo-psg/psg"
)

// WriteYAML writes the stream as a YAML document: header keys, the preamble
// write group, then one item per delay, write group and the final eod.
func WriteYAML(w io.Writer, s *psg.Stream) error {
	if s == nil {
		return fmt.Errorf("nil stream")
	}
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "zsm:\n")
	fmt.Fprintf(bw, "  version: 0x%02x\n", s.Header.Version)
	fmt.Fprintf(bw, "  fm_channel_mask: %s  # channel 0 is the rightmost bit\n", groupedBinary(uint64(s.Header.FMChannelMask), 8))
	fmt.Fprintf(bw, "  psg_channel_mask: %s # channel 0 is the rightmost bit\n", groupedBinary(uint64(s.Header.PSGChannelMask), 16))
	fmt.Fprintf(bw, "  tick_rate: %d # ticks per second\n", s.Header.TickRate)
	fmt.Fprintf(bw, "  reserved_header: 0x0000\n")
	fmt.Fprintf(bw, "  data:\n")

	if len(s.Preamble) > 0 {
		fmt.Fprintf(bw, "  - psg_write: # Preamble\n")
		writeYAMLWrites(bw, s.Preamble)
	}
	for _, ev := range s.Events {
		switch ev.Kind {
		case psg.EventDelay:
			fmt.Fprintf(bw, "  - delay: 0x%02x\n", ev.Ticks)
		case psg.EventWriteGroup:
			fmt.Fprintf(bw, "  - psg_write: # Frame %d\n", ev.Frame)
			writeYAMLWrites(bw, ev.Writes)
		case psg.EventEnd:
			fmt.Fprintf(bw, "  - eod\n")
		default:
			return fmt.Errorf("unknown event kind %v", ev.Kind)
		}
	}
	return bw.Flush()
}

func writeYAMLWrites(bw *bufio.Writer, writes []psg.Write) {
	for _, w := range writes {
		fmt.Fprintf(bw, "    - addr: 0x%02x\n", w.Addr)
		fmt.Fprintf(bw, "      data: 0x%02x\n", w.Data)
	}
}

// groupedBinary formats v as 0b_xxxx_xxxx with the given number of bits.
func groupedBinary(v uint64, bits int) string {
	out := []byte("0b")
	for i := bits - 1; i >= 0; i-- {
		if (i+1)%4 == 0 {
			out = append(out, '_')
		}
		out = append(out, '0'+byte(v>>uint(i)&1))
	}
	return string(out)
}
