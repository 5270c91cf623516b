package zsm

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cwbudde/algo-psg/psg"
)

// Container layout constants.
const (
	HeaderSize = 16

	cmdPSGMax   = 0x3F // 0x00..0x3F: PSG register write, data byte follows
	cmdExt      = 0x40 // extension block, length in the next byte's low 6 bits
	cmdFMMax    = 0x7F // 0x41..0x7F: n FM register/value pairs follow
	cmdEOD      = 0x80
	maxDelayCmd = 0x7F
)

var magic = [2]byte{'z', 'm'}

// ErrBadMagic is returned when the input does not start with a ZSM header.
var ErrBadMagic = errors.New("zsm: bad magic")

// WriteBinary writes the stream as a ZSM container. The preamble is written
// as plain register writes at the start of the data section. Each write group
// is followed by a delay of the stream's WriteGroupTicks, so groups keep their
// own tick. Zero-tick delays have no encoding and are dropped.
func WriteBinary(w io.Writer, s *psg.Stream) error {
	if s == nil {
		return fmt.Errorf("nil stream")
	}
	if s.Header.TickRate < 0 || s.Header.TickRate > 0xFFFF {
		return fmt.Errorf("tick rate %d does not fit the header", s.Header.TickRate)
	}
	bw := bufio.NewWriter(w)

	var hdr [HeaderSize]byte
	copy(hdr[0:2], magic[:])
	hdr[2] = s.Header.Version
	// 3..5 loop point and 6..8 PCM offset stay zero: no loop, no PCM.
	hdr[9] = s.Header.FMChannelMask
	binary.LittleEndian.PutUint16(hdr[10:12], s.Header.PSGChannelMask)
	binary.LittleEndian.PutUint16(hdr[12:14], uint16(s.Header.TickRate))
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}

	writeRegs := func(writes []psg.Write) error {
		for _, r := range writes {
			if r.Addr > cmdPSGMax {
				return fmt.Errorf("psg address 0x%02x out of range", r.Addr)
			}
			bw.WriteByte(r.Addr)
			bw.WriteByte(r.Data)
		}
		return nil
	}
	if err := writeRegs(s.Preamble); err != nil {
		return err
	}
	for _, ev := range s.Events {
		switch ev.Kind {
		case psg.EventDelay:
			writeDelay(bw, ev.Ticks)
		case psg.EventWriteGroup:
			if err := writeRegs(ev.Writes); err != nil {
				return fmt.Errorf("frame %d: %w", ev.Frame, err)
			}
			writeDelay(bw, s.WriteGroupTicks)
		case psg.EventEnd:
			bw.WriteByte(cmdEOD)
		default:
			return fmt.Errorf("unknown event kind %v", ev.Kind)
		}
	}
	return bw.Flush()
}

func writeDelay(bw *bufio.Writer, ticks int) {
	for ticks > 0 {
		n := ticks
		if n > maxDelayCmd {
			n = maxDelayCmd
		}
		bw.WriteByte(cmdEOD | byte(n))
		ticks -= n
	}
}

// ReadBinary parses a ZSM container into a stream. Runs of PSG writes become
// write groups numbered in order; FM writes and extension blocks are skipped.
// Every register write is returned as an event, so Preamble is left empty.
func ReadBinary(r io.Reader) (*psg.Stream, error) {
	br := bufio.NewReader(r)
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if hdr[0] != magic[0] || hdr[1] != magic[1] {
		return nil, ErrBadMagic
	}
	s := &psg.Stream{
		Header: psg.Header{
			Version:        hdr[2],
			FMChannelMask:  hdr[9],
			PSGChannelMask: binary.LittleEndian.Uint16(hdr[10:12]),
			TickRate:       int(binary.LittleEndian.Uint16(hdr[12:14])),
		},
	}

	var group []psg.Write
	frame := 0
	flush := func() {
		if len(group) == 0 {
			return
		}
		s.Events = append(s.Events, psg.Event{Kind: psg.EventWriteGroup, Frame: frame, Writes: group})
		group = nil
		frame++
	}

	for {
		cmd, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("read data: %w", unexpected(err))
		}
		switch {
		case cmd <= cmdPSGMax:
			data, err := br.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("read psg write: %w", unexpected(err))
			}
			group = append(group, psg.Write{Addr: cmd, Data: data})
		case cmd == cmdExt:
			b, err := br.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("read extension: %w", unexpected(err))
			}
			if _, err := br.Discard(int(b & 0x3F)); err != nil {
				return nil, fmt.Errorf("skip extension: %w", unexpected(err))
			}
		case cmd <= cmdFMMax:
			if _, err := br.Discard(2 * int(cmd&0x3F)); err != nil {
				return nil, fmt.Errorf("skip fm writes: %w", unexpected(err))
			}
		case cmd == cmdEOD:
			flush()
			s.Events = append(s.Events, psg.Event{Kind: psg.EventEnd})
			return s, nil
		default:
			flush()
			s.Events = append(s.Events, psg.Event{Kind: psg.EventDelay, Ticks: int(cmd & maxDelayCmd)})
		}
	}
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
