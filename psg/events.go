package psg

import "fmt"

// Register offsets within a channel's four-byte block.
const (
	RegPeriodLo = 0
	RegPeriodHi = 1
	RegVolume   = 2
	RegWaveform = 3

	// VolumeMask is ORed into every volume write (both stereo outputs on).
	VolumeMask = 0xC0

	// PreambleWaveform is written to every waveform register before the first frame.
	PreambleWaveform = 0x80

	// MaxDelayTicks is the longest single delay event.
	MaxDelayTicks = 63
)

// Address returns the register address of reg for channel ch.
func Address(ch int, reg int) byte {
	return byte(4*ch + reg)
}

// Write is one register write.
type Write struct {
	Addr byte
	Data byte
}

// EventKind tags an Event.
type EventKind uint8

const (
	EventDelay EventKind = iota
	EventWriteGroup
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventDelay:
		return "delay"
	case EventWriteGroup:
		return "psg_write"
	case EventEnd:
		return "eod"
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// Event is one element of the output stream. Ticks is set for EventDelay;
// Frame and Writes for EventWriteGroup.
type Event struct {
	Kind   EventKind
	Ticks  int
	Frame  int
	Writes []Write
}

// Header describes the stream for the container serializer.
type Header struct {
	Version        uint8
	FMChannelMask  uint8
	PSGChannelMask uint16
	TickRate       int
}

// Stream is a complete encoded conversion: header, preamble writes issued
// before any frame, then the per-frame events ending with EventEnd.
type Stream struct {
	Header   Header
	Preamble []Write
	Events   []Event
	// WriteGroupTicks is the time each write group occupies that no delay
	// event accounts for: 1 when delays count idle frames only, 0 when every
	// frame's tick is already in the delays. Players add it after each group.
	WriteGroupTicks int
}

// NewHeader returns the header for a run at the given tick rate. Every PSG
// channel is touched by the preamble, so all sixteen mask bits are set.
func NewHeader(tickRate int) Header {
	return Header{
		Version:        1,
		PSGChannelMask: 1<<NumChannels - 1,
		TickRate:       tickRate,
	}
}

// Preamble returns the one-time writes that set every channel's waveform
// register before encoding starts.
func Preamble() []Write {
	out := make([]Write, NumChannels)
	for i := range out {
		out[i] = Write{Addr: Address(i, RegWaveform), Data: PreambleWaveform}
	}
	return out
}

// DelayEvents splits ticks into events of at most MaxDelayTicks. A final
// event carrying the remainder is always emitted, even when it is zero.
func DelayEvents(ticks int) []Event {
	out := make([]Event, 0, ticks/MaxDelayTicks+1)
	for ticks > MaxDelayTicks {
		out = append(out, Event{Kind: EventDelay, Ticks: MaxDelayTicks})
		ticks -= MaxDelayTicks
	}
	return append(out, Event{Kind: EventDelay, Ticks: ticks})
}
