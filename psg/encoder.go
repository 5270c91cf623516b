// Package psg turns per-frame spectral peaks into a minimal stream of register
// writes for a sixteen-voice programmable sound generator.
package psg

import "fmt"

// Options controls an encoding run.
type Options struct {
	// MaxPeaks is how many ranked peaks per frame reach the allocator.
	// Anything above NumChannels makes ErrOutOfChannels possible.
	MaxPeaks int
	// TickRate is the declared frame rate in the stream header.
	TickRate int
	// AdvanceOnWrite counts a tick for frames that write, too, so each write
	// group carries the tick elapsed since the previous frame.
	AdvanceOnWrite bool
}

// DefaultOptions returns the reference configuration: 16 peaks at 60 ticks/s.
func DefaultOptions() Options {
	return Options{
		MaxPeaks: NumChannels,
		TickRate: 60,
	}
}

// Validate reports the first invalid field.
func (o Options) Validate() error {
	if o.MaxPeaks < 1 {
		return fmt.Errorf("max peaks must be >= 1, got %d", o.MaxPeaks)
	}
	if o.TickRate < 1 || o.TickRate > 0xFFFF {
		return fmt.Errorf("tick rate must be in 1..65535, got %d", o.TickRate)
	}
	return nil
}

// State is everything carried from one frame to the next.
type State struct {
	Channels Channels
	// Delay is the number of ticks not yet emitted as delay events.
	Delay int
}

// NewState returns the state before the first frame.
func NewState() State {
	return State{Channels: NewChannels()}
}

// Step encodes one frame of ranked, quantized peaks against st and returns
// the next state with the frame's events. Writes are generated per channel in
// index order as period low, period high, volume; period bytes are only
// written for peaks with non-zero volume. Each write commits its byte to the
// returned state immediately. A frame without writes only adds a tick to the
// delay; otherwise the pending delay is flushed ahead of the write group.
func Step(st State, frame int, peaks []Quantized, advanceOnWrite bool) (State, []Event, error) {
	a, err := Allocate(&st.Channels, peaks)
	if err != nil {
		return st, nil, fmt.Errorf("frame %d: %w", frame, err)
	}

	var writes []Write
	for i := 0; i < NumChannels; i++ {
		if !a.Claimed[i] {
			continue
		}
		q := a.Pending[i]
		ch := &st.Channels[i]
		if q.Volume != 0 && int(q.PeriodLo) != ch.PeriodLo {
			writes = append(writes, Write{Addr: Address(i, RegPeriodLo), Data: q.PeriodLo})
			ch.PeriodLo = int(q.PeriodLo)
		}
		if q.Volume != 0 && int(q.PeriodHi) != ch.PeriodHi {
			writes = append(writes, Write{Addr: Address(i, RegPeriodHi), Data: q.PeriodHi})
			ch.PeriodHi = int(q.PeriodHi)
		}
		if int(q.Volume) != ch.Volume {
			writes = append(writes, Write{Addr: Address(i, RegVolume), Data: q.Volume | VolumeMask})
			ch.Volume = int(q.Volume)
		}
	}

	if len(writes) == 0 {
		st.Delay++
		return st, nil, nil
	}
	if advanceOnWrite {
		st.Delay++
	}
	events := DelayEvents(st.Delay)
	st.Delay = 0
	events = append(events, Event{Kind: EventWriteGroup, Frame: frame, Writes: writes})
	return st, events, nil
}

// Stats summarizes an encoding run.
type Stats struct {
	Frames         int
	IdleFrames     int
	WriteGroups    int
	Writes         int
	DelayEvents    int
	DiscardedTicks int
	ChannelWrites  [NumChannels]int
}

// Encoder is the streaming form of Encode: feed frames in time order with
// Frame, then call Finish once.
type Encoder struct {
	opts     Options
	state    State
	frame    int
	stats    Stats
	finished bool
}

// NewEncoder returns an encoder in the power-on state.
func NewEncoder(opts Options) (*Encoder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{opts: opts, state: NewState()}, nil
}

// Header returns the stream header for this run.
func (e *Encoder) Header() Header {
	return NewHeader(e.opts.TickRate)
}

// State returns a copy of the carried state.
func (e *Encoder) State() State {
	return e.state
}

// Stats returns counters for the frames seen so far.
func (e *Encoder) Stats() Stats {
	return e.stats
}

// Frame ranks, quantizes and encodes the peaks of the next frame. On error
// the encoder state is left unchanged.
func (e *Encoder) Frame(peaks []Peak) ([]Event, error) {
	if e.finished {
		return nil, fmt.Errorf("frame %d: encoder already finished", e.frame)
	}
	ranked := QuantizeFrame(Rank(peaks, e.opts.MaxPeaks))
	next, events, err := Step(e.state, e.frame, ranked, e.opts.AdvanceOnWrite)
	if err != nil {
		return nil, err
	}
	e.state = next
	e.frame++
	e.stats.Frames++
	if len(events) == 0 {
		e.stats.IdleFrames++
	}
	for _, ev := range events {
		switch ev.Kind {
		case EventDelay:
			e.stats.DelayEvents++
		case EventWriteGroup:
			e.stats.WriteGroups++
			e.stats.Writes += len(ev.Writes)
			for _, w := range ev.Writes {
				e.stats.ChannelWrites[int(w.Addr)/4]++
			}
		}
	}
	return events, nil
}

// Finish returns the end-of-stream event. Ticks still pending are dropped.
func (e *Encoder) Finish() Event {
	if !e.finished {
		e.stats.DiscardedTicks = e.state.Delay
		e.finished = true
	}
	return Event{Kind: EventEnd}
}

// Encode converts a whole sequence of frames. Any error aborts the run and no
// stream is returned.
func Encode(frames [][]Peak, opts Options) (*Stream, Stats, error) {
	enc, err := NewEncoder(opts)
	if err != nil {
		return nil, Stats{}, err
	}
	s := &Stream{
		Header:   enc.Header(),
		Preamble: Preamble(),
	}
	if !opts.AdvanceOnWrite {
		s.WriteGroupTicks = 1
	}
	for _, peaks := range frames {
		events, err := enc.Frame(peaks)
		if err != nil {
			return nil, Stats{}, err
		}
		s.Events = append(s.Events, events...)
	}
	s.Events = append(s.Events, enc.Finish())
	return s, enc.Stats(), nil
}
