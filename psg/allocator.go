package psg

import "errors"

// NumChannels is the number of PSG voices.
const NumChannels = 16

// ErrOutOfChannels is returned when a frame carries more peaks than there are
// channels to hold them.
var ErrOutOfChannels = errors.New("psg: out of channels")

// ChannelState is the committed register content of one voice. PeriodLo and
// PeriodHi are -1 until the first write so they never match a real byte.
type ChannelState struct {
	PeriodLo int
	PeriodHi int
	Volume   int
}

// Channels is the committed state of all voices.
type Channels [NumChannels]ChannelState

// NewChannels returns the power-on state: periods unknown, volume zero.
func NewChannels() Channels {
	var c Channels
	for i := range c {
		c[i] = ChannelState{PeriodLo: -1, PeriodHi: -1}
	}
	return c
}

// Assignment is the provisional result of allocating one frame: for every
// channel, whether a peak claimed it and which register values it wants.
type Assignment struct {
	Claimed [NumChannels]bool
	Pending [NumChannels]Quantized
}

type matchRule func(ch ChannelState, q Quantized) bool

var matchRules = []matchRule{
	// same note: no retrigger
	func(ch ChannelState, q Quantized) bool {
		return ch.PeriodLo == int(q.PeriodLo) && ch.PeriodHi == int(q.PeriodHi)
	},
	// same coarse pitch region
	func(ch ChannelState, q Quantized) bool {
		return ch.PeriodHi == int(q.PeriodHi)
	},
	func(ch ChannelState, q Quantized) bool {
		return ch.Volume == int(q.Volume)
	},
	// any free channel, lowest index first
	func(ChannelState, Quantized) bool {
		return true
	},
}

// Allocate assigns ranked peaks to channels against the committed state.
// Peaks are taken in order; each picks the first unclaimed channel that
// satisfies the earliest matching rule: exact period, same high period byte,
// same volume, then any. Committed state is read, never written. Unclaimed
// channels are left sounding as they were.
func Allocate(committed *Channels, peaks []Quantized) (Assignment, error) {
	var a Assignment
	if len(peaks) > NumChannels {
		return a, ErrOutOfChannels
	}
	for _, q := range peaks {
		idx := pickChannel(committed, &a.Claimed, q)
		if idx < 0 {
			return Assignment{}, ErrOutOfChannels
		}
		a.Claimed[idx] = true
		a.Pending[idx] = q
	}
	return a, nil
}

func pickChannel(committed *Channels, claimed *[NumChannels]bool, q Quantized) int {
	for _, rule := range matchRules {
		for i := range committed {
			if !claimed[i] && rule(committed[i], q) {
				return i
			}
		}
	}
	return -1
}
