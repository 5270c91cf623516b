package main

import (
	"time"

	"github.com/cwbudde/algo-psg/psg"
)

type report struct {
	Output         string  `json:"output"`
	Format         string  `json:"format"`
	Bytes          int     `json:"bytes"`
	ElapsedSec     float64 `json:"elapsed_sec"`
	Frames         int     `json:"frames"`
	IdleFrames     int     `json:"idle_frames"`
	WriteGroups    int     `json:"write_groups"`
	Writes         int     `json:"writes"`
	DelayEvents    int     `json:"delay_events"`
	DiscardedTicks int     `json:"discarded_ticks"`
	ChannelWrites  []int   `json:"channel_writes"`
}

func newReport(stats psg.Stats, output string, format string, size int, elapsed time.Duration) report {
	return report{
		Output:         output,
		Format:         format,
		Bytes:          size,
		ElapsedSec:     elapsed.Seconds(),
		Frames:         stats.Frames,
		IdleFrames:     stats.IdleFrames,
		WriteGroups:    stats.WriteGroups,
		Writes:         stats.Writes,
		DelayEvents:    stats.DelayEvents,
		DiscardedTicks: stats.DiscardedTicks,
		ChannelWrites:  append([]int(nil), stats.ChannelWrites[:]...),
	}
}
