package psg

import "sort"

// Rank returns up to k peaks ordered by descending magnitude. Equal magnitudes
// keep their input order. The input slice is not modified.
func Rank(peaks []Peak, k int) []Peak {
	if k <= 0 || len(peaks) == 0 {
		return nil
	}
	out := append([]Peak(nil), peaks...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Magnitude > out[j].Magnitude
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
