package tournamentdomain

// Stats holds numeric per-team counters reported by a match execution.
type Stats map[string]float64

// MergeStats sums incoming into a copy of existing. Keys missing on either
// side count as zero.
func MergeStats(existing, incoming Stats) Stats {
	out := make(Stats, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] += v
	}
	return out
}
