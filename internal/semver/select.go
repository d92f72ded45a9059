package semver

// HighestSatisfying returns the index of the highest version in candidates
// that satisfies r, and true. Returns (-1, false) if none satisfy — the
// "choose the highest version satisfying the range" rule used by
// install-time NAK selection (spec §4.H) through registry.HighestSatisfying.
func HighestSatisfying(candidates []Version, r *Range) (int, bool) {
	best := -1
	for i, v := range candidates {
		if !r.Satisfies(v) {
			continue
		}
		if best == -1 || v.Compare(candidates[best]) > 0 {
			best = i
		}
	}
	return best, best != -1
}
