package room

// EvaluateConsensus reports whether a revealed round may advance. A round
// advances only when every non-host participant has voted and all of their
// values are identical. A room with zero non-host participants never
// reaches consensus; the round cannot auto-advance with nobody voting.
func EvaluateConsensus(votes []int, nonHostCount int) bool {
	if nonHostCount == 0 {
		return false
	}
	if len(votes) != nonHostCount {
		return false
	}
	first := votes[0]
	for _, v := range votes[1:] {
		if v != first {
			return false
		}
	}
	return true
}
