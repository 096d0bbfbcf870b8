package score

// Completeness weights. The total caps at 110 with the synopsis length bonus.
const (
	coverPoints    = 20
	castPoints     = 15
	directorPoints = 10
	synopsisPoints = 25
	playURLPoints  = 30
	bonusCap       = 10

	minCoverLen    = 10
	minSynopsisLen = 20
)

// Record is the field view the scorer needs. Both merge candidates and stored
// canonical rows satisfy it.
type Record struct {
	Cover      string
	Cast       []string
	Directors  []string
	Synopsis   string
	PlayRoutes map[string]string
}

// Score computes the deterministic completeness score for a record.
// Recomputed on every merge and after every validator pass; routes already
// removed by the validator no longer count toward the playback signal.
func Score(r Record) int {
	s := 0

	if len(r.Cover) > minCoverLen {
		s += coverPoints
	}
	if len(r.Cast) > 0 {
		s += castPoints
	}
	if len(r.Directors) > 0 {
		s += directorPoints
	}
	if len(r.Synopsis) > minSynopsisLen {
		s += synopsisPoints
	}
	if len(r.PlayRoutes) > 0 {
		s += playURLPoints
	}

	bonus := len(r.Synopsis) / 50
	if bonus > bonusCap {
		bonus = bonusCap
	}
	s += bonus

	return s
}

// PreferIncoming decides a scalar field conflict between two sources: higher
// source weight wins; on equal weight the longer non-empty value wins; still
// tied keeps the current value so repeated merges never thrash.
func PreferIncoming(incomingWeight, currentWeight int, incoming, current string) bool {
	if incoming == "" {
		return false
	}
	if current == "" {
		return true
	}
	if incomingWeight != currentWeight {
		return incomingWeight > currentWeight
	}
	return len(incoming) > len(current)
}
