// Package signature recognizes fixed-layout structures in raw byte windows.
// A Signature is a pure predicate: population counts of byte values over
// sub-ranges of a window, plus point predicates that individual bytes lie in
// a range. Matching does no I/O and is deterministic, so discovery results
// are reproducible for identical input.
package signature

// CountPredicate requires that the number of bytes within
// [Offset, Offset+Length) whose value is in Values lies in [Min, Max].
type CountPredicate struct {
	Name   string // metric name reported on candidates
	Offset int    // window-relative start of the counted span
	Length int    // span length in bytes
	Values []byte // byte values that count as a hit
	Min    int    // inclusive lower bound on the count
	Max    int    // inclusive upper bound; <= 0 means unbounded
}

// RangePredicate requires the byte at window-relative Offset to lie in
// [Lo, Hi]. These are the cheap secondary checks used both during discovery
// and for re-validation of an already-known base.
type RangePredicate struct {
	Name   string
	Offset int
	Lo, Hi byte
}

// Signature describes the fingerprint of a structure within a byte window.
// Signatures hold no state and are safe to share.
type Signature struct {
	// WindowSize is the number of bytes a match must span. Windows are
	// evaluated whole; a partial window at the end of the data never
	// matches.
	WindowSize int

	// Stride is the step between window positions. The target structure is
	// known to be coarsely aligned, so strides larger than 1 trade
	// completeness for scan speed.
	Stride int

	// Counts are the primary predicates, evaluated first.
	Counts []CountPredicate

	// Ranges are the secondary predicates, evaluated only when every count
	// predicate passed.
	Ranges []RangePredicate
}

// Candidate is a window position satisfying a Signature, with the observed
// per-predicate metrics.
type Candidate struct {
	Offset  int
	Metrics map[string]int
}

// Match slides sig across data and returns every matching window position in
// ascending order. Prefer MatchN when only the first few hits matter.
func Match(data []byte, sig Signature) []Candidate {
	return MatchN(data, sig, 0)
}

// MatchFirst returns the lowest matching offset, or ok=false when data
// contains no match.
func MatchFirst(data []byte, sig Signature) (Candidate, bool) {
	found := MatchN(data, sig, 1)
	if len(found) == 0 {
		return Candidate{}, false
	}
	return found[0], true
}

// MatchN is Match capped at max candidates; max <= 0 means unbounded. The
// cap bounds scan cost: callers stop paying as soon as they have the hits
// they need.
func MatchN(data []byte, sig Signature, max int) []Candidate {
	stride := sig.Stride
	if stride <= 0 {
		stride = 1
	}
	if sig.WindowSize <= 0 || len(data) < sig.WindowSize {
		return nil
	}

	var found []Candidate
	for offset := 0; offset+sig.WindowSize <= len(data); offset += stride {
		window := data[offset : offset+sig.WindowSize]

		metrics, ok := evalCounts(window, sig.Counts)
		if !ok {
			continue
		}
		if !evalRanges(window, sig.Ranges, metrics) {
			continue
		}

		found = append(found, Candidate{Offset: offset, Metrics: metrics})
		if max > 0 && len(found) >= max {
			break
		}
	}
	return found
}

// CheckRanges evaluates only the secondary predicates against a window. This
// is the relaxed subset used to cheaply re-validate a known base without
// re-running the population scan.
func CheckRanges(window []byte, sig Signature) bool {
	if len(window) < sig.WindowSize {
		return false
	}
	return evalRanges(window, sig.Ranges, nil)
}

func evalCounts(window []byte, preds []CountPredicate) (map[string]int, bool) {
	metrics := make(map[string]int, len(preds))
	for _, p := range preds {
		if p.Offset < 0 || p.Offset+p.Length > len(window) {
			return nil, false
		}
		count := 0
		span := window[p.Offset : p.Offset+p.Length]
		for _, b := range span {
			for _, v := range p.Values {
				if b == v {
					count++
					break
				}
			}
		}
		metrics[p.Name] = count
		if count < p.Min {
			return nil, false
		}
		if p.Max > 0 && count > p.Max {
			return nil, false
		}
	}
	return metrics, true
}

func evalRanges(window []byte, preds []RangePredicate, metrics map[string]int) bool {
	for _, p := range preds {
		if p.Offset < 0 || p.Offset >= len(window) {
			return false
		}
		b := window[p.Offset]
		if b < p.Lo || b > p.Hi {
			return false
		}
		if metrics != nil {
			metrics[p.Name] = int(b)
		}
	}
	return true
}
