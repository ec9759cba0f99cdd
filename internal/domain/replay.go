package domain

import "time"

// ReplayRange bounds a replay to the half-open instant range [From, To).
// A zero bound is unbounded on that side.
type ReplayRange struct {
	From time.Time
	To   time.Time
}

// ReplayAll returns an unbounded range.
func ReplayAll() ReplayRange {
	return ReplayRange{}
}

// ReplayFrom returns a range bounded below by from.
func ReplayFrom(from time.Time) ReplayRange {
	return ReplayRange{From: from}
}

// ReplayBetween returns the half-open range [from, to).
func ReplayBetween(from, to time.Time) ReplayRange {
	return ReplayRange{From: from, To: to}
}

// Contains reports whether ts falls inside the range.
func (r ReplayRange) Contains(ts time.Time) bool {
	if !r.From.IsZero() && ts.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !ts.Before(r.To) {
		return false
	}
	return true
}
