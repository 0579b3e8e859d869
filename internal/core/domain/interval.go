package domain

import "time"

// TimeRange is a half-open interval [Lower, Upper) over UTC instants.
// A nil Upper means unbounded ("open-ended").
type TimeRange struct {
	Lower time.Time
	Upper *time.Time
}

// Empty reports whether the range contains no instants.
func (r TimeRange) Empty() bool {
	if r.Upper == nil {
		return false
	}
	return !r.Lower.Before(*r.Upper)
}

// Contains reports whether t falls within [Lower, Upper).
func (r TimeRange) Contains(t time.Time) bool {
	if t.Before(r.Lower) {
		return false
	}
	if r.Upper == nil {
		return true
	}
	return t.Before(*r.Upper)
}

// Bounded reports whether the range has a finite upper bound.
func (r TimeRange) Bounded() bool { return r.Upper != nil }

// Bound returns a copy of r with Upper set to t.
func (r TimeRange) Bound(t time.Time) TimeRange {
	r.Upper = &t
	return r
}

// Int64Range is a half-open interval [Lower, Upper) expressed in
// milliseconds, used for recording segments.
type Int64Range struct {
	Lower int64 `json:"lower"`
	Upper int64 `json:"upper"`
}
