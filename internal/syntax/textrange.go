package syntax

import "fmt"

// TextRange is a half-open byte range [Start, End).
type TextRange struct {
	Start uint32
	End   uint32
}

// NewRange returns the range [start, end).
func NewRange(start, end uint32) TextRange {
	if end < start {
		panic(fmt.Sprintf("syntax: invalid range %d..%d", start, end))
	}
	return TextRange{Start: start, End: end}
}

// Len returns the length of the range in bytes.
func (r TextRange) Len() uint32 { return r.End - r.Start }

// IsEmpty reports whether the range covers no bytes.
func (r TextRange) IsEmpty() bool { return r.Start == r.End }

// Contains reports whether off lies inside the range, end exclusive.
func (r TextRange) Contains(off uint32) bool { return r.Start <= off && off < r.End }

// ContainsInclusive reports whether off lies inside the range, end inclusive.
func (r TextRange) ContainsInclusive(off uint32) bool { return r.Start <= off && off <= r.End }

// ContainsRange reports whether o lies entirely inside r.
func (r TextRange) ContainsRange(o TextRange) bool { return r.Start <= o.Start && o.End <= r.End }

func (r TextRange) String() string { return fmt.Sprintf("%d..%d", r.Start, r.End) }
