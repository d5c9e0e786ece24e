package services

import (
	"fmt"

	"github.com/kerbaras/novels/pkg/data"
)

// Range is an inclusive 1-based chapter interval. End 0 means up to the last
// chapter of the work.
type Range struct {
	Start int
	End   int
}

// NewRange validates the user's range flags before any I/O happens. end and
// count are mutually exclusive; a count of n covers n chapters from start.
func NewRange(start, end, count int) (Range, error) {
	if end > 0 && count > 0 {
		return Range{}, data.NewError(data.KindConfig, "--end and --count cannot be used together", nil)
	}
	if count < 0 || end < 0 {
		return Range{}, data.NewError(data.KindConfig, "--end and --count must be positive", nil)
	}
	if start < 1 {
		start = 1
	}
	if count > 0 {
		end = start + count - 1
	}
	if end > 0 && end < start {
		return Range{}, data.NewError(data.KindConfig,
			fmt.Sprintf("start chapter %d is after end chapter %d", start, end), nil)
	}
	return Range{Start: start, End: end}, nil
}

// Clamp bounds the range to a work of total chapters.
func (r Range) Clamp(total int) (Range, error) {
	if r.Start < 1 {
		r.Start = 1
	}
	if r.End == 0 || r.End > total {
		r.End = total
	}
	if r.Start > r.End {
		return r, data.NewError(data.KindConfig,
			fmt.Sprintf("start chapter %d is beyond the last chapter %d", r.Start, r.End), nil)
	}
	return r, nil
}

func (r Range) Len() int {
	return r.End - r.Start + 1
}
