package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Window is a half-open height range [Start, End) processed as one unit of work.
type Window struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// String returns the window in "start-end" format.
func (w Window) String() string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}

// Size returns the number of heights in the window.
func (w Window) Size() uint64 {
	if w.End <= w.Start {
		return 0
	}
	return w.End - w.Start
}

// Empty reports whether the window holds no heights.
func (w Window) Empty() bool {
	return w.End <= w.Start
}

// ParseWindow parses the "start-end" form produced by String.
func ParseWindow(s string) (Window, error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return Window{}, fmt.Errorf("invalid window format: %s", s)
	}
	start, err := strconv.ParseUint(from, 10, 64)
	if err != nil {
		return Window{}, fmt.Errorf("invalid window start %q: %w", from, err)
	}
	end, err := strconv.ParseUint(to, 10, 64)
	if err != nil {
		return Window{}, fmt.Errorf("invalid window end %q: %w", to, err)
	}
	if start > end {
		return Window{}, fmt.Errorf("start > end: %d > %d", start, end)
	}
	return Window{Start: start, End: end}, nil
}
