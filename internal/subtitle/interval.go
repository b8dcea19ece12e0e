package subtitle

import (
	"errors"
	"fmt"
)

// Static errors for interval splitting.
var (
	// ErrInvalidPartCount is returned when fewer than one part is requested.
	ErrInvalidPartCount = errors.New("subtitle: part count must be at least 1")
	// ErrInvalidInterval is returned when end is before start.
	ErrInvalidInterval = errors.New("subtitle: interval end before start")
)

// SplitInterval partitions [start, end] into n contiguous spans whose
// lengths differ by at most one. The first (end-start) mod n spans are the
// longer ones. The last span always ends exactly at end.
//
//	SplitInterval(0, 10, 3) => [0,4] [4,7] [7,10]
func SplitInterval(start, end int64, n int) ([]Span, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPartCount, n)
	}
	if end < start {
		return nil, fmt.Errorf("%w: start=%d end=%d", ErrInvalidInterval, start, end)
	}

	total := end - start
	base := total / int64(n)
	rem := total % int64(n)

	spans := make([]Span, n)
	cur := start
	for i := 0; i < n; i++ {
		length := base
		if int64(i) < rem {
			length++
		}
		spans[i] = Span{Start: cur, End: cur + length}
		cur += length
	}
	spans[n-1].End = end

	return spans, nil
}
