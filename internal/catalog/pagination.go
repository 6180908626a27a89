package catalog

import "math"

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// NewPage coerces the page number to at least 1 and the size into [1, max].
// A non-positive size falls back to def. Page numbers so large that the offset
// would overflow are capped; they address an empty window either way.
func NewPage(number, size, def, max int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = def
	}
	if size < 1 {
		size = 1
	}
	if max > 0 && size > max {
		size = max
	}
	if number-1 > math.MaxInt/size {
		number = math.MaxInt / size
	}
	return Page{Number: number, Size: size}
}

// Offset is (Number-1)*Size, saturating at the largest multiple of Size that
// fits in an int.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Size <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return (math.MaxInt / p.Size) * p.Size
	}
	return (p.Number - 1) * p.Size
}

// Bounds returns the slice window [start, end) of this page over n records,
// with 0 <= start <= end <= n. Pages past the end yield an empty window.
func (p Page) Bounds(n int) (int, int) {
	start := p.Offset()
	if start > n {
		start = n
	}
	end := n
	if p.Size > 0 && p.Size < n-start {
		end = start + p.Size
	}
	return start, end
}

// TotalPages is ceil(total / size).
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(size)))
}
