package geo

import "sync"

// HeadingHistory keeps a rolling window of headings and smooths new ones with
// the circular mean of the window.
type HeadingHistory struct {
	mu         sync.Mutex
	samples    []float64
	windowSize int
}

// NewHeadingHistory creates a history holding at most windowSize headings.
func NewHeadingHistory(windowSize int) *HeadingHistory {
	if windowSize < 1 {
		windowSize = 1
	}
	return &HeadingHistory{
		windowSize: windowSize,
	}
}

// Push appends a heading, dropping the oldest beyond the window, and returns
// the circular mean of the retained headings.
func (h *HeadingHistory) Push(heading float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples = append(h.samples, heading)
	if len(h.samples) > h.windowSize {
		h.samples = h.samples[len(h.samples)-h.windowSize:]
	}
	return CircularMean(h.samples)
}

// Len returns the number of retained headings.
func (h *HeadingHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.samples)
}

// Reset clears the history.
func (h *HeadingHistory) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = nil
}
