package geo

import (
	"math"
	"testing"
)

func TestHeadingHistory(t *testing.T) {
	tests := []struct {
		name       string
		windowSize int
		headings   []float64
		want       []float64 // smoothed value after EACH push
	}{
		{
			name:       "Constant",
			windowSize: 5,
			headings:   []float64{90, 90, 90},
			want:       []float64{90, 90, 90},
		},
		{
			name:       "WrapsThroughNorth",
			windowSize: 5,
			headings:   []float64{350, 10},
			want:       []float64{350, 0},
		},
		{
			name:       "WindowDropsOldest",
			windowSize: 2,
			headings:   []float64{0, 90, 90},
			want:       []float64{0, 45, 90},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeadingHistory(tt.windowSize)
			for i, heading := range tt.headings {
				got := h.Push(heading)
				if angleDiff(got, tt.want[i]) > 1e-6 {
					t.Errorf("push %d: got %v, want %v", i, got, tt.want[i])
				}
			}
			if h.Len() > tt.windowSize {
				t.Errorf("Len() = %d exceeds window %d", h.Len(), tt.windowSize)
			}
			h.Reset()
			if h.Len() != 0 {
				t.Errorf("Len() after Reset = %d", h.Len())
			}
		})
	}
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}
