// Package sample produces the fixed demo curves shown in every report.
package sample

import "math"

// FrameCount is the number of frames every curve spans.
const FrameCount = 70

// Curves holds one value per frame for each demo measurement.
type Curves struct {
	Frames    []float64
	UpperBody []float64
	Knee      []float64
	Hip       []float64
}

// Generate computes the demo curves. The output never varies.
func Generate() Curves {
	c := Curves{
		Frames:    make([]float64, FrameCount),
		UpperBody: make([]float64, FrameCount),
		Knee:      make([]float64, FrameCount),
		Hip:       make([]float64, FrameCount),
	}
	for i := 0; i < FrameCount; i++ {
		x := float64(i)
		c.Frames[i] = x
		c.UpperBody[i] = 500 + 30*math.Sin(x/8)
		c.Knee[i] = 200 + 30*math.Cos(x/10)
		c.Hip[i] = 450 + 20*math.Abs(math.Sin(x/18))
	}
	return c
}

// Offset returns a copy of values shifted by delta.
func Offset(values []float64, delta float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v + delta
	}
	return out
}
