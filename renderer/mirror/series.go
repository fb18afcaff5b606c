package mirror

import (
	"math/rand"

	"github.com/achilleasa/mirage/types"
	"github.com/go-gl/gl/v2.1/gl"
)

// A scrolling history of stacked values, one series per render worker.
type stackedSeries struct {
	series [][]float32
	colors []types.Vec3
}

func makeStackedSeries(numSeries, histCount int) *stackedSeries {
	s := &stackedSeries{
		series: make([][]float32, numSeries),
		colors: make([]types.Vec3, numSeries),
	}

	for sIndex := 0; sIndex < numSeries; sIndex++ {
		s.series[sIndex] = make([]float32, histCount)
		s.colors[sIndex] = types.Vec3{rand.Float32(), rand.Float32(), 1.0}
	}

	return s
}

// Clear series
func (s *stackedSeries) Clear() {
	for sIndex := range s.series {
		clear(s.series[sIndex])
	}
}

// Shift series values and append new value at the end.
func (s *stackedSeries) Append(seriesIndex int, val float32) {
	hist := s.series[seriesIndex]
	copy(hist, hist[1:])
	hist[len(hist)-1] = val
}

// Scale factor mapping the stacked values of column x to rHeight pixels.
func (s *stackedSeries) scale(x int, rHeight uint32) float32 {
	var sum float32
	for seriesIndex := range s.series {
		sum += s.series[seriesIndex][x]
	}
	if sum > 0 {
		return float32(rHeight) / sum
	}
	return 1
}

func (s *stackedSeries) Render(rY, rHeight uint32) {
	gl.LineWidth(1.0)
	gl.Begin(gl.LINES)
	for x := 0; x < len(s.series[0]); x++ {
		scale := s.scale(x, rHeight)

		y := float32(rY)
		for seriesIndex := range s.series {
			sH := s.series[seriesIndex][x] * scale
			gl.Color3fv(&s.colors[seriesIndex][0])
			gl.Vertex2f(float32(x), y)
			gl.Vertex2f(float32(x), y+sH)
			y += sH
		}
	}
	gl.End()
}
