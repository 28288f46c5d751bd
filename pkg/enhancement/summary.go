package enhancement

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"hessianenhance/pkg/volume"
)

// Summary describes the distribution of a response image.
type Summary struct {
	// Voxels is the number of voxels considered
	Voxels int

	// Min, Max, Mean, StdDev and Median describe the considered values
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Median float64

	// Positive is the fraction of considered voxels with a response above zero
	Positive float64
}

// Summarize computes response statistics over the voxels inside mask, or the
// whole image when mask is nil.
func Summarize(img *volume.Image, mask volume.Mask) Summary {
	values := make([]float64, 0, len(img.Data))
	idx := make([]int, img.Region.Dimension())
	var point []float64
	for o, v := range img.Data {
		if mask != nil {
			img.Region.IndexAt(o, idx)
			point = img.PhysicalPoint(idx, point)
			if !mask.Inside(idx, point) {
				continue
			}
		}
		values = append(values, v)
	}

	s := Summary{Voxels: len(values)}
	if len(values) == 0 {
		return s
	}

	positive := 0
	for _, v := range values {
		if v > 0 {
			positive++
		}
	}
	s.Positive = float64(positive) / float64(len(values))
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		s.StdDev = 0
	}

	sort.Float64s(values)
	s.Median = stat.Quantile(0.5, stat.Empirical, values, nil)
	return s
}
