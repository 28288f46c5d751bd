// Package estimation derives measure parameters from the statistics of an
// eigenvalue image instead of requiring them to be tuned by hand.
package estimation

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"hessianenhance/internal/logging"
	"hessianenhance/pkg/measure"
	"hessianenhance/pkg/parallel"
	"hessianenhance/pkg/volume"
)

// DefaultFrobeniusNormWeight scales the largest Frobenius norm into c.
const DefaultFrobeniusNormWeight = 0.5

// DescoteauxEstimator computes the Descoteaux parameters of an eigenvalue
// image: alpha = beta = 0.5 and c = FrobeniusNormWeight · max ||λ||.
//
// The image is scanned in parallel. Each region task keeps its own maximum,
// and the maxima are combined once every task has finished, so the result
// does not depend on how the image was partitioned.
type DescoteauxEstimator struct {
	// FrobeniusNormWeight multiplies the largest norm to give c
	FrobeniusNormWeight float64

	// Mask optionally restricts the scan. Voxels labelled BackgroundValue are
	// skipped. The mask must cover the eigenvalue image.
	Mask *volume.LabelImage

	// BackgroundValue is the mask label that excludes a voxel
	BackgroundValue uint32

	runner *parallel.Runner
	logger zerolog.Logger
}

// NewDescoteauxEstimator creates an estimator with the default weight and no mask.
func NewDescoteauxEstimator(runner *parallel.Runner, logger zerolog.Logger) *DescoteauxEstimator {
	if runner == nil {
		runner = parallel.NewRunner(0)
	}
	return &DescoteauxEstimator{
		FrobeniusNormWeight: DefaultFrobeniusNormWeight,
		runner:              runner,
		logger:              logging.Component(logger, "estimation"),
	}
}

// Validate reports ErrDomainMismatch when the mask does not cover region.
func (e *DescoteauxEstimator) Validate(region volume.Region) error {
	if e.Mask == nil {
		return nil
	}
	return volume.CheckContains(e.Mask.Region, region, "mask")
}

// Estimate scans img and returns the derived parameters.
func (e *DescoteauxEstimator) Estimate(img *volume.EigenImage) (measure.Parameters, error) {
	if img == nil {
		return measure.Parameters{}, fmt.Errorf("eigenvalue image not set")
	}
	if err := e.Validate(img.Region); err != nil {
		return measure.Parameters{}, err
	}

	maxNorm, err := e.maximumFrobeniusNorm(img)
	if err != nil {
		return measure.Parameters{}, fmt.Errorf("failed to scan eigenvalues: %w", err)
	}

	params := measure.Parameters{
		Alpha: 0.5,
		Beta:  0.5,
		C:     e.FrobeniusNormWeight * maxNorm,
	}
	e.logger.Debug().
		Float64("maxFrobeniusNorm", maxNorm).
		Float64("alpha", params.Alpha).
		Float64("beta", params.Beta).
		Float64("c", params.C).
		Msg("parameters estimated")
	return params, nil
}

// maximumFrobeniusNorm returns the largest norm over included voxels, or zero
// when no voxel was included.
func (e *DescoteauxEstimator) maximumFrobeniusNorm(img *volume.EigenImage) (float64, error) {
	region := img.Region
	tasks := len(e.runner.Split(region))
	if tasks == 0 {
		return 0, nil
	}

	// One slot per task. A slot is only written by its own task and only read
	// after ForEachRegion has returned.
	local := make([]float64, tasks)
	for i := range local {
		local[i] = -math.MaxFloat64
	}

	err := e.runner.ForEachRegion(region, func(task int, sub volume.Region) error {
		best := -math.MaxFloat64
		idx := make([]int, sub.Dimension())
		for o := 0; o < sub.NumberOfVoxels(); o++ {
			sub.IndexAt(o, idx)
			if e.Mask != nil && e.Mask.At(idx) == e.BackgroundValue {
				continue
			}
			norm := measure.FrobeniusNorm(img.Pixel(region.Offset(idx)))
			if math.IsNaN(norm) {
				continue
			}
			if norm > best {
				best = norm
			}
		}
		local[task] = best
		return nil
	})
	if err != nil {
		return 0, err
	}

	global := floats.Max(local)
	if global == -math.MaxFloat64 {
		return 0, nil
	}
	return global, nil
}

// Fixed returns the same parameters for every image.
type Fixed measure.Parameters

// Estimate implements the orchestrator's estimator contract.
func (f Fixed) Estimate(*volume.EigenImage) (measure.Parameters, error) {
	return measure.Parameters(f), nil
}
