// Package enhancement evaluates eigenvalue measures over images and drives
// the multi-scale Hessian enhancement pipeline.
//
// The pipeline runs the following steps for every scale:
// 1. Hessian of Gaussian at the scale (scale normalized)
// 2. Eigen analysis using the order the measure expects
// 3. Optional parameter estimation from the eigenvalues
// 4. Measure evaluation, zero outside the mask
// 5. Running maximum of absolute values across scales
package enhancement

import (
	"errors"
	"fmt"

	"hessianenhance/pkg/measure"
	"hessianenhance/pkg/parallel"
	"hessianenhance/pkg/volume"
)

// ErrConfiguration is returned when a required collaborator is missing.
var ErrConfiguration = errors.New("configuration error")

// Stage applies a measure to every voxel of an eigenvalue image.
type Stage struct {
	// Measure maps eigenvalues to the response
	Measure measure.Measure

	// Mask optionally restricts evaluation; voxels outside get zero
	Mask volume.Mask

	runner *parallel.Runner
}

// NewStage creates a stage for m without a mask.
func NewStage(m measure.Measure, runner *parallel.Runner) *Stage {
	if runner == nil {
		runner = parallel.NewRunner(0)
	}
	return &Stage{Measure: m, runner: runner}
}

// Validate checks that the stage can run over region.
func (s *Stage) Validate(region volume.Region) error {
	if s == nil || s.Measure == nil {
		return fmt.Errorf("%w: measure stage not set", ErrConfiguration)
	}
	if s.Mask != nil {
		if err := volume.CheckMaskDomain(s.Mask, region); err != nil {
			return err
		}
	}
	return nil
}

// Apply evaluates the measure over the whole image.
func (s *Stage) Apply(img *volume.EigenImage, params measure.Parameters) (*volume.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: eigenvalue image not set", ErrConfiguration)
	}
	return s.ApplyRegion(img, img.Region, params)
}

// ApplyRegion evaluates the measure over region, which must lie in the image.
// The returned image covers exactly region.
func (s *Stage) ApplyRegion(img *volume.EigenImage, region volume.Region, params measure.Parameters) (*volume.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: eigenvalue image not set", ErrConfiguration)
	}
	if err := volume.CheckContains(img.Region, region, "eigenvalue image"); err != nil {
		return nil, err
	}
	if err := s.Validate(region); err != nil {
		return nil, err
	}

	out := volume.NewImageWithGeometry(img.Geometry.WithRegion(region))
	err := s.runner.ForEachRegion(region, func(_ int, sub volume.Region) error {
		idx := make([]int, sub.Dimension())
		var point []float64
		for o := 0; o < sub.NumberOfVoxels(); o++ {
			sub.IndexAt(o, idx)
			dst := region.Offset(idx)
			if s.Mask != nil {
				point = img.PhysicalPoint(idx, point)
				if !s.Mask.Inside(idx, point) {
					out.Data[dst] = 0
					continue
				}
			}
			out.Data[dst] = s.Measure.Evaluate(img.At(idx), params)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("measure evaluation failed: %w", err)
	}
	return out, nil
}
