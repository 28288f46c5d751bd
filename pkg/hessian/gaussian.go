// Package hessian provides reference implementations of the two operators the
// enhancement pipeline consumes: a scale-normalized Hessian of Gaussian and a
// per-voxel symmetric eigen analysis.
//
// The Hessian is computed in the frequency domain. The image is transformed
// once, and every second-order derivative is obtained by multiplying the
// spectrum with the Fourier transform of the matching Gaussian derivative
// and transforming back. Boundaries are periodic.
package hessian

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"hessianenhance/internal/logging"
	"hessianenhance/pkg/parallel"
	"hessianenhance/pkg/volume"
)

// ErrInvalidArgument is returned for a non-positive scale or an empty image.
var ErrInvalidArgument = errors.New("invalid argument")

// GaussianOperator computes the Hessian of an image smoothed by a Gaussian of
// standard deviation sigma, in physical units.
type GaussianOperator struct {
	// NormalizeAcrossScale multiplies the derivatives by sigma² so that
	// responses at different scales can be compared.
	NormalizeAcrossScale bool

	runner *parallel.Runner
	logger zerolog.Logger
}

// NewGaussianOperator returns an operator with scale normalization enabled.
func NewGaussianOperator(runner *parallel.Runner, logger zerolog.Logger) *GaussianOperator {
	if runner == nil {
		runner = parallel.NewRunner(0)
	}
	return &GaussianOperator{
		NormalizeAcrossScale: true,
		runner:               runner,
		logger:               logging.Component(logger, "hessian"),
	}
}

// axisFilter holds the per-frequency terms of one axis.
type axisFilter struct {
	omega   []float64
	gauss   []float64
	nyquist int
}

func newAxisFilter(size int, spacing, sigma float64) axisFilter {
	f := axisFilter{
		omega:   make([]float64, size),
		gauss:   make([]float64, size),
		nyquist: -1,
	}
	if size%2 == 0 {
		f.nyquist = size / 2
	}
	for k := 0; k < size; k++ {
		kk := k
		if k > size/2 {
			kk = k - size
		}
		w := 2 * math.Pi * float64(kk) / (float64(size) * spacing)
		f.omega[k] = w
		f.gauss[k] = math.Exp(-0.5 * sigma * sigma * w * w)
	}
	return f
}

// response returns the transform of the Gaussian derivative of the given
// order at frequency bin k.
func (f axisFilter) response(k, order int) complex128 {
	g := f.gauss[k]
	w := f.omega[k]
	switch order {
	case 0:
		return complex(g, 0)
	case 1:
		if k == f.nyquist {
			return 0
		}
		return complex(0, w*g)
	default:
		return complex(-w*w*g, 0)
	}
}

// Compute returns the Hessian of img at scale sigma.
func (g *GaussianOperator) Compute(img *volume.Image, sigma float64) (*volume.TensorImage, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: input image not set", ErrInvalidArgument)
	}
	if !(sigma > 0) {
		return nil, fmt.Errorf("%w: sigma must be positive, got %g", ErrInvalidArgument, sigma)
	}
	region := img.Region
	n := region.NumberOfVoxels()
	if n == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidArgument)
	}
	d := region.Dimension()
	sizes := region.Size

	filters := make([]axisFilter, d)
	for a := 0; a < d; a++ {
		filters[a] = newAxisFilter(sizes[a], img.Spacing[a], sigma)
	}

	spectrum := make([]complex128, n)
	for i, v := range img.Data {
		spectrum[i] = complex(v, 0)
	}
	if err := fftN(g.runner, spectrum, sizes, false); err != nil {
		return nil, err
	}

	scale := 1 / float64(n)
	if g.NormalizeAcrossScale {
		scale *= sigma * sigma
	}

	out := volume.NewTensorImageWithGeometry(img.Geometry)
	components := volume.TriangleSize(d)
	work := make([]complex128, n)
	orders := make([]int, d)

	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			for a := range orders {
				orders[a] = 0
			}
			orders[i]++
			orders[j]++

			err := g.runner.ParallelFor(n, func(start, end int) error {
				for o := start; o < end; o++ {
					factor := complex(1, 0)
					rest := o
					for a := 0; a < d; a++ {
						k := rest % sizes[a]
						rest /= sizes[a]
						factor *= filters[a].response(k, orders[a])
					}
					work[o] = spectrum[o] * factor
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			if err := fftN(g.runner, work, sizes, true); err != nil {
				return nil, err
			}

			c := volume.ComponentIndex(d, i, j)
			for o := 0; o < n; o++ {
				out.Data[o*components+c] = real(work[o]) * scale
			}
		}
	}

	g.logger.Debug().Float64("sigma", sigma).Int("voxels", n).Msg("hessian computed")
	return out, nil
}
