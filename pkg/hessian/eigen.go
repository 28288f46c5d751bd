package hessian

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"hessianenhance/pkg/measure"
	"hessianenhance/pkg/parallel"
	"hessianenhance/pkg/volume"
)

// EigenAnalyzer computes the eigenvalues of a symmetric tensor image.
type EigenAnalyzer struct {
	runner *parallel.Runner
}

// NewEigenAnalyzer returns an analyzer running on runner.
func NewEigenAnalyzer(runner *parallel.Runner) *EigenAnalyzer {
	if runner == nil {
		runner = parallel.NewRunner(0)
	}
	return &EigenAnalyzer{runner: runner}
}

// Decompose returns one eigenvalue tuple per voxel ordered as requested.
func (e *EigenAnalyzer) Decompose(t *volume.TensorImage, order measure.EigenValueOrder) (*volume.EigenImage, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: tensor image not set", ErrInvalidArgument)
	}
	d := t.Dimension
	out := volume.NewEigenImageWithGeometry(t.Geometry)
	n := t.Region.NumberOfVoxels()

	err := e.runner.ParallelFor(n, func(start, end int) error {
		sym := mat.NewSymDense(d, nil)
		var es mat.EigenSym
		values := make([]float64, d)
		dense := make([]float64, d*d)

		for o := start; o < end; o++ {
			t.Matrix(o, dense)
			for i := 0; i < d; i++ {
				for j := i; j < d; j++ {
					sym.SetSym(i, j, dense[i*d+j])
				}
			}
			if ok := es.Factorize(sym, false); !ok {
				return fmt.Errorf("eigen decomposition failed at offset %d", o)
			}
			es.Values(values)
			order.Sort(values)
			copy(out.Pixel(o), values)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
