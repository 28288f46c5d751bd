package hessian

import (
	"gonum.org/v1/gonum/dsp/fourier"

	"hessianenhance/pkg/parallel"
)

// fftN performs an in-place N-dimensional FFT of data laid out with axis 0
// fastest. The transform is applied line by line along every axis with an
// extent above one. The inverse transform is not normalized; callers divide by
// the number of voxels.
func fftN(runner *parallel.Runner, data []complex128, sizes []int, inverse bool) error {
	n := len(data)
	stride := 1
	for _, size := range sizes {
		if size > 1 {
			if err := fftAxis(runner, data, n, size, stride, inverse); err != nil {
				return err
			}
		}
		stride *= size
	}
	return nil
}

// fftAxis transforms every line along one axis. stride is the distance
// between neighbouring elements of a line.
func fftAxis(runner *parallel.Runner, data []complex128, n, size, stride int, inverse bool) error {
	lines := n / size
	return runner.ParallelFor(lines, func(start, end int) error {
		// A CmplxFFT carries work buffers, so every chunk gets its own.
		fft := fourier.NewCmplxFFT(size)
		line := make([]complex128, size)
		out := make([]complex128, size)

		for l := start; l < end; l++ {
			inner := l % stride
			outer := l / stride
			base := outer*stride*size + inner

			for k := 0; k < size; k++ {
				line[k] = data[base+k*stride]
			}
			if inverse {
				fft.Sequence(out, line)
			} else {
				fft.Coefficients(out, line)
			}
			for k := 0; k < size; k++ {
				data[base+k*stride] = out[k]
			}
		}
		return nil
	})
}
