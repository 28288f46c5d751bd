package enhancement

import (
	"fmt"
	"math"

	"hessianenhance/pkg/parallel"
	"hessianenhance/pkg/volume"
)

// MaximumAbsolute replaces every voxel of dst with max(|dst|, |src|). Both
// images must cover the same region.
func MaximumAbsolute(dst, src *volume.Image, runner *parallel.Runner) error {
	if !dst.Region.Equal(src.Region) {
		return fmt.Errorf("%w: cannot combine [%s] with [%s]", volume.ErrDomainMismatch, dst.Region, src.Region)
	}
	if runner == nil {
		runner = parallel.NewRunner(0)
	}
	return runner.ParallelFor(len(dst.Data), func(start, end int) error {
		for i := start; i < end; i++ {
			dst.Data[i] = math.Max(math.Abs(dst.Data[i]), math.Abs(src.Data[i]))
		}
		return nil
	})
}
