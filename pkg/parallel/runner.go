// Package parallel runs region-parallel fork-join work. A Runner splits a
// voxel domain into disjoint contiguous regions, runs one task per region on
// a bounded set of goroutines and returns once every task has finished.
//
// Usage:
//
//	runner := parallel.NewRunner(runtime.NumCPU())
//	err := runner.ForEachRegion(img.Region, func(task int, region volume.Region) error {
//		return process(region)
//	})
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"hessianenhance/pkg/volume"
)

// RegionFunc processes one sub-region. task is the position of the region in
// the split, in [0, NumberOfTasks).
type RegionFunc func(task int, region volume.Region) error

// Runner dispatches region tasks onto a bounded number of goroutines.
// A nil *Runner behaves like NewRunner(0).
type Runner struct {
	workers int
	regions int
}

// NewRunner creates a runner using the given number of workers. The domain is
// split into as many regions as workers. If workers <= 0, NumCPU is used.
func NewRunner(workers int) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{workers: workers, regions: workers}
}

// orDefault resolves a nil runner to one worker per CPU.
func (r *Runner) orDefault() *Runner {
	if r == nil {
		return NewRunner(0)
	}
	return r
}

// WithRegions returns a copy of r that splits domains into n regions instead
// of one per worker. Values below one keep the current setting.
func (r *Runner) WithRegions(n int) *Runner {
	out := *r.orDefault()
	if n >= 1 {
		out.regions = n
	}
	return &out
}

// NumWorkers returns the goroutine limit.
func (r *Runner) NumWorkers() int {
	return r.orDefault().workers
}

// NumRegions returns the number of regions a domain is split into at most.
func (r *Runner) NumRegions() int {
	return r.orDefault().regions
}

// Split returns the sub-regions ForEachRegion will dispatch for domain.
func (r *Runner) Split(domain volume.Region) []volume.Region {
	return domain.Split(r.NumRegions())
}

// ForEachRegion calls fn once per sub-region of domain. The sub-regions are
// disjoint and cover domain exactly. It blocks until every call returns and
// reports the first error.
func (r *Runner) ForEachRegion(domain volume.Region, fn RegionFunc) error {
	r = r.orDefault()
	regions := r.Split(domain)
	if len(regions) == 1 || r.workers == 1 {
		for task, region := range regions {
			if err := fn(task, region); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(r.workers)
	for task, region := range regions {
		task, region := task, region
		g.Go(func() error {
			return fn(task, region)
		})
	}
	return g.Wait()
}

// ParallelFor calls fn over contiguous chunks [start, end) covering [0, n).
// It blocks until every chunk is done and reports the first error.
func (r *Runner) ParallelFor(n int, fn func(start, end int) error) error {
	if n <= 0 {
		return nil
	}
	r = r.orDefault()
	chunks := min(r.regions, n)
	if chunks <= 1 || r.workers == 1 {
		return fn(0, n)
	}
	chunkSize := (n + chunks - 1) / chunks

	var g errgroup.Group
	g.SetLimit(r.workers)
	for start := 0; start < n; start += chunkSize {
		start, end := start, min(start+chunkSize, n)
		g.Go(func() error {
			return fn(start, end)
		})
	}
	return g.Wait()
}
