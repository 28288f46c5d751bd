// Package volume provides the N-dimensional image containers shared by the
// enhancement pipeline: regions, scalar/eigen/tensor/label images and masks.
//
// All images store voxels in a flat slice with axis 0 varying fastest, the
// same layout as z*width*height + y*width + x for a 3-D volume.
package volume

import (
	"errors"
	"fmt"
)

// ErrDomainMismatch is returned when a mask or requested region does not
// cover the region being processed.
var ErrDomainMismatch = errors.New("domain mismatch")

// Region is an axis-aligned box of voxel indices.
type Region struct {
	// Index is the index of the first voxel along every axis
	Index []int

	// Size is the number of voxels along every axis
	Size []int
}

// NewRegion creates a region starting at index with the given size.
// A nil index starts the region at the origin.
func NewRegion(index, size []int) Region {
	r := Region{
		Index: make([]int, len(size)),
		Size:  append([]int(nil), size...),
	}
	copy(r.Index, index)
	return r
}

// Dimension returns the number of axes.
func (r Region) Dimension() int {
	return len(r.Size)
}

// NumberOfVoxels returns the number of voxels covered by the region.
func (r Region) NumberOfVoxels() int {
	if len(r.Size) == 0 {
		return 0
	}
	n := 1
	for _, s := range r.Size {
		if s <= 0 {
			return 0
		}
		n *= s
	}
	return n
}

// Equal reports whether both regions have the same index and size.
func (r Region) Equal(o Region) bool {
	if len(r.Size) != len(o.Size) {
		return false
	}
	for a := range r.Size {
		if r.Index[a] != o.Index[a] || r.Size[a] != o.Size[a] {
			return false
		}
	}
	return true
}

// IsInside reports whether index lies in the region.
func (r Region) IsInside(index []int) bool {
	if len(index) != len(r.Size) {
		return false
	}
	for a, i := range index {
		if i < r.Index[a] || i >= r.Index[a]+r.Size[a] {
			return false
		}
	}
	return true
}

// ContainsRegion reports whether o lies entirely in r. An empty region is
// contained in any region of the same dimension.
func (r Region) ContainsRegion(o Region) bool {
	if len(o.Size) != len(r.Size) {
		return false
	}
	if o.NumberOfVoxels() == 0 {
		return true
	}
	for a := range r.Size {
		if o.Index[a] < r.Index[a] || o.Index[a]+o.Size[a] > r.Index[a]+r.Size[a] {
			return false
		}
	}
	return true
}

// Intersect returns the overlap of r and o. The boolean is false when the
// regions do not overlap.
func (r Region) Intersect(o Region) (Region, bool) {
	if len(o.Size) != len(r.Size) {
		return Region{}, false
	}
	out := Region{Index: make([]int, len(r.Size)), Size: make([]int, len(r.Size))}
	for a := range r.Size {
		lo := max(r.Index[a], o.Index[a])
		hi := min(r.Index[a]+r.Size[a], o.Index[a]+o.Size[a])
		if hi <= lo {
			return Region{}, false
		}
		out.Index[a] = lo
		out.Size[a] = hi - lo
	}
	return out, true
}

// Offset returns the position of index in a buffer laid out over r.
func (r Region) Offset(index []int) int {
	offset := 0
	stride := 1
	for a := range r.Size {
		offset += (index[a] - r.Index[a]) * stride
		stride *= r.Size[a]
	}
	return offset
}

// IndexAt is the inverse of Offset. The result is written to dst when it has
// the right length.
func (r Region) IndexAt(offset int, dst []int) []int {
	if len(dst) != len(r.Size) {
		dst = make([]int, len(r.Size))
	}
	for a, s := range r.Size {
		dst[a] = r.Index[a] + offset%s
		offset /= s
	}
	return dst
}

// Split partitions r into at most n disjoint contiguous slabs along the
// slowest axis whose extent is greater than one. The slabs cover r exactly.
func (r Region) Split(n int) []Region {
	if r.NumberOfVoxels() == 0 {
		return nil
	}
	axis := -1
	for a := len(r.Size) - 1; a >= 0; a-- {
		if r.Size[a] > 1 {
			axis = a
			break
		}
	}
	if n <= 1 || axis < 0 {
		return []Region{NewRegion(r.Index, r.Size)}
	}

	extent := r.Size[axis]
	pieces := min(n, extent)
	chunk := (extent + pieces - 1) / pieces
	pieces = (extent + chunk - 1) / chunk

	regions := make([]Region, 0, pieces)
	for p := 0; p < pieces; p++ {
		sub := NewRegion(r.Index, r.Size)
		sub.Index[axis] = r.Index[axis] + p*chunk
		sub.Size[axis] = min(chunk, extent-p*chunk)
		regions = append(regions, sub)
	}
	return regions
}

// String formats the region as index/size.
func (r Region) String() string {
	return fmt.Sprintf("index=%v size=%v", r.Index, r.Size)
}

// CheckContains returns an error wrapping ErrDomainMismatch when outer does
// not fully contain inner. what names the outer region in the message.
func CheckContains(outer, inner Region, what string) error {
	if !outer.ContainsRegion(inner) {
		return fmt.Errorf("%w: %s region [%s] does not contain [%s]", ErrDomainMismatch, what, outer, inner)
	}
	return nil
}
