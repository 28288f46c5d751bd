package volume

import (
	"fmt"
	"math"
)

// Mask decides which voxels take part in processing.
type Mask interface {
	// Inside reports whether the voxel at index, located at the physical
	// point, is foreground.
	Inside(index []int, point []float64) bool
}

// Domained is implemented by masks that only cover a bounded voxel region.
type Domained interface {
	Domain() Region
}

// CheckMaskDomain returns ErrDomainMismatch when m has a domain that does not
// contain region. Masks without a domain always pass.
func CheckMaskDomain(m Mask, region Region) error {
	if lm, ok := m.(LabelMask); ok && lm.Labels == nil {
		return fmt.Errorf("%w: label mask has no label image", ErrDomainMismatch)
	}
	d, ok := m.(Domained)
	if !ok {
		return nil
	}
	return CheckContains(d.Domain(), region, "mask")
}

// LabelMask treats every label other than Background as foreground.
type LabelMask struct {
	Labels     *LabelImage
	Background uint32
}

// Inside reports whether the label at index differs from the background label.
func (m LabelMask) Inside(index []int, _ []float64) bool {
	return m.Labels.At(index) != m.Background
}

// Domain returns the region covered by the label image. Without labels the
// domain is empty and contains no region.
func (m LabelMask) Domain() Region {
	if m.Labels == nil {
		return Region{}
	}
	return m.Labels.Region
}

// SpatialObject is a geometric shape tested in physical space.
type SpatialObject interface {
	IsInside(point []float64) bool
}

// ObjectMask adapts a SpatialObject to the Mask interface.
type ObjectMask struct {
	Object SpatialObject
}

// Inside tests the physical point against the object.
func (m ObjectMask) Inside(_ []int, point []float64) bool {
	return m.Object.IsInside(point)
}

// Box is an axis-aligned box in physical space, bounds inclusive.
type Box struct {
	Min []float64
	Max []float64
}

// IsInside reports whether point lies within the box.
func (b Box) IsInside(point []float64) bool {
	if len(point) != len(b.Min) || len(point) != len(b.Max) {
		return false
	}
	for a, p := range point {
		if p < b.Min[a] || p > b.Max[a] {
			return false
		}
	}
	return true
}

// Ellipsoid is an axis-aligned ellipsoid in physical space.
type Ellipsoid struct {
	Center []float64
	Radius []float64
}

// IsInside reports whether point lies within the ellipsoid surface.
func (e Ellipsoid) IsInside(point []float64) bool {
	if len(point) != len(e.Center) || len(point) != len(e.Radius) {
		return false
	}
	sum := 0.0
	for a, p := range point {
		if e.Radius[a] <= 0 {
			return false
		}
		d := (p - e.Center[a]) / e.Radius[a]
		sum += d * d
	}
	return sum <= 1 || math.Abs(sum-1) < 1e-12
}
