package volume

import (
	"errors"
	"testing"
)

// TestOffsetRoundTrip verifies that IndexAt inverts Offset with axis 0 fastest
func TestOffsetRoundTrip(t *testing.T) {
	r := NewRegion([]int{2, -1, 5}, []int{4, 3, 2})

	if r.Offset([]int{3, -1, 5}) != 1 {
		t.Errorf("Expected axis 0 to vary fastest, got offset %d", r.Offset([]int{3, -1, 5}))
	}

	idx := make([]int, 3)
	for o := 0; o < r.NumberOfVoxels(); o++ {
		r.IndexAt(o, idx)
		if !r.IsInside(idx) {
			t.Fatalf("Index %v for offset %d is outside %s", idx, o, r)
		}
		if got := r.Offset(idx); got != o {
			t.Fatalf("Offset(IndexAt(%d)) = %d", o, got)
		}
	}
}

// TestSplitCoversRegion verifies that every split covers each voxel exactly once
func TestSplitCoversRegion(t *testing.T) {
	regions := []Region{
		NewRegion(nil, []int{10, 10, 10}),
		NewRegion([]int{3, 4, 5}, []int{7, 1, 3}),
		NewRegion(nil, []int{5, 9}),
		NewRegion(nil, []int{1, 1, 1}),
	}

	for _, r := range regions {
		for _, n := range []int{0, 1, 2, 3, 7, 64} {
			counts := make([]int, r.NumberOfVoxels())
			idx := make([]int, r.Dimension())
			for _, sub := range r.Split(n) {
				if !r.ContainsRegion(sub) {
					t.Fatalf("Split(%d) of %s produced %s outside the region", n, r, sub)
				}
				for o := 0; o < sub.NumberOfVoxels(); o++ {
					sub.IndexAt(o, idx)
					counts[r.Offset(idx)]++
				}
			}
			for o, c := range counts {
				if c != 1 {
					t.Fatalf("Split(%d) of %s visits offset %d %d times", n, r, o, c)
				}
			}
		}
	}
}

// TestSplitEmpty verifies that an empty region yields no work
func TestSplitEmpty(t *testing.T) {
	if got := NewRegion(nil, []int{4, 0, 2}).Split(4); len(got) != 0 {
		t.Errorf("Expected no regions, got %d", len(got))
	}
}

// TestIntersect checks overlapping and disjoint boxes
func TestIntersect(t *testing.T) {
	a := NewRegion(nil, []int{10, 10})
	b := NewRegion([]int{5, -3}, []int{10, 5})

	got, ok := a.Intersect(b)
	if !ok {
		t.Fatal("Expected regions to overlap")
	}
	want := NewRegion([]int{5, 0}, []int{5, 2})
	if !got.Equal(want) {
		t.Errorf("Expected %s, got %s", want, got)
	}

	if _, ok := a.Intersect(NewRegion([]int{10, 0}, []int{2, 2})); ok {
		t.Error("Expected touching regions not to overlap")
	}
}

// TestCheckContains verifies the domain mismatch error kind
func TestCheckContains(t *testing.T) {
	outer := NewRegion([]int{2, 2, 2}, []int{8, 8, 8})
	inner := NewRegion(nil, []int{10, 10, 10})

	if err := CheckContains(outer, inner, "mask"); !errors.Is(err, ErrDomainMismatch) {
		t.Errorf("Expected ErrDomainMismatch, got %v", err)
	}
	if err := CheckContains(inner, outer, "mask"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

// TestMasks verifies label and geometric masks
func TestMasks(t *testing.T) {
	region := NewRegion(nil, []int{4, 4, 4})
	labels := NewLabelImage(region)
	labels.Fill(1)
	labels.FillRegion(NewRegion([]int{1, 1, 1}, []int{2, 2, 2}), 2)

	m := LabelMask{Labels: labels, Background: 1}
	if m.Inside([]int{0, 0, 0}, nil) {
		t.Error("Background voxel reported inside")
	}
	if !m.Inside([]int{2, 2, 2}, nil) {
		t.Error("Foreground voxel reported outside")
	}
	if err := CheckMaskDomain(m, NewRegion(nil, []int{5, 4, 4})); !errors.Is(err, ErrDomainMismatch) {
		t.Errorf("Expected ErrDomainMismatch, got %v", err)
	}

	if err := CheckMaskDomain(LabelMask{}, region); !errors.Is(err, ErrDomainMismatch) {
		t.Errorf("Expected ErrDomainMismatch for a mask without labels, got %v", err)
	}
	if (LabelMask{}).Domain().Dimension() != 0 {
		t.Error("Expected an empty domain for a mask without labels")
	}

	sphere := ObjectMask{Object: Ellipsoid{Center: []float64{0, 0, 0}, Radius: []float64{1, 1, 2}}}
	if !sphere.Inside(nil, []float64{0, 0, 2}) {
		t.Error("Point on the ellipsoid surface reported outside")
	}
	if sphere.Inside(nil, []float64{1, 1, 0}) {
		t.Error("Point outside the ellipsoid reported inside")
	}
	if err := CheckMaskDomain(sphere, region); err != nil {
		t.Errorf("Geometric masks have no domain, got %v", err)
	}

	box := Box{Min: []float64{0, 0}, Max: []float64{1, 1}}
	if !box.IsInside([]float64{1, 0.5}) || box.IsInside([]float64{1.5, 0.5}) {
		t.Error("Box bounds are not inclusive")
	}
}

// TestTensorMatrix verifies the upper-triangle layout
func TestTensorMatrix(t *testing.T) {
	tensor := NewTensorImageWithGeometry(NewGeometry(NewRegion(nil, []int{1, 1, 1})))
	copy(tensor.Pixel(0), []float64{1, 2, 3, 4, 5, 6})

	want := []float64{
		1, 2, 3,
		2, 4, 5,
		3, 5, 6,
	}
	got := tensor.Matrix(0, nil)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}
