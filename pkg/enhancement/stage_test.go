package enhancement

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"hessianenhance/pkg/measure"
	"hessianenhance/pkg/parallel"
	"hessianenhance/pkg/volume"
)

// createRandomEigenImage returns an image of random magnitude-ordered tuples
func createRandomEigenImage(seed int64, size []int) *volume.EigenImage {
	rng := rand.New(rand.NewSource(seed))
	img := volume.NewEigenImage(volume.NewRegion(nil, size))
	for o := 0; o < img.Region.NumberOfVoxels(); o++ {
		p := img.Pixel(o)
		for i := range p {
			p[i] = rng.NormFloat64() * 3
		}
		measure.OrderByMagnitude.Sort(p)
	}
	return img
}

// TestStageWithoutMask verifies the stage evaluates the measure at every voxel
func TestStageWithoutMask(t *testing.T) {
	img := createRandomEigenImage(1, []int{6, 5, 4})
	m := measure.Descoteaux{EnhanceBrightObjects: true}
	params := measure.DefaultParameters()

	out, err := NewStage(m, parallel.NewRunner(3)).Apply(img, params)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !out.Region.Equal(img.Region) {
		t.Fatalf("Expected output region %s, got %s", img.Region, out.Region)
	}
	for o := range out.Data {
		if want := m.Evaluate(img.Pixel(o), params); out.Data[o] != want {
			t.Fatalf("Voxel %d: expected %g, got %g", o, want, out.Data[o])
		}
	}
}

// TestStageLabelMask verifies that voxels outside the mask are zero
func TestStageLabelMask(t *testing.T) {
	img := volume.NewEigenImage(volume.NewRegion(nil, []int{10, 10, 10}))
	img.Fill([]float64{-0.01, -0.02, -5})

	labels := volume.NewLabelImage(img.Region)
	labels.FillRegion(volume.NewRegion([]int{2, 2, 2}, []int{3, 3, 3}), 7)

	stage := NewStage(measure.Descoteaux{EnhanceBrightObjects: true}, parallel.NewRunner(4))
	stage.Mask = volume.LabelMask{Labels: labels, Background: 0}

	out, err := stage.Apply(img, measure.DefaultParameters())
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	idx := make([]int, 3)
	for o, v := range out.Data {
		img.Region.IndexAt(o, idx)
		inside := labels.At(idx) != 0
		if !inside && v != 0 {
			t.Fatalf("Voxel %v outside the mask has response %g", idx, v)
		}
		if inside && v < 0.99 {
			t.Fatalf("Voxel %v inside the mask has response %g", idx, v)
		}
	}
}

// TestStageObjectMask verifies geometric masks use physical coordinates
func TestStageObjectMask(t *testing.T) {
	img := volume.NewEigenImage(volume.NewRegion(nil, []int{8, 8, 8}))
	img.Fill([]float64{-0.01, -0.02, -5})
	img.Spacing = []float64{0.5, 0.5, 0.5}

	stage := NewStage(measure.Descoteaux{EnhanceBrightObjects: true}, parallel.NewRunner(2))
	stage.Mask = volume.ObjectMask{Object: volume.Box{Min: []float64{0, 0, 0}, Max: []float64{1, 1, 1}}}

	out, err := stage.Apply(img, measure.DefaultParameters())
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.At([]int{2, 2, 2}) == 0 {
		t.Error("Voxel at physical (1, 1, 1) should be inside the box")
	}
	if out.At([]int{3, 2, 2}) != 0 {
		t.Error("Voxel at physical (1.5, 1, 1) should be outside the box")
	}
}

// TestStagePartitionInvariant verifies identical output for any split
func TestStagePartitionInvariant(t *testing.T) {
	img := createRandomEigenImage(7, []int{9, 7, 13})
	m := measure.Frangi{EnhanceBrightObjects: true}
	params := measure.Parameters{Alpha: 0.5, Beta: 0.5, C: 2}

	want, err := NewStage(m, parallel.NewRunner(1)).Apply(img, params)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	for _, runner := range []*parallel.Runner{parallel.NewRunner(4), parallel.NewRunner(3).WithRegions(13)} {
		got, err := NewStage(m, runner).Apply(img, params)
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if diff := cmp.Diff(want.Data, got.Data); diff != "" {
			t.Errorf("Output depends on partitioning:\n%s", diff)
		}
	}
}

// TestStageApplyRegion verifies that only the requested region is produced
func TestStageApplyRegion(t *testing.T) {
	img := createRandomEigenImage(3, []int{10, 10, 10})
	m := measure.Descoteaux{}
	params := measure.DefaultParameters()
	region := volume.NewRegion([]int{2, 3, 4}, []int{5, 4, 3})

	out, err := NewStage(m, parallel.NewRunner(2)).ApplyRegion(img, region, params)
	if err != nil {
		t.Fatalf("ApplyRegion failed: %v", err)
	}
	if !out.Region.Equal(region) || len(out.Data) != region.NumberOfVoxels() {
		t.Fatalf("Expected output over %s, got %s", region, out.Region)
	}
	idx := []int{4, 5, 6}
	if want := m.Evaluate(img.At(idx), params); out.At(idx) != want {
		t.Errorf("Expected %g at %v, got %g", want, idx, out.At(idx))
	}

	outside := volume.NewRegion([]int{8, 8, 8}, []int{4, 4, 4})
	if _, err := NewStage(m, nil).ApplyRegion(img, outside, params); !errors.Is(err, volume.ErrDomainMismatch) {
		t.Errorf("Expected ErrDomainMismatch, got %v", err)
	}
}

// TestStageErrors verifies configuration and domain errors
func TestStageErrors(t *testing.T) {
	img := createRandomEigenImage(5, []int{4, 4, 4})

	if _, err := NewStage(nil, nil).Apply(img, measure.DefaultParameters()); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}

	stage := NewStage(measure.Descoteaux{}, nil)
	stage.Mask = volume.LabelMask{Labels: volume.NewLabelImage(volume.NewRegion(nil, []int{3, 4, 4}))}
	if _, err := stage.Apply(img, measure.DefaultParameters()); !errors.Is(err, volume.ErrDomainMismatch) {
		t.Errorf("Expected ErrDomainMismatch, got %v", err)
	}
}

// TestMaximumAbsolute verifies the cross-scale combination
func TestMaximumAbsolute(t *testing.T) {
	region := volume.NewRegion(nil, []int{4})
	a := volume.NewImage(region)
	b := volume.NewImage(region)
	copy(a.Data, []float64{-3, 1, 0, 2})
	copy(b.Data, []float64{2, -4, 0, -2})

	if err := MaximumAbsolute(a, b, parallel.NewRunner(2)); err != nil {
		t.Fatalf("MaximumAbsolute failed: %v", err)
	}
	if diff := cmp.Diff([]float64{3, 4, 0, 2}, a.Data); diff != "" {
		t.Errorf("MaximumAbsolute mismatch (-want +got):\n%s", diff)
	}

	c := volume.NewImage(volume.NewRegion(nil, []int{5}))
	if err := MaximumAbsolute(a, c, nil); !errors.Is(err, volume.ErrDomainMismatch) {
		t.Errorf("Expected ErrDomainMismatch, got %v", err)
	}
}

// TestSummarize checks the response statistics
func TestSummarize(t *testing.T) {
	img := volume.NewImage(volume.NewRegion(nil, []int{5}))
	copy(img.Data, []float64{0, 1, 2, 3, 4})

	s := Summarize(img, nil)
	if s.Voxels != 5 || s.Min != 0 || s.Max != 4 || s.Mean != 2 || s.Median != 2 {
		t.Errorf("Unexpected summary %+v", s)
	}
	if math.Abs(s.StdDev-math.Sqrt(2.5)) > 1e-12 {
		t.Errorf("Expected sample standard deviation %g, got %g", math.Sqrt(2.5), s.StdDev)
	}
	if s.Positive != 0.8 {
		t.Errorf("Expected positive fraction 0.8, got %g", s.Positive)
	}

	masked := Summarize(img, volume.ObjectMask{Object: volume.Box{Min: []float64{3}, Max: []float64{4}}})
	if masked.Voxels != 2 || masked.Mean != 3.5 {
		t.Errorf("Unexpected masked summary %+v", masked)
	}
	if empty := Summarize(img, volume.ObjectMask{Object: volume.Box{Min: []float64{9}, Max: []float64{9}}}); empty.Voxels != 0 {
		t.Errorf("Expected no voxels, got %+v", empty)
	}
}

// TestStageLiteral verifies a stage built without the constructor
func TestStageLiteral(t *testing.T) {
	img := createRandomEigenImage(11, []int{5, 4, 3})
	m := measure.Descoteaux{EnhanceBrightObjects: true}
	params := measure.DefaultParameters()

	out, err := (&Stage{Measure: m}).Apply(img, params)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	for o := range out.Data {
		if want := m.Evaluate(img.Pixel(o), params); out.Data[o] != want {
			t.Fatalf("Voxel %d: expected %g, got %g", o, want, out.Data[o])
		}
	}

	empty := &Stage{Measure: m, Mask: volume.LabelMask{}}
	if _, err := empty.Apply(img, params); !errors.Is(err, volume.ErrDomainMismatch) {
		t.Errorf("Expected ErrDomainMismatch for a mask without labels, got %v", err)
	}
}
