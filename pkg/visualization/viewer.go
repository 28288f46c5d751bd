// Package visualization exports 2-D views of a 3-D response volume: axis
// aligned slices and maximum intensity projections.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/floats"

	"hessianenhance/pkg/volume"
)

// axisNames maps an axis number to the name used in file names.
var axisNames = [3]string{"x", "y", "z"}

// Viewer renders grey-level views of a 3-D image.
type Viewer struct {
	img *volume.Image

	// intensity window mapped to black and white
	low  float64
	high float64
}

// NewViewer creates a viewer whose intensity window spans the image range.
func NewViewer(img *volume.Image) (*Viewer, error) {
	if img == nil || img.Region.Dimension() != 3 {
		return nil, fmt.Errorf("viewer needs a 3-D image")
	}
	if img.Region.NumberOfVoxels() == 0 {
		return nil, fmt.Errorf("viewer needs a non-empty image")
	}
	v := &Viewer{img: img}
	v.SetWindow(floats.Min(img.Data), floats.Max(img.Data))
	return v, nil
}

// SetWindow sets the intensities rendered as black (low) and white (high).
func (v *Viewer) SetWindow(low, high float64) {
	v.low, v.high = low, high
}

// Window returns the current intensity window.
func (v *Viewer) Window() (low, high float64) {
	return v.low, v.high
}

// planeAxes returns the axes shown as image columns and rows when looking
// along axis.
func planeAxes(axis int) (cols, rows int) {
	switch axis {
	case 0:
		return 2, 1
	case 1:
		return 0, 2
	default:
		return 0, 1
	}
}

func (v *Viewer) gray(value float64) color.Gray16 {
	if !(v.high > v.low) || math.IsNaN(value) {
		return color.Gray16{}
	}
	t := (value - v.low) / (v.high - v.low)
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, t*65535)))}
}

func (v *Viewer) checkAxis(axis int) error {
	if axis < 0 || axis > 2 {
		return fmt.Errorf("invalid axis: %d (must be 0, 1 or 2)", axis)
	}
	return nil
}

// ExtractSlice extracts the 2-D slice at position along axis.
func (v *Viewer) ExtractSlice(axis, position int) (image.Image, error) {
	if err := v.checkAxis(axis); err != nil {
		return nil, err
	}
	size := v.img.Region.Size
	if position < 0 || position >= size[axis] {
		return nil, fmt.Errorf("position %d outside [0, %d) along %s", position, size[axis], axisNames[axis])
	}

	cols, rows := planeAxes(axis)
	out := image.NewGray16(image.Rect(0, 0, size[cols], size[rows]))
	idx := append([]int(nil), v.img.Region.Index...)
	idx[axis] += position
	for r := 0; r < size[rows]; r++ {
		idx[rows] = v.img.Region.Index[rows] + r
		for c := 0; c < size[cols]; c++ {
			idx[cols] = v.img.Region.Index[cols] + c
			out.SetGray16(c, r, v.gray(v.img.At(idx)))
		}
	}
	return out, nil
}

// MaximumIntensityProjection renders the largest value along axis for every
// pixel of the remaining plane.
func (v *Viewer) MaximumIntensityProjection(axis int) (image.Image, error) {
	if err := v.checkAxis(axis); err != nil {
		return nil, err
	}
	size := v.img.Region.Size
	cols, rows := planeAxes(axis)

	projection := make([]float64, size[cols]*size[rows])
	for i := range projection {
		projection[i] = math.Inf(-1)
	}
	idx := make([]int, 3)
	for o, value := range v.img.Data {
		v.img.Region.IndexAt(o, idx)
		c := idx[cols] - v.img.Region.Index[cols]
		r := idx[rows] - v.img.Region.Index[rows]
		p := r*size[cols] + c
		if value > projection[p] {
			projection[p] = value
		}
	}

	out := image.NewGray16(image.Rect(0, 0, size[cols], size[rows]))
	for r := 0; r < size[rows]; r++ {
		for c := 0; c < size[cols]; c++ {
			out.SetGray16(c, r, v.gray(projection[r*size[cols]+c]))
		}
	}
	return out, nil
}

// SaveSlice saves an image as PNG when filename ends in .png and as JPEG
// otherwise.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(filename), ".png") {
		return png.Encode(file, img)
	}
	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves every slice along axis. It returns the
// number of files written.
func (v *Viewer) SaveSliceSequence(axis int, outputDir string) (int, error) {
	if err := v.checkAxis(axis); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}

	n := v.img.Region.Size[axis]
	for pos := 0; pos < n; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return pos, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axisNames[axis], pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return pos, fmt.Errorf("failed to save %s: %w", filename, err)
		}
	}
	return n, nil
}

// SaveProjection writes the maximum intensity projection along axis to
// outputDir as mip_<axis>.png and returns its path.
func (v *Viewer) SaveProjection(axis int, outputDir string) (string, error) {
	img, err := v.MaximumIntensityProjection(axis)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := filepath.Join(outputDir, fmt.Sprintf("mip_%s.png", axisNames[axis]))
	if err := v.SaveSlice(img, filename); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return filename, nil
}
