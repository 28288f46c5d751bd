// Package sliceio loads a directory of 2-D slice images into a 3-D volume.
//
// Slices are ordered by the number embedded in their file name, so
// slice_2.jpg comes before slice_10.jpg. Every slice must have the same size.
// Axis 0 of the volume is the image x axis, axis 1 the image y axis and
// axis 2 the slice index, with the slice gap as the spacing along axis 2.
package sliceio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"hessianenhance/internal/logging"
	"hessianenhance/pkg/volume"
)

// ErrNoSlices is returned when a directory holds no supported images.
var ErrNoSlices = errors.New("no slice images found")

// supportedExtensions lists the decoders registered by this package.
var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Loader reads slice stacks.
type Loader struct {
	// SliceGap is the physical distance between consecutive slices
	SliceGap float64

	logger zerolog.Logger
}

// NewLoader returns a loader with the given slice gap.
func NewLoader(sliceGap float64, logger zerolog.Logger) *Loader {
	return &Loader{
		SliceGap: sliceGap,
		logger:   logging.Component(logger, "sliceio"),
	}
}

// ListSlices returns the supported image files of dir in slice order.
func ListSlices(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read slice directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSlices, dir)
	}

	sort.SliceStable(files, func(i, j int) bool {
		numI, numJ := extractNumber(files[i]), extractNumber(files[j])
		if numI != numJ {
			return numI < numJ
		}
		return files[i] < files[j]
	})

	paths := make([]string, len(files))
	for i, name := range files {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

// extractNumber returns the digits of a file name read as one number, or 0
// when there are none.
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	num, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return num
}

// LoadImage reads a stack of grey-level slices with intensities in [0, 1].
func (l *Loader) LoadImage(dir string) (*volume.Image, error) {
	slices, err := l.decodeAll(dir)
	if err != nil {
		return nil, err
	}

	img := volume.NewImageWithGeometry(l.geometry(slices))
	for z, s := range slices {
		copySlice(img.Data, z, s, func(c color.Color) float64 {
			return float64(color.Gray16Model.Convert(c).(color.Gray16).Y) / 65535.0
		})
	}

	l.logger.Info().
		Int("slices", len(slices)).
		Ints("size", img.Region.Size).
		Float64("slice_gap", l.SliceGap).
		Msg("loaded image stack")
	return img, nil
}

// LoadLabels reads a stack of label slices. The 8-bit grey value of each
// pixel becomes its label.
func (l *Loader) LoadLabels(dir string) (*volume.LabelImage, error) {
	slices, err := l.decodeAll(dir)
	if err != nil {
		return nil, err
	}

	g := l.geometry(slices)
	labels := volume.NewLabelImage(g.Region)
	labels.Geometry = g
	data := make([]float64, len(labels.Data))
	for z, s := range slices {
		copySlice(data, z, s, func(c color.Color) float64 {
			return float64(color.GrayModel.Convert(c).(color.Gray).Y)
		})
	}
	for i, v := range data {
		labels.Data[i] = uint32(v)
	}

	l.logger.Info().
		Int("slices", len(slices)).
		Ints("size", labels.Region.Size).
		Msg("loaded label stack")
	return labels, nil
}

func (l *Loader) decodeAll(dir string) ([]image.Image, error) {
	if !(l.SliceGap > 0) {
		return nil, fmt.Errorf("slice gap must be positive, got %g", l.SliceGap)
	}
	paths, err := ListSlices(dir)
	if err != nil {
		return nil, err
	}

	slices := make([]image.Image, 0, len(paths))
	var width, height int
	for i, path := range paths {
		img, err := decodeFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", filepath.Base(path), err)
		}
		bounds := img.Bounds()
		if i == 0 {
			width, height = bounds.Dx(), bounds.Dy()
		} else if bounds.Dx() != width || bounds.Dy() != height {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d",
				filepath.Base(path), bounds.Dx(), bounds.Dy(), width, height)
		}
		slices = append(slices, img)
		l.logger.Debug().Str("file", filepath.Base(path)).Int("index", i).Msg("decoded slice")
	}
	return slices, nil
}

func (l *Loader) geometry(slices []image.Image) volume.Geometry {
	bounds := slices[0].Bounds()
	g := volume.NewGeometry(volume.NewRegion(nil, []int{bounds.Dx(), bounds.Dy(), len(slices)}))
	g.Spacing[2] = l.SliceGap
	return g
}

// copySlice writes slice z of a volume laid out as z*width*height + y*width + x.
func copySlice(dst []float64, z int, img image.Image, convert func(color.Color) float64) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	base := z * width * height
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dst[base+y*width+x] = convert(img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
}

func decodeFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}
