package volume

// Geometry places a region in physical space. Spacing and Origin have one
// entry per axis; there is no direction matrix.
type Geometry struct {
	// Region is the voxel box covered by the buffer
	Region Region

	// Spacing is the physical distance between neighbouring voxels
	Spacing []float64

	// Origin is the physical position of index zero
	Origin []float64
}

// NewGeometry returns a geometry over region with unit spacing and a zero origin.
func NewGeometry(region Region) Geometry {
	g := Geometry{
		Region:  NewRegion(region.Index, region.Size),
		Spacing: make([]float64, region.Dimension()),
		Origin:  make([]float64, region.Dimension()),
	}
	for a := range g.Spacing {
		g.Spacing[a] = 1
	}
	return g
}

// Copy returns a deep copy of g.
func (g Geometry) Copy() Geometry {
	return Geometry{
		Region:  NewRegion(g.Region.Index, g.Region.Size),
		Spacing: append([]float64(nil), g.Spacing...),
		Origin:  append([]float64(nil), g.Origin...),
	}
}

// WithRegion returns a copy of g restricted to region, keeping spacing and origin.
func (g Geometry) WithRegion(region Region) Geometry {
	out := g.Copy()
	out.Region = NewRegion(region.Index, region.Size)
	return out
}

// PhysicalPoint maps a voxel index to physical space.
func (g Geometry) PhysicalPoint(index []int, dst []float64) []float64 {
	if len(dst) != len(index) {
		dst = make([]float64, len(index))
	}
	for a, i := range index {
		dst[a] = g.Origin[a] + float64(i)*g.Spacing[a]
	}
	return dst
}

// Image is a scalar image.
type Image struct {
	Geometry
	Data []float64
}

// NewImage allocates a zero image over region with unit spacing.
func NewImage(region Region) *Image {
	return NewImageWithGeometry(NewGeometry(region))
}

// NewImageWithGeometry allocates a zero image with a copy of g.
func NewImageWithGeometry(g Geometry) *Image {
	return &Image{
		Geometry: g.Copy(),
		Data:     make([]float64, g.Region.NumberOfVoxels()),
	}
}

// At returns the value at index.
func (im *Image) At(index []int) float64 {
	return im.Data[im.Region.Offset(index)]
}

// Set stores v at index.
func (im *Image) Set(index []int, v float64) {
	im.Data[im.Region.Offset(index)] = v
}

// Fill sets every voxel to v.
func (im *Image) Fill(v float64) {
	for i := range im.Data {
		im.Data[i] = v
	}
}

// Clone returns a deep copy of the image.
func (im *Image) Clone() *Image {
	return &Image{
		Geometry: im.Geometry.Copy(),
		Data:     append([]float64(nil), im.Data...),
	}
}

// EigenImage holds a fixed-length tuple of eigenvalues per voxel.
type EigenImage struct {
	Geometry

	// Components is the tuple length, usually the image dimension
	Components int

	// Data stores Components values per voxel, voxel after voxel
	Data []float64
}

// NewEigenImage allocates a zero eigenvalue image with one tuple of
// region.Dimension() values per voxel.
func NewEigenImage(region Region) *EigenImage {
	return NewEigenImageWithGeometry(NewGeometry(region))
}

// NewEigenImageWithGeometry allocates a zero eigenvalue image with a copy of g.
func NewEigenImageWithGeometry(g Geometry) *EigenImage {
	d := g.Region.Dimension()
	return &EigenImage{
		Geometry:   g.Copy(),
		Components: d,
		Data:       make([]float64, g.Region.NumberOfVoxels()*d),
	}
}

// Pixel returns the tuple stored at a buffer offset. The slice aliases the
// image buffer.
func (im *EigenImage) Pixel(offset int) []float64 {
	start := offset * im.Components
	return im.Data[start : start+im.Components : start+im.Components]
}

// At returns the tuple at index. The slice aliases the image buffer.
func (im *EigenImage) At(index []int) []float64 {
	return im.Pixel(im.Region.Offset(index))
}

// Set copies values into the tuple at index.
func (im *EigenImage) Set(index []int, values []float64) {
	copy(im.At(index), values)
}

// Fill copies values into every tuple.
func (im *EigenImage) Fill(values []float64) {
	n := im.Region.NumberOfVoxels()
	for o := 0; o < n; o++ {
		copy(im.Pixel(o), values)
	}
}

// TensorImage holds the upper triangle of a symmetric matrix per voxel,
// ordered (0,0), (0,1), ..., (0,D-1), (1,1), ..., (D-1,D-1).
type TensorImage struct {
	Geometry

	// Dimension is the matrix order D
	Dimension int

	// Data stores D(D+1)/2 values per voxel
	Data []float64
}

// NewTensorImageWithGeometry allocates a zero tensor image with a copy of g.
func NewTensorImageWithGeometry(g Geometry) *TensorImage {
	d := g.Region.Dimension()
	return &TensorImage{
		Geometry:  g.Copy(),
		Dimension: d,
		Data:      make([]float64, g.Region.NumberOfVoxels()*TriangleSize(d)),
	}
}

// TriangleSize is the number of stored components of a symmetric d×d matrix.
func TriangleSize(d int) int {
	return d * (d + 1) / 2
}

// ComponentIndex returns the position of element (i, j) inside a voxel's
// upper-triangle tuple.
func ComponentIndex(d, i, j int) int {
	if i > j {
		i, j = j, i
	}
	return i*d - i*(i-1)/2 + (j - i)
}

// Pixel returns the upper-triangle tuple at a buffer offset.
func (t *TensorImage) Pixel(offset int) []float64 {
	n := TriangleSize(t.Dimension)
	start := offset * n
	return t.Data[start : start+n : start+n]
}

// Matrix expands the tensor at offset into a dense row-major d×d slice.
func (t *TensorImage) Matrix(offset int, dst []float64) []float64 {
	d := t.Dimension
	if len(dst) != d*d {
		dst = make([]float64, d*d)
	}
	p := t.Pixel(offset)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			v := p[ComponentIndex(d, i, j)]
			dst[i*d+j] = v
			dst[j*d+i] = v
		}
	}
	return dst
}

// LabelImage holds one label per voxel.
type LabelImage struct {
	Geometry
	Data []uint32
}

// NewLabelImage allocates a label image over region filled with zero.
func NewLabelImage(region Region) *LabelImage {
	g := NewGeometry(region)
	return &LabelImage{
		Geometry: g,
		Data:     make([]uint32, region.NumberOfVoxels()),
	}
}

// At returns the label at index.
func (im *LabelImage) At(index []int) uint32 {
	return im.Data[im.Region.Offset(index)]
}

// Set stores label at index.
func (im *LabelImage) Set(index []int, label uint32) {
	im.Data[im.Region.Offset(index)] = label
}

// Fill sets every voxel to label.
func (im *LabelImage) Fill(label uint32) {
	for i := range im.Data {
		im.Data[i] = label
	}
}

// FillRegion sets every voxel of region that lies in the image to label.
func (im *LabelImage) FillRegion(region Region, label uint32) {
	sub, ok := im.Region.Intersect(region)
	if !ok {
		return
	}
	idx := make([]int, sub.Dimension())
	for o := 0; o < sub.NumberOfVoxels(); o++ {
		sub.IndexAt(o, idx)
		im.Set(idx, label)
	}
}

// FillRegion copies values into every tuple of region that lies in the image.
func (im *EigenImage) FillRegion(region Region, values []float64) {
	sub, ok := im.Region.Intersect(region)
	if !ok {
		return
	}
	idx := make([]int, sub.Dimension())
	for o := 0; o < sub.NumberOfVoxels(); o++ {
		sub.IndexAt(o, idx)
		im.Set(idx, values)
	}
}
