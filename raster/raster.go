package raster

import (
	"fmt"
)

// Image is a read-only multi-band raster. Implementations are expected to be
// cheap to read row by row; a block-streaming driver layer (GDAL or similar)
// can satisfy this interface without the library knowing about it.
type Image interface {
	// Width returns the number of pixel columns.
	Width() int
	// Height returns the number of pixel rows.
	Height() int
	// Bands returns the number of image bands.
	Bands() int
	// ReadRow fills buf with the band-interleaved values of row y.
	// len(buf) must be Width()*Bands().
	ReadRow(y int, buf []float64) error
}

// MutableImage is an Image that can also be written row by row.
type MutableImage interface {
	Image
	// WriteRow stores the band-interleaved values of buf as row y.
	// len(buf) must be Width()*Bands().
	WriteRow(y int, buf []float64) error
}

// BandRangeError indicates a configured band index outside the bands of the
// input image.
type BandRangeError struct {
	Band     int
	NumBands int
}

func (e *BandRangeError) Error() string {
	return fmt.Sprintf("band %d is not within input image bands (%d)", e.Band, e.NumBands)
}

// AllBands returns the full list of band indices for img.
func AllBands(img Image) []int {
	bands := make([]int, img.Bands())
	for i := range bands {
		bands[i] = i
	}
	return bands
}

// CheckBands validates the band selection against the image. It returns a
// BandRangeError for the first out-of-range index. A nil or empty selection
// is invalid; callers use AllBands for the default.
func CheckBands(img Image, bands []int) error {
	if len(bands) == 0 {
		return fmt.Errorf("empty band selection")
	}
	for _, b := range bands {
		if b < 0 || b >= img.Bands() {
			return &BandRangeError{Band: b, NumBands: img.Bands()}
		}
	}
	return nil
}

// IsBorder reports whether the pixel vector is a border/no-data sentinel.
// A pixel whose first band value truncates to exactly 0 is considered image
// border and is excluded from clustering statistics.
func IsBorder(v []float64) bool {
	return int(v[0]) == 0
}

// MemImage is an in-memory row-major, band-interleaved raster. It backs tests
// and callers that have no driver layer. The zero value is not usable; use
// NewMemImage.
type MemImage struct {
	width  int
	height int
	bands  int
	data   []float64
}

// NewMemImage creates a zero-filled in-memory raster.
func NewMemImage(width, height, bands int) *MemImage {
	return &MemImage{
		width:  width,
		height: height,
		bands:  bands,
		data:   make([]float64, width*height*bands),
	}
}

// Width returns the number of pixel columns.
func (m *MemImage) Width() int { return m.width }

// Height returns the number of pixel rows.
func (m *MemImage) Height() int { return m.height }

// Bands returns the number of image bands.
func (m *MemImage) Bands() int { return m.bands }

// ReadRow copies row y into buf.
func (m *MemImage) ReadRow(y int, buf []float64) error {
	if y < 0 || y >= m.height {
		return fmt.Errorf("row %d out of range [0,%d)", y, m.height)
	}
	if len(buf) != m.width*m.bands {
		return fmt.Errorf("row buffer length %d, want %d", len(buf), m.width*m.bands)
	}
	copy(buf, m.data[y*m.width*m.bands:(y+1)*m.width*m.bands])
	return nil
}

// WriteRow stores buf as row y.
func (m *MemImage) WriteRow(y int, buf []float64) error {
	if y < 0 || y >= m.height {
		return fmt.Errorf("row %d out of range [0,%d)", y, m.height)
	}
	if len(buf) != m.width*m.bands {
		return fmt.Errorf("row buffer length %d, want %d", len(buf), m.width*m.bands)
	}
	copy(m.data[y*m.width*m.bands:(y+1)*m.width*m.bands], buf)
	return nil
}

// SetPixel stores the band values of the pixel at (x, y).
func (m *MemImage) SetPixel(x, y int, v []float64) {
	off := (y*m.width + x) * m.bands
	copy(m.data[off:off+m.bands], v)
}

// Pixel returns a copy of the band values of the pixel at (x, y).
func (m *MemImage) Pixel(x, y int) []float64 {
	off := (y*m.width + x) * m.bands
	out := make([]float64, m.bands)
	copy(out, m.data[off:off+m.bands])
	return out
}
