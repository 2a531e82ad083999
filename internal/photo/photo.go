// Package photo loads the photographs being annotated and describes them for export.
package photo

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/xiaomayi-bee/CleftLip/internal/document"
	"github.com/xiaomayi-bee/CleftLip/pkg/geometry"
)

// DefaultDPI is reported when the file carries no resolution.
const DefaultDPI = 72

// ErrUnsupported is returned for files whose extension is not an image format we decode.
var ErrUnsupported = errors.New("unsupported image format")

// Photo is a decoded image plus what is known about its file.
type Photo struct {
	Path     string
	Image    image.Image
	Format   string // decoder name, e.g. "jpeg"
	FileSize int64
	DPI      float64
}

// Load opens and decodes the image at path.
func Load(path string) (*Photo, error) {
	if !IsSupportedFormat(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	p := &Photo{Path: path, Image: img, Format: format, FileSize: st.Size(), DPI: DefaultDPI}
	if format == "tiff" {
		if dpi, err := tiffDPI(f); err == nil {
			p.DPI = dpi
		}
	}
	return p, nil
}

// Width returns the image width in pixels.
func (p *Photo) Width() int {
	if p.Image == nil {
		return 0
	}
	return p.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (p *Photo) Height() int {
	if p.Image == nil {
		return 0
	}
	return p.Image.Bounds().Dy()
}

// Size returns the pixel size for viewport math.
func (p *Photo) Size() geometry.Size {
	return geometry.NewSize(float64(p.Width()), float64(p.Height()))
}

// MIME returns the media type of the decoded format.
func (p *Photo) MIME() string {
	return MIMEType(p.Format)
}

// Info describes the photo in the annotation document's terms.
func (p *Photo) Info() document.ImageInfo {
	info := document.NewImageInfo(filepath.Base(p.Path), p.MIME(), p.FileSize, p.Width(), p.Height())
	if p.DPI > 0 {
		info.DPI = int(math.Round(p.DPI))
	}
	return info
}

// MIMEType maps an image decoder name to its media type.
func MIMEType(format string) string {
	switch format {
	case "":
		return "unknown"
	case "tiff":
		return "image/tiff"
	default:
		return "image/" + format
	}
}

// tiffDPI reads the X (or Y) resolution tag of the first IFD.
func tiffDPI(r io.ReaderAt) (float64, error) {
	header := make([]byte, 8)
	if _, err := r.ReadAt(header, 0); err != nil {
		return 0, err
	}

	var order binary.ByteOrder
	switch string(header[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, errors.New("not a TIFF file")
	}

	ifd := int64(order.Uint32(header[4:8]))
	count := make([]byte, 2)
	if _, err := r.ReadAt(count, ifd); err != nil {
		return 0, err
	}

	var xRes, yRes float64
	unit := uint16(2) // inches
	entry := make([]byte, 12)
	for i := int64(0); i < int64(order.Uint16(count)); i++ {
		if _, err := r.ReadAt(entry, ifd+2+i*12); err != nil {
			return 0, err
		}
		tag := order.Uint16(entry[0:2])
		typ := order.Uint16(entry[2:4])
		value := order.Uint32(entry[8:12])

		switch {
		case tag == 282 && typ == 5:
			xRes = tiffRational(r, int64(value), order)
		case tag == 283 && typ == 5:
			yRes = tiffRational(r, int64(value), order)
		case tag == 296 && typ == 3:
			unit = order.Uint16(entry[8:10])
		}
	}

	dpi := xRes
	if dpi == 0 {
		dpi = yRes
	}
	if dpi == 0 {
		return 0, errors.New("no resolution tags")
	}
	if unit == 3 {
		dpi *= 2.54
	}
	return dpi, nil
}

func tiffRational(r io.ReaderAt, offset int64, order binary.ByteOrder) float64 {
	buf := make([]byte, 8)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return 0
	}
	num, denom := order.Uint32(buf[0:4]), order.Uint32(buf[4:8])
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

// SupportedFormats returns the accepted file extensions.
func SupportedFormats() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".tiff", ".tif"}
}

// IsSupportedFormat checks the extension of path.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// FormatFileSize renders a byte count like "1.5 MB", rounding to two decimals.
func FormatFileSize(size int64) string {
	units := []string{"B", "KB", "MB", "GB"}
	v := float64(size)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + units[i]
}
