// Package document converts between a point store and the annotation JSON document that is
// exchanged with the upload and review services.
package document

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/xiaomayi-bee/CleftLip/internal/catalog"
	"github.com/xiaomayi-bee/CleftLip/internal/points"
	"github.com/xiaomayi-bee/CleftLip/internal/validation"
)

const (
	FormatVersion = "1.0"
	Software      = "医学图像标点标注系统"

	DefaultPhase = "幼儿期术前"
	DefaultAngle = "正面"
)

// Phases and Angles are the choices offered in the patient form. Other values are accepted.
var (
	Phases = []string{"幼儿期术前", "幼儿期术后", "儿童期术前", "儿童期术后", "成人期术前", "成人期术后"}
	Angles = []string{"正面", "左侧面", "右侧面", "仰视", "俯视"}
)

// ErrMissingPatientID is returned by Export when the patient id is empty or not all digits.
var ErrMissingPatientID = errors.New("patient id is missing or not numeric")

// PatientInfo identifies whose photograph was annotated.
type PatientInfo struct {
	PatientID string `json:"patient_id" validate:"required,patientid"`
	Phase     string `json:"phase"`
	Angle     string `json:"angle"`
}

// WithDefaults fills an empty phase or angle.
func (p PatientInfo) WithDefaults() PatientInfo {
	if p.Phase == "" {
		p.Phase = DefaultPhase
	}
	if p.Angle == "" {
		p.Angle = DefaultAngle
	}
	return p
}

// Validate returns ErrMissingPatientID for an unusable id.
func (p PatientInfo) Validate() error {
	if err := validation.Struct(p); err != nil {
		return fmt.Errorf("%w: %q", ErrMissingPatientID, p.PatientID)
	}
	return nil
}

// ImageInfo describes the annotated photograph.
type ImageInfo struct {
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	OriginalWidth  int    `json:"original_width"`
	OriginalHeight int    `json:"original_height"`
	Format         string `json:"format"`
	FileName       string `json:"file_name"`
	FileSize       int64  `json:"file_size"`

	Resolution  string `json:"resolution,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	DPI         int    `json:"dpi,omitempty"`
	ColorDepth  int    `json:"color_depth,omitempty"`
	Compression string `json:"compression,omitempty"`
	Orientation string `json:"orientation,omitempty"`
}

// NewImageInfo fills the derived descriptive fields from the pixel size.
func NewImageInfo(fileName, format string, fileSize int64, width, height int) ImageInfo {
	info := ImageInfo{
		Width:          width,
		Height:         height,
		OriginalWidth:  width,
		OriginalHeight: height,
		Format:         format,
		FileName:       fileName,
		FileSize:       fileSize,
		Resolution:     fmt.Sprintf("%d x %d pixels", width, height),
		DPI:            72,
		ColorDepth:     24,
		Compression:    "none",
	}
	if height > 0 {
		info.AspectRatio = strconv.FormatFloat(float64(width)/float64(height), 'f', 3, 64)
	}
	switch {
	case width > height:
		info.Orientation = "landscape"
	case width < height:
		info.Orientation = "portrait"
	default:
		info.Orientation = "square"
	}
	return info
}

// PointRecord is one catalog entry in the exported points list. ID is the catalog index.
type PointRecord struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Exists   bool       `json:"exists"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	MarkedAt *time.Time `json:"marked_at,omitempty"`
}

type SystemInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Software  string    `json:"software,omitempty"`
}

type Statistics struct {
	TotalPoints    int   `json:"total_points"`
	MarkedPoints   int   `json:"marked_points"`
	UnmarkedPoints int   `json:"unmarked_points"`
	MarkingRatio   Ratio `json:"marking_ratio"`
}

// Ratio is a fraction written as a three-decimal string, e.g. "0.333". Plain numbers are
// accepted when decoding. An unreadable ratio decodes as 0: statistics are recomputed on
// export, so a bad value is not a reason to reject the document.
type Ratio float64

func (r Ratio) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatFloat(float64(r), 'f', 3, 64))), nil
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	s := string(data)
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*r = 0
		return nil
	}
	*r = Ratio(f)
	return nil
}

// Document is a complete annotation of one photograph.
type Document struct {
	Patient    PatientInfo   `json:"patient_info"`
	Image      ImageInfo     `json:"image_info"`
	Points     []PointRecord `json:"points"`
	System     SystemInfo    `json:"system_info"`
	Statistics Statistics    `json:"statistics"`
	Audit      *AuditRecord  `json:"audit,omitempty"`
}

// Export builds a document listing every catalog name in catalog order. Names without a
// present entry in pts are written absent at (-1,-1). Entries whose name is not in the
// catalog are not exported.
func Export(pts []points.Point, cat *catalog.Catalog, patient PatientInfo, img ImageInfo, now time.Time) (*Document, error) {
	if err := patient.Validate(); err != nil {
		return nil, err
	}

	byName := make(map[string]points.Point, len(pts))
	for _, p := range pts {
		byName[p.Name] = p
	}

	records := make([]PointRecord, cat.Len())
	for i, name := range cat.Names() {
		rec := PointRecord{ID: i, Name: name, X: points.AbsentCoord, Y: points.AbsentCoord}
		if p, ok := byName[name]; ok && p.Exists {
			rec.Exists = true
			rec.X, rec.Y = p.X, p.Y
		}
		records[i] = rec
	}

	return &Document{
		Patient: patient.WithDefaults(),
		Image:   img,
		Points:  records,
		System: SystemInfo{
			Timestamp: now.UTC(),
			Version:   FormatVersion,
			Software:  Software,
		},
		Statistics: ComputeStatistics(records),
	}, nil
}

// ComputeStatistics counts present records.
func ComputeStatistics(records []PointRecord) Statistics {
	s := Statistics{TotalPoints: len(records)}
	for _, r := range records {
		if r.Exists {
			s.MarkedPoints++
		}
	}
	s.UnmarkedPoints = s.TotalPoints - s.MarkedPoints
	if s.TotalPoints > 0 {
		s.MarkingRatio = Ratio(float64(s.MarkedPoints) / float64(s.TotalPoints))
	}
	return s
}

// StorePoints converts the records back into store entries. A record without marked_at is
// stamped with now.
func (d *Document) StorePoints(now time.Time) []points.Point {
	out := make([]points.Point, len(d.Points))
	for i, r := range d.Points {
		p := points.Point{Name: r.Name, X: r.X, Y: r.Y, Exists: r.Exists, MarkedAt: now}
		if r.MarkedAt != nil {
			p.MarkedAt = *r.MarkedAt
		}
		out[i] = p
	}
	return out
}

// UnknownNames returns point names in d that cat does not contain.
func (d *Document) UnknownNames(cat *catalog.Catalog) []string {
	var unknown []string
	for _, r := range d.Points {
		if !cat.Contains(r.Name) {
			unknown = append(unknown, r.Name)
		}
	}
	return unknown
}
