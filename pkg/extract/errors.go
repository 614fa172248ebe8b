package extract

import (
	"errors"
	"strings"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
)

var (
	// ErrMissingInputLayer is returned when a layer declared by the
	// recognizer has no region in the input map.
	ErrMissingInputLayer = errors.New("extract: missing input layer for device extraction")
	// ErrInvalidRegion is returned for input regions that are not deep.
	ErrInvalidRegion = errors.New("extract: input region must be of deep region kind")
	// ErrForeignRegion is returned for deep regions of another store.
	ErrForeignRegion = errors.New("extract: input region does not originate from the same source")
	// ErrNoDeviceClass is returned by CreateDevice before a class is registered.
	ErrNoDeviceClass = errors.New("extract: no device class registered")
	// ErrDeviceClassSet is returned when a second class is registered.
	ErrDeviceClassSet = errors.New("extract: device class already set")
	// ErrNoName is returned when registering a class on an unnamed extractor.
	ErrNoName = errors.New("extract: no device extractor/device class name set")
)

// ExtractorError is a recognition problem found in one cluster. It does not
// abort the extraction.
type ExtractorError struct {
	CellName            string
	Message             string
	CategoryName        string
	CategoryDescription string
	// Geometry is the offending shape in database units of the cell, or an
	// empty polygon.
	Geometry geom.Polygon
}

func (e ExtractorError) String() string {
	var sb strings.Builder
	if e.CategoryName != "" {
		sb.WriteByte('[')
		if e.CategoryDescription != "" {
			sb.WriteString(e.CategoryDescription)
		} else {
			sb.WriteString(e.CategoryName)
		}
		sb.WriteString("] ")
	}
	sb.WriteString(e.Message)
	if e.CellName != "" {
		sb.WriteString(", in cell: ")
		sb.WriteString(e.CellName)
	}
	if !e.Geometry.IsEmpty() {
		sb.WriteString(", shape: ")
		sb.WriteString(e.Geometry.String())
	}
	return sb.String()
}
