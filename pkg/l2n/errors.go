package l2n

import (
	"errors"
	"fmt"
)

var (
	// ErrClippedLayout is returned for iterators restricted to a region.
	ErrClippedLayout = errors.New("l2n: the netlist extractor cannot work on clipped layouts")
	// ErrAlreadyExtracted is returned by operations that must run before
	// net extraction.
	ErrAlreadyExtracted = errors.New("l2n: the netlist has already been extracted")
	// ErrNotExtracted is returned by queries that need an extracted netlist.
	ErrNotExtracted = errors.New("l2n: the netlist has not been extracted yet")
	// ErrNotDeep is returned when a flat region is passed where a
	// hierarchical one is required.
	ErrNotDeep = errors.New("l2n: non-hierarchical layers cannot be used in netlist extraction")
	// ErrUnknownLayer is returned for layer names that were never registered.
	ErrUnknownLayer = errors.New("l2n: not a valid layer name")
)

// ParseError is a failure while reading the netlist text format.
type ParseError struct {
	Msg  string
	Line int
	Path string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s in line: %d of %s", e.Msg, e.Line, e.Path)
}
