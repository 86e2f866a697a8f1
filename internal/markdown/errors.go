package markdown

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingBody is returned when a document has no usable body element.
	ErrMissingBody = errors.New("document has no body")
	// ErrMissingAttribute marks an element lacking an attribute it cannot do without.
	ErrMissingAttribute = errors.New("missing required attribute")
	// ErrTooDeep is returned for subtrees nested deeper than the emitter allows.
	ErrTooDeep = errors.New("element nesting too deep")

	errEmptyDocument = errors.New("empty document")
)

// ParseError reports that raw markup could not be turned into a tree.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse html: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NodeError is the failure of a single element. The emitter replaces the
// element's output with an error marker and keeps going.
type NodeError struct {
	Tag  string
	Attr string
	Err  error
}

func (e *NodeError) Error() string {
	if e.Attr != "" {
		return fmt.Sprintf("<%s> %s: %v", e.Tag, e.Attr, e.Err)
	}
	return fmt.Sprintf("<%s>: %v", e.Tag, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
