package fec

import (
	"fmt"

	"github.com/dsh2dsh/fecfile/fec/schemas"
)

// UnknownSchemaError reports an itemization whose form code and fec version
// resolve to no registered schema.
type UnknownSchemaError = schemas.UnknownSchemaError

// ReadError reports a failure of the underlying byte stream, as opposed to
// end of stream or a malformed filing.
type ReadError struct {
	Line   int
	Offset int64
	Err    error
}

func (self *ReadError) Error() string {
	return fmt.Sprintf("read filing at line %d (offset %d): %v",
		self.Line, self.Offset, self.Err)
}

func (self *ReadError) Unwrap() error { return self.Err }

func (self *ReadError) Is(target error) bool {
	_, ok := target.(*ReadError)
	return ok
}

// HeaderParseError is fatal: without a header there is no fec version and no
// schema can be resolved for anything that follows.
type HeaderParseError struct {
	Message string
	Read    string
}

func (self *HeaderParseError) Error() string {
	return fmt.Sprintf("parse header: %s (read %q)", self.Message, self.Read)
}

func (self *HeaderParseError) Is(target error) bool {
	_, ok := target.(*HeaderParseError)
	return ok
}

// CoverParseError is fatal: the cover identifies the filing and every filing
// must have one as its second line.
type CoverParseError struct {
	Line int
	Err  error
}

func (self *CoverParseError) Error() string {
	return fmt.Sprintf("parse cover at line %d: %v", self.Line, self.Err)
}

func (self *CoverParseError) Unwrap() error { return self.Err }

func (self *CoverParseError) Is(target error) bool {
	_, ok := target.(*CoverParseError)
	return ok
}

// MalformedLineError reports a single itemization line that could not be
// split into fields. In lenient mode the line is skipped and surfaced as a
// warning.
type MalformedLineError struct {
	Line int
	Err  error
}

func (self *MalformedLineError) Error() string {
	return fmt.Sprintf("malformed line %d: %v", self.Line, self.Err)
}

func (self *MalformedLineError) Unwrap() error { return self.Err }

func (self *MalformedLineError) Is(target error) bool {
	_, ok := target.(*MalformedLineError)
	return ok
}
