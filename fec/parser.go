package fec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dsh2dsh/fecfile/fec/schemas"
)

// rowsParser turns the lines after the header into typed records. It owns
// the line reader once the header has been consumed.
//
// The default policy: short lines get absent trailing fields, surplus
// fields are kept as raw text, a field that fails coercion becomes absent,
// and lines with broken quoting are skipped. An unknown form code is fatal
// unless the caller opted into lenient mode, which skips those lines too.
// Every degradation is surfaced through warn. Strict mode turns all of them
// into errors.
type rowsParser struct {
	lr      *lineReader
	sep     Sep
	version string
	strict  bool
	lenient bool
	warn    func(error)
}

// next returns the next parsed record, io.EOF at end of stream, or an error
// per the policy above.
func (self *rowsParser) next() (*Record, error) {
	for {
		line, err := self.lr.Next()
		if err != nil {
			return nil, err
		} else if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := self.parseLine(line)
		if err != nil {
			if !self.skippable(err) {
				return nil, err
			}
			self.warnf(err)
			continue
		}
		return rec, nil
	}
}

// Fatal kinds (ReadError) always unwind. Malformed lines are skipped by
// default; unknown form codes are skipped only in lenient mode.
func (self *rowsParser) skippable(err error) bool {
	if self.strict {
		return false
	}
	if errors.Is(err, &MalformedLineError{}) {
		return true
	}
	return self.lenient && errors.Is(err, &UnknownSchemaError{})
}

func (self *rowsParser) parseLine(line string) (*Record, error) {
	fields, err := splitFields(line, self.sep)
	if err != nil {
		return nil, &MalformedLineError{Line: self.lr.Line(), Err: err}
	}

	code := strings.ToUpper(strings.TrimSpace(fields[0]))
	if code == "" {
		return nil, &MalformedLineError{
			Line: self.lr.Line(), Err: errors.New("empty form code"),
		}
	}

	schema, err := schemas.Lookup(code, self.version)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", self.lr.Line(), err)
	}
	return self.makeRecord(code, schema, fields[1:])
}

func (self *rowsParser) makeRecord(code string, schema *schemas.Schema,
	raw []string,
) (*Record, error) {
	rec := &Record{
		FormCode: code,
		Line:     self.lr.Line(),
		Schema:   schema,
		Values:   make([]Value, len(schema.Fields)),
	}

	for i, f := range schema.Fields {
		if i >= len(raw) {
			// Trailing fields omitted by the filer: absent, never an error.
			rec.Values[i] = absentValue(f.Type)
			continue
		}
		v, err := coerceValue(f.Type, strings.TrimSpace(raw[i]))
		if err != nil {
			if self.strict {
				return nil, &MalformedLineError{Line: rec.Line, Err: fmt.Errorf(
					"field %q of %s: %w", f.Name, code, err)}
			}
			self.warnf(fmt.Errorf("line %d: field %q of %s becomes absent: %w",
				rec.Line, f.Name, code, err))
		}
		rec.Values[i] = v
	}

	if len(raw) > len(schema.Fields) {
		if self.strict {
			return nil, &MalformedLineError{Line: rec.Line, Err: fmt.Errorf(
				"%d fields, schema %s has %d", len(raw), code, len(schema.Fields))}
		}
		rec.Extra = raw[len(schema.Fields):]
		self.warnf(fmt.Errorf("line %d: %d surplus fields on %s kept as text",
			rec.Line, len(rec.Extra), code))
	}
	return rec, nil
}

func (self *rowsParser) warnf(err error) {
	if self.warn != nil {
		self.warn(err)
	}
}
