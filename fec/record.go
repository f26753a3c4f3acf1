package fec

import (
	"strconv"
	"time"

	"github.com/dsh2dsh/fecfile/fec/schemas"
)

const dateLayout = "20060102"

// Text is an optional string: filings regularly omit trailing fields, and an
// omitted field is not the same as an empty one.
type Text struct {
	String string
	Valid  bool
}

// Value is one typed cell of an itemization record. Valid is false for
// fields the filing omitted or that failed coercion.
type Value struct {
	Type  schemas.ValueType
	Valid bool

	Text  string
	Int   int64
	Float float64
	Date  time.Time
}

func absentValue(t schemas.ValueType) Value { return Value{Type: t} }

// coerceValue parses raw into a typed Value. A blank raw field counts as
// absent. Coercion failure is reported but the returned Value is still
// usable as absent.
func coerceValue(t schemas.ValueType, raw string) (Value, error) {
	if raw == "" {
		return absentValue(t), nil
	}
	v := Value{Type: t, Valid: true}
	switch t {
	case schemas.Integer:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return absentValue(t), err
		}
		v.Int = i
	case schemas.Decimal:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return absentValue(t), err
		}
		v.Float = f
	case schemas.Date:
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return absentValue(t), err
		}
		v.Date = d
	default:
		v.Text = raw
	}
	return v, nil
}

// String renders the value the way the row-oriented sinks write it. Absent
// values render as the empty string.
func (self Value) String() string {
	if !self.Valid {
		return ""
	}
	switch self.Type {
	case schemas.Integer:
		return strconv.FormatInt(self.Int, 10)
	case schemas.Decimal:
		return strconv.FormatFloat(self.Float, 'f', -1, 64)
	case schemas.Date:
		return self.Date.Format("2006-01-02")
	}
	return self.Text
}

// Any returns the value as a plain Go type, or nil if absent.
func (self Value) Any() any {
	if !self.Valid {
		return nil
	}
	switch self.Type {
	case schemas.Integer:
		return self.Int
	case schemas.Decimal:
		return self.Float
	case schemas.Date:
		return self.Date
	}
	return self.Text
}

// Record is one parsed itemization line. Values always has exactly
// len(Schema.Fields) entries; fields the line omitted are absent. Surplus
// raw fields beyond the schema, if any, are kept verbatim in Extra.
type Record struct {
	FormCode string
	Line     int
	Schema   *schemas.Schema
	Values   []Value
	Extra    []string
}

func (self *Record) Get(name string) (Value, bool) {
	i, ok := self.Schema.FieldIndex(name)
	if !ok {
		return Value{}, false
	}
	return self.Values[i], true
}
