package fec

import "github.com/dsh2dsh/fecfile/fec/schemas"

// DefaultMaxBatchRows bounds batch memory the same way parquet row groups
// are bounded by default.
const DefaultMaxBatchRows = 1 << 20

// Batch is a bounded columnar table of itemizations sharing one form code.
// Batches are never empty.
type Batch struct {
	FormCode string
	Schema   *schemas.Schema
	Columns  []Column
}

type Column struct {
	Field  schemas.Field
	Values []Value
}

func (self *Batch) Rows() int {
	if len(self.Columns) == 0 {
		return 0
	}
	return len(self.Columns[0].Values)
}

// Row assembles row i across columns, in schema column order.
func (self *Batch) Row(i int) []Value {
	row := make([]Value, len(self.Columns))
	for j := range self.Columns {
		row[j] = self.Columns[j].Values[i]
	}
	return row
}

func newBatch(code string, schema *schemas.Schema) *Batch {
	b := &Batch{FormCode: code, Schema: schema,
		Columns: make([]Column, len(schema.Fields))}
	for i, f := range schema.Fields {
		b.Columns[i].Field = f
	}
	return b
}

func (self *Batch) append(rec *Record) {
	for i := range self.Columns {
		self.Columns[i].Values = append(self.Columns[i].Values, rec.Values[i])
	}
}

// accumulator groups records into per-form-code batches. A batch is emitted
// as soon as it reaches maxRows; flushNext drains the remainder at end of
// stream, one batch per call, in the order the form codes first appeared.
type accumulator struct {
	maxRows  int
	order    []string
	builders map[string]*Batch
	flushed  int
}

func newAccumulator(maxRows int) *accumulator {
	return &accumulator{maxRows: maxRows, builders: map[string]*Batch{}}
}

// accept appends rec to the batch under construction for its form code and
// returns that batch if it just became full.
func (self *accumulator) accept(rec *Record) *Batch {
	b, ok := self.builders[rec.FormCode]
	if !ok {
		b = newBatch(rec.FormCode, rec.Schema)
		self.builders[rec.FormCode] = b
		self.order = append(self.order, rec.FormCode)
	}

	b.append(rec)
	if b.Rows() < self.maxRows {
		return nil
	}
	self.builders[rec.FormCode] = newBatch(rec.FormCode, rec.Schema)
	return b
}

// flushNext returns the next non-empty in-progress batch, or nil when
// nothing is left.
func (self *accumulator) flushNext() *Batch {
	for self.flushed < len(self.order) {
		code := self.order[self.flushed]
		self.flushed++
		if b := self.builders[code]; b.Rows() > 0 {
			self.builders[code] = newBatch(code, b.Schema)
			return b
		}
	}
	return nil
}
