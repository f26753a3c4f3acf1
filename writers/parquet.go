package writers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/dsh2dsh/fecfile/fec"
	"github.com/dsh2dsh/fecfile/fec/schemas"
)

// NewParquetSink writes one <code>.parquet per form code into dir. Batches
// map onto row groups directly, so the columnar shape survives the trip.
func NewParquetSink(dir string) *ParquetSink {
	return &ParquetSink{dir: dir, files: map[string]*parquetFile{}}
}

type ParquetSink struct {
	dir    string
	files  map[string]*parquetFile
	closed bool
}

type parquetFile struct {
	f *os.File
	w *parquet.GenericWriter[map[string]any]
}

func (self *ParquetSink) Write(b *fec.Batch) error {
	pf, err := self.file(b)
	if err != nil {
		return err
	}

	rows := make([]map[string]any, b.Rows())
	for i := range rows {
		row := make(map[string]any, len(b.Columns))
		for j := range b.Columns {
			v := b.Columns[j].Values[i]
			if !v.Valid {
				continue
			}
			row[b.Columns[j].Field.Name] = parquetValue(v)
		}
		rows[i] = row
	}

	if _, err := pf.w.Write(rows); err != nil {
		return fmt.Errorf("write %s rows: %w", b.FormCode, err)
	}
	return nil
}

var unixEpoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

func parquetValue(v fec.Value) any {
	switch v.Type {
	case schemas.Integer:
		return v.Int
	case schemas.Decimal:
		return v.Float
	case schemas.Date:
		// DATE logical type: days since the unix epoch.
		return int32(v.Date.Sub(unixEpoch) / (24 * time.Hour))
	}
	return v.Text
}

func (self *ParquetSink) file(b *fec.Batch) (*parquetFile, error) {
	if pf, ok := self.files[b.FormCode]; ok {
		return pf, nil
	}

	if err := os.MkdirAll(self.dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %q: %w", self.dir, err)
	}
	name := normName(b.FormCode)
	path := filepath.Join(self.dir, name+".parquet")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", path, err)
	}

	pf := &parquetFile{
		f: f,
		w: parquet.NewGenericWriter[map[string]any](f,
			parquetSchema(name, b.Schema)),
	}
	self.files[b.FormCode] = pf
	return pf, nil
}

func parquetSchema(name string, schema *schemas.Schema) *parquet.Schema {
	group := make(parquet.Group, len(schema.Fields))
	for _, f := range schema.Fields {
		var node parquet.Node
		switch f.Type {
		case schemas.Integer:
			node = parquet.Int(64)
		case schemas.Decimal:
			node = parquet.Leaf(parquet.DoubleType)
		case schemas.Date:
			node = parquet.Date()
		default:
			node = parquet.String()
		}
		group[f.Name] = parquet.Optional(node)
	}
	return parquet.NewSchema(name, group)
}

func (self *ParquetSink) Close() error {
	if self.closed {
		return nil
	}
	self.closed = true

	var errs []error
	for code, pf := range self.files {
		if err := pf.w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("finalize %s: %w", code, err))
		}
		if err := pf.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", code, err))
		}
	}
	return errors.Join(errs...)
}
