package writers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dsh2dsh/fecfile/fec"
)

// NewCSVSink writes one <code>.csv per form code into dir, with a header row
// of column names in schema order.
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: dir, files: map[string]*csvFile{}}
}

type CSVSink struct {
	dir    string
	files  map[string]*csvFile
	closed bool
}

type csvFile struct {
	f *os.File
	w *csv.Writer
}

func (self *CSVSink) Write(b *fec.Batch) error {
	cf, err := self.file(b)
	if err != nil {
		return err
	}

	row := make([]string, len(b.Columns))
	for i := 0; i < b.Rows(); i++ {
		for j := range b.Columns {
			row[j] = b.Columns[j].Values[i].String()
		}
		if err := cf.w.Write(row); err != nil {
			return fmt.Errorf("write %s row: %w", b.FormCode, err)
		}
	}
	return nil
}

func (self *CSVSink) file(b *fec.Batch) (*csvFile, error) {
	if cf, ok := self.files[b.FormCode]; ok {
		return cf, nil
	}

	if err := os.MkdirAll(self.dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %q: %w", self.dir, err)
	}
	path := filepath.Join(self.dir, normName(b.FormCode)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", path, err)
	}

	cf := &csvFile{f: f, w: csv.NewWriter(f)}
	header := make([]string, len(b.Schema.Fields))
	for i, field := range b.Schema.Fields {
		header[i] = field.Name
	}
	if err := cf.w.Write(header); err != nil {
		return nil, fmt.Errorf("write %q header: %w", path, err)
	}

	self.files[b.FormCode] = cf
	return cf, nil
}

// Close flushes and closes every open file. Each closure is independent of
// the others.
func (self *CSVSink) Close() error {
	if self.closed {
		return nil
	}
	self.closed = true

	var errs []error
	for code, cf := range self.files {
		cf.w.Flush()
		if err := cf.w.Error(); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", code, err))
		}
		if err := cf.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", code, err))
		}
	}
	return errors.Join(errs...)
}
