// Package writers materializes batches of parsed itemizations into external
// representations: CSV files, parquet files or a spreadsheet, one output per
// form code encountered.
package writers

import (
	"fmt"
	"strings"

	"github.com/dsh2dsh/fecfile/fec"
)

// Sink consumes batches. Implementations open one output resource per form
// code on its first batch and finalize all of them on Close.
type Sink interface {
	Write(b *fec.Batch) error
	Close() error
}

// Export drives src to exhaustion, feeding every batch to sink, and closes
// the sink. It returns the number of rows written per form code.
func Export(src *fec.File, sink Sink) (map[string]int, error) {
	rows := map[string]int{}
	for {
		b, err := src.NextBatch()
		if err != nil {
			return rows, fmt.Errorf("next batch: %w", err)
		} else if b == nil {
			break
		}
		if err := sink.Write(b); err != nil {
			return rows, err
		}
		rows[b.FormCode] += b.Rows()
	}

	if err := sink.Close(); err != nil {
		return rows, err
	}
	return rows, nil
}

// normName derives an output name from a form code: lower case, any
// non-alphanumeric byte becomes an underscore ("SC/10" -> "sc_10").
func normName(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range strings.ToLower(code) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
