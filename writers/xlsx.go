package writers

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/dsh2dsh/fecfile/fec"
	"github.com/dsh2dsh/fecfile/fec/schemas"
)

// NewXLSXSink collects all batches into one workbook at path, one sheet per
// form code. The workbook is kept in memory and saved on Close.
func NewXLSXSink(path string) *XLSXSink {
	return &XLSXSink{
		path:   path,
		book:   excelize.NewFile(),
		sheets: map[string]*xlsxSheet{},
	}
}

type XLSXSink struct {
	path   string
	book   *excelize.File
	sheets map[string]*xlsxSheet
	closed bool
}

type xlsxSheet struct {
	name string
	rows int
}

func (self *XLSXSink) Write(b *fec.Batch) error {
	sheet, err := self.sheet(b)
	if err != nil {
		return err
	}

	row := make([]any, len(b.Columns))
	for i := 0; i < b.Rows(); i++ {
		for j := range b.Columns {
			row[j] = xlsxValue(b.Columns[j].Values[i])
		}
		sheet.rows++
		cell, err := excelize.CoordinatesToCellName(1, sheet.rows)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", sheet.rows, err)
		}
		if err := self.book.SetSheetRow(sheet.name, cell, &row); err != nil {
			return fmt.Errorf("write %s row: %w", b.FormCode, err)
		}
	}
	return nil
}

// xlsxValue keeps numbers as numbers so the spreadsheet stays sortable.
// Everything else, dates included, is rendered as text.
func xlsxValue(v fec.Value) any {
	if !v.Valid {
		return nil
	}
	switch v.Type {
	case schemas.Integer:
		return v.Int
	case schemas.Decimal:
		return v.Float
	}
	return v.String()
}

func (self *XLSXSink) sheet(b *fec.Batch) (*xlsxSheet, error) {
	if sheet, ok := self.sheets[b.FormCode]; ok {
		return sheet, nil
	}

	name := normName(b.FormCode)
	if _, err := self.book.NewSheet(name); err != nil {
		return nil, fmt.Errorf("new sheet %q: %w", name, err)
	}

	header := make([]any, len(b.Schema.Fields))
	for i, f := range b.Schema.Fields {
		header[i] = f.Name
	}
	if err := self.book.SetSheetRow(name, "A1", &header); err != nil {
		return nil, fmt.Errorf("write %q header: %w", name, err)
	}

	sheet := &xlsxSheet{name: name, rows: 1}
	self.sheets[b.FormCode] = sheet
	return sheet, nil
}

// Close drops the default empty sheet and saves the workbook.
func (self *XLSXSink) Close() error {
	if self.closed {
		return nil
	}
	self.closed = true

	if len(self.sheets) > 0 {
		if err := self.book.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("delete default sheet: %w", err)
		}
	}
	if err := self.book.SaveAs(self.path); err != nil {
		return fmt.Errorf("save workbook %q: %w", self.path, err)
	}
	if err := self.book.Close(); err != nil {
		return fmt.Errorf("close workbook: %w", err)
	}
	return nil
}
