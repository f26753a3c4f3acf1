package repo

import (
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Filing mirrors one row of the filings table. Source identifies where the
// filing came from (a local path or a docquery URL) and is unique.
type Filing struct {
	Id     int64  `db:"id"`
	Source string `db:"source"`

	FECVersion   string      `db:"fec_version"`
	SoftName     string      `db:"soft_name"`
	SoftVer      pgtype.Text `db:"soft_ver"`
	ReportId     pgtype.Text `db:"report_id"`
	ReportNumber pgtype.Text `db:"report_number"`

	FormType string `db:"form_type"`
	FilerId  string `db:"filer_id"`
}

func (self *Filing) WithSoftVer(v string) *Filing {
	self.SoftVer = pgtype.Text{String: v, Valid: true}
	return self
}

func (self *Filing) WithReportId(id string) *Filing {
	self.ReportId = pgtype.Text{String: id, Valid: true}
	return self
}

func (self *Filing) WithReportNumber(n string) *Filing {
	self.ReportNumber = pgtype.Text{String: n, Valid: true}
	return self
}

func (self *Filing) NamedArgs() pgx.NamedArgs {
	return pgx.NamedArgs{
		"source": self.Source,

		"fec_version":   self.FECVersion,
		"soft_name":     self.SoftName,
		"soft_ver":      self.SoftVer,
		"report_id":     self.ReportId,
		"report_number": self.ReportNumber,

		"form_type": self.FormType,
		"filer_id":  self.FilerId,
	}
}

// Itemization mirrors one row of the itemizations table. Fields holds the
// coerced record as jsonb; LineHash is the xxhash of the rendered cells,
// bit-cast to int64 because the column is BIGINT and pgx refuses uint64
// values above MaxInt64. It exists for cheap change detection.
type Itemization struct {
	FilingId  int64          `db:"filing_id"`
	FormCode  string         `db:"form_code"`
	LineIndex int32          `db:"line_index"`
	LineHash  int64          `db:"line_hash"`
	Fields    map[string]any `db:"fields"`
}
