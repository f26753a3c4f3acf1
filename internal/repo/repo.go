// Package repo persists parsed filings and their itemizations in PostgreSQL.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var itemizationCols = [...]string{
	"filing_id", "form_code", "line_index", "line_hash", "fields",
}

func New(db Postgreser) *Repo {
	return &Repo{db: db}
}

type Repo struct {
	db Postgreser
}

type Postgreser interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string,
		rowSrc pgx.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AddFiling registers a filing by its source and returns its id. Uploading
// the same source twice returns the id of the existing row.
func (self *Repo) AddFiling(ctx context.Context, filing *Filing,
) (int64, error) {
	makeErr := func(err error) error {
		return fmt.Errorf("add filing %q: %w", filing.Source, err)
	}

	rows, err := self.db.Query(ctx, `
INSERT INTO filings (source,  fec_version,  soft_name,  soft_ver,
                     report_id,  report_number,  form_type,  filer_id)
  VALUES            (@source, @fec_version, @soft_name, @soft_ver,
                     @report_id, @report_number, @form_type, @filer_id)
  ON CONFLICT DO NOTHING
  RETURNING id`, filing.NamedArgs())
	if err != nil {
		return 0, makeErr(err)
	}

	if id, err := pgx.CollectOneRow(rows, pgx.RowTo[int64]); err == nil {
		return id, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return 0, makeErr(err)
	}

	rows, err = self.db.Query(ctx,
		`SELECT id FROM filings WHERE source = $1`, filing.Source)
	if err != nil {
		return 0, makeErr(err)
	}

	id, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, makeErr(err)
	}

	return id, nil
}

func (self *Repo) CopyItemizations(ctx context.Context, length int,
	next func(i int) (Itemization, error),
) error {
	return self.copyItemizations(ctx, self.db, length, next)
}

func (self *Repo) copyItemizations(ctx context.Context, conn Postgreser,
	length int, next func(i int) (Itemization, error),
) error {
	n, err := conn.CopyFrom(ctx, pgx.Identifier{"itemizations"},
		itemizationCols[:],
		pgx.CopyFromSlice(length, func(i int) ([]any, error) {
			item, err := next(i)
			if err != nil {
				return nil, err
			}
			values := []any{
				item.FilingId, item.FormCode, item.LineIndex, item.LineHash,
				item.Fields,
			}
			return values, nil
		}))
	if err != nil {
		return fmt.Errorf("failed copy %v itemizations: %w", length, err)
	} else if n != int64(length) {
		return fmt.Errorf("copied %v itemizations instead of %v", n, length)
	}
	return nil
}

// ReplaceItemizations drops everything stored for the filing and copies the
// new rows in one transaction. Re-uploading a source is idempotent this way.
func (self *Repo) ReplaceItemizations(ctx context.Context, filingId int64,
	length int, next func(i int) (Itemization, error),
) error {
	err := pgx.BeginFunc(ctx, self.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
DELETE FROM itemizations WHERE filing_id = $1`, filingId)
		if err != nil {
			return err //nolint:wrapcheck // wrap it below
		}
		return self.copyItemizations(ctx, tx, length, next)
	})
	if err != nil {
		return fmt.Errorf("repo.ReplaceItemizations: %w", err)
	}
	return nil
}

// ItemizedCounts returns how many itemizations the filing has per form code.
func (self *Repo) ItemizedCounts(ctx context.Context, filingId int64,
) (map[string]uint32, error) {
	rows, err := self.db.Query(ctx, `
SELECT form_code, COUNT(*) AS items FROM itemizations
  WHERE filing_id = $1
  GROUP BY form_code`, filingId)
	if err != nil {
		return nil, fmt.Errorf("repo.ItemizedCounts: %w", err)
	}

	type itemCount struct {
		FormCode string `db:"form_code"`
		Items    uint32 `db:"items"`
	}

	itemCounts, err := pgx.CollectRows(rows, pgx.RowToStructByName[itemCount])
	if err != nil {
		return nil, fmt.Errorf("repo.ItemizedCounts: %w", err)
	}

	counts := make(map[string]uint32, len(itemCounts))
	for _, item := range itemCounts {
		counts[item.FormCode] = item.Items
	}
	return counts, nil
}
