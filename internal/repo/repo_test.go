package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDB is a canned Postgreser. Each Query call pops the next fakeRows from
// queued; CopyFrom forwards to copyFrom.
type fakeDB struct {
	t *testing.T

	queries  []string
	queued   []*fakeRows
	queryErr error

	copyFrom func(table pgx.Identifier, cols []string,
		src pgx.CopyFromSource) (int64, error)
}

func (self *fakeDB) Exec(ctx context.Context, sql string, args ...any,
) (pgconn.CommandTag, error) {
	self.queries = append(self.queries, sql)
	return pgconn.CommandTag{}, nil
}

func (self *fakeDB) Query(ctx context.Context, sql string, args ...any,
) (pgx.Rows, error) {
	self.queries = append(self.queries, sql)
	if self.queryErr != nil {
		return nil, self.queryErr
	}
	require.NotEmpty(self.t, self.queued, "unexpected query: %s", sql)
	rows := self.queued[0]
	self.queued = self.queued[1:]
	return rows, nil
}

func (self *fakeDB) CopyFrom(ctx context.Context, table pgx.Identifier,
	cols []string, src pgx.CopyFromSource,
) (int64, error) {
	require.NotNil(self.t, self.copyFrom, "unexpected CopyFrom")
	return self.copyFrom(table, cols, src)
}

func (self *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("not implemented")
}

// fakeRows implements just enough of pgx.Rows for CollectRows helpers.
type fakeRows struct {
	fields []string
	rows   [][]any

	i      int
	closed bool
}

func (self *fakeRows) Close()     { self.closed = true }
func (self *fakeRows) Err() error { return nil }

func (self *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (self *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	descrs := make([]pgconn.FieldDescription, len(self.fields))
	for i, name := range self.fields {
		descrs[i].Name = name
	}
	return descrs
}

func (self *fakeRows) Next() bool {
	if self.i >= len(self.rows) {
		return false
	}
	self.i++
	return true
}

func (self *fakeRows) Scan(dest ...any) error {
	// Mirror pgx.Rows.Scan: a single RowScanner destination scans itself.
	if len(dest) == 1 {
		if rs, ok := dest[0].(pgx.RowScanner); ok {
			return rs.ScanRow(self)
		}
	}
	row := self.rows[self.i-1]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *int64:
			*d = v.(int64)
		case *string:
			*d = v.(string)
		case *uint32:
			*d = v.(uint32)
		default:
			return errors.New("unsupported scan destination")
		}
	}
	return nil
}

func (self *fakeRows) Values() ([]any, error) { return self.rows[self.i-1], nil }
func (self *fakeRows) RawValues() [][]byte    { return nil }
func (self *fakeRows) Conn() *pgx.Conn        { return nil }

func testFiling() *Filing {
	f := &Filing{
		Source:     "1896630.fec",
		FECVersion: "8.1",
		SoftName:   "NetFile",
		FormType:   "F3N",
		FilerId:    "C00479188",
	}
	return f.WithSoftVer("1.2.3")
}

func TestRepo_AddFiling_inserted(t *testing.T) {
	db := &fakeDB{t: t, queued: []*fakeRows{
		{fields: []string{"id"}, rows: [][]any{{int64(42)}}},
	}}

	id, err := New(db).AddFiling(context.Background(), testFiling())
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "INSERT INTO filings")
}

func TestRepo_AddFiling_conflict(t *testing.T) {
	db := &fakeDB{t: t, queued: []*fakeRows{
		{fields: []string{"id"}},
		{fields: []string{"id"}, rows: [][]any{{int64(7)}}},
	}}

	id, err := New(db).AddFiling(context.Background(), testFiling())
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	require.Len(t, db.queries, 2)
	assert.Contains(t, db.queries[1], "SELECT id FROM filings")
}

func TestRepo_AddFiling_error(t *testing.T) {
	testErr := errors.New("expected error")
	db := &fakeDB{t: t, queryErr: testErr}

	_, err := New(db).AddFiling(context.Background(), testFiling())
	require.ErrorIs(t, err, testErr)
}

func TestRepo_CopyItemizations(t *testing.T) {
	// A hash with the high bit set bit-casts to a negative int64; it must
	// survive the copy unchanged.
	highBitBits := uint64(1)<<63 | 456
	highBitHash := int64(highBitBits)
	items := []Itemization{
		{FilingId: 42, FormCode: "SA11AI", LineIndex: 1, LineHash: 123,
			Fields: map[string]any{"contribution_amount": 250.0}},
		{FilingId: 42, FormCode: "SB23", LineIndex: 2, LineHash: highBitHash,
			Fields: map[string]any{"expenditure_amount": 100.0}},
	}

	var copied [][]any
	db := &fakeDB{t: t, copyFrom: func(table pgx.Identifier, cols []string,
		src pgx.CopyFromSource,
	) (int64, error) {
		assert.Equal(t, pgx.Identifier{"itemizations"}, table)
		assert.Equal(t, itemizationCols[:], cols)
		for src.Next() {
			values, err := src.Values()
			require.NoError(t, err)
			copied = append(copied, values)
		}
		return int64(len(copied)), nil
	}}

	err := New(db).CopyItemizations(context.Background(), len(items),
		func(i int) (Itemization, error) { return items[i], nil })
	require.NoError(t, err)
	require.Len(t, copied, 2)
	assert.Equal(t, "SA11AI", copied[0][1])
	assert.Equal(t, highBitHash, copied[1][3])
	assert.Negative(t, highBitHash)
}

func TestRepo_CopyItemizations_shortCopy(t *testing.T) {
	db := &fakeDB{t: t, copyFrom: func(table pgx.Identifier, cols []string,
		src pgx.CopyFromSource,
	) (int64, error) {
		return 0, nil
	}}

	err := New(db).CopyItemizations(context.Background(), 1,
		func(i int) (Itemization, error) { return Itemization{}, nil })
	require.ErrorContains(t, err, "copied 0 itemizations instead of 1")
}

func TestRepo_ItemizedCounts(t *testing.T) {
	db := &fakeDB{t: t, queued: []*fakeRows{
		{
			fields: []string{"form_code", "items"},
			rows: [][]any{
				{"SA11AI", uint32(2)},
				{"SB23", uint32(1)},
			},
		},
	}}

	counts, err := New(db).ItemizedCounts(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint32{"SA11AI": 2, "SB23": 1}, counts)
}
