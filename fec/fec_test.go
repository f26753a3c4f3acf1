package fec

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsh2dsh/fecfile/fec/schemas"
)

const testHeader = "HDR,FEC,8.1,NetFile,1.2.3\n"

const testCover = "F3N,C00479188,Friends of Example\n"

const testSA = "SA11AI,C00479188,T1,,,IND,,Doe,John,,,," +
	"123 Main St,,Springfield,IL,62704,P2024,,20230404,250.00,350.00\n"

func testFiling(itemizations ...string) string {
	return testHeader + testCover + strings.Join(itemizations, "")
}

func TestFile_HeaderAndCover(t *testing.T) {
	f := New(strings.NewReader(testFiling()))

	h, err := f.Header()
	require.NoError(t, err)
	assert.Equal(t, "8.1", h.FECVersion)
	assert.Equal(t, "NetFile", h.SoftwareName)

	cover, err := f.Cover()
	require.NoError(t, err)
	assert.Equal(t, "F3N", cover.FormType)
	assert.Equal(t, "C00479188", cover.FilerCommitteeID)

	// Cached: same values on repeated calls.
	h2, err := f.Header()
	require.NoError(t, err)
	assert.Same(t, h, h2)
	cover2, err := f.Cover()
	require.NoError(t, err)
	assert.Same(t, cover, cover2)

	b, err := f.NextBatch()
	require.NoError(t, err)
	assert.Nil(t, b)
}

// New does no reading: a source that fails on the first byte breaks nothing
// until the header is actually asked for.
func TestFile_lazy(t *testing.T) {
	testErr := errors.New("connection reset")
	f := New(&brokenReader{err: testErr})

	_, err := f.Header()
	require.ErrorIs(t, err, testErr)
}

func TestFile_NextBatch(t *testing.T) {
	f := New(strings.NewReader(testFiling(
		testSA,
		"TEXT,C00479188,T2,T1,SA11AI,free form note\n",
		"SC/10,C00479188,T3,,IND,,Doe,John,,,,123 Main St,,Springfield,IL,"+
			"62704,P2024,,5000.00,0.00,5000.00\n",
	)))

	wantCodes := []string{"SA11AI", "TEXT", "SC/10"}
	for _, code := range wantCodes {
		b, err := f.NextBatch()
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, code, b.FormCode)
		assert.Equal(t, 1, b.Rows())
	}

	// Exhaustion is monotonic.
	for i := 0; i < 3; i++ {
		b, err := f.NextBatch()
		require.NoError(t, err)
		assert.Nil(t, b)
	}
}

func TestFile_typedValues(t *testing.T) {
	f := New(strings.NewReader(testFiling(testSA)))

	b, err := f.NextBatch()
	require.NoError(t, err)
	require.NotNil(t, b)
	require.Equal(t, 1, b.Rows())
	assert.Equal(t, "SA", b.Schema.Code)
	require.Len(t, b.Columns, 44)

	value := func(name string) Value {
		i, ok := b.Schema.FieldIndex(name)
		require.True(t, ok, name)
		return b.Columns[i].Values[0]
	}

	amount := value("contribution_amount")
	require.True(t, amount.Valid)
	assert.Equal(t, schemas.Decimal, amount.Type)
	assert.InEpsilon(t, 250.0, amount.Float, 1e-9)

	date := value("contribution_date")
	require.True(t, date.Valid)
	assert.Equal(t, time.Date(2023, time.April, 4, 0, 0, 0, 0, time.UTC),
		date.Date)
	assert.Equal(t, "2023-04-04", date.String())

	last := value("contributor_last_name")
	assert.Equal(t, "Doe", last.Text)

	// Trailing fields the filer omitted are absent, not an error.
	memo := value("memo_code")
	assert.False(t, memo.Valid)
	assert.Empty(t, memo.String())
}

func TestFile_maxBatchRows(t *testing.T) {
	f := New(strings.NewReader(testFiling(
		testSA, testSA, testSA, testSA, testSA,
	))).WithMaxBatchRows(2)

	var got []int
	for {
		b, err := f.NextBatch()
		require.NoError(t, err)
		if b == nil {
			break
		}
		assert.Equal(t, "SA11AI", b.FormCode)
		got = append(got, b.Rows())
	}
	assert.Equal(t, []int{2, 2, 1}, got)
}

func TestFile_drainInFirstEncounterOrder(t *testing.T) {
	f := New(strings.NewReader(testFiling(
		"SB23,C00479188,T10\n",
		testSA,
		"SB23,C00479188,T11\n",
	)))

	b, err := f.NextBatch()
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "SB23", b.FormCode)
	assert.Equal(t, 2, b.Rows())

	b, err = f.NextBatch()
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "SA11AI", b.FormCode)

	b, err = f.NextBatch()
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestFile_skipsBlankLines(t *testing.T) {
	f := New(strings.NewReader(testHeader + "\n" + testCover + "\n" + testSA))

	cover, err := f.Cover()
	require.NoError(t, err)
	assert.Equal(t, "F3N", cover.FormType)

	b, err := f.NextBatch()
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 1, b.Rows())
}

// An unknown form code aborts iteration unless the caller opted into
// lenient mode.
func TestFile_unknownCodeFatalByDefault(t *testing.T) {
	f := New(strings.NewReader(testFiling(
		"ZZ99,C00479188,whatever\n",
		testSA,
	)))

	_, err := f.NextBatch()
	require.ErrorIs(t, err, &UnknownSchemaError{})
}

func TestFile_lenientSkipsUnknownCode(t *testing.T) {
	var warns []error
	f := New(strings.NewReader(testFiling(
		"ZZ99,C00479188,whatever\n",
		testSA,
	))).
		WithLenient(true).
		WithWarnFunc(func(err error) { warns = append(warns, err) })

	b, err := f.NextBatch()
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "SA11AI", b.FormCode)

	require.NotEmpty(t, warns)
	assert.ErrorIs(t, warns[0], &UnknownSchemaError{})
}

// Strict mode wins over lenient: everything skippable becomes fatal.
func TestFile_strictUnknownCode(t *testing.T) {
	f := New(strings.NewReader(testFiling(
		"ZZ99,C00479188,whatever\n",
	))).WithLenient(true).WithStrict(true)

	_, err := f.NextBatch()
	require.ErrorIs(t, err, &UnknownSchemaError{})
}

func TestFile_surplusFields(t *testing.T) {
	line := "TEXT,C00479188,T2,TEXT,T1,SA11AI,note,surplus1,surplus2\n"

	var warns []error
	f := New(strings.NewReader(testFiling(line))).
		WithWarnFunc(func(err error) { warns = append(warns, err) })
	b, err := f.NextBatch()
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 1, b.Rows())
	assert.NotEmpty(t, warns)

	f = New(strings.NewReader(testFiling(line))).WithStrict(true)
	_, err = f.NextBatch()
	require.ErrorIs(t, err, &MalformedLineError{})
}

func TestFile_lenientCoercionFailure(t *testing.T) {
	bad := strings.Replace(testSA, "20230404", "04/04/2023", 1)

	var warns []error
	f := New(strings.NewReader(testFiling(bad))).
		WithWarnFunc(func(err error) { warns = append(warns, err) })

	b, err := f.NextBatch()
	require.NoError(t, err)
	require.NotNil(t, b)

	i, ok := b.Schema.FieldIndex("contribution_date")
	require.True(t, ok)
	assert.False(t, b.Columns[i].Values[0].Valid)
	assert.NotEmpty(t, warns)

	f = New(strings.NewReader(testFiling(bad))).WithStrict(true)
	_, err = f.NextBatch()
	require.ErrorIs(t, err, &MalformedLineError{})
}

func TestFile_coverErrors(t *testing.T) {
	t.Run("missing cover", func(t *testing.T) {
		f := New(strings.NewReader(testHeader))
		_, err := f.Cover()
		require.ErrorIs(t, err, &CoverParseError{})
	})

	t.Run("unknown cover code", func(t *testing.T) {
		f := New(strings.NewReader(testHeader + "ZZ99,C00479188\n"))
		_, err := f.Cover()
		require.ErrorIs(t, err, &CoverParseError{})
		assert.ErrorIs(t, err, &UnknownSchemaError{})
	})

	t.Run("cover without filer id", func(t *testing.T) {
		f := New(strings.NewReader(testHeader + "F3N\n"))
		_, err := f.Cover()
		require.ErrorIs(t, err, &CoverParseError{})
	})
}

func TestFile_ascii28(t *testing.T) {
	src := "HDR\x1cFEC\x1c8.1\x1cNGP\x1c8\n" +
		"F3N\x1cC00479188\n" +
		"SA11AI\x1cC00479188\x1cT1\x1c\x1c\x1cIND\x1c\x1cDoe, Jr\x1cJohn\n"

	f := New(strings.NewReader(src))
	b, err := f.NextBatch()
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "SA11AI", b.FormCode)

	i, ok := b.Schema.FieldIndex("contributor_last_name")
	require.True(t, ok)
	assert.Equal(t, "Doe, Jr", b.Columns[i].Values[0].Text)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filing.fec")
	require.NoError(t, os.WriteFile(path, []byte(testFiling(testSA)), 0o600))

	f, err := Open(path)
	require.NoError(t, err)

	b, err := f.NextBatch()
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 1, b.Rows())

	require.NoError(t, f.Close())
}

func TestOpen_missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "no-such.fec"))
	require.Error(t, err)
}
