package db

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dsh2dsh/fecfile/client"
	"github.com/dsh2dsh/fecfile/fec"
	"github.com/dsh2dsh/fecfile/internal/repo"
)

func NewUpload(fecClient *client.Client, repo Repo) *Upload {
	return &Upload{
		client: fecClient,
		repo:   repo,

		procs: 1,
	}
}

type Repo interface {
	AddFiling(ctx context.Context, filing *repo.Filing) (int64, error)
	ReplaceItemizations(ctx context.Context, filingId int64, length int,
		next func(i int) (repo.Itemization, error)) error
	ItemizedCounts(ctx context.Context, filingId int64,
	) (map[string]uint32, error)
}

type Upload struct {
	client *client.Client
	repo   Repo

	logger  *slog.Logger
	procs   int
	strict  bool
	lenient bool
}

func (self *Upload) WithLogger(l *slog.Logger) *Upload {
	self.logger = l
	return self
}

func (self *Upload) WithProcsLimit(n int) *Upload {
	self.procs = n
	return self
}

func (self *Upload) WithStrict(strict bool) *Upload {
	self.strict = strict
	return self
}

func (self *Upload) WithLenient(lenient bool) *Upload {
	self.lenient = lenient
	return self
}

// Each upload goroutine tags its logger with the filing source and carries
// it in the context, so warnings from nested calls stay attributable.
type loggerCtxKey struct{}

func contextWithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, l)
}

func contextLogger(ctx context.Context, def *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*slog.Logger); ok {
		return l
	}
	return def
}

func (self *Upload) log(ctx context.Context) *slog.Logger {
	if l := contextLogger(ctx, self.logger); l != nil {
		return l
	}
	return slog.Default()
}

// Upload parses every source and stores its itemizations, uploadProcs
// filings at a time.
func (self *Upload) Upload(sources []string) error {
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(self.procs)

	for _, source := range sources {
		if ctx.Err() != nil {
			break
		}
		source := source
		g.Go(func() error { return self.uploadSource(ctx, source) })
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("upload filings: %w", err)
	}
	return nil
}

func (self *Upload) uploadSource(parent context.Context, source string) error {
	l := self.log(parent).With(slog.String("source", source))
	ctx := contextWithLogger(parent, l)

	src, err := self.openSource(ctx, source)
	if err != nil {
		return err
	}
	defer src.Close()

	f := fec.New(src).
		WithStrict(self.strict).
		WithLenient(self.lenient).
		WithWarnFunc(func(err error) { l.Warn("skip line", "error", err) })

	filing, err := self.repoFiling(source, f)
	if err != nil {
		return fmt.Errorf("parse %q: %w", source, err)
	}

	filingId, err := self.repo.AddFiling(ctx, filing)
	if err != nil {
		return err //nolint:wrapcheck // wrapped by repo
	}
	l.Info("filing registered", "id", filingId,
		"form_type", filing.FormType, "filer", filing.FilerId)

	items, err := collectItemizations(f, filingId)
	if err != nil {
		return fmt.Errorf("parse %q: %w", source, err)
	}

	err = self.repo.ReplaceItemizations(ctx, filingId, len(items),
		func(i int) (repo.Itemization, error) { return items[i], nil })
	if err != nil {
		return err //nolint:wrapcheck // wrapped by repo
	}

	counts, err := self.repo.ItemizedCounts(ctx, filingId)
	if err != nil {
		return err //nolint:wrapcheck // wrapped by repo
	}
	for code, n := range counts {
		l.Info("stored", "form_code", code, "rows", n)
	}
	return nil
}

func (self *Upload) openSource(ctx context.Context, source string,
) (io.ReadCloser, error) {
	if id, err := strconv.ParseUint(source, 10, 64); err == nil {
		resp, err := self.client.GetFiling(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetch filing %v: %w", id, err)
		}
		return resp.Body, nil
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", source, err)
	}
	return f, nil
}

func (self *Upload) repoFiling(source string, f *fec.File,
) (*repo.Filing, error) {
	header, err := f.Header()
	if err != nil {
		return nil, err
	}
	cover, err := f.Cover()
	if err != nil {
		return nil, err
	}

	filing := &repo.Filing{
		Source:     source,
		FECVersion: header.FECVersion,
		SoftName:   header.SoftwareName,
		FormType:   cover.FormType,
		FilerId:    cover.FilerCommitteeID,
	}
	if header.SoftwareVersion.Valid {
		filing.WithSoftVer(header.SoftwareVersion.String)
	}
	if header.ReportID.Valid {
		filing.WithReportId(header.ReportID.String)
	}
	if header.ReportNumber.Valid {
		filing.WithReportNumber(header.ReportNumber.String)
	}
	return filing, nil
}

// collectItemizations drains the filing into repo rows. LineIndex numbers
// rows in the order batches emit them, not source line order.
func collectItemizations(f *fec.File, filingId int64,
) ([]repo.Itemization, error) {
	var items []repo.Itemization
	for {
		b, err := f.NextBatch()
		if err != nil {
			return nil, err
		} else if b == nil {
			return items, nil
		}

		for i := 0; i < b.Rows(); i++ {
			items = append(items, repoItemization(filingId, b, i,
				int32(len(items))+1))
		}
	}
}

func repoItemization(filingId int64, b *fec.Batch, row int, index int32,
) repo.Itemization {
	fields := make(map[string]any, len(b.Columns))
	digest := xxhash.New()
	for j := range b.Columns {
		v := b.Columns[j].Values[row]
		_, _ = digest.WriteString(v.String())
		_, _ = digest.Write([]byte{0x1c})
		if v.Valid {
			fields[b.Columns[j].Field.Name] = v.Any()
		}
	}

	return repo.Itemization{
		FilingId:  filingId,
		FormCode:  b.FormCode,
		LineIndex: index,
		LineHash:  int64(digest.Sum64()),
		Fields:    fields,
	}
}
