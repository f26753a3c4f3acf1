package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dsh2dsh/fecfile/cmd/internal/common"
	"github.com/dsh2dsh/fecfile/fec"
	"github.com/dsh2dsh/fecfile/writers"
)

var (
	exportFormat  string
	exportOutput  string
	exportMaxRows int
	exportStrict  bool
	exportLenient bool

	exportCmd = cobra.Command{
		Use:   "export [flags] source...",
		Short: "Parse filings and export their itemizations",
		Long: `Parse filings and export their itemizations.

Every source is either a path to a local .fec file or a numeric filing id,
fetched from docquery. Fetching by id requires the FEC_UA environment
variable set to a User-Agent identifying you, e.g.

  FEC_UA="Acme admin@acme.com"

Each filing is exported into its own directory (or workbook) under --output,
one file per form code encountered.`,
		Example: `
  - Export a local filing as CSV files under out/1896630/:

    $ fecfile export 1896630.fec

  - Fetch two filings from docquery and export them as parquet:

    $ fecfile export --format parquet 1896630 1896631`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cobra.CheckErr(exportSources(cmd.Context(), args))
		},
	}
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv",
		"output format: csv, parquet or xlsx")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "out",
		"output directory")
	exportCmd.Flags().IntVar(&exportMaxRows, "max-rows", 0,
		"max rows per batch (0 means the default)")
	exportCmd.Flags().BoolVar(&exportStrict, "strict", false,
		"fail on any malformed or surplus line content")
	exportCmd.Flags().BoolVar(&exportLenient, "lenient", false,
		"skip lines with unknown form codes instead of failing")
	rootCmd.AddCommand(&exportCmd)
}

func exportSources(ctx context.Context, sources []string) error {
	for _, source := range sources {
		if err := exportSource(ctx, source); err != nil {
			return fmt.Errorf("export %q: %w", source, err)
		}
	}
	return nil
}

func exportSource(ctx context.Context, source string) error {
	src, name, err := openSource(ctx, source)
	if err != nil {
		return err
	}
	defer src.Close()

	f := fec.New(src).
		WithMaxBatchRows(exportMaxRows).
		WithStrict(exportStrict).
		WithLenient(exportLenient).
		WithWarnFunc(func(err error) { log.Printf("%s: %s", source, err) })

	cover, err := f.Cover()
	if err != nil {
		return err
	}
	log.Printf("%s: %s filed by %s", source, cover.FormType,
		cover.FilerCommitteeID)

	sink, err := newSink(name)
	if err != nil {
		return err
	}
	counts, err := writers.Export(f, sink)
	if err != nil {
		return err
	}

	for code, rows := range counts {
		log.Printf("%s: %v: %v rows", source, code, rows)
	}
	return nil
}

// openSource opens a local file, or fetches the filing from docquery when
// source looks like a numeric filing id.
func openSource(ctx context.Context, source string,
) (io.ReadCloser, string, error) {
	if id, err := strconv.ParseUint(source, 10, 64); err == nil {
		fecClient, err := common.NewClient()
		if err != nil {
			return nil, "", err
		}
		resp, err := fecClient.GetFiling(ctx, id)
		if err != nil {
			return nil, "", err
		}
		return resp.Body, source, nil
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, "", fmt.Errorf("open %q: %w", source, err)
	}
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return f, name, nil
}

func newSink(name string) (writers.Sink, error) {
	switch exportFormat {
	case "csv":
		return writers.NewCSVSink(filepath.Join(exportOutput, name)), nil
	case "parquet":
		return writers.NewParquetSink(filepath.Join(exportOutput, name)), nil
	case "xlsx":
		if err := os.MkdirAll(exportOutput, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %q: %w", exportOutput, err)
		}
		return writers.NewXLSXSink(
			filepath.Join(exportOutput, name+".xlsx")), nil
	}
	return nil, fmt.Errorf("unknown format %q", exportFormat)
}
