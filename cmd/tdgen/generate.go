package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mmrzaf/tdgen/internal/app"
	"github.com/mmrzaf/tdgen/internal/domain"
	"github.com/mmrzaf/tdgen/internal/registry"
)

type generateOptions struct {
	format       string
	rows         int64
	output       string
	request      string
	seed         int64
	batchSize    int
	validateOnly bool
	quiet        bool
	columns      columnFlags
	file         domain.FormatOptions
}

func generateCmd() *cobra.Command {
	var o generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a data file",
		Example: `  tdgen generate -f csv -r 100 -c 5 -o test.csv
  tdgen generate -f json -r 50 -c 3 --column-types name,email,phone -o users.json
  tdgen generate -f xlsx -r 1000 -c 4 --column-types integer,float,boolean,text \
    --min-values 0,0.0,None,None --max-values 100,1000.0,None,None -o data.xlsx
  tdgen generate --request people --rows 5000 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := o.buildRequest(cmd)
			if err != nil {
				return err
			}
			return runGenerate(cmd.Context(), req, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.format, "format", "f", "csv", "Output file format")
	f.Int64VarP(&o.rows, "rows", "r", 100, "Number of rows to generate")
	f.IntVarP(&o.columns.count, "columns", "c", 5, "Number of columns to generate")
	f.StringVarP(&o.output, "output", "o", "", "Output file path (extension is appended when missing)")
	f.StringVar(&o.request, "request", "", "Preset ID, name or file to start from")
	f.StringSliceVar(&o.columns.types, "column-types", nil, "Data types for columns, cycled")
	f.StringSliceVar(&o.columns.names, "column-names", nil, "Names for columns, cycled (default Column_N)")
	f.StringSliceVar(&o.columns.mins, "min-values", nil, "Minimum values for numeric columns (None to skip)")
	f.StringSliceVar(&o.columns.maxs, "max-values", nil, "Maximum values for numeric columns (None to skip)")
	f.StringSliceVar(&o.columns.lengths, "text-lengths", nil, "Maximum lengths for text columns (None to skip)")
	f.Int64VarP(&o.seed, "seed", "s", 0, "Seed for reproducible output (random when unset)")
	f.IntVar(&o.batchSize, "batch-size", 0, "Rows per batch (0 uses the configured default)")
	f.BoolVar(&o.validateOnly, "validate-only", false, "Validate the request without generating data")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "Do not show progress")

	f.StringVar(&o.file.Delimiter, "delimiter", "", "Field delimiter (csv, txt)")
	f.StringVar(&o.file.Quote, "quote", "", "Quote character (csv)")
	f.BoolVar(&o.file.QuoteAll, "quote-all", false, "Quote every field (csv)")
	f.BoolVar(&o.file.CRLF, "crlf", false, "Use CRLF line endings (csv, txt)")
	f.BoolVar(&o.file.NoHeader, "no-header", false, "Omit the header row")
	f.BoolVar(&o.file.Aligned, "aligned", false, "Pad columns to equal width (txt)")
	f.BoolVar(&o.file.Pretty, "pretty", false, "Indent the document (json, xml)")
	f.StringVar(&o.file.Indent, "indent", "", "Indent string for --pretty")
	f.StringVar(&o.file.RootElement, "root-element", "", "Root element name (xml)")
	f.StringVar(&o.file.RowElement, "row-element", "", "Row element name (xml)")
	f.StringVar(&o.file.SheetName, "sheet-name", "", "Worksheet name (xlsx)")
	f.StringVar(&o.file.TableName, "table-name", "", "Table name (sqlite)")
	f.StringVar(&o.file.Compression, "compression", "", "Compression codec (parquet)")

	return cmd
}

// buildRequest starts from the preset when --request is given and applies
// only the flags the user set; otherwise every flag contributes.
func (o *generateOptions) buildRequest(cmd *cobra.Command) (*domain.GenerationRequest, error) {
	flags := cmd.Flags()
	set := func(name string) bool { return o.request == "" || flags.Changed(name) }

	req := &domain.GenerationRequest{}
	if o.request != "" {
		p, err := loadPreset(o.request)
		if err != nil {
			return nil, err
		}
		req = p.Request
	}

	if set("rows") {
		req.Rows = o.rows
	}
	if set("format") {
		req.File.Format = domain.Format(o.format)
	}
	if o.request == "" || columnFlagsChanged(cmd) {
		cols, err := buildColumns(o.columns)
		if err != nil {
			return nil, err
		}
		req.Columns = cols
	}
	if flags.Changed("seed") {
		req.Seed = &o.seed
	}
	if flags.Changed("batch-size") {
		req.BatchSize = o.batchSize
	}
	applyFormatFlags(cmd, &req.File.Options, o.file)

	if set("output") {
		if o.output == "" {
			return nil, fmt.Errorf("--output is required")
		}
		req.File.Path = o.output
	}
	if req.File.Path != "" {
		if w, err := registry.DefaultFormatRegistry().Resolve(req.File.Format); err == nil {
			req.File.Path = withExtension(req.File.Path, w.Extension())
		}
	}
	return req, nil
}

func columnFlagsChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"columns", "column-types", "column-names", "min-values", "max-values", "text-lengths"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func applyFormatFlags(cmd *cobra.Command, dst *domain.FormatOptions, src domain.FormatOptions) {
	changed := cmd.Flags().Changed
	if changed("delimiter") {
		dst.Delimiter = src.Delimiter
	}
	if changed("quote") {
		dst.Quote = src.Quote
	}
	if changed("quote-all") {
		dst.QuoteAll = src.QuoteAll
	}
	if changed("crlf") {
		dst.CRLF = src.CRLF
	}
	if changed("no-header") {
		dst.NoHeader = src.NoHeader
	}
	if changed("aligned") {
		dst.Aligned = src.Aligned
	}
	if changed("pretty") {
		dst.Pretty = src.Pretty
	}
	if changed("indent") {
		dst.Indent = src.Indent
	}
	if changed("root-element") {
		dst.RootElement = src.RootElement
	}
	if changed("row-element") {
		dst.RowElement = src.RowElement
	}
	if changed("sheet-name") {
		dst.SheetName = src.SheetName
	}
	if changed("table-name") {
		dst.TableName = src.TableName
	}
	if changed("compression") {
		dst.Compression = src.Compression
	}
}

func runGenerate(ctx context.Context, req *domain.GenerationRequest, o generateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if o.validateOnly {
		fmt.Println("Validating configuration...")
		if err := newService().Validate(req); err != nil {
			return err
		}
		fmt.Println("Configuration is valid!")
		return nil
	}

	history, err := openHistory()
	if err != nil {
		return err
	}
	opts := []app.Option{}
	if history != nil {
		defer history.Close()
		opts = append(opts, app.WithRunRepository(history))
	}

	var bar *progressbar.ProgressBar
	if !o.quiet && req.Rows > 0 {
		bar = progressbar.NewOptions64(req.Rows,
			progressbar.OptionSetDescription("generating"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		opts = append(opts, app.WithProgress(func(written, _ int64) { _ = bar.Set64(written) }))
	}

	res, err := newService(opts...).Submit(ctx, req)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %s rows to %s (%s, %s)\n",
		humanize.Comma(res.RowsWritten), res.OutputPath, res.Format, humanize.Bytes(uint64(res.BytesWritten)))
	if res.FailedRows > 0 {
		fmt.Printf("Skipped %s failed rows\n", humanize.Comma(res.FailedRows))
	}
	fmt.Printf("Seed: %d  Batches: %d  Duration: %s\n", res.Seed, res.Batches, res.Duration.Round(time.Millisecond))
	if res.RunID != "" && history != nil {
		fmt.Printf("Run: %s\n", res.RunID)
	}
	return nil
}
