package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/annotview/annotview/annotations"
	"github.com/annotview/annotview/export"
	"github.com/annotview/annotview/observability"
)

type options struct {
	pdfPath  string
	annsPath string
	outPath  string
	summary  bool
	verbose  bool
}

type annotationInput struct {
	Page int     `json:"page"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "annotate: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "annotate: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: go run ./cmd/annotate [flags] <pdf>\n")
		flag.PrintDefaults()
	}
	annsPath := flag.String("annotations", "", "JSON file with annotations: [{\"page\":1,\"x\":120,\"y\":200,\"text\":\"John Doe\"}]")
	outPath := flag.String("out", "", "Output path (default filled_<input name>)")
	summary := flag.Bool("summary", false, "Append a summary page listing the annotations")
	verbose := flag.Bool("v", false, "Log progress to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing pdf path")
	}
	if *annsPath == "" {
		return options{}, fmt.Errorf("missing -annotations file")
	}
	opts.pdfPath = flag.Arg(0)
	opts.annsPath = *annsPath
	opts.outPath = *outPath
	opts.summary = *summary
	opts.verbose = *verbose
	return opts, nil
}

func run(opts options) error {
	original, err := os.ReadFile(opts.pdfPath)
	if err != nil {
		return fmt.Errorf("read pdf: %w", err)
	}

	annsData, err := os.ReadFile(opts.annsPath)
	if err != nil {
		return fmt.Errorf("read annotations: %w", err)
	}
	var inputs []annotationInput
	if err := json.Unmarshal(annsData, &inputs); err != nil {
		return fmt.Errorf("parse annotations: %w", err)
	}
	anns := make([]annotations.Annotation, 0, len(inputs))
	for _, in := range inputs {
		anns = append(anns, annotations.Annotation{
			ID:   annotations.NewID(),
			Page: in.Page,
			X:    in.X,
			Y:    in.Y,
			Text: in.Text,
		})
	}

	exportOpts := []export.Option{}
	if opts.summary {
		exportOpts = append(exportOpts, export.WithSummaryPage())
	}
	if opts.verbose {
		exportOpts = append(exportOpts, export.WithLogger(stderrLogger{}))
	}

	out, skipped, err := export.New(exportOpts...).Export(context.Background(), original, anns)
	if err != nil {
		return err
	}
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "annotate: %d annotation(s) referenced missing pages and were skipped\n", skipped)
	}

	outPath := opts.outPath
	if outPath == "" {
		dir, base := filepath.Split(opts.pdfPath)
		outPath = filepath.Join(dir, "filled_"+base)
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", outPath, len(out))
	return nil
}

// stderrLogger satisfies the observability contract for CLI use.
type stderrLogger struct {
	fields []observability.Field
}

func (l stderrLogger) log(level, msg string, fields []observability.Field) {
	fmt.Fprintf(os.Stderr, "[%s] %s", level, msg)
	for _, f := range append(l.fields, fields...) {
		fmt.Fprintf(os.Stderr, " %s=%v", f.Key(), f.Value())
	}
	fmt.Fprintln(os.Stderr)
}

func (l stderrLogger) Debug(msg string, fields ...observability.Field) { l.log("debug", msg, fields) }
func (l stderrLogger) Info(msg string, fields ...observability.Field)  { l.log("info", msg, fields) }
func (l stderrLogger) Warn(msg string, fields ...observability.Field)  { l.log("warn", msg, fields) }
func (l stderrLogger) Error(msg string, fields ...observability.Field) { l.log("error", msg, fields) }
func (l stderrLogger) With(fields ...observability.Field) observability.Logger {
	return stderrLogger{fields: append(l.fields, fields...)}
}
