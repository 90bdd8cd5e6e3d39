package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-pdf-merger/internal/pdf"
)

const defaultMaxFileSize = 100 * 1024 * 1024

type options struct {
	output      string
	tagged      bool
	mergeFields bool
	overwrite   bool
	verify      bool
	format      string
	verbose     bool
	maxFileSize int64
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("pdf_merge", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { printUsage(stderr, flags) }

	var opts options
	flags.StringVarP(&opts.output, "output", "o", "", "Output PDF file (required)")
	flags.BoolVar(&opts.tagged, "tagged", true, "Merge logical structure trees")
	flags.BoolVar(&opts.mergeFields, "merge-fields", true, "Merge interactive form fields")
	flags.BoolVarP(&opts.overwrite, "force", "f", false, "Overwrite an existing output file")
	flags.BoolVar(&opts.verify, "verify", false, "Re-open the output and check it")
	flags.StringVar(&opts.format, "format", "text", "Output format: text, json")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log merge diagnostics to stderr")
	flags.Int64Var(&opts.maxFileSize, "max-file-size", defaultMaxFileSize, "Maximum input file size in bytes")

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	if opts.output == "" || flags.NArg() == 0 {
		fmt.Fprintf(stderr, "Error: an output file and at least one input are required\n\n")
		printUsage(stderr, flags)
		return 2
	}
	if opts.format != "text" && opts.format != "json" {
		fmt.Fprintf(stderr, "Error: unknown format %q\n", opts.format)
		return 2
	}

	result, err := mergeFiles(flags.Args(), opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := outputResult(stdout, result, opts.format); err != nil {
		fmt.Fprintf(stderr, "Error outputting results: %v\n", err)
		return 1
	}
	return 0
}

// parseInput splits "file.pdf:1-3,7" into a path and a page selection.
// A suffix that is not a page selection stays part of the path.
func parseInput(arg string) pdf.PDFMergeInput {
	i := strings.LastIndex(arg, ":")
	if i <= 0 || i == len(arg)-1 {
		return pdf.PDFMergeInput{Path: arg}
	}
	pages := arg[i+1:]
	for _, r := range pages {
		if (r < '0' || r > '9') && r != '-' && r != ',' && r != ' ' {
			return pdf.PDFMergeInput{Path: arg}
		}
	}
	return pdf.PDFMergeInput{Path: arg[:i], Pages: pages}
}

func mergeFiles(args []string, opts options, stderr io.Writer) (*pdf.PDFMergeResult, error) {
	output, err := filepath.Abs(opts.output)
	if err != nil {
		return nil, fmt.Errorf("invalid output path: %w", err)
	}

	inputs := make([]pdf.PDFMergeInput, 0, len(args))
	for _, arg := range args {
		in := parseInput(arg)
		if in.Path, err = filepath.Abs(in.Path); err != nil {
			return nil, fmt.Errorf("invalid input path: %w", err)
		}
		inputs = append(inputs, in)
	}

	// inputs may live anywhere on the command line, so only the output is confined
	root := filepath.VolumeName(output) + string(filepath.Separator)
	svc, err := pdf.NewService(opts.maxFileSize, root, filepath.Dir(output), pdf.MergeDefaults{
		Tagged:      opts.tagged,
		MergeFields: opts.mergeFields,
		Producer:    "pdf_merge",
	})
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		svc.SetLogger(log.New(stderr, "pdf_merge: ", 0))
	}

	return svc.PDFMerge(pdf.PDFMergeRequest{
		Inputs:      inputs,
		Output:      output,
		Tagged:      &opts.tagged,
		MergeFields: &opts.mergeFields,
		Overwrite:   opts.overwrite,
		Verify:      opts.verify,
	})
}

func outputResult(w io.Writer, result *pdf.PDFMergeResult, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(w, "Output: %s\n", result.Output)
	fmt.Fprintf(w, "Pages: %d\n", result.Pages)
	fmt.Fprintf(w, "Objects: %d\n", result.Objects)
	fmt.Fprintf(w, "Size: %d bytes\n", result.Size)
	fmt.Fprintf(w, "Tagged: %t, merge fields: %t\n", result.Tagged, result.MergeFields)
	for _, src := range result.Sources {
		fmt.Fprintf(w, "  %s: %d page(s), %d field(s)\n", src.Path, len(src.Pages), src.Fields)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	if v := result.Verification; v != nil {
		fmt.Fprintf(w, "Verified: %d pages, %d widgets, %d fields\n", v.Pages, v.Widgets, v.Fields)
	}
	return nil
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintln(w, "PDF Merge - combine PDF documents with their forms and structure trees")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  pdf_merge -o merged.pdf [OPTIONS] <input.pdf[:pages]>...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprint(w, flags.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  pdf_merge -o out.pdf a.pdf b.pdf")
	fmt.Fprintln(w, "  pdf_merge -o out.pdf --tagged=false a.pdf:1-3 b.pdf:2,5")
	fmt.Fprintln(w, "  pdf_merge -o out.pdf --verify --format json form.pdf form.pdf")
}
