package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// styleFlags holds stylesheet flags.
type styleFlags struct {
	css       string // file path or bundled style name
	noStyle   bool
	noCompat  bool
	assetPath string
}

// engineFlags holds backend selection flags.
type engineFlags struct {
	converter string
	renderer  string
	pageSize  string
	margin    string
	dpi       int
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common       commonFlags
	targetFolder string
	keepHTML     bool
	encodings    []string
	extensions   []string
	noTranscode  bool
	style        styleFlags
	engine       engineFlags

	// changed records flags given on the command line, so that unset flags
	// do not override the config file or environment.
	changed map[string]bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show timing and debug logs")
}

// addStyleFlags adds stylesheet flags to a FlagSet.
func addStyleFlags(fs *flag.FlagSet, f *styleFlags) {
	fs.StringVar(&f.css, "css", "", "stylesheet file or bundled style name")
	fs.BoolVar(&f.noStyle, "no-style", false, "render without any stylesheet")
	fs.BoolVar(&f.noCompat, "no-compat", false, "skip the pandoc compatibility stylesheet")
	fs.StringVar(&f.assetPath, "asset-path", "", "directory with styles/<name>.css")
}

// addEngineFlags adds backend flags to a FlagSet.
func addEngineFlags(fs *flag.FlagSet, f *engineFlags) {
	fs.StringVar(&f.converter, "converter", "", "markdown converter: pandoc, goldmark")
	fs.StringVar(&f.renderer, "renderer", "", "PDF renderer: wkhtmltopdf, chrome")
	fs.StringVarP(&f.pageSize, "page-size", "p", "", "page size: A3, A4, A5, Letter, Legal")
	fs.StringVar(&f.margin, "margin", "", "page margin with unit, e.g. 15mm, 0.5in")
	fs.IntVar(&f.dpi, "dpi", 0, "renderer DPI (wkhtmltopdf)")
}

// newConvertFlagSet registers every convert flag into f. Parsing and shell
// completion share it.
func newConvertFlagSet(f *convertFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)

	fs.StringVarP(&f.targetFolder, "target-folder", "t", "", "folder to scan for markdown files")
	fs.BoolVar(&f.keepHTML, "keep-html-on-success", false, "keep name.html after a successful conversion")
	fs.StringSliceVarP(&f.encodings, "encoding", "e", nil, "fallback encodings for non-UTF-8 files (repeatable)")
	fs.StringSliceVar(&f.extensions, "ext", nil, "source extensions (default .md)")
	fs.BoolVar(&f.noTranscode, "no-transcode", false, "do not convert webp/tiff/bmp images")

	addCommonFlags(fs, &f.common)
	addStyleFlags(fs, &f.style)
	addEngineFlags(fs, &f.engine)

	return fs
}

// newConfigFlagSet registers the config command flags into f.
func newConfigFlagSet(f *commonFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	addCommonFlags(fs, f)
	return fs
}

// newDoctorFlagSet registers the doctor command flags.
func newDoctorFlagSet(jsonOutput *bool) *flag.FlagSet {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.BoolVar(jsonOutput, "json", false, "print the report as JSON")
	return fs
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string, stderr io.Writer) (*convertFlags, []string, error) {
	f := &convertFlags{}
	fs := newConvertFlagSet(f)
	fs.SetOutput(stderr)
	fs.Usage = func() { printConvertUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	f.changed = make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { f.changed[fl.Name] = true })

	return f, fs.Args(), nil
}

// parseConfigFlags parses the config command flags.
func parseConfigFlags(args []string, stderr io.Writer) (*commonFlags, error) {
	f := &commonFlags{}
	fs := newConfigFlagSet(f)
	fs.SetOutput(stderr)
	fs.Usage = func() { printConfigUsage(stderr) }
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// parseDoctorFlags parses the doctor command flags.
func parseDoctorFlags(args []string, stderr io.Writer) (jsonOutput bool, err error) {
	fs := newDoctorFlagSet(&jsonOutput)
	fs.SetOutput(stderr)
	fs.Usage = func() { printDoctorUsage(stderr) }
	err = fs.Parse(args)
	return jsonOutput, err
}
