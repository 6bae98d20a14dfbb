package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: batchpdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert every markdown file in a folder tree to a PDF beside it.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Convert a folder of markdown files (default command)")
	fmt.Fprintln(w, "  doctor     Check pandoc, wkhtmltopdf and Chrome")
	fmt.Fprintln(w, "  config     Print the effective configuration as YAML")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  completion Generate shell completion script")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'batchpdf help <command>' for details on a specific command.")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: batchpdf convert --target-folder <dir> [flags]")
	fmt.Fprintln(w, "       batchpdf convert <dir> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert every markdown file below a folder. Each name.md gets a name.pdf")
	fmt.Fprintln(w, "in the same directory. A failed file never stops the run.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -t, --target-folder <dir>  Folder to scan recursively")
	fmt.Fprintln(w, "      --keep-html-on-success Keep name.html after a successful conversion")
	fmt.Fprintln(w, "  -e, --encoding <label>     Fallback encoding for non-UTF-8 files (repeatable)")
	fmt.Fprintln(w, "      --ext <.ext>           Source extension (repeatable, default .md)")
	fmt.Fprintln(w, "      --no-transcode         Leave webp/tiff/bmp images untouched")
	fmt.Fprintln(w, "  -c, --config <name>        Config file name or path")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Style:")
	fmt.Fprintln(w, "      --css <file|name>      Stylesheet file or bundled style name")
	fmt.Fprintln(w, "      --asset-path <dir>     Directory with styles/<name>.css")
	fmt.Fprintln(w, "      --no-compat            Skip the pandoc compatibility stylesheet")
	fmt.Fprintln(w, "      --no-style             Render without any stylesheet")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Backends:")
	fmt.Fprintln(w, "      --converter <name>     pandoc (default) or goldmark")
	fmt.Fprintln(w, "      --renderer <name>      wkhtmltopdf (default) or chrome")
	fmt.Fprintln(w, "  -p, --page-size <s>        A3, A4, A5, Letter, Legal")
	fmt.Fprintln(w, "      --margin <len>         Page margin, e.g. 15mm, 0.5in")
	fmt.Fprintln(w, "      --dpi <n>              Renderer DPI (wkhtmltopdf)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -q, --quiet                Only show errors")
	fmt.Fprintln(w, "  -v, --verbose              Show timing and debug logs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  BATCHPDF_CONFIG, BATCHPDF_TARGET_FOLDER, BATCHPDF_CSS, BATCHPDF_KEEP_HTML,")
	fmt.Fprintln(w, "  BATCHPDF_CONVERTER, BATCHPDF_RENDERER, BATCHPDF_PANDOC, BATCHPDF_WKHTMLTOPDF,")
	fmt.Fprintln(w, "  BATCHPDF_ENCODINGS, BATCHPDF_PAGE_SIZE, BATCHPDF_TRANSCODE, BATCHPDF_ASSET_PATH")
	fmt.Fprintln(w, "  Precedence: flags > environment > config file > defaults.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit codes:")
	fmt.Fprintln(w, "  0  every file converted")
	fmt.Fprintln(w, "  1  at least one file failed")
	fmt.Fprintln(w, "  2  invalid flags, config or target folder")
	fmt.Fprintln(w, "  3  I/O error")
	fmt.Fprintln(w, "  4  pandoc or wkhtmltopdf not found")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  batchpdf --target-folder ./notes")
	fmt.Fprintln(w, "  batchpdf convert ./notes --css print.css --keep-html-on-success")
	fmt.Fprintln(w, "  batchpdf convert ./notes -e shift_jis --renderer chrome")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: batchpdf doctor [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that the external tools are installed and report their versions,")
	fmt.Fprintln(w, "the container/CI environment and temp directory access.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --json    Print the report as JSON")
}

// printConfigUsage prints usage for the config command.
func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: batchpdf config [-c <name>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the configuration after the config file and BATCHPDF_* variables")
	fmt.Fprintln(w, "are applied. The output is a valid config file.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -c, --config <name>    Config file name or path")
}

// printVersionUsage prints usage for the version command.
func printVersionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: batchpdf version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Show version information.")
}

// runHelp prints help for a specific command or general usage.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "config":
		printConfigUsage(env.Stdout)
	case "version":
		printVersionUsage(env.Stdout)
	case "completion":
		printCompletionUsage(env.Stdout)
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: batchpdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
