// Package batchpdf converts a directory tree of Markdown files to PDF.
//
// # Quick Start
//
// Resolve a run configuration, build a pipeline and run it over a folder:
//
//	fc := config.DefaultConfig()
//	fc.Input.TargetFolder = "./notes"
//
//	cfg, cleanup, err := batchpdf.Resolve(fc, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
//
//	p, err := batchpdf.NewPipeline(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	if err := p.CheckTools(); err != nil {
//	    log.Fatal(err) // pandoc or wkhtmltopdf missing
//	}
//
//	summary, err := batchpdf.Run(ctx, cfg.TargetFolder, p, nil)
//
// Every name.md found below the folder produces name.pdf beside it.
//
// # Conversion Pipeline
//
// Each file moves through these states, one file at a time:
//
//  1. Discovered: found by Walk
//  2. Normalized: decoded to UTF-8 (non-UTF-8 sources get a name.__pandoc_tmp__.md copy)
//  3. Converted: Markdown to standalone HTML (pandoc, or goldmark in process)
//  4. Rewritten: local src, href and srcset references made absolute file:// URLs
//  5. Rendered: HTML to PDF (wkhtmltopdf, or headless Chrome), checked with pdfcpu
//  6. Cleaned: name.html and temporary copies removed unless KeepHTML is set
//
// A render that fails with the run stylesheet is retried once without it.
// A file that fails keeps its intermediate files for diagnosis and never has
// a name.pdf. One failed file does not stop the run.
//
// # Errors
//
// Per-file failures are *StageError values whose Kind is ErrEncoding,
// ErrConversion or ErrRender. ErrToolNotFound is returned by
// Pipeline.CheckTools before any file is processed.
package batchpdf
