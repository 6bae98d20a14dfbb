package batchpdf

import (
	"context"
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alnah/batchpdf/internal/rewrite"
)

// skippedDirs hold no notes: transcoded image copies and version control
// metadata. Other dot-directories such as ".notes" are walked.
var skippedDirs = []string{rewrite.ArtifactDirName, ".git", ".hg", ".svn"}

// Walk returns a lazy depth-first sequence of the files below root whose
// extension is one of extensions (case-insensitive, default ".md").
// The transcoder's artifact directory, version control metadata and UTF-8
// copies left by failed runs are skipped. Entries that cannot be read are yielded
// with a non-nil error. Each call starts a fresh traversal.
func Walk(root string, extensions ...string) iter.Seq2[string, error] {
	if len(extensions) == 0 {
		extensions = []string{".md"}
	}
	return func(yield func(string, error) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield(path, err) {
					return fs.SkipAll
				}
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != root && slices.Contains(skippedDirs, d.Name()) {
					return fs.SkipDir
				}
				return nil
			}
			if !matches(d.Name(), extensions) {
				return nil
			}
			if !yield(path, nil) {
				return fs.SkipAll
			}
			return nil
		})
	}
}

// matches reports whether name is a source file with one of extensions.
func matches(name string, extensions []string) bool {
	if strings.HasSuffix(strings.ToLower(name), TempSourceSuffix) {
		return false
	}
	ext := filepath.Ext(name)
	return slices.ContainsFunc(extensions, func(e string) bool {
		return strings.EqualFold(e, ext)
	})
}

// Run processes every file Walk finds below root, in order, one at a time.
// A file failure never stops the run. onResult, if not nil, is called after
// each file.
//
// When ctx is cancelled no further file is started; the summary covers the
// files processed so far and ctx.Err() is returned. The file in progress is
// processed under a context that ignores the cancellation, so its tools are
// not killed halfway. Outputs of completed files are kept.
func Run(ctx context.Context, root string, p *Pipeline, onResult func(Result)) (Summary, error) {
	var sum Summary
	log := p.logger.With("root", root)

	for path, err := range Walk(root, p.cfg.Extensions...) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Info("run interrupted", "processed", sum.Total())
			return sum, ctxErr
		}
		if err != nil {
			log.Warn("cannot read entry", "path", path, "error", err)
			sum.WalkErrors = append(sum.WalkErrors, err)
			continue
		}

		r := p.Process(context.WithoutCancel(ctx), path)
		sum.add(r)
		if onResult != nil {
			onResult(r)
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return sum, ctxErr
	}
	log.Debug("run finished", "succeeded", sum.Succeeded, "failed", sum.Failed)
	return sum, nil
}
