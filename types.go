package batchpdf

import (
	"time"
)

// Stage is a state of the per-file conversion state machine.
type Stage int

// Pipeline states, in order.
const (
	StageDiscovered Stage = iota
	StageNormalized
	StageConverted
	StageRewritten
	StageRendered
	StageCleaned
)

var stageNames = [...]string{
	StageDiscovered: "discovered",
	StageNormalized: "normalized",
	StageConverted:  "converted",
	StageRewritten:  "rewritten",
	StageRendered:   "rendered",
	StageCleaned:    "cleaned",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Result is the outcome of processing one source file.
// Exactly one of these holds: Err is nil and Output exists, or Err is
// non-nil and Output does not exist.
type Result struct {
	Source string // name.md
	Output string // name.pdf beside the source
	HTML   string // name.html beside the source

	// Stage is the last state reached. For a failure it is the state the
	// file could not reach.
	Stage Stage
	Err   error

	Encoding string   // detected source encoding
	Fallback bool     // the PDF was produced by the no-stylesheet retry
	Pages    int      // page count of the produced PDF, 0 when unchecked
	Missing  []string // local image references that did not resolve
	Duration time.Duration
}

// Succeeded reports whether the file reached the Succeeded terminal state.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Reason returns the failure kind name ("EncodingError", ...),
// or "" for a success.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return KindName(r.Err)
}

// Summary aggregates the results of a run.
type Summary struct {
	Succeeded int
	Failed    int
	Fallbacks int      // successes produced without the stylesheet
	Failures  []Result // in discovery order
	// WalkErrors are directories or entries that could not be read.
	WalkErrors []error
}

// OK reports whether every discovered file succeeded.
func (s Summary) OK() bool {
	return s.Failed == 0 && len(s.WalkErrors) == 0
}

// Total is the number of files processed.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed
}

func (s *Summary) add(r Result) {
	if r.Succeeded() {
		s.Succeeded++
		if r.Fallback {
			s.Fallbacks++
		}
		return
	}
	s.Failed++
	s.Failures = append(s.Failures, r)
}
