package converter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yuanying/one2html/internal/fileutil"
)

// Report summarizes an export run.
type Report struct {
	RunID     string        `json:"run_id"`
	Input     string        `json:"input,omitempty"`
	OutputDir string        `json:"output_dir"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Pages     int           `json:"pages"`
	IndexFile string        `json:"index_file,omitempty"`
	Succeeded []PageResult  `json:"succeeded"`
	Failed    []PageFailure `json:"failed"`
}

// PageFailure records a page that could not be exported.
type PageFailure struct {
	Series int    `json:"series"`
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Stem   string `json:"stem"`
	Error  string `json:"error"`

	err error
}

// Err returns the underlying error.
func (f PageFailure) Err() error {
	return f.err
}

func newReport(input, outputDir string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Input:     input,
		OutputDir: outputDir,
		StartedAt: time.Now(),
		Succeeded: []PageResult{},
		Failed:    []PageFailure{},
	}
}

// Total returns the number of pages attempted.
func (r *Report) Total() int {
	return len(r.Succeeded) + len(r.Failed)
}

// Skipped returns the number of planned pages that were not attempted.
func (r *Report) Skipped() int {
	return r.Pages - r.Total()
}

// HasFailures reports whether any page failed.
func (r *Report) HasFailures() bool {
	return len(r.Failed) > 0
}

// Err joins the errors of all failed pages, or returns nil.
func (r *Report) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f.err)
	}
	return errors.Join(errs...)
}

// WriteJSON writes the report as indented JSON to path.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// collect fills the report from page outcomes, in plan order.
func (r *Report) collect(plans []pagePlan, outcomes []pageOutcome) {
	for i, o := range outcomes {
		if !o.done {
			continue
		}
		if o.err == nil {
			r.Succeeded = append(r.Succeeded, o.result)
			continue
		}
		if errors.Is(o.err, context.Canceled) || errors.Is(o.err, context.DeadlineExceeded) {
			continue
		}
		plan := plans[i]
		r.Failed = append(r.Failed, PageFailure{
			Series: plan.Series,
			Index:  plan.Index,
			Title:  plan.Title,
			Stem:   plan.Stem,
			Error:  o.err.Error(),
			err:    o.err,
		})
	}
}

func (r *Report) finish() {
	r.Duration = time.Since(r.StartedAt)
}
