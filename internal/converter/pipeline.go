package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yuanying/one2html/internal/notebook"
)

// DefaultOutputDir is used when no output directory is given.
const DefaultOutputDir = "out_html"

// ErrOutputDir is returned when the output directory cannot be created.
var ErrOutputDir = errors.New("cannot create output directory")

// ConvertOptions holds options for the conversion pipeline.
type ConvertOptions struct {
	InputPath string
	OutputDir string

	// Workers bounds the number of pages rendered concurrently.
	// Zero means GOMAXPROCS; 1 renders strictly in document order.
	Workers int

	// FailFast aborts the run on the first page failure instead of recording
	// it and continuing with the remaining pages.
	FailFast bool

	// WriteIndex adds an index.html linking every rendered page.
	WriteIndex bool

	// MaxImageWidth downsizes wider images; 0 keeps payloads byte-identical.
	MaxImageWidth int
	JPEGQuality   int

	// Strict makes the default parser reject unknown manifest fields.
	Strict bool

	// Parser reads InputPath; defaults to notebook.SectionParser.
	Parser notebook.Parser
	Logger *slog.Logger
}

// Pipeline orchestrates the notebook to HTML conversion.
type Pipeline struct {
	Options ConvertOptions
}

// NewPipeline creates a new conversion pipeline.
func NewPipeline(opts ConvertOptions) *Pipeline {
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	if opts.Parser == nil {
		opts.Parser = notebook.SectionParser{Strict: opts.Strict}
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	return &Pipeline{Options: opts}
}

// Convert parses the input and exports it. Parse errors abort the run.
func (p *Pipeline) Convert(ctx context.Context) (*Report, error) {
	doc, err := p.Options.Parser.Parse(p.Options.InputPath)
	if err != nil {
		return nil, err
	}
	p.Options.Logger.Info("section parsed",
		"input", p.Options.InputPath,
		"series", len(doc.Series),
		"pages", doc.PageCount())
	return p.Export(ctx, doc)
}

// Export renders every page of doc into the output directory.
//
// Pages are planned in series order, then page order, and given unique
// stems before any rendering starts. Each page is then rendered by one
// worker. A failing page is recorded in the report and the remaining pages
// are still exported, unless FailFast is set. The returned error is non-nil
// only when the run itself failed.
func (p *Pipeline) Export(ctx context.Context, doc *notebook.Document) (*Report, error) {
	opts := p.Options
	logger := opts.Logger
	report := newReport(opts.InputPath, opts.OutputDir)

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOutputDir, opts.OutputDir, err)
	}

	registry := NewNameRegistry()
	if opts.WriteIndex {
		registry.Reserve(indexFileName)
	}
	plans := planPages(doc, registry)
	report.Pages = len(plans)

	assets := NewAssetWriter(opts.OutputDir, registry, NewImageOptimizer(opts), logger)
	renderer := NewPageRenderer(opts.OutputDir, NewContentRenderer(assets, logger), logger)

	outcomes := make([]pageOutcome, len(plans))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i := range plans {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := renderer.render(gctx, plans[i])
			outcomes[i] = pageOutcome{result: res, err: err, done: true}
			if err != nil {
				if gctx.Err() != nil && errors.Is(err, gctx.Err()) {
					return nil
				}
				logger.Warn("page failed", "stem", plans[i].Stem, "error", err)
				if opts.FailFast {
					return err
				}
				return nil
			}
			logger.Info("page exported", "file", res.File, "assets", len(res.Assets))
			return nil
		})
	}
	runErr := g.Wait()
	report.collect(plans, outcomes)
	report.finish()

	if runErr != nil {
		return report, runErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	if opts.WriteIndex {
		if err := writeIndex(opts.OutputDir, indexTitle(doc), report); err != nil {
			return report, err
		}
		report.IndexFile = indexFileName
	}

	logger.Info("export finished",
		"output", opts.OutputDir,
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed),
		"duration", report.Duration.Round(time.Millisecond))
	return report, nil
}

func (p *Pipeline) workers() int {
	if p.Options.Workers > 0 {
		return p.Options.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// pageOutcome is the result of rendering one planned page. done is false
// for pages that were never attempted or were cancelled.
type pageOutcome struct {
	result PageResult
	err    error
	done   bool
}

// planPages lists every page of doc in document order and claims its stem.
// The page index restarts at 0 in every series.
func planPages(doc *notebook.Document, registry *NameRegistry) []pagePlan {
	plans := make([]pagePlan, 0, doc.PageCount())
	for si, series := range doc.Series {
		for pi, page := range series.Pages {
			plans = append(plans, pagePlan{
				Series: si,
				Index:  pi,
				Title:  PageTitle(page, pi),
				Stem:   claimStem(registry, PageStem(page, pi)),
				Page:   page,
			})
		}
	}
	return plans
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
