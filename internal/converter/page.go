package converter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/yuanying/one2html/internal/fileutil"
	"github.com/yuanying/one2html/internal/notebook"
)

const (
	htmlExt        = ".html"
	pagePerm       = 0o644
	fallbackPrefix = "page_"
)

// PageResult describes a page file written by the PageRenderer.
type PageResult struct {
	Series int      `json:"series"`
	Index  int      `json:"index"`
	Title  string   `json:"title"`
	Stem   string   `json:"stem"`
	File   string   `json:"file"`
	Assets []string `json:"assets,omitempty"`
}

// PageError reports a page that could not be rendered.
type PageError struct {
	Series int
	Index  int
	Stem   string
	Err    error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %q (series %d, index %d): %v", e.Stem, e.Series, e.Index, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// PageTitle returns the display title of a page: its own title, or
// "page_{index}" when it has none.
func PageTitle(page notebook.Page, index int) string {
	if page.HasTitle() {
		return page.Title
	}
	return fallbackTitle(index)
}

// PageStem returns the file stem of a page before run-wide de-duplication.
func PageStem(page notebook.Page, index int) string {
	if stem := Sanitize(PageTitle(page, index)); stem != "" {
		return stem
	}
	return fallbackTitle(index)
}

func fallbackTitle(index int) string {
	return fallbackPrefix + strconv.Itoa(index)
}

// pagePlan is one page scheduled for rendering, with its final stem.
type pagePlan struct {
	Series int
	Index  int
	Title  string
	Stem   string
	Page   notebook.Page
}

// PageRenderer renders a page into {outputDir}/{stem}.html.
type PageRenderer struct {
	outputDir string
	content   *ContentRenderer
	logger    *slog.Logger
}

// NewPageRenderer creates a page renderer.
func NewPageRenderer(outputDir string, content *ContentRenderer, logger *slog.Logger) *PageRenderer {
	if logger == nil {
		logger = discardLogger()
	}
	return &PageRenderer{outputDir: outputDir, content: content, logger: logger}
}

// Render renders page under stem and writes the page file, replacing any
// existing file. Content nodes are rendered in document order. Assets
// written before a failure are left on disk.
func (r *PageRenderer) Render(ctx context.Context, page notebook.Page, index int, stem string) (PageResult, error) {
	return r.render(ctx, pagePlan{
		Index: index,
		Title: PageTitle(page, index),
		Stem:  stem,
		Page:  page,
	})
}

func (r *PageRenderer) render(ctx context.Context, plan pagePlan) (PageResult, error) {
	fail := func(err error) (PageResult, error) {
		return PageResult{}, &PageError{Series: plan.Series, Index: plan.Index, Stem: plan.Stem, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	rc := NewRenderContext(plan.Stem, plan.Index)
	writePreamble(rc, plan.Title)

	for _, c := range plan.Page.Contents {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if err := r.content.RenderPageContent(rc, c); err != nil {
			return fail(err)
		}
	}
	rc.html.WriteString("</body>\n</html>\n")

	file := plan.Stem + htmlExt
	path := filepath.Join(r.outputDir, file)
	if err := fileutil.WriteFileAtomic(path, []byte(rc.HTML()), pagePerm); err != nil {
		return fail(fmt.Errorf("write page %s: %w", path, err))
	}
	r.logger.Debug("page written", "path", path, "assets", len(rc.assets))

	return PageResult{
		Series: plan.Series,
		Index:  plan.Index,
		Title:  plan.Title,
		Stem:   plan.Stem,
		File:   file,
		Assets: rc.Assets(),
	}, nil
}

func writePreamble(rc *RenderContext, title string) {
	rc.html.WriteString("<!doctype html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	rc.html.WriteString(Escape(title))
	rc.html.WriteString("</title>\n</head>\n<body>\n")
}
