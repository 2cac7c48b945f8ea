package converter

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/yuanying/one2html/internal/notebook"
)

const defaultAltText = "image"

// RenderContext is the per-page rendering state. It is created for one page,
// used by a single goroutine and discarded once the page file is written.
type RenderContext struct {
	Stem  string
	Index int // 0-based position of the page in its series

	html       strings.Builder
	imageCount int
	assets     []string
}

// NewRenderContext creates the rendering state for one page.
func NewRenderContext(stem string, index int) *RenderContext {
	return &RenderContext{Stem: stem, Index: index}
}

// HTML returns the markup accumulated so far.
func (rc *RenderContext) HTML() string {
	return rc.html.String()
}

// Assets returns the names of the asset files written for the page, in
// document order.
func (rc *RenderContext) Assets() []string {
	out := make([]string, len(rc.assets))
	copy(out, rc.assets)
	return out
}

// ContentRenderer renders content nodes into HTML fragments, writing their
// payloads through an AssetWriter.
type ContentRenderer struct {
	assets *AssetWriter
	logger *slog.Logger
}

// NewContentRenderer creates a content renderer.
func NewContentRenderer(assets *AssetWriter, logger *slog.Logger) *ContentRenderer {
	if logger == nil {
		logger = discardLogger()
	}
	return &ContentRenderer{assets: assets, logger: logger}
}

// RenderPageContent renders a top-level page content node.
func (r *ContentRenderer) RenderPageContent(rc *RenderContext, c notebook.PageContent) error {
	switch c := c.(type) {
	case *notebook.Outline:
		return r.renderItems(rc, c.Items)
	case *notebook.Image:
		return r.renderImage(rc, c)
	case *notebook.EmbeddedFile:
		return r.renderEmbeddedFile(rc, c)
	case *notebook.Ink:
		r.renderInk(rc, c)
		return nil
	case *notebook.Unknown:
		r.logger.Debug("skipping unknown content", "page", rc.Stem, "kind", c.Kind)
		return nil
	case nil:
		return nil
	default:
		r.logger.Debug("skipping unsupported content", "page", rc.Stem, "type", fmt.Sprintf("%T", c))
		return nil
	}
}

// RenderElementContent renders a content node nested in an outline element.
// Only rich text, images and embedded files produce output.
func (r *ContentRenderer) RenderElementContent(rc *RenderContext, c notebook.ElementContent) error {
	switch c := c.(type) {
	case *notebook.RichText:
		rc.html.WriteString("<p>")
		rc.html.WriteString(Escape(c.Text))
		rc.html.WriteString("</p>\n")
		return nil
	case *notebook.Image:
		return r.renderImage(rc, c)
	case *notebook.EmbeddedFile:
		return r.renderEmbeddedFile(rc, c)
	case *notebook.Ink:
		return nil
	case *notebook.Unknown:
		r.logger.Debug("skipping unknown element content", "page", rc.Stem, "kind", c.Kind)
		return nil
	case nil:
		return nil
	default:
		r.logger.Debug("skipping unsupported element content", "page", rc.Stem, "type", fmt.Sprintf("%T", c))
		return nil
	}
}

func (r *ContentRenderer) renderItems(rc *RenderContext, items []notebook.OutlineItem) error {
	for _, item := range items {
		if item.Element != nil {
			for _, c := range item.Element.Contents {
				if err := r.RenderElementContent(rc, c); err != nil {
					return err
				}
			}
		}
		if err := r.renderItems(rc, item.Children); err != nil {
			return err
		}
	}
	return nil
}

func (r *ContentRenderer) renderImage(rc *RenderContext, img *notebook.Image) error {
	if img.Data == nil {
		return nil
	}
	ref, err := r.assets.WriteImage(rc, img)
	if err != nil {
		return err
	}
	alt := img.AltText
	if alt == "" {
		alt = defaultAltText
	}
	fmt.Fprintf(&rc.html, "<img src=\"%s\" alt=\"%s\" />\n", escapeAttr(ref), escapeAttr(alt))
	return nil
}

func (r *ContentRenderer) renderEmbeddedFile(rc *RenderContext, f *notebook.EmbeddedFile) error {
	ref, err := r.assets.WriteEmbeddedFile(rc, f)
	if err != nil {
		return err
	}
	label := f.Filename
	if strings.TrimSpace(label) == "" {
		label = defaultFilename
	}
	fmt.Fprintf(&rc.html, "<a href=\"%s\">%s</a>\n", escapeAttr(ref), Escape(label))
	return nil
}

func (r *ContentRenderer) renderInk(rc *RenderContext, ink *notebook.Ink) {
	bb := ink.BoundingBox
	if bb == nil {
		return
	}
	fmt.Fprintf(&rc.html, "<!-- ink bbox: x=%s y=%s width=%s height=%s -->\n",
		formatNumber(bb.X), formatNumber(bb.Y), formatNumber(bb.Width), formatNumber(bb.Height))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
