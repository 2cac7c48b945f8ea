package notebook

import "strings"

// Document is a parsed notebook section: an ordered list of page series.
type Document struct {
	Title  string
	Series []PageSeries
}

// PageSeries groups pages the way a section tab groups them.
type PageSeries struct {
	Pages []Page
}

// Page is a single note page.
type Page struct {
	Title    string // Empty when the page has no title
	Contents []PageContent
}

// HasTitle reports whether the page carries a usable title.
func (p Page) HasTitle() bool {
	return strings.TrimSpace(p.Title) != ""
}

// PageCount returns the total number of pages across all series.
func (d *Document) PageCount() int {
	n := 0
	for _, s := range d.Series {
		n += len(s.Pages)
	}
	return n
}

// PageContent is a top-level content node of a page. The set of
// implementations is closed: *Outline, *Image, *EmbeddedFile, *Ink, *Unknown.
type PageContent interface {
	isPageContent()
}

// ElementContent is a content node nested in an outline element. The set of
// implementations is closed: *RichText, *Image, *EmbeddedFile, *Ink, *Unknown.
type ElementContent interface {
	isElementContent()
}

// Outline is a container of loosely structured note items.
type Outline struct {
	Items []OutlineItem
}

// OutlineItem is one entry of an outline. Element is nil for items that only
// group children.
type OutlineItem struct {
	Element  *OutlineElement
	Children []OutlineItem
}

// OutlineElement holds the content nodes of an outline item.
type OutlineElement struct {
	Contents []ElementContent
}

// RichText is a run of plain text.
type RichText struct {
	Text string
}

// Image is a raster image. Data is nil when the payload is unavailable.
type Image struct {
	Data      []byte
	Extension string // File extension hint without the dot, may be empty
	AltText   string
}

// EmbeddedFile is an attached file.
type EmbeddedFile struct {
	Filename string
	Data     []byte
}

// Ink is a freehand drawing. Only its bounding box is recorded.
type Ink struct {
	BoundingBox *BoundingBox
}

// BoundingBox is the rectangle covered by an ink drawing.
type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Unknown is a content node whose kind is not understood.
type Unknown struct {
	Kind string
}

func (*Outline) isPageContent()      {}
func (*Image) isPageContent()        {}
func (*EmbeddedFile) isPageContent() {}
func (*Ink) isPageContent()          {}
func (*Unknown) isPageContent()      {}

func (*RichText) isElementContent()     {}
func (*Image) isElementContent()        {}
func (*EmbeddedFile) isElementContent() {}
func (*Ink) isElementContent()          {}
func (*Unknown) isElementContent()      {}
