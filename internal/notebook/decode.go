package notebook

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/yuanying/one2html/internal/yamlutil"
)

// Content kinds accepted in a manifest.
const (
	KindOutline      = "outline"
	KindRichText     = "rich_text"
	KindImage        = "image"
	KindEmbeddedFile = "embedded_file"
	KindInk          = "ink"
)

// kindAliases maps shorthand kinds to their canonical names.
var kindAliases = map[string]string{
	"text":       KindRichText,
	"richtext":   KindRichText,
	"file":       KindEmbeddedFile,
	"embedded":   KindEmbeddedFile,
	"attachment": KindEmbeddedFile,
}

type rawSection struct {
	Title  string      `yaml:"title"`
	Series []rawSeries `yaml:"series"`
}

type rawSeries struct {
	Pages []rawPage `yaml:"pages"`
}

type rawPage struct {
	Title    string       `yaml:"title"`
	Contents []rawContent `yaml:"contents"`
}

type rawContent struct {
	Kind string `yaml:"kind"`

	// rich_text
	Text string `yaml:"text"`

	// image, embedded_file
	Src      string `yaml:"src"`
	Data     string `yaml:"data"`
	Ext      string `yaml:"ext"`
	Alt      string `yaml:"alt"`
	Filename string `yaml:"filename"`

	// ink
	BBox *rawBBox `yaml:"bbox"`

	// outline
	Items []rawItem `yaml:"items"`
}

type rawItem struct {
	Element  *rawElement `yaml:"element"`
	Children []rawItem   `yaml:"children"`
}

type rawElement struct {
	Contents []rawContent `yaml:"contents"`
}

type rawBBox struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Decode builds a Document from manifest data. Payload paths are resolved
// through files, which may be nil when every payload is inline.
func Decode(manifest []byte, files fileReader) (*Document, error) {
	return decode(manifest, files, false)
}

// DecodeStrict is like Decode but fails on manifest fields it does not know.
func DecodeStrict(manifest []byte, files fileReader) (*Document, error) {
	return decode(manifest, files, true)
}

func decode(manifest []byte, files fileReader, strict bool) (*Document, error) {
	unmarshal := yamlutil.Unmarshal
	if strict {
		unmarshal = yamlutil.UnmarshalStrict
	}
	var raw rawSection
	if err := unmarshal(manifest, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	d := decoder{files: files}
	doc := &Document{
		Title:  raw.Title,
		Series: make([]PageSeries, 0, len(raw.Series)),
	}
	for si, rs := range raw.Series {
		series := PageSeries{Pages: make([]Page, 0, len(rs.Pages))}
		for pi, rp := range rs.Pages {
			page, err := d.page(rp)
			if err != nil {
				return nil, fmt.Errorf("series %d, page %d: %w", si, pi, err)
			}
			series.Pages = append(series.Pages, page)
		}
		doc.Series = append(doc.Series, series)
	}
	return doc, nil
}

type decoder struct {
	files fileReader
}

func (d decoder) page(rp rawPage) (Page, error) {
	page := Page{
		Title:    rp.Title,
		Contents: make([]PageContent, 0, len(rp.Contents)),
	}
	for i, rc := range rp.Contents {
		c, err := d.pageContent(rc)
		if err != nil {
			return Page{}, fmt.Errorf("content %d: %w", i, err)
		}
		page.Contents = append(page.Contents, c)
	}
	return page, nil
}

func (d decoder) pageContent(rc rawContent) (PageContent, error) {
	switch canonicalKind(rc.Kind) {
	case KindOutline:
		items, err := d.items(rc.Items)
		if err != nil {
			return nil, err
		}
		return &Outline{Items: items}, nil
	case KindImage:
		return d.image(rc)
	case KindEmbeddedFile:
		return d.embeddedFile(rc)
	case KindInk:
		return ink(rc), nil
	default:
		return &Unknown{Kind: rc.Kind}, nil
	}
}

func (d decoder) elementContent(rc rawContent) (ElementContent, error) {
	switch canonicalKind(rc.Kind) {
	case KindRichText:
		return &RichText{Text: rc.Text}, nil
	case KindImage:
		return d.image(rc)
	case KindEmbeddedFile:
		return d.embeddedFile(rc)
	case KindInk:
		return ink(rc), nil
	default:
		return &Unknown{Kind: rc.Kind}, nil
	}
}

func (d decoder) items(raw []rawItem) ([]OutlineItem, error) {
	items := make([]OutlineItem, 0, len(raw))
	for i, ri := range raw {
		item := OutlineItem{}
		if ri.Element != nil {
			el := &OutlineElement{Contents: make([]ElementContent, 0, len(ri.Element.Contents))}
			for j, rc := range ri.Element.Contents {
				c, err := d.elementContent(rc)
				if err != nil {
					return nil, fmt.Errorf("item %d, content %d: %w", i, j, err)
				}
				el.Contents = append(el.Contents, c)
			}
			item.Element = el
		}
		if len(ri.Children) > 0 {
			children, err := d.items(ri.Children)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			item.Children = children
		}
		items = append(items, item)
	}
	return items, nil
}

// image decodes an image node. A missing payload is not an error: the image
// simply renders nothing.
func (d decoder) image(rc rawContent) (*Image, error) {
	data, err := d.payload(rc)
	if err != nil {
		return nil, err
	}
	return &Image{
		Data:      data,
		Extension: rc.Ext,
		AltText:   rc.Alt,
	}, nil
}

func (d decoder) embeddedFile(rc rawContent) (*EmbeddedFile, error) {
	data, err := d.payload(rc)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingPayload, rc.Filename)
	}
	name := rc.Filename
	if name == "" && rc.Src != "" {
		name = baseName(rc.Src)
	}
	return &EmbeddedFile{Filename: name, Data: data}, nil
}

// payload returns the bytes of a node, from inline base64 data or from src.
// It returns nil when neither is set.
func (d decoder) payload(rc rawContent) ([]byte, error) {
	if rc.Data != "" {
		data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(rc.Data), ""))
		if err != nil {
			return nil, fmt.Errorf("invalid base64 payload: %w", err)
		}
		return data, nil
	}
	if rc.Src == "" {
		return nil, nil
	}
	if d.files == nil {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, rc.Src)
	}
	return d.files.ReadFile(rc.Src)
}

func ink(rc rawContent) *Ink {
	if rc.BBox == nil {
		return &Ink{}
	}
	return &Ink{BoundingBox: &BoundingBox{
		X:      rc.BBox.X,
		Y:      rc.BBox.Y,
		Width:  rc.BBox.Width,
		Height: rc.BBox.Height,
	}}
}

func canonicalKind(kind string) string {
	k := strings.ToLower(strings.TrimSpace(kind))
	k = strings.ReplaceAll(k, "-", "_")
	if alias, ok := kindAliases[k]; ok {
		return alias
	}
	return k
}

func baseName(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
