package converter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/yuanying/one2html/internal/fileutil"
	"github.com/yuanying/one2html/internal/notebook"
)

const (
	indexFileName = "index.html"
	indexTemplate = `<!DOCTYPE html><html><head><meta charset="utf-8"><title></title></head><body></body></html>`
)

// indexTitle returns the heading of the index page.
func indexTitle(doc *notebook.Document) string {
	if t := strings.TrimSpace(doc.Title); t != "" {
		return t
	}
	return "Pages"
}

// BuildIndex generates an HTML page that links every successfully exported
// page, grouped by series in document order.
func BuildIndex(title string, pages []PageResult) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(indexTemplate))
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	doc.Find("title").SetText(title)
	nodes := []*html.Node{element(atom.H1, nil, text(title))}
	var list *html.Node
	series := -1
	for _, p := range pages {
		if list == nil || p.Series != series {
			series = p.Series
			list = element(atom.Ul, nil)
			nodes = append(nodes, element(atom.H2, nil, text(fmt.Sprintf("Series %d", series+1))), list)
		}
		link := element(atom.A, []html.Attribute{{Key: "href", Val: assetRef(p.File)}}, text(p.Title))
		list.AppendChild(element(atom.Li, nil, link))
	}
	doc.Find("body").AppendNodes(nodes...)

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to generate HTML: %w", err)
	}
	return out, nil
}

// writeIndex builds the index page from report and writes it to outputDir.
func writeIndex(outputDir, title string, report *Report) error {
	content, err := BuildIndex(title, report.Succeeded)
	if err != nil {
		return err
	}
	path := filepath.Join(outputDir, indexFileName)
	if err := fileutil.WriteFileAtomic(path, []byte(content), pagePerm); err != nil {
		return fmt.Errorf("write index %s: %w", path, err)
	}
	return nil
}

func element(a atom.Atom, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
