// Test program for the notebook section reader
//
// Usage:
//
//	go run ./cmd/test/notebook_reader/main.go <section-file>
//
// This program checks the following:
// - Opening standalone manifests and ZIP bundles
// - Decoding series, pages and content nodes
// - Resolving image and attachment payloads
// - The file stem each page would be exported under
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/yuanying/one2html/internal/converter"
	"github.com/yuanying/one2html/internal/notebook"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/test/notebook_reader/main.go <section-file>")
		os.Exit(1)
	}

	path := os.Args[1]
	fmt.Printf("Opening section: %s\n", path)
	doc, err := notebook.Open(path)
	if err != nil {
		log.Fatal("failed to open section", "err", err)
	}

	fmt.Printf("✓ Section opened successfully\n")
	fmt.Printf("Title: %q\n", doc.Title)
	fmt.Printf("Series: %d, pages: %d\n", len(doc.Series), doc.PageCount())

	for si, series := range doc.Series {
		fmt.Printf("\n[series %d] %d pages\n", si, len(series.Pages))
		for pi, page := range series.Pages {
			fmt.Printf("  page %d: %q -> %s.html\n", pi, converter.PageTitle(page, pi), converter.PageStem(page, pi))
			for _, c := range page.Contents {
				dumpPageContent(c, 2)
			}
		}
	}

	fmt.Println("\n✓ All content decoded!")
}

func dumpPageContent(c notebook.PageContent, depth int) {
	indent := strings.Repeat("  ", depth)
	switch c := c.(type) {
	case *notebook.Outline:
		fmt.Printf("%soutline (%d items)\n", indent, len(c.Items))
		dumpItems(c.Items, depth+1)
	case notebook.ElementContent:
		dumpElementContent(c, depth)
	default:
		fmt.Printf("%s%T\n", indent, c)
	}
}

func dumpItems(items []notebook.OutlineItem, depth int) {
	indent := strings.Repeat("  ", depth)
	for i, item := range items {
		fmt.Printf("%sitem %d\n", indent, i)
		if item.Element != nil {
			for _, c := range item.Element.Contents {
				dumpElementContent(c, depth+1)
			}
		}
		dumpItems(item.Children, depth+1)
	}
}

func dumpElementContent(c notebook.ElementContent, depth int) {
	indent := strings.Repeat("  ", depth)
	switch c := c.(type) {
	case *notebook.RichText:
		fmt.Printf("%stext: %q\n", indent, c.Text)
	case *notebook.Image:
		fmt.Printf("%simage: %d bytes, ext %q, alt %q\n", indent, len(c.Data), c.Extension, c.AltText)
	case *notebook.EmbeddedFile:
		fmt.Printf("%sfile: %q, %d bytes\n", indent, c.Filename, len(c.Data))
	case *notebook.Ink:
		if bb := c.BoundingBox; bb != nil {
			fmt.Printf("%sink: x=%g y=%g width=%g height=%g\n", indent, bb.X, bb.Y, bb.Width, bb.Height)
		} else {
			fmt.Printf("%sink: no bounding box\n", indent)
		}
	case *notebook.Unknown:
		fmt.Printf("%sunknown: %q\n", indent, c.Kind)
	default:
		fmt.Printf("%s%T\n", indent, c)
	}
}
