package converter

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuanying/one2html/internal/notebook"
)

func newTestPageRenderer(t *testing.T) (*PageRenderer, string) {
	t.Helper()
	r, dir := newTestContentRenderer(t)
	return NewPageRenderer(dir, r, nil), dir
}

func TestPageTitleAndStem(t *testing.T) {
	assert.Equal(t, "page_2", PageTitle(notebook.Page{}, 2))
	assert.Equal(t, "page_2", PageStem(notebook.Page{}, 2))
	assert.Equal(t, "page_0", PageStem(notebook.Page{Title: "   "}, 0))
	assert.Equal(t, "a_b", PageStem(notebook.Page{Title: "a/b"}, 0))
	assert.Equal(t, "Plans", PageTitle(notebook.Page{Title: "Plans"}, 5))
}

func TestPageRenderer_Render(t *testing.T) {
	r, dir := newTestPageRenderer(t)
	page := notebook.Page{
		Title: "Tom & <Jerry>",
		Contents: []notebook.PageContent{
			outline(&notebook.RichText{Text: "A & B <tag>"}),
			&notebook.Image{Data: []byte("png"), Extension: "png"},
			&notebook.EmbeddedFile{Filename: "notes.pdf", Data: []byte("pdf")},
			&notebook.Ink{BoundingBox: &notebook.BoundingBox{X: 1, Y: 2, Width: 3, Height: 4}},
			&notebook.Unknown{},
		},
	}
	stem := PageStem(page, 0)

	res, err := r.Render(context.Background(), page, 0, stem)
	require.NoError(t, err)
	assert.Equal(t, "Tom & _Jerry_", res.Stem)
	assert.Equal(t, "Tom & _Jerry_.html", res.File)
	assert.Equal(t, []string{"Tom & _Jerry__img.png", "Tom & _Jerry__notes.pdf"}, res.Assets)

	content := string(readFile(t, filepath.Join(dir, res.File)))
	assert.True(t, strings.HasPrefix(content, "<!doctype html>\n"))
	assert.Contains(t, content, `<meta charset="utf-8">`)
	assert.Contains(t, content, "<title>Tom &amp; &lt;Jerry&gt;</title>")
	assert.Contains(t, content, "<p>A &amp; B &lt;tag&gt;</p>")
	assert.Contains(t, content, "<!-- ink bbox: x=1 y=2 width=3 height=4 -->")
	assert.True(t, strings.HasSuffix(content, "</body>\n</html>\n"))

	doc := parseHTMLFile(t, filepath.Join(dir, res.File))
	src, ok := doc.Find("img").Attr("src")
	require.True(t, ok)
	assert.Equal(t, "Tom%20&%20_Jerry__img.png", src)
	assert.Equal(t, []byte("png"), readFile(t, filepath.Join(dir, "Tom & _Jerry__img.png")))

	link := doc.Find("a")
	assert.Equal(t, "notes.pdf", link.Text())
	href, _ := link.Attr("href")
	assert.Equal(t, "Tom%20&%20_Jerry__notes.pdf", href)
}

func TestPageRenderer_UntitledPage(t *testing.T) {
	r, dir := newTestPageRenderer(t)
	page := notebook.Page{Contents: []notebook.PageContent{outline(&notebook.RichText{Text: "x"})}}

	res, err := r.Render(context.Background(), page, 2, PageStem(page, 2))
	require.NoError(t, err)
	assert.Equal(t, "page_2", res.Stem)
	assert.Equal(t, "page_2", res.Title)

	doc := parseHTMLFile(t, filepath.Join(dir, "page_2.html"))
	assert.Equal(t, "page_2", doc.Find("title").Text())
}

func TestPageRenderer_OverwritesExistingFile(t *testing.T) {
	r, dir := newTestPageRenderer(t)
	page := notebook.Page{Title: "Same"}

	_, err := r.Render(context.Background(), page, 0, "Same")
	require.NoError(t, err)
	page.Contents = []notebook.PageContent{outline(&notebook.RichText{Text: "updated"})}
	_, err = r.Render(context.Background(), page, 0, "Same")
	require.NoError(t, err)

	assert.Contains(t, string(readFile(t, filepath.Join(dir, "Same.html"))), "<p>updated</p>")
}

func TestPageRenderer_Failure(t *testing.T) {
	r, dir := newTestPageRenderer(t)
	blockPath(t, filepath.Join(dir, "Broken.html"))

	_, err := r.Render(context.Background(), notebook.Page{Title: "Broken"}, 3, "Broken")

	var pageErr *PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, "Broken", pageErr.Stem)
	assert.Equal(t, 3, pageErr.Index)
}

func TestPageRenderer_Cancelled(t *testing.T) {
	r, dir := newTestPageRenderer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, notebook.Page{Title: "Late"}, 0, "Late")
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dir, "Late.html"))
}
