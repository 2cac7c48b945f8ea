package notebook

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// manifestNames lists the accepted manifest file names at the bundle root, in
// lookup order.
var manifestNames = []string{"section.yaml", "section.yml", "section.json"}

var zipMagic = []byte("PK\x03\x04")

var (
	ErrEmptyInput       = errors.New("input file is empty")
	ErrManifestNotFound = errors.New("section manifest not found in bundle")
	ErrAssetNotFound    = errors.New("asset not found")
	ErrAssetEscapes     = errors.New("asset path escapes the section root")
	ErrMissingPayload   = errors.New("embedded file has no data")
)

// ParseError reports a failure to read or decode an input section.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser turns an input file into a Document.
type Parser interface {
	Parse(path string) (*Document, error)
}

// SectionParser reads exported sections, either standalone manifests or ZIP
// bundles.
type SectionParser struct {
	// Strict rejects manifests with fields the decoder does not know.
	Strict bool
}

// Parse implements Parser.
func (p SectionParser) Parse(path string) (*Document, error) {
	return open(path, p.Strict)
}

// fileReader resolves payload paths referenced from a manifest.
type fileReader interface {
	ReadFile(path string) ([]byte, error)
}

// Open reads the section at path. The input kind is detected from its
// content: ZIP archives are treated as bundles, anything else as a manifest.
func Open(path string) (*Document, error) {
	return open(path, false)
}

func open(path string, strict bool) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if len(data) == 0 {
		return nil, &ParseError{Path: path, Err: ErrEmptyInput}
	}

	var doc *Document
	if bytes.HasPrefix(data, zipMagic) {
		doc, err = parseBundle(data, strict)
	} else {
		doc, err = parseStandalone(filepath.Dir(path), data, strict)
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return doc, nil
}

func parseStandalone(dir string, manifest []byte, strict bool) (*Document, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open section directory: %w", err)
	}
	defer root.Close()
	return decode(manifest, &dirReader{root: root}, strict)
}

// dirReader reads payloads below the manifest's directory.
type dirReader struct {
	root *os.Root
}

func (r *dirReader) ReadFile(name string) ([]byte, error) {
	name = filepath.FromSlash(name)
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("%w: %s", ErrAssetEscapes, name)
	}
	f, err := r.root.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
		}
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func parseBundle(data []byte, strict bool) (*Document, error) {
	br, err := newBundleReader(data)
	if err != nil {
		return nil, err
	}
	manifest, err := br.manifest()
	if err != nil {
		return nil, err
	}
	return decode(manifest, br, strict)
}

// bundleReader provides access to the files of a ZIP bundle.
type bundleReader struct {
	files map[string]*zip.File
}

func newBundleReader(data []byte) (*bundleReader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}

	br := &bundleReader{files: make(map[string]*zip.File)}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		br.files[normalizePath(f.Name)] = f
	}
	return br, nil
}

func (r *bundleReader) manifest() ([]byte, error) {
	for _, name := range manifestNames {
		if _, ok := r.files[name]; ok {
			return r.ReadFile(name)
		}
	}
	return nil, ErrManifestNotFound
}

// ReadFile reads the contents of a file from the bundle.
func (r *bundleReader) ReadFile(name string) ([]byte, error) {
	name = normalizePath(name)
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return nil, fmt.Errorf("%w: %s", ErrAssetEscapes, name)
	}
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", name, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// normalizePath normalizes bundle paths (slashes, ./ prefix, . and .. segments).
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	return path.Clean(p)
}
