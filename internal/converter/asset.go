package converter

import (
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yuanying/one2html/internal/fileutil"
	"github.com/yuanying/one2html/internal/notebook"
)

const (
	imageSuffix      = "img"
	defaultImageExt  = "bin"
	defaultFilename  = "file"
	maxFilenameBytes = 120
	assetPerm        = 0o644
)

// AssetError reports a failure to write an extracted asset.
type AssetError struct {
	Path string
	Err  error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("write asset %s: %v", e.Path, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// AssetWriter writes binary payloads next to the page files under names
// prefixed with the page stem.
type AssetWriter struct {
	outputDir string
	registry  *NameRegistry
	optimizer *ImageOptimizer
	logger    *slog.Logger
}

// NewAssetWriter creates an asset writer for outputDir. Names are claimed in
// registry so that no two writes of a run share a file. The pipeline always
// passes an optimizer; a nil optimizer writes image payloads untouched and
// picks their extension from the hint alone.
func NewAssetWriter(outputDir string, registry *NameRegistry, optimizer *ImageOptimizer, logger *slog.Logger) *AssetWriter {
	if registry == nil {
		registry = NewNameRegistry()
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &AssetWriter{
		outputDir: outputDir,
		registry:  registry,
		optimizer: optimizer,
		logger:    logger,
	}
}

// Write stores payload as {outputDir}/{stem}_{suffix}. If that name is
// already taken in this run, a counter is inserted before the extension.
// It returns the reference to use from a page in the same directory.
func (w *AssetWriter) Write(stem, suffix string, payload []byte) (string, error) {
	name, err := w.store(stem+"_"+suffix, payload)
	if err != nil {
		return "", err
	}
	return assetRef(name), nil
}

// WriteImage stores an image payload. The first image of a page is named
// {stem}_img.{ext}, the following ones {stem}_img_1.{ext}, {stem}_img_2.{ext}.
func (w *AssetWriter) WriteImage(rc *RenderContext, img *notebook.Image) (string, error) {
	data := img.Data
	format := ""
	if w.optimizer != nil {
		opt, err := w.optimizer.Optimize(img.Data)
		if err != nil {
			return "", &AssetError{Path: rc.Stem + "_" + imageSuffix, Err: err}
		}
		if opt.Warning != "" {
			w.logger.Warn("image kept as-is", "page", rc.Stem, "reason", opt.Warning)
		}
		if opt.Resized {
			w.logger.Debug("image resized", "page", rc.Stem, "width", opt.Width, "height", opt.Height)
		}
		data = opt.Data
		format = opt.Format
	}

	ext := imageExtension(img.Extension, format)
	var name string
	for {
		candidate := rc.Stem + "_" + imageSuffix
		if rc.imageCount > 0 {
			candidate += "_" + strconv.Itoa(rc.imageCount)
		}
		candidate += "." + ext
		rc.imageCount++
		if w.registry.Reserve(candidate) {
			name = candidate
			break
		}
	}

	if err := w.writeFile(name, data); err != nil {
		return "", err
	}
	rc.assets = append(rc.assets, name)
	return assetRef(name), nil
}

// WriteEmbeddedFile stores an attachment under {stem}_{filename}.
func (w *AssetWriter) WriteEmbeddedFile(rc *RenderContext, f *notebook.EmbeddedFile) (string, error) {
	filename := sanitizeFilename(f.Filename, maxFilenameBytes)
	if filename == "" {
		filename = defaultFilename
	}
	name, err := w.store(rc.Stem+"_"+filename, f.Data)
	if err != nil {
		return "", err
	}
	rc.assets = append(rc.assets, name)
	return assetRef(name), nil
}

// store claims name (or a free variant of it) and writes payload there.
func (w *AssetWriter) store(name string, payload []byte) (string, error) {
	name = w.registry.Claim(name)
	if err := w.writeFile(name, payload); err != nil {
		return "", err
	}
	return name, nil
}

func (w *AssetWriter) writeFile(name string, payload []byte) error {
	path := filepath.Join(w.outputDir, name)
	if err := fileutil.WriteFileAtomic(path, payload, assetPerm); err != nil {
		return &AssetError{Path: path, Err: err}
	}
	w.logger.Debug("asset written", "path", path, "bytes", len(payload))
	return nil
}

// imageExtension picks the asset extension: the hint when present, otherwise
// the detected format, otherwise "bin".
func imageExtension(hint, detected string) string {
	ext := strings.ToLower(strings.TrimSpace(hint))
	ext = strings.TrimLeft(ext, ".")
	ext = sanitizeFilename(ext, maxExtLength)
	ext = strings.ReplaceAll(ext, ".", "_")
	if ext != "" {
		return ext
	}
	if detected != "" {
		return formatExtension(detected)
	}
	return defaultImageExt
}

// assetRef turns a file name into a relative URL reference.
func assetRef(name string) string {
	return (&url.URL{Path: name}).String()
}
