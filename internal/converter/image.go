package converter

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	defaultJPEGQuality = 85
	defaultMaxPixels   = 100 * 1000 * 1000 // 100 megapixels
)

// ImageOptimizer downsizes raster images wider than MaxWidth. With MaxWidth
// 0 it only detects the image format and leaves the payload untouched.
type ImageOptimizer struct {
	MaxWidth    int
	JPEGQuality int
	MaxPixels   int // Total pixel count limit for decode (width * height)
}

// OptimizedImage holds image data and metadata.
// Warning is set (non-empty) when the image was returned as-is although a
// resize was requested. Data is usable in every case.
type OptimizedImage struct {
	Data    []byte
	Width   int
	Height  int
	Format  string // Detected format ("png", "jpeg", ...), empty if unknown
	Resized bool
	Warning string
}

// NewImageOptimizer creates an image optimizer from the conversion options.
func NewImageOptimizer(opts ConvertOptions) *ImageOptimizer {
	quality := opts.JPEGQuality
	if quality <= 0 {
		quality = defaultJPEGQuality
	}
	if quality > 100 {
		quality = 100
	}

	maxWidth := opts.MaxImageWidth
	if maxWidth < 0 {
		maxWidth = 0
	}

	return &ImageOptimizer{
		MaxWidth:    maxWidth,
		JPEGQuality: quality,
		MaxPixels:   defaultMaxPixels,
	}
}

// Optimize inspects input and, when it is a decodable raster image wider than
// MaxWidth, resizes it and re-encodes it in its own format. Undecodable data
// passes through unchanged. Only encoding errors return a non-nil error.
func (o *ImageOptimizer) Optimize(input []byte) (OptimizedImage, error) {
	out := OptimizedImage{Data: input}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(input))
	if err != nil {
		return out, nil
	}
	out.Format = strings.ToLower(format)
	out.Width = cfg.Width
	out.Height = cfg.Height

	if o.MaxWidth <= 0 || cfg.Width <= o.MaxWidth {
		return out, nil
	}

	pixels := uint64(cfg.Width) * uint64(cfg.Height)
	if o.MaxPixels > 0 && pixels > uint64(o.MaxPixels) {
		out.Warning = fmt.Sprintf("image too large to decode: %dx%d (%d pixels)", cfg.Width, cfg.Height, pixels)
		return out, nil
	}

	target, ok := encodableFormat(out.Format)
	if !ok {
		out.Warning = fmt.Sprintf("cannot re-encode %s images, keeping original", out.Format)
		return out, nil
	}

	if out.Format == "gif" {
		animated, err := isAnimatedGIF(input)
		if err == nil && animated {
			out.Warning = "animated gif kept at original size"
			return out, nil
		}
	}

	src, _, err := image.Decode(bytes.NewReader(input))
	if err != nil {
		out.Warning = fmt.Sprintf("image decode failed: %v", err)
		return out, nil
	}

	resized := imaging.Resize(src, o.MaxWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, target, imaging.JPEGQuality(o.JPEGQuality)); err != nil {
		return out, fmt.Errorf("%s encode failed: %w", out.Format, err)
	}

	out.Data = buf.Bytes()
	out.Width = resized.Bounds().Dx()
	out.Height = resized.Bounds().Dy()
	out.Resized = true
	return out, nil
}

// encodableFormat maps a decoded format name to an imaging encoder.
func encodableFormat(format string) (imaging.Format, bool) {
	switch format {
	case "jpeg":
		return imaging.JPEG, true
	case "png":
		return imaging.PNG, true
	case "gif":
		return imaging.GIF, true
	case "bmp":
		return imaging.BMP, true
	case "tiff":
		return imaging.TIFF, true
	default:
		return 0, false
	}
}

// formatExtension returns the file extension for a decoded format name.
func formatExtension(format string) string {
	switch format {
	case "jpeg":
		return "jpg"
	case "tiff":
		return "tif"
	default:
		return format
	}
}

func isAnimatedGIF(data []byte) (bool, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return false, err
	}
	return len(g.Image) > 1, nil
}
