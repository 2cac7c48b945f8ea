package converter

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// MaxStemLength is the maximum length in bytes of a page stem.
const MaxStemLength = 120

// reservedChars are the characters that may not appear in a file name on at
// least one common filesystem.
const reservedChars = `\/*?:"<>|`

// maxExtLength bounds what is treated as an extension when shortening a file
// name. Longer dotted suffixes are treated as part of the base name.
const maxExtLength = 16

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

// Sanitize maps an arbitrary title to a filesystem-safe stem. Reserved and
// control characters become '_', the result is NFC-normalized, trimmed and
// cut to at most MaxStemLength bytes on a grapheme cluster boundary.
// An empty or all-whitespace title yields "".
func Sanitize(title string) string {
	s := replaceReserved(norm.NFC.String(title))
	s = strings.TrimSpace(s)
	s = truncateGraphemes(s, MaxStemLength)
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

// sanitizeFilename sanitizes an attachment file name, keeping its extension
// when the name has to be shortened.
func sanitizeFilename(name string, limit int) string {
	s := strings.TrimSpace(replaceReserved(norm.NFC.String(name)))
	if len(s) <= limit {
		return s
	}
	ext := filepath.Ext(s)
	if len(ext) > maxExtLength || len(ext) >= limit {
		return truncateGraphemes(s, limit)
	}
	base := truncateGraphemes(strings.TrimSuffix(s, ext), limit-len(ext))
	return base + ext
}

func replaceReserved(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(reservedChars, r) || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, s)
}

// truncateGraphemes cuts s to at most limit bytes without splitting a
// grapheme cluster.
func truncateGraphemes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	end := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		_, to := g.Positions()
		if to > limit {
			break
		}
		end = to
	}
	return s[:end]
}

// Escape makes text safe for an HTML text node by escaping '&', '<' and '>'.
func Escape(text string) string {
	return textEscaper.Replace(text)
}

// escapeAttr makes text safe inside a double-quoted attribute value.
func escapeAttr(text string) string {
	return attrEscaper.Replace(text)
}
