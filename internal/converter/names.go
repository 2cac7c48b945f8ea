package converter

import (
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// NameRegistry records the file names claimed in one output directory during
// an export run. Names are compared case-insensitively so that the output is
// also collision-free on case-insensitive filesystems. It is safe for
// concurrent use.
type NameRegistry struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewNameRegistry creates an empty registry.
func NewNameRegistry() *NameRegistry {
	return &NameRegistry{names: make(map[string]struct{})}
}

// Reserve claims name. It returns false when the name is already taken.
func (r *NameRegistry) Reserve(name string) bool {
	key := strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.names[key]; ok {
		return false
	}
	r.names[key] = struct{}{}
	return true
}

// Claim reserves name, or the first free variant of it with a counter
// inserted before the extension ("a_notes_1.pdf", "a_notes_2.pdf", ...).
// The returned name keeps the casing of name.
func (r *NameRegistry) Claim(name string) string {
	if r.Reserve(name) {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) > maxExtLength {
		ext = ""
	}
	base := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := base + "_" + strconv.Itoa(n) + ext
		if r.Reserve(candidate) {
			return candidate
		}
	}
}

// Len returns the number of claimed names.
func (r *NameRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}

// claimStem reserves the page file for stem and returns the stem actually
// used. Taken stems get a "_n" suffix, shortening the base so the result
// stays within MaxStemLength.
func claimStem(r *NameRegistry, stem string) string {
	if r.Reserve(stem + htmlExt) {
		return stem
	}
	for n := 1; ; n++ {
		suffix := "_" + strconv.Itoa(n)
		candidate := truncateGraphemes(stem, MaxStemLength-len(suffix)) + suffix
		if r.Reserve(candidate + htmlExt) {
			return candidate
		}
	}
}
