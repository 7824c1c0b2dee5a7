// Package vpath is the virtual path resolver: pure string mapping between
// the canonical saved root, the exposed tg:// virtual scheme, and path
// segments. No I/O happens here.
package vpath

import (
	"strconv"
	"strings"

	"github.com/TG-SkyBox/SkyBox/internal/classify"
)

const (
	// Root is the canonical internal root of the saved tree.
	Root = "/Home"
	// RecycleBin is the reserved soft-delete folder.
	RecycleBin = "/Home/Recycle Bin"
	// Scheme is the externally exposed virtual root.
	Scheme = "tg://saved"

	messageRefPrefix = "tg://msg/"
)

// Normalize canonicalizes a saved path: backslashes become slashes,
// trailing slashes are dropped, and anything not already under the root
// is re-anchored beneath it. Empty and "/" map to the root.
func Normalize(path string) string {
	p := strings.TrimSpace(strings.ReplaceAll(path, `\`, "/"))
	if p == "" || p == "/" {
		return Root
	}
	p = strings.TrimRight(p, "/")
	if strings.HasPrefix(p, Root) {
		return p
	}
	if strings.HasPrefix(p, "/") {
		return Root + p
	}
	return Root + "/" + p
}

// ToSaved maps an external virtual path (tg://saved/... or a plain saved
// path) onto the canonical root. The second return is false when the
// input belongs to neither form.
func ToSaved(path string) (string, bool) {
	p := strings.TrimSpace(path)
	if strings.HasPrefix(p, Scheme) {
		rel := strings.Trim(strings.TrimPrefix(p, Scheme), "/")
		if rel == "" {
			return Root, true
		}
		return Root + "/" + rel, true
	}
	if strings.HasPrefix(p, "/") {
		return Normalize(p), true
	}
	return "", false
}

// ToVirtual maps a canonical saved path to the exposed tg:// form.
func ToVirtual(saved string) string {
	n := Normalize(saved)
	if n == Root {
		return Scheme
	}
	return Scheme + strings.TrimPrefix(n, Root)
}

// ParseMessageRef extracts the message id from a tg://msg/<id> reference.
func ParseMessageRef(path string) (int64, bool) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(path), messageRefPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SplitParentName splits a normalized path into its parent directory and
// final segment. The root has no parent and returns ok=false.
func SplitParentName(path string) (parent, name string, ok bool) {
	n := Normalize(path)
	if n == Root {
		return "", "", false
	}
	idx := strings.LastIndex(n, "/")
	if idx <= 0 {
		return "", "", false
	}
	parent, name = n[:idx], strings.TrimSpace(n[idx+1:])
	if name == "" {
		return "", "", false
	}
	return parent, name, true
}

// InRecycleBin reports whether a normalized path is the recycle bin or
// anything beneath it.
func InRecycleBin(path string) bool {
	return path == RecycleBin || strings.HasPrefix(path, RecycleBin+"/")
}

// IsDescendant reports whether path lies strictly beneath ancestor.
func IsDescendant(path, ancestor string) bool {
	return strings.HasPrefix(path, ancestor+"/")
}

// DefaultCategoryPath is the bucket folder an item lands in when indexed
// without an explicit destination.
func DefaultCategoryPath(category string) string {
	switch category {
	case classify.CategoryImages, classify.CategoryVideos, classify.CategoryAudios,
		classify.CategoryDocuments, classify.CategoryNotes:
		return Root + "/" + category
	default:
		return Root
	}
}

// Breadcrumb splits a virtual or saved path into ordered display
// segments. Paths inside the recycle bin collapse to the bin itself: the
// bin is presented as a flat listing, not a recreated subtree.
func Breadcrumb(path string) []string {
	n, ok := ToSaved(path)
	if !ok {
		n = Normalize(path)
	}
	if InRecycleBin(n) {
		return []string{"Home", "Recycle Bin"}
	}
	segments := strings.Split(strings.TrimPrefix(n, "/"), "/")
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
