package vpath

import "strings"

// Domain distinguishes the virtual saved tree from the local real
// filesystem. The two are never interchangeable: every move must assert
// both endpoints belong to the same domain.
type Domain int

const (
	DomainUnknown Domain = iota
	DomainVirtual
	DomainLocal
)

// DomainOf classifies a path. tg:// references and saved-root paths are
// virtual; OS-style absolute paths (drive letters, other roots) are local.
func DomainOf(path string) Domain {
	p := strings.TrimSpace(path)
	switch {
	case p == "":
		return DomainUnknown
	case strings.HasPrefix(p, Scheme), strings.HasPrefix(p, messageRefPrefix):
		return DomainVirtual
	case p == "/" || p == Root || strings.HasPrefix(p, Root+"/"):
		return DomainVirtual
	case len(p) >= 2 && p[1] == ':':
		return DomainLocal
	case strings.HasPrefix(p, `\\`), strings.HasPrefix(p, "/"):
		return DomainLocal
	default:
		return DomainUnknown
	}
}

// SameDomain reports whether two paths can legally participate in one
// move or paste operation.
func SameDomain(a, b string) bool {
	da, db := DomainOf(a), DomainOf(b)
	return da != DomainUnknown && da == db
}
