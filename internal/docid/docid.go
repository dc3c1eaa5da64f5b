// Package docid derives document identifiers from folder pathnames and tag
// names, and validates those names before they reach the store.
package docid

import (
	"strings"

	"github.com/google/uuid"

	"github.com/starford/notestore/internal/models"
)

const (
	NotePrefix   = "note:"
	FolderPrefix = "folder:"
	TagPrefix    = "tag:"
	DesignPrefix = "_design/"

	// RootPathname is the pathname of the root folder.
	RootPathname = "/"
)

// NewNoteID returns a fresh note identifier.
func NewNoteID() string {
	return NotePrefix + uuid.NewString()
}

// FolderID returns the identifier of the folder at pathname.
func FolderID(pathname string) string {
	return FolderPrefix + pathname
}

// FolderPathname recovers the pathname from a folder identifier.
func FolderPathname(id string) string {
	return strings.TrimPrefix(id, FolderPrefix)
}

// TagID returns the identifier of the tag named name.
func TagID(name string) string {
	return TagPrefix + name
}

// TagName recovers the tag name from a tag identifier.
func TagName(id string) string {
	return strings.TrimPrefix(id, TagPrefix)
}

// KindOf classifies an identifier by its prefix.
func KindOf(id string) models.Kind {
	switch {
	case strings.HasPrefix(id, NotePrefix):
		return models.KindNote
	case strings.HasPrefix(id, FolderPrefix):
		return models.KindFolder
	case strings.HasPrefix(id, TagPrefix):
		return models.KindTag
	case strings.HasPrefix(id, DesignPrefix):
		return models.KindDesign
	default:
		return models.KindOther
	}
}

// PrefixRange returns the half-open id range [start, end) covering every key
// that starts with prefix, in byte order. An empty end leaves the range
// unbounded above.
func PrefixRange(prefix string) (start, end string) {
	return prefix, successor(prefix)
}

// SubtreeRange returns the half-open id range of every folder strictly below
// pathname. For the root that is every folder except the root itself.
func SubtreeRange(pathname string) (start, end string) {
	if pathname == RootPathname {
		root := FolderID(RootPathname)
		// "\x00" is the smallest byte, so only the root id sorts before start.
		return root + "\x00", successor(root)
	}
	return PrefixRange(FolderID(pathname) + "/")
}

// successor returns the smallest byte string greater than every string
// starting with p, or "" when there is none.
func successor(p string) string {
	b := []byte(p)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}

// ParentPathname returns the pathname one level above p. The root has no parent.
func ParentPathname(p string) (string, bool) {
	if p == RootPathname || p == "" {
		return "", false
	}
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return RootPathname, true
	}
	return p[:i], true
}
