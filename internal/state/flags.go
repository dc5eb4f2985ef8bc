package state

// Key namespaces. Read flags were historically written under page-specific
// prefixes; the unified prefix is primary and the old ones are mirrored so
// state recorded by either page remains visible.
const (
	readPrefix     = "blades.read."
	expandedPrefix = "blades.expanded."

	// PageSizeKey stores the archive page size.
	PageSizeKey = "archive.pageSize"
)

var legacyReadPrefixes = []string{"socials.read.", "archive.read."}

// Flags tracks per-item read and expanded booleans. Write failures are
// swallowed: tracking degrades to "always unread" but the feed keeps
// functioning.
type Flags struct {
	read     Store
	expanded Store
}

// NewFlags creates a Flags view over the given store.
func NewFlags(s Store) *Flags {
	return &Flags{
		read:     Mirrored(s, readPrefix, legacyReadPrefixes...),
		expanded: Mirrored(s, expandedPrefix),
	}
}

// Read reports whether the item with the given identity key is read.
func (f *Flags) Read(id string) bool {
	v, _ := f.read.Get(id)
	return v == "1"
}

// SetRead records the read flag for an item.
func (f *Flags) SetRead(id string, val bool) {
	_ = f.read.Set(id, boolFlag(val))
}

// Expanded reports whether the item is expanded.
func (f *Flags) Expanded(id string) bool {
	v, _ := f.expanded.Get(id)
	return v == "1"
}

// SetExpanded records the expanded flag for an item.
func (f *Flags) SetExpanded(id string, val bool) {
	_ = f.expanded.Set(id, boolFlag(val))
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
