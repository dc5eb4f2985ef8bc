// Package state persists the small key/value facts that outlive a feed
// hydrate: per-item read and expanded flags, the archive page size, and
// story reading progress.
package state

// Store is a synchronous key/value store. Values are plain strings; the
// flag helpers use the literals "1" and "0".
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) (string, bool)
	// Set stores value under key, overwriting any previous value.
	Set(key, value string) error
}

// mirrored decorates a Store with namespace mirroring for backward
// compatibility: writes land in the primary namespace and every deprecated
// one; reads consult the primary namespace first, then each deprecated
// namespace in order. Deprecated write failures are best-effort.
type mirrored struct {
	store      Store
	primary    string
	deprecated []string
}

// Mirrored returns a Store view over s where keys are prefixed with the
// primary namespace and mirrored to the deprecated namespaces.
func Mirrored(s Store, primary string, deprecated ...string) Store {
	return &mirrored{store: s, primary: primary, deprecated: deprecated}
}

func (m *mirrored) Get(key string) (string, bool) {
	if v, ok := m.store.Get(m.primary + key); ok {
		return v, true
	}
	for _, p := range m.deprecated {
		if v, ok := m.store.Get(p + key); ok {
			return v, true
		}
	}
	return "", false
}

func (m *mirrored) Set(key, value string) error {
	err := m.store.Set(m.primary+key, value)
	for _, p := range m.deprecated {
		_ = m.store.Set(p+key, value)
	}
	return err
}
