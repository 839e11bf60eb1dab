package hcp

import "strings"

// Store exposes HCP lookups for handlers and agent tools.
type Store interface {
	List() []Profile
	FindByID(id string) (Profile, bool)
	FindByName(name string) (Profile, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Profile
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied profiles.
func NewMemoryStore(items []Profile) *MemoryStore {
	return &MemoryStore{items: append([]Profile(nil), items...)}
}

// List returns the directory.
func (s *MemoryStore) List() []Profile {
	return append([]Profile(nil), s.items...)
}

// FindByID returns the profile with the exact identifier.
func (s *MemoryStore) FindByID(id string) (Profile, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Profile{}, false
}

// FindByName matches a name or alias case-insensitively, ignoring a leading
// "Dr." when the query omits it.
func (s *MemoryStore) FindByName(name string) (Profile, bool) {
	query := normalizeName(name)
	if query == "" {
		return Profile{}, false
	}
	for _, item := range s.items {
		if normalizeName(item.Name) == query || normalizeName(item.ID) == query {
			return item, true
		}
		for _, alias := range item.Aliases {
			if normalizeName(alias) == query {
				return item, true
			}
		}
	}
	return Profile{}, false
}

func normalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "dr.")
	n = strings.TrimPrefix(n, "dr ")
	return strings.Join(strings.Fields(n), " ")
}
