package edit

import (
	"fmt"
	"maps"
	"slices"
)

// Section holds edits to one top-level resource class (networks, volumes,
// secrets or configs). Reads are served from the base until the first write,
// which copies the whole mapping into a draft. Values are replaced whole;
// callers must not modify maps or slices inside a value they read.
type Section[T any] struct {
	base    map[string]T
	draft   map[string]T
	touched map[string]bool
	rev     uint64
}

// NewSection creates a clean section over base
func NewSection[T any](base map[string]T) *Section[T] {
	return &Section[T]{base: base}
}

// Revision increases on every write and discard
func (s *Section[T]) Revision() uint64 { return s.rev }

// Rebase replaces the base mapping, keeping the draft. Entries the draft
// never wrote follow the new base; removals stay removed.
func (s *Section[T]) Rebase(base map[string]T) {
	if s.draft != nil {
		for name := range s.base {
			if _, still := base[name]; !still && !s.touched[name] {
				delete(s.draft, name)
			}
		}
		for name, cfg := range base {
			if s.touched[name] {
				continue
			}
			_, wasInBase := s.base[name]
			_, inDraft := s.draft[name]
			if inDraft || !wasInBase {
				s.draft[name] = cfg
			}
		}
	}
	s.base = base
}

func (s *Section[T]) current() map[string]T {
	if s.draft != nil {
		return s.draft
	}
	return s.base
}

// Get returns the effective config for name
func (s *Section[T]) Get(name string) (T, bool) {
	v, ok := s.current()[name]
	return v, ok
}

// Names returns the effective entry names, sorted
func (s *Section[T]) Names() []string {
	return slices.Sorted(maps.Keys(s.current()))
}

// All returns the effective mapping. It must not be modified.
func (s *Section[T]) All() map[string]T {
	return s.current()
}

func (s *Section[T]) write() {
	if s.draft == nil {
		s.draft = maps.Clone(s.base)
		if s.draft == nil {
			s.draft = make(map[string]T)
		}
		s.touched = make(map[string]bool)
	}
	s.rev++
}

// Put adds or replaces an entry
func (s *Section[T]) Put(name string, cfg T) {
	s.write()
	s.draft[name] = cfg
	s.touched[name] = true
}

// Remove deletes an entry and reports whether it existed
func (s *Section[T]) Remove(name string) bool {
	if _, ok := s.current()[name]; !ok {
		return false
	}
	s.write()
	delete(s.draft, name)
	delete(s.touched, name)
	return true
}

// Rename moves an entry to a new name
func (s *Section[T]) Rename(oldName, newName string) error {
	cfg, ok := s.current()[oldName]
	if !ok {
		return fmt.Errorf("%s: not found", oldName)
	}
	if _, taken := s.current()[newName]; taken {
		return fmt.Errorf("%s: already exists", newName)
	}
	s.Remove(oldName)
	s.Put(newName, cfg)
	return nil
}

// Dirty reports whether the draft differs from the base
func (s *Section[T]) Dirty() bool {
	return len(s.Delta()) > 0
}

// Discard drops the draft
func (s *Section[T]) Discard() {
	s.draft = nil
	s.touched = nil
	s.rev++
}

// Delta returns the change-set for this section: written entries map to
// their value, base entries missing from the draft map to nil (delete), and
// untouched entries are omitted. Entries are compared by key presence and
// write history only, never by content.
func (s *Section[T]) Delta() map[string]*T {
	delta := make(map[string]*T)
	if s.draft == nil {
		return delta
	}

	for name, cfg := range s.draft {
		_, inBase := s.base[name]
		if s.touched[name] || !inBase {
			delta[name] = &cfg
		}
	}
	for name := range s.base {
		if _, ok := s.draft[name]; !ok {
			delta[name] = nil
		}
	}
	return delta
}
