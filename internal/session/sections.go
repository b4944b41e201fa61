package session

import (
	"errors"

	"github.com/stackgen-cli/compose-edit/internal/edit"
	"github.com/stackgen-cli/compose-edit/internal/models"
)

// ErrUnknownResource is returned for a section entry that does not exist
var ErrUnknownResource = errors.New("unknown resource")

// SectionEditor edits one top-level section of a session under its lock
type SectionEditor[T any] struct {
	s   *Session
	sec *edit.Section[T]
}

// Networks returns the editor of the networks section
func (s *Session) Networks() SectionEditor[models.NetworkConfig] {
	return SectionEditor[models.NetworkConfig]{s: s, sec: s.networks}
}

// Volumes returns the editor of the volumes section
func (s *Session) Volumes() SectionEditor[models.VolumeConfig] {
	return SectionEditor[models.VolumeConfig]{s: s, sec: s.volumes}
}

// Secrets returns the editor of the secrets section
func (s *Session) Secrets() SectionEditor[models.SecretConfig] {
	return SectionEditor[models.SecretConfig]{s: s, sec: s.secrets}
}

// Configs returns the editor of the configs section
func (s *Session) Configs() SectionEditor[models.ConfigConfig] {
	return SectionEditor[models.ConfigConfig]{s: s, sec: s.configs}
}

func (e SectionEditor[T]) Get(name string) (T, bool) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.sec.Get(name)
}

func (e SectionEditor[T]) Names() []string {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.sec.Names()
}

// Put adds or replaces an entry
func (e SectionEditor[T]) Put(name string, cfg T) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return e.write(func() error {
		e.sec.Put(name, cfg)
		return nil
	})
}

// Remove deletes an entry. Services still referencing it are not edited.
func (e SectionEditor[T]) Remove(name string) error {
	return e.write(func() error {
		if !e.sec.Remove(name) {
			return invalid(name, ErrUnknownResource)
		}
		return nil
	})
}

// Rename moves an entry to a new name
func (e SectionEditor[T]) Rename(oldName, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}
	return e.write(func() error {
		if _, ok := e.sec.Get(oldName); !ok {
			return invalid(oldName, ErrUnknownResource)
		}
		if _, taken := e.sec.Get(newName); taken {
			return invalid(newName, ErrDuplicateName)
		}
		return e.sec.Rename(oldName, newName)
	})
}

// Delta returns the pending change-set of the section
func (e SectionEditor[T]) Delta() map[string]*T {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.sec.Delta()
}

func (e SectionEditor[T]) Dirty() bool {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.sec.Dirty()
}

// Discard drops the section draft
func (e SectionEditor[T]) Discard() {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.sec.Discard()
	e.s.dispatch(Edited{Dirty: e.s.dirty()})
}

func (e SectionEditor[T]) write(fn func() error) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if err := e.s.requireReady(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	e.s.dispatch(Edited{Dirty: e.s.dirty()})
	return nil
}
