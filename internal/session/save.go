package session

import (
	"context"
	"fmt"
	"slices"

	"github.com/stackgen-cli/compose-edit/internal/diff"
	"github.com/stackgen-cli/compose-edit/internal/edit"
	"github.com/stackgen-cli/compose-edit/internal/models"
)

func serviceTarget(name string) string { return "service:" + name }

// pendingSave is one submission being prepared under the session lock
type pendingSave struct {
	targets []string
	changes models.ComposeChanges
	// commits run under the lock once the submission succeeded
	commits []func()
	// after runs under the lock once the refetch succeeded
	after []func()
}

func (s *Session) collectService(p *pendingSave, name string, e *edit.ServiceEdit) {
	if p.changes.ServiceChanges == nil {
		p.changes.ServiceChanges = make(map[string]models.ServiceChanges)
	}
	p.targets = append(p.targets, serviceTarget(name))
	p.changes.ServiceChanges[name] = e.Payload()
	rev := e.Revision()
	p.commits = append(p.commits, func() {
		// edits made while the save was in flight are kept
		if e.Revision() == rev {
			e.Discard()
		}
	})
}

func collectSection[T any](p *pendingSave, kind SectionKind, sec *edit.Section[T], assign func(map[string]*T)) {
	delta := sec.Delta()
	if len(delta) == 0 {
		return
	}
	p.targets = append(p.targets, string(kind))
	assign(delta)
	rev := sec.Revision()
	p.commits = append(p.commits, func() {
		if sec.Revision() == rev {
			sec.Discard()
		}
	})
}

func (s *Session) collectSection(p *pendingSave, kind SectionKind) {
	switch kind {
	case SectionNetworks:
		collectSection(p, kind, s.networks, func(d map[string]*models.NetworkConfig) { p.changes.NetworkChanges = d })
	case SectionVolumes:
		collectSection(p, kind, s.volumes, func(d map[string]*models.VolumeConfig) { p.changes.VolumeChanges = d })
	case SectionSecrets:
		collectSection(p, kind, s.secrets, func(d map[string]*models.SecretConfig) { p.changes.SecretChanges = d })
	case SectionConfigs:
		collectSection(p, kind, s.configs, func(d map[string]*models.ConfigConfig) { p.changes.ConfigChanges = d })
	}
}

func (s *Session) collectAll(p *pendingSave) {
	names := make([]string, 0, len(s.services))
	for name := range s.services {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if e := s.services[name]; e.Dirty() {
			s.collectService(p, name, e)
		}
	}
	for _, kind := range []SectionKind{SectionNetworks, SectionVolumes, SectionSecrets, SectionConfigs} {
		s.collectSection(p, kind)
	}
}

// SaveService submits the edits of one service
func (s *Session) SaveService(ctx context.Context, name string) error {
	return s.save(ctx, func(p *pendingSave) error {
		e, ok := s.services[name]
		if !ok {
			return invalid(name, ErrUnknownService)
		}
		if e.Dirty() {
			s.collectService(p, name, e)
		}
		return nil
	})
}

// SaveSection submits the edits of one top-level section
func (s *Session) SaveSection(ctx context.Context, kind SectionKind) error {
	return s.save(ctx, func(p *pendingSave) error {
		switch kind {
		case SectionNetworks, SectionVolumes, SectionSecrets, SectionConfigs:
		default:
			return fmt.Errorf("unknown section %q", kind)
		}
		s.collectSection(p, kind)
		return nil
	})
}

// SaveAll submits every pending edit as one change-set
func (s *Session) SaveAll(ctx context.Context) error {
	return s.save(ctx, func(p *pendingSave) error {
		s.collectAll(p)
		return nil
	})
}

// AddService validates and submits a new service, then selects it
func (s *Session) AddService(ctx context.Context, name string, cfg models.NewServiceConfig) error {
	return s.save(ctx, func(p *pendingSave) error {
		if err := validateNewService(name, cfg); err != nil {
			return err
		}
		if _, exists := s.services[name]; exists {
			return invalid(name, ErrDuplicateName)
		}
		p.targets = []string{serviceTarget(name)}
		p.changes.AddServices = map[string]models.NewServiceConfig{name: cfg}
		p.after = append(p.after, func() {
			if _, ok := s.services[name]; ok {
				s.dispatch(Selected{Name: name})
			}
		})
		return nil
	})
}

// RemoveService submits the deletion of a service. Dependents are not
// edited; callers show Dependents beforehand.
func (s *Session) RemoveService(ctx context.Context, name string) error {
	return s.save(ctx, func(p *pendingSave) error {
		if _, ok := s.services[name]; !ok {
			return invalid(name, ErrUnknownService)
		}
		p.targets = []string{serviceTarget(name)}
		p.changes.DeleteServices = []string{name}
		p.commits = append(p.commits, func() {
			delete(s.services, name)
			s.dispatch(ServiceRemoved{Name: name})
		})
		return nil
	})
}

// RenameService submits a rename. The mutation service rewrites the
// dependents; the session moves the edit buffer and the selection.
func (s *Session) RenameService(ctx context.Context, oldName, newName string) error {
	return s.save(ctx, func(p *pendingSave) error {
		if _, ok := s.services[oldName]; !ok {
			return invalid(oldName, ErrUnknownService)
		}
		if err := ValidateName(newName); err != nil {
			return err
		}
		if _, exists := s.services[newName]; exists {
			return invalid(newName, ErrDuplicateName)
		}
		p.targets = []string{serviceTarget(oldName), serviceTarget(newName)}
		p.changes.RenameServices = map[string]string{oldName: newName}
		p.commits = append(p.commits, func() {
			if e, ok := s.services[oldName]; ok {
				delete(s.services, oldName)
				e.Rename(newName)
				s.services[newName] = e
			}
			for _, other := range s.services {
				other.RenameDependency(oldName, newName)
			}
			s.dispatch(ServiceRenamed{Old: oldName, New: newName})
		})
		return nil
	})
}

// save runs one guarded submission. build fills the submission under the
// lock; a validation error returned by build leaves the state untouched.
func (s *Session) save(ctx context.Context, build func(*pendingSave) error) error {
	s.mu.Lock()
	if err := s.requireReady(); err != nil {
		s.mu.Unlock()
		return err
	}
	p := &pendingSave{}
	if err := build(p); err != nil {
		s.mu.Unlock()
		return err
	}
	if len(p.targets) == 0 {
		s.mu.Unlock()
		return ErrNothingToSave
	}
	for _, t := range p.targets {
		if s.state.InFlight[t] {
			s.mu.Unlock()
			return fmt.Errorf("%s: %w", t, ErrSaveInProgress)
		}
	}
	for _, t := range p.targets {
		s.dispatch(SaveStarted{Target: t})
	}
	s.mu.Unlock()

	_, err := s.submit(ctx, p.changes, false)

	s.mu.Lock()
	if err != nil {
		for _, t := range p.targets {
			s.dispatch(SaveFailed{Target: t, Err: err})
		}
		s.mu.Unlock()
		s.logger.Warn("save failed", "targets", p.targets, "error", err)
		return err
	}
	for _, commit := range p.commits {
		commit()
	}
	dirty := s.dirty()
	for _, t := range p.targets {
		s.dispatch(SaveSucceeded{Target: t, Dirty: dirty})
	}
	s.mu.Unlock()
	s.logger.Info("changes saved", "targets", p.targets)

	if err := s.refresh(ctx, true); err != nil {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	s.mu.Lock()
	for _, fn := range p.after {
		fn()
	}
	s.mu.Unlock()
	return nil
}

func (s *Session) submit(ctx context.Context, changes models.ComposeChanges, preview bool) (*models.UpdateResponse, error) {
	resp, err := s.remote.Update(ctx, s.ref, models.UpdateRequest{Changes: changes, Preview: preview})
	if err != nil {
		return nil, fmt.Errorf("failed to submit changes to %s: %w", s.ref, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%s: %w: %s", s.ref, ErrRejected, resp.Message)
	}
	return resp, nil
}

// Preview requests a dry run of the pending change-set. Only the newest
// request's result is applied; an older response arriving late is dropped.
// Failures are recorded on the preview only.
func (s *Session) Preview(ctx context.Context) error {
	s.mu.Lock()
	if err := s.requireReady(); err != nil {
		s.mu.Unlock()
		return err
	}
	p := &pendingSave{}
	s.collectAll(p)
	s.previewSeq++
	seq := s.previewSeq
	s.dispatch(PreviewStarted{Seq: seq})
	s.mu.Unlock()

	resp, err := s.submit(ctx, p.changes, true)
	var report *models.DiffReport
	if err == nil {
		report, err = s.previewReport(resp)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.dispatch(PreviewFailed{Seq: seq, Err: err})
		return err
	}
	s.dispatch(PreviewSucceeded{Seq: seq, Original: resp.OriginalYAML, Modified: resp.ModifiedYAML, Report: report})
	return nil
}

func (s *Session) previewReport(resp *models.UpdateResponse) (*models.DiffReport, error) {
	return diff.CompareYAML([]byte(resp.OriginalYAML), []byte(resp.ModifiedYAML), s.rules)
}
