// Package session holds one open compose document: the canonical base fetched
// from a mutation service, the per-service and per-section edit buffers laid
// over it, and the lifecycle state advanced by Reduce.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/stackgen-cli/compose-edit/internal/diff"
	"github.com/stackgen-cli/compose-edit/internal/edit"
	"github.com/stackgen-cli/compose-edit/internal/models"
	"github.com/stackgen-cli/compose-edit/internal/parser"
)

// ErrRejected is returned when the mutation service refuses a change-set
var ErrRejected = errors.New("change-set rejected")

// Remote is the mutation service a session reads from and submits to
type Remote interface {
	Fetch(ctx context.Context, ref models.StackRef) (*models.RawCompose, error)
	Update(ctx context.Context, ref models.StackRef, req models.UpdateRequest) (*models.UpdateResponse, error)
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithRules applies severity overrides and ignore patterns to preview reports
func WithRules(rules diff.Rules) Option {
	return func(s *Session) { s.rules = rules }
}

// Session is safe for concurrent use. Remote calls run outside the lock;
// edits are accepted while a save is in flight.
type Session struct {
	remote  Remote
	ref     models.StackRef
	logger  *slog.Logger
	rules   diff.Rules
	fetches singleflight.Group

	mu       sync.Mutex
	state    State
	doc      *models.Document
	notices  []parser.Notice
	services map[string]*edit.ServiceEdit
	networks *edit.Section[models.NetworkConfig]
	volumes  *edit.Section[models.VolumeConfig]
	secrets  *edit.Section[models.SecretConfig]
	configs  *edit.Section[models.ConfigConfig]

	previewSeq uint64
	// fetchGen counts started fetches; appliedGen is the newest one applied.
	fetchGen   uint64
	appliedGen uint64
	// fetchEpoch is bumped after a save so the refetch never joins a
	// fetch that started before the save landed.
	fetchEpoch uint64
}

// New creates an idle session for one stack
func New(remote Remote, ref models.StackRef, opts ...Option) *Session {
	s := &Session{
		remote:   remote,
		ref:      ref,
		logger:   slog.Default(),
		services: make(map[string]*edit.ServiceEdit),
		networks: edit.NewSection[models.NetworkConfig](nil),
		volumes:  edit.NewSection[models.VolumeConfig](nil),
		secrets:  edit.NewSection[models.SecretConfig](nil),
		configs:  edit.NewSection[models.ConfigConfig](nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("stack", ref.String())
	return s
}

// Ref returns the stack the session edits
func (s *Session) Ref() models.StackRef { return s.ref }

// Status returns the current state
func (s *Session) Status() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Notices returns the canonicalization notices of the last fetch
func (s *Session) Notices() []parser.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notices)
}

// dispatch must be called with mu held
func (s *Session) dispatch(a Action) {
	s.state = Reduce(s.state, a)
}

func (s *Session) requireReady() error {
	if s.state.Phase != PhaseReady && s.state.Phase != PhaseSaving {
		return fmt.Errorf("%s: %w", s.state.Phase, ErrNotReady)
	}
	return nil
}

func (s *Session) dirty() bool {
	for _, e := range s.services {
		if e.Dirty() {
			return true
		}
	}
	return s.networks.Dirty() || s.volumes.Dirty() || s.secrets.Dirty() || s.configs.Dirty()
}

// Load fetches the document and replaces the base. Edit buffers of services
// that still exist keep their overrides.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	s.dispatch(LoadStarted{})
	s.mu.Unlock()
	return s.refresh(ctx, false)
}

// refresh fetches the document and rebases onto it. A result is dropped
// when a fetch started later has already been applied. With fresh set the
// fetch is not shared with any call already in flight.
func (s *Session) refresh(ctx context.Context, fresh bool) error {
	s.mu.Lock()
	if fresh {
		s.fetchEpoch++
	}
	s.fetchGen++
	gen := s.fetchGen
	key := fmt.Sprintf("%s#%d", s.ref, s.fetchEpoch)
	s.mu.Unlock()

	v, err, shared := s.fetches.Do(key, func() (any, error) {
		return s.remote.Fetch(ctx, s.ref)
	})
	if err != nil {
		err = fmt.Errorf("failed to fetch %s: %w", s.ref, err)
		s.mu.Lock()
		if gen > s.appliedGen {
			s.dispatch(LoadFailed{Err: err})
		}
		s.mu.Unlock()
		return err
	}
	raw := v.(*models.RawCompose)
	doc, notices := parser.FromRaw(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen < s.appliedGen {
		s.logger.Debug("dropping stale fetch", "generation", gen, "applied", s.appliedGen)
		return nil
	}
	s.appliedGen = gen
	s.rebase(doc)
	s.notices = notices
	s.dispatch(LoadSucceeded{ComposeFile: raw.ComposeFile, Services: doc.ServiceNames(), Dirty: s.dirty()})

	s.logger.Debug("document loaded", "services", len(doc.Services), "notices", len(notices), "shared", shared)
	return nil
}

func (s *Session) rebase(doc *models.Document) {
	for name, e := range s.services {
		if _, ok := doc.Services[name]; !ok {
			if e.Dirty() {
				s.logger.Warn("service removed remotely, dropping its edits", "service", name)
			}
			delete(s.services, name)
		}
	}
	for name, svc := range doc.Services {
		if e, ok := s.services[name]; ok {
			e.Rebase(svc)
		} else {
			s.services[name] = edit.NewServiceEdit(name, svc)
		}
	}
	s.networks.Rebase(doc.Networks)
	s.volumes.Rebase(doc.Volumes)
	s.secrets.Rebase(doc.Secrets)
	s.configs.Rebase(doc.Configs)
	s.doc = doc
}

// Services returns the service names in document order
func (s *Session) Services() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil
	}
	return s.doc.ServiceNames()
}

// Edit runs fn against the edit buffer of a service. fn must not call back
// into the session.
func (s *Session) Edit(name string, fn func(*edit.ServiceEdit) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	e, ok := s.services[name]
	if !ok {
		return invalid(name, ErrUnknownService)
	}
	if err := fn(e); err != nil {
		if errors.Is(err, edit.ErrSelfDependency) {
			return invalid(name, err)
		}
		return err
	}
	s.dispatch(Edited{Dirty: s.dirty()})
	return nil
}

// Effective returns a service with its overrides applied
func (s *Session) Effective(name string) (models.Service, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.services[name]
	if !ok {
		return models.Service{}, false
	}
	return e.Effective(), true
}

// Document returns the effective document: the base with every edit applied
func (s *Session) Document() *models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := models.NewDocument()
	if s.doc == nil {
		return doc
	}
	for _, name := range s.doc.ServiceNames() {
		doc.SetService(name, s.services[name].Effective())
	}
	maps.Copy(doc.Networks, s.networks.All())
	maps.Copy(doc.Volumes, s.volumes.All())
	maps.Copy(doc.Secrets, s.secrets.All())
	maps.Copy(doc.Configs, s.configs.All())
	return doc
}

// Select moves the selection pointer to a service
func (s *Session) Select(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.services[name]; !ok {
		return invalid(name, ErrUnknownService)
	}
	s.dispatch(Selected{Name: name})
	return nil
}

// SelectSection moves the section pointer
func (s *Session) SelectSection(kind SectionKind) error {
	switch kind {
	case SectionNetworks, SectionVolumes, SectionSecrets, SectionConfigs:
	default:
		return fmt.Errorf("unknown section %q", kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatch(SelectedSection{Kind: kind})
	return nil
}

// Discard drops every edit buffer
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.services {
		e.Discard()
	}
	s.networks.Discard()
	s.volumes.Discard()
	s.secrets.Discard()
	s.configs.Discard()
	s.dispatch(Discarded{})
}

// Dependents returns the services whose depends_on names the given service
func (s *Session) Dependents(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for other, e := range s.services {
		if other == name {
			continue
		}
		if _, ok := e.Effective().DependsOn[name]; ok {
			out = append(out, other)
		}
	}
	slices.Sort(out)
	return out
}

// References returns the services that use a top-level resource
func (s *Session) References(kind SectionKind, name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for svcName, e := range s.services {
		if references(e.Effective(), kind, name) {
			out = append(out, svcName)
		}
	}
	slices.Sort(out)
	return out
}

func references(svc models.Service, kind SectionKind, name string) bool {
	switch kind {
	case SectionNetworks:
		_, ok := svc.Networks[name]
		return ok
	case SectionVolumes:
		return slices.ContainsFunc(svc.Volumes, func(m models.Mount) bool {
			return m.Type == models.MountVolume && m.Source == name
		})
	case SectionSecrets:
		return slices.ContainsFunc(svc.Secrets, func(r models.FileRef) bool { return r.Source == name })
	case SectionConfigs:
		return slices.ContainsFunc(svc.Configs, func(r models.FileRef) bool { return r.Source == name })
	}
	return false
}

// Changes returns the change-set of every pending edit
func (s *Session) Changes() models.ComposeChanges {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &pendingSave{}
	s.collectAll(p)
	return p.changes
}
