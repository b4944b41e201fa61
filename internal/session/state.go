package session

import (
	"maps"
	"slices"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

// Phase is the lifecycle phase of a session
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseFailed
	PhaseSaving
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	case PhaseSaving:
		return "saving"
	}
	return "unknown"
}

// SectionKind names a top-level resource section
type SectionKind string

const (
	SectionNetworks SectionKind = "networks"
	SectionVolumes  SectionKind = "volumes"
	SectionSecrets  SectionKind = "secrets"
	SectionConfigs  SectionKind = "configs"
)

// Preview is the latest applied preview result
type Preview struct {
	Seq      uint64
	Pending  bool
	Original string
	Modified string
	Report   *models.DiffReport
	Err      error
}

// State is an immutable snapshot of a session. It only changes through Reduce.
type State struct {
	Phase       Phase
	Dirty       bool
	Selected    string
	Section     SectionKind
	ComposeFile string
	Err         error
	// InFlight holds the save targets currently being submitted
	InFlight map[string]bool
	Preview  Preview
}

// Action is a state transition input. The set of actions is closed.
type Action interface {
	action()
}

type (
	LoadStarted   struct{}
	LoadSucceeded struct {
		ComposeFile string
		Services    []string
		Dirty       bool
	}
	LoadFailed struct{ Err error }

	Edited struct{ Dirty bool }

	SaveStarted   struct{ Target string }
	SaveSucceeded struct {
		Target string
		Dirty  bool
	}
	SaveFailed struct {
		Target string
		Err    error
	}

	ServiceRenamed struct{ Old, New string }
	ServiceRemoved struct{ Name string }

	Selected        struct{ Name string }
	SelectedSection struct{ Kind SectionKind }
	Discarded       struct{}

	PreviewStarted   struct{ Seq uint64 }
	PreviewSucceeded struct {
		Seq      uint64
		Original string
		Modified string
		Report   *models.DiffReport
	}
	PreviewFailed struct {
		Seq uint64
		Err error
	}
)

func (LoadStarted) action()      {}
func (LoadSucceeded) action()    {}
func (LoadFailed) action()       {}
func (Edited) action()           {}
func (SaveStarted) action()      {}
func (SaveSucceeded) action()    {}
func (SaveFailed) action()       {}
func (ServiceRenamed) action()   {}
func (ServiceRemoved) action()   {}
func (Selected) action()         {}
func (SelectedSection) action()  {}
func (Discarded) action()        {}
func (PreviewStarted) action()   {}
func (PreviewSucceeded) action() {}
func (PreviewFailed) action()    {}

// Reduce returns the state that follows s after a. It does not modify s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoadStarted:
		// a refetch of a loaded document keeps the current phase
		if s.Phase == PhaseIdle || s.Phase == PhaseFailed {
			s.Phase = PhaseLoading
			s.Err = nil
		}

	case LoadSucceeded:
		if s.Phase == PhaseLoading {
			s.Phase = PhaseReady
		}
		s.ComposeFile = a.ComposeFile
		s.Dirty = a.Dirty
		if s.Selected != "" && !slices.Contains(a.Services, s.Selected) {
			s.Selected = ""
		}

	case LoadFailed:
		if s.Phase == PhaseLoading {
			s.Phase = PhaseFailed
		}
		s.Err = a.Err

	case Edited:
		s.Dirty = a.Dirty

	case SaveStarted:
		if s.Phase != PhaseReady && s.Phase != PhaseSaving {
			return s
		}
		s.InFlight = with(s.InFlight, a.Target)
		s.Phase = PhaseSaving

	case SaveSucceeded:
		s.InFlight = without(s.InFlight, a.Target)
		s.Dirty = a.Dirty
		s.Err = nil
		if len(s.InFlight) == 0 && s.Phase == PhaseSaving {
			s.Phase = PhaseReady
		}

	case SaveFailed:
		s.InFlight = without(s.InFlight, a.Target)
		s.Err = a.Err
		if len(s.InFlight) == 0 && s.Phase == PhaseSaving {
			s.Phase = PhaseReady
		}

	case ServiceRenamed:
		if s.Selected == a.Old {
			s.Selected = a.New
		}
		s.Err = nil

	case ServiceRemoved:
		if s.Selected == a.Name {
			s.Selected = ""
		}
		s.Err = nil

	case Selected:
		s.Selected = a.Name

	case SelectedSection:
		s.Section = a.Kind

	case Discarded:
		s.Dirty = false

	case PreviewStarted:
		if a.Seq <= s.Preview.Seq {
			return s
		}
		s.Preview = Preview{Seq: a.Seq, Pending: true}

	case PreviewSucceeded:
		if a.Seq != s.Preview.Seq {
			return s
		}
		s.Preview = Preview{Seq: a.Seq, Original: a.Original, Modified: a.Modified, Report: a.Report}

	case PreviewFailed:
		if a.Seq != s.Preview.Seq {
			return s
		}
		s.Preview = Preview{Seq: a.Seq, Err: a.Err}
	}
	return s
}

func with(set map[string]bool, key string) map[string]bool {
	out := maps.Clone(set)
	if out == nil {
		out = make(map[string]bool)
	}
	out[key] = true
	return out
}

func without(set map[string]bool, key string) map[string]bool {
	if !set[key] {
		return set
	}
	out := maps.Clone(set)
	delete(out, key)
	return out
}
