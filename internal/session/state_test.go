package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func reduceAll(s State, actions ...Action) State {
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

func TestReduceLoad(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		actions []Action
		phase   Phase
		err     error
	}{
		{"start", []Action{LoadStarted{}}, PhaseLoading, nil},
		{"success", []Action{LoadStarted{}, LoadSucceeded{}}, PhaseReady, nil},
		{"failure", []Action{LoadStarted{}, LoadFailed{Err: boom}}, PhaseFailed, boom},
		{"retry after failure", []Action{LoadStarted{}, LoadFailed{Err: boom}, LoadStarted{}}, PhaseLoading, nil},
		{"refetch failure stays ready", []Action{LoadStarted{}, LoadSucceeded{}, LoadStarted{}, LoadFailed{Err: boom}}, PhaseReady, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := reduceAll(State{}, tt.actions...)
			assert.Equal(t, tt.phase, s.Phase)
			assert.Equal(t, tt.err, s.Err)
		})
	}
}

func TestReduceSave(t *testing.T) {
	ready := reduceAll(State{}, LoadStarted{}, LoadSucceeded{}, Edited{Dirty: true})

	saving := reduceAll(ready, SaveStarted{Target: "service:web"}, SaveStarted{Target: "volumes"})
	assert.Equal(t, PhaseSaving, saving.Phase)
	assert.Len(t, saving.InFlight, 2)
	assert.Empty(t, ready.InFlight, "the input state is not modified")

	partial := Reduce(saving, SaveSucceeded{Target: "volumes", Dirty: true})
	assert.Equal(t, PhaseSaving, partial.Phase, "still saving the other target")

	boom := errors.New("boom")
	failed := Reduce(partial, SaveFailed{Target: "service:web", Err: boom})
	assert.Equal(t, PhaseReady, failed.Phase)
	assert.True(t, failed.Dirty)
	assert.Equal(t, boom, failed.Err)

	idle := Reduce(State{}, SaveStarted{Target: "service:web"})
	assert.Equal(t, PhaseIdle, idle.Phase, "no save before load")
	assert.Empty(t, idle.InFlight)
}

func TestReduceSelection(t *testing.T) {
	s := Reduce(State{Phase: PhaseReady}, Selected{Name: "cache"})

	s = Reduce(s, ServiceRenamed{Old: "cache", New: "cache2"})
	assert.Equal(t, "cache2", s.Selected)

	s = Reduce(s, ServiceRenamed{Old: "web", New: "web2"})
	assert.Equal(t, "cache2", s.Selected, "other renames leave the pointer")

	s = Reduce(s, LoadSucceeded{Services: []string{"web2", "cache2"}})
	assert.Equal(t, "cache2", s.Selected)

	s = Reduce(s, LoadSucceeded{Services: []string{"web2"}})
	assert.Empty(t, s.Selected, "a vanished service is deselected")

	s = Reduce(Reduce(s, Selected{Name: "web2"}), ServiceRemoved{Name: "web2"})
	assert.Empty(t, s.Selected)
}

func TestReducePreviewSequence(t *testing.T) {
	report := models.NewDiffReport()
	s := reduceAll(State{Phase: PhaseReady}, PreviewStarted{Seq: 1}, PreviewStarted{Seq: 2})
	assert.True(t, s.Preview.Pending)

	s = Reduce(s, PreviewSucceeded{Seq: 2, Modified: "new", Report: report})
	s = Reduce(s, PreviewSucceeded{Seq: 1, Modified: "old"})
	assert.Equal(t, "new", s.Preview.Modified)
	assert.False(t, s.Preview.Pending)

	s = Reduce(s, PreviewFailed{Seq: 1, Err: errors.New("late")})
	assert.NoError(t, s.Preview.Err, "late failures are dropped too")

	s = Reduce(s, PreviewStarted{Seq: 1})
	assert.Equal(t, uint64(2), s.Preview.Seq, "sequence numbers never go back")
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "saving", PhaseSaving.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
