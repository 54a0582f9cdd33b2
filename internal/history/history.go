package history

import (
	"errors"

	"reelcut/internal/clip"
)

// DefaultLimit bounds the undo stack.
const DefaultLimit = 50

var (
	// ErrNothingToUndo is returned when the undo stack is empty.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo is returned when the redo stack is empty.
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Snapshot is a deep copy of the undoable editor state.
type Snapshot struct {
	Clips       []clip.Clip `json:"clips"`
	CurrentTime float64     `json:"currentTime"`
}

// Capture deep copies clips into a new snapshot.
func Capture(clips []clip.Clip, currentTime float64) Snapshot {
	cloned := clip.CloneAll(clips)
	if cloned == nil {
		cloned = []clip.Clip{}
	}
	return Snapshot{Clips: cloned, CurrentTime: currentTime}
}

func (s Snapshot) clone() Snapshot {
	return Capture(s.Clips, s.CurrentTime)
}

// Manager keeps a linear undo/redo history. It is not safe for concurrent
// use; the engine serialises access.
type Manager struct {
	past   []Snapshot
	future []Snapshot
	limit  int
}

// NewManager creates a manager that retains at most limit undo entries.
// A non-positive limit falls back to DefaultLimit.
func NewManager(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{limit: limit}
}

// Record pushes the pre-mutation state. Any redo entries are discarded and
// the oldest entry is evicted once the limit is exceeded.
func (m *Manager) Record(s Snapshot) {
	m.past = append(m.past, s.clone())
	if len(m.past) > m.limit {
		m.past = append([]Snapshot(nil), m.past[len(m.past)-m.limit:]...)
	}
	m.future = nil
}

// Undo returns the state to restore and stores current for redo.
func (m *Manager) Undo(current Snapshot) (Snapshot, error) {
	if len(m.past) == 0 {
		return Snapshot{}, ErrNothingToUndo
	}
	m.future = append(m.future, current.clone())
	prev := m.past[len(m.past)-1]
	m.past = m.past[:len(m.past)-1]
	return prev.clone(), nil
}

// Redo mirrors Undo using the redo stack.
func (m *Manager) Redo(current Snapshot) (Snapshot, error) {
	if len(m.future) == 0 {
		return Snapshot{}, ErrNothingToRedo
	}
	m.past = append(m.past, current.clone())
	next := m.future[len(m.future)-1]
	m.future = m.future[:len(m.future)-1]
	return next.clone(), nil
}

// CanUndo reports whether Undo would succeed.
func (m *Manager) CanUndo() bool { return len(m.past) > 0 }

// CanRedo reports whether Redo would succeed.
func (m *Manager) CanRedo() bool { return len(m.future) > 0 }

// Len returns the sizes of the undo and redo stacks.
func (m *Manager) Len() (past, future int) {
	return len(m.past), len(m.future)
}

// Limit returns the configured undo bound.
func (m *Manager) Limit() int { return m.limit }

// Past returns copies of the undo stack, oldest first.
func (m *Manager) Past() []Snapshot { return cloneStack(m.past) }

// Future returns copies of the redo stack, oldest first.
func (m *Manager) Future() []Snapshot { return cloneStack(m.future) }

// Restore replaces both stacks, trimming past to the limit.
func (m *Manager) Restore(past, future []Snapshot) {
	if len(past) > m.limit {
		past = past[len(past)-m.limit:]
	}
	m.past = cloneStack(past)
	m.future = cloneStack(future)
}

// Clear drops all history.
func (m *Manager) Clear() {
	m.past = nil
	m.future = nil
}

func cloneStack(stack []Snapshot) []Snapshot {
	if len(stack) == 0 {
		return nil
	}
	out := make([]Snapshot, len(stack))
	for i, s := range stack {
		out[i] = s.clone()
	}
	return out
}
