// Package history implements bounded undo/redo over point store snapshots.
package history

import "github.com/xiaomayi-bee/CleftLip/internal/points"

// MaxDepth is the number of undo steps kept; older ones are dropped first.
const MaxDepth = 20

// Manager is a two-stack undo/redo history. It is not safe for concurrent use.
type Manager struct {
	undo []points.Snapshot
	redo []points.Snapshot
}

// New returns an empty history.
func New() *Manager {
	return &Manager{}
}

// Push records the state before a mutation and invalidates any redo steps.
func (m *Manager) Push(snap points.Snapshot) {
	m.undo = pushCapped(m.undo, snap)
	m.redo = m.redo[:0]
}

// Undo pops the last recorded state, saving current for Redo. ok is false when there is
// nothing to undo, in which case current should stay live.
func (m *Manager) Undo(current points.Snapshot) (points.Snapshot, bool) {
	if len(m.undo) == 0 {
		return points.Snapshot{}, false
	}
	prev := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = pushCapped(m.redo, current)
	return prev, true
}

// Redo is the inverse of Undo.
func (m *Manager) Redo(current points.Snapshot) (points.Snapshot, bool) {
	if len(m.redo) == 0 {
		return points.Snapshot{}, false
	}
	next := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = pushCapped(m.undo, current)
	return next, true
}

func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// Depth returns the number of undo and redo steps available.
func (m *Manager) Depth() (undo, redo int) {
	return len(m.undo), len(m.redo)
}

// Clear drops all history.
func (m *Manager) Clear() {
	m.undo = nil
	m.redo = nil
}

func pushCapped(stack []points.Snapshot, snap points.Snapshot) []points.Snapshot {
	stack = append(stack, snap)
	if len(stack) > MaxDepth {
		stack = append(stack[:0], stack[len(stack)-MaxDepth:]...)
	}
	return stack
}
