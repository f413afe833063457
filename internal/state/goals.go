package state

import (
	"sync"
	"time"

	"github.com/outbehaving/outbehaving-api/internal/domain"
)

// GoalsState holds a user's goals with their derived progress fields.
// Every goal stored here carries freshly computed derived fields; raw
// entities are recomputed on every mutation so views never go stale.
type GoalsState struct {
	mu         sync.RWMutex
	goals      []domain.GoalWithProgress
	selectedID string
	loading    bool
	err        string
	now        func() time.Time
}

// NewGoalsState creates an empty goals container.
func NewGoalsState() *GoalsState {
	return &GoalsState{now: time.Now}
}

// NewGoalsStateAt creates a container with a fixed clock, for tests.
func NewGoalsStateAt(now func() time.Time) *GoalsState {
	return &GoalsState{now: now}
}

// SetGoals replaces the whole collection, recomputing derived fields.
func (s *GoalsState) SetGoals(goals []domain.Goal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.goals = make([]domain.GoalWithProgress, 0, len(goals))
	for _, g := range goals {
		s.goals = append(s.goals, domain.ComputeGoalProgress(g, now))
	}
	s.syncSelected()
}

// Add appends one goal with its derived fields.
func (s *GoalsState) Add(g domain.Goal) domain.GoalWithProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	gp := domain.ComputeGoalProgress(g, s.now())
	s.goals = append(s.goals, gp)
	return gp
}

// Update merges a partial update into the goal with the given id and
// recomputes its derived fields. Returns false if the goal is unknown.
func (s *GoalsState) Update(goalID string, upd domain.GoalUpdate) (domain.GoalWithProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.goals {
		if s.goals[i].ID != goalID {
			continue
		}
		g := s.goals[i].Goal
		upd.Apply(&g)
		s.goals[i] = domain.ComputeGoalProgress(g, s.now())
		return s.goals[i], true
	}
	return domain.GoalWithProgress{}, false
}

// Replace swaps in an authoritative goal record (e.g. the row returned by
// the backend after a write) and recomputes derived fields.
func (s *GoalsState) Replace(g domain.Goal) domain.GoalWithProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	gp := domain.ComputeGoalProgress(g, s.now())
	for i := range s.goals {
		if s.goals[i].ID == g.ID {
			s.goals[i] = gp
			return gp
		}
	}
	s.goals = append(s.goals, gp)
	return gp
}

// Remove deletes the goal with the given id.
func (s *GoalsState) Remove(goalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.goals {
		if s.goals[i].ID == goalID {
			s.goals = append(s.goals[:i], s.goals[i+1:]...)
			break
		}
	}
	s.syncSelected()
}

// Select marks a goal as the current selection. Transient, never persisted.
func (s *GoalsState) Select(goalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selectedID = goalID
	s.syncSelected()
}

// Selected returns the selected goal, if any.
func (s *GoalsState) Selected() (domain.GoalWithProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.goals {
		if g.ID == s.selectedID {
			return g, true
		}
	}
	return domain.GoalWithProgress{}, false
}

// Goals returns a copy of the collection.
func (s *GoalsState) Goals() []domain.GoalWithProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.GoalWithProgress, len(s.goals))
	copy(out, s.goals)
	return out
}

// Get returns one goal by id.
func (s *GoalsState) Get(goalID string) (domain.GoalWithProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.goals {
		if g.ID == goalID {
			return g, true
		}
	}
	return domain.GoalWithProgress{}, false
}

// SetLoading flags an in-flight load.
func (s *GoalsState) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

// SetError records the last load error ("" clears it).
func (s *GoalsState) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = msg
}

// Status returns the loading flag and last error.
func (s *GoalsState) Status() (loading bool, err string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading, s.err
}

// Reset restores the initial empty state.
func (s *GoalsState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.goals = nil
	s.selectedID = ""
	s.loading = false
	s.err = ""
}

// syncSelected drops a selection that no longer points at a stored goal.
// Caller must hold the lock.
func (s *GoalsState) syncSelected() {
	if s.selectedID == "" {
		return
	}
	for _, g := range s.goals {
		if g.ID == s.selectedID {
			return
		}
	}
	s.selectedID = ""
}
