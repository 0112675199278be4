package board

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/coffersTech/probdash/internal/problem"
)

var ErrNotFound = errors.New("problem not found")

// Store holds the current problem list in memory.
type Store struct {
	mu       sync.RWMutex
	problems []problem.Problem
	loadedAt time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Replace swaps in a freshly fetched list. The store keeps its own copy, so
// the caller may go on using list.
func (s *Store) Replace(list []problem.Problem) {
	own := make([]problem.Problem, len(list))
	for i, p := range list {
		own[i] = p.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.problems = own
	s.loadedAt = time.Now()
}

// List returns a deep copy of the current list, in source order.
func (s *Store) List() []problem.Problem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]problem.Problem, len(s.problems))
	for i, p := range s.problems {
		out[i] = p.Clone()
	}
	return out
}

// Len returns the number of problems held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.problems)
}

// LoadedAt returns when the list was last replaced (zero if never).
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Get returns a copy of the problem whose id or row id equals id.
func (s *Store) Get(id int64) (problem.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.problems[i].Clone(), nil
	}
	return problem.Problem{}, errors.Wrapf(ErrNotFound, "id %d", id)
}

// SetStatus records member's status code on the problem matching id and
// returns a copy of the row. changed is false when the row already held code
// (compared case-insensitively), in which case nothing is written.
func (s *Store) SetStatus(id int64, member, code string) (p problem.Problem, changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return problem.Problem{}, false, errors.Wrapf(ErrNotFound, "id %d", id)
	}
	if strings.EqualFold(strings.TrimSpace(s.problems[i].Status(member)), code) {
		return s.problems[i].Clone(), false, nil
	}
	s.problems[i].SetStatus(member, code)
	return s.problems[i].Clone(), true, nil
}

func (s *Store) indexLocked(id int64) int {
	for i := range s.problems {
		if s.problems[i].Matches(id) {
			return i
		}
	}
	return -1
}
