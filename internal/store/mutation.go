package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/adamavenir/socialdash/internal/types"
)

// Op names an optimistic mutation.
type Op string

const (
	OpMarkRead    Op = "mark-read"
	OpMarkAllRead Op = "mark-all-read"
	OpRemove      Op = "remove"
)

// MutationError reports an optimistic mutation that the backend rejected.
// The local change has already been rolled back when it is returned.
type MutationError struct {
	Op  Op
	IDs []string
	Err error
}

func (e *MutationError) Error() string {
	target := strings.Join(e.IDs, ", ")
	if len(e.IDs) > 3 {
		target = fmt.Sprintf("%d notifications", len(e.IDs))
	}
	if target == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Op, target, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// prior captures one record as it was before a mutation.
type prior struct {
	rec   types.Notification
	index int
}

// Mutation is an optimistic change already visible in the store. Exactly
// one of Commit or Rollback takes effect; later calls are no-ops.
type Mutation struct {
	store   *Store
	op      Op
	ids     []string
	priors  []prior
	settled bool
}

// Op returns the mutation kind.
func (m *Mutation) Op() Op {
	return m.op
}

// IDs returns the ids the mutation touched.
func (m *Mutation) IDs() []string {
	return slices.Clone(m.ids)
}

// Commit accepts the optimistic change as confirmed.
func (m *Mutation) Commit() {
	m.store.mu.Lock()
	m.settled = true
	m.store.mu.Unlock()
}

// Rollback restores every touched record to its pre-mutation state and
// notifies subscribers once.
func (m *Mutation) Rollback() {
	s := m.store
	s.mu.Lock()
	if m.settled {
		s.mu.Unlock()
		return
	}
	m.settled = true
	if len(m.priors) == 0 {
		s.mu.Unlock()
		return
	}

	switch m.op {
	case OpRemove:
		// Ascending prior index restores the exact arrival order.
		priors := slices.Clone(m.priors)
		slices.SortFunc(priors, func(a, b prior) int { return a.index - b.index })
		for _, p := range priors {
			if _, exists := s.records[p.rec.ID]; exists {
				continue
			}
			rec := p.rec.Clone()
			s.records[rec.ID] = &rec
			idx := min(p.index, len(s.order))
			s.order = slices.Insert(s.order, idx, rec.ID)
		}
	default:
		for _, p := range m.priors {
			cur, ok := s.records[p.rec.ID]
			if !ok || !cur.CreatedAt.Equal(p.rec.CreatedAt) {
				continue
			}
			cur.IsRead = p.rec.IsRead
		}
	}
	snap := s.bumpLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// Settle commits on nil error and rolls back otherwise, returning a
// *MutationError that wraps err.
func (m *Mutation) Settle(err error) error {
	if err == nil {
		m.Commit()
		return nil
	}
	m.Rollback()
	return &MutationError{Op: m.op, IDs: m.IDs(), Err: err}
}

// Apply runs confirm against the backend and settles m with its result.
func Apply(ctx context.Context, m *Mutation, confirm func(context.Context) error) error {
	return m.Settle(confirm(ctx))
}

// MarkRead optimistically marks one record as read.
func (s *Store) MarkRead(id string) (*Mutation, error) {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	m := &Mutation{store: s, op: OpMarkRead, ids: []string{id}}
	if rec.IsRead {
		s.mu.Unlock()
		return m, nil
	}
	m.priors = append(m.priors, prior{rec: rec.Clone(), index: slices.Index(s.order, id)})
	rec.IsRead = true
	snap := s.bumpLocked()
	s.mu.Unlock()
	s.publish(snap)
	return m, nil
}

// MarkReadMany optimistically marks the given records as read. Unknown ids
// are skipped.
func (s *Store) MarkReadMany(ids []string) *Mutation {
	return s.markRead(OpMarkRead, ids)
}

// MarkAllRead optimistically marks every held record as read.
func (s *Store) MarkAllRead() *Mutation {
	return s.markRead(OpMarkAllRead, nil)
}

func (s *Store) markRead(op Op, ids []string) *Mutation {
	s.mu.Lock()
	if op == OpMarkAllRead {
		ids = slices.Clone(s.order)
	}
	m := &Mutation{store: s, op: op, ids: slices.Clone(ids)}
	for _, id := range ids {
		rec, ok := s.records[id]
		if !ok || rec.IsRead {
			continue
		}
		m.priors = append(m.priors, prior{rec: rec.Clone(), index: slices.Index(s.order, id)})
		rec.IsRead = true
	}
	if len(m.priors) == 0 {
		s.mu.Unlock()
		return m
	}
	snap := s.bumpLocked()
	s.mu.Unlock()
	s.publish(snap)
	return m
}

// Remove optimistically removes one record.
func (s *Store) Remove(id string) (*Mutation, error) {
	m := s.RemoveMany([]string{id})
	if len(m.priors) == 0 {
		m.settled = true
		return nil, fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	return m, nil
}

// RemoveMany optimistically removes the given records. Unknown ids are skipped.
func (s *Store) RemoveMany(ids []string) *Mutation {
	s.mu.Lock()
	m := &Mutation{store: s, op: OpRemove, ids: slices.Clone(ids)}
	// Priors are captured before any deletion so their indices are the
	// prior positions.
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		rec, ok := s.records[id]
		if !ok {
			continue
		}
		if _, dup := drop[id]; dup {
			continue
		}
		drop[id] = struct{}{}
		m.priors = append(m.priors, prior{rec: rec.Clone(), index: slices.Index(s.order, id)})
	}
	if len(m.priors) == 0 {
		s.mu.Unlock()
		return m
	}
	for id := range drop {
		delete(s.records, id)
	}
	s.order = slices.DeleteFunc(s.order, func(id string) bool {
		_, ok := drop[id]
		return ok
	})
	snap := s.bumpLocked()
	s.mu.Unlock()
	s.publish(snap)
	return m
}
