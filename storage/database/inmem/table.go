// Package inmemdb is an in-memory database used by tests and local
// development. Tables broadcast their mutations, so they double as live
// list sources.
package inmemdb

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/eacna/portal/core/livelist"
)

var errSlowConsumer = errors.New("inmemdb: subscriber too slow, dropped")

const subscriberBuffer = 64

// Table is a mutex-guarded record map keyed by ID. Mutations are pushed
// to all live subscribers in commit order.
type Table[T any] struct {
	id func(T) string

	mu   sync.RWMutex
	recs map[string]T
	subs []*subscription[T]
}

func newTable[T any](id func(T) string) *Table[T] {
	return &Table[T]{
		id:   id,
		recs: make(map[string]T),
	}
}

var _ livelist.Source[struct{}] = (*Table[struct{}])(nil) // interface compliance check

// insertIf atomically validates against the current records and inserts.
// A failed cond leaves the table untouched; this is the in-memory stand-in
// for a unique index.
func (t *Table[T]) insertIf(rec T, cond func(existing T) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cond != nil {
		for _, existing := range t.recs {
			if err := cond(existing); err != nil {
				return err
			}
		}
	}
	t.recs[t.id(rec)] = rec
	t.broadcast(livelist.Event[T]{Op: livelist.OpInsert, Record: rec})
	return nil
}

func (t *Table[T]) insert(rec T) {
	_ = t.insertIf(rec, nil)
}

func (t *Table[T]) update(rec T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.id(rec)
	if _, ok := t.recs[id]; !ok {
		return false
	}
	t.recs[id] = rec
	t.broadcast(livelist.Event[T]{Op: livelist.OpUpdate, Record: rec})
	return true
}

func (t *Table[T]) remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.recs[id]
	if !ok {
		return false
	}
	delete(t.recs, id)
	t.broadcast(livelist.Event[T]{Op: livelist.OpDelete, Record: rec})
	return true
}

func (t *Table[T]) get(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.recs[id]
	return rec, ok
}

func (t *Table[T]) all() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	recs := make([]T, 0, len(t.recs))
	for _, rec := range t.recs {
		recs = append(recs, rec)
	}
	return recs
}

// find returns the first record matching pred.
func (t *Table[T]) find(pred func(T) bool) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, rec := range t.recs {
		if pred(rec) {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// broadcast pushes an event to every subscriber. Must be called with the
// write lock held. A subscriber that cannot keep up is dropped with
// errSlowConsumer rather than blocking writers.
func (t *Table[T]) broadcast(ev livelist.Event[T]) {
	live := t.subs[:0]
	for _, sub := range t.subs {
		select {
		case sub.events <- ev:
			live = append(live, sub)
		default:
			sub.fail(errSlowConsumer)
		}
	}
	t.subs = live
}

// QueryAll implements livelist.Source.
func (t *Table[T]) QueryAll(_ context.Context) ([]T, error) {
	return t.all(), nil
}

// Subscribe implements livelist.Source.
func (t *Table[T]) Subscribe(_ context.Context) (livelist.Subscription[T], error) {
	sub := &subscription[T]{
		table:  t,
		events: make(chan livelist.Event[T], subscriberBuffer),
	}
	t.mu.Lock()
	t.subs = append(t.subs, sub)
	t.mu.Unlock()
	return sub, nil
}

type subscription[T any] struct {
	table  *Table[T]
	events chan livelist.Event[T]

	mu   sync.Mutex
	err  error
	done bool
}

func (s *subscription[T]) Events() <-chan livelist.Event[T] { return s.events }

func (s *subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// fail closes the event channel with an error. Called by the table with
// its write lock held, so it must not reach back into the table.
func (s *subscription[T]) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.err = err
	close(s.events)
}

func (s *subscription[T]) Close() error {
	s.table.mu.Lock()
	for i, sub := range s.table.subs {
		if sub == s {
			s.table.subs = append(s.table.subs[:i], s.table.subs[i+1:]...)
			break
		}
	}
	s.table.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.done = true
		close(s.events)
	}
	return nil
}
