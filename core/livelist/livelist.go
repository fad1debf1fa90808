// Package livelist keeps an in-memory, ordered list consistent with a
// remote collection: one bulk fetch on open, then incremental application
// of insert/update/delete change events. Every list view (events,
// specialists, payments, donations, queries) configures one of these
// instead of re-implementing subscribe/unsubscribe and manual splicing.
package livelist

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/eacna/portal/core"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is a single change notification from the underlying feed.
type Event[T any] struct {
	Op     Op
	Record T
}

// Subscription is a live change stream for one collection. Events() is
// closed when the stream dies; Err() then reports why (nil on Close).
type Subscription[T any] interface {
	Events() <-chan Event[T]
	Err() error
	Close() error
}

// Source is a subscribable record store for one collection.
type Source[T any] interface {
	QueryAll(ctx context.Context) ([]T, error)
	Subscribe(ctx context.Context) (Subscription[T], error)
}

// Health is the synchronizer's subscription state. A view rendering a
// Stale list knows its data may be behind; the original design had no way
// to tell a dead feed from a quiet one.
type Health int

const (
	HealthLive Health = iota
	HealthStale
	HealthClosed
)

var (
	ErrMissingSource   = errors.New("livelist: Source is required")
	ErrMissingOrdering = errors.New("livelist: Less ordering is required")
	ErrMissingIdentity = errors.New("livelist: ID func is required")
)

const (
	defaultMaxFetchRetries = 3
	defaultRetryBackoff    = 100 * time.Millisecond
)

type Options[T any] struct {
	Source Source[T]
	// Filter keeps only matching records; nil keeps all. An update that
	// makes a held record stop matching removes it from the list.
	Filter func(T) bool
	// Less is the list ordering.
	Less func(a, b T) bool
	// ID yields a record's identity, used to match updates and deletes.
	ID func(T) string

	// Retries of the initial fetch on retryable errors only.
	MaxFetchRetries int
	RetryBackoff    time.Duration
}

type List[T any] struct {
	opts Options[T]

	mu     sync.RWMutex
	items  []T
	health Health
	err    error

	sub       Subscription[T]
	done      chan struct{}
	closeOnce sync.Once
}

// Open performs a fresh bulk read of the collection, sorts it, then
// subscribes to the change feed and keeps the list current until Close.
// Each call starts over; an open list is not resumable mid-stream.
func Open[T any](ctx context.Context, opts Options[T]) (*List[T], error) {
	if opts.Source == nil {
		return nil, ErrMissingSource
	}
	if opts.Less == nil {
		return nil, ErrMissingOrdering
	}
	if opts.ID == nil {
		return nil, ErrMissingIdentity
	}
	if opts.MaxFetchRetries <= 0 {
		opts.MaxFetchRetries = defaultMaxFetchRetries
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}

	items, err := fetch(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "initial fetch")
	}

	lst := &List[T]{
		opts:   opts,
		items:  items,
		health: HealthLive,
		done:   make(chan struct{}),
	}

	sub, err := opts.Source.Subscribe(ctx)
	if err != nil {
		// the list is usable but will not stay current
		lst.health = HealthStale
		lst.err = err
		return lst, nil
	}
	lst.sub = sub
	go lst.loop()

	return lst, nil
}

// fetch bulk reads and sorts the collection, retrying transient failures
// with a linear backoff. Terminal errors are returned as-is.
func fetch[T any](ctx context.Context, opts Options[T]) ([]T, error) {
	var records []T
	var err error
	for attempt := 1; ; attempt++ {
		records, err = opts.Source.QueryAll(ctx)
		if err == nil {
			break
		}
		if attempt >= opts.MaxFetchRetries || !core.IsRetryable(err) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * opts.RetryBackoff):
		}
	}

	items := make([]T, 0, len(records))
	for _, rec := range records {
		if opts.Filter == nil || opts.Filter(rec) {
			items = append(items, rec)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return opts.Less(items[i], items[j]) })
	return items, nil
}

func (l *List[T]) loop() {
	for {
		select {
		case <-l.done:
			return
		case ev, ok := <-l.sub.Events():
			if !ok {
				// dead feed; surface it instead of staying silently behind
				l.mu.Lock()
				if l.health == HealthLive {
					l.health = HealthStale
					l.err = l.sub.Err()
				}
				l.mu.Unlock()
				return
			}
			l.Apply(ev)
		}
	}
}

// Apply folds one change event into the list. Events are applied in the
// order received; no reordering or deduplication beyond identity matching.
func (l *List[T]) Apply(ev Event[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.opts.ID(ev.Record)
	idx := l.indexOf(id)
	matches := l.opts.Filter == nil || l.opts.Filter(ev.Record)

	switch ev.Op {
	case OpInsert, OpUpdate:
		switch {
		case !matches:
			// update moved the record out of the filter; duplicate-delivered
			// inserts of non-matching records are no-ops
			if idx >= 0 {
				l.removeAt(idx)
			}
		case idx >= 0:
			// duplicate delivery or in-place update: replace, never grow
			l.removeAt(idx)
			l.insertSorted(ev.Record)
		default:
			l.insertSorted(ev.Record)
		}
	case OpDelete:
		if idx >= 0 {
			l.removeAt(idx)
		}
	}
}

// Snapshot returns a copy of the current ordered list.
func (l *List[T]) Snapshot() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Health reports the subscription state and, when Stale, the cause.
func (l *List[T]) Health() (Health, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.health, l.err
}

// Close releases the change subscription. It must be called exactly once
// per successful Open; it is safe against double close.
func (l *List[T]) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		l.mu.Lock()
		l.health = HealthClosed
		l.mu.Unlock()
		if l.sub != nil {
			err = l.sub.Close()
		}
	})
	return err
}

func (l *List[T]) indexOf(id string) int {
	for i, item := range l.items {
		if l.opts.ID(item) == id {
			return i
		}
	}
	return -1
}

func (l *List[T]) removeAt(idx int) {
	l.items = append(l.items[:idx], l.items[idx+1:]...)
}

func (l *List[T]) insertSorted(rec T) {
	idx := sort.Search(len(l.items), func(i int) bool { return l.opts.Less(rec, l.items[i]) })
	l.items = append(l.items, rec)
	copy(l.items[idx+1:], l.items[idx:])
	l.items[idx] = rec
}
