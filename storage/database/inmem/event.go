package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/event"
)

type eventRepository struct {
	table *Table[event.Event]
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) *eventRepository {
	return &eventRepository{table: db.events}
}

func (repo *eventRepository) CreateEvent(_ context.Context, evt event.Event) (event.Event, error) {
	evt.ID = uuid.New().String()
	repo.table.insert(evt)
	return evt, nil
}

func (repo *eventRepository) GetEventByID(_ context.Context, id string) (event.Event, error) {
	evt, ok := repo.table.get(id)
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return evt, nil
}

func (repo *eventRepository) FilterEvents(_ context.Context, filter *event.QueryFilter, ordering []core.DBOrdering) ([]event.Event, error) {
	events := repo.table.all()

	if filter != nil {
		matched := events[:0]
		for _, evt := range events {
			if filter.Matches(evt) {
				matched = append(matched, evt)
			}
		}
		events = matched
	}

	if len(ordering) > 0 && ordering[0].Field == "date" {
		asc := ordering[0].Ascending
		sort.SliceStable(events, func(i, j int) bool {
			if asc {
				return events[i].Date.Before(events[j].Date)
			}
			return events[j].Date.Before(events[i].Date)
		})
	} else {
		sortByCreatedAt(events, ordering, func(evt event.Event) int64 { return evt.CreatedAt.UnixNano() })
	}
	return events, nil
}

func (repo *eventRepository) UpdateEvent(_ context.Context, evt event.Event) (event.Event, error) {
	if !repo.table.update(evt) {
		return event.Event{}, event.ErrNotFound
	}
	return evt, nil
}

func (repo *eventRepository) DeleteEvent(_ context.Context, id string) error {
	if !repo.table.remove(id) {
		return event.ErrNotFound
	}
	return nil
}
