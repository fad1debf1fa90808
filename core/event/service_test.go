package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/eacna/portal/core/event"
	inmemdb "github.com/eacna/portal/storage/database/inmem"
)

func setup() event.Service {
	return event.NewService(inmemdb.NewEventRepository(inmemdb.NewDB()), nil, nil)
}

func create(t *testing.T, svc event.Service, title string, typ event.Type, date time.Time) event.Event {
	t.Helper()
	evt, err := svc.Create(context.Background(), event.NewEvent{
		Title:    title,
		Type:     typ,
		Date:     date,
		Location: "Nairobi, Kenya",
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return evt
}

func titles(evts []event.Event) []string {
	out := make([]string, 0, len(evts))
	for _, evt := range evts {
		out = append(out, evt.Title)
	}
	return out
}

func TestQuery_ordering(t *testing.T) {
	svc := setup()
	ctx := context.Background()
	now := time.Now().UTC()

	create(t, svc, "Later", event.TypeConference, now.Add(48*time.Hour))
	create(t, svc, "Sooner", event.TypeWorkshop, now.Add(24*time.Hour))
	create(t, svc, "Past", event.TypeSeminar, now.Add(-24*time.Hour))

	evts, err := svc.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	got := titles(evts)
	want := []string{"Past", "Sooner", "Later"}
	if len(got) != len(want) {
		t.Fatalf("Query() returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Query() returned %v, want %v", got, want)
		}
	}
}

func TestUpcoming(t *testing.T) {
	svc := setup()
	ctx := context.Background()
	now := time.Now().UTC()

	create(t, svc, "Past", event.TypeSeminar, now.Add(-24*time.Hour))
	create(t, svc, "Future", event.TypeConference, now.Add(24*time.Hour))

	evts, err := svc.Upcoming(ctx, nil)
	if err != nil {
		t.Fatalf("Upcoming() failed: %v", err)
	}
	if len(evts) != 1 || evts[0].Title != "Future" {
		t.Errorf("Upcoming() returned %v, want [Future]", titles(evts))
	}
}

func TestUpdateDelete(t *testing.T) {
	svc := setup()
	ctx := context.Background()
	now := time.Now().UTC()

	evt := create(t, svc, "Annual Conference", event.TypeConference, now.Add(24*time.Hour))

	evt, err := svc.Update(ctx, evt.ID, event.UpdateEvent{Location: "Kampala, Uganda"})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if evt.Location != "Kampala, Uganda" {
		t.Errorf("Update() location = %q", evt.Location)
	}
	if evt.Title != "Annual Conference" {
		t.Errorf("Update() clobbered title: %q", evt.Title)
	}

	if err = svc.Delete(ctx, evt.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err = svc.GetByID(ctx, evt.ID); err != event.ErrNotFound {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	if err = svc.Delete(ctx, evt.ID); err == nil {
		t.Error("Delete() of a deleted event succeeded")
	}
}

func TestQueryFilterMatches(t *testing.T) {
	now := time.Now().UTC()
	conf := event.Event{Type: event.TypeConference, Date: now}

	tests := []struct {
		name   string
		filter *event.QueryFilter
		evt    event.Event
		want   bool
	}{
		{name: "nil filter matches all", filter: nil, evt: conf, want: true},
		{name: "empty filter matches all", filter: &event.QueryFilter{}, evt: conf, want: true},
		{
			name:   "type included",
			filter: &event.QueryFilter{Types: []event.Type{event.TypeConference, event.TypeWorkshop}},
			evt:    conf,
			want:   true,
		},
		{
			name:   "type not included",
			filter: &event.QueryFilter{Types: []event.Type{event.TypeWorkshop}},
			evt:    conf,
			want:   false,
		},
		{
			name:   "type excluded",
			filter: &event.QueryFilter{ExcludeTypes: []event.Type{event.TypeConference}},
			evt:    conf,
			want:   false,
		},
		{
			// Types wins when both are set
			name: "inclusion beats exclusion",
			filter: &event.QueryFilter{
				Types:        []event.Type{event.TypeConference},
				ExcludeTypes: []event.Type{event.TypeConference},
			},
			evt:  conf,
			want: true,
		},
		{
			name:   "before window",
			filter: &event.QueryFilter{From: now.Add(time.Hour)},
			evt:    conf,
			want:   false,
		},
		{
			name:   "after window",
			filter: &event.QueryFilter{To: now.Add(-time.Hour)},
			evt:    conf,
			want:   false,
		},
		{
			name:   "inside window",
			filter: &event.QueryFilter{From: now.Add(-time.Hour), To: now.Add(time.Hour)},
			evt:    conf,
			want:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.evt); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
