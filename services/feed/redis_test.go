package feedsvc

import (
	"context"
	"testing"
	"time"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/livelist"
)

type rec struct {
	ID   string `json:"id"`
	Rank int    `json:"rank"`
}

// fakeStream is a controllable stand-in for the redis payload stream.
type fakeStream struct {
	payloads chan string
	released bool
	subErr   error
}

func newFakeStream() *fakeStream {
	return &fakeStream{payloads: make(chan string, 16)}
}

func (fs *fakeStream) subscribe(_ context.Context) (<-chan string, func() error, error) {
	if fs.subErr != nil {
		return nil, nil, fs.subErr
	}
	release := func() error {
		fs.released = true
		return nil
	}
	return fs.payloads, release, nil
}

// push encodes a change event the way Publish writes it to the wire.
func (fs *fakeStream) push(t *testing.T, op core.ChangeOp, record interface{}) {
	t.Helper()
	data, err := encodeEvent(op, record)
	if err != nil {
		t.Fatalf("encodeEvent() failed: %v", err)
	}
	fs.payloads <- string(data)
}

func newSource(fs *fakeStream, recs []rec) *source[rec] {
	return &source[rec]{
		subscribe: fs.subscribe,
		queryAll: func(_ context.Context) ([]rec, error) {
			return recs, nil
		},
	}
}

func receiveEvent(t *testing.T, sub livelist.Subscription[rec]) (livelist.Event[rec], bool) {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		return ev, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a change event")
		return livelist.Event[rec]{}, false
	}
}

func Test_source_Subscribe(t *testing.T) {
	fs := newFakeStream()
	src := newSource(fs, nil)

	sub, err := src.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	fs.push(t, core.ChangeInsert, rec{ID: "a", Rank: 1})
	fs.push(t, core.ChangeUpdate, rec{ID: "a", Rank: 2})
	fs.push(t, core.ChangeDelete, rec{ID: "a", Rank: 2})

	wants := []livelist.Event[rec]{
		{Op: livelist.OpInsert, Record: rec{ID: "a", Rank: 1}},
		{Op: livelist.OpUpdate, Record: rec{ID: "a", Rank: 2}},
		{Op: livelist.OpDelete, Record: rec{ID: "a", Rank: 2}},
	}
	for _, want := range wants {
		got, ok := receiveEvent(t, sub)
		if !ok {
			t.Fatal("event stream closed early")
		}
		if got != want {
			t.Errorf("event = %+v, want %+v", got, want)
		}
	}

	// a dying stream closes the event channel without an error
	close(fs.payloads)
	if _, ok := receiveEvent(t, sub); ok {
		t.Error("event stream still open after the payload stream died")
	}
	if err := sub.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func Test_source_Subscribe_badPayload(t *testing.T) {
	fs := newFakeStream()
	src := newSource(fs, nil)

	sub, err := src.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	fs.payloads <- "{not json"
	if _, ok := receiveEvent(t, sub); ok {
		t.Error("event stream still open after an undecodable payload")
	}
	if err := sub.Err(); err == nil {
		t.Error("Err() = nil, want a decode error")
	}
}

func Test_source_Subscribe_fails(t *testing.T) {
	fs := newFakeStream()
	fs.subErr = context.DeadlineExceeded
	src := newSource(fs, nil)

	if _, err := src.Subscribe(context.Background()); err == nil {
		t.Error("Subscribe() succeeded with a dead stream")
	}
}

func Test_subscription_Close(t *testing.T) {
	fs := newFakeStream()
	src := newSource(fs, nil)

	sub, err := src.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if !fs.released {
		t.Error("Close() did not release the underlying stream")
	}
	if _, ok := receiveEvent(t, sub); ok {
		t.Error("event stream still open after Close()")
	}
}

// Test_source_liveList drives a live list end to end over the bridge: the
// bulk read seeds the list, then wire-encoded events keep it current.
func Test_source_liveList(t *testing.T) {
	fs := newFakeStream()
	src := newSource(fs, []rec{{ID: "b", Rank: 2}, {ID: "a", Rank: 1}})

	lst, err := livelist.Open(context.Background(), livelist.Options[rec]{
		Source: src,
		Less:   func(a, b rec) bool { return a.Rank < b.Rank },
		ID:     func(r rec) string { return r.ID },
	})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer func() { _ = lst.Close() }()

	if health, err := lst.Health(); health != livelist.HealthLive {
		t.Fatalf("Health() = %v (%v), want %v", health, err, livelist.HealthLive)
	}
	if got := ids(lst.Snapshot()); !sameIDs(got, []string{"a", "b"}) {
		t.Fatalf("Snapshot() = %v, want [a b]", got)
	}

	fs.push(t, core.ChangeInsert, rec{ID: "c", Rank: 0})
	fs.push(t, core.ChangeDelete, rec{ID: "b", Rank: 2})
	waitForIDs(t, lst, []string{"c", "a"})
}

func ids(recs []rec) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func sameIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func waitForIDs(t *testing.T, lst *livelist.List[rec], want []string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := ids(lst.Snapshot()); sameIDs(got, want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("snapshot = %v, want %v", ids(lst.Snapshot()), want)
}
