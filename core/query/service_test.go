package query_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/query"
	emailsvc "github.com/eacna/portal/services/email"
	inmemdb "github.com/eacna/portal/storage/database/inmem"
)

func setup() query.Service {
	emailsvc.ClearSentMessages()
	repo := inmemdb.NewQueryRepository(inmemdb.NewDB())
	return query.NewService(repo, emailsvc.NewConsoleServiceMock(), nil, nil)
}

func submit(t *testing.T, svc query.Service) query.Query {
	t.Helper()
	qry, err := svc.Submit(context.Background(), query.NewQuery{
		Topic:    "Pediatric EEG referrals",
		Category: query.CategoryHealthcare,
		Email:    "parent@test.cd",
		Message:  "Where can I get an EEG for my child in Mwanza?",
	})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	return qry
}

func TestSubmit(t *testing.T) {
	svc := setup()

	qry := submit(t, svc)
	if qry.Status != query.StatusPending {
		t.Errorf("Submit() status = %v, want %v", qry.Status, query.StatusPending)
	}
	if qry.Responded() {
		t.Error("Submit() created a responded query")
	}
}

func TestRespond(t *testing.T) {
	svc := setup()
	ctx := context.Background()

	qry := submit(t, svc)

	// the response body is required
	_, err := svc.Respond(ctx, qry.ID, "   ")
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Respond() error = %v, want ValidationError", err)
	}

	qry, err = svc.Respond(ctx, qry.ID, "The regional referral hospital runs an EEG clinic on Tuesdays.")
	if err != nil {
		t.Fatalf("Respond() failed: %v", err)
	}
	if !qry.Responded() {
		t.Errorf("Respond() status = %v, want %v", qry.Status, query.StatusResponded)
	}
	if !qry.RespondedAt.Valid {
		t.Error("Respond() did not set RespondedAt")
	}

	// the response is emailed to the requester
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("response mail not sent; got %d messages", len(emailsvc.SentMessages))
	}
	msg := emailsvc.SentMessages[0]
	if msg.To[0].Address != "parent@test.cd" {
		t.Errorf("response mail recipient = %q", msg.To[0].Address)
	}

	// a query is responded to exactly once
	if _, err = svc.Respond(ctx, qry.ID, "Second answer"); err != query.ErrAlreadyResponded {
		t.Errorf("Respond() (repeat) error = %v, want ErrAlreadyResponded", err)
	}

	if _, err = svc.Respond(ctx, "missing", "answer"); errors.Cause(err) != query.ErrNotFound {
		t.Errorf("Respond() error = %v, want ErrNotFound", err)
	}
}
