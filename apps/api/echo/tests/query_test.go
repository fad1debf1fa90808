package tests

import (
	"net/http"
	"testing"

	"github.com/eacna/portal/core/query"
	emailsvc "github.com/eacna/portal/services/email"
)

func TestQueryAPI(t *testing.T) {
	f := setup(t)

	admin := createMember(t, f.mbrRepo, "Kat Ngalula", "admin@test.cd", true)
	adminToken := getToken(t, admin)

	var qry query.Query
	t.Run("submit is public", func(t *testing.T) {
		body := marchallObj(t, map[string]string{
			"topic":    "Pediatric EEG referrals",
			"category": "healthcare",
			"email":    "parent@test.cd",
			"message":  "Where can I get an EEG for my child in Mwanza?",
		})
		req, rec := newRequest(http.MethodPost, "/v1/queries", body)
		f.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		unmarchallObj(t, rec, &qry)
		if qry.Status != query.StatusPending {
			t.Errorf("status = %v, want %v", qry.Status, query.StatusPending)
		}
	})

	t.Run("submit rejects unknown categories", func(t *testing.T) {
		body := marchallObj(t, map[string]string{
			"topic":    "Hello",
			"category": "gossip",
			"email":    "parent@test.cd",
			"message":  "Hi",
		})
		req, rec := newRequest(http.MethodPost, "/v1/queries", body)
		f.server.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"category": "invalid query category"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("listing requires admin", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/queries")
		f.server.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("respond", func(t *testing.T) {
		emailsvc.ClearSentMessages()

		body := marchallObj(t, map[string]string{
			"response": "The regional referral hospital runs an EEG clinic on Tuesdays.",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/queries/"+qry.ID+"/respond", adminToken, body)
		f.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		unmarchallObj(t, rec, &qry)
		if !qry.Responded() {
			t.Errorf("status = %v, want %v", qry.Status, query.StatusResponded)
		}
		if len(emailsvc.SentMessages) != 1 {
			t.Errorf("response mail not sent; got %d messages", len(emailsvc.SentMessages))
		}
	})

	t.Run("respond twice", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"response": "Second answer"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/queries/"+qry.ID+"/respond", adminToken, body)
		f.server.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: query.ErrAlreadyResponded.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})
}
