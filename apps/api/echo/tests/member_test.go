package tests

import (
	"net/http"
	"testing"

	"github.com/eacna/portal/core/member"
	"github.com/eacna/portal/core/payment"

	. "github.com/eacna/portal/apps/api/echo"
)

func TestMemberAPI_authGuards(t *testing.T) {
	f := setup(t)

	mbr := createMember(t, f.mbrRepo, "Awe Mbongo", "awe@test.cd", false)
	admin := createMember(t, f.mbrRepo, "Kat Ngalula", "admin@test.cd", true)
	mbrToken := getToken(t, mbr)
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{
			name:     "me requires auth",
			method:   http.MethodGet,
			path:     "/v1/members/me",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "listing requires admin",
			method:   http.MethodGet,
			path:     "/v1/members",
			token:    mbrToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "detail requires admin",
			method:   http.MethodGet,
			path:     "/v1/members/" + mbr.ID,
			token:    mbrToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "activate requires admin",
			method:   http.MethodPost,
			path:     "/v1/members/" + mbr.ID + "/activate",
			token:    mbrToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "me",
			method:   http.MethodGet,
			path:     "/v1/members/me",
			token:    mbrToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, mbr),
		},
		{
			name:     "admin detail",
			method:   http.MethodGet,
			path:     "/v1/members/" + mbr.ID,
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, mbr),
		},
		{
			name:     "admin detail of unknown member",
			method:   http.MethodGet,
			path:     "/v1/members/6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			f.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// TestMemberAPI_lifecycle walks a membership end to end: register, submit
// a payment reference, admin approval, admin activation, deactivation.
func TestMemberAPI_lifecycle(t *testing.T) {
	f := setup(t)

	admin := createMember(t, f.mbrRepo, "Kat Ngalula", "admin@test.cd", true)
	adminToken := getToken(t, admin)

	var mbr member.Member
	var mbrToken string

	t.Run("register", func(t *testing.T) {
		body := marchallObj(t, map[string]string{
			"name":             "Awe Mbongo",
			"email":            "awe@test.cd",
			"phone":            "+254700000000",
			"profession":       "Neurologist",
			"membership_tier":  "full_member",
			"password":         testPassword,
			"password_confirm": testPassword,
		})
		req, rec := newRequest(http.MethodPost, "/v1/members/register", body)
		f.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		unmarchallObj(t, rec, &mbr)
		if got := member.StateOf(mbr); got != member.StateRegistered {
			t.Errorf("StateOf() = %v, want %v", got, member.StateRegistered)
		}
	})

	t.Run("register duplicate email", func(t *testing.T) {
		body := marchallObj(t, map[string]string{
			"name":             "Imposter",
			"email":            "awe@test.cd",
			"phone":            "+254700000001",
			"profession":       "Pediatrician",
			"membership_tier":  "student",
			"password":         testPassword,
			"password_confirm": testPassword,
		})
		req, rec := newRequest(http.MethodPost, "/v1/members/register", body)
		f.server.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": member.ErrEmailExists.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("login routes to the payment portal", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": "awe@test.cd", "password": testPassword})
		req, rec := newRequest(http.MethodPost, "/v1/members/login", body)
		f.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp LoginResponse
		unmarchallObj(t, rec, &resp)
		if resp.Portal != PortalPayment {
			t.Errorf("portal = %q, want %q", resp.Portal, PortalPayment)
		}
		mbrToken = resp.Token
	})

	t.Run("dashboard is gated until activation", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/members/me/dashboard", mbrToken)
		f.server.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: member.ErrPaymentRequired.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("submit payment", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"transaction_id": "QGH7TYU89P"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/members/me/payments", mbrToken, body)
		f.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		unmarchallObj(t, rec, &mbr)
		if got := member.StateOf(mbr); got != member.StatePaymentSubmitted {
			t.Errorf("StateOf() = %v, want %v", got, member.StatePaymentSubmitted)
		}
	})

	t.Run("duplicate transaction reference", func(t *testing.T) {
		other := createMember(t, f.mbrRepo, "Baraka Juma", "baraka@test.cd", false)
		body := marchallObj(t, map[string]string{"transaction_id": "QGH7TYU89P"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/members/me/payments", getToken(t, other), body)
		f.server.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: payment.ErrTransactionExists.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("approve payment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/payments/QGH7TYU89P/approve", adminToken)
		f.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		unmarchallObj(t, rec, &mbr)
		if got := member.StateOf(mbr); got != member.StatePaymentApproved {
			t.Errorf("StateOf() = %v, want %v", got, member.StatePaymentApproved)
		}
	})

	t.Run("approval does not open the dashboard", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/members/me/dashboard", mbrToken)
		f.server.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: member.ErrPendingActivation.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("activate", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/members/"+mbr.ID+"/activate", adminToken)
		f.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		unmarchallObj(t, rec, &mbr)
		if got := member.StateOf(mbr); got != member.StateActive {
			t.Errorf("StateOf() = %v, want %v", got, member.StateActive)
		}
	})

	t.Run("dashboard", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/members/me/dashboard", mbrToken)
		f.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp DashboardResponse
		unmarchallObj(t, rec, &resp)
		if len(resp.Payments) != 1 || resp.Payments[0].TransactionID != "QGH7TYU89P" {
			t.Errorf("dashboard payments = %+v", resp.Payments)
		}
	})

	t.Run("login routes to the dashboard", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": "awe@test.cd", "password": testPassword})
		req, rec := newRequest(http.MethodPost, "/v1/members/login", body)
		f.server.ServeHTTP(rec, req)

		var resp LoginResponse
		unmarchallObj(t, rec, &resp)
		if resp.Portal != PortalDashboard {
			t.Errorf("portal = %q, want %q", resp.Portal, PortalDashboard)
		}
	})

	t.Run("deactivate locks the account out", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/members/"+mbr.ID+"/deactivate", adminToken)
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		body := marchallObj(t, map[string]string{"email": "awe@test.cd", "password": testPassword})
		req, rec = newRequest(http.MethodPost, "/v1/members/login", body)
		f.server.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: member.ErrAccountDeactivated.Error()}),
		}
		checkCodeAndData(t, tt, rec)

		// a token issued before deactivation no longer opens the dashboard
		req, rec = newAuthRequest(http.MethodGet, "/v1/members/me/dashboard", mbrToken)
		f.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v, want %v; body %s", rec.Code, http.StatusForbidden, rec.Body.String())
		}
	})
}

func TestMemberAPI_tokenRefresh(t *testing.T) {
	f := setup(t)

	mbr := createMember(t, f.mbrRepo, "Awe Mbongo", "awe@test.cd", false)

	req, rec := newAuthRequest(http.MethodPost, "/v1/members/token-refresh", getToken(t, mbr))
	f.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp LoginResponse
	unmarchallObj(t, rec, &resp)
	if resp.Token == "" {
		t.Error("token refresh returned an empty token")
	}
}
