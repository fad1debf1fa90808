package member_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/eacna/portal/core/member"
	"github.com/eacna/portal/core/payment"
	emailsvc "github.com/eacna/portal/services/email"
	inmemdb "github.com/eacna/portal/storage/database/inmem"
)

type fixture struct {
	mbrSvc  member.Service
	mbrRepo member.Repository
	payRepo payment.Repository
}

func setup(t *testing.T) *fixture {
	t.Helper()
	emailsvc.ClearSentMessages()

	db := inmemdb.NewDB()
	mbrRepo := inmemdb.NewMemberRepository(db)
	payRepo := inmemdb.NewPaymentRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock()
	return &fixture{
		mbrSvc:  member.NewServiceMock(mbrRepo, payRepo, mailSvc, nil, nil),
		mbrRepo: mbrRepo,
		payRepo: payRepo,
	}
}

func register(t *testing.T, svc member.Service, name, email string) member.Member {
	t.Helper()
	mbr, err := svc.Register(context.Background(), member.Registration{
		Name:       name,
		Email:      email,
		Phone:      "+254700000000",
		Profession: "Neurologist",
		Tier:       member.TierFull,
		Password:   "G00d#Pass",
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	return mbr
}

func TestRegister(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	mbr := register(t, f.mbrSvc, "Awe Mbongo", "awe@test.cd")
	if got := member.StateOf(mbr); got != member.StateRegistered {
		t.Errorf("StateOf() = %v, want %v", got, member.StateRegistered)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Errorf("welcome mail not sent; got %d messages", len(emailsvc.SentMessages))
	}

	// duplicate email is rejected by the store
	_, err := f.mbrSvc.Register(ctx, member.Registration{
		Name:       "Imposter",
		Email:      "awe@test.cd",
		Phone:      "+254700000001",
		Profession: "Pediatrician",
		Tier:       member.TierStudent,
		Password:   "G00d#Pass",
	})
	if errors.Cause(err) != member.ErrEmailExists {
		t.Errorf("Register() error = %v, want ErrEmailExists", err)
	}
}

func TestSubmitApproveActivateFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	mbr := register(t, f.mbrSvc, "Awe Mbongo", "awe@test.cd")

	// activation and approval are not reachable from Registered
	if _, err := f.mbrSvc.Activate(ctx, mbr.ID); !errors.Is(err, member.ErrIllegalTransition) {
		t.Errorf("Activate() error = %v, want ErrIllegalTransition", err)
	}

	mbr, err := f.mbrSvc.SubmitPayment(ctx, mbr.ID, member.PaymentSubmission{TransactionID: "QGH7TYU89P"})
	if err != nil {
		t.Fatalf("SubmitPayment() failed: %v", err)
	}
	if got := member.StateOf(mbr); got != member.StatePaymentSubmitted {
		t.Errorf("StateOf() = %v, want %v", got, member.StatePaymentSubmitted)
	}
	if _, err = f.payRepo.GetPayment(ctx, payment.GetFilter{TransactionID: "QGH7TYU89P"}); err != nil {
		t.Errorf("payment record missing: %v", err)
	}

	// activation still requires an approved payment
	if _, err = f.mbrSvc.Activate(ctx, mbr.ID); !errors.Is(err, member.ErrIllegalTransition) {
		t.Errorf("Activate() error = %v, want ErrIllegalTransition", err)
	}

	sentBefore := len(emailsvc.SentMessages)
	mbr, err = f.mbrSvc.ApprovePayment(ctx, "QGH7TYU89P")
	if err != nil {
		t.Fatalf("ApprovePayment() failed: %v", err)
	}
	if got := member.StateOf(mbr); got != member.StatePaymentApproved {
		t.Errorf("StateOf() = %v, want %v", got, member.StatePaymentApproved)
	}
	if len(emailsvc.SentMessages) != sentBefore+1 {
		t.Errorf("approval mail not sent; got %d messages", len(emailsvc.SentMessages)-sentBefore)
	}

	// re-approving is a no-op yielding the same end state, no second mail
	again, err := f.mbrSvc.ApprovePayment(ctx, "QGH7TYU89P")
	if err != nil {
		t.Fatalf("ApprovePayment() (repeat) failed: %v", err)
	}
	if got := member.StateOf(again); got != member.StatePaymentApproved {
		t.Errorf("StateOf() = %v, want %v", got, member.StatePaymentApproved)
	}
	if len(emailsvc.SentMessages) != sentBefore+1 {
		t.Errorf("repeat approval sent a mail; got %d messages", len(emailsvc.SentMessages)-sentBefore)
	}

	// approval never activates implicitly
	if member.PortalAccess(mbr) != member.ErrPendingActivation {
		t.Errorf("PortalAccess() = %v, want ErrPendingActivation", member.PortalAccess(mbr))
	}

	mbr, err = f.mbrSvc.Activate(ctx, mbr.ID)
	if err != nil {
		t.Fatalf("Activate() failed: %v", err)
	}
	if got := member.StateOf(mbr); got != member.StateActive {
		t.Errorf("StateOf() = %v, want %v", got, member.StateActive)
	}
	if err = member.PortalAccess(mbr); err != nil {
		t.Errorf("PortalAccess() = %v, want nil", err)
	}
}

func TestSubmitPayment_duplicateTransaction(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := register(t, f.mbrSvc, "Awe Mbongo", "awe@test.cd")
	second := register(t, f.mbrSvc, "Kat Ngalula", "kat@test.cd")

	if _, err := f.mbrSvc.SubmitPayment(ctx, first.ID, member.PaymentSubmission{TransactionID: "QGH7TYU89P"}); err != nil {
		t.Fatalf("SubmitPayment() failed: %v", err)
	}

	_, err := f.mbrSvc.SubmitPayment(ctx, second.ID, member.PaymentSubmission{TransactionID: "QGH7TYU89P"})
	if errors.Cause(err) != payment.ErrTransactionExists {
		t.Fatalf("SubmitPayment() error = %v, want ErrTransactionExists", err)
	}

	// the rejected submission leaves the member untouched
	refreshed, err := f.mbrRepo.GetMember(ctx, member.GetFilter{ID: second.ID})
	if err != nil {
		t.Fatalf("GetMember() failed: %v", err)
	}
	if got := member.StateOf(refreshed); got != member.StateRegistered {
		t.Errorf("StateOf() = %v, want %v", got, member.StateRegistered)
	}
	if refreshed.TransactionID.Valid {
		t.Errorf("member transaction reference set to %q after rejected submission", refreshed.TransactionID.String)
	}
}

func TestPortalAccess(t *testing.T) {
	tests := []struct {
		name    string
		mbr     member.Member
		wantErr error
	}{
		{
			name:    "no payment",
			mbr:     member.Member{MembershipStatus: member.MembershipPending, PaymentStatus: member.PaymentPending},
			wantErr: member.ErrPaymentRequired,
		},
		{
			name:    "approved but not activated",
			mbr:     member.Member{MembershipStatus: member.MembershipPending, PaymentStatus: member.PaymentApproved},
			wantErr: member.ErrPendingActivation,
		},
		{
			name: "active",
			mbr:  member.Member{MembershipStatus: member.MembershipActive, PaymentStatus: member.PaymentApproved},
		},
		{
			name: "admin bypasses the gate",
			mbr:  member.Member{IsAdmin: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := member.PortalAccess(tt.mbr); err != tt.wantErr {
				t.Errorf("PortalAccess() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	mbr := register(t, f.mbrSvc, "Awe Mbongo", "awe@test.cd")

	if _, err := f.mbrSvc.Authenticate(ctx, "awe@test.cd", "wrong"); err != member.ErrAuthFailed {
		t.Errorf("Authenticate() error = %v, want ErrAuthFailed", err)
	}
	if _, err := f.mbrSvc.Authenticate(ctx, "nobody@test.cd", "G00d#Pass"); err != member.ErrAuthFailed {
		t.Errorf("Authenticate() error = %v, want ErrAuthFailed", err)
	}

	authed, err := f.mbrSvc.Authenticate(ctx, "Awe@Test.cd", "G00d#Pass")
	if err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
	if authed.LastLogin.IsZero() {
		t.Error("Authenticate() did not set LastLogin")
	}

	// walk to active so deactivation is legal, then lock the account out
	if _, err = f.mbrSvc.SubmitPayment(ctx, mbr.ID, member.PaymentSubmission{TransactionID: "QGH7TYU89P"}); err != nil {
		t.Fatalf("SubmitPayment() failed: %v", err)
	}
	if _, err = f.mbrSvc.ApprovePayment(ctx, "QGH7TYU89P"); err != nil {
		t.Fatalf("ApprovePayment() failed: %v", err)
	}
	if _, err = f.mbrSvc.Activate(ctx, mbr.ID); err != nil {
		t.Fatalf("Activate() failed: %v", err)
	}
	if _, err = f.mbrSvc.Deactivate(ctx, mbr.ID); err != nil {
		t.Fatalf("Deactivate() failed: %v", err)
	}

	if _, err = f.mbrSvc.Authenticate(ctx, "awe@test.cd", "G00d#Pass"); err != member.ErrAccountDeactivated {
		t.Errorf("Authenticate() error = %v, want ErrAccountDeactivated", err)
	}

	// reactivation restores access
	if _, err = f.mbrSvc.Activate(ctx, mbr.ID); err != nil {
		t.Fatalf("Activate() (reactivate) failed: %v", err)
	}
	if _, err = f.mbrSvc.Authenticate(ctx, "awe@test.cd", "G00d#Pass"); err != nil {
		t.Errorf("Authenticate() after reactivation failed: %v", err)
	}
}

func TestResetPasswordFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	register(t, f.mbrSvc, "Awe Mbongo", "awe@test.cd")

	emailsvc.ClearSentMessages()
	if err := f.mbrSvc.RequestPasswordReset(ctx, "awe@test.cd"); err != nil {
		t.Fatalf("RequestPasswordReset() failed: %v", err)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("reset mail not sent; got %d messages", len(emailsvc.SentMessages))
	}

	data, ok := emailsvc.SentMessages[0].TemplateData.(struct {
		Name  string
		UID   string
		Token string
	})
	if !ok {
		t.Fatalf("unexpected reset mail data: %#v", emailsvc.SentMessages[0].TemplateData)
	}

	err := f.mbrSvc.ResetPassword(ctx, member.ResetMemberPassword{
		UID:      data.UID,
		Token:    data.Token,
		Password: "N3w#Passw0rd",
	})
	if err != nil {
		t.Fatalf("ResetPassword() failed: %v", err)
	}
	if _, err = f.mbrSvc.Authenticate(ctx, "awe@test.cd", "N3w#Passw0rd"); err != nil {
		t.Errorf("Authenticate() with new password failed: %v", err)
	}

	// the token is single-use: the hash changed, so it no longer verifies
	err = f.mbrSvc.ResetPassword(ctx, member.ResetMemberPassword{
		UID:      data.UID,
		Token:    data.Token,
		Password: "An0ther#Pwd",
	})
	if err == nil {
		t.Error("ResetPassword() succeeded with a used token")
	}
}
