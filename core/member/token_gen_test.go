package member

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"
)

func TestMakeVerifyToken(t *testing.T) {
	secretKey = []byte("secret")
	passwordResetTimeoutDelta = 3 * 24 * time.Hour

	now := time.Now()
	mbr := Member{
		ID:               "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		Name:             "T",
		Email:            "t@test.test",
		Tier:             TierStudent,
		MembershipStatus: MembershipPending,
		PaymentStatus:    PaymentPending,
		TransactionID:    null.StringFrom("QGH7TYU89P"),
		CreatedAt:        now,
		UpdatedAt:        now,
		LastLogin:        now,
	}
	_ = mbr.SetPassword("pwd")

	validToken := makeToken(mbr)

	// generate an expired token
	dayLate := passwordResetTimeoutDelta + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := makeToken(mbr)
	nowFunc = time.Now // reset

	tests := []struct {
		name    string
		mbr     Member
		token   string
		wantErr error
	}{
		{name: "no token", mbr: mbr, wantErr: errInvalidToken},
		{name: "invalid parts len", mbr: mbr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", mbr: mbr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", mbr: mbr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", mbr: mbr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", mbr: mbr, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", mbr: mbr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyToken(tt.mbr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
