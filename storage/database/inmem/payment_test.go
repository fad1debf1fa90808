package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/eacna/portal/core/payment"
)

func Test_paymentRepository_UpdatePaymentStatus(t *testing.T) {
	repo := NewPaymentRepository(NewDB())
	ctx := context.Background()

	created := time.Now().UTC().Add(-time.Hour)
	pmt, err := repo.CreatePayment(ctx, payment.Payment{
		MemberID:      "mbr-1",
		TransactionID: "QGH7TYU89P",
		Tier:          "full_member",
		Action:        payment.ActionRegister,
		Status:        payment.StatusPending,
		CreatedAt:     created,
		UpdatedAt:     created,
	})
	if err != nil {
		t.Fatalf("CreatePayment() failed: %v", err)
	}

	updated, err := repo.UpdatePaymentStatus(ctx, pmt.ID, payment.StatusApproved)
	if err != nil {
		t.Fatalf("UpdatePaymentStatus() failed: %v", err)
	}
	if updated.Status != payment.StatusApproved {
		t.Errorf("status = %v, want %v", updated.Status, payment.StatusApproved)
	}
	if !updated.UpdatedAt.After(pmt.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, not refreshed past %v", updated.UpdatedAt, pmt.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(pmt.CreatedAt) {
		t.Errorf("CreatedAt = %v, changed from %v", updated.CreatedAt, pmt.CreatedAt)
	}

	// the refresh must be persisted, not just returned
	stored, err := repo.GetPayment(ctx, payment.GetFilter{ID: pmt.ID})
	if err != nil {
		t.Fatalf("GetPayment() failed: %v", err)
	}
	if !stored.UpdatedAt.Equal(updated.UpdatedAt) {
		t.Errorf("stored UpdatedAt = %v, want %v", stored.UpdatedAt, updated.UpdatedAt)
	}

	if _, err = repo.UpdatePaymentStatus(ctx, "nope", payment.StatusApproved); err != payment.ErrNotFound {
		t.Errorf("UpdatePaymentStatus() error = %v, want %v", err, payment.ErrNotFound)
	}
}
