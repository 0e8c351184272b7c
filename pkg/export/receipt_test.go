package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportcenterhq/client-go/internal/models"
)

func TestRenderReceipt(t *testing.T) {
	renderer := NewReceiptRenderer()

	data, err := renderer.Render(Receipt{
		Payment: models.PaymentRecord{
			ID:            1,
			MemberID:      42,
			Amount:        250000,
			Method:        models.MethodWalletA,
			Status:        models.PaymentStatusCompleted,
			TransactionID: "txn-123",
			PaidAt:        time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		},
		Enrollment: models.Enrollment{ID: 5, MemberID: 42, ClassID: 7, Status: models.EnrollmentStatusApproved},
		Class:      &models.ClassOffering{ID: 7, Name: "Morning Yoga"},
		Member:     models.Identity{ID: 42, Username: "member42", FullName: "Member Fortytwo"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestRenderReceiptWithoutClassDetail(t *testing.T) {
	renderer := NewReceiptRenderer()

	data, err := renderer.Render(Receipt{
		Payment:    models.PaymentRecord{TransactionID: "txn-456", Amount: 400000, Method: models.MethodCardC, Status: models.PaymentStatusCompleted, PaidAt: time.Now()},
		Enrollment: models.Enrollment{ID: 6, ClassID: 9, Status: models.EnrollmentStatusPending},
		Member:     models.Identity{ID: 42, Username: "member42"},
	})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestRenderReceiptRequiresPayment(t *testing.T) {
	renderer := NewReceiptRenderer()

	_, err := renderer.Render(Receipt{})
	assert.Error(t, err)
}
