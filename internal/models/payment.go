package models

import "time"

// PaymentMethod enumerates the supported payment channels.
type PaymentMethod string

const (
	MethodWalletA  PaymentMethod = "walletA"
	MethodGatewayB PaymentMethod = "gatewayB"
	MethodCardC    PaymentMethod = "cardC"
)

// Valid reports whether the method is one the backend accepts.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodWalletA, MethodGatewayB, MethodCardC:
		return true
	}
	return false
}

// PaymentStatus enumerates payment outcomes.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentRecord is a payment as served by POST /payments. Once completed it
// is the source of truth for the linked enrollment's approval.
type PaymentRecord struct {
	ID            int64         `json:"id"`
	MemberID      int64         `json:"member"`
	Amount        int64         `json:"amount"`
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id"`
	PaidAt        time.Time     `json:"date_paid"`
}
