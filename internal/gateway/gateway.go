package gateway

import "context"

// Normalized transaction outcomes.
const (
	StatusSuccess = "success"
	StatusPending = "pending"
	StatusFailed  = "failed"
)

type Payer struct {
	ID    int
	Name  string
	Email string
}

type InitRequest struct {
	OrderID     string
	AmountCents int64
	Currency    string
	Description string
	Payer       Payer
}

type InitResult struct {
	CheckoutURL string
	TxRef       string
	Token       string
}

type VerifyResult struct {
	Status    string
	RawStatus string
}

type RefundResult struct {
	Status    string
	RefundRef string
}

// Gateway is the hosted-checkout payment provider.
type Gateway interface {
	Initialize(ctx context.Context, req InitRequest) (*InitResult, error)
	Verify(ctx context.Context, txRef string) (*VerifyResult, error)
	Refund(ctx context.Context, txRef string, amountCents int64, reason string) (*RefundResult, error)
}

// Notification is the asynchronous status callback posted by the provider.
type Notification struct {
	OrderID           string `json:"order_id" binding:"required"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code" binding:"required"`
	GrossAmount       string `json:"gross_amount" binding:"required"`
	SignatureKey      string `json:"signature_key" binding:"required"`
}
