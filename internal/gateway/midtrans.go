package gateway

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"

	"tutorbook/internal/metrics"
)

type snapAPI interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

type coreAPI interface {
	CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, *midtrans.Error)
	RefundTransaction(orderID string, req *coreapi.RefundReq) (*coreapi.RefundResponse, *midtrans.Error)
}

// SettlementCurrency is the only currency Midtrans charges in. It has no
// minor unit, so stored amounts are whole rupiah and go to the API unchanged.
const SettlementCurrency = "IDR"

var ErrUnsupportedCurrency = errors.New("currency not supported by midtrans")

// Midtrans runs checkout through Snap and status/refund through the Core API.
// Order ids double as transaction references.
type Midtrans struct {
	snap      snapAPI
	core      coreAPI
	serverKey string
	currency  string
}

// NewMidtrans fails unless currency is the settlement currency.
func NewMidtrans(serverKey string, production bool, currency string) (*Midtrans, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency != SettlementCurrency {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, currency)
	}

	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	var s snap.Client
	s.New(serverKey, env)
	var c coreapi.Client
	c.New(serverKey, env)

	return &Midtrans{snap: &s, core: &c, serverKey: serverKey, currency: currency}, nil
}

func (m *Midtrans) Initialize(ctx context.Context, req InitRequest) (res *InitResult, err error) {
	defer observe("initialize", time.Now(), &err)

	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("invalid amount %d", req.AmountCents)
	}
	if !strings.EqualFold(req.Currency, m.currency) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, req.Currency)
	}
	gross := req.AmountCents

	sreq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Payer.Name,
			Email: req.Payer.Email,
		},
		CreditCard: &snap.CreditCardDetails{Secure: true},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    req.OrderID,
				Name:  truncate(req.Description, 50),
				Price: gross,
				Qty:   1,
			},
		},
	}

	resp, mErr := m.snap.CreateTransaction(sreq)
	if mErr != nil {
		return nil, fmt.Errorf("midtrans create transaction: %s", mErr.Error())
	}

	return &InitResult{CheckoutURL: resp.RedirectURL, Token: resp.Token, TxRef: req.OrderID}, nil
}

func (m *Midtrans) Verify(ctx context.Context, txRef string) (res *VerifyResult, err error) {
	defer observe("verify", time.Now(), &err)

	resp, mErr := m.core.CheckTransaction(txRef)
	if mErr != nil {
		return nil, fmt.Errorf("midtrans check transaction: %s", mErr.Error())
	}

	return &VerifyResult{
		Status:    MapStatus(resp.TransactionStatus, resp.FraudStatus),
		RawStatus: resp.TransactionStatus,
	}, nil
}

func (m *Midtrans) Refund(ctx context.Context, txRef string, amountCents int64, reason string) (res *RefundResult, err error) {
	defer observe("refund", time.Now(), &err)

	if amountCents <= 0 {
		return nil, fmt.Errorf("invalid refund amount %d", amountCents)
	}

	// One refund per transaction, so a retried call after a pending
	// answer is deduplicated by the gateway.
	req := &coreapi.RefundReq{
		RefundKey: refundKey(txRef),
		Amount:    amountCents,
		Reason:    truncate(reason, 255),
	}

	resp, mErr := m.core.RefundTransaction(txRef, req)
	if mErr != nil {
		return nil, fmt.Errorf("midtrans refund: %s", mErr.Error())
	}

	status := StatusFailed
	switch resp.TransactionStatus {
	case "refund", "partial_refund":
		status = StatusSuccess
	case "pending":
		status = StatusPending
	}

	ref := resp.RefundKey
	if ref == "" {
		ref = req.RefundKey
	}
	return &RefundResult{Status: status, RefundRef: ref}, nil
}

// VerifySignature checks sha512(order_id + status_code + gross_amount + server_key).
func (m *Midtrans) VerifySignature(n Notification) bool {
	expected := Signature(n.OrderID, n.StatusCode, n.GrossAmount, m.serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}

func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// MapStatus normalizes a Midtrans transaction status.
func MapStatus(transactionStatus, fraudStatus string) string {
	switch transactionStatus {
	case "settlement":
		return StatusSuccess
	case "capture":
		if fraudStatus == "" || fraudStatus == "accept" {
			return StatusSuccess
		}
		if fraudStatus == "challenge" {
			return StatusPending
		}
		return StatusFailed
	case "pending", "authorize":
		return StatusPending
	default:
		return StatusFailed
	}
}

func refundKey(txRef string) string {
	return "rf-" + txRef
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func observe(op string, start time.Time, err *error) {
	metrics.RecordGatewayCall(op, *err, time.Since(start).Seconds())
}
