package domain

import (
	"time"

	"github.com/wwellington85/gym-membership-app-sub000/internal/civil"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment is a ledger entry. Created pending at checkout initiation, moved to
// paid only by a verified webhook, never transitioned backward.
type Payment struct {
	ID           int64         `json:"id"`
	Reference    string        `json:"reference"` // correlation id round-tripped through the provider
	MembershipID int64         `json:"membership_id"`
	PlanCode     string        `json:"plan_code"`
	AmountCents  int64         `json:"amount_cents"`
	Currency     string        `json:"currency"`
	Status       PaymentStatus `json:"status"`

	Provider      string `json:"provider"`
	ProviderTxnID string `json:"provider_txn_id,omitempty"`
	ProviderRef   string `json:"provider_ref,omitempty"`
	RawPayload    []byte `json:"-"`

	Method string      `json:"method,omitempty"`
	Notes  string      `json:"notes,omitempty"`
	PaidOn *civil.Date `json:"paid_on,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WebhookPayload is the parsed provider callback body. Parsing only happens
// after the signature has been accepted against the raw bytes.
type WebhookPayload struct {
	CustomReference string `json:"customReference"`
	TransactionID   string `json:"transactionId,omitempty"`
	Reference       string `json:"reference,omitempty"`
	Amount          string `json:"amount,omitempty"`
	Currency        string `json:"currency,omitempty"`
}

type CheckoutRequest struct {
	PlanCode string `json:"plan_code"`
	Method   string `json:"method,omitempty"`
}

type CheckoutResponse struct {
	Reference    string `json:"reference"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
	ClientSecret string `json:"client_secret,omitempty"`
}
