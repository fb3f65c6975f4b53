package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	MemberCheckedIn      = "member.checked_in"
	MembershipDowngraded = "membership.downgraded"
	PaymentReconciled    = "payment.reconciled"
	NotifySend           = "notify.send"
)

// Event payloads
type MemberCheckedInEvent struct {
	MemberID  int64     `json:"member_id"`
	StaffID   *int64    `json:"staff_id,omitempty"`
	VisitDay  string    `json:"visit_day"`
	Points    int       `json:"points"`
	CheckedAt time.Time `json:"checked_at"`
}

type MembershipDowngradedEvent struct {
	MemberID     int64  `json:"member_id"`
	MemberEmail  string `json:"member_email"`
	MemberName   string `json:"member_name"`
	PrevPlanCode string `json:"prev_plan_code"`
	PrevPlanName string `json:"prev_plan_name"`
	DowngradedOn string `json:"downgraded_on"`
}

type PaymentReconciledEvent struct {
	PaymentID     int64     `json:"payment_id"`
	Reference     string    `json:"reference"`
	MembershipID  int64     `json:"membership_id"`
	MemberEmail   string    `json:"member_email"`
	MemberName    string    `json:"member_name"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	PlanCode      string    `json:"plan_code"`
	PaidThrough   string    `json:"paid_through"`
	ProviderTxnID string    `json:"provider_txn_id"`
	ReconciledAt  time.Time `json:"reconciled_at"`
}

type NotificationEvent struct {
	Type      string                 `json:"type"`
	Recipient string                 `json:"recipient"`
	Subject   string                 `json:"subject"`
	Template  string                 `json:"template"`
	Data      map[string]interface{} `json:"data"`
}
