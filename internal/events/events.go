// Package events publishes ledger changes to kafka after they commit.
//
// Publication is best effort: the ledger is the system of record and a lost
// event never affects balances.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ndewijer/investment-ledger/internal/model"
)

// Event types.
const (
	TypeTransactionAppended = "transaction.appended"
	TypeTransactionStatus   = "transaction.status_changed"
	TypeWithdrawalStatus    = "withdrawal.status_changed"
)

// Event is the payload written to the topic. Key is the account so all
// events of one account land on the same partition.
type Event struct {
	Type          string    `json:"type"`
	Account       string    `json:"account"`
	TransactionID string    `json:"transactionId,omitempty"`
	WithdrawalID  string    `json:"withdrawalId,omitempty"`
	Kind          string    `json:"kind,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// TransactionAppended builds the event for a newly created transaction.
func TransactionAppended(t model.Transaction) Event {
	return Event{
		Type:          TypeTransactionAppended,
		Account:       t.Account,
		TransactionID: t.ID,
		Kind:          string(t.Kind),
		Amount:        t.Amount.String(),
		Status:        string(t.Status),
		OccurredAt:    t.CreatedAt,
	}
}

// TransactionStatusChanged builds the event for a status transition.
func TransactionStatusChanged(t model.Transaction) Event {
	e := TransactionAppended(t)
	e.Type = TypeTransactionStatus
	e.OccurredAt = t.UpdatedAt
	return e
}

// WithdrawalStatusChanged builds the event for a withdrawal settlement step.
func WithdrawalStatusChanged(w model.WithdrawalRequest) Event {
	return Event{
		Type:         TypeWithdrawalStatus,
		Account:      w.Account,
		WithdrawalID: w.ID,
		Amount:       w.RequestedAmount.String(),
		Status:       string(w.Status),
		OccurredAt:   w.UpdatedAt,
	}
}

// Publisher delivers events. Implementations must not block the caller on
// broker availability and must never return an error to business code.
type Publisher interface {
	Publish(ctx context.Context, events ...Event)
	Close() error
}

// KafkaPublisher writes events asynchronously to a single topic.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher for brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	p := &KafkaPublisher{logger: logger}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		MaxAttempts:  3,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("failed to publish ledger events", zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}
	return p
}

// Publish enqueues events. Encoding failures are logged and dropped.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) {
	if len(events) == 0 {
		return
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		m, err := Encode(e)
		if err != nil {
			p.logger.Error("failed to encode ledger event", zap.String("type", e.Type), zap.Error(err))
			continue
		}
		msgs = append(msgs, m)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("failed to enqueue ledger events", zap.Error(err))
	}
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Encode converts an event to a kafka message keyed by account.
func Encode(e Event) (kafka.Message, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.Account),
		Value: body,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}, nil
}

// Nop discards events. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) {}
func (Nop) Close() error { return nil }
