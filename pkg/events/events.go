// Package events publishes ledger changes to Kafka so other systems can follow
// the daily figures without reading the workbook.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/yurifrl/compta/pkg/models"
)

const (
	DayCommitted = "day_committed"
	DayDeleted   = "day_deleted"
)

// Event is the JSON payload of every message. Undeclared figures are not
// published.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Date       string    `json:"date"`
	OccurredAt time.Time `json:"occurred_at"`
	Replaced   bool      `json:"replaced,omitempty"`

	TotalDeclared       string `json:"total_declared,omitempty"`
	CardDeclared        string `json:"card_declared,omitempty"`
	CashDeclared        string `json:"cash_declared,omitempty"`
	MealVoucherDeclared string `json:"meal_voucher_declared,omitempty"`
	ExpenseDeclared     string `json:"expense_declared,omitempty"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher is a commit hook writing one message per ledger change, keyed by
// date so a day's history stays on one partition.
type Publisher struct {
	writer messageWriter
	logger *log.Logger
	now    func() time.Time
}

func NewPublisher(brokers []string, topic string, logger *log.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		logger: logger,
		now:    time.Now,
	}
}

func (p *Publisher) DayCommitted(ctx context.Context, r models.Record, replaced *models.Record) error {
	return p.publish(ctx, Event{
		Type:                DayCommitted,
		Date:                r.Date,
		Replaced:            replaced != nil,
		TotalDeclared:       r.TotalDeclared.String(),
		CardDeclared:        r.CardDeclared().String(),
		CashDeclared:        r.CashDeclared().String(),
		MealVoucherDeclared: r.MealVoucherDeclared.String(),
		ExpenseDeclared:     r.ExpenseDeclared.String(),
	})
}

func (p *Publisher) DayDeleted(ctx context.Context, date string) error {
	return p.publish(ctx, Event{Type: DayDeleted, Date: date})
}

func (p *Publisher) publish(ctx context.Context, ev Event) error {
	ev.ID = uuid.NewString()
	ev.OccurredAt = p.now().UTC()
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.Date), Value: data}); err != nil {
		return fmt.Errorf("publish %s event for %s: %w", ev.Type, ev.Date, err)
	}
	p.logger.Debug("event published", "type", ev.Type, "date", ev.Date, "id", ev.ID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
