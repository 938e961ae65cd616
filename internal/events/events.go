// Package events publishes settlement notifications after commit. Delivery
// is best effort: a sink failure is logged and never unwinds a payment.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// PaymentEvent describes a committed payment.
type PaymentEvent struct {
	PaymentID string    `json:"payment_id"`
	User      string    `json:"user"`
	PlanID    uint64    `json:"plan_id"`
	InvoiceID string    `json:"invoice_id"`
	Token     string    `json:"token"`
	Method    string    `json:"method"`
	Amount    string    `json:"amount"`
	Refund    string    `json:"refund,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	At        time.Time `json:"at"`
}

// Sink receives committed payment events.
type Sink interface {
	Publish(ctx context.Context, ev PaymentEvent) error
}

// Dispatcher fans events out to sinks.
type Dispatcher struct {
	sinks []Sink
}

// NewDispatcher constructs a Dispatcher over the supplied sinks.
func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks}
}

// PaymentRecorded delivers the event to every sink. Failures are logged.
func (d *Dispatcher) PaymentRecorded(ctx context.Context, ev PaymentEvent) {
	if d == nil {
		return
	}
	for _, sink := range d.sinks {
		if err := sink.Publish(ctx, ev); err != nil {
			log.WithError(err).
				WithField("payment_id", ev.PaymentID).
				Warn("payment event delivery failed")
		}
	}
}

// LogSink writes payment events to the structured log.
type LogSink struct{}

// Publish implements Sink.
func (LogSink) Publish(_ context.Context, ev PaymentEvent) error {
	log.WithFields(log.Fields{
		"payment_id": ev.PaymentID,
		"user":       ev.User,
		"plan_id":    ev.PlanID,
		"invoice_id": ev.InvoiceID,
		"token":      ev.Token,
		"method":     ev.Method,
		"amount":     ev.Amount,
		"expires_at": ev.ExpiresAt.UTC().Format(time.RFC3339),
	}).Info("payment settled")
	return nil
}

// RedisSink publishes payment events to a Redis channel for downstream
// consumers.
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink constructs a RedisSink.
func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	if channel == "" {
		channel = "subscriptions.payments"
	}
	return &RedisSink{client: client, channel: channel}
}

// Publish implements Sink.
func (s *RedisSink) Publish(ctx context.Context, ev PaymentEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel, payload).Err()
}
