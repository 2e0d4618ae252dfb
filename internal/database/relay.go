package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const relaySource = "tcg-scraper"

type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

type OutboxRepo interface {
	GetPending(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, err error) error
}

var errNoCardset = errors.New("event payload carries no cardset_id")

// Relay copies committed outbox events onto a redis stream. Every entry is
// keyed by cardset so consumers can follow one cardset without decoding
// the payload.
type Relay struct {
	redis  RedisClient
	outbox OutboxRepo
	logger *slog.Logger
	cfg    RelayConfig
}

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxLen trims the stream approximately to this many entries. Zero
	// leaves it unbounded.
	MaxLen int64
}

func NewRelay(outbox OutboxRepo, redisClient RedisClient, logger *slog.Logger, cfg RelayConfig) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		redis:  redisClient,
		outbox: outbox,
		logger: logger.With("component", "relay"),
		cfg:    cfg,
	}
}

// Start drains the outbox once, then again on every tick until ctx is done.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("starting relay", "interval", r.cfg.PollInterval, "batch_size", r.cfg.BatchSize)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if n, err := r.drain(ctx); err != nil {
			r.logger.Error("failed to drain outbox", "error", err)
		} else if n > 0 {
			r.logger.Debug("outbox drained", "published", n)
		}

		select {
		case <-ctx.Done():
			r.logger.Info("relay stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// drain publishes one batch of due events and returns how many made it to
// the stream. A failed event is rescheduled and does not stop the batch.
func (r *Relay) drain(ctx context.Context) (int, error) {
	events, err := r.outbox.GetPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending events: %w", err)
	}

	published := 0
	for _, event := range events {
		logger := r.logger.With("event_id", event.ID, "event_type", event.EventType, "aggregate_id", event.AggregateID)

		if err := r.publish(ctx, event); err != nil {
			logger.Error("failed to publish event", "attempt", event.RetryCount+1, "error", err)
			if markErr := r.outbox.MarkFailed(ctx, event.ID, err); markErr != nil {
				logger.Error("failed to reschedule event", "error", markErr)
			}
			continue
		}
		if err := r.outbox.MarkProcessed(ctx, event.ID); err != nil {
			logger.Error("failed to mark event processed", "error", err)
			continue
		}
		published++
	}
	return published, nil
}

func (r *Relay) publish(ctx context.Context, event *OutboxEvent) error {
	values, err := streamValues(event)
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{Stream: event.TargetStream, Values: values}
	if r.cfg.MaxLen > 0 {
		args.MaxLen = r.cfg.MaxLen
		args.Approx = true
	}
	if _, err := r.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// eventFields are the payload fields promoted to top-level stream fields.
type eventFields struct {
	CardsetID string `json:"cardset_id"`
	State     string `json:"state"`
	Previous  string `json:"previous"`
}

func streamValues(event *OutboxEvent) (map[string]any, error) {
	var fields eventFields
	if err := json.Unmarshal(event.Payload, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", event.EventType, err)
	}
	if fields.CardsetID == "" {
		return nil, errNoCardset
	}

	values := map[string]any{
		"event_id":   event.ID.String(),
		"event":      event.EventType,
		"cardset_id": fields.CardsetID,
		"emitted_at": event.CreatedAt.UTC().Format(time.RFC3339Nano),
		"source":     relaySource,
		"attempt":    strconv.Itoa(event.RetryCount + 1),
		"payload":    string(event.Payload),
	}
	switch event.AggregateType {
	case AggregateCardset:
		values["state"] = fields.State
		if fields.Previous != "" {
			values["previous"] = fields.Previous
		}
	case AggregateCard:
		values["card_id"] = event.AggregateID
	}
	return values, nil
}
