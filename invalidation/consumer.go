// Package invalidation consumes project and task change notifications and
// drops the dashboard cache entries they make stale.
package invalidation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"prism-dashboard/domain"
	"prism-dashboard/storage"
)

// ErrPoison marks a message that can never be processed.
var ErrPoison = errors.New("invalidation: poison message")

// DefaultMaxAttempts is the dequeue count after which a failing message is
// dropped.
const DefaultMaxAttempts = 5

// Source yields change messages.
type Source interface {
	Receive(ctx context.Context) ([]storage.Message, error)
	Delete(ctx context.Context, msg storage.Message) error
}

// Invalidator drops cache entries affected by a change.
type Invalidator interface {
	Invalidate(ctx context.Context, c domain.Change) (int, error)
}

// Publisher broadcasts invalidation notices.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Notice is published after a change has been applied to the cache.
type Notice struct {
	ChangeID  string            `json:"changeId,omitempty"`
	Kind      domain.ChangeKind `json:"kind"`
	ProjectID string            `json:"projectId"`
	Deleted   int               `json:"deleted"`
	Timestamp int64             `json:"timestamp"`
}

// Consumer drains a Source into an Invalidator.
type Consumer struct {
	source      Source
	invalidator Invalidator
	publisher   Publisher
	channel     string
	logger      *log.Logger
	idle        time.Duration
	maxAttempts int64
}

// Option customises a Consumer.
type Option func(*Consumer)

// WithPublisher publishes a Notice on channel for every processed change.
func WithPublisher(p Publisher, channel string) Option {
	return func(c *Consumer) {
		c.publisher = p
		c.channel = channel
	}
}

// WithIdleDelay sets the pause after an empty or failed receive.
func WithIdleDelay(d time.Duration) Option {
	return func(c *Consumer) { c.idle = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Consumer) { c.logger = l }
}

// NewConsumer creates a Consumer.
func NewConsumer(source Source, inv Invalidator, opts ...Option) *Consumer {
	if source == nil || inv == nil {
		panic("invalidation.NewConsumer: missing dependency")
	}
	c := &Consumer{
		source:      source,
		invalidator: inv,
		logger:      log.StandardLogger(),
		idle:        time.Second,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run processes messages until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("change consumer started")
	defer c.logger.Info("change consumer stopped")
	for {
		if ctx.Err() != nil {
			return nil
		}
		msgs, err := c.source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.WithError(err).Warn("receive change messages")
			c.sleep(ctx)
			continue
		}
		if len(msgs) == 0 {
			c.sleep(ctx)
			continue
		}
		for _, m := range msgs {
			c.handle(ctx, m)
		}
	}
}

func (c *Consumer) sleep(ctx context.Context) {
	t := time.NewTimer(c.idle)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// handle processes m and deletes it unless it should be redelivered.
func (c *Consumer) handle(ctx context.Context, m storage.Message) {
	entry := c.logger.WithFields(log.Fields{"message": m.ID, "attempt": m.DequeueCount})
	err := c.Process(ctx, m.Text)
	switch {
	case err == nil:
	case errors.Is(err, ErrPoison):
		entry.WithError(err).Error("dropping undecodable change message")
	case c.maxAttempts > 0 && m.DequeueCount >= c.maxAttempts:
		entry.WithError(err).Error("dropping change message after repeated failures")
	default:
		entry.WithError(err).Warn("change message left for redelivery")
		return
	}
	if err := c.source.Delete(ctx, m); err != nil {
		entry.WithError(err).Warn("delete change message")
	}
}

// Process applies one change message.
func (c *Consumer) Process(ctx context.Context, text string) error {
	change, err := DecodeChange(text)
	if err != nil {
		return err
	}
	deleted, err := c.invalidator.Invalidate(ctx, change)
	if err != nil {
		return fmt.Errorf("invalidate %s %s: %w", change.Kind, change.ProjectID, err)
	}
	c.logger.WithFields(log.Fields{
		"kind":    change.Kind,
		"project": change.ProjectID,
		"deleted": deleted,
	}).Debug("change applied to dashboard cache")

	if c.publisher == nil || c.channel == "" {
		return nil
	}
	payload, err := sonic.Marshal(Notice{
		ChangeID:  change.ID,
		Kind:      change.Kind,
		ProjectID: change.ProjectID,
		Deleted:   deleted,
		Timestamp: change.Timestamp,
	})
	if err != nil {
		c.logger.WithError(err).Error("encode invalidation notice")
		return nil
	}
	if err := c.publisher.Publish(ctx, c.channel, payload); err != nil {
		c.logger.WithError(err).Errorf("Unable to publish invalidation notice to %s", c.channel)
	}
	return nil
}

// DecodeChange parses a change message. Queue messages may arrive base64
// encoded.
func DecodeChange(text string) (domain.Change, error) {
	body := strings.TrimSpace(text)
	if body != "" && !strings.HasPrefix(body, "{") {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return domain.Change{}, fmt.Errorf("%w: %v", ErrPoison, err)
		}
		body = string(raw)
	}
	var c domain.Change
	if err := sonic.UnmarshalString(body, &c); err != nil {
		return domain.Change{}, fmt.Errorf("%w: %v", ErrPoison, err)
	}
	if c.Kind == "" || c.ProjectID == "" {
		return domain.Change{}, fmt.Errorf("%w: missing kind or project", ErrPoison)
	}
	return c, nil
}
