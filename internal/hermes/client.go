// Package hermes is the thin swarm-bus client: NATS with retrying connect
// and JSON payloads.
package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects causeway consumes and emits on the swarm bus.
const (
	// SubjectTranscriptStored announces a newly stored transcript; each
	// one schedules a statistics rebuild.
	SubjectTranscriptStored = "swarm.chronicle.transcript.stored"
	// SubjectStatsRebuilt announces a completed rebuild.
	SubjectStatsRebuilt = "swarm.causeway.stats.rebuilt"
	// SubjectRegistered announces this agent on startup.
	SubjectRegistered = "swarm.agent.causeway.registered"
)

// TranscriptStoredEvent is the payload of SubjectTranscriptStored.
type TranscriptStoredEvent struct {
	TranscriptID string `json:"transcript_id"`
	SessionRef   string `json:"session_ref,omitempty"`
	StoredAt     string `json:"stored_at,omitempty"`
}

// StatsRebuiltEvent is the payload of SubjectStatsRebuilt.
type StatsRebuiltEvent struct {
	ChainCount      int       `json:"chain_count"`
	TranscriptCount int       `json:"transcript_count"`
	RebuiltAt       time.Time `json:"rebuilt_at"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
