// Package events announces domain changes on NATS so other services can
// react to new posts and votes. Publishing is fire-and-forget: a failed
// publish never fails the request that caused it.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectPostCreated = "post.created"
	SubjectVoteChanged = "vote.changed"
)

// Publisher sends a JSON-encoded payload to a subject.
type Publisher interface {
	Publish(subject string, payload any) error
}

// PostCreated is published after a post is stored.
type PostCreated struct {
	PostID    int       `json:"id_publicacion"`
	UserID    int       `json:"id_usuario"`
	Title     string    `json:"titulo"`
	Timestamp time.Time `json:"timestamp"`
}

// VoteChanged is published when a vote row was created, updated or deleted.
type VoteChanged struct {
	Target    string    `json:"target"`
	TargetID  int       `json:"target_id"`
	UserID    int       `json:"id_usuario"`
	Result    string    `json:"result"`
	Likes     int64     `json:"likes"`
	Timestamp time.Time `json:"timestamp"`
}

// NATSPublisher publishes over a single shared connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// Connect dials url and returns a publisher owning the connection.
func Connect(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("vitia-backend"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(subject string, payload any) error {
	if p.conn == nil || !p.conn.IsConnected() {
		return nats.ErrConnectionClosed
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", subject, err)
	}
	return p.conn.Publish(subject, data)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(string, any) error { return nil }
