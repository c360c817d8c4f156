// Package events publishes gesture and calibration events to NATS so other
// processes can react to what a session is doing.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dkinzer222/avatarai/internal/calibration"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "avatarai"

// GestureEvent is published on <prefix>.gesture.
type GestureEvent struct {
	Session   string    `json:"session"`
	Gesture   string    `json:"gesture"`
	Timestamp time.Time `json:"timestamp"`
}

// CalibrationEvent is published on <prefix>.calibration for every state change.
type CalibrationEvent struct {
	Session   string            `json:"session"`
	From      calibration.State `json:"from"`
	To        calibration.State `json:"to"`
	Timestamp time.Time         `json:"timestamp"`
}

// Publisher sends events to NATS. Until Connect succeeds every publish is a
// no-op, so callers never need to check whether NATS is configured.
type Publisher struct {
	prefix  string
	conn    *nats.Conn
	mu      sync.Mutex
	enabled bool
}

// NewPublisher creates a disabled publisher for the given subject prefix.
func NewPublisher(prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{prefix: prefix}
}

// Connect dials the NATS server and enables publishing. The connection
// reconnects on its own after it is established.
func (p *Publisher) Connect(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	opts := []nats.Option{
		nats.Name("avatarai"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected: %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Println("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		p.enabled = false
		return fmt.Errorf("connect to NATS: %w", err)
	}

	p.conn = conn
	p.enabled = true
	log.Printf("NATS connected at %s", url)
	return nil
}

// Subject returns the full subject for an event kind.
func (p *Publisher) Subject(kind string) string {
	return p.prefix + "." + kind
}

// Publish marshals data as JSON and publishes it on <prefix>.<kind>.
func (p *Publisher) Publish(kind string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled || p.conn == nil {
		return nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", kind, err)
	}
	if err := p.conn.Publish(p.Subject(kind), payload); err != nil {
		return fmt.Errorf("publish %s event: %w", kind, err)
	}
	return nil
}

// PublishGesture publishes a recognized gesture.
func (p *Publisher) PublishGesture(session, gesture string) error {
	return p.Publish("gesture", GestureEvent{
		Session:   session,
		Gesture:   gesture,
		Timestamp: time.Now(),
	})
}

// PublishCalibration publishes a calibration state change.
func (p *Publisher) PublishCalibration(session string, from, to calibration.State) error {
	return p.Publish("calibration", CalibrationEvent{
		Session:   session,
		From:      from,
		To:        to,
		Timestamp: time.Now(),
	})
}

// Enabled reports whether events are being sent.
func (p *Publisher) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Close drains the connection and disables publishing.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
		p.conn = nil
	}
	p.enabled = false
}
