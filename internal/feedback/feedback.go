// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feedback delivers user feedback messages to a SQLite table and a
// Telegram chat. Delivery is asynchronous and independent of conversions:
// sink failures are logged and never reach the caller.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxMessageRunes bounds a feedback message; Telegram rejects texts over 4096.
const MaxMessageRunes = 3900

// AnonymousName is used when the sender gives no name.
const AnonymousName = "anonymous"

var (
	// ErrEmptyMessage is returned by Submit for blank messages.
	ErrEmptyMessage = errors.New("feedback message is empty")

	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("feedback dispatcher is closed")

	// ErrQueueFull is returned by Submit when deliveries are backed up.
	ErrQueueFull = errors.New("feedback queue is full")
)

// Entry is one feedback message.
type Entry struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Message   string    `json:"message" yaml:"message"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewEntry validates and normalizes a message.
func NewEntry(name, message string) (Entry, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Entry{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > MaxMessageRunes {
		message = string([]rune(message)[:MaxMessageRunes]) + "…"
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = AnonymousName
	}
	return Entry{
		ID:        uuid.NewString(),
		Name:      name,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Sink is a delivery target.
type Sink interface {
	Name() string
	Send(ctx context.Context, e Entry) error
}

// Dispatcher fans entries out to every sink from a background goroutine.
type Dispatcher struct {
	sinks   []Sink
	log     zerolog.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan Entry
	done   chan struct{}
}

// DefaultQueueSize is the number of undelivered entries a Dispatcher holds.
const DefaultQueueSize = 64

// SendTimeout bounds one delivery to one sink.
var SendTimeout = 15 * time.Second

// NewDispatcher starts a Dispatcher over sinks.
func NewDispatcher(log zerolog.Logger, sinks ...Sink) *Dispatcher {
	d := &Dispatcher{
		sinks:   sinks,
		log:     log,
		timeout: SendTimeout,
		queue:   make(chan Entry, DefaultQueueSize),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Sinks returns the names of the configured sinks.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// Submit queues a message for delivery and returns immediately.
func (d *Dispatcher) Submit(name, message string) (Entry, error) {
	e, err := NewEntry(name, message)
	if err != nil {
		return Entry{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Entry{}, ErrClosed
	}
	select {
	case d.queue <- e:
		return e, nil
	default:
		d.log.Warn().Str("feedback_id", e.ID).Msg("feedback queue full; dropping message")
		return Entry{}, ErrQueueFull
	}
}

// Close stops accepting entries and waits for queued ones to be delivered,
// or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for feedback delivery: %w", ctx.Err())
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.queue {
		for _, s := range d.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			err := s.Send(ctx, e)
			cancel()

			ev := d.log.Debug()
			if err != nil {
				ev = d.log.Warn().Err(err)
			}
			ev.Str("sink", s.Name()).Str("feedback_id", e.ID).Msg("feedback delivery")
		}
	}
}
