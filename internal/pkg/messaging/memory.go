package messaging

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Published is a message captured by Memory.
type Published struct {
	Destination string
	Message     OutgoingMessage
}

// Memory is an in-process Publisher that records every message. It never
// delivers anything and is meant for local runs and tests.
type Memory struct {
	mu       sync.Mutex
	messages []Published
	closed   bool
	// FailWith, when set, is returned by Publish instead of recording.
	FailWith error
}

// NewMemory returns an empty Memory publisher.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := validate(ctx, destination); err != nil {
		return PublishResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return PublishResult{}, ErrClosed
	}
	if m.FailWith != nil {
		return PublishResult{}, m.FailWith
	}

	m.messages = append(m.messages, Published{Destination: destination, Message: msg})

	return PublishResult{
		MessageID: strconv.Itoa(len(m.messages)),
		Topic:     destination,
		Timestamp: time.Now(),
	}, nil
}

// Messages returns a copy of everything published so far.
func (m *Memory) Messages() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Published{}, m.messages...)
}

// SetFailure makes subsequent publishes fail with err (nil restores success).
func (m *Memory) SetFailure(err error) {
	m.mu.Lock()
	m.FailWith = err
	m.mu.Unlock()
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
