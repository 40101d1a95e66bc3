// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package notify delivers operator notifications.

Publication events (issue published, submission failed, provisioning
degraded, monthly report) are rendered from text templates into a [Message]
and handed to a [Notifier]. Delivery failures are reported to the caller,
which logs them; no publication outcome depends on a notification.
*/
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Message is one operator notification.
type Message struct {
	// Event is the snake_case event name, also used in logs.
	Event   string
	Subject string
	Body    string
}

// Notifier sends messages to the operator.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// # Log Notifier

// LogNotifier writes messages to the structured log. It is used when no
// SMTP relay is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a [LogNotifier].
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send implements [Notifier].
func (n *LogNotifier) Send(ctx context.Context, message Message) error {
	n.logger.InfoContext(ctx, "operator_notification",
		slog.String("event", message.Event),
		slog.String("subject", message.Subject),
		slog.String("body", message.Body),
	)
	return nil
}

// # Memory Notifier

// MemoryNotifier keeps messages in memory for inspection.
type MemoryNotifier struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

// NewMemoryNotifier returns an empty [MemoryNotifier].
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

// FailWith makes every later Send return err after recording the message.
func (n *MemoryNotifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

// Send implements [Notifier].
func (n *MemoryNotifier) Send(_ context.Context, message Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return n.err
}

// Messages returns a copy of everything sent so far.
func (n *MemoryNotifier) Messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.messages...)
}

// Events returns the event names sent so far, in order.
func (n *MemoryNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	events := make([]string, 0, len(n.messages))
	for _, message := range n.messages {
		events = append(events, message.Event)
	}
	return events
}
