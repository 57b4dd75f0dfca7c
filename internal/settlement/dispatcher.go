package settlement

import (
	"context"
	"sync"
)

// Result carries the final score of a finished event.
type Result struct {
	HomeScore int `json:"homeScore"`
	AwayScore int `json:"awayScore"`
}

// Message is the settlement notification body. Delivery is at-least-once;
// the downstream consumer dedupes by EventID.
type Message struct {
	Type    string `json:"type"`
	EventID string `json:"eventId"`
	Result  Result `json:"result"`
}

const messageTypeEventFinished = "event_finished"

// Dispatcher notifies the settlement consumer that an event finished and is
// ready to settle.
type Dispatcher interface {
	DispatchEventFinished(ctx context.Context, eventID string, homeScore, awayScore int) error
	Close() error
}

// MemoryDispatcher records messages in memory. Used in tests and when no
// queue is configured.
type MemoryDispatcher struct {
	mu       sync.Mutex
	messages []Message
}

func NewMemoryDispatcher() *MemoryDispatcher { return &MemoryDispatcher{} }

func (d *MemoryDispatcher) DispatchEventFinished(_ context.Context, eventID string, homeScore, awayScore int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, Message{
		Type:    messageTypeEventFinished,
		EventID: eventID,
		Result:  Result{HomeScore: homeScore, AwayScore: awayScore},
	})
	return nil
}

// Messages returns a copy of everything dispatched so far.
func (d *MemoryDispatcher) Messages() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Message, len(d.messages))
	copy(out, d.messages)
	return out
}

func (d *MemoryDispatcher) Close() error { return nil }
