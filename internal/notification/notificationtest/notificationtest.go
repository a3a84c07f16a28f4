// Package notificationtest provides in-memory notification collaborators for
// service tests.
package notificationtest

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/dormitory/internal/notification/domain"
)

// Recorder is a domain.Sender that keeps every message it is given.
type Recorder struct {
	mu   sync.Mutex
	sent []domain.Message
	// Err, when set, is returned from Send and the message is not recorded.
	Err error
}

func (r *Recorder) Send(_ context.Context, _ domain.Channel, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *Recorder) Messages() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Message(nil), r.sent...)
}

// Count returns how many messages of event were sent.
func (r *Recorder) Count(event domain.EventType) int {
	n := 0
	for _, m := range r.Messages() {
		if m.Event == event {
			n++
		}
	}
	return n
}

func (r *Recorder) SetErr(err error) {
	r.mu.Lock()
	r.Err = err
	r.mu.Unlock()
}

// Resolver serves fixed channels keyed by dormitory.
type Resolver map[snowflake.ID]*domain.Channel

func (r Resolver) ResolveChannel(_ context.Context, dormitoryID snowflake.ID) (*domain.Channel, error) {
	return r[dormitoryID], nil
}

// AllEvents returns an active webhook channel with every event switched on.
func AllEvents(dormitoryID snowflake.ID) *domain.Channel {
	events := make(map[string]bool, len(domain.AllEvents))
	for _, ev := range domain.AllEvents {
		events[string(ev)] = true
	}
	return &domain.Channel{
		DormitoryID: dormitoryID,
		Kind:        domain.ChannelWebhook,
		Destination: "https://hooks.example.test/dorm",
		Active:      true,
		Events:      events,
	}
}
