package market

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carrotlabs/go-carrot-market/constants"
	"github.com/carrotlabs/go-carrot-market/models"
)

// NotifyQueue is the bounded, newest-first feed of status messages.
// Pushing never blocks; each entry additionally arms a timer that drops
// the oldest surviving entry when it fires.
type NotifyQueue struct {
	mu      sync.Mutex
	entries []models.Notification
	limit   int
	ttl     time.Duration
}

func NewNotifyQueue() *NotifyQueue {
	return &NotifyQueue{
		limit: constants.NotificationLimit,
		ttl:   constants.NotificationTTLSeconds * time.Second,
	}
}

func (q *NotifyQueue) Push(message string) {
	q.mu.Lock()
	entry := models.Notification{
		ID:        uuid.NewString(),
		Message:   message,
		CreatedAt: time.Now(),
	}
	q.entries = append([]models.Notification{entry}, q.entries...)
	if len(q.entries) > q.limit {
		q.entries = q.entries[:q.limit]
	}
	q.mu.Unlock()

	time.AfterFunc(q.ttl, q.dropOldest)
}

func (q *NotifyQueue) dropOldest() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) > 0 {
		q.entries = q.entries[:len(q.entries)-1]
	}
}

// List returns a copy, newest first.
func (q *NotifyQueue) List() []models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.Notification, len(q.entries))
	copy(out, q.entries)
	return out
}
