package market

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyQueueBound(t *testing.T) {
	q := NewNotifyQueue()
	for i := 0; i < 50; i++ {
		q.Push(fmt.Sprintf("message %d", i))
	}

	entries := q.List()
	require.Len(t, entries, 5)

	// newest first
	assert.Equal(t, "message 49", entries[0].Message)
	assert.Equal(t, "message 45", entries[4].Message)
}

func TestNotifyQueueExpiry(t *testing.T) {
	q := &NotifyQueue{limit: 5, ttl: 20 * time.Millisecond}
	q.Push("first")
	q.Push("second")

	require.Len(t, q.List(), 2)

	assert.Eventually(t, func() bool {
		return len(q.List()) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestNotifyQueueExpiryDropsOldest(t *testing.T) {
	q := &NotifyQueue{limit: 5, ttl: 30 * time.Millisecond}
	q.Push("old")
	time.Sleep(15 * time.Millisecond)
	q.Push("new")

	// the old entry's timer fires first and removes the oldest survivor
	assert.Eventually(t, func() bool {
		entries := q.List()
		return len(entries) == 1 && entries[0].Message == "new"
	}, time.Second, 5*time.Millisecond)
}
