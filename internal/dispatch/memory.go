package dispatch

import (
	"context"
	"errors"
	"sync"

	"reelvault/internal/archive"
)

// MemoryQueue is an in-process Queue for single-machine runs and tests.
// Semantics match the Redis transport: ephemeral, no dedup, messages
// vanish when the process exits.
type MemoryQueue struct {
	mu     sync.Mutex
	chans  map[archive.Stage]chan Message
	closed bool
}

const memoryQueueDepth = 1024

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{chans: make(map[archive.Stage]chan Message)}
}

func (q *MemoryQueue) channel(stage archive.Stage) chan Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.chans[stage]
	if !ok {
		ch = make(chan Message, memoryQueueDepth)
		q.chans[stage] = ch
	}
	return ch
}

// Publish drops the message when the stage buffer is full; a later
// eligibility scan re-queues the item.
func (q *MemoryQueue) Publish(ctx context.Context, msg Message) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.New("dispatch queue closed")
	}
	q.mu.Unlock()

	select {
	case q.channel(msg.Stage) <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (q *MemoryQueue) Receive(ctx context.Context, stage archive.Stage) (Message, error) {
	select {
	case msg := <-q.channel(stage):
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}
