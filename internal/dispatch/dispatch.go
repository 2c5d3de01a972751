// Package dispatch moves work hints between the orchestrator and stage
// workers. The channel is ephemeral and at-least-once: messages may be
// lost or duplicated freely because the archive store's compare-and-set
// transitions are the sole authority on who processes what.
package dispatch

import (
	"context"

	"github.com/google/uuid"

	"reelvault/internal/archive"
)

// Message is one work hint. It names an item and a stage and nothing else;
// all state lives in the store.
type Message struct {
	ID     string        `json:"id"`
	ItemID string        `json:"item_id"`
	Stage  archive.Stage `json:"stage"`
}

// NewMessage builds a hint for one item and stage.
func NewMessage(stage archive.Stage, itemID string) Message {
	return Message{ID: uuid.NewString(), ItemID: itemID, Stage: stage}
}

// Queue is the dispatch transport. Receive blocks until a message for the
// stage arrives or the context ends.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Receive(ctx context.Context, stage archive.Stage) (Message, error)
	Close() error
}
