package stage

import (
	"context"

	"reelvault/internal/archive"
)

// Handler describes the contract the worker pool needs from each
// enrichment stage. Applicable is consulted before claiming an item;
// Process must persist its own result through the store's guarded writes.
type Handler interface {
	Applicable(*archive.Item) bool
	Process(context.Context, *archive.Item) error
	HealthCheck(context.Context) Health
}
