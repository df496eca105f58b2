package insights

import (
	"context"
	"log/slog"

	"gafi/internal/extract"
	"gafi/internal/llm"
)

// DegradedRecovery turns completion failures into an empty-array reply.
// The empty reply flows through extraction and validation, which routes
// the caller onto the deterministic fallback instead of surfacing a
// transport error.
type DegradedRecovery struct{}

var _ llm.ErrorRecovery = DegradedRecovery{}

func (DegradedRecovery) HandleError(ctx context.Context, kind string, failure llm.Failure) llm.Recovery {
	slog.InfoContext(ctx, "degrading completion failure to empty reply",
		"kind", kind,
		"error", failure.Err,
		"elapsed_ms", failure.Elapsed.Milliseconds(),
		"messages", failure.MessageCount)
	return llm.Recovery{
		Handled:  true,
		Type:     "degraded_empty_reply",
		Response: extract.EmptyArray,
	}
}
