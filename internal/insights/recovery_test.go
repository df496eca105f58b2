package insights

import (
	"context"
	"testing"
	"time"

	"gafi/internal/llm"
)

func TestDegradedRecoveryReturnsEmptyReply(t *testing.T) {
	rec := DegradedRecovery{}.HandleError(context.Background(), "completion_failure", llm.Failure{
		Err:          "connection refused",
		Elapsed:      250 * time.Millisecond,
		MessageCount: 2,
	})
	if !rec.Handled {
		t.Fatal("recovery should always handle completion failures")
	}
	if rec.Response != "[]" {
		t.Errorf("degraded response = %q, want empty array", rec.Response)
	}
}
