package retry

import (
	"context"
	"fmt"
	"testing"
)

// BenchmarkBackoff_ImmediateSuccess measures overhead when the first
// attempt succeeds (the common case for a file reread).
func BenchmarkBackoff_ImmediateSuccess(b *testing.B) {
	bo := FileBackoff()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bo.Do(ctx, func(_ int) error { return nil }) //nolint:errcheck
	}
}

// BenchmarkBackoff_PermanentError measures early-exit overhead.
func BenchmarkBackoff_PermanentError(b *testing.B) {
	bo := FileBackoff()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bo.Do(ctx, func(_ int) error { //nolint:errcheck
			return Permanent(fmt.Errorf("fatal"))
		})
	}
}
