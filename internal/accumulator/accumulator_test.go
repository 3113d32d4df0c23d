package accumulator

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccumulatorPreservesOrder(t *testing.T) {
	t.Parallel()

	acc := New()
	require.Empty(t, acc.Snapshot())

	acc.Add("http://a.example/")
	acc.Add("http://b.example/")
	require.Equal(t, []string{"http://a.example/", "http://b.example/"}, acc.Snapshot())
	require.Equal(t, 2, acc.Len())
}

func TestAccumulatorSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	acc := New()
	acc.Add("http://a.example/")
	snap := acc.Snapshot()
	snap[0] = "mutated"
	require.Equal(t, []string{"http://a.example/"}, acc.Snapshot())
}

func TestAccumulatorConcurrentAdd(t *testing.T) {
	t.Parallel()

	const workers, perWorker = 8, 250
	acc := New()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				acc.Add(fmt.Sprintf("http://example.com/%d/%d", w, i))
			}
		}(w)
	}
	wg.Wait()

	got := acc.Snapshot()
	require.Len(t, got, workers*perWorker)
	seen := make(map[string]struct{}, len(got))
	for _, u := range got {
		seen[u] = struct{}{}
	}
	require.Len(t, seen, workers*perWorker)
}
