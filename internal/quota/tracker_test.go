package quota

import (
	"sync"
	"testing"

	"invoicedrop/pkg/faults"

	"github.com/stretchr/testify/require"
)

func testCeilings() Ceilings {
	return Ceilings{Photos: 3, Videos: 2, Documents: 1}
}

func TestIncrementUpToCeiling(t *testing.T) {
	tr := NewTracker(testCeilings())
	tr.Init("B-1")

	for want := uint(1); want <= 3; want++ {
		got, err := tr.Increment("B-1", CategoryPhoto)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	// The call that would exceed the ceiling fails and leaves the count alone.
	got, err := tr.Increment("B-1", CategoryPhoto)
	require.ErrorIs(t, err, faults.ErrQuotaExceeded)
	require.Equal(t, uint(3), got)
	require.Equal(t, uint(3), tr.Snapshot("B-1").Photos)
}

func TestCategoriesAreIndependent(t *testing.T) {
	tr := NewTracker(testCeilings())
	tr.Init("B-1")

	_, err := tr.Increment("B-1", CategoryDocument)
	require.NoError(t, err)
	_, err = tr.Increment("B-1", CategoryDocument)
	require.ErrorIs(t, err, faults.ErrQuotaExceeded)

	counts := tr.Snapshot("B-1")
	require.Equal(t, uint(0), counts.Photos)
	require.Equal(t, uint(0), counts.Videos)
	require.Equal(t, uint(1), counts.Documents)
}

func TestRemainingIsNonNegative(t *testing.T) {
	tr := NewTracker(testCeilings())
	tr.Init("B-1")

	require.Equal(t, uint(2), tr.Remaining("B-1", CategoryVideo))
	_, _ = tr.Increment("B-1", CategoryVideo)
	_, _ = tr.Increment("B-1", CategoryVideo)
	require.Equal(t, uint(0), tr.Remaining("B-1", CategoryVideo))

	_, err := tr.Increment("B-1", CategoryVideo)
	require.Error(t, err)
	require.Equal(t, uint(0), tr.Remaining("B-1", CategoryVideo))
}

func TestDropReturnsFinalCountsAndForgets(t *testing.T) {
	tr := NewTracker(testCeilings())
	tr.Init("B-1")
	_, _ = tr.Increment("B-1", CategoryPhoto)
	_, _ = tr.Increment("B-1", CategoryVideo)

	counts := tr.Drop("B-1")
	require.Equal(t, uint(1), counts.Photos)
	require.Equal(t, uint(1), counts.Videos)
	require.Equal(t, uint(2), counts.Total())

	require.Equal(t, Counts{}, tr.Snapshot("B-1"))
	require.Equal(t, uint(3), tr.Remaining("B-1", CategoryPhoto))
}

func TestConcurrentIncrementsNeverExceedCeiling(t *testing.T) {
	tr := NewTracker(Ceilings{Photos: 25, Videos: 25, Documents: 25})
	tr.Init("B-1")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tr.Increment("B-1", CategoryPhoto)
		}()
	}
	wg.Wait()

	require.Equal(t, uint(25), tr.Snapshot("B-1").Photos)
}
