package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilotpal/bitforge/pkg/logger"
)

func testIndex(t *testing.T) *Index {
	t.Helper()

	idx, err := New(context.Background(), &Config{
		DataDir: t.TempDir(),
		Logger:  logger.NewNop(),
	})
	require.NoError(t, err)
	return idx
}

func TestNewRejectsMissingConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)

	_, err = New(context.Background(), &Config{})
	require.Error(t, err)
}

func TestPutGetDelete(t *testing.T) {
	idx := testIndex(t)

	_, ok := idx.Get("missing")
	require.False(t, ok)

	ptr := &RecordPointer{Key: "k1", SegmentID: 1, Offset: 0, EntrySize: 10}
	require.NoError(t, idx.Put("k1", ptr))

	got, ok := idx.Get("k1")
	require.True(t, ok)
	require.Equal(t, ptr, got)
	require.Equal(t, 1, idx.Len())

	deleted, err := idx.Delete("k1")
	require.NoError(t, err)
	require.True(t, deleted)
	require.Equal(t, 0, idx.Len())

	deleted, err = idx.Delete("k1")
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestPutOverwritesExisting(t *testing.T) {
	idx := testIndex(t)

	require.NoError(t, idx.Put("k1", &RecordPointer{Key: "k1", SegmentID: 1, Offset: 0}))
	require.NoError(t, idx.Put("k1", &RecordPointer{Key: "k1", SegmentID: 2, Offset: 64}))

	got, ok := idx.Get("k1")
	require.True(t, ok)
	require.EqualValues(t, 2, got.SegmentID)
	require.EqualValues(t, 64, got.Offset)
	require.Equal(t, 1, idx.Len())
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	idx := testIndex(t)
	require.NoError(t, idx.Put("k1", &RecordPointer{Key: "k1", SegmentID: 1}))

	snap := idx.Snapshot()
	require.Len(t, snap, 1)

	require.NoError(t, idx.Put("k2", &RecordPointer{Key: "k2", SegmentID: 1}))
	require.Len(t, snap, 1, "snapshot must not see later mutations")
}

func TestRangeStopsEarly(t *testing.T) {
	idx := testIndex(t)
	require.NoError(t, idx.Put("k1", &RecordPointer{Key: "k1"}))
	require.NoError(t, idx.Put("k2", &RecordPointer{Key: "k2"}))

	seen := 0
	idx.Range(func(key string, ptr *RecordPointer) bool {
		seen++
		return false
	})
	require.Equal(t, 1, seen)
}

func TestCloseIsIdempotentFailure(t *testing.T) {
	idx := testIndex(t)
	require.NoError(t, idx.Close())
	require.ErrorIs(t, idx.Close(), ErrIndexClosed)
}

func TestOperationsAfterCloseFail(t *testing.T) {
	idx := testIndex(t)
	require.NoError(t, idx.Put("k1", &RecordPointer{Key: "k1"}))
	require.NoError(t, idx.Close())

	require.ErrorIs(t, idx.Put("k2", &RecordPointer{Key: "k2"}), ErrIndexClosed)

	_, ok := idx.Get("k1")
	require.False(t, ok)

	_, err := idx.Delete("k1")
	require.ErrorIs(t, err, ErrIndexClosed)
}
