package selection

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/hpungsan/kin/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Record(t *testing.T) {
	store := newSpyStore()
	rec := NewRecorder(store, nil)

	recorded, err := rec.Record(context.Background(), "A")
	require.NoError(t, err)
	require.True(t, recorded)
	require.Equal(t, int64(1), store.get("A").Engaged)
	require.Equal(t, int64(0), store.get("A").Proposed)
}

func TestRecorder_EmptyIDIsNoop(t *testing.T) {
	store := newSpyStore()
	rec := NewRecorder(store, nil)

	recorded, err := rec.Record(context.Background(), "")
	require.NoError(t, err)
	require.False(t, recorded)
	require.Empty(t, store.calls)
}

func TestRecorder_StorageFailure(t *testing.T) {
	store := newSpyStore()
	store.incErr = stderrors.New("disk full")
	rec := NewRecorder(store, nil)

	recorded, err := rec.Record(context.Background(), "A")
	require.False(t, recorded)
	require.True(t, errors.Is(err, errors.ErrStorageFailure), "got %v", err)
}
