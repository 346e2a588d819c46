package db

import (
	"context"
	"database/sql"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/hpungsan/kin/internal/contact"
	"github.com/hpungsan/kin/internal/errors"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetCounters_UnknownIsZero(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	c, err := GetCounters(ctx, db, "never-touched")
	require.NoError(t, err)
	require.Equal(t, contact.Counters{ContactID: "never-touched"}, c)

	// Reading must not create the record.
	exists, err := CounterExists(ctx, db, "never-touched")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestEnsureCounter_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, EnsureCounter(ctx, db, "a"))
	require.NoError(t, IncrementProposed(ctx, db, "a"))
	require.NoError(t, EnsureCounter(ctx, db, "a"))

	c, err := GetCounters(ctx, db, "a")
	require.NoError(t, err)
	require.Equal(t, int64(1), c.Proposed)

	n, err := CountCounters(ctx, db)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestIncrementProposed_Sequence(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, IncrementProposed(ctx, db, "x"))
	c, err := GetCounters(ctx, db, "x")
	require.NoError(t, err)
	require.Equal(t, int64(1), c.Proposed)
	require.Equal(t, int64(0), c.Engaged)

	require.NoError(t, IncrementProposed(ctx, db, "x"))
	c, err = GetCounters(ctx, db, "x")
	require.NoError(t, err)
	require.Equal(t, int64(2), c.Proposed)
	require.Equal(t, int64(0), c.Engaged)
}

func TestIncrementEngaged_WithoutProposal(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, IncrementEngaged(ctx, db, "y"))
	require.NoError(t, IncrementEngaged(ctx, db, "y"))

	c, err := GetCounters(ctx, db, "y")
	require.NoError(t, err)
	require.Equal(t, int64(0), c.Proposed)
	require.Equal(t, int64(2), c.Engaged)
}

func TestEmptyContactID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for name, fn := range map[string]func() error{
		"ensure":   func() error { return EnsureCounter(ctx, db, "") },
		"proposed": func() error { return IncrementProposed(ctx, db, "") },
		"engaged":  func() error { return IncrementEngaged(ctx, db, "") },
		"get":      func() error { _, err := GetCounters(ctx, db, ""); return err },
	} {
		t.Run(name, func(t *testing.T) {
			require.True(t, errors.Is(fn(), errors.ErrInvalidRequest))
		})
	}
}

func TestClosedDB_StorageFailure(t *testing.T) {
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	db.Close()

	err = IncrementProposed(context.Background(), db, "a")
	require.True(t, errors.Is(err, errors.ErrStorageFailure), "got %v", err)

	_, err = GetCounters(context.Background(), db, "a")
	require.True(t, errors.Is(err, errors.ErrStorageFailure), "got %v", err)
}

func TestConcurrentIncrements_NoLostUpdates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	const engagedN, proposedM = 40, 60
	ops := make([]func() error, 0, engagedN+proposedM)
	for i := 0; i < engagedN; i++ {
		ops = append(ops, func() error { return IncrementEngaged(ctx, db, "shared") })
	}
	for i := 0; i < proposedM; i++ {
		ops = append(ops, func() error { return IncrementProposed(ctx, db, "shared") })
	}
	rand.Shuffle(len(ops), func(i, j int) { ops[i], ops[j] = ops[j], ops[i] })

	var wg sync.WaitGroup
	errs := make(chan error, len(ops))
	for _, op := range ops {
		wg.Add(1)
		go func(op func() error) {
			defer wg.Done()
			if err := op(); err != nil {
				errs <- err
			}
		}(op)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("increment failed: %v", err)
	}

	c, err := GetCounters(ctx, db, "shared")
	require.NoError(t, err)
	require.Equal(t, int64(proposedM), c.Proposed)
	require.Equal(t, int64(engagedN), c.Engaged)
}

func TestConcurrentIncrements_DistinctIDs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	ids := []string{"a", "b", "c", "d"}

	var wg sync.WaitGroup
	for _, id := range ids {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if err := IncrementProposed(ctx, db, id); err != nil {
					t.Errorf("IncrementProposed(%s): %v", id, err)
				}
			}(id)
		}
	}
	wg.Wait()

	for _, id := range ids {
		c, err := GetCounters(ctx, db, id)
		require.NoError(t, err)
		require.Equal(t, int64(10), c.Proposed, id)
	}
}

func TestSetAndAddCounters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, SetCounters(ctx, db, contact.Counters{ContactID: "a", Proposed: 5, Engaged: 2}))
	require.NoError(t, SetCounters(ctx, db, contact.Counters{ContactID: "a", Proposed: 7, Engaged: 3}))
	c, err := GetCounters(ctx, db, "a")
	require.NoError(t, err)
	require.Equal(t, contact.Counters{ContactID: "a", Proposed: 7, Engaged: 3}, c)

	require.NoError(t, AddCounters(ctx, db, contact.Counters{ContactID: "a", Proposed: 1, Engaged: 1}))
	require.NoError(t, AddCounters(ctx, db, contact.Counters{ContactID: "b", Proposed: 4}))
	c, err = GetCounters(ctx, db, "a")
	require.NoError(t, err)
	require.Equal(t, int64(8), c.Proposed)
	require.Equal(t, int64(4), c.Engaged)

	c, err = GetCounters(ctx, db, "b")
	require.NoError(t, err)
	require.Equal(t, int64(4), c.Proposed)
}

func TestListCounters_OrderAndPaging(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, c := range []contact.Counters{
		{ContactID: "low", Proposed: 9, Engaged: 0},
		{ContactID: "top", Proposed: 3, Engaged: 3},
		{ContactID: "mid-b", Proposed: 5, Engaged: 1},
		{ContactID: "mid-a", Proposed: 8, Engaged: 1},
	} {
		require.NoError(t, SetCounters(ctx, db, c))
	}

	page, err := ListCounters(ctx, db, 10, 0)
	require.NoError(t, err)
	ids := make([]string, len(page))
	for i, c := range page {
		ids[i] = c.ContactID
	}
	require.Equal(t, []string{"top", "mid-a", "mid-b", "low"}, ids)

	page, err = ListCounters(ctx, db, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "mid-b", page[0].ContactID)

	n, err := CountCounters(ctx, db)
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestStreamForExport(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, IncrementProposed(ctx, db, "b"))
	require.NoError(t, IncrementEngaged(ctx, db, "a"))

	var got []contact.Counters
	require.NoError(t, StreamForExport(ctx, db, func(c contact.Counters) error {
		got = append(got, c)
		return nil
	}))
	require.Equal(t, []contact.Counters{
		{ContactID: "a", Engaged: 1},
		{ContactID: "b", Proposed: 1},
	}, got)
}

func TestStore(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	p, e, err := store.GetCounters(ctx, "z")
	require.NoError(t, err)
	require.Zero(t, p)
	require.Zero(t, e)

	require.NoError(t, store.EnsureExists(ctx, "z"))
	require.NoError(t, store.IncrementProposed(ctx, "z"))
	require.NoError(t, store.IncrementEngaged(ctx, "z"))

	p, e, err = store.GetCounters(ctx, "z")
	require.NoError(t, err)
	require.Equal(t, int64(1), p)
	require.Equal(t, int64(1), e)
}
