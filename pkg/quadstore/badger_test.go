package quadstore

import (
	"context"
	"iter"
	"slices"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (Store, string) {
	t.Helper()
	path := t.TempDir()
	store, err := Open(context.Background(), OpenOptions{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func deltaOf(changes ...Change) iter.Seq2[Change, error] {
	return func(yield func(Change, error) bool) {
		for _, c := range changes {
			if !yield(c, nil) {
				return
			}
		}
	}
}

func collect(t *testing.T, seq iter.Seq2[Change, error]) []Change {
	t.Helper()
	var out []Change
	for c, err := range seq {
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

var (
	quadA = Quad{Subject: "<http://example.org/s1>", Predicate: "<http://example.org/p>", Object: "<http://example.org/o1>"}
	quadB = Quad{Subject: "<http://example.org/s2>", Predicate: "<http://example.org/p>", Object: `"two"@en`}
	quadC = Quad{Subject: "_:b0", Predicate: "<http://example.org/p>", Object: "<http://example.org/o3>", Graph: "<http://example.org/g>"}
)

func TestAppend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	changes := []Change{
		{Quad: quadB, Type: Deletion},
		{Quad: quadA, Type: Addition},
		{Quad: quadC, Type: Addition},
	}
	n, err := store.Append(ctx, 1, deltaOf(changes...))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, changes, collect(t, store.Changes(ctx, 1)))

	info, err := store.Version(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.Version)
	assert.Equal(t, VersionStats{Added: 2, Deleted: 1}, info.Stats)
	assert.Len(t, info.Digest, 40)
	assert.False(t, info.Timestamp.IsZero())
}

func TestAppend_EmptyDeltaCommitsEmptyVersion(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	n, err := store.Append(ctx, 0, deltaOf())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), latest.Version)
	assert.Empty(t, collect(t, store.Changes(ctx, 0)))
}

func TestAppend_SequenceRules(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	_, err := store.Append(ctx, 5, deltaOf(Change{Quad: quadA, Type: Addition}))
	require.NoError(t, err)

	_, err = store.Append(ctx, 5, deltaOf(Change{Quad: quadB, Type: Addition}))
	assert.True(t, errors.Is(err, ErrVersionExists), "got %v", err)

	_, err = store.Append(ctx, 3, deltaOf(Change{Quad: quadB, Type: Addition}))
	assert.True(t, errors.Is(err, ErrVersionOutOfSequence), "got %v", err)

	// Gaps are allowed.
	_, err = store.Append(ctx, 9, deltaOf(Change{Quad: quadB, Type: Deletion}))
	require.NoError(t, err)

	log, err := store.Log(ctx, 0)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, uint64(9), log[0].Version)
	assert.Equal(t, uint64(5), log[1].Version)

	limited, err := store.Log(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, uint64(9), limited[0].Version)
}

func TestAppend_FailingDeltaCommitsNothing(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)
	boom := errors.New("malformed line")

	failing := func(yield func(Change, error) bool) {
		if !yield(Change{Quad: quadA, Type: Addition}, nil) {
			return
		}
		yield(Change{}, boom)
	}
	n, err := store.Append(ctx, 2, failing)
	assert.Equal(t, 0, n)
	assert.True(t, errors.Is(err, boom))

	_, err = store.Version(ctx, 2)
	assert.True(t, errors.Is(err, ErrVersionNotFound))

	// The version is still free, and no stale entry leaks into it.
	n, err = store.Append(ctx, 2, deltaOf(Change{Quad: quadB, Type: Deletion}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []Change{{Quad: quadB, Type: Deletion}}, collect(t, store.Changes(ctx, 2)))
}

func TestAppend_RejectsInvalidChangeType(t *testing.T) {
	store, _ := openTestStore(t)
	_, err := store.Append(context.Background(), 1, deltaOf(Change{Quad: quadA}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid change type")
}

func TestAppend_CancelledContext(t *testing.T) {
	store, _ := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Append(ctx, 1, deltaOf(Change{Quad: quadA, Type: Addition}))
	assert.True(t, errors.Is(err, context.Canceled))

	_, err = store.Latest(context.Background())
	assert.True(t, errors.Is(err, ErrVersionNotFound))
}

func TestDigest_DependsOnContentAndOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	_, err := store.Append(ctx, 1, deltaOf(Change{Quad: quadA, Type: Addition}, Change{Quad: quadB, Type: Addition}))
	require.NoError(t, err)
	_, err = store.Append(ctx, 2, deltaOf(Change{Quad: quadB, Type: Addition}, Change{Quad: quadA, Type: Addition}))
	require.NoError(t, err)
	_, err = store.Append(ctx, 3, deltaOf(Change{Quad: quadA, Type: Addition}, Change{Quad: quadB, Type: Addition}))
	require.NoError(t, err)

	v1, _ := store.Version(ctx, 1)
	v2, _ := store.Version(ctx, 2)
	v3, _ := store.Version(ctx, 3)
	assert.NotEqual(t, v1.Digest, v2.Digest)
	assert.Equal(t, v1.Digest, v3.Digest)
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir()

	rw, err := Open(ctx, OpenOptions{Path: path})
	require.NoError(t, err)
	_, err = rw.Append(ctx, 1, deltaOf(Change{Quad: quadA, Type: Addition}))
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	ro, err := Open(ctx, OpenOptions{Path: path, ReadOnly: true})
	require.NoError(t, err)
	defer ro.Close()

	_, err = ro.Append(ctx, 2, deltaOf(Change{Quad: quadB, Type: Addition}))
	assert.True(t, errors.Is(err, ErrReadOnly))

	changes := collect(t, ro.Changes(ctx, 1))
	assert.Equal(t, []Change{{Quad: quadA, Type: Addition}}, changes)
}

func TestOpen_LockedStore(t *testing.T) {
	_, path := openTestStore(t)

	_, err := Open(context.Background(), OpenOptions{Path: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestClose_Idempotent(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, OpenOptions{Path: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.Append(ctx, 1, deltaOf())
	assert.True(t, errors.Is(err, ErrClosed))
	_, err = store.Latest(ctx)
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestChanges_UnknownVersion(t *testing.T) {
	store, _ := openTestStore(t)
	for _, err := range store.Changes(context.Background(), 42) {
		assert.True(t, errors.Is(err, ErrVersionNotFound))
	}
}

func TestChanges_EarlyBreak(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)
	_, err := store.Append(ctx, 1, deltaOf(
		Change{Quad: quadA, Type: Addition},
		Change{Quad: quadB, Type: Addition},
		Change{Quad: quadC, Type: Addition},
	))
	require.NoError(t, err)

	var seen []Quad
	for c, err := range store.Changes(ctx, 1) {
		require.NoError(t, err)
		seen = append(seen, c.Quad)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []Quad{quadA, quadB}, seen)
}

func TestChangeType(t *testing.T) {
	assert.Equal(t, "addition", Addition.String())
	assert.Equal(t, "deletion", Deletion.String())
	assert.Equal(t, "+", Addition.Symbol())
	assert.Equal(t, "-", Deletion.Symbol())
	assert.False(t, ChangeType(0).Valid())

	var ct ChangeType
	require.NoError(t, ct.UnmarshalText([]byte("deletion")))
	assert.Equal(t, Deletion, ct)
	assert.Error(t, ct.UnmarshalText([]byte("both")))

	_, err := ChangeType(7).MarshalText()
	assert.Error(t, err)
}

func TestQuadString(t *testing.T) {
	assert.Equal(t, `<http://example.org/s2> <http://example.org/p> "two"@en .`, quadB.String())
	assert.Equal(t, "_:b0 <http://example.org/p> <http://example.org/o3> <http://example.org/g> .", quadC.String())
}

func TestKeysSortByVersion(t *testing.T) {
	keys := [][]byte{versionKey(256), versionKey(1), versionKey(255)}
	slices.SortFunc(keys, func(a, b []byte) int { return slices.Compare(a, b) })
	assert.Equal(t, uint64(1), versionFromKey(keys[0]))
	assert.Equal(t, uint64(255), versionFromKey(keys[1]))
	assert.Equal(t, uint64(256), versionFromKey(keys[2]))
}
