package upsert

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type avatar struct {
	Type        string
	ReferenceID string
	Name        string
}

func (a avatar) NaturalKey() Key {
	return Key{Type: a.Type, ReferenceID: a.ReferenceID}
}

func TestResolveIDs_Empty(t *testing.T) {
	repo := NewMemoryRepository[avatar]()
	ids, err := ResolveIDs[avatar](context.Background(), repo, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)
	assert.Zero(t, repo.Inserts)
	assert.Zero(t, repo.Lookups)
}

func TestResolveIDs_DistinctKeysInOrder(t *testing.T) {
	repo := NewMemoryRepository[avatar]()
	rows := []avatar{
		{Type: "user", ReferenceID: "u1"},
		{Type: "source", ReferenceID: "s1"},
		{Type: "user", ReferenceID: "u2"},
	}

	ids, err := ResolveIDs(context.Background(), repo, rows)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.NotEqual(t, ids[0], ids[1])
	assert.NotEqual(t, ids[1], ids[2])
	assert.NotEqual(t, ids[0], ids[2])

	// Order follows input, not storage.
	again, err := ResolveIDs(context.Background(), repo, []avatar{rows[2], rows[0], rows[1]})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ids[2], ids[0], ids[1]}, again)
}

func TestResolveIDs_ExistingRowIsReusedNotUpdated(t *testing.T) {
	repo := NewMemoryRepository[avatar]()
	first, err := ResolveIDs(context.Background(), repo, []avatar{{Type: "user", ReferenceID: "u1", Name: "old"}})
	require.NoError(t, err)

	second, err := ResolveIDs(context.Background(), repo, []avatar{{Type: "user", ReferenceID: "u1", Name: "new"}})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	row, ok := repo.Get(Key{Type: "user", ReferenceID: "u1"})
	require.True(t, ok)
	assert.Equal(t, "old", row.Name)
	assert.Equal(t, 1, repo.Len())
}

func TestResolveIDs_SameBatchDuplicates(t *testing.T) {
	repo := NewMemoryRepository[avatar]()
	rows := []avatar{
		{Type: "user", ReferenceID: "u1"},
		{Type: "user", ReferenceID: "u2"},
		{Type: "user", ReferenceID: "u1"},
	}

	ids, err := ResolveIDs(context.Background(), repo, rows)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, ids[0], ids[2])
	assert.NotEqual(t, ids[0], ids[1])
	assert.Equal(t, 2, repo.Inserts)
	assert.Zero(t, repo.Lookups)
}

func TestResolveIDs_MixedNewAndExisting(t *testing.T) {
	repo := NewMemoryRepository[avatar]()
	existing, err := ResolveIDs(context.Background(), repo, []avatar{{Type: "source", ReferenceID: "s1"}})
	require.NoError(t, err)

	ids, err := ResolveIDs(context.Background(), repo, []avatar{
		{Type: "user", ReferenceID: "u1"},
		{Type: "source", ReferenceID: "s1"},
	})
	require.NoError(t, err)
	assert.Equal(t, existing[0], ids[1])
	assert.NotEqual(t, existing[0], ids[0])
	assert.Equal(t, 1, repo.Lookups)
}

func TestResolveIDs_ConcurrentCallersConverge(t *testing.T) {
	repo := NewMemoryRepository[avatar]()
	rows := []avatar{{Type: "source", ReferenceID: "s1"}, {Type: "user", ReferenceID: "u1"}}

	const callers = 32
	results := make([][]uuid.UUID, callers)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			ids, err := ResolveIDs(context.Background(), repo, rows)
			results[i] = ids
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, ids := range results {
		assert.Equal(t, results[0], ids)
	}
	assert.Equal(t, 2, repo.Len())
}

// racingRepo simulates a concurrent writer that inserts every key between the
// conflicting insert and the lookup.
type racingRepo struct {
	mu       sync.Mutex
	ids      map[Key]uuid.UUID
	fail     error
	calls    []string
	inserted [][]Key
}

func (r *racingRepo) InsertIgnoringConflicts(_ context.Context, rows []avatar) (map[Key]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "insert")
	keys := make([]Key, len(rows))
	for i, row := range rows {
		keys[i] = row.NaturalKey()
		r.ids[row.NaturalKey()] = uuid.New()
	}
	r.inserted = append(r.inserted, keys)
	return map[Key]uuid.UUID{}, nil
}

func (r *racingRepo) FindIDs(_ context.Context, keys []Key) (map[Key]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "find")
	if r.fail != nil {
		return nil, r.fail
	}
	out := map[Key]uuid.UUID{}
	for _, k := range keys {
		if id, ok := r.ids[k]; ok {
			out[k] = id
		}
	}
	return out, nil
}

func TestResolveIDs_LostRaceFallsBackToLookup(t *testing.T) {
	repo := &racingRepo{ids: map[Key]uuid.UUID{}}
	ids, err := ResolveIDs[avatar](context.Background(), repo, []avatar{{Type: "user", ReferenceID: "u1"}})
	require.NoError(t, err)
	assert.Equal(t, repo.ids[Key{Type: "user", ReferenceID: "u1"}], ids[0])
	assert.Equal(t, []string{"insert", "find"}, repo.calls)
}

func TestResolveIDs_InsertsInKeyOrder(t *testing.T) {
	repo := &racingRepo{ids: map[Key]uuid.UUID{}}
	rows := []avatar{
		{Type: "user", ReferenceID: "u2"},
		{Type: "user", ReferenceID: "u1"},
		{Type: "source", ReferenceID: "s1"},
		{Type: "user", ReferenceID: "u2"},
	}

	ids, err := ResolveIDs(context.Background(), repo, rows)
	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)
	assert.Equal(t, []Key{
		{Type: "source", ReferenceID: "s1"},
		{Type: "user", ReferenceID: "u1"},
		{Type: "user", ReferenceID: "u2"},
	}, repo.inserted[0])

	// Ids still follow input order.
	assert.Equal(t, repo.ids[Key{Type: "user", ReferenceID: "u2"}], ids[0])
	assert.Equal(t, repo.ids[Key{Type: "user", ReferenceID: "u1"}], ids[1])
	assert.Equal(t, repo.ids[Key{Type: "source", ReferenceID: "s1"}], ids[2])
	assert.Equal(t, ids[0], ids[3])
}

func TestResolveIDs_LookupError(t *testing.T) {
	repo := &racingRepo{ids: map[Key]uuid.UUID{}, fail: errors.New("connection reset")}
	_, err := ResolveIDs[avatar](context.Background(), repo, []avatar{{Type: "user", ReferenceID: "u1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

type emptyRepo struct{}

func (emptyRepo) InsertIgnoringConflicts(context.Context, []avatar) (map[Key]uuid.UUID, error) {
	return nil, nil
}

func (emptyRepo) FindIDs(context.Context, []Key) (map[Key]uuid.UUID, error) {
	return nil, nil
}

func TestResolveIDs_UnresolvedKey(t *testing.T) {
	_, err := ResolveIDs[avatar](context.Background(), emptyRepo{}, []avatar{{Type: "user", ReferenceID: "ghost"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user:ghost")
}
