// Package upsert resolves batches of shared rows to stable ids by natural key.
//
// Resolution is insert-then-select: rows are inserted with conflicts ignored,
// and any row that did not report an id (it already existed, a concurrent
// writer inserted it first, or it repeats a key of the same batch) is looked
// up by its natural key. Storage uniqueness on the natural key is the only
// coordination between concurrent callers.
package upsert

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Key is the natural key of a shared row.
type Key struct {
	Type        string
	ReferenceID string
}

func (k Key) String() string {
	return k.Type + ":" + k.ReferenceID
}

// Keyed is implemented by rows that carry a natural key.
type Keyed interface {
	NaturalKey() Key
}

// Repository stores rows of one kind.
type Repository[R Keyed] interface {
	// InsertIgnoringConflicts inserts rows, skipping those whose natural key
	// already exists, and returns the ids of the rows it inserted.
	InsertIgnoringConflicts(ctx context.Context, rows []R) (map[Key]uuid.UUID, error)

	// FindIDs returns the ids of existing rows by natural key.
	FindIDs(ctx context.Context, keys []Key) (map[Key]uuid.UUID, error)
}

// ResolveIDs returns one id per row, in input order. Rows sharing a natural
// key resolve to the same id. Existing rows are reused and never updated.
func ResolveIDs[R Keyed](ctx context.Context, repo Repository[R], rows []R) ([]uuid.UUID, error) {
	if len(rows) == 0 {
		return []uuid.UUID{}, nil
	}

	unique := make([]R, 0, len(rows))
	seen := make(map[Key]struct{}, len(rows))
	for _, r := range rows {
		k := r.NaturalKey()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, r)
	}
	// Concurrent inserts must take unique-index locks in the same order or
	// two batches holding each other's keys deadlock.
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].NaturalKey().String() < unique[j].NaturalKey().String()
	})

	ids, err := repo.InsertIgnoringConflicts(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("error inserting rows: %w", err)
	}
	if ids == nil {
		ids = make(map[Key]uuid.UUID, len(unique))
	}

	var missing []Key
	for _, r := range unique {
		if _, ok := ids[r.NaturalKey()]; !ok {
			missing = append(missing, r.NaturalKey())
		}
	}
	if len(missing) > 0 {
		found, err := repo.FindIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("error finding existing rows: %w", err)
		}
		for k, id := range found {
			ids[k] = id
		}
	}

	out := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		id, ok := ids[r.NaturalKey()]
		if !ok {
			return nil, fmt.Errorf("no id resolved for %s", r.NaturalKey())
		}
		out[i] = id
	}
	return out, nil
}
