// Package mergebase memoizes merge-base computation in the database.
//
// The graph builder asks for merge-bases repeatedly across runs, and
// the answer for a given pair of commits never changes (commits are
// immutable), so every answer is cached forever. "No common ancestor"
// is an answer too and is cached the same way.
package mergebase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/burl-vcs/burl/internal/repo"
	"github.com/burl-vcs/burl/internal/storage"
)

// Cache answers merge-base queries, consulting the merge_base_oids
// table before falling back to the object store. Hit and request
// counters are kept for diagnostics.
type Cache struct {
	store   *storage.Store
	objects repo.ObjectStore

	requests int
	hits     int
}

// NewCache builds a cache over the given database and object store.
func NewCache(store *storage.Store, objects repo.ObjectStore) *Cache {
	return &Cache{store: store, objects: objects}
}

// sortPair puts the pair in canonical order so that (a, b) and (b, a)
// share a cache row.
func sortPair(a, b repo.OID) (repo.OID, repo.OID) {
	if a <= b {
		return a, b
	}
	return b, a
}

// MergeBase returns the nearest common ancestor of a and b, or the
// empty OID if the histories are unrelated.
func (c *Cache) MergeBase(ctx context.Context, a, b repo.OID) (repo.OID, error) {
	c.requests++
	lhs, rhs := sortPair(a, b)

	var cached sql.NullString
	err := c.store.DB().QueryRowContext(ctx, `
		SELECT merge_base_oid FROM merge_base_oids
		WHERE lhs_oid = ? AND rhs_oid = ?
	`, string(lhs), string(rhs)).Scan(&cached)
	switch {
	case err == nil:
		c.hits++
		if !cached.Valid {
			return "", nil
		}
		return repo.OID(cached.String), nil
	case errors.Is(err, sql.ErrNoRows):
		// Fall through to compute.
	default:
		return "", fmt.Errorf("failed to query merge-base cache: %w", err)
	}

	base, err := c.objects.MergeBase(a, b)
	if err != nil {
		return "", err
	}

	var value sql.NullString
	if base != "" {
		value = sql.NullString{String: string(base), Valid: true}
	}
	_, err = c.store.DB().ExecContext(ctx, `
		INSERT OR IGNORE INTO merge_base_oids (lhs_oid, rhs_oid, merge_base_oid)
		VALUES (?, ?, ?)
	`, string(lhs), string(rhs), value)
	if err != nil {
		return "", fmt.Errorf("failed to store merge-base result: %w", err)
	}
	return base, nil
}

// Requests returns the number of queries served since the cache was
// created.
func (c *Cache) Requests() int { return c.requests }

// Hits returns how many of those queries were answered from the
// database.
func (c *Cache) Hits() int { return c.hits }
