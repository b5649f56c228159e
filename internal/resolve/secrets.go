package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linkflow/nodeflow/internal/secretcrypto"
)

// SecretStore resolves "${secrets.<name>}" param references against a
// Postgres-backed encrypted secret table, the same query-and-decrypt
// shape as a pgx-backed credential lookup, caching decrypted values in a
// TieredCache to avoid re-querying Postgres on every resolution within a
// pipeline run.
type SecretStore struct {
	pool  *pgxpool.Pool
	box   *secretcrypto.Box
	cache *TieredCache
}

// NewSecretStore builds a SecretStore. cache may be nil, in which case
// every lookup round-trips to Postgres.
func NewSecretStore(pool *pgxpool.Pool, box *secretcrypto.Box, cache *TieredCache) *SecretStore {
	return &SecretStore{pool: pool, box: box, cache: cache}
}

// ResolveExtra implements ExtraSource for the "secrets" source prefix.
// Any other source prefix is declined (ok=false) so the resolver can try
// further sources or fall back to Unresolved.
func (s *SecretStore) ResolveExtra(source, key string) (any, bool) {
	if source != "secrets" {
		return nil, false
	}
	val, err := s.lookup(context.Background(), key)
	if err != nil {
		return nil, false
	}
	return val, true
}

func (s *SecretStore) lookup(ctx context.Context, name string) (string, error) {
	if s.cache != nil {
		if v, err := s.cache.Get(ctx, cacheKey(name)); err == nil {
			return v, nil
		}
	}

	var encrypted string
	err := s.pool.QueryRow(ctx,
		`SELECT encrypted_value FROM secrets WHERE name = $1`, name,
	).Scan(&encrypted)
	if err != nil {
		return "", fmt.Errorf("resolve: secret %q: %w", name, err)
	}

	plain, err := s.box.Open(encrypted)
	if err != nil {
		return "", fmt.Errorf("resolve: decrypting secret %q: %w", name, err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey(name), plain)
	}
	return plain, nil
}

func cacheKey(name string) string { return "secret:" + name }

// ErrSecretNotFound is returned by callers that need to distinguish a
// missing secret from other failures; ResolveExtra itself collapses all
// failures to ok=false since the resolver never surfaces param-resolution
// errors.
var ErrSecretNotFound = errors.New("resolve: secret not found")
