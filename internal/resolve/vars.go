package resolve

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// VarStore resolves "${vars.<name>}" param references against a Redis
// namespace of shared pipeline variables, independent of SecretStore's
// encrypted-at-rest Postgres lookups.
type VarStore struct {
	rdb       *redis.Client
	keyPrefix string
}

// NewVarStore builds a VarStore over rdb. keyPrefix namespaces the Redis
// keys used (e.g. "nodeflow:vars:").
func NewVarStore(rdb *redis.Client, keyPrefix string) *VarStore {
	return &VarStore{rdb: rdb, keyPrefix: keyPrefix}
}

// ResolveExtra implements ExtraSource for the "vars" source prefix.
func (v *VarStore) ResolveExtra(source, key string) (any, bool) {
	if source != "vars" {
		return nil, false
	}
	val, err := v.rdb.Get(context.Background(), v.keyPrefix+key).Result()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores a variable value under key.
func (v *VarStore) Set(ctx context.Context, key, value string) error {
	if err := v.rdb.Set(ctx, v.keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("resolve: setting var %q: %w", key, err)
	}
	return nil
}

// ChainExtraSource tries each source in order, returning the first hit.
type ChainExtraSource []ExtraSource

func (c ChainExtraSource) ResolveExtra(source, key string) (any, bool) {
	for _, s := range c {
		if v, ok := s.ResolveExtra(source, key); ok {
			return v, ok
		}
	}
	return nil, false
}
