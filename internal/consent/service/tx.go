package service

import (
	"context"
	"sync"
	"time"

	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"
)

// Mutations are serialized per consent ID: explicit lifecycle updates and the
// lazy-expiry writes on read and check paths must queue behind one another for
// the same record, while operations on distinct records proceed in parallel.
// Locks are distributed across N shards by a hash of the consent ID.
const numConsentShards = 128

// defaultTxTimeout is the maximum duration for a per-record transaction.
const defaultTxTimeout = 5 * time.Second

// shardedTx provides per-consent-ID mutual exclusion using sharded mutexes.
type shardedTx struct {
	shards  [numConsentShards]sync.Mutex
	timeout time.Duration
}

func newShardedTx(timeout time.Duration) *shardedTx {
	return &shardedTx{timeout: timeout}
}

// RunInTx runs fn while holding the shard lock for consentID.
func (t *shardedTx) RunInTx(ctx context.Context, consentID id.ConsentID, fn func(ctx context.Context) error) error {
	// Check if context is already cancelled
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	// Apply timeout if not already set
	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := t.selectShard(consentID)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

// selectShard picks a shard for the consent ID.
func (t *shardedTx) selectShard(consentID id.ConsentID) int {
	return int(hashConsentID(consentID) % numConsentShards)
}

// hashConsentID uses FNV-1a for better hash distribution than simple multiply-add.
func hashConsentID(consentID id.ConsentID) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	s := consentID.String()
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
