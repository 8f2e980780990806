package records

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	dErrors "qualify/pkg/domain-errors"
	txcontext "qualify/pkg/platform/tx"
)

// Tx runs one record mutation as a unit. Implementations serialise work on
// the same key: a row lock in Postgres, a mutex shard in memory.
type Tx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

const (
	numRecordShards     = 128
	defaultRecordTxTime = 5 * time.Second
)

// ShardedTx serialises in-memory mutations per record using a fixed set
// of mutexes selected by an FNV-1a hash of the key. Writes that in-memory
// stores register with txcontext.OnRollback are undone when fn fails.
type ShardedTx struct {
	shards  [numRecordShards]sync.Mutex
	timeout time.Duration
}

func NewShardedTx() *ShardedTx {
	return &ShardedTx{timeout: defaultRecordTxTime}
}

func (t *ShardedTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	mu := &t.shards[shardFor(key)]
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	ctx, rollback := txcontext.WithUndo(ctx)
	if err := fn(ctx); err != nil {
		rollback()
		return err
	}
	return nil
}

func shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % numRecordShards)
}
