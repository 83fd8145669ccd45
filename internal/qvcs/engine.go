package qvcs

import (
	"context"
	"fmt"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"

	"qvcs-go/internal/delta"
)

// DefaultHydrationCacheEntries bounds the per-request hydration memo.
const DefaultHydrationCacheEntries = 64

// Options tunes engine behaviour. The zero value is usable.
type Options struct {
	// Compression is applied to stored revision data ("snappy" or "none").
	Compression string
	// RequireLock makes appendRevision fail unless the author holds the lineage lock.
	RequireLock bool
	// HydrationCacheEntries bounds the number of hydrated revisions memoised per request.
	HydrationCacheEntries int
	// PromotionExclude lists path globs that promotion never reports or applies.
	PromotionExclude []string
}

// Engine resolves branch-aware project state and records changes to it.
// It holds no state between requests; every call runs in its own store
// transaction.
type Engine struct {
	db      Database
	logger  Logger
	clock   Clock
	opts    Options
	exclude []glob.Glob
}

// NewEngine creates an Engine over db.
func NewEngine(db Database, logger Logger, clock Clock, opts Options) (*Engine, error) {
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if opts.Compression == "" {
		opts.Compression = delta.CompressionSnappy
	}
	if !delta.ValidCompression(opts.Compression) {
		return nil, fmt.Errorf("unknown compression: %s", opts.Compression)
	}
	if opts.HydrationCacheEntries <= 0 {
		opts.HydrationCacheEntries = DefaultHydrationCacheEntries
	}

	e := &Engine{db: db, logger: logger, clock: clock, opts: opts}
	for _, p := range opts.PromotionExclude {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling promotion exclude %q: %w", p, err)
		}
		e.exclude = append(e.exclude, g)
	}
	return e, nil
}

// txn is the request-scoped view of one store transaction. Ancestry
// lookups and hydrated content are memoised for its lifetime only.
type txn struct {
	e       *Engine
	tx      Tx
	scopes  map[scopeKey][]Scope
	content *lru.Cache[int64, []byte]
}

type scopeKey struct {
	branchID int64
	ceiling  int64
}

func (e *Engine) newTxn(tx Tx) *txn {
	cache, err := lru.New[int64, []byte](e.opts.HydrationCacheEntries)
	if err != nil {
		// only fails for a non-positive size, which NewEngine rules out
		panic(err)
	}
	return &txn{
		e:       e,
		tx:      tx,
		scopes:  make(map[scopeKey][]Scope),
		content: cache,
	}
}

func (e *Engine) update(ctx context.Context, fn func(t *txn) error) error {
	return e.db.Update(ctx, func(tx Tx) error {
		return fn(e.newTxn(tx))
	})
}

func (e *Engine) view(ctx context.Context, fn func(t *txn) error) error {
	return e.db.View(ctx, func(tx Tx) error {
		return fn(e.newTxn(tx))
	})
}
