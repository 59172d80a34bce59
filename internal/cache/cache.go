package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"db-lens/internal/catalog"
)

// State is the cache lifecycle: Empty until the first successful discovery,
// then Populated, flipping to Stale on an explicit mark or TTL expiry until
// the next successful refresh.
type State string

const (
	StateEmpty     State = "empty"
	StatePopulated State = "populated"
	StateStale     State = "stale"
)

// DiscoverFunc runs one discovery pass producing the given snapshot version.
type DiscoverFunc func(ctx context.Context, version int64) (*catalog.DiscoveryResult, error)

type Options struct {
	// TTL is advisory only: once a published snapshot is older than TTL,
	// GetTable schedules one background refresh check. Reads keep being
	// served from the published snapshot either way; only a completed
	// refresh may replace it.
	TTL    time.Duration
	Logger *zap.Logger
}

// Cache holds the current schema snapshot and serializes refreshes.
// Published snapshots are immutable, so reads need no locking beyond the
// pointer swap; refresh is deduplicated so concurrent callers share one
// in-flight discovery pass.
type Cache struct {
	discover DiscoverFunc
	ttl      time.Duration
	log      *zap.Logger

	mu          sync.RWMutex
	current     *catalog.Snapshot
	publishedAt time.Time
	stale       bool
	callbacks   []func([]catalog.Change)

	group     singleflight.Group
	refreshBg atomic.Bool
}

func New(discover DiscoverFunc, opts Options) *Cache {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		discover: discover,
		ttl:      opts.TTL,
		log:      log,
	}
}

func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.current == nil:
		return StateEmpty
	case c.stale:
		return StateStale
	default:
		return StatePopulated
	}
}

// MarkStale records externally detected drift. The published snapshot keeps
// serving reads; the next refresh clears the flag.
func (c *Cache) MarkStale() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.stale = true
	}
}

// Snapshot returns the current snapshot, populating lazily on first use.
func (c *Cache) Snapshot(ctx context.Context) (*catalog.Snapshot, error) {
	c.mu.RLock()
	snap := c.current
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	if _, err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, nil
}

// GetTable looks a table up in the current snapshot, populating lazily when
// still empty. A TTL-expired snapshot still answers immediately; it only
// triggers a background refresh check.
func (c *Cache) GetTable(ctx context.Context, name string) (*catalog.Table, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	c.maybeScheduleRefresh()

	t, ok := snap.Table(name)
	if !ok {
		return nil, &catalog.SchemaNotFoundError{Table: name}
	}
	return t, nil
}

// FreshTable is the guaranteed-fresh read: it forces a refresh first and
// fails with CacheStaleError when that refresh fails.
func (c *Cache) FreshTable(ctx context.Context, name string) (*catalog.Table, error) {
	if _, err := c.Refresh(ctx); err != nil {
		return nil, &catalog.CacheStaleError{Err: err}
	}
	return c.GetTable(ctx, name)
}

// OnChange registers a callback invoked after every refresh that produced
// change events. Callbacks run synchronously on the refreshing goroutine.
func (c *Cache) OnChange(fn func([]catalog.Change)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, fn)
}

// Refresh runs one discovery pass and publishes the result. Concurrent
// callers are served the eventual result of the single in-flight attempt.
// A failed or cancelled pass publishes nothing: the last-known-good
// snapshot stays current. A pass with zero differences keeps the published
// version and returns no events.
func (c *Cache) Refresh(ctx context.Context) ([]catalog.Change, error) {
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		return c.refreshLocked(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]catalog.Change), nil
}

// DetectChanges runs a fresh discovery and diffs it against the last
// published snapshot.
func (c *Cache) DetectChanges(ctx context.Context) ([]catalog.Change, error) {
	return c.Refresh(ctx)
}

func (c *Cache) refreshLocked(ctx context.Context) ([]catalog.Change, error) {
	c.mu.RLock()
	prev := c.current
	c.mu.RUnlock()

	var nextVersion int64 = 1
	if prev != nil {
		nextVersion = prev.Version + 1
	}

	res, err := c.discover(ctx, nextVersion)
	if err != nil {
		c.log.Warn("refresh failed, keeping published snapshot", zap.Error(err))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		// Cancelled mid-pass: never publish a possibly partial snapshot.
		return nil, err
	}

	changes := catalog.Diff(prev, res.Snapshot)

	c.mu.Lock()
	if prev != nil && len(changes) == 0 {
		// Idempotent refresh: nothing moved, keep the version.
		c.stale = false
		c.publishedAt = time.Now()
		c.mu.Unlock()
		return nil, nil
	}
	c.current = res.Snapshot
	c.stale = false
	c.publishedAt = time.Now()
	callbacks := append(([]func([]catalog.Change))(nil), c.callbacks...)
	c.mu.Unlock()

	c.log.Info("published schema snapshot",
		zap.Int64("version", res.Snapshot.Version),
		zap.Int("tables", len(res.Snapshot.Tables)),
		zap.Int("changes", len(changes)),
		zap.String("pass_id", res.PassID))

	if len(changes) > 0 {
		for _, fn := range callbacks {
			fn(changes)
		}
	}
	return changes, nil
}

// maybeScheduleRefresh starts at most one background refresh once the
// published snapshot outlives the advisory TTL.
func (c *Cache) maybeScheduleRefresh() {
	if c.ttl <= 0 {
		return
	}
	c.mu.RLock()
	expired := c.current != nil && time.Since(c.publishedAt) > c.ttl
	c.mu.RUnlock()
	if !expired || !c.refreshBg.CompareAndSwap(false, true) {
		return
	}

	c.mu.Lock()
	if c.current != nil {
		c.stale = true
	}
	c.mu.Unlock()

	go func() {
		defer c.refreshBg.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := c.Refresh(ctx); err != nil {
			c.log.Warn("background refresh failed", zap.Error(err))
		}
	}()
}
