package leaf

import (
	"sync"
	"time"
)

// SyncCache is the blocking half of the AST cache contract: a keyed store
// of compiled ASTs with usage bookkeeping. Grounded on the pack's
// RWMutex-guarded map cache (aledsdavies-opal/runtime/decorators/cache.go),
// generalized to drop TTL expiry since compiled ASTs are not time-bound —
// only explicit Remove evicts an entry.
type SyncCache interface {
	Insert(name string, ast *AST, replace bool) error
	Retrieve(name string) (*AST, bool)
	Remove(name string) bool
	// Touch folds one render's cost into name's rolling averages under the
	// cache's own lock, so concurrent renders of the same cached template
	// never race on the stored AST's ASTInfo.
	Touch(name string, exec time.Duration, size int64) bool
	Count() int
	Enabled() bool
}

// mapCache is the default SyncCache: a plain RWMutex-guarded map.
type mapCache struct {
	mu      sync.RWMutex
	entries map[string]*AST
}

// NewMapCache returns an empty, enabled in-memory SyncCache.
func NewMapCache() SyncCache {
	return &mapCache{entries: make(map[string]*AST)}
}

func (c *mapCache) Insert(name string, ast *AST, replace bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[name]; exists && !replace {
		return keyExistsError(name)
	}
	ast.Cached = true
	c.entries[name] = ast
	return nil
}

func (c *mapCache) Retrieve(name string) (*AST, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ast, ok := c.entries[name]
	return ast, ok
}

// Remove evicts name, reporting whether an entry existed. SPEC_FULL.md
// section 9's documented Open Question about an "unreachable false case"
// refers to the original's equivalent of this — here it is simply the
// natural result of a map delete on an absent key, reachable whenever a
// caller removes a name twice.
func (c *mapCache) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; !ok {
		return false
	}
	delete(c.entries, name)
	return true
}

func (c *mapCache) Touch(name string, exec time.Duration, size int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ast, ok := c.entries[name]
	if !ok {
		return false
	}
	ast.Info.recordRender(exec, size)
	return true
}

func (c *mapCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *mapCache) Enabled() bool { return true }

// Cache is the asynchronous dual of SyncCache: the same operations, each
// except Enabled returning a Future so a caller running on a Scheduler never
// blocks.
type Cache interface {
	Insert(name string, ast *AST, replace bool) *Future[struct{}]
	Retrieve(name string) *Future[retrieveResult]
	Remove(name string) *Future[bool]
	Touch(name string, exec time.Duration, size int64) *Future[bool]
	Count() *Future[int]
	Enabled() bool
}

type retrieveResult struct {
	AST *AST
	Ok  bool
}

// SyncCapable is the marker interface a Cache may implement to expose its
// backing SyncCache for a renderer's fast path, avoiding a goroutine
// round-trip when the cache is already in-process and non-blocking.
type SyncCapable interface {
	Sync() SyncCache
}

// asyncCache wraps any SyncCache, dispatching each call onto a Scheduler so
// it satisfies Cache. It also implements SyncCapable so a Renderer can
// unwrap it and call the synchronous methods directly.
type asyncCache struct {
	backing SyncCache
	sched   Scheduler
}

// NewAsyncCache adapts backing to the asynchronous Cache interface, running
// each operation via sched.
func NewAsyncCache(backing SyncCache, sched Scheduler) Cache {
	return &asyncCache{backing: backing, sched: sched}
}

func (a *asyncCache) Sync() SyncCache { return a.backing }

func (a *asyncCache) Insert(name string, ast *AST, replace bool) *Future[struct{}] {
	f := newFuture[struct{}]()
	a.sched.Go(func() { f.resolve(struct{}{}, a.backing.Insert(name, ast, replace)) })
	return f
}

func (a *asyncCache) Retrieve(name string) *Future[retrieveResult] {
	f := newFuture[retrieveResult]()
	a.sched.Go(func() {
		ast, ok := a.backing.Retrieve(name)
		f.resolve(retrieveResult{AST: ast, Ok: ok}, nil)
	})
	return f
}

func (a *asyncCache) Remove(name string) *Future[bool] {
	f := newFuture[bool]()
	a.sched.Go(func() { f.resolve(a.backing.Remove(name), nil) })
	return f
}

func (a *asyncCache) Touch(name string, exec time.Duration, size int64) *Future[bool] {
	f := newFuture[bool]()
	a.sched.Go(func() { f.resolve(a.backing.Touch(name, exec, size), nil) })
	return f
}

func (a *asyncCache) Count() *Future[int] {
	f := newFuture[int]()
	a.sched.Go(func() { f.resolve(a.backing.Count(), nil) })
	return f
}

func (a *asyncCache) Enabled() bool { return a.backing.Enabled() }

// noCache is the Enabled()==false cache a Renderer falls back to when
// constructed without one: every Retrieve misses, every Insert is a no-op,
// matching distilled spec's "caching is optional" stance.
type noCache struct{}

func (noCache) Insert(string, *AST, bool) error                   { return nil }
func (noCache) Retrieve(string) (*AST, bool)                      { return nil, false }
func (noCache) Remove(string) bool                                { return false }
func (noCache) Touch(string, time.Duration, int64) bool           { return false }
func (noCache) Count() int                                        { return 0 }
func (noCache) Enabled() bool                                     { return false }
