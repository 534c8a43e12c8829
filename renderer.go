package leaf

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"
)

// Renderer is the orchestrator tying together lexing, parsing, AST
// resolution (inlining referenced sub-templates), caching, and
// serialization under an asynchronous, possibly-cycle-prone dependency
// graph (SPEC_FULL.md section 4.6).
type Renderer struct {
	sources           *SourceSet
	cache             Cache
	registry          *EntityRegistry
	sched             Scheduler
	tagInd            rune
	fastPathThreshold time.Duration
}

// NewRenderer builds a Renderer backed by a synchronous cache, wrapping it
// in an asynchronous Cache so every caller automatically qualifies for the
// fast path (SyncCapable probes succeed). cache may be nil, in which case
// every lookup misses and every compiled AST is recompiled on each render.
func NewRenderer(sources *SourceSet, cache SyncCache, registry *EntityRegistry) *Renderer {
	if cache == nil {
		cache = noCache{}
	}
	return NewRendererWithCache(sources, NewAsyncCache(cache, DefaultScheduler{}), registry)
}

// NewRendererWithCache builds a Renderer against an arbitrary Cache. When
// cache does not also implement SyncCapable, every cache operation and
// every render suspends onto the Scheduler: the fast path never triggers.
func NewRendererWithCache(sources *SourceSet, cache Cache, registry *EntityRegistry) *Renderer {
	if cache == nil {
		cache = NewAsyncCache(noCache{}, DefaultScheduler{})
	}
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Renderer{
		sources:           sources,
		cache:             cache,
		registry:          registry,
		sched:             DefaultScheduler{},
		tagInd:            DefaultTagIndicator,
		fastPathThreshold: 50 * time.Millisecond,
	}
}

// WithScheduler returns a shallow copy of r using sched for every
// suspension point instead of DefaultScheduler.
func (r *Renderer) WithScheduler(sched Scheduler) *Renderer {
	clone := *r
	clone.sched = sched
	return &clone
}

// WithTagIndicator returns a shallow copy of r lexing with ind instead of
// DefaultTagIndicator.
func (r *Renderer) WithTagIndicator(ind rune) *Renderer {
	clone := *r
	clone.tagInd = ind
	return &clone
}

// WithFastPathThreshold returns a shallow copy of r taking the synchronous
// fast path only when a cache hit's rolling average execution time is
// under d, instead of the canonical 50ms (EngineConfig.FastPathThreshold).
func (r *Renderer) WithFastPathThreshold(d time.Duration) *Renderer {
	clone := *r
	clone.fastPathThreshold = d
	return &clone
}

// Render resolves path through the Renderer's SourceSet, compiling (or
// reusing a cached compile of) its AST, then serializes it against context.
// A host-supplied UserInfo attached via WithUserInfo is merged in alongside
// rctx.
func (r *Renderer) Render(ctx context.Context, path string, rctx Context) (*Future[[]byte], error) {
	if path == "" {
		return nil, noTemplateExists(path)
	}
	return r.render(ctx, path, rctx)
}

// RenderFrom renders path against a named Source selected from the
// Renderer's SourceSet rather than its default resolution order: source is
// a Source's registered prefix (e.g. "sql"), or "$" to force the
// unprefixed fallback Source. source is subject to the same malformed-key
// rules as an ordinary SourceSet key.
func (r *Renderer) RenderFrom(ctx context.Context, path, source string, rctx Context) (*Future[[]byte], error) {
	if path == "" {
		return nil, noTemplateExists(path)
	}
	if source == "" {
		return nil, illegalAccess(fmt.Sprintf("empty source name for %q", path))
	}
	key := path
	if source != "$" {
		key = source + ":" + path
	}
	return r.render(ctx, key, rctx)
}

// render is the shared entry point for Render and RenderFrom: it takes the
// synchronous fast path when the cache offers one and the resolved AST
// qualifies, else schedules the full async render.
func (r *Renderer) render(ctx context.Context, key string, rctx Context) (*Future[[]byte], error) {
	vars := newVariableTable(rctx, userInfoFromContext(ctx))

	if ast, ok := r.fastPathAST(key); ok {
		logger.Tracef("fast path for %q", key)
		buf, err := r.renderAST(ctx, ast, vars, []string{key})
		if err != nil {
			return ready[[]byte](nil, err), nil
		}
		return ready(buf.Bytes(), nil), nil
	}

	f := newFuture[[]byte]()
	r.sched.Go(func() {
		buf, err := r.renderNamed(ctx, key, vars, nil)
		if err != nil {
			f.resolve(nil, err)
			return
		}
		f.resolve(buf.Bytes(), nil)
	})
	return f, nil
}

// fastPathAST reports whether name is already cached, synchronously
// reachable, free of unresolved inline dependencies, and averaging under
// r.fastPathThreshold per render — the conditions checked before
// serializing on the calling goroutine with no scheduler hop at all.
func (r *Renderer) fastPathAST(name string) (*AST, bool) {
	sc, ok := r.syncCache()
	if !ok || !sc.Enabled() {
		return nil, false
	}
	ast, hit := sc.Retrieve(name)
	if !hit {
		return nil, false
	}
	if len(ast.RequiredASTs) != 0 {
		return nil, false
	}
	if ast.Info.Averages.Exec >= r.fastPathThreshold {
		return nil, false
	}
	return ast, true
}

// syncCache unwraps r.cache's underlying SyncCache via the SyncCapable
// marker, if the cache implementation offers one.
func (r *Renderer) syncCache() (SyncCache, bool) {
	sc, ok := r.cache.(SyncCapable)
	if !ok {
		return nil, false
	}
	return sc.Sync(), true
}

// renderNamed resolves name to an AST (fast path: cache; else fetch +
// compile) and renders it under ancestors.
func (r *Renderer) renderNamed(ctx context.Context, name string, vars *VariableTable, ancestors []string) (*bytes.Buffer, error) {
	for _, a := range ancestors {
		if a == name {
			return nil, cyclicalReference(name, append(append([]string(nil), ancestors...), name))
		}
	}

	ast, err := r.getAST(ctx, name)
	if err != nil {
		return nil, err
	}
	return r.renderAST(ctx, ast, vars, append(ancestors, name))
}

// getAST takes the cache's fast path when one is available before falling
// back to fetching from the SourceSet and compiling.
func (r *Renderer) getAST(ctx context.Context, name string) (*AST, error) {
	if ast, ok := r.cacheRetrieve(ctx, name); ok {
		logger.Tracef("cache hit for %q", name)
		return ast, nil
	}

	if r.sources == nil {
		return nil, noTemplateExists(name)
	}
	origin, key, data, err := r.sources.Find(ctx, name)
	if err != nil {
		return nil, err
	}
	logger.Debugf("fetched %q from %s", name, origin)

	ast, err := r.compile(name, key, string(data))
	if err != nil {
		return nil, err
	}
	if err := r.cacheInsert(ctx, name, ast); err != nil {
		logger.Warningf("cache insert for %q failed: %v", name, err)
	}
	return ast, nil
}

// cacheRetrieve probes the cache synchronously when SyncCapable, else
// awaits the async Retrieve; a failed Await is treated as a miss rather
// than a render-ending error, since caching is always an optimization.
func (r *Renderer) cacheRetrieve(ctx context.Context, name string) (*AST, bool) {
	if sc, ok := r.syncCache(); ok {
		if !sc.Enabled() {
			return nil, false
		}
		return sc.Retrieve(name)
	}
	if !r.cache.Enabled() {
		return nil, false
	}
	result, err := r.cache.Retrieve(name).Await(ctx)
	if err != nil {
		return nil, false
	}
	return result.AST, result.Ok
}

// cacheInsert mirrors cacheRetrieve for Insert.
func (r *Renderer) cacheInsert(ctx context.Context, name string, ast *AST) error {
	if sc, ok := r.syncCache(); ok {
		return sc.Insert(name, ast, true)
	}
	if !r.cache.Enabled() {
		return nil
	}
	_, err := r.cache.Insert(name, ast, true).Await(ctx)
	return err
}

// touch folds one render's cost into name's cache entry without blocking
// the caller: synchronously under the cache's lock when SyncCapable, else
// fire-and-forget on the Scheduler.
func (r *Renderer) touch(name string, exec time.Duration, size int64) {
	if sc, ok := r.syncCache(); ok {
		sc.Touch(name, exec, size)
		return
	}
	if r.cache.Enabled() {
		r.cache.Touch(name, exec, size)
	}
}

func (r *Renderer) compile(name string, key SourceKey, source string) (*AST, error) {
	tokens, err := Lex(name, source, r.registry, r.tagInd)
	if err != nil {
		return nil, err
	}
	tree, err := parseTokens(name, tokens, r.registry)
	if err != nil {
		return nil, err
	}
	return newAST(name, key, tree), nil
}

// renderAST resolves ast's required sub-ASTs concurrently (one goroutine
// per dependency, fanned in with a WaitGroup — commutative since inlining
// substitutes by name) and serializes the result.
func (r *Renderer) renderAST(ctx context.Context, ast *AST, vars *VariableTable, ancestors []string) (*bytes.Buffer, error) {
	resolved := make(map[string][]byte, len(ast.RequiredASTs))

	if len(ast.RequiredASTs) > 0 {
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			firstErr error
		)
		for reqName := range ast.RequiredASTs {
			reqName := reqName
			wg.Add(1)
			r.sched.Go(func() {
				defer wg.Done()
				buf, err := r.renderNamed(ctx, reqName, vars, ancestors)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					return
				}
				resolved[reqName] = buf.Bytes()
			})
		}
		wg.Wait()
		if firstErr != nil {
			return nil, firstErr
		}
	}

	out := &bytes.Buffer{}
	dur, err := Serialize(ast, vars, resolved, out)
	if err != nil {
		return nil, err
	}
	r.touch(ast.Name, dur, int64(out.Len()))
	return out, nil
}
