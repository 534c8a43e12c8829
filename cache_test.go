package leaf

import (
	"context"
	"testing"
	"time"
)

func testAST(name string) *AST {
	return newAST(name, SourceKey{Name: name}, []Node{{Kind: NodeRaw, Raw: name}})
}

func TestMapCacheInsertRetrieveRemove(t *testing.T) {
	c := NewMapCache()
	if !c.Enabled() {
		t.Fatal("mapCache should report Enabled()")
	}
	if _, ok := c.Retrieve("a"); ok {
		t.Fatal("Retrieve on empty cache should miss")
	}

	ast := testAST("a")
	if err := c.Insert("a", ast, false); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !ast.Cached {
		t.Error("Insert should mark the AST Cached")
	}
	if c.Count() != 1 {
		t.Errorf("Count() = %d, want 1", c.Count())
	}

	got, ok := c.Retrieve("a")
	if !ok || got != ast {
		t.Fatalf("Retrieve returned (%v, %v), want (ast, true)", got, ok)
	}

	if !c.Remove("a") {
		t.Error("Remove of an existing entry should report true")
	}
	if c.Remove("a") {
		t.Error("Remove of an already-removed entry should report false")
	}
	if c.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after Remove", c.Count())
	}
}

func TestMapCacheInsertRejectsDuplicateWithoutReplace(t *testing.T) {
	c := NewMapCache()
	if err := c.Insert("a", testAST("a"), false); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	err := c.Insert("a", testAST("a"), false)
	if err == nil {
		t.Fatal("expected an error inserting a duplicate name with replace=false")
	}
	cerr, ok := err.(*CacheError)
	if !ok || cerr.Kind != CacheKeyExists {
		t.Fatalf("got %#v, want a CacheError{Kind: CacheKeyExists}", err)
	}
}

func TestMapCacheInsertReplaceOverwrites(t *testing.T) {
	c := NewMapCache()
	first := testAST("a")
	second := testAST("a")
	if err := c.Insert("a", first, false); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	if err := c.Insert("a", second, true); err != nil {
		t.Fatalf("replacing Insert: %v", err)
	}
	got, _ := c.Retrieve("a")
	if got != second {
		t.Error("replacing Insert should overwrite the existing entry")
	}
}

func TestMapCacheTouchIncrementsUsage(t *testing.T) {
	c := NewMapCache()
	ast := testAST("a")
	c.Insert("a", ast, false)
	if ast.Info.Touches != 0 {
		t.Fatalf("fresh AST should start with zero touches")
	}
	if !c.Touch("a", 10*time.Millisecond, 100) {
		t.Error("Touch on an existing entry should report true")
	}
	if ast.Info.Touches != 1 {
		t.Errorf("Touches = %d, want 1", ast.Info.Touches)
	}
	if ast.Info.Averages.Exec != 10*time.Millisecond {
		t.Errorf("Averages.Exec = %v, want 10ms", ast.Info.Averages.Exec)
	}
	if ast.Info.Averages.Size != 100 {
		t.Errorf("Averages.Size = %d, want 100", ast.Info.Averages.Size)
	}
	if !c.Touch("a", 20*time.Millisecond, 200) {
		t.Error("second Touch on an existing entry should report true")
	}
	if ast.Info.Touches != 2 {
		t.Errorf("Touches = %d, want 2", ast.Info.Touches)
	}
	if ast.Info.Averages.Exec != 15*time.Millisecond {
		t.Errorf("Averages.Exec = %v, want 15ms after two touches", ast.Info.Averages.Exec)
	}
	if c.Touch("missing", time.Millisecond, 1) {
		t.Error("Touch on a missing entry should report false")
	}
}

func TestNoCacheIsAlwaysDisabledAndMisses(t *testing.T) {
	c := noCache{}
	if c.Enabled() {
		t.Fatal("noCache should report Enabled() == false")
	}
	if err := c.Insert("a", testAST("a"), true); err != nil {
		t.Errorf("noCache.Insert should be a no-op, got %v", err)
	}
	if _, ok := c.Retrieve("a"); ok {
		t.Error("noCache.Retrieve should always miss")
	}
	if c.Remove("a") {
		t.Error("noCache.Remove should always report false")
	}
	if c.Count() != 0 {
		t.Error("noCache.Count should always be 0")
	}
}

func TestAsyncCacheWrapsSyncCacheViaScheduler(t *testing.T) {
	backing := NewMapCache()
	cache := NewAsyncCache(backing, DefaultScheduler{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ast := testAST("a")
	if _, err := cache.Insert("a", ast, false).Await(ctx); err != nil {
		t.Fatalf("async Insert: %v", err)
	}

	result, err := cache.Retrieve("a").Await(ctx)
	if err != nil {
		t.Fatalf("async Retrieve: %v", err)
	}
	if !result.Ok || result.AST != ast {
		t.Fatalf("got %#v, want {AST: ast, Ok: true}", result)
	}

	count, err := cache.Count().Await(ctx)
	if err != nil || count != 1 {
		t.Fatalf("Count() = (%d, %v), want (1, nil)", count, err)
	}

	if sc, ok := cache.(SyncCapable); !ok || sc.Sync() != backing {
		t.Error("asyncCache should expose its backing SyncCache via SyncCapable")
	}

	removed, err := cache.Remove("a").Await(ctx)
	if err != nil || !removed {
		t.Fatalf("Remove() = (%v, %v), want (true, nil)", removed, err)
	}
}
