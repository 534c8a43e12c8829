package leaf

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSourceSetFallbackResolvesUnprefixedKey(t *testing.T) {
	ss := NewSourceSet(NewMemorySource("mem", map[string]string{"hello": "Hi"}))
	origin, key, data, err := ss.Find(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if string(data) != "Hi" {
		t.Errorf("data = %q, want %q", data, "Hi")
	}
	if key.Name != "hello" || key.Prefix != "" {
		t.Errorf("key = %#v, want {Prefix: \"\", Name: \"hello\"}", key)
	}
	if origin == "" {
		t.Error("origin should not be empty")
	}
}

func TestSourceSetPrefixSelectsNamedSource(t *testing.T) {
	ss := NewSourceSet(
		NewMemorySource("mem", map[string]string{"shared": "default"}),
		WithPrefix("alt", NewMemorySource("alt", map[string]string{"shared": "alternate"})),
	)

	_, _, data, err := ss.Find(context.Background(), "shared")
	if err != nil {
		t.Fatalf("unprefixed Find: %v", err)
	}
	if string(data) != "default" {
		t.Errorf("unprefixed data = %q, want %q", data, "default")
	}

	_, key, data, err := ss.Find(context.Background(), "alt:shared")
	if err != nil {
		t.Fatalf("prefixed Find: %v", err)
	}
	if string(data) != "alternate" {
		t.Errorf("prefixed data = %q, want %q", data, "alternate")
	}
	if key.Prefix != "alt" || key.Name != "shared" {
		t.Errorf("key = %#v, want {Prefix: \"alt\", Name: \"shared\"}", key)
	}
}

func TestSourceSetUnknownPrefixIsNotFound(t *testing.T) {
	ss := NewSourceSet(NewMemorySource("mem", map[string]string{"a": "A"}))
	if _, _, _, err := ss.Find(context.Background(), "nope:a"); err == nil {
		t.Fatal("expected an error resolving an unregistered prefix")
	}
}

func TestSourceSetRejectsDollarPrefixedKeyExceptBareDollar(t *testing.T) {
	ss := NewSourceSet(NewMemorySource("mem", map[string]string{"$": "root", "x": "X"}))

	if _, _, data, err := ss.Find(context.Background(), "$"); err != nil || string(data) != "root" {
		t.Errorf("Find(\"$\") = (%q, %v), want (\"root\", nil)", data, err)
	}
	_, _, _, err := ss.Find(context.Background(), "$foo")
	if err == nil {
		t.Fatal("expected an error for a '$'-prefixed key other than exactly \"$\"")
	}
	rerr, ok := err.(*RenderError)
	if !ok || rerr.Kind != RenderIllegalAccess {
		t.Fatalf("got %#v, want a RenderError{Kind: RenderIllegalAccess}", err)
	}
}

func TestSourceSetRejectsExtraColonInKey(t *testing.T) {
	ss := NewSourceSet(NewMemorySource("mem", map[string]string{"a": "A"}))
	_, _, _, err := ss.Find(context.Background(), "a:b:c")
	if err == nil {
		t.Fatal("expected an error for a key with more than one ':' separator")
	}
	rerr, ok := err.(*RenderError)
	if !ok || rerr.Kind != RenderIllegalAccess {
		t.Fatalf("got %#v, want a RenderError{Kind: RenderIllegalAccess}", err)
	}
}

func TestFilesystemSourceReadsFileUnderBaseDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.leaf"), []byte("Hello!"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := NewFilesystemSource(dir, ".leaf")
	if err != nil {
		t.Fatalf("NewFilesystemSource: %v", err)
	}

	_, data, err := src.Find(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if string(data) != "Hello!" {
		t.Errorf("data = %q, want %q", data, "Hello!")
	}
}

func TestFilesystemSourceRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	src, err := NewFilesystemSource(dir, "")
	if err != nil {
		t.Fatalf("NewFilesystemSource: %v", err)
	}
	if _, _, err := src.Find(context.Background(), "../../etc/passwd"); err == nil {
		t.Fatal("expected an error escaping the base directory")
	}
}

func TestFilesystemSourceMissingFileIsNotFound(t *testing.T) {
	dir := t.TempDir()
	src, err := NewFilesystemSource(dir, "")
	if err != nil {
		t.Fatalf("NewFilesystemSource: %v", err)
	}
	_, _, err = src.Find(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	serr, ok := err.(*SourceError)
	if !ok || serr.Kind != SourceNotFound {
		t.Fatalf("got %#v, want a SourceError{Kind: SourceNotFound}", err)
	}
}

func TestNewFilesystemSourceRejectsNonDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFilesystemSource(file, ""); err == nil {
		t.Fatal("expected an error constructing a FilesystemSource over a plain file")
	}
}
