package leaf

import (
	"context"
	"fmt"
	"strings"
)

// Source is one backing store a SourceSet can resolve a template name
// against: the filesystem, a relational database, a document store, or an
// in-memory map (the "filesystem, database, etc." the distilled spec names
// as examples, §4.4).
type Source interface {
	// Find resolves key to its canonical origin name and raw bytes.
	Find(ctx context.Context, key string) (origin string, data []byte, err error)
}

// SourceSet is a name-indexed registry of Source implementations, selected
// by an optional "prefix:" segment on the lookup key (e.g. "sql:header").
// A key with no prefix segment is tried against the default Source, if one
// was registered.
type SourceSet struct {
	byPrefix map[string]Source
	fallback Source
}

// NewSourceSet builds a SourceSet. The first Source given with no
// WithPrefix wrapper becomes the fallback for unprefixed keys; sources
// registered via WithPrefix are selected by their prefix.
func NewSourceSet(sources ...Source) *SourceSet {
	ss := &SourceSet{byPrefix: make(map[string]Source)}
	for _, s := range sources {
		if ps, ok := s.(*prefixedSource); ok {
			ss.byPrefix[ps.prefix] = ps.inner
			continue
		}
		if ss.fallback == nil {
			ss.fallback = s
		}
	}
	return ss
}

type prefixedSource struct {
	prefix string
	inner  Source
}

// WithPrefix tags src so NewSourceSet registers it under prefix instead of
// as the default fallback.
func WithPrefix(prefix string, src Source) Source {
	return &prefixedSource{prefix: prefix, inner: src}
}

func (p *prefixedSource) Find(ctx context.Context, key string) (string, []byte, error) {
	return p.inner.Find(ctx, key)
}

// Find resolves key against the appropriate Source, rejecting malformed
// keys per §4.4: a first segment beginning with "$" is reserved (the
// "scope-root" sentinel) unless the key is exactly "$", and any other ":"
// beyond the single prefix separator is rejected.
func (ss *SourceSet) Find(ctx context.Context, key string) (string, SourceKey, []byte, error) {
	prefix, name, err := splitSourceKey(key)
	if err != nil {
		return "", SourceKey{}, nil, err
	}

	var src Source
	if prefix != "" {
		src = ss.byPrefix[prefix]
	} else {
		src = ss.fallback
	}
	if src == nil {
		return "", SourceKey{}, nil, sourceNotFound(key)
	}

	origin, data, err := src.Find(ctx, name)
	if err != nil {
		return "", SourceKey{}, nil, err
	}
	return origin, SourceKey{Prefix: prefix, Name: name}, data, nil
}

func splitSourceKey(key string) (prefix, name string, err error) {
	if key == "$" {
		return "", key, nil
	}
	if strings.HasPrefix(key, "$") {
		return "", "", illegalSourceKey(key)
	}
	parts := strings.SplitN(key, ":", 2)
	if len(parts) == 1 {
		if strings.Contains(key, ":") {
			return "", "", illegalSourceKey(key)
		}
		return "", key, nil
	}
	prefix, name = parts[0], parts[1]
	if strings.Contains(name, ":") {
		return "", "", illegalSourceKey(key)
	}
	return prefix, name, nil
}

// illegalSourceKey reports a malformed key as illegal access rather than a
// not-found lookup: the key names something the caller is not allowed to
// address at all (a reserved "$"-prefix, or more than one ":" separator),
// distinct from a well-formed key that simply has no registered Source.
func illegalSourceKey(key string) error {
	return illegalAccess(fmt.Sprintf("malformed source key %q", key))
}
