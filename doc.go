// Package leaf implements a text template engine: it compiles template
// source carrying embedded directives into an intermediate syntax tree, then
// serializes that tree with caller-supplied context data into a byte stream.
//
// Directives begin with a configurable tag indicator (default '#') and
// support atomic function/method calls, block constructs with chained
// continuations (such as an "else" continuing an "if"), inlined
// sub-templates, and parameter expressions built from literals, variables,
// operators, and keywords.
//
// The package is organized around three components:
//
//   - Lexer: converts raw template text into a token stream (lexer.go).
//   - Renderer: orchestrates fetch, parse, inline-resolution, caching and
//     serialization of a named template under a possibly-cyclic dependency
//     graph (renderer.go).
//   - Cache: a name-keyed AST store with both a synchronous and an
//     asynchronous interface (cache.go).
//
// A tiny example with template strings:
//
//	reg := leaf.DefaultRegistry()
//	sources := leaf.NewSourceSet(leaf.NewMemorySource("$", map[string]string{
//		"hello": "Hello, #(name)!",
//	}))
//	renderer := leaf.NewRenderer(sources, leaf.NewMapCache(), reg)
//	future, err := renderer.Render(context.Background(), "hello", leaf.Context{"name": "world"})
//	if err != nil {
//		// template or source error
//	}
//	out, err := future.Await(context.Background())
package leaf
