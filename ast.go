package leaf

import "time"

// SourceKey identifies where an AST's bytes came from: the source-set
// prefix ("fs", "sql", ...) and the name looked up within it.
type SourceKey struct {
	Prefix string
	Name   string
}

func (k SourceKey) String() string {
	if k.Prefix == "" {
		return k.Name
	}
	return k.Prefix + ":" + k.Name
}

// ASTInfo carries bookkeeping the renderer accumulates across renders of
// the same AST: its declared dependencies and rolling cost averages, used
// to decide whether a cached entry is still worth serving.
type ASTInfo struct {
	RequiredASTs []string

	Averages struct {
		Exec time.Duration
		Size int64
	}

	Touches int64
}

// recordRender folds one render's cost into the rolling averages using a
// simple incremental mean (no decay), matching the distilled spec's
// "Averages" field without inventing an eviction policy it doesn't specify.
func (info *ASTInfo) recordRender(exec time.Duration, size int64) {
	info.Touches++
	n := info.Touches
	info.Averages.Exec += (exec - info.Averages.Exec) / time.Duration(n)
	info.Averages.Size += (size - info.Averages.Size) / n
}

// AST is a compiled template: its parsed node tree plus the bookkeeping
// needed to resolve inlined dependencies and serve from cache.
type AST struct {
	Name         string
	Key          SourceKey
	Tree         []Node
	RequiredASTs map[string]struct{}
	Cached       bool
	Info         ASTInfo
}

// newAST builds an AST from a freshly parsed node tree, computing
// RequiredASTs from the inline directives the parser recorded.
func newAST(name string, key SourceKey, tree []Node) *AST {
	required := make(map[string]struct{})
	collectInlineRefs(tree, required)
	req := make([]string, 0, len(required))
	for name := range required {
		req = append(req, name)
	}
	ast := &AST{Name: name, Key: key, Tree: tree, RequiredASTs: required}
	ast.Info.RequiredASTs = req
	return ast
}

// collectInlineRefs walks tree recursively, including every chain body of a
// NodeBlock, so an inline() reached only inside an if/for/block still
// registers as a dependency the renderer resolves before serializing.
func collectInlineRefs(tree []Node, into map[string]struct{}) {
	for _, n := range tree {
		switch n.Kind {
		case NodeInline:
			into[n.Inline] = struct{}{}
		case NodeBlock:
			for _, chain := range n.Chains {
				collectInlineRefs(chain.Body, into)
			}
		}
	}
}
