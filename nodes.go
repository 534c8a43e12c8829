package leaf

import (
	"bytes"
	"fmt"
	"time"
)

// NodeKind tags the variant held by a Node. Like Token, Node is modeled as
// a tagged struct rather than an interface hierarchy (SPEC_FULL.md section
// 9's "no open inheritance" note applies equally to the parser's output).
type NodeKind int

const (
	NodeRaw NodeKind = iota
	NodeExpr
	NodeTag
	NodeBlock
	NodeInline
)

// Chain is one link of a chained block construct: the primary opener body,
// or a continuation reached via a chained-terminal tag (e.g. "else").
type Chain struct {
	Name   string
	Params []ParamToken
	Body   []Node
}

// Node is one element of a parsed AST tree.
type Node struct {
	Kind NodeKind

	Raw string // NodeRaw

	Name   string       // NodeExpr (empty)/NodeTag/NodeBlock tag name
	Params []ParamToken // NodeExpr/NodeTag parameters

	Chains []Chain // NodeBlock

	Inline string // NodeInline: referenced template name

	Pos Position
}

// parseTokens builds a Node tree from a Lexer token stream. Its grammar is
// this module's own design choice (SPEC_FULL.md section 1): raw text,
// atomic tag calls, block/chain constructs, and the reserved inline
// directive. It deliberately does not implement operator precedence or
// nested container literals beyond what the lexer already produces.
func parseTokens(name string, tokens []Token, registry *EntityRegistry) ([]Node, error) {
	p := &nodeParser{name: name, tokens: tokens, registry: registry}
	nodes, stop, err := p.parseUntil(nil)
	if err != nil {
		return nil, err
	}
	if stop != nil {
		return nil, newParseError(name, stop.Pos, "unexpected closing tag %q", stop.Raw)
	}
	return nodes, nil
}

type nodeParser struct {
	name     string
	tokens   []Token
	pos      int
	registry *EntityRegistry
}

func (p *nodeParser) peek() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *nodeParser) next() (Token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

// parseUntil reads nodes until EOF or a closing tag whose name is in stop;
// it returns the matched closing token (nil at EOF) so callers can
// distinguish "block never closed" from "block closed here".
func (p *nodeParser) parseUntil(stop map[string]struct{}) ([]Node, *Token, error) {
	var nodes []Node
	for {
		tok, ok := p.next()
		if !ok {
			return nodes, nil, nil
		}
		switch tok.Kind {
		case TokRaw:
			nodes = append(nodes, Node{Kind: NodeRaw, Raw: tok.Raw, Pos: tok.Pos})
		case TokTagMark:
			// Purely a lexer bookkeeping marker: it always immediately
			// precedes the TokTag token carrying the actual tag, which
			// the next loop iteration picks up.
		case TokTag:
			node, closeTok, err := p.parseTag(tok, stop)
			if err != nil {
				return nil, nil, err
			}
			if closeTok != nil {
				return nodes, closeTok, nil
			}
			nodes = append(nodes, node)
		default:
			return nodes, nil, newParseError(p.name, tok.Pos, "unexpected token %s", tok.Kind)
		}
	}
}

// parseTag dispatches a TokTag: a standalone closer/chain-continuation that
// matches stop returns it via closeTok so parseUntil can unwind; any other
// closer is an error; otherwise it builds an NodeExpr/NodeTag/NodeBlock/
// NodeInline node.
func (p *nodeParser) parseTag(tok Token, stop map[string]struct{}) (Node, *Token, error) {
	if !tok.HasName {
		params, err := p.parseParamsIfPresent()
		if err != nil {
			return Node{}, nil, err
		}
		return Node{Kind: NodeExpr, Params: params, Pos: tok.Pos}, nil, nil
	}

	if _, isStop := stop[tok.Raw]; isStop {
		return Node{}, &tok, nil
	}

	if p.registry.IsCloser(tok.Raw) && !p.registry.IsOpener(tok.Raw) {
		return Node{}, nil, newParseError(p.name, tok.Pos, "unexpected closing tag %q", tok.Raw)
	}

	params, err := p.parseParamsIfPresent()
	if err != nil {
		return Node{}, nil, err
	}

	if tok.Raw == InlineFunctionName {
		if len(params) != 1 || params[0].Kind != ParamLiteral || params[0].Literal.Kind != ValueString {
			return Node{}, nil, newParseError(p.name, tok.Pos, "inline() requires a single string argument")
		}
		return Node{Kind: NodeInline, Inline: params[0].Literal.Str, Pos: tok.Pos}, nil, nil
	}

	if p.registry.IsFunction(tok.Raw) {
		return Node{Kind: NodeTag, Name: tok.Raw, Params: params, Pos: tok.Pos}, nil, nil
	}

	if p.registry.IsOpener(tok.Raw) {
		return p.parseBlock(tok.Raw, params, tok.Pos)
	}

	return Node{Kind: NodeTag, Name: tok.Raw, Params: params, Pos: tok.Pos}, nil, nil
}

// parseBlock consumes one or more chained bodies (opener, then any
// registered chained-terminal continuations) until the opener's declared
// closer is reached.
func (p *nodeParser) parseBlock(opener string, firstParams []ParamToken, pos Position) (Node, *Token, error) {
	closer, ok := p.registry.CloserFor(opener)
	if !ok {
		return Node{}, nil, newParseError(p.name, pos, "tag %q has no registered closer", opener)
	}

	stop := map[string]struct{}{closer: {}}
	for name := range p.registry.openers {
		if p.registry.IsChainedTerminal(name) {
			stop[name] = struct{}{}
		}
	}

	var chains []Chain
	name, params := opener, firstParams
	for {
		if err := p.expectBlockMark(); err != nil {
			return Node{}, nil, err
		}
		body, closeTok, err := p.parseUntil(stop)
		if err != nil {
			return Node{}, nil, err
		}
		chains = append(chains, Chain{Name: name, Params: params, Body: body})
		if closeTok == nil {
			return Node{}, nil, newParseError(p.name, pos, "block %q never closed", opener)
		}
		if closeTok.Raw == closer {
			break
		}
		// chained-terminal continuation: consume its own parameters (if the
		// lexer emitted a ParamsStart for it) and keep going under the same
		// stop set.
		name = closeTok.Raw
		params, err = p.parseParamsIfPresent()
		if err != nil {
			return Node{}, nil, err
		}
	}

	return Node{Kind: NodeBlock, Name: opener, Chains: chains, Pos: pos}, nil, nil
}

// parseParamsIfPresent consumes a ParamsStart..ParamsEnd run if the next
// token opens one; tags called without parentheses (chained terminals,
// bare closers) simply have none.
func (p *nodeParser) parseParamsIfPresent() ([]ParamToken, error) {
	tok, ok := p.peek()
	if !ok || tok.Kind != TokParamsStart {
		return nil, nil
	}
	p.next()

	var params []ParamToken
	for {
		tok, ok := p.next()
		if !ok {
			return nil, newParseError(p.name, tok.Pos, "unterminated parameter list")
		}
		switch tok.Kind {
		case TokParamsEnd:
			return params, nil
		case TokParam:
			params = append(params, tok.Param)
		case TokParamDelimit, TokWhitespace, TokLabelMark:
			// structural separators carried through verbatim; this minimal
			// parser does not build a labeled-argument or subscript grammar
			// beyond the flat parameter list the lexer already tokenized.
		case TokParamsStart:
			// nested call/group: skip its balanced contents, matching
			// parenthesis depth, since this parser does not build nested
			// expression trees (SPEC_FULL.md section 1, out-of-scope).
			if err := p.skipNestedParams(); err != nil {
				return nil, err
			}
		default:
			return nil, newParseError(p.name, tok.Pos, "unexpected token %s in parameter list", tok.Kind)
		}
	}
}

// expectBlockMark consumes the TokBlockMark a block opener or chained
// terminal always leaves pending right after its (possibly absent)
// parameter list, marking where the chain's body begins.
func (p *nodeParser) expectBlockMark() error {
	tok, ok := p.next()
	if !ok || tok.Kind != TokBlockMark {
		return newParseError(p.name, tok.Pos, "expected ':' to open block body")
	}
	return nil
}

func (p *nodeParser) skipNestedParams() error {
	depth := 1
	for depth > 0 {
		tok, ok := p.next()
		if !ok {
			return newParseError(p.name, tok.Pos, "unterminated nested parameter list")
		}
		switch tok.Kind {
		case TokParamsStart:
			depth++
		case TokParamsEnd:
			depth--
		}
	}
	return nil
}

// Serialize walks an AST's resolved node tree, substituting NodeInline
// nodes with the already-resolved sub-AST bytes the renderer looked up (via
// resolved), writing each NodeExpr/NodeTag's parameters, evaluating each
// NodeBlock's chain conditions, and writing the result to out. It returns the time spent for ASTInfo bookkeeping.
func Serialize(ast *AST, vars *VariableTable, resolved map[string][]byte, out *bytes.Buffer) (time.Duration, error) {
	t0 := time.Now()
	if err := serializeNodes(ast.Tree, vars, resolved, out); err != nil {
		return 0, err
	}
	return time.Since(t0), nil
}

func serializeNodes(nodes []Node, vars *VariableTable, resolved map[string][]byte, out *bytes.Buffer) error {
	for _, n := range nodes {
		if err := serializeNode(n, vars, resolved, out); err != nil {
			return err
		}
	}
	return nil
}

func serializeNode(n Node, vars *VariableTable, resolved map[string][]byte, out *bytes.Buffer) error {
	switch n.Kind {
	case NodeRaw:
		out.WriteString(n.Raw)
		return nil
	case NodeExpr:
		return serializeExpr(n.Params, vars, out)
	case NodeInline:
		bs, ok := resolved[n.Inline]
		if !ok {
			return illegalAccess(fmt.Sprintf("inline %q was not resolved before serialize", n.Inline))
		}
		out.Write(bs)
		return nil
	case NodeTag:
		return serializeExpr(n.Params, vars, out)
	case NodeBlock:
		return serializeBlock(n, vars, resolved, out)
	default:
		return illegalAccess(fmt.Sprintf("unserializable node kind %d", n.Kind))
	}
}

// serializeExpr writes the textual form of a flat parameter list: each
// literal or resolved variable's String(), space-joined. This is the
// minimal parser's stand-in for a real expression evaluator.
func serializeExpr(params []ParamToken, vars *VariableTable, out *bytes.Buffer) error {
	for i, pt := range params {
		if i > 0 {
			out.WriteByte(' ')
		}
		switch pt.Kind {
		case ParamLiteral:
			out.WriteString(pt.Literal.String())
		case ParamVariable:
			d, ok := vars.Lookup(pt.Name)
			if !ok {
				return illegalAccess(fmt.Sprintf("undefined variable %q", pt.Name))
			}
			out.WriteString(d.String())
		case ParamKeyword:
			out.WriteString(pt.Keyword)
		case ParamOperator:
			out.WriteString(pt.Operator)
		case ParamFunction:
			out.WriteString(pt.Name)
		}
	}
	return nil
}

// serializeBlock evaluates each chain in order, running the body of the
// first chain whose condition is true (an "if"/"else" chain), or — for a
// "for" block — running the body once per item of the loop variable and
// sequence that evalChainCondition reports.
func serializeBlock(n Node, vars *VariableTable, resolved map[string][]byte, out *bytes.Buffer) error {
	for _, chain := range n.Chains {
		take, iterVar, iterItems, err := evalChainCondition(n.Name, chain, vars)
		if err != nil {
			return err
		}
		if !take {
			continue
		}
		if iterVar == "" {
			return serializeNodes(chain.Body, vars, resolved, out)
		}
		for _, item := range iterItems {
			scoped := &VariableTable{Self: vars.Self, Entries: cloneEntries(vars.Entries)}
			scoped.Entries[iterVar] = AsData(item)
			if err := serializeNodes(chain.Body, scoped, resolved, out); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

func cloneEntries(m map[string]*Data) map[string]*Data {
	out := make(map[string]*Data, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// evalChainCondition reports whether chain's body should run. "else" (no
// params) always matches. "for(item in variable)" reports its loop
// variable name and resolved slice. Any other opener/chain evaluates its
// first parameter's truthiness, matching an "if"-style condition.
func evalChainCondition(blockName string, chain Chain, vars *VariableTable) (take bool, iterVar string, items []interface{}, err error) {
	if blockName == "for" {
		return evalForChain(chain, vars)
	}
	if len(chain.Params) == 0 {
		return true, "", nil, nil
	}
	ok, err := evalTruthiness(chain.Params, vars)
	return ok, "", nil, err
}

// evalForChain expects exactly Variable(item), Keyword("in"), Variable(seq).
func evalForChain(chain Chain, vars *VariableTable) (bool, string, []interface{}, error) {
	if len(chain.Params) != 3 ||
		chain.Params[0].Kind != ParamVariable ||
		chain.Params[1].Kind != ParamKeyword || chain.Params[1].Keyword != "in" ||
		chain.Params[2].Kind != ParamVariable {
		return false, "", nil, newParseError("", Position{}, "malformed for(item in sequence)")
	}
	d, ok := vars.Lookup(chain.Params[2].Name)
	if !ok {
		return false, "", nil, illegalAccess(fmt.Sprintf("undefined variable %q", chain.Params[2].Name))
	}
	items, ok := asSlice(d)
	if !ok {
		return false, "", nil, nil
	}
	return len(items) > 0, chain.Params[0].Name, items, nil
}

func evalTruthiness(params []ParamToken, vars *VariableTable) (bool, error) {
	pt := params[0]
	switch pt.Kind {
	case ParamLiteral:
		switch pt.Literal.Kind {
		case ValueBool:
			return pt.Literal.Bool, nil
		case ValueInt:
			return pt.Literal.Int != 0, nil
		case ValueDouble:
			return pt.Literal.Double != 0, nil
		case ValueString:
			return pt.Literal.Str != "", nil
		default:
			return false, nil
		}
	case ParamVariable:
		d, ok := vars.Lookup(pt.Name)
		if !ok {
			return false, illegalAccess(fmt.Sprintf("undefined variable %q", pt.Name))
		}
		return d.IsTrue(), nil
	case ParamKeyword:
		switch pt.Keyword {
		case "true":
			return true, nil
		case "false", "nil":
			return false, nil
		}
	}
	return false, nil
}
