package leaf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func lexOK(t *testing.T, input string) []Token {
	t.Helper()
	tokens, err := Lex("test", input, DefaultRegistry(), 0)
	if err != nil {
		t.Fatalf("Lex(%q) returned error: %v", input, err)
	}
	return tokens
}

func diffTokens(t *testing.T, got, want []Token) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Token{}, "Pos")); diff != "" {
		t.Errorf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestLexPlainRaw(t *testing.T) {
	tokens := lexOK(t, "hello world")
	diffTokens(t, tokens, []Token{{Kind: TokRaw, Raw: "hello world"}})
}

func TestLexAnonymousTag(t *testing.T) {
	tokens := lexOK(t, "Hello, #(name)!")
	diffTokens(t, tokens, []Token{
		{Kind: TokRaw, Raw: "Hello, "},
		{Kind: TokTagMark},
		{Kind: TokTag, HasName: false},
		{Kind: TokParamsStart},
		{Kind: TokParam, Param: ParamToken{Kind: ParamVariable, Name: "name"}},
		{Kind: TokParamsEnd},
		{Kind: TokRaw, Raw: "!"},
	})
}

func TestLexUnknownTagDecaysToRaw(t *testing.T) {
	tokens := lexOK(t, "#bogus text")
	diffTokens(t, tokens, []Token{
		{Kind: TokRaw, Raw: "#"},
		{Kind: TokRaw, Raw: "bogus"},
		{Kind: TokRaw, Raw: " text"},
	})
}

func TestLexDoubleBackslashInvokesTagAttempt(t *testing.T) {
	// Two literal backslashes collapse to one, then "#foo" is scanned as a
	// live tag invocation attempt — which decays to raw since "foo" isn't a
	// registered entity.
	tokens := lexOK(t, `\\#foo`)
	diffTokens(t, tokens, []Token{
		{Kind: TokRaw, Raw: `\`},
		{Kind: TokRaw, Raw: "#"},
		{Kind: TokRaw, Raw: "foo"},
	})
}

func TestLexSingleBackslashEscapesTagIndicator(t *testing.T) {
	// A lone backslash directly before the tag indicator drops the
	// backslash and treats '#' as literal text; the tag is never invoked.
	tokens := lexOK(t, `\#foo`)
	diffTokens(t, tokens, []Token{{Kind: TokRaw, Raw: "#foo"}})
}

func TestLexVerbatimPassesThroughTagIndicator(t *testing.T) {
	tokens := lexOK(t, "#verbatim():a #(b) c#endverbatim")
	diffTokens(t, tokens, []Token{
		{Kind: TokRaw, Raw: "a #(b) c"},
	})
}

func TestLexIfElseEndif(t *testing.T) {
	tokens := lexOK(t, "#if(x):a#else:b#endif")
	diffTokens(t, tokens, []Token{
		{Kind: TokTagMark},
		{Kind: TokTag, Raw: "if", HasName: true},
		{Kind: TokParamsStart},
		{Kind: TokParam, Param: ParamToken{Kind: ParamVariable, Name: "x"}},
		{Kind: TokParamsEnd},
		{Kind: TokBlockMark},
		{Kind: TokRaw, Raw: "a"},
		{Kind: TokTagMark},
		{Kind: TokTag, Raw: "else", HasName: true},
		{Kind: TokBlockMark},
		{Kind: TokRaw, Raw: "b"},
		{Kind: TokTagMark},
		{Kind: TokTag, Raw: "endif", HasName: true},
	})
}

func TestLexEmptyArrayAndDictLiterals(t *testing.T) {
	tokens := lexOK(t, "#(a, [], [:])")
	var lits []Value
	for _, tok := range tokens {
		if tok.Kind == TokParam && tok.Param.Kind == ParamLiteral {
			lits = append(lits, tok.Param.Literal)
		}
	}
	if len(lits) != 2 || lits[0].Kind != ValueEmptyArray || lits[1].Kind != ValueEmptyDict {
		t.Fatalf("unexpected literals: %#v", lits)
	}
}

func TestLexMalformedEmptyContainerLiteral(t *testing.T) {
	_, err := Lex("test", "#(a, [::])", DefaultRegistry(), 0)
	if err == nil {
		t.Fatal("expected an error for [::]")
	}
}

func TestLexNumericBasesAndUnderscores(t *testing.T) {
	cases := []struct {
		input string
		kind  ValueKind
		i     int64
		f     float64
	}{
		{"5_000_000", ValueInt, 5000000, 0},
		{"0xFF", ValueInt, 255, 0},
		{"0b101", ValueInt, 5, 0},
		{"0o17", ValueInt, 15, 0},
		{"3.5", ValueDouble, 0, 3.5},
	}
	for _, c := range cases {
		tokens := lexOK(t, "#("+c.input+")")
		var lit Value
		for _, tok := range tokens {
			if tok.Kind == TokParam && tok.Param.Kind == ParamLiteral {
				lit = tok.Param.Literal
			}
		}
		if lit.Kind != c.kind {
			t.Errorf("%s: kind = %v, want %v", c.input, lit.Kind, c.kind)
		}
		if c.kind == ValueInt && lit.Int != c.i {
			t.Errorf("%s: int = %d, want %d", c.input, lit.Int, c.i)
		}
		if c.kind == ValueDouble && lit.Double != c.f {
			t.Errorf("%s: float = %v, want %v", c.input, lit.Double, c.f)
		}
	}
}

func TestLexBareRadixPrefixIsError(t *testing.T) {
	for _, input := range []string{"#(0x)", "#(0b)", "#(0o)"} {
		if _, err := Lex("test", input, DefaultRegistry(), 0); err == nil {
			t.Errorf("%s: expected error for bare radix prefix", input)
		}
	}
}

func TestLexMinusAbsorption(t *testing.T) {
	tokens := lexOK(t, "#(-5)")
	var lit Value
	var sawOperator bool
	for _, tok := range tokens {
		if tok.Kind == TokParam {
			switch tok.Param.Kind {
			case ParamLiteral:
				lit = tok.Param.Literal
			case ParamOperator:
				sawOperator = true
			}
		}
	}
	if sawOperator {
		t.Error("unary minus should have been absorbed, not emitted as an operator token")
	}
	if lit.Kind != ValueInt || lit.Int != -5 {
		t.Errorf("got %#v, want Int(-5)", lit)
	}
}

func TestLexBinaryMinusIsNotAbsorbed(t *testing.T) {
	tokens := lexOK(t, "#(a - 5)")
	var sawOperator bool
	var lit Value
	for _, tok := range tokens {
		if tok.Kind == TokParam {
			switch tok.Param.Kind {
			case ParamOperator:
				if tok.Param.Operator == "-" {
					sawOperator = true
				}
			case ParamLiteral:
				lit = tok.Param.Literal
			}
		}
	}
	if !sawOperator {
		t.Error("expected a standalone '-' operator token for a binary subtraction")
	}
	if lit.Kind != ValueInt || lit.Int != 5 {
		t.Errorf("got %#v, want Int(5)", lit)
	}
}

func TestLexKeywordBeforeMinusIsError(t *testing.T) {
	if _, err := Lex("test", "#(true -5)", DefaultRegistry(), 0); err == nil {
		t.Fatal("expected error for '-' immediately after a keyword")
	}
}

func TestLexUnterminatedStringIsError(t *testing.T) {
	if _, err := Lex("test", `#("unterminated)`, DefaultRegistry(), 0); err == nil {
		t.Fatal("expected error for unterminated string literal")
	}
}

func TestLexOperatorWhitespaceSensitivity(t *testing.T) {
	if _, err := Lex("test", "#(a . b)", DefaultRegistry(), 0); err == nil {
		t.Fatal("expected error: '.' cannot have adjacent whitespace")
	}
	tokens := lexOK(t, "#(a.b)")
	var ops []string
	for _, tok := range tokens {
		if tok.Kind == TokParam && tok.Param.Kind == ParamOperator {
			ops = append(ops, tok.Param.Operator)
		}
	}
	if len(ops) != 1 || ops[0] != "." {
		t.Errorf("got operators %v, want [.]", ops)
	}
}

func TestLexConfigurableTagIndicator(t *testing.T) {
	tokens, err := Lex("test", "Hello, @(name)!", DefaultRegistry(), '@')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diffTokens(t, tokens, []Token{
		{Kind: TokRaw, Raw: "Hello, "},
		{Kind: TokTagMark},
		{Kind: TokTag, HasName: false},
		{Kind: TokParamsStart},
		{Kind: TokParam, Param: ParamToken{Kind: ParamVariable, Name: "name"}},
		{Kind: TokParamsEnd},
		{Kind: TokRaw, Raw: "!"},
	})
}

func TestLexOpeningTrimStripsPrecedingWhitespace(t *testing.T) {
	tokens := lexOK(t, "a   #-(b)")
	diffTokens(t, tokens, []Token{
		{Kind: TokRaw, Raw: "a"},
		{Kind: TokTagMark, TrimWhitespace: true},
		{Kind: TokTag, HasName: false},
		{Kind: TokParamsStart},
		{Kind: TokParam, Param: ParamToken{Kind: ParamVariable, Name: "b"}},
		{Kind: TokParamsEnd},
	})
}

func TestLexClosingTrimStripsFollowingWhitespace(t *testing.T) {
	tokens := lexOK(t, "#if(x)-:   a#endif")
	diffTokens(t, tokens, []Token{
		{Kind: TokTagMark},
		{Kind: TokTag, Raw: "if", HasName: true},
		{Kind: TokParamsStart},
		{Kind: TokParam, Param: ParamToken{Kind: ParamVariable, Name: "x"}},
		{Kind: TokParamsEnd},
		{Kind: TokBlockMark, TrimWhitespace: true},
		{Kind: TokRaw, Raw: "a"},
		{Kind: TokTagMark},
		{Kind: TokTag, Raw: "endif", HasName: true},
	})
}

func TestLexChainedTerminalTrimAffix(t *testing.T) {
	tokens := lexOK(t, "#if(x):a#else-:   b#endif")
	diffTokens(t, tokens, []Token{
		{Kind: TokTagMark},
		{Kind: TokTag, Raw: "if", HasName: true},
		{Kind: TokParamsStart},
		{Kind: TokParam, Param: ParamToken{Kind: ParamVariable, Name: "x"}},
		{Kind: TokParamsEnd},
		{Kind: TokBlockMark},
		{Kind: TokRaw, Raw: "a"},
		{Kind: TokTagMark},
		{Kind: TokTag, Raw: "else", HasName: true},
		{Kind: TokBlockMark, TrimWhitespace: true},
		{Kind: TokRaw, Raw: "b"},
		{Kind: TokTagMark},
		{Kind: TokTag, Raw: "endif", HasName: true},
	})
}

func TestLexBareCloserTrimAffix(t *testing.T) {
	tokens := lexOK(t, "#if(x):a#endif-   b")
	diffTokens(t, tokens, []Token{
		{Kind: TokTagMark},
		{Kind: TokTag, Raw: "if", HasName: true},
		{Kind: TokParamsStart},
		{Kind: TokParam, Param: ParamToken{Kind: ParamVariable, Name: "x"}},
		{Kind: TokParamsEnd},
		{Kind: TokBlockMark},
		{Kind: TokRaw, Raw: "a"},
		{Kind: TokTagMark},
		{Kind: TokTag, Raw: "endif", HasName: true, TrimWhitespace: true},
		{Kind: TokRaw, Raw: "b"},
	})
}

func TestLexTrailingMinusWithoutColonIsNotATrimAffix(t *testing.T) {
	// A '-' right after a parameter list that isn't immediately followed by
	// ':' is an ordinary literal character, not a trim affix.
	tokens := lexOK(t, "#(a)- b")
	diffTokens(t, tokens, []Token{
		{Kind: TokTagMark},
		{Kind: TokTag, HasName: false},
		{Kind: TokParamsStart},
		{Kind: TokParam, Param: ParamToken{Kind: ParamVariable, Name: "a"}},
		{Kind: TokParamsEnd},
		{Kind: TokRaw, Raw: "- b"},
	})
}
