package leaf

import "fmt"

// TokenKind tags the variant held by a Token. Token is modeled as a tagged
// struct (one Kind field plus payload fields) rather than an interface
// hierarchy, per SPEC_FULL.md section 9 ("do not use open inheritance").
type TokenKind int

const (
	TokRaw TokenKind = iota
	TokTagMark
	TokTag
	TokBlockMark
	TokParamsStart
	TokParamsEnd
	TokParamDelimit
	TokLabelMark
	TokParam
	TokWhitespace
)

func (k TokenKind) String() string {
	switch k {
	case TokRaw:
		return "Raw"
	case TokTagMark:
		return "TagMark"
	case TokTag:
		return "Tag"
	case TokBlockMark:
		return "BlockMark"
	case TokParamsStart:
		return "ParamsStart"
	case TokParamsEnd:
		return "ParamsEnd"
	case TokParamDelimit:
		return "ParamDelimit"
	case TokLabelMark:
		return "LabelMark"
	case TokParam:
		return "Param"
	case TokWhitespace:
		return "Whitespace"
	default:
		return "Unknown"
	}
}

// ParamKind tags the variant held by a ParamToken.
type ParamKind int

const (
	ParamLiteral ParamKind = iota
	ParamOperator
	ParamKeyword
	ParamFunction
	ParamVariable
)

// ParamToken is the payload of a TokParam token: a literal value, an
// operator, a reserved keyword, or the name of a function/variable
// reference appearing inside a parameter list.
type ParamToken struct {
	Kind     ParamKind
	Literal  Value
	Operator string
	Keyword  string
	Name     string // Function or Variable name
}

// Token is a single lexical element produced by the Lexer.
type Token struct {
	Kind TokenKind

	// Raw holds literal text for TokRaw, the whitespace run for
	// TokWhitespace, and the tag name for TokTag (empty + HasName=false for
	// an anonymous "#(expr)" tag).
	Raw     string
	HasName bool

	Param ParamToken

	Pos Position

	// TrimWhitespace marks a TagMark/BlockMark/bare-closer Tag that carried
	// a '-' trim affix. The lexer has already stripped the adjacent raw
	// whitespace by the time this token is emitted (SPEC_FULL.md section
	// 4.3, "whitespace-trim delimiters"); the flag survives only as a
	// record of where a trim fired.
	TrimWhitespace bool
}

func (t Token) String() string {
	switch t.Kind {
	case TokRaw:
		return fmt.Sprintf("Raw(%q)@%s", t.Raw, t.Pos)
	case TokTag:
		if !t.HasName {
			return fmt.Sprintf("Tag(<anon>)@%s", t.Pos)
		}
		return fmt.Sprintf("Tag(%s)@%s", t.Raw, t.Pos)
	case TokParam:
		return fmt.Sprintf("Param(%s)@%s", t.Param.describe(), t.Pos)
	case TokWhitespace:
		return fmt.Sprintf("Whitespace(%q)@%s", t.Raw, t.Pos)
	default:
		return fmt.Sprintf("%s@%s", t.Kind, t.Pos)
	}
}

func (p ParamToken) describe() string {
	switch p.Kind {
	case ParamLiteral:
		return fmt.Sprintf("Literal(%s)", p.Literal)
	case ParamOperator:
		return fmt.Sprintf("Operator(%s)", p.Operator)
	case ParamKeyword:
		return fmt.Sprintf("Keyword(%s)", p.Keyword)
	case ParamFunction:
		return fmt.Sprintf("Function(%s)", p.Name)
	case ParamVariable:
		return fmt.Sprintf("Variable(%s)", p.Name)
	default:
		return "?"
	}
}
