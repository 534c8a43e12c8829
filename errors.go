package leaf

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/kr/pretty"
)

// Position is a 1-based line/column location within a named template source.
type Position struct {
	Line int
	Col  int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// LexerErrorKind classifies the ways lexing can fail.
type LexerErrorKind int

const (
	LexUnknown LexerErrorKind = iota
	LexInvalidParameterToken
	LexInvalidOperator
	LexUnterminatedString
	LexOpenParametersAtEOF
	LexOpenComment
)

func (k LexerErrorKind) String() string {
	switch k {
	case LexInvalidParameterToken:
		return "invalidParameterToken"
	case LexInvalidOperator:
		return "invalidOperator"
	case LexUnterminatedString:
		return "unterminatedStringLiteral"
	case LexOpenParametersAtEOF:
		return "openParametersAtEOF"
	case LexOpenComment:
		return "openComment"
	default:
		return "unknown"
	}
}

// LexerError reports a failure to tokenize a template. It carries the source
// position and the partial token stream produced so far, which is useful for
// diagnosing where the state machine went off the rails.
type LexerError struct {
	Kind    LexerErrorKind
	Name    string
	Message string
	Pos     Position
	Partial []Token
	cause   error
}

func newLexerError(name string, kind LexerErrorKind, pos Position, partial []Token, format string, args ...interface{}) *LexerError {
	msg := fmt.Sprintf(format, args...)
	return &LexerError{
		Kind:    kind,
		Name:    name,
		Message: msg,
		Pos:     pos,
		Partial: append([]Token(nil), partial...),
		cause:   errors.Annotatef(errors.New(msg), "lex %s at %s", name, pos),
	}
}

func (e *LexerError) Error() string {
	return fmt.Sprintf("[lexer %s in %s | %s] %s", e.Kind, e.Name, e.Pos, e.Message)
}

func (e *LexerError) Unwrap() error { return e.cause }

// Dump renders the partial token stream for diagnostics. It is deliberately
// separate from Error() since most callers never need it.
func (e *LexerError) Dump() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", e.Error())
	for _, tok := range e.Partial {
		fmt.Fprintf(&sb, "  %# v\n", pretty.Formatter(tok))
	}
	return sb.String()
}

// ParseError wraps a failure from the (minimal, unspecified-grammar) parser.
// The parser's grammar is an implementation detail outside this module's
// core contract; only position + message are guaranteed.
type ParseError struct {
	Name    string
	Pos     Position
	Message string
	cause   error
}

func newParseError(name string, pos Position, format string, args ...interface{}) *ParseError {
	msg := fmt.Sprintf(format, args...)
	return &ParseError{Name: name, Pos: pos, Message: msg, cause: errors.Annotatef(errors.New(msg), "parse %s at %s", name, pos)}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("[parser in %s | %s] %s", e.Name, e.Pos, e.Message)
}

func (e *ParseError) Unwrap() error { return e.cause }

// RenderErrorKind classifies orchestration-level render failures.
type RenderErrorKind int

const (
	RenderUnknown RenderErrorKind = iota
	RenderNoTemplateExists
	RenderIllegalAccess
	RenderCyclicalReference
)

// RenderError is returned by Renderer.Render and Renderer.RenderFrom.
type RenderError struct {
	Kind    RenderErrorKind
	Message string
	Name    string   // offending node for CyclicalReference
	Chain   []string // full ancestor chain for CyclicalReference
	cause   error
}

func newRenderError(kind RenderErrorKind, cause error, format string, args ...interface{}) *RenderError {
	msg := fmt.Sprintf(format, args...)
	var wrapped error
	if cause != nil {
		wrapped = errors.Annotate(cause, msg)
	} else {
		wrapped = errors.New(msg)
	}
	return &RenderError{Kind: kind, Message: msg, cause: wrapped}
}

func (e *RenderError) Error() string {
	switch e.Kind {
	case RenderCyclicalReference:
		return fmt.Sprintf("[render] cyclical reference at %q: chain %s", e.Name, strings.Join(e.Chain, " -> "))
	default:
		return fmt.Sprintf("[render] %s", e.Message)
	}
}

func (e *RenderError) Unwrap() error { return e.cause }

func noTemplateExists(name string) *RenderError {
	return newRenderError(RenderNoTemplateExists, errors.NotFoundf("template %q", name), "no template exists named %q", name)
}

func illegalAccess(msg string) *RenderError {
	return newRenderError(RenderIllegalAccess, nil, "%s", msg)
}

func cyclicalReference(name string, chain []string) *RenderError {
	e := newRenderError(RenderCyclicalReference, nil, "cyclical reference involving %q", name)
	e.Name = name
	e.Chain = append([]string(nil), chain...)
	return e
}

// CacheErrorKind classifies cache-operation failures.
type CacheErrorKind int

const (
	CacheUnknown CacheErrorKind = iota
	CacheKeyExists
)

// CacheError is returned by Cache/SyncCache Insert when replace=false and an
// entry with the same name already exists, or when a backing store fails.
type CacheError struct {
	Kind    CacheErrorKind
	Name    string
	Message string
	cause   error
}

func (e *CacheError) Error() string {
	if e.Kind == CacheKeyExists {
		return fmt.Sprintf("[cache] %q already exists", e.Name)
	}
	return fmt.Sprintf("[cache] %s", e.Message)
}

func (e *CacheError) Unwrap() error { return e.cause }

func keyExistsError(name string) *CacheError {
	return &CacheError{Kind: CacheKeyExists, Name: name, cause: errors.AlreadyExistsf("AST %q", name)}
}

func cacheIOError(cause error) *CacheError {
	return &CacheError{Kind: CacheUnknown, Message: cause.Error(), cause: errors.Trace(cause)}
}

// SourceErrorKind classifies SourceSet resolution failures.
type SourceErrorKind int

const (
	SourceUnknown SourceErrorKind = iota
	SourceNotFound
	SourceIO
)

// SourceError is returned by SourceSet.Find and the individual Source
// implementations.
type SourceError struct {
	Kind    SourceErrorKind
	Key     string
	Message string
	cause   error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("[source %q] %s", e.Key, e.Message)
}

func (e *SourceError) Unwrap() error { return e.cause }

func sourceNotFound(key string) *SourceError {
	return &SourceError{Kind: SourceNotFound, Key: key, Message: "not found", cause: errors.NotFoundf("source %q", key)}
}

func sourceIOError(key string, cause error) *SourceError {
	return &SourceError{Kind: SourceIO, Key: key, Message: cause.Error(), cause: errors.Trace(cause)}
}
