package leaf

import (
	"context"
	"regexp"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Context is the caller-supplied data for a single render. Its keys become
// the "self" scope the template's variable expressions resolve against.
type Context map[string]interface{}

// UserInfo is heterogeneous host-supplied data merged into the variable
// table alongside "self". Only string keys that are valid identifiers and
// values representable as template data are merged; everything else is
// skipped silently, per SPEC_FULL.md section 9 ("Dynamic user context").
type UserInfo map[string]interface{}

// VariableTable is what Serialize receives: the resolved scope a template's
// Variable(name) parameter tokens are looked up against.
type VariableTable struct {
	Self    Context
	Entries map[string]*Data
}

func newVariableTable(ctx Context, info UserInfo) *VariableTable {
	vt := &VariableTable{
		Self:    ctx,
		Entries: make(map[string]*Data, len(info)),
	}
	for k, v := range info {
		if !isValidIdentifier(k) {
			continue
		}
		if conv, ok := v.(TemplateDataConvertible); ok {
			v = conv.ToTemplateData()
		}
		d := AsData(v)
		if d.IsNil() && v != nil {
			// a nil pointer, which resolves to nothing; skip rather than
			// storing a useless entry. An untyped nil is kept.
			continue
		}
		vt.Entries[k] = d
	}
	return vt
}

type userInfoKey struct{}

// WithUserInfo attaches info to ctx so Renderer.Render and Renderer.RenderFrom
// merge it into the variable table alongside the caller's Context, making
// the pipeline's userInfo augmentation step reachable without changing
// either method's signature.
func WithUserInfo(ctx context.Context, info UserInfo) context.Context {
	return context.WithValue(ctx, userInfoKey{}, info)
}

func userInfoFromContext(ctx context.Context) UserInfo {
	info, _ := ctx.Value(userInfoKey{}).(UserInfo)
	return info
}

// Lookup resolves a variable name against "self" first, then userInfo.
func (vt *VariableTable) Lookup(name string) (*Data, bool) {
	if name == "self" {
		return AsData(vt.Self), true
	}
	if v, ok := vt.Self[name]; ok {
		return AsData(v), true
	}
	if d, ok := vt.Entries[name]; ok {
		return d, true
	}
	return nil, false
}
