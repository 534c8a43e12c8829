package leaf

import "strconv"

// ValueKind tags the variant held by a Value literal.
type ValueKind int

const (
	ValueInt ValueKind = iota
	ValueDouble
	ValueBool
	ValueString
	ValueEmptyArray
	ValueEmptyDict
)

// Value is a literal produced by the Lexer's Parameters state: one of
// Int, Double, Bool, String, EmptyArray, EmptyDict. Other container
// literals are a parser-level concern (SPEC_FULL.md section 4.2).
type Value struct {
	Kind   ValueKind
	Int    int64
	Double float64
	Bool   bool
	Str    string
}

func IntValue(i int64) Value      { return Value{Kind: ValueInt, Int: i} }
func DoubleValue(f float64) Value { return Value{Kind: ValueDouble, Double: f} }
func BoolValue(b bool) Value      { return Value{Kind: ValueBool, Bool: b} }
func StringValue(s string) Value  { return Value{Kind: ValueString, Str: s} }
func EmptyArrayValue() Value      { return Value{Kind: ValueEmptyArray} }
func EmptyDictValue() Value       { return Value{Kind: ValueEmptyDict} }

func (v Value) String() string {
	switch v.Kind {
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueString:
		return v.Str
	case ValueEmptyArray:
		return "[]"
	case ValueEmptyDict:
		return "[:]"
	default:
		return ""
	}
}

// negate flips the sign of a numeric Value. Used by the lexer to absorb a
// preceding unary minus into a numeric literal (SPEC_FULL.md section 4.3).
func (v Value) negate() Value {
	switch v.Kind {
	case ValueInt:
		v.Int = -v.Int
	case ValueDouble:
		v.Double = -v.Double
	}
	return v
}

// asInterface converts a Value literal to a plain Go value, for embedding
// literal parameters into a template-data variable table when the minimal
// parser needs to hand a constant to the serializer.
func (v Value) asInterface() interface{} {
	switch v.Kind {
	case ValueInt:
		return v.Int
	case ValueDouble:
		return v.Double
	case ValueBool:
		return v.Bool
	case ValueString:
		return v.Str
	case ValueEmptyArray:
		return []interface{}{}
	case ValueEmptyDict:
		return map[string]interface{}{}
	default:
		return nil
	}
}
