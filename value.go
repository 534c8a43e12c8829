package leaf

import (
	"fmt"
	"reflect"
	"strconv"
)

// Data wraps an arbitrary Go value supplied by the host application (as
// Context entries or userInfo) so the serializer can inspect it without the
// core needing to know the host's concrete types. This is the module's only
// touchpoint with the "runtime value/data model", which SPEC_FULL.md treats
// as an external collaborator: Data intentionally stays a thin reflect
// wrapper rather than growing into a full expression-evaluation value type.
type Data struct {
	v reflect.Value
}

// AsData boxes an arbitrary value for use in a variable table.
func AsData(i interface{}) *Data {
	return &Data{v: reflect.ValueOf(i)}
}

// TemplateDataConvertible lets a host type control its own representation
// in the variable table, matching the "to_template_data conversion" contract
// SPEC_FULL.md requires for userInfo entries (see newVariableTable).
type TemplateDataConvertible interface {
	ToTemplateData() interface{}
}

func (d *Data) resolved() reflect.Value {
	v := d.v
	for v.IsValid() && v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	return v
}

func (d *Data) IsNil() bool {
	return !d.resolved().IsValid()
}

func (d *Data) IsString() bool { return d.resolved().Kind() == reflect.String }

func (d *Data) IsNumber() bool {
	switch d.resolved().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func (d *Data) String() string {
	switch d.resolved().Kind() {
	case reflect.String:
		return d.resolved().String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(d.resolved().Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(d.resolved().Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(d.resolved().Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(d.resolved().Bool())
	default:
		if d.IsNil() {
			return ""
		}
		return fmt.Sprintf("%v", d.Interface())
	}
}

func (d *Data) Bool() bool {
	if d.resolved().Kind() == reflect.Bool {
		return d.resolved().Bool()
	}
	return false
}

// IsTrue reports the value's truthiness for use in block conditions
// (numbers: non-zero, strings/slices/maps: non-empty, bool: itself).
func (d *Data) IsTrue() bool {
	switch d.resolved().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return d.resolved().Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return d.resolved().Uint() != 0
	case reflect.Float32, reflect.Float64:
		return d.resolved().Float() != 0
	case reflect.Array, reflect.Chan, reflect.Map, reflect.Slice, reflect.String:
		return d.resolved().Len() > 0
	case reflect.Bool:
		return d.resolved().Bool()
	default:
		return !d.IsNil()
	}
}

// asSlice reports d's elements as a []interface{} if it resolves to an
// Array or Slice kind, for the minimal parser's "for" chain iteration.
func asSlice(d *Data) ([]interface{}, bool) {
	v := d.resolved()
	if v.Kind() != reflect.Array && v.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]interface{}, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out, true
}

func (d *Data) Interface() interface{} {
	if d.v.IsValid() {
		return d.v.Interface()
	}
	return nil
}
