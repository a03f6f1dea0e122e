// model/attribute.go
package model

import (
	"reflect"
	"time"
)

// DataType is the declared type of an attribute in the catalog.
type DataType string

const (
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeBoolean DataType = "boolean"
	TypeDate    DataType = "date"
	TypeArray   DataType = "array"
	TypeObject  DataType = "object"
)

// Category partitions attribute paths into the four request namespaces.
type Category string

const (
	CategorySubject     Category = "subject"
	CategoryResource    Category = "resource"
	CategoryEnvironment Category = "environment"
	CategoryAction      Category = "action"
)

// AttributeDefinition describes a single attribute path known to the catalog.
// Definitions are immutable once registered.
type AttributeDefinition struct {
	Path           string     `json:"path"`
	DataType       DataType   `json:"data_type"`
	Category       Category   `json:"category"`
	ValidOperators []Operator `json:"valid_operators"`
	IsRequired     bool       `json:"is_required"`
	IsSystem       bool       `json:"is_system"`
	Description    string     `json:"description,omitempty"`
}

// ValueKind discriminates the runtime type of a resolved attribute value.
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindDate
	KindArray
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindDate:
		return "date"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "absent"
	}
}

// TypedValue is a tagged union holding one resolved attribute value. The zero
// value is the absent sentinel: a path that resolved to nothing. Absent is
// distinct from an explicit null or empty value and makes value-comparing
// conditions evaluate false instead of failing.
type TypedValue struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	Date time.Time
	Arr  []TypedValue
	Obj  map[string]TypedValue
}

// Absent is the sentinel returned for unresolved attribute paths.
var Absent = TypedValue{Kind: KindAbsent}

func StringValue(s string) TypedValue  { return TypedValue{Kind: KindString, Str: s} }
func NumberValue(n float64) TypedValue { return TypedValue{Kind: KindNumber, Num: n} }
func BoolValue(b bool) TypedValue      { return TypedValue{Kind: KindBool, Bool: b} }
func DateValue(t time.Time) TypedValue { return TypedValue{Kind: KindDate, Date: t} }

func ArrayValue(items ...TypedValue) TypedValue {
	return TypedValue{Kind: KindArray, Arr: items}
}

func ObjectValue(fields map[string]TypedValue) TypedValue {
	return TypedValue{Kind: KindObject, Obj: fields}
}

// StringArrayValue builds an array value from plain strings.
func StringArrayValue(items []string) TypedValue {
	arr := make([]TypedValue, len(items))
	for i, s := range items {
		arr[i] = StringValue(s)
	}
	return TypedValue{Kind: KindArray, Arr: arr}
}

func (v TypedValue) IsAbsent() bool { return v.Kind == KindAbsent }

// Equal reports structural equality between two values. Values of different
// kinds are never equal; absent equals nothing, including another absent.
func (v TypedValue) Equal(other TypedValue) bool {
	if v.Kind == KindAbsent || other.Kind == KindAbsent || v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == other.Str
	case KindNumber:
		return v.Num == other.Num
	case KindBool:
		return v.Bool == other.Bool
	case KindDate:
		return v.Date.Equal(other.Date)
	case KindArray:
		if len(v.Arr) != len(other.Arr) {
			return false
		}
		for i := range v.Arr {
			if !v.Arr[i].Equal(other.Arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.Obj) != len(other.Obj) {
			return false
		}
		for k, val := range v.Obj {
			ov, ok := other.Obj[k]
			if !ok || !val.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts the value back to a plain Go representation, primarily
// for logging and JSON responses.
func (v TypedValue) Interface() interface{} {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindDate:
		return v.Date
	case KindArray:
		out := make([]interface{}, len(v.Arr))
		for i, item := range v.Arr {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.Obj))
		for k, item := range v.Obj {
			out[k] = item.Interface()
		}
		return out
	}
	return nil
}

// FromAny converts an arbitrary Go value (typically decoded JSON or a
// caller-supplied environment entry) into a TypedValue. Unknown types and nil
// map to Absent.
func FromAny(value interface{}) TypedValue {
	switch v := value.(type) {
	case nil:
		return Absent
	case TypedValue:
		return v
	case string:
		return StringValue(v)
	case bool:
		return BoolValue(v)
	case int:
		return NumberValue(float64(v))
	case int32:
		return NumberValue(float64(v))
	case int64:
		return NumberValue(float64(v))
	case float32:
		return NumberValue(float64(v))
	case float64:
		return NumberValue(v)
	case time.Time:
		return DateValue(v)
	case *time.Time:
		if v == nil {
			return Absent
		}
		return DateValue(*v)
	case []string:
		return StringArrayValue(v)
	case []interface{}:
		arr := make([]TypedValue, len(v))
		for i, item := range v {
			arr[i] = FromAny(item)
		}
		return TypedValue{Kind: KindArray, Arr: arr}
	case map[string]interface{}:
		obj := make(map[string]TypedValue, len(v))
		for k, item := range v {
			obj[k] = FromAny(item)
		}
		return TypedValue{Kind: KindObject, Obj: obj}
	default:
		// Last resort for slices of concrete types coming from callers.
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice {
			arr := make([]TypedValue, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				arr[i] = FromAny(rv.Index(i).Interface())
			}
			return TypedValue{Kind: KindArray, Arr: arr}
		}
		return Absent
	}
}

// AttributeContext is the request-scoped snapshot of resolved attributes,
// keyed by dotted path (subject.*, resource.*, environment.*, action.*).
// It is built once per evaluation and must not be mutated afterwards; every
// read goes through Get, which returns Absent instead of failing.
type AttributeContext struct {
	values map[string]TypedValue
}

func NewAttributeContext() *AttributeContext {
	return &AttributeContext{values: make(map[string]TypedValue)}
}

// Set stores a value under the given path. Absent values are ignored so a
// degraded namespace lookup leaves the path unresolved rather than storing a
// hole.
func (c *AttributeContext) Set(path string, value TypedValue) {
	if value.IsAbsent() {
		return
	}
	c.values[path] = value
}

// Get returns the value at path, or Absent when the path never resolved.
func (c *AttributeContext) Get(path string) TypedValue {
	if v, ok := c.values[path]; ok {
		return v
	}
	return Absent
}

// Has reports whether the path resolved to a value.
func (c *AttributeContext) Has(path string) bool {
	_, ok := c.values[path]
	return ok
}

// Len returns the number of resolved attributes.
func (c *AttributeContext) Len() int {
	return len(c.values)
}

// Paths returns all resolved paths, unordered.
func (c *AttributeContext) Paths() []string {
	paths := make([]string, 0, len(c.values))
	for p := range c.values {
		paths = append(paths, p)
	}
	return paths
}
