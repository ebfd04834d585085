package table

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
	KindTable
	KindVector
	KindHandle
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTable:
		return "table"
	case KindVector:
		return "vector"
	case KindHandle:
		return "handle"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// IsList reports whether cells of this kind can be expanded by unnesting.
func (k Kind) IsList() bool { return k == KindTable || k == KindVector }

// IsScalar reports whether cells of this kind can serve as group keys.
func (k Kind) IsScalar() bool {
	return k == KindNull || k == KindNumber || k == KindString || k == KindBool
}

// compatible reports whether two kinds may share a column.
func compatible(a, b Kind) bool { return a == b || a == KindNull || b == KindNull }

// Value is a single table cell. The zero Value is null.
type Value struct {
	kind   Kind
	num    float64
	str    string
	b      bool
	tbl    *Table
	vec    []Value
	handle any
}

func Null() Value                { return Value{} }
func Number(f float64) Value     { return Value{kind: KindNumber, num: f} }
func String(s string) Value      { return Value{kind: KindString, str: s} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Handle(h any) Value         { return Value{kind: KindHandle, handle: h} }
func Vector(vals ...Value) Value { return Value{kind: KindVector, vec: append([]Value(nil), vals...)} }

// Nested wraps a sub-table. A nil table yields a null value.
func Nested(t *Table) Value {
	if t == nil {
		return Value{}
	}
	return Value{kind: KindTable, tbl: t}
}

// Numbers is a shorthand for a vector of numbers.
func Numbers(fs ...float64) Value {
	vals := make([]Value, len(fs))
	for i, f := range fs {
		vals[i] = Number(f)
	}
	return Value{kind: KindVector, vec: vals}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric payload.
func (v Value) Float() (float64, bool) { return v.num, v.kind == KindNumber }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Table returns the embedded sub-table, or nil.
func (v Value) Table() *Table {
	if v.kind != KindTable {
		return nil
	}
	return v.tbl
}

// Vector returns a copy of the vector elements, or nil.
func (v Value) Vector() []Value {
	if v.kind != KindVector {
		return nil
	}
	return append([]Value(nil), v.vec...)
}

// Index returns element i of a vector, or null when out of range or not a
// vector.
func (v Value) Index(i int) Value {
	if v.kind != KindVector || i < 0 || i >= len(v.vec) {
		return Value{}
	}
	return v.vec[i]
}

// Handle returns the opaque payload, or nil.
func (v Value) Handle() any {
	if v.kind != KindHandle {
		return nil
	}
	return v.handle
}

// Len is the number of rows a list cell expands to: sub-table rows or vector
// length. Null counts as zero; scalars and handles count as one.
func (v Value) Len() int {
	switch v.kind {
	case KindNull:
		return 0
	case KindTable:
		return v.tbl.NumRows()
	case KindVector:
		return len(v.vec)
	default:
		return 1
	}
}

// Equal compares two values structurally. Handles compare with ==, falling
// back to reflect.DeepEqual for non-comparable payloads.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindNumber:
		return v.num == o.num || (math.IsNaN(v.num) && math.IsNaN(o.num))
	case KindString:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	case KindTable:
		return v.tbl.Equal(o.tbl)
	case KindVector:
		if len(v.vec) != len(o.vec) {
			return false
		}
		for i := range v.vec {
			if !v.vec[i].Equal(o.vec[i]) {
				return false
			}
		}
		return true
	case KindHandle:
		if reflect.TypeOf(v.handle) != reflect.TypeOf(o.handle) {
			return false
		}
		if reflect.TypeOf(v.handle) != nil && reflect.TypeOf(v.handle).Comparable() {
			return v.handle == o.handle
		}
		return reflect.DeepEqual(v.handle, o.handle)
	}
	return false
}

// key returns a kind-tagged encoding used for grouping and multiset comparison.
func (v Value) key() string {
	switch v.kind {
	case KindNull:
		return "n:"
	case KindNumber:
		if v.num == 0 {
			// -0 and 0 are the same key.
			return "f:0"
		}
		return "f:" + strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return "s:" + strconv.Quote(v.str)
	case KindBool:
		return "b:" + strconv.FormatBool(v.b)
	case KindVector:
		parts := make([]string, len(v.vec))
		for i, e := range v.vec {
			parts[i] = e.key()
		}
		return "v:[" + strings.Join(parts, ",") + "]"
	case KindTable:
		return "t:" + v.tbl.fingerprint()
	default:
		return fmt.Sprintf("h:%T:%v", v.handle, v.handle)
	}
}

// String renders the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NA"
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTable:
		return fmt.Sprintf("<table [%d × %d]>", v.tbl.NumRows(), v.tbl.NumColumns())
	case KindVector:
		return fmt.Sprintf("<vector [%d]>", len(v.vec))
	default:
		if s, ok := v.handle.(fmt.Stringer); ok {
			return "<" + s.String() + ">"
		}
		return fmt.Sprintf("<%T>", v.handle)
	}
}
