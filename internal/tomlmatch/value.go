// SPDX-License-Identifier: MPL-2.0

package tomlmatch

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Value kinds.
const (
	KindInvalid Kind = iota
	KindString
	KindInteger
	KindFloat
	KindBoolean
	KindArray
	KindTable
	KindDatetime
)

// BurntSushi/toml reports local date/time values as time.Time in these
// synthetic locations.
const (
	localDatetimeZone = "datetime-local"
	localDateZone     = "date-local"
	localTimeZone     = "time-local"
)

type (
	// Kind identifies which member of the Value union is set.
	Kind int

	// Value is a decoded TOML value. Exactly one member is meaningful,
	// selected by Kind. The zero Value is invalid.
	Value struct {
		kind   Kind
		str    string
		i      int64
		f      float64
		b      bool
		elems  []Value
		fields map[string]Value
		// raw keeps the decoder's representation of a datetime so that it
		// can be rendered back by the encoder.
		raw any
	}
)

// StringValue returns a String value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// IntegerValue returns an Integer value.
func IntegerValue(i int64) Value { return Value{kind: KindInteger, i: i} }

// FloatValue returns a Float value.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// BoolValue returns a Boolean value.
func BoolValue(b bool) Value { return Value{kind: KindBoolean, b: b} }

// ArrayValue returns an Array value holding elems.
func ArrayValue(elems ...Value) Value {
	return Value{kind: KindArray, elems: slices.Clone(elems)}
}

// TableValue returns a Table value holding fields.
func TableValue(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindTable, fields: cp}
}

// FromAny converts a value produced by either TOML decoder (go-toml or
// BurntSushi/toml, decoding into map[string]any) into a Value.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case int64:
		return IntegerValue(x), nil
	case int:
		return IntegerValue(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, fmt.Errorf("integer %d overflows int64", x)
		}
		return IntegerValue(int64(x)), nil
	case float64:
		return FloatValue(x), nil
	case time.Time:
		return Value{kind: KindDatetime, str: timeText(x), raw: x}, nil
	case toml.LocalDate:
		return Value{kind: KindDatetime, str: x.String(), raw: x}, nil
	case toml.LocalTime:
		return Value{kind: KindDatetime, str: localTimeText(x), raw: x}, nil
	case toml.LocalDateTime:
		return Value{kind: KindDatetime, str: x.LocalDate.String() + "T" + localTimeText(x.LocalTime), raw: x}, nil
	case []any:
		elems := make([]Value, 0, len(x))
		for i, e := range x {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, ev)
		}
		return Value{kind: KindArray, elems: elems}, nil
	case []map[string]any:
		elems := make([]Value, 0, len(x))
		for i, e := range x {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, ev)
		}
		return Value{kind: KindArray, elems: elems}, nil
	case map[string]any:
		fields := make(map[string]Value, len(x))
		for k, e := range x {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = ev
		}
		return Value{kind: KindTable, fields: fields}, nil
	default:
		return Value{}, fmt.Errorf("unsupported TOML value type %T", v)
	}
}

// Kind returns the kind of v.
func (v Value) Kind() Kind { return v.kind }

// AsString returns the string held by a String value.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsInteger returns the integer held by an Integer value.
func (v Value) AsInteger() (int64, bool) { return v.i, v.kind == KindInteger }

// AsFloat returns the float held by a Float value.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBool returns the boolean held by a Boolean value.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBoolean }

// Elems returns the elements of an Array value, or nil for other kinds.
func (v Value) Elems() []Value {
	if v.kind != KindArray {
		return nil
	}
	return slices.Clone(v.elems)
}

// Fields returns the fields of a Table value, or nil for other kinds.
func (v Value) Fields() map[string]Value {
	if v.kind != KindTable {
		return nil
	}
	cp := make(map[string]Value, len(v.fields))
	for k, f := range v.fields {
		cp[k] = f
	}
	return cp
}

// Interface converts v back to the plain Go representation used by the
// decoders.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindBoolean:
		return v.b
	case KindDatetime:
		if v.raw != nil {
			return v.raw
		}
		return v.str
	case KindArray:
		out := make([]any, len(v.elems))
		for i, e := range v.elems {
			out[i] = e.Interface()
		}
		return out
	case KindTable:
		out := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.Interface()
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether v and other hold the same TOML value. NaN equals NaN
// and datetimes compare by their normalized text.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case KindString, KindDatetime:
		return v.str == other.str
	case KindInteger:
		return v.i == other.i
	case KindFloat:
		if math.IsNaN(v.f) && math.IsNaN(other.f) {
			return true
		}
		return v.f == other.f
	case KindBoolean:
		return v.b == other.b
	case KindArray:
		return slices.EqualFunc(v.elems, other.elems, Value.Equal)
	case KindTable:
		if len(v.fields) != len(other.fields) {
			return false
		}
		for k, f := range v.fields {
			o, ok := other.fields[k]
			if !ok || !f.Equal(o) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders v as a TOML literal using the go-toml encoder. Tables are
// rendered inline.
func (v Value) String() string {
	if v.kind == KindInvalid {
		return "<invalid>"
	}
	if v.kind == KindDatetime && v.raw == nil {
		return v.str
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf).SetTablesInline(true)
	if err := enc.Encode(map[string]any{"v": v.Interface()}); err != nil {
		return fmt.Sprint(v.Interface())
	}
	out := strings.TrimSuffix(buf.String(), "\n")
	return strings.TrimPrefix(out, "v = ")
}

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindArray:
		return "array"
	case KindTable:
		return "table"
	case KindDatetime:
		return "datetime"
	default:
		return "invalid"
	}
}

func timeText(t time.Time) string {
	switch t.Location().String() {
	case localDatetimeZone:
		return t.Format("2006-01-02T15:04:05.999999999")
	case localDateZone:
		return t.Format("2006-01-02")
	case localTimeZone:
		return t.Format("15:04:05.999999999")
	default:
		return t.UTC().Format(time.RFC3339Nano)
	}
}

func localTimeText(t toml.LocalTime) string {
	return time.Date(0, 1, 1, t.Hour, t.Minute, t.Second, t.Nanosecond, time.UTC).Format("15:04:05.999999999")
}
