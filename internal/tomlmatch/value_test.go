// SPDX-License-Identifier: MPL-2.0

package tomlmatch

import (
	"math"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

func TestFromAny(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"string", "a.star", StringValue("a.star")},
		{"integer", int64(42), IntegerValue(42)},
		{"float", 2.5, FloatValue(2.5)},
		{"boolean", true, BoolValue(true)},
		{"array", []any{"run.sh", int64(1)}, ArrayValue(StringValue("run.sh"), IntegerValue(1))},
		{
			"array of tables",
			[]map[string]any{{"script": "a.star"}},
			ArrayValue(TableValue(map[string]Value{"script": StringValue("a.star")})),
		},
		{
			"table",
			map[string]any{"host": "a", "port": int64(8080)},
			TableValue(map[string]Value{"host": StringValue("a"), "port": IntegerValue(8080)}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := FromAny(tt.in)
			if err != nil {
				t.Fatalf("FromAny() error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("FromAny() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFromAny_Unsupported(t *testing.T) {
	t.Parallel()

	if _, err := FromAny(struct{}{}); err == nil {
		t.Error("FromAny(struct{}{}) error = nil, want error")
	}
	if _, err := FromAny([]any{"ok", complex(1, 2)}); err == nil {
		t.Error("FromAny() with complex element error = nil, want error")
	}
}

func TestFromAny_Datetimes(t *testing.T) {
	t.Parallel()

	offset := time.Date(1979, 5, 27, 7, 32, 0, 0, time.FixedZone("", -7*3600))
	utc := offset.UTC()

	a, err := FromAny(offset)
	if err != nil {
		t.Fatal(err)
	}
	b, err := FromAny(utc)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Errorf("same instant in different zones not equal: %s vs %s", a, b)
	}

	local, err := FromAny(toml.LocalTime{Hour: 7, Minute: 32, Nanosecond: 500000000, Precision: 3})
	if err != nil {
		t.Fatal(err)
	}
	burnt, err := FromAny(time.Date(0, 1, 1, 7, 32, 0, 500000000, time.FixedZone(localTimeZone, 0)))
	if err != nil {
		t.Fatal(err)
	}
	if !local.Equal(burnt) {
		t.Errorf("local times from both decoders not equal: %q vs %q", local.str, burnt.str)
	}
	if local.Kind() != KindDatetime {
		t.Errorf("Kind() = %v, want datetime", local.Kind())
	}
}

func TestValue_Equal(t *testing.T) {
	t.Parallel()

	if !FloatValue(math.NaN()).Equal(FloatValue(math.NaN())) {
		t.Error("NaN should equal NaN")
	}
	if IntegerValue(1).Equal(FloatValue(1)) {
		t.Error("integer 1 should not equal float 1")
	}
	if ArrayValue(StringValue("a")).Equal(ArrayValue(StringValue("a"), StringValue("b"))) {
		t.Error("arrays of different length should not be equal")
	}
	if TableValue(map[string]Value{"a": IntegerValue(1)}).Equal(TableValue(map[string]Value{"b": IntegerValue(1)})) {
		t.Error("tables with different keys should not be equal")
	}
}

func TestValue_Accessors(t *testing.T) {
	t.Parallel()

	s, ok := StringValue("x").AsString()
	if !ok || s != "x" {
		t.Errorf("AsString() = %q, %v", s, ok)
	}
	if _, ok := IntegerValue(1).AsString(); ok {
		t.Error("AsString() on integer reported ok")
	}
	if elems := StringValue("x").Elems(); elems != nil {
		t.Errorf("Elems() on string = %v, want nil", elems)
	}
	if fields := ArrayValue().Fields(); fields != nil {
		t.Errorf("Fields() on array = %v, want nil", fields)
	}
	if b, ok := BoolValue(true).AsBool(); !ok || !b {
		t.Errorf("AsBool() = %v, %v", b, ok)
	}
}

func TestValue_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		v    Value
		want string
	}{
		{StringValue("a.star"), "'a.star'"},
		{StringValue("it's"), `"it's"`},
		{IntegerValue(7), "7"},
		{BoolValue(false), "false"},
		{ArrayValue(StringValue("run.sh"), IntegerValue(1)), "['run.sh', 1]"},
		{Value{}, "<invalid>"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
