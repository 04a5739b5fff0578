package product

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestStringifyAttribute(t *testing.T) {
	tests := []struct {
		name     string
		attrType string
		value    interface{}
		want     string
	}{
		{"true", AttributeBoolean, true, "1"},
		{"false", AttributeBoolean, false, "0"},
		{"bool given as text", AttributeBoolean, "false", "0"},
		{"checkbox on", AttributeBoolean, "on", "1"},
		{"float", AttributeNumber, 12.5, "12.5"},
		{"whole float", AttributeNumber, float64(3), "3"},
		{"int", AttributeInteger, 7, "7"},
		{"text", AttributeText, "hello", "hello"},
		{"nil", AttributeText, nil, ""},
		{"list", AttributeJSON, []interface{}{"a", float64(1)}, `["a",1]`},
		{"object", AttributeJSON, map[string]interface{}{"k": "v"}, `{"k":"v"}`},
		{"json text kept", AttributeJSON, `{"k":"v"}`, `{"k":"v"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StringifyAttribute(tt.attrType, tt.value)
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCastAttribute(t *testing.T) {
	tests := []struct {
		attrType string
		raw      string
		want     interface{}
	}{
		{AttributeNumber, "12.50", 12.5},
		{AttributeNumber, "abc", float64(0)},
		{AttributeInteger, "42", int64(42)},
		{AttributeInteger, "4.9", int64(4)},
		{AttributeBoolean, "1", true},
		{AttributeBoolean, "0", false},
		{AttributeBoolean, "", false},
		{AttributeJSON, `["a","b"]`, []interface{}{"a", "b"}},
		{AttributeJSON, `not json`, nil},
		{AttributeText, "plain", "plain"},
		{AttributeDate, "2024-01-01", "2024-01-01"},
	}

	for _, tt := range tests {
		if got := CastAttribute(tt.attrType, tt.raw); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("CastAttribute(%s, %q) = %#v, want %#v", tt.attrType, tt.raw, got, tt.want)
		}
	}
}

func TestProperty_AttributeRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("booleans survive stringify then cast", prop.ForAll(
		func(b bool) bool {
			s, err := StringifyAttribute(AttributeBoolean, b)
			return err == nil && CastAttribute(AttributeBoolean, s) == b
		},
		gen.Bool(),
	))

	properties.Property("integers survive stringify then cast", prop.ForAll(
		func(n int64) bool {
			s, err := StringifyAttribute(AttributeInteger, n)
			return err == nil && CastAttribute(AttributeInteger, s) == n
		},
		gen.Int64(),
	))

	properties.Property("numbers survive stringify then cast", prop.ForAll(
		func(f float64) bool {
			s, err := StringifyAttribute(AttributeNumber, f)
			return err == nil && CastAttribute(AttributeNumber, s) == f
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.Property("text is stored verbatim", prop.ForAll(
		func(s string) bool {
			out, err := StringifyAttribute(AttributeText, s)
			return err == nil && CastAttribute(AttributeText, out) == s
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestParseAttributeInputs(t *testing.T) {
	t.Run("list with both key styles", func(t *testing.T) {
		inputs, err := ParseAttributeInputs([]interface{}{
			map[string]interface{}{"attribute_name": "Battery", "attribute_value": "30h", "attribute_type": "text", "id": float64(9)},
			map[string]interface{}{"name": "Wireless", "value": true},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(inputs) != 2 {
			t.Fatalf("len = %d", len(inputs))
		}
		if inputs[0].ID == nil || *inputs[0].ID != 9 || inputs[0].Name != "Battery" {
			t.Errorf("first = %+v", inputs[0])
		}
		if inputs[1].ID != nil || inputs[1].Type != AttributeBoolean || inputs[1].Order != 1 {
			t.Errorf("second = %+v", inputs[1])
		}
	})

	t.Run("map", func(t *testing.T) {
		inputs, err := ParseAttributeInputs(map[string]interface{}{"weight": float64(250), "color": "black"})
		if err != nil {
			t.Fatal(err)
		}
		if inputs[0].Name != "color" || inputs[0].Type != AttributeText {
			t.Errorf("first = %+v", inputs[0])
		}
		if inputs[1].Name != "weight" || inputs[1].Type != AttributeNumber || inputs[1].Order != 1 {
			t.Errorf("second = %+v", inputs[1])
		}
	})

	t.Run("rejects bad shapes", func(t *testing.T) {
		if _, err := ParseAttributeInputs("nope"); err == nil {
			t.Error("expected error for string input")
		}
		if _, err := ParseAttributeInputs([]interface{}{map[string]interface{}{"value": 1}}); err == nil {
			t.Error("expected error for missing name")
		}
		if _, err := ParseAttributeInputs([]interface{}{map[string]interface{}{"name": "x", "type": "blob"}}); err == nil {
			t.Error("expected error for unknown type")
		}
	})
}
