// internal/domain/product/attributes.go
package product

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductDetail attribute types
const (
	AttributeText    = "text"
	AttributeNumber  = "number"
	AttributeInteger = "integer"
	AttributeBoolean = "boolean"
	AttributeDate    = "date"
	AttributeURL     = "url"
	AttributeJSON    = "json"
)

// AttributeTypes lists the attribute types offered to admin forms
func AttributeTypes() []string {
	return []string{AttributeText, AttributeNumber, AttributeInteger, AttributeBoolean, AttributeDate, AttributeURL, AttributeJSON}
}

// IsAttributeType reports whether t is a known attribute type
func IsAttributeType(t string) bool {
	for _, known := range AttributeTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// AttributeInput is one dynamic attribute to persist. ID, when set, targets an existing row.
type AttributeInput struct {
	ID    *uint
	Name  string
	Value interface{}
	Type  string
	Order int
}

// StringifyAttribute converts a decoded value into its stored text form
func StringifyAttribute(attrType string, v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case bool:
		if val {
			return "1", nil
		}
		return "0", nil
	case string:
		if attrType == AttributeBoolean {
			return boolString(val), nil
		}
		return val, nil
	case json.Number:
		return val.String(), nil
	case float64:
		if attrType == AttributeBoolean {
			return boolString(strconv.FormatFloat(val, 'f', -1, 64)), nil
		}
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case decimal.Decimal:
		return val.String(), nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("failed to encode attribute value: %w", err)
		}
		return string(data), nil
	}
}

func boolString(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "off", "no":
		return "0"
	default:
		return "1"
	}
}

// CastAttribute reads a stored value back according to its attribute type
func CastAttribute(attrType, raw string) interface{} {
	switch attrType {
	case AttributeNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return float64(0)
		}
		return f
	case AttributeInteger:
		trimmed := strings.TrimSpace(raw)
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return int64(f)
		}
		return int64(0)
	case AttributeBoolean:
		return raw != "" && raw != "0"
	case AttributeJSON:
		var out interface{}
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil
		}
		return out
	default:
		return raw
	}
}

// CastedValue is the typed view of the stored text
func (d *ProductDetail) CastedValue() interface{} {
	return CastAttribute(d.AttributeType, d.AttributeValue)
}

// inferAttributeType picks a storage type for values submitted without one
func inferAttributeType(v interface{}) string {
	switch v.(type) {
	case bool:
		return AttributeBoolean
	case float64, float32, json.Number, decimal.Decimal:
		return AttributeNumber
	case int, int64, uint:
		return AttributeInteger
	case []interface{}, map[string]interface{}:
		return AttributeJSON
	default:
		return AttributeText
	}
}

// ParseAttributeInputs accepts either a list of records or a plain name => value map.
// Records may use name/attribute_name, value/attribute_value and type/attribute_type.
func ParseAttributeInputs(raw interface{}) ([]AttributeInput, error) {
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		inputs := make([]AttributeInput, 0, len(val))
		for i, item := range val {
			rec, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("attribute %d must be an object", i)
			}
			in, err := parseAttributeRecord(rec)
			if err != nil {
				return nil, fmt.Errorf("attribute %d: %w", i, err)
			}
			if in.Order == 0 {
				in.Order = i
			}
			inputs = append(inputs, in)
		}
		return inputs, nil
	case map[string]interface{}:
		names := make([]string, 0, len(val))
		for name := range val {
			names = append(names, name)
		}
		sort.Strings(names)

		inputs := make([]AttributeInput, 0, len(val))
		for i, name := range names {
			v := val[name]
			inputs = append(inputs, AttributeInput{Name: name, Value: v, Type: inferAttributeType(v), Order: i})
		}
		return inputs, nil
	default:
		return nil, fmt.Errorf("attributes must be a list or an object")
	}
}

func parseAttributeRecord(rec map[string]interface{}) (AttributeInput, error) {
	var in AttributeInput

	in.Name = firstString(rec, "attribute_name", "name")
	if strings.TrimSpace(in.Name) == "" {
		return in, fmt.Errorf("name is required")
	}

	if v, ok := rec["attribute_value"]; ok {
		in.Value = v
	} else {
		in.Value = rec["value"]
	}

	in.Type = firstString(rec, "attribute_type", "type")
	if in.Type == "" {
		in.Type = inferAttributeType(in.Value)
	}
	if !IsAttributeType(in.Type) {
		return in, fmt.Errorf("unknown attribute type %q", in.Type)
	}

	if id, ok := rec["id"].(float64); ok && id > 0 {
		u := uint(id)
		in.ID = &u
	}
	if order, ok := rec["order"].(float64); ok {
		in.Order = int(order)
	}
	return in, nil
}

func firstString(rec map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := rec[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
