// internal/domain/product/fields.go
package product

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// fieldType describes how values of a category field type are validated
type fieldType struct {
	// rule added after required/nullable, empty when the type adds none
	rule string
	// choice types restrict values to the field's options
	choice bool
	// attribute type used when the value is stored as a ProductDetail
	attribute string
}

var fieldTypes = map[string]fieldType{
	"text":     {attribute: AttributeText},
	"textarea": {attribute: AttributeText},
	"number":   {rule: "numeric", attribute: AttributeNumber},
	"email":    {rule: "email", attribute: AttributeText},
	"url":      {rule: "url", attribute: AttributeURL},
	"date":     {rule: "date", attribute: AttributeDate},
	"datetime": {rule: "date", attribute: AttributeDate},
	"time":     {attribute: AttributeText},
	"select":   {choice: true, attribute: AttributeText},
	"checkbox": {choice: true, attribute: AttributeText},
	"radio":    {choice: true, attribute: AttributeText},
	"file":     {attribute: AttributeText},
	"image":    {attribute: AttributeText},
}

// FieldTypes lists the supported category field types in display order
func FieldTypes() []string {
	return []string{"text", "textarea", "number", "email", "url", "date", "datetime", "time", "select", "checkbox", "radio", "file", "image"}
}

// IsFieldType reports whether t is a supported field type
func IsFieldType(t string) bool {
	_, ok := fieldTypes[t]
	return ok
}

// DefaultLabel turns a field name like "screen_size" into "Screen Size"
func DefaultLabel(name string) string {
	return cases.Title(language.English).String(strings.NewReplacer("_", " ", "-", " ").Replace(name))
}

// OptionsList splits the comma separated options, dropping blanks
func (f *CategoryField) OptionsList() []string {
	if strings.TrimSpace(f.Options) == "" {
		return nil
	}
	var out []string
	for _, opt := range strings.Split(f.Options, ",") {
		if opt = strings.TrimSpace(opt); opt != "" {
			out = append(out, opt)
		}
	}
	return out
}

// Rules derives the rule list from type, required flag and extra rules
func (f *CategoryField) Rules() []string {
	rules := []string{"nullable"}
	if f.IsRequired {
		rules[0] = "required"
	}

	ft := fieldTypes[f.Type]
	if ft.rule != "" {
		rules = append(rules, ft.rule)
	}
	if ft.choice {
		if opts := f.OptionsList(); len(opts) > 0 {
			rules = append(rules, "in:"+strings.Join(opts, ","))
		}
	}

	return append(rules, f.ValidationRules...)
}

// AttributeType is the ProductDetail type used to store this field's values
func (f *CategoryField) AttributeType() string {
	if ft, ok := fieldTypes[f.Type]; ok {
		return ft.attribute
	}
	return AttributeText
}

// MergeFields flattens field lists ordered nearest category first. A name defined
// closer to the category wins over the same name further up the tree.
func MergeFields(levels ...[]CategoryField) []CategoryField {
	seen := make(map[string]bool)
	var merged []CategoryField
	for _, level := range levels {
		for _, f := range level {
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			merged = append(merged, f)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Order < merged[j].Order
	})
	return merged
}

// FieldRules maps "fields.<name>" to the field's rules
func FieldRules(fields []CategoryField) map[string][]string {
	rules := make(map[string][]string, len(fields))
	for i := range fields {
		rules["fields."+fields[i].Name] = fields[i].Rules()
	}
	return rules
}

// ValidateFieldValues checks submitted dynamic values against the fields' rules.
// Returned keys are "fields.<name>".
func ValidateFieldValues(fields []CategoryField, values map[string]interface{}) map[string][]string {
	var errs map[string][]string
	for i := range fields {
		f := &fields[i]
		key := "fields." + f.Name
		label := f.Label
		if label == "" {
			label = key
		}

		rules := f.Rules()
		items := valueStrings(values[f.Name])

		if len(items) == 0 {
			if rules[0] == "required" {
				errs = addFieldError(errs, key, fmt.Sprintf("The %s field is required.", label))
			}
			continue
		}

		numeric := slices.Contains(rules, "numeric") || slices.Contains(rules, "integer")
		for _, rule := range rules[1:] {
			if msg := checkRule(rule, items, numeric, label); msg != "" {
				errs = addFieldError(errs, key, msg)
				break
			}
		}
	}
	return errs
}

// valueStrings flattens a decoded JSON value into the strings that get validated
func valueStrings(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil
		}
		return []string{val}
	case []interface{}:
		var out []string
		for _, item := range val {
			out = append(out, valueStrings(item)...)
		}
		return out
	case []string:
		var out []string
		for _, item := range val {
			if strings.TrimSpace(item) != "" {
				out = append(out, item)
			}
		}
		return out
	default:
		s, err := StringifyAttribute(AttributeText, val)
		if err != nil || s == "" {
			return nil
		}
		return []string{s}
	}
}

func checkRule(rule string, items []string, numeric bool, label string) string {
	name, param, _ := strings.Cut(rule, ":")

	for _, item := range items {
		switch name {
		case "in":
			if !slices.Contains(strings.Split(param, ","), item) {
				return fmt.Sprintf("The selected %s is invalid.", label)
			}
		case "email":
			if validate.Var(item, "email") != nil {
				return fmt.Sprintf("The %s field must be a valid email address.", label)
			}
		case "numeric":
			if validate.Var(item, "numeric") != nil {
				return fmt.Sprintf("The %s field must be a number.", label)
			}
		case "integer":
			if validate.Var(item, "integer_string") != nil {
				return fmt.Sprintf("The %s field must be an integer.", label)
			}
		case "url":
			if validate.Var(item, "url") != nil {
				return fmt.Sprintf("The %s field must be a valid URL.", label)
			}
		case "date":
			if validate.Var(item, "date") != nil {
				return fmt.Sprintf("The %s field must be a valid date.", label)
			}
		case "alpha":
			if validate.Var(item, "alpha") != nil {
				return fmt.Sprintf("The %s field must only contain letters.", label)
			}
		case "alpha_num":
			if validate.Var(item, "alphanum") != nil {
				return fmt.Sprintf("The %s field must only contain letters and numbers.", label)
			}
		case "boolean":
			if !slices.Contains([]string{"0", "1", "true", "false"}, item) {
				return fmt.Sprintf("The %s field must be true or false.", label)
			}
		case "min", "max":
			if msg := checkBound(name, param, item, numeric, label); msg != "" {
				return msg
			}
		case "regex":
			re, err := regexp.Compile(strings.Trim(param, "/"))
			if err == nil && !re.MatchString(item) {
				return fmt.Sprintf("The %s field format is invalid.", label)
			}
		}
	}
	return ""
}

func checkBound(name, param, item string, numeric bool, label string) string {
	bound, err := strconv.ParseFloat(param, 64)
	if err != nil {
		return ""
	}

	if numeric {
		n, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return ""
		}
		if validate.Var(n, fmt.Sprintf("%s=%s", name, param)) != nil {
			if name == "min" {
				return fmt.Sprintf("The %s field must be at least %s.", label, param)
			}
			return fmt.Sprintf("The %s field must not be greater than %s.", label, param)
		}
		return ""
	}

	length := float64(len([]rune(item)))
	if name == "min" && length < bound {
		return fmt.Sprintf("The %s field must be at least %s characters.", label, param)
	}
	if name == "max" && length > bound {
		return fmt.Sprintf("The %s field must not be greater than %s characters.", label, param)
	}
	return ""
}

// SanitizeFormFields drops nameless entries, fills defaults and rejects unknown types
func SanitizeFormFields(raw []FormField) ([]FormField, map[string][]string) {
	var errs map[string][]string
	out := make([]FormField, 0, len(raw))
	seen := make(map[string]bool)

	for i, f := range raw {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			continue
		}
		if seen[f.Name] {
			errs = addFieldError(errs, fmt.Sprintf("form_fields.%d.name", i), "The form field name has already been used.")
			continue
		}
		seen[f.Name] = true

		if f.Label = strings.TrimSpace(f.Label); f.Label == "" {
			f.Label = DefaultLabel(f.Name)
		}
		if f.Type == "" {
			f.Type = "text"
		}
		if !IsFieldType(f.Type) {
			errs = addFieldError(errs, fmt.Sprintf("form_fields.%d.type", i), "The selected form field type is invalid.")
			continue
		}
		if !fieldTypes[f.Type].choice {
			f.Options = ""
		}
		out = append(out, f)
	}
	return out, errs
}

// FieldInput is the admin payload for a single category field
type FieldInput struct {
	Name            string   `json:"name" validate:"required,max=255"`
	Label           string   `json:"label" validate:"max=255"`
	Type            string   `json:"type"`
	Options         string   `json:"options"`
	IsRequired      bool     `json:"is_required"`
	Order           int      `json:"order"`
	ValidationRules []string `json:"validation_rules"`
	DefaultValue    string   `json:"default_value"`
	HelpText        string   `json:"help_text"`
}

// describeFields is used by the public fields endpoint and the admin forms
func describeFields(fields []CategoryField) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(fields))
	for i := range fields {
		f := &fields[i]
		out = append(out, map[string]interface{}{
			"id":            f.ID,
			"category_id":   f.CategoryID,
			"name":          f.Name,
			"label":         f.Label,
			"type":          f.Type,
			"options":       f.OptionsList(),
			"is_required":   f.IsRequired,
			"order":         f.Order,
			"default_value": f.DefaultValue,
			"help_text":     f.HelpText,
			"rules":         f.Rules(),
		})
	}
	return out
}
