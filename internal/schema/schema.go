// Package schema defines the closed set of column input types and the rules
// attached to each one: the default value of a new cell, whether the column
// carries an option list, and how a stored value is read back.
package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// InputType names the editor used for a column.
type InputType string

const (
	Text     InputType = "text"
	Select   InputType = "select"
	Number   InputType = "number"
	Date     InputType = "date"
	Checkbox InputType = "checkbox"
	Textarea InputType = "textarea"
)

// ErrInvalidInputType is returned when an input type is not in the vocabulary.
var ErrInvalidInputType = errors.New("invalid input type")

type rule struct {
	defaultValue    any
	requiresOptions bool
	coerce          func(v any) any
}

var rules = map[InputType]rule{
	Text:     {defaultValue: "", coerce: passThrough},
	Select:   {defaultValue: "", requiresOptions: true, coerce: passThrough},
	Number:   {defaultValue: 0, coerce: passThrough},
	Date:     {defaultValue: "", coerce: passThrough},
	Checkbox: {defaultValue: false, coerce: toBool},
	Textarea: {defaultValue: "", coerce: passThrough},
}

// Types returns the vocabulary in display order.
func Types() []InputType {
	return []InputType{Text, Select, Number, Date, Checkbox, Textarea}
}

// Valid reports whether t is a known input type.
func Valid(t InputType) bool {
	_, ok := rules[t]
	return ok
}

// Parse converts s into an InputType, rejecting unknown names.
func Parse(s string) (InputType, error) {
	t := InputType(strings.TrimSpace(s))
	if !Valid(t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidInputType, s)
	}
	return t, nil
}

// Resolve returns t when it is known and Text otherwise. Documents may carry
// types written by a newer client; those render with the text rule.
func Resolve(t InputType) InputType {
	if Valid(t) {
		return t
	}
	return Text
}

// DefaultValue returns the value a new cell of type t starts with.
func DefaultValue(t InputType) any {
	return rules[Resolve(t)].defaultValue
}

// RequiresOptions reports whether columns of type t carry an option list.
func RequiresOptions(t InputType) bool {
	return rules[Resolve(t)].requiresOptions
}

// PlaceholderOptions returns the options seeded into a column retyped to select.
func PlaceholderOptions() []string {
	return []string{"Option 1", "Option 2", "Option 3"}
}

// Coerce converts a stored value into the value the editor for t displays.
// Stored values are never rewritten; this only applies on read.
func Coerce(t InputType, v any) any {
	return rules[Resolve(t)].coerce(v)
}

// ValidOption reports whether v is one of options. Used by callers that want
// to flag select cells holding a value outside the current list.
func ValidOption(options []string, v any) bool {
	s, ok := v.(string)
	return ok && slices.Contains(options, s)
}

func passThrough(v any) any {
	if v == nil {
		return ""
	}
	return v
}

func toBool(v any) any {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}
