package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultValue(t *testing.T) {
	tests := []struct {
		name     string
		input    InputType
		expected any
	}{
		{name: "text", input: Text, expected: ""},
		{name: "select", input: Select, expected: ""},
		{name: "number", input: Number, expected: 0},
		{name: "date", input: Date, expected: ""},
		{name: "checkbox", input: Checkbox, expected: false},
		{name: "textarea", input: Textarea, expected: ""},
		{name: "unknown falls back to text", input: InputType("rating"), expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, DefaultValue(tt.input))
		})
	}
}

func TestRequiresOptions(t *testing.T) {
	for _, it := range Types() {
		require.Equal(t, it == Select, RequiresOptions(it), "input type %s", it)
	}
	require.False(t, RequiresOptions(InputType("rating")))
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name     string
		input    InputType
		value    any
		expected any
	}{
		{name: "checkbox bool true", input: Checkbox, value: true, expected: true},
		{name: "checkbox string true", input: Checkbox, value: "true", expected: true},
		{name: "checkbox string false", input: Checkbox, value: "false", expected: false},
		{name: "checkbox bool false", input: Checkbox, value: false, expected: false},
		{name: "checkbox missing", input: Checkbox, value: nil, expected: false},
		{name: "checkbox other string", input: Checkbox, value: "yes", expected: false},
		{name: "text missing", input: Text, value: nil, expected: ""},
		{name: "text passes through", input: Text, value: "hello", expected: "hello"},
		{name: "number keeps string", input: Number, value: "12", expected: "12"},
		{name: "number keeps float", input: Number, value: 3.5, expected: 3.5},
		{name: "unknown uses text rule", input: InputType("rating"), value: nil, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Coerce(tt.input, tt.value))
		})
	}
}

func TestParse(t *testing.T) {
	it, err := Parse(" select ")
	require.NoError(t, err)
	require.Equal(t, Select, it)

	_, err = Parse("rating")
	require.ErrorIs(t, err, ErrInvalidInputType)
}

func TestResolve(t *testing.T) {
	require.Equal(t, Date, Resolve(Date))
	require.Equal(t, Text, Resolve(InputType("")))
	require.Equal(t, Text, Resolve(InputType("rating")))
}

func TestValidOption(t *testing.T) {
	options := PlaceholderOptions()
	require.Equal(t, []string{"Option 1", "Option 2", "Option 3"}, options)
	require.True(t, ValidOption(options, "Option 2"))
	require.False(t, ValidOption(options, "Option 4"))
	require.False(t, ValidOption(options, 2))
}
