package types

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueAccessors(t *testing.T) {
	assert.True(t, AbsentValue().IsAbsent())

	s, ok := TextValue("hello").Text()
	require.True(t, ok)
	assert.Equal(t, "hello", s)

	n, ok := NumberValue(42.5).Number()
	require.True(t, ok)
	assert.Equal(t, 42.5, n)

	d, ok := DateValue(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)).Date()
	require.True(t, ok)
	assert.Equal(t, "2024-01-15", d.Format(DateLayout))

	// wrong-kind access reports absence of that shape
	_, ok = TextValue("hello").Number()
	assert.False(t, ok)
}

func TestValueNative(t *testing.T) {
	assert.Nil(t, AbsentValue().Native())
	assert.Equal(t, "hi", TextValue("hi").Native())
	assert.Equal(t, 7.0, NumberValue(7).Native())
	assert.Equal(t, "2024-01-15", DateValue(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)).Native())
}

func TestValueJSON(t *testing.T) {
	data, err := sonic.Marshal(map[string]Value{
		"name": TextValue("Ada"),
		"age":  NumberValue(36),
		"none": AbsentValue(),
	})
	require.NoError(t, err)

	var decoded map[string]Value
	require.NoError(t, sonic.Unmarshal(data, &decoded))

	s, _ := decoded["name"].Text()
	assert.Equal(t, "Ada", s)
	n, _ := decoded["age"].Number()
	assert.Equal(t, 36.0, n)
	assert.True(t, decoded["none"].IsAbsent())
}

func TestOrderedFields(t *testing.T) {
	form := &FormDefinition{
		Fields: []Field{
			{ID: "b", Name: "second", Order: 2},
			{ID: "a", Name: "first", Order: 1},
			{ID: "c", Name: "third", Order: 3},
		},
	}
	ordered := form.OrderedFields()
	require.Len(t, ordered, 3)
	assert.Equal(t, "first", ordered[0].Name)
	assert.Equal(t, "third", ordered[2].Name)

	// the original slice is untouched
	assert.Equal(t, "second", form.Fields[0].Name)
}
