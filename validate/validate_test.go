package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/convoflow/types"
)

func floatPtr(f float64) *float64 { return &f }

func TestEmail(t *testing.T) {
	valid := []string{"user@example.com", "user+tag@example.com", "  user@example.com  "}
	for _, s := range valid {
		assert.True(t, Email(s).Valid(), "expected %q to be valid", s)
	}

	invalid := []string{"userexample.com", "user@", "@example.com", "", "user@domain", "two words@example.com"}
	for _, s := range invalid {
		res := Email(s)
		require.False(t, res.Valid(), "expected %q to be invalid", s)
		assert.Equal(t, "Invalid email format", res.Reason())
	}
}

func TestPhone(t *testing.T) {
	valid := []string{"+1-555-123-4567", "5551234567", "(555) 123 4567"}
	for _, s := range valid {
		assert.True(t, Phone(s).Valid(), "expected %q to be valid", s)
	}

	invalid := []string{"123", "555-ABC-DEFG", "", "555.123.4567x"}
	for _, s := range invalid {
		res := Phone(s)
		require.False(t, res.Valid(), "expected %q to be invalid", s)
		assert.Equal(t, "Invalid phone format", res.Reason())
	}
}

func TestNumberBounds(t *testing.T) {
	min, max := floatPtr(18), floatPtr(120)

	assert.True(t, Number(25, min, max).Valid())

	res := Number(17, min, max)
	require.False(t, res.Valid())
	assert.Equal(t, "Number must be at least 18", res.Reason())

	res = Number(121, min, max)
	require.False(t, res.Valid())
	assert.Equal(t, "Number must be at most 120", res.Reason())

	// absent bounds impose no constraint
	assert.True(t, Number(-1000000, nil, nil).Valid())
}

func TestDate(t *testing.T) {
	assert.True(t, Date("2024-01-15").Valid())
	assert.True(t, Date("2024-02-29").Valid(), "leap day")
	assert.True(t, Date("2024-01-15T10:30:00Z").Valid())
	assert.True(t, Date(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)).Valid())

	invalid := []string{"2024-02-30", "2023-02-29", "not-a-date", "2024-13-01", ""}
	for _, s := range invalid {
		res := Date(s)
		require.False(t, res.Valid(), "expected %q to be invalid", s)
		assert.Equal(t, "Invalid date format", res.Reason())
	}
}

func TestEnum(t *testing.T) {
	options := []string{"red", "green", "blue"}

	assert.True(t, Enum("red", options).Valid())

	for _, s := range []string{"purple", "Red", ""} {
		res := Enum(s, options)
		require.False(t, res.Valid(), "expected %q to be invalid", s)
		assert.Equal(t, "Value must be one of: red, green, blue", res.Reason())
	}
}

func TestForFieldRequiredPolicy(t *testing.T) {
	required := types.Field{ID: "f1", Name: "email", Kind: types.KindEmail, Required: true}
	optional := types.Field{ID: "f2", Name: "nickname", Kind: types.KindText}

	_, res := ForField(required, nil)
	require.False(t, res.Valid())
	assert.Equal(t, "Field is required", res.Reason())

	value, res := ForField(optional, nil)
	assert.True(t, res.Valid())
	assert.True(t, value.IsAbsent())

	// absent marker values follow the same policy as nil
	_, res = ForField(required, types.AbsentValue())
	require.False(t, res.Valid())
	assert.Equal(t, "Field is required", res.Reason())
}

func TestForFieldDispatch(t *testing.T) {
	age := types.Field{
		ID: "f1", Name: "age", Kind: types.KindNumber, Required: true,
		Constraints: &types.FieldConstraints{Min: floatPtr(18), Max: floatPtr(120)},
	}

	value, res := ForField(age, float64(25))
	require.True(t, res.Valid())
	n, ok := value.Number()
	require.True(t, ok)
	assert.Equal(t, 25.0, n)

	// numeric strings are coerced
	_, res = ForField(age, "42")
	assert.True(t, res.Valid())

	_, res = ForField(age, "forty-two")
	require.False(t, res.Valid())
	assert.Equal(t, "Invalid number format", res.Reason())

	_, res = ForField(age, float64(17))
	require.False(t, res.Valid())
	assert.Equal(t, "Number must be at least 18", res.Reason())

	birthday := types.Field{ID: "f2", Name: "birthday", Kind: types.KindDate}
	value, res = ForField(birthday, "1990-06-01")
	require.True(t, res.Valid())
	d, ok := value.Date()
	require.True(t, ok)
	assert.Equal(t, "1990-06-01", d.Format(types.DateLayout))

	color := types.Field{
		ID: "f3", Name: "color", Kind: types.KindEnum,
		Constraints: &types.FieldConstraints{Options: []string{"red", "green", "blue"}},
	}
	_, res = ForField(color, "green")
	assert.True(t, res.Valid())
	_, res = ForField(color, "Green")
	assert.False(t, res.Valid())

	// text kinds accept anything, including non-string representations
	comment := types.Field{ID: "f4", Name: "comment", Kind: types.KindLongText}
	value, res = ForField(comment, float64(7))
	require.True(t, res.Valid())
	s, ok := value.Text()
	require.True(t, ok)
	assert.Equal(t, "7", s)
}

func TestForFieldEmailTrims(t *testing.T) {
	email := types.Field{ID: "f1", Name: "email", Kind: types.KindEmail, Required: true}
	value, res := ForField(email, "  user@example.com ")
	require.True(t, res.Valid())
	s, _ := value.Text()
	assert.Equal(t, "user@example.com", s)
}
