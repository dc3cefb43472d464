package convoflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/convoflow/types"
)

func interpretTestForm() *types.FormDefinition {
	return &types.FormDefinition{
		ID:   "form-1",
		Name: "Contact",
		Fields: []types.Field{
			{ID: "f1", Name: "name", Label: "Name", Kind: types.KindText, Required: true, Order: 1},
			{ID: "f2", Name: "email", Label: "Email", Kind: types.KindEmail, Required: true, Order: 2},
		},
	}
}

func TestInterpretReply(t *testing.T) {
	form := interpretTestForm()

	msg, fields, err := interpretReply(`{"message":"Thanks!","extractedFields":{"name":"Ada"}}`, form)
	require.NoError(t, err)
	assert.Equal(t, "Thanks!", msg)
	assert.Equal(t, map[string]any{"name": "Ada"}, fields)
}

func TestInterpretReplyStripsFences(t *testing.T) {
	form := interpretTestForm()

	raw := "```json\n{\"message\":\"ok\",\"extractedFields\":{}}\n```"
	msg, fields, err := interpretReply(raw, form)
	require.NoError(t, err)
	assert.Equal(t, "ok", msg)
	assert.Empty(t, fields)
}

func TestInterpretReplyInvalidJSON(t *testing.T) {
	_, _, err := interpretReply("I could not produce JSON, sorry", interpretTestForm())
	ce, ok := AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, ErrInvalidModelReply, ce.Code)
	assert.Equal(t, "LLM returned invalid JSON", ce.Message)
	assert.Equal(t, "form-1", ce.FormID)
}

func TestInterpretReplyMissingKeys(t *testing.T) {
	form := interpretTestForm()

	for _, raw := range []string{
		`{"message":"hello"}`,
		`{"extractedFields":{}}`,
		`{}`,
	} {
		_, _, err := interpretReply(raw, form)
		ce, ok := AsClientError(err)
		require.True(t, ok, "raw: %s", raw)
		assert.Equal(t, ErrIncompleteModelReply, ce.Code)
		assert.Equal(t, "LLM response missing required fields", ce.Message)
	}

	// empty extractedFields is present, not missing
	_, fields, err := interpretReply(`{"message":"hi","extractedFields":{}}`, form)
	require.NoError(t, err)
	assert.NotNil(t, fields)
}

func TestInterpretReplyUnknownField(t *testing.T) {
	_, _, err := interpretReply(`{"message":"hi","extractedFields":{"surprise":"yes"}}`, interpretTestForm())
	ce, ok := AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, ErrUnknownField, ce.Code)
	assert.Equal(t, "Field not in form definition", ce.Message)
	assert.Equal(t, "surprise", ce.Field)
}
