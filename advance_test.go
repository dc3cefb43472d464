package convoflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/convoflow/types"
)

func TestAdvanceSessionAppendsTurnsAndValues(t *testing.T) {
	form := orchestratorTestForm()
	session := emptySession(form)
	now := time.Date(2024, 5, 1, 9, 5, 0, 0, time.UTC)

	result := &TurnResult{
		Message:         "Nice to meet you, Ada!",
		ExtractedFields: map[string]types.Value{"name": types.TextValue("Ada")},
		NextField:       "email",
	}
	next, err := AdvanceSession(session, form, "I'm Ada", result, now)
	require.NoError(t, err)

	require.Len(t, next.Turns, 2)
	assert.Equal(t, types.RoleUser, next.Turns[0].Role)
	assert.Equal(t, "I'm Ada", next.Turns[0].Content)
	assert.Equal(t, types.RoleAssistant, next.Turns[1].Role)

	require.Len(t, next.Collected, 1)
	assert.Equal(t, "f1", next.Collected[0].FieldID)
	s, _ := next.Collected[0].Value.Text()
	assert.Equal(t, "Ada", s)
	assert.Equal(t, now, next.Collected[0].CollectedAt)

	assert.Equal(t, types.SessionActive, next.Status)
	// the input snapshot is untouched
	assert.Empty(t, session.Turns)
	assert.Empty(t, session.Collected)
}

func TestAdvanceSessionSupersedesEarlierValue(t *testing.T) {
	form := orchestratorTestForm()
	session := emptySession(form)
	earlier := session.StartedAt
	session.Collected = []types.CollectedField{
		{FieldID: "f1", Value: types.TextValue("Ada"), CollectedAt: earlier},
		{FieldID: "f2", Value: types.TextValue("ada@example.com"), CollectedAt: earlier},
	}
	now := earlier.Add(time.Minute)

	result := &TurnResult{
		Message:         "Updated your name.",
		ExtractedFields: map[string]types.Value{"name": types.TextValue("Grace")},
	}
	next, err := AdvanceSession(session, form, "call me Grace", result, now)
	require.NoError(t, err)

	byID := next.CollectedByFieldID()
	require.Len(t, byID, 2)
	s, _ := byID["f1"].Value.Text()
	assert.Equal(t, "Grace", s)
	assert.Equal(t, now, byID["f1"].CollectedAt)
	// untouched field keeps its original timestamp
	assert.Equal(t, earlier, byID["f2"].CollectedAt)
}

func TestAdvanceSessionCompletes(t *testing.T) {
	form := orchestratorTestForm()
	session := emptySession(form)
	session.Collected = []types.CollectedField{
		{FieldID: "f1", Value: types.TextValue("Ada"), CollectedAt: session.StartedAt},
	}
	now := session.StartedAt.Add(time.Minute)

	result := &TurnResult{
		Message:         "All done!",
		ExtractedFields: map[string]types.Value{"email": types.TextValue("ada@example.com")},
		IsComplete:      true,
	}
	next, err := AdvanceSession(session, form, "ada@example.com", result, now)
	require.NoError(t, err)

	assert.Equal(t, types.SessionCompleted, next.Status)
	require.NotNil(t, next.CompletedAt)
	assert.Equal(t, now, *next.CompletedAt)
}

func TestAdvanceSessionNoExtraction(t *testing.T) {
	form := orchestratorTestForm()
	session := emptySession(form)
	session.Collected = []types.CollectedField{
		{FieldID: "f1", Value: types.TextValue("Ada"), CollectedAt: session.StartedAt},
	}

	result := &TurnResult{Message: "Could you share your email?", NextField: "email"}
	next, err := AdvanceSession(session, form, "what do you need?", result, session.StartedAt.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, session.Collected, next.Collected)
	assert.Len(t, next.Turns, 2)
}
