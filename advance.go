package convoflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/convoflow/convoflow/types"
)

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// AdvanceSession derives the next session snapshot from a completed turn: the
// user and assistant turns are appended, the extracted values are merged into
// the collected set as RFC6902 operations (later acceptance supersedes
// earlier), and the status transitions to completed when the turn finished the
// form. The input snapshot is never modified.
func AdvanceSession(session *types.Session, form *types.FormDefinition, userMessage string, result *TurnResult, now time.Time) (*types.Session, error) {
	next := &types.Session{
		ID:          session.ID,
		FormID:      session.FormID,
		Status:      session.Status,
		StartedAt:   session.StartedAt,
		CompletedAt: session.CompletedAt,
	}
	next.Turns = append(append([]types.Turn{}, session.Turns...),
		types.Turn{Role: types.RoleUser, Content: userMessage, CreatedAt: now},
		types.Turn{Role: types.RoleAssistant, Content: result.Message, CreatedAt: now},
	)

	collected, err := mergeCollected(session, form, result.ExtractedFields, now)
	if err != nil {
		return nil, err
	}
	next.Collected = collected

	if result.IsComplete && next.Status == types.SessionActive {
		next.Status = types.SessionCompleted
		completedAt := now
		next.CompletedAt = &completedAt
	}
	return next, nil
}

// mergeCollected merges newly accepted values into the collected document by
// name via an RFC6902 patch, then maps the document back to collected fields.
func mergeCollected(session *types.Session, form *types.FormDefinition, extracted map[string]types.Value, now time.Time) ([]types.CollectedField, error) {
	doc := make(map[string]any, len(session.Collected))
	timestamps := make(map[string]time.Time, len(session.Collected))
	for _, cf := range session.Collected {
		field, ok := form.FieldByID(cf.FieldID)
		if !ok {
			continue
		}
		doc[field.Name] = cf.Value.Native()
		timestamps[field.Name] = cf.CollectedAt
	}

	ops := make([]patchOp, 0, len(extracted))
	for _, field := range form.OrderedFields() {
		value, ok := extracted[field.Name]
		if !ok || value.IsAbsent() {
			continue
		}
		op := "add"
		if _, exists := doc[field.Name]; exists {
			op = "replace"
		}
		ops = append(ops, patchOp{Op: op, Path: "/" + escapePointer(field.Name), Value: value.Native()})
		timestamps[field.Name] = now
	}
	if len(ops) == 0 {
		return append([]types.CollectedField{}, session.Collected...), nil
	}

	docJSON, err := sonic.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal collected document: %w", err)
	}
	opsJSON, err := sonic.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("marshal patch operations: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(opsJSON)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	mergedJSON, err := patch.Apply(docJSON)
	if err != nil {
		return nil, fmt.Errorf("apply patch: %w", err)
	}
	var merged map[string]types.Value
	if err := sonic.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, fmt.Errorf("unmarshal merged document: %w", err)
	}

	collected := make([]types.CollectedField, 0, len(merged))
	for _, field := range form.OrderedFields() {
		value, ok := merged[field.Name]
		if !ok {
			continue
		}
		collected = append(collected, types.CollectedField{
			FieldID:     field.ID,
			Value:       value,
			CollectedAt: timestamps[field.Name],
		})
	}
	return collected, nil
}

func escapePointer(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}
