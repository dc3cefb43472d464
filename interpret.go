package convoflow

import (
	"strings"

	"github.com/bytedance/sonic"

	"github.com/convoflow/convoflow/types"
)

// modelReply is the structured shape the model is instructed to return.
// Pointers distinguish a missing key from an empty one.
type modelReply struct {
	Message         *string        `json:"message"`
	ExtractedFields map[string]any `json:"extractedFields"`
}

// interpretReply parses the model's raw textual reply, enforces the two-key
// contract, and rejects field names unknown to the form. Extracted values are
// returned unvalidated; validation is the orchestrator's next step.
func interpretReply(raw string, form *types.FormDefinition) (string, map[string]any, error) {
	var reply modelReply
	if err := sonic.UnmarshalString(stripFences(raw), &reply); err != nil {
		return "", nil, &ClientError{
			Code:    ErrInvalidModelReply,
			Message: "LLM returned invalid JSON",
			FormID:  form.ID,
		}
	}
	if reply.Message == nil || reply.ExtractedFields == nil {
		return "", nil, &ClientError{
			Code:    ErrIncompleteModelReply,
			Message: "LLM response missing required fields",
			FormID:  form.ID,
		}
	}
	for name := range reply.ExtractedFields {
		if _, ok := form.FieldByName(name); !ok {
			return "", nil, &ClientError{
				Code:    ErrUnknownField,
				Message: "Field not in form definition",
				Field:   name,
				FormID:  form.ID,
			}
		}
	}
	return *reply.Message, reply.ExtractedFields, nil
}

// stripFences removes a surrounding markdown code fence, which some models add
// despite instructions.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if lines := strings.SplitN(text, "\n", 2); len(lines) > 1 {
		text = lines[1]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
