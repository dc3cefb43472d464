// Package convoflow turns free-text user messages into validated, structured
// form field values across conversational turns, delegating natural-language
// understanding to an injected chat model.
package convoflow

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	"github.com/convoflow/convoflow/types"
	"github.com/convoflow/convoflow/validate"
)

// TurnResult describes what a single turn learned: the model's conversational
// reply, the newly extracted and validated values, whether the form is now
// complete, and which field to request next when it is not.
type TurnResult struct {
	Message         string                 `json:"message"`
	ExtractedFields map[string]types.Value `json:"extracted_fields"`
	IsComplete      bool                   `json:"is_complete"`
	NextField       string                 `json:"next_field,omitempty"`
}

// Orchestrator runs one conversational turn against an injected chat model.
// It holds no mutable state and never mutates its inputs, so a single instance
// may be used concurrently for independent sessions.
type Orchestrator struct {
	chatModel model.BaseChatModel
}

func NewOrchestrator(chatModel model.BaseChatModel) *Orchestrator {
	return &Orchestrator{chatModel: chatModel}
}

// HandleTurn executes one pass: build the message sequence, invoke the model,
// interpret and validate the reply, then decide completion and the next field.
// Interpretation and validation failures surface as *ClientError with no
// partial result; model client failures propagate unchanged. The session
// snapshot is read-only; persisting the increment is the caller's job.
func (o *Orchestrator) HandleTurn(ctx context.Context, form *types.FormDefinition, session *types.Session, userMessage string) (*TurnResult, error) {
	messages := BuildTurnMessages(form, session, userMessage)

	response, err := o.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, err
	}

	replyText, extracted, err := interpretReply(response.Content, form)
	if err != nil {
		return nil, err
	}

	// Validate in display order so the first failure is deterministic.
	accepted := make(map[string]types.Value, len(extracted))
	for _, field := range form.OrderedFields() {
		raw, ok := extracted[field.Name]
		if !ok {
			continue
		}
		value, res := validate.ForField(field, raw)
		if !res.Valid() {
			return nil, &ClientError{
				Code:     ErrValidationFailed,
				Message:  res.Reason(),
				Field:    field.Name,
				RawValue: raw,
				FormID:   form.ID,
			}
		}
		accepted[field.Name] = value
	}

	// Ephemeral union of previously collected and newly accepted field ids,
	// discarded after the call.
	union := make(map[string]struct{}, len(session.Collected)+len(accepted))
	for _, cf := range session.Collected {
		union[cf.FieldID] = struct{}{}
	}
	for name := range accepted {
		if field, ok := form.FieldByName(name); ok {
			union[field.ID] = struct{}{}
		}
	}

	result := &TurnResult{
		Message:         replyText,
		ExtractedFields: accepted,
		IsComplete:      true,
	}
	for _, field := range form.OrderedFields() {
		if !field.Required {
			continue
		}
		if _, ok := union[field.ID]; !ok {
			result.IsComplete = false
			result.NextField = field.Name
			break
		}
	}
	return result, nil
}
