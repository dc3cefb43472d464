package convoflow

import (
	"github.com/cloudwego/eino/schema"

	"github.com/convoflow/convoflow/types"
)

// BuildTurnMessages renders the form schema, already-collected fields, and the
// session's turn history into the message sequence sent to the model. The
// instruction block is always first, replayed turns follow in original order,
// and the new user message is appended last. Deterministic given its inputs.
func BuildTurnMessages(form *types.FormDefinition, session *types.Session, userMessage string) []*schema.Message {
	messages := make([]*schema.Message, 0, len(session.Turns)+2)
	messages = append(messages, schema.SystemMessage(buildInstruction(form, session)))
	for _, turn := range session.Turns {
		switch turn.Role {
		case types.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		default:
			messages = append(messages, schema.UserMessage(turn.Content))
		}
	}
	messages = append(messages, schema.UserMessage(userMessage))
	return messages
}
