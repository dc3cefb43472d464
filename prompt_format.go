package convoflow

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"

	"github.com/convoflow/convoflow/types"
)

// ReplyMessageKey and ReplyFieldsKey are the two keys the model is instructed
// to return. Changing either changes what the model is asked to produce, so
// they are part of the wire contract with the response interpreter.
const (
	ReplyMessageKey = "message"
	ReplyFieldsKey  = "extractedFields"
)

func buildInstruction(form *types.FormDefinition, session *types.Session) string {
	sections := []string{
		"You are a conversational assistant collecting answers for a form. Ask for missing information naturally, one topic at a time, and acknowledge what the user has already provided.",
		fmt.Sprintf("# Form: %s", form.Name),
	}
	if form.Description != "" {
		sections = append(sections, form.Description)
	}
	if s := formatFieldsSection(form.OrderedFields()); s != "" {
		sections = append(sections, s)
	}
	if s := formatCollectedSection(form, session); s != "" {
		sections = append(sections, s)
	}
	sections = append(sections, formatOutputContract())
	return strings.Join(sections, "\n\n")
}

func formatFieldsSection(fields []types.Field) string {
	if len(fields) == 0 {
		return "# Fields:\nnone"
	}
	var buf strings.Builder
	buf.WriteString("# Fields:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Name", "Type", "Required", "Description")
	for _, field := range fields {
		required := "optional"
		if field.Required {
			required = "required"
		}
		_ = table.Append(field.Name, string(field.Kind), required, fieldDescription(field))
	}
	_ = table.Render()
	return buf.String()
}

func fieldDescription(field types.Field) string {
	parts := []string{field.Label}
	if field.HelpText != "" {
		parts = append(parts, field.HelpText)
	}
	if field.Constraints != nil {
		if len(field.Constraints.Options) > 0 {
			parts = append(parts, "one of: "+strings.Join(field.Constraints.Options, ", "))
		}
		if field.Constraints.Min != nil {
			parts = append(parts, fmt.Sprintf("min %v", *field.Constraints.Min))
		}
		if field.Constraints.Max != nil {
			parts = append(parts, fmt.Sprintf("max %v", *field.Constraints.Max))
		}
	}
	return strings.Join(parts, "; ")
}

func formatCollectedSection(form *types.FormDefinition, session *types.Session) string {
	if len(session.Collected) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("# Already collected:\n")
	for _, cf := range session.Collected {
		field, ok := form.FieldByID(cf.FieldID)
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", field.Name, cf.Value.String()))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatOutputContract() string {
	return fmt.Sprintf(`# Output format:
Respond with ONLY a JSON object containing exactly two keys:
{"%s": "your natural-language reply to the user", "%s": {"fieldName": extractedValue}}
Only include fields in %q whose values the user explicitly provided. Use an empty object when nothing was extracted. Do not invent values and do not add any other keys.`,
		ReplyMessageKey, ReplyFieldsKey, ReplyFieldsKey)
}
