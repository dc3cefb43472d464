package types

import (
	"sort"
	"time"
)

// FieldKind identifies the type of value a field collects. The set is closed;
// validation dispatches exhaustively over these seven kinds.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindLongText FieldKind = "long_text"
	KindEmail    FieldKind = "email"
	KindPhone    FieldKind = "phone"
	KindNumber   FieldKind = "number"
	KindDate     FieldKind = "date"
	KindEnum     FieldKind = "enum"
)

// FieldConstraints carries the optional per-field constraint set. Min/Max apply
// to number fields, Options to enum fields. Pattern is declared but not
// enforced by the base validators.
type FieldConstraints struct {
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Options []string `json:"options,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
}

// Field is one named, typed slot in a form. Immutable once the form is published.
type Field struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Label       string            `json:"label"`
	Kind        FieldKind         `json:"kind"`
	Required    bool              `json:"required"`
	Constraints *FieldConstraints `json:"constraints,omitempty"`
	Order       int               `json:"order"`
	HelpText    string            `json:"help_text,omitempty"`
}

// FormDefinition is the immutable schema describing the fields to collect.
type FormDefinition struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Fields      []Field   `json:"fields"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OrderedFields returns the form's fields sorted by display order.
func (f *FormDefinition) OrderedFields() []Field {
	fields := make([]Field, len(f.Fields))
	copy(fields, f.Fields)
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Order < fields[j].Order
	})
	return fields
}

// FieldByName looks a field up by its programmatic name.
func (f *FormDefinition) FieldByName(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// FieldByID looks a field up by its identifier.
func (f *FormDefinition) FieldByID(id string) (Field, bool) {
	for _, field := range f.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return Field{}, false
}

// Role tags the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a session's conversation. Append-only, never mutated.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CollectedField pairs a field identifier with its accepted value. At most one
// per field id exists in a session; later acceptance supersedes earlier.
type CollectedField struct {
	FieldID     string    `json:"field_id"`
	Value       Value     `json:"value"`
	CollectedAt time.Time `json:"collected_at"`
}

// SessionStatus is the lifecycle state of a session. Completed and abandoned
// are terminal.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// Session is one conversation's accumulated state for a form. The orchestrator
// receives a snapshot and never mutates it; the caller derives the next
// snapshot from the turn result.
type Session struct {
	ID          string           `json:"id"`
	FormID      string           `json:"form_id"`
	Status      SessionStatus    `json:"status"`
	Turns       []Turn           `json:"turns"`
	Collected   []CollectedField `json:"collected_fields"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// CollectedByFieldID returns the session's collected values keyed by field id.
func (s *Session) CollectedByFieldID() map[string]CollectedField {
	out := make(map[string]CollectedField, len(s.Collected))
	for _, cf := range s.Collected {
		out[cf.FieldID] = cf
	}
	return out
}
