package convoflow

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable machine-readable category of a turn failure.
type ErrorCode string

const (
	// ErrInvalidModelReply - the model reply was not parseable JSON.
	ErrInvalidModelReply ErrorCode = "invalid_llm_json"
	// ErrIncompleteModelReply - the reply parsed but is missing a required key.
	ErrIncompleteModelReply ErrorCode = "llm_response_missing_fields"
	// ErrUnknownField - the reply references a field absent from the form.
	ErrUnknownField ErrorCode = "field_not_in_form"
	// ErrValidationFailed - an extracted value failed its field's validator.
	ErrValidationFailed ErrorCode = "validation_failed"
)

// ClientError is a categorized, caller-fault turn failure. It aborts the turn
// immediately; no partial extraction is returned alongside it. Collaborator
// failures (the model client itself) are never wrapped into a ClientError and
// propagate unchanged.
type ClientError struct {
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	Field    string    `json:"field,omitempty"`
	RawValue any       `json:"raw_value,omitempty"`
	FormID   string    `json:"form_id,omitempty"`
}

func (e *ClientError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %q)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsClientError unwraps err into a ClientError when it is one.
func AsClientError(err error) (*ClientError, bool) {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
