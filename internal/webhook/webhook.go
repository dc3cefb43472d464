// Package webhook delivers form-completion events to a configured endpoint.
// Retry lives here, with the collaborator, never in the core orchestrator.
package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/convoflow/convoflow/internal/platform/logger"
	"github.com/convoflow/convoflow/types"
)

// CompletionEvent is the payload POSTed when a session completes its form.
type CompletionEvent struct {
	DeliveryID  string         `json:"delivery_id"`
	FormID      string         `json:"form_id"`
	SessionID   string         `json:"session_id"`
	CompletedAt time.Time      `json:"completed_at"`
	Fields      map[string]any `json:"fields"`
}

// Notifier posts completion events to a single endpoint URL.
type Notifier struct {
	client *resty.Client
	url    string
	log    zerolog.Logger
}

// NewNotifier builds a notifier for the given endpoint. An empty URL yields a
// notifier that silently drops events, so hosts can wire it unconditionally.
func NewNotifier(url string) *Notifier {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(time.Second)
	return &Notifier{
		client: client,
		url:    url,
		log:    logger.New("webhook"),
	}
}

// NotifyCompletion sends one completion event. The session must already hold
// its final collected state.
func (n *Notifier) NotifyCompletion(ctx context.Context, form *types.FormDefinition, session *types.Session) error {
	if n.url == "" {
		return nil
	}

	fields := make(map[string]any, len(session.Collected))
	for _, cf := range session.Collected {
		field, ok := form.FieldByID(cf.FieldID)
		if !ok {
			continue
		}
		fields[field.Name] = cf.Value.Native()
	}
	event := CompletionEvent{
		DeliveryID: uuid.NewString(),
		FormID:     form.ID,
		SessionID:  session.ID,
		Fields:     fields,
	}
	if session.CompletedAt != nil {
		event.CompletedAt = *session.CompletedAt
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(&event).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("deliver completion event: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("deliver completion event: endpoint returned %s", resp.Status())
	}
	n.log.Info().
		Str("delivery_id", event.DeliveryID).
		Str("session_id", session.ID).
		Msg("completion event delivered")
	return nil
}
