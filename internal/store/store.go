// Package store persists forms, sessions, turns, and collected fields. The
// orchestrator never touches it; hosts read snapshots from here and write the
// per-turn increment back.
package store

import (
	"context"
	"errors"

	"github.com/convoflow/convoflow/types"
)

// ErrNotFound is returned when a form or session does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface for convoflow hosts.
type Store interface {
	// Forms
	CreateForm(ctx context.Context, form *types.FormDefinition) error
	GetForm(ctx context.Context, id string) (*types.FormDefinition, error)
	ListForms(ctx context.Context) ([]*types.FormDefinition, error)

	// Sessions
	CreateSession(ctx context.Context, formID string) (*types.Session, error)
	GetSession(ctx context.Context, id string) (*types.Session, error)
	AppendTurn(ctx context.Context, sessionID string, turn types.Turn) error
	UpsertCollectedField(ctx context.Context, sessionID string, cf types.CollectedField) error
	SetSessionStatus(ctx context.Context, sessionID string, status types.SessionStatus) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
