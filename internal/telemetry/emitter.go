// Package telemetry defines the session lifecycle events and the emitter contract used to ship them.
package telemetry

import (
	"context"
	"time"
)

// Lifecycle event types.
const (
	EventLogin          = "login"
	EventLoginFailure   = "login_failure"
	EventRegister       = "register"
	EventLogout         = "logout"
	EventRefresh        = "refresh"
	EventRefreshFailure = "refresh_failure"
	EventSessionCleared = "session_cleared"
)

// Event is one lifecycle occurrence. Never carries tokens or passwords.
type Event struct {
	Type   string
	UserID string
	OrgID  string
	// Source names the emitting program, e.g. "singlebrief-cli" or "singlebrief-devserver".
	Source string
	// Detail is the failure message for *_failure events.
	Detail    string
	Metadata  map[string]string
	CreatedAt time.Time
}

// EventEmitter emits telemetry events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(ctx context.Context, event *Event) error

func (f EmitterFunc) Emit(ctx context.Context, event *Event) error { return f(ctx, event) }
