package moderation

import (
	"fmt"
	"strings"
)

// ValidationError covers missing required input. Always local, never
// retried.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// AuthorizationError means the moderator lacks standing in the guild.
// Terminal; never retried.
type AuthorizationError struct {
	GuildID string
	UserID  string
}

func (e *AuthorizationError) Error() string {
	return "You do not have permission to moderate this server."
}

// DispatchError is a terminal non-2xx response from the mutation call.
// The fetch layer has already retried 429s; a 403 or 404 here is final.
type DispatchError struct {
	Kind   ActionKind
	Status int
	Body   string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("failed to %s user: upstream status %d: %s", strings.ToLower(string(e.Kind)), e.Status, e.Body)
}

// OfflineError wraps a network-level failure reaching the upstream,
// distinguishing "bot may be offline" from a validation problem.
type OfflineError struct {
	Err error
}

func (e *OfflineError) Error() string {
	return "Cannot perform moderation action - bot may be offline"
}

func (e *OfflineError) Unwrap() error {
	return e.Err
}
