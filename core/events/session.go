package events

const (
	// KindSessionError identifies a user-visible session failure.
	KindSessionError Kind = "session.error"
)

// SessionError carries a message safe to show to the user.
type SessionError struct {
	Base
	Message string
}

// NewSessionError creates a session error event.
func NewSessionError(message string) SessionError {
	return SessionError{Base: NewBase(KindSessionError), Message: message}
}
