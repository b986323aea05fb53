package speechtotext

import (
	"errors"
	"fmt"
)

// ErrConnection is matched by every *ConnectionError.
var ErrConnection = errors.New("transcription connection error")

// ConnectionError reports that the transcription provider could not be
// reached or refused the credential.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return ErrConnection.Error()
	}
	return fmt.Sprintf("%s: %v", ErrConnection, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }
