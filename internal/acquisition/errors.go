package acquisition

import (
	"errors"
	"fmt"
)

// ErrSelectionInFlight is returned when a selection is attempted while another one is pending.
var ErrSelectionInFlight = errors.New("acquisition: a selection is already in progress")

// Step names the workflow stage an error came from.
type Step string

const (
	StepSearch  Step = "search"
	StepFetch   Step = "fetch"
	StepPersist Step = "persist"
)

// TransportError reports a collaborator that could not be reached.
type TransportError struct {
	Step    Step
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Step, e.Message, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ExternalFetchError reports unusable catalog details: a rejected lookup or a record without a title.
type ExternalFetchError struct {
	ExternalID string
	Message    string
	Err        error
}

func (e *ExternalFetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.ExternalID, e.Message)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.ExternalID, e.Message, e.Err)
}

func (e *ExternalFetchError) Unwrap() error { return e.Err }

// PersistenceError reports a create rejected by the collection.
type PersistenceError struct {
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist: %s: %v", e.Message, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// UserMessage returns the text to show for an error returned by the workflow.
func UserMessage(err error) string {
	var (
		transport *TransportError
		fetch     *ExternalFetchError
		persist   *PersistenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &transport):
		return transport.Message
	case errors.As(err, &fetch):
		return fetch.Message
	case errors.As(err, &persist):
		return persist.Message
	case errors.Is(err, ErrSelectionInFlight):
		return "Please wait, a movie is already being added."
	default:
		return MsgSelectFailed
	}
}
