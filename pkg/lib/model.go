package lib

import (
	"errors"
	"time"

	"github.com/slok/qchat/internal/model"
)

var (
	// ErrNotValid is returned when the input is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrBusy is returned when a task is submitted while another one is in flight.
	ErrBusy = errors.New("busy")
	// ErrClosed is returned when the client has been closed.
	ErrClosed = errors.New("client closed")
)

// EngineType selects the task engine.
type EngineType string

const (
	// EngineFake echoes the requests.
	EngineFake EngineType = "fake"
	// EngineOpenAI uses an OpenAI compatible API.
	EngineOpenAI EngineType = "openai"
	// EngineExec runs a local command per request.
	EngineExec EngineType = "exec"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Message is a single message of the conversation.
type Message struct {
	Sequence int
	Sender   Sender
	Text     string
	At       time.Time
}

// Reply is the answer of the engine to a request.
type Reply struct {
	// ID is the task identifier.
	ID string
	// Text is the reply shown in the conversation. When the task failed it
	// has the failure notice.
	Text string
	// Failed is true when the engine could not process the request.
	Failed bool
	// Err has the engine failure cause, if any.
	Err error
}

func fromInternalEntries(es []model.LogEntry) []Message {
	msgs := make([]Message, len(es))
	for i, e := range es {
		msgs[i] = Message{
			Sequence: e.Sequence,
			Sender:   Sender(e.Sender),
			Text:     e.Text,
			At:       e.At,
		}
	}
	return msgs
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrSubmissionRejected):
		return joinErrors(err, ErrBusy)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
