package command

import "fmt"

// NotRecognizedError is returned by a codec when it understood the framing
// of a message but the operation name inside it does not map to a known
// Kind. Per spec §7 this is the only decode error surfaced to the client.
type NotRecognizedError struct {
	Name string
}

func (e *NotRecognizedError) Error() string {
	return fmt.Sprintf("command not recognized: %s", e.Name)
}

// NewNotRecognizedError wraps a command name in a NotRecognizedError.
func NewNotRecognizedError(name string) error {
	return &NotRecognizedError{Name: name}
}
