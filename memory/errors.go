package memory

import (
	"errors"
	"fmt"
)

// ErrEmptyMemory is returned when a query runs against a store with no documents.
var ErrEmptyMemory = errors.New("memory is empty")

// DocumentNotFoundError reports a lookup of an unknown document name.
type DocumentNotFoundError struct {
	Name string
}

func (e *DocumentNotFoundError) Error() string {
	return fmt.Sprintf("no document named %q in memory", e.Name)
}
