package domain

import (
	"errors"
	"fmt"
)

// NotFoundError reports a reference to an entity that does not exist in the
// current workspace. Creation operations return it when the supplied parent
// or target id is unknown.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// ValidationError reports malformed input to a store operation, such as an
// unknown status value or a reorder list that does not cover the sibling set.
type ValidationError struct {
	Entity EntityType
	Msg    string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Entity, e.Msg)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
