package walk

import (
	"errors"
	"fmt"

	"github.com/Chapsvision-dev/treesum/internal/digest"
)

// NotFoundError reports a root or entry that does not exist (anymore).
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not locate specified file or folder %q", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// SevereError wraps any other I/O fault hit during traversal.
type SevereError struct {
	Path string
	Err  error
}

func (e *SevereError) Error() string {
	return fmt.Sprintf("traverse %s: %v", e.Path, e.Err)
}

func (e *SevereError) Unwrap() error { return e.Err }

// Class groups traversal failures by how the caller should report them.
type Class int

const (
	ClassNone Class = iota
	ClassNotFound
	ClassSevere
)

// Classify maps an error returned by VisitRoot to its Class.
// Files that cannot be opened count as not found.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	var nf *NotFoundError
	var fa *digest.FileAccessError
	if errors.As(err, &nf) || errors.As(err, &fa) {
		return ClassNotFound
	}
	return ClassSevere
}
