package digest

import "fmt"

// UnsupportedAlgorithmError is returned by New for names missing from the registry.
type UnsupportedAlgorithmError struct {
	Name string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("hashing algorithm %q unknown", e.Name)
}

// FileAccessError reports a file that could not be opened for hashing.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// IOFailure reports a read that failed part way through a stream.
type IOFailure struct {
	Path string // empty for anonymous streams
	Err  error
}

func (e *IOFailure) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("read: %v", e.Err)
	}
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *IOFailure) Unwrap() error { return e.Err }
