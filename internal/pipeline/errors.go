package pipeline

import "fmt"

// ResourceError is a batch-level failure: a required folder or file is
// missing, there is nothing to process, or the output directory cannot be
// used. No item is attempted after one.
type ResourceError struct {
	Resource string // What was needed, e.g. "cover image".
	Path     string
	Err      error
}

func (e *ResourceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Resource, e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
