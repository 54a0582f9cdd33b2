package timeline

import (
	"errors"
	"fmt"
)

// ErrNotFound matches every NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// ErrResizeTooShort is returned when a left-edge resize would leave the clip
// at or below the minimum resize duration.
var ErrResizeTooShort = errors.New("resize would make clip too short")

// NotFoundError reports an operation on a missing clip.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "clip"
	}
	return fmt.Sprintf("%s %q not found", kind, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// SplitOutOfRangeError reports a split point outside the clip interior.
type SplitOutOfRangeError struct {
	ClipID string
	At     float64
	Start  float64
	End    float64
}

func (e *SplitOutOfRangeError) Error() string {
	return fmt.Sprintf("split at %.3fs is outside clip %s (%.3fs-%.3fs)", e.At, e.ClipID, e.Start, e.End)
}
