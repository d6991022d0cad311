package backend

import "errors"

// ErrBadgeUnknown indicates a scanned badge matched no employee.
var ErrBadgeUnknown = errors.New("badge not recognized")
