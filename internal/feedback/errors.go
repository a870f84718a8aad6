package feedback

import "errors"

// ErrUnknownStatus is returned when filtering by a status that does not exist.
var ErrUnknownStatus = errors.New("unknown feedback status")
