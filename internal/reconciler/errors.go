package reconciler

import "errors"

var ErrInvalidConfig = errors.New("reconciler: missing required dependency")
