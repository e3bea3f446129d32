package shellenv

import "errors"

// ErrProcessLimitReached is raised synchronously when starting a process
// with a full process table (or while the admission limiter is saturated).
var ErrProcessLimitReached = errors.New("process limit reached")

// ErrInvalidName is returned when a proposed environment variable name
// fails the [A-Za-z_][A-Za-z0-9_]* pattern.
var ErrInvalidName = errors.New("invalid environment variable name")

// ErrProcessNotFound is returned by operations targeting an unknown PID.
var ErrProcessNotFound = errors.New("process not found")
