package node

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrServiceUnknown = errors.New("unknown service")
	ErrNodeRunning    = errors.New("node already running")
	ErrNodeStopped    = errors.New("node not started")
)

// DuplicateServiceError is returned when two services register under the
// same name.
type DuplicateServiceError struct {
	Kind string
}

func (e *DuplicateServiceError) Error() string {
	return fmt.Sprintf("duplicate service: %s", e.Kind)
}

// StopError collects the services that failed to stop.
type StopError struct {
	Services map[string]error
}

func (e *StopError) Error() string {
	names := make([]string, 0, len(e.Services))
	for name := range e.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", name, e.Services[name]))
	}
	return "services failed to stop: " + strings.Join(parts, ", ")
}
