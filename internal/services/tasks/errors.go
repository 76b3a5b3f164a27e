package tasks

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a task or project does not exist or belongs to another user
	ErrNotFound = errors.New("task not found")
	// ErrProjectNotFound is returned when the referenced project is missing or not owned by the caller
	ErrProjectNotFound = errors.New("project not found")
)

// ValidationError reports one or more invalid request fields
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
