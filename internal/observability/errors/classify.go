package errors

import (
	goerrors "errors"
	"reflect"
	"strings"
)

// classer is implemented by errors that carry a stable category code of
// their own, such as the application error type.
type classer interface {
	MetricClass() string
}

// Classify returns a normalized error type name suitable for tagging metrics/logs.
// Errors that declare their own class win; otherwise the innermost concrete type
// name is converted to snake_case-ish.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	for e := err; e != nil; e = goerrors.Unwrap(e) {
		if c, ok := e.(classer); ok {
			if class := c.MetricClass(); class != "" {
				return class
			}
		}
	}

	// Unwrap to the innermost error for better signal.
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
