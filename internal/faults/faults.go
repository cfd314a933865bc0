package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Class markers.
var (
	ErrSchema    = errors.New("schema error")
	ErrValue     = errors.New("value error")
	ErrContainer = errors.New("container error")
	ErrReference = errors.New("reference error")
)

// kind is a specific sentinel that also matches its class marker.
type kind struct {
	msg   string
	class error
}

func (k *kind) Error() string { return k.msg }

func (k *kind) Unwrap() error { return k.class }

func newKind(msg string, class error) error {
	return &kind{msg: msg, class: class}
}

// Schema errors.
var (
	ErrDuplicateClass        = newKind("duplicate class", ErrSchema)
	ErrUnknownClass          = newKind("unknown class", ErrSchema)
	ErrAbstractClass         = newKind("abstract class", ErrSchema)
	ErrCyclicInheritance     = newKind("cyclic inheritance", ErrSchema)
	ErrUnknownProperty       = newKind("unknown property", ErrSchema)
	ErrDuplicateProperty     = newKind("duplicate property", ErrSchema)
	ErrTypeMismatch          = newKind("type mismatch", ErrSchema)
	ErrMissingProperty       = newKind("mandatory property missing", ErrSchema)
	ErrIncompatibleExtension = newKind("incompatible schema extension", ErrSchema)
	ErrDuplicateSlotID       = newKind("duplicate slot id", ErrSchema)
	ErrDuplicateMob          = newKind("duplicate mob", ErrSchema)
)

// Value errors.
var (
	ErrMalformedValue     = newKind("malformed value", ErrValue)
	ErrPropertyNotPresent = newKind("property not present", ErrValue)
)

// Container errors.
var (
	ErrNotAContainer     = newKind("not a container", ErrContainer)
	ErrCorruptContainer  = newKind("corrupt container", ErrContainer)
	ErrIO                = newKind("i/o error", ErrContainer)
	ErrLocked            = newKind("container locked", ErrContainer)
	ErrReadOnly          = newKind("container opened read-only", ErrContainer)
	ErrClosed            = newKind("container closed", ErrContainer)
	ErrStreamNotFound    = newKind("stream not found", ErrContainer)
	ErrEntryExists       = newKind("entry already exists", ErrContainer)
	ErrInsufficientSpace = newKind("insufficient disk space", ErrContainer)
)

// Reference errors.
var (
	ErrUnresolvedReference = newKind("unresolved reference", ErrReference)
	ErrObjectNotFound      = newKind("object not found", ErrReference)
)

// Wrap builds an error message that includes component and operation context
// while tagging it with marker for later classification.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrContainer
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Category returns the class name of err: "schema", "value", "container",
// "reference" or "unknown".
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSchema):
		return "schema"
	case errors.Is(err, ErrValue):
		return "value"
	case errors.Is(err, ErrContainer):
		return "container"
	case errors.Is(err, ErrReference):
		return "reference"
	default:
		return "unknown"
	}
}

// Fatal reports whether err invalidates the container handle it came from.
func Fatal(err error) bool {
	return errors.Is(err, ErrNotAContainer) ||
		errors.Is(err, ErrCorruptContainer) ||
		errors.Is(err, ErrIO)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "engine failure"
	}
	return strings.Join(parts, ": ")
}
