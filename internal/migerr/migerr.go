// Package migerr defines the typed error taxonomy used across the
// migration engine. It follows the same shape as a generic
// error/category/Unwrap split used elsewhere in this codebase's ambient
// error handling, generalized from two categories to the eleven kinds a
// migration run can fail with.
package migerr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories from spec.md §7.
type Kind string

const (
	InvalidConfiguration  Kind = "InvalidConfiguration"
	ConnectionFailed      Kind = "ConnectionFailed"
	UnsafeIdentifier      Kind = "UnsafeIdentifier"
	InvalidIdentifier     Kind = "InvalidIdentifier"
	SchemaReadFailed      Kind = "SchemaReadFailed"
	TypeMappingUnsupported Kind = "TypeMappingUnsupported"
	DDLFailed             Kind = "DDLFailed"
	BulkInsertFailed      Kind = "BulkInsertFailed"
	SequenceResetFailed   Kind = "SequenceResetFailed"
	ConstraintToggleFailed Kind = "ConstraintToggleFailed"
	Cancelled             Kind = "Cancelled"
)

// MigrationError is the interface all typed migration errors satisfy.
type MigrationError interface {
	error
	Kind() Kind
	Unwrap() error
}

// Error is the concrete MigrationError implementation. Object is the
// qualified name of the failing table/column/constraint/view, when known.
type Error struct {
	K      Kind
	Object string
	Msg    string
	Cause  error
}

var _ MigrationError = (*Error)(nil)

func (e *Error) Error() string {
	prefix := string(e.K)
	if e.Object != "" {
		prefix = fmt.Sprintf("%s[%s]", prefix, e.Object)
	}
	if e.Msg == "" && e.Cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Cause)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Msg)
}

func (e *Error) Kind() Kind    { return e.K }
func (e *Error) Unwrap() error { return e.Cause }

// New constructs a Error of the given kind with no object attribution.
func New(k Kind, msg string, cause error) *Error {
	return &Error{K: k, Msg: msg, Cause: cause}
}

// NewForObject constructs a Error attributed to a specific schema object,
// matching spec.md §7's "a failing run logs the failing object, category,
// and the vendor's error text".
func NewForObject(k Kind, object, msg string, cause error) *Error {
	return &Error{K: k, Object: object, Msg: msg, Cause: cause}
}

// KindOf unwraps err looking for a MigrationError and returns its Kind.
func KindOf(err error) (Kind, bool) {
	var me MigrationError
	if errors.As(err, &me) {
		return me.Kind(), true
	}
	return "", false
}
