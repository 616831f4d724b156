// Package errors provides standardized error types and helpers for lexpub.
//
// The render taxonomy maps onto these types:
//   - DataError: a single value could not be rendered; recovered in place.
//   - ConfigError: a configuration node cannot be applied; its subtree is skipped.
//   - InvariantError: derived publication state is inconsistent; fatal.
//   - BatchError: one or more entries of a batch failed; siblings are kept.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal indicates an internal system error
	ErrInternal = errors.New("internal error")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")
	// ErrBadData indicates a stored value that cannot be rendered
	ErrBadData = errors.New("bad data")
	// ErrConfig indicates a configuration node that cannot be applied
	ErrConfig = errors.New("configuration error")
	// ErrInvariant indicates a violated publication invariant
	ErrInvariant = errors.New("invariant violation")
)

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "object", "field", "class")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be redacted)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "YAML", "collation rules")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// DataError reports a stored value that could not be rendered, such as
// text that is not valid UTF-8 or a reference to an unknown writing system.
type DataError struct {
	Object  int64  // Handle of the object holding the value
	Field   string // Field name
	Message string // Diagnostic
	Err     error  // Underlying error, if any
}

func (e *DataError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("bad value in %d.%s: %s", e.Object, e.Field, e.Message)
	}
	return fmt.Sprintf("bad value in %d: %s", e.Object, e.Message)
}

func (e *DataError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrBadData
}

// ConfigError reports a configuration node that references a field or
// class the object graph does not have.
type ConfigError struct {
	Node    string // Path of the configuration node
	Class   string // Class the node was applied to
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Class != "" {
		return fmt.Sprintf("config node %s on %s: %s", e.Node, e.Class, e.Message)
	}
	return fmt.Sprintf("config node %s: %s", e.Node, e.Message)
}

func (e *ConfigError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrConfig
}

// InvariantError reports inconsistent derived state.
type InvariantError struct {
	Invariant string  // Short name of the broken rule
	Handles   []int64 // Offending handles, if any
}

func (e *InvariantError) Error() string {
	if len(e.Handles) == 0 {
		return fmt.Sprintf("invariant violated: %s", e.Invariant)
	}
	return fmt.Sprintf("invariant violated: %s (%d objects, first %d)", e.Invariant, len(e.Handles), e.Handles[0])
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

// EntryFailure records why a single entry of a batch failed.
type EntryFailure struct {
	Index  int   // Position of the entry in the batch
	Handle int64 // Entry handle
	Err    error
}

// BatchError lists the entries of a batch that failed to render.
type BatchError struct {
	Failures []EntryFailure
}

func (e *BatchError) Error() string {
	if len(e.Failures) == 1 {
		f := e.Failures[0]
		return fmt.Sprintf("entry %d (#%d) failed: %v", f.Handle, f.Index, f.Err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d entries failed", len(e.Failures))
	for i, f := range e.Failures {
		if i == 3 {
			b.WriteString("; ...")
			break
		}
		fmt.Fprintf(&b, "; entry %d (#%d): %v", f.Handle, f.Index, f.Err)
	}
	return b.String()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Add records a failure, keeping failures ordered by batch index.
func (e *BatchError) Add(index int, handle int64, err error) {
	e.Failures = append(e.Failures, EntryFailure{Index: index, Handle: handle, Err: err})
	sort.SliceStable(e.Failures, func(i, j int) bool {
		return e.Failures[i].Index < e.Failures[j].Index
	})
}

// ErrOrNil returns e if it holds failures and nil otherwise.
func (e *BatchError) ErrOrNil() error {
	if e == nil || len(e.Failures) == 0 {
		return nil
	}
	return e
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// NewData creates a DataError
func NewData(object int64, field, message string) *DataError {
	return &DataError{
		Object:  object,
		Field:   field,
		Message: message,
	}
}

// NewConfig creates a ConfigError
func NewConfig(node, class, message string) *ConfigError {
	return &ConfigError{
		Node:    node,
		Class:   class,
		Message: message,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New wraps errors.New for convenience
func New(text string) error {
	return errors.New(text)
}
