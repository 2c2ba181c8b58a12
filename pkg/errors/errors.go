// Package errors provides custom error types for the harvester.
// Each fault in a harvest run maps to one of these types so callers can
// decide with errors.Is / errors.As whether a failure is fatal to the whole
// source, to a single record, or not an error at all.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is, As and Join re-export the standard library helpers so callers need a
// single errors import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Common sentinel errors for the harvester
var (
	// ErrNotFound indicates that a requested record or trace was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a record already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrFetch indicates the remote catalog could not be retrieved or decoded
	ErrFetch = errors.New("fetch failed")

	// ErrDuplicateIdentifier indicates an identifier occurred twice in one snapshot
	ErrDuplicateIdentifier = errors.New("duplicate identifier")

	// ErrSchemaViolation indicates a document failed JSON Schema validation
	ErrSchemaViolation = errors.New("schema violation")

	// ErrIdentity indicates a slug or identity could not be resolved
	ErrIdentity = errors.New("identity resolution failed")

	// ErrPersist indicates the storage collaborator rejected a write
	ErrPersist = errors.New("persist failed")

	// ErrUnclassifiable indicates a format label could not be normalized in strict mode
	ErrUnclassifiable = errors.New("unclassifiable format")

	// ErrContactPoint indicates a record lacks a usable contact point for export
	ErrContactPoint = errors.New("invalid contact point")

	// ErrLocked indicates another run holds the lock for a source
	ErrLocked = errors.New("source locked")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure of a single input value
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// FetchError is raised when the remote catalog is unreachable or malformed.
// It is fatal to the run of the affected source.
type FetchError struct {
	Source     string
	URL        string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s from %s (status %d): %s", e.Source, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fetch %s from %s: %s", e.Source, e.URL, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// NewFetchError creates a new FetchError
func NewFetchError(source, url string, statusCode int, message string, err error) *FetchError {
	return &FetchError{
		Source:     source,
		URL:        url,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// DuplicateIdentifierError records a repeated identifier within one snapshot.
// The first occurrence is kept; this error is a non-fatal diagnostic.
type DuplicateIdentifierError struct {
	Source     string
	Identifier string
	Position   int
}

// Error implements the error interface
func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate identifier %q in source %s at position %d", e.Identifier, e.Source, e.Position)
}

// Is implements errors.Is support
func (e *DuplicateIdentifierError) Is(target error) bool {
	return target == ErrDuplicateIdentifier
}

// NewDuplicateIdentifierError creates a new DuplicateIdentifierError
func NewDuplicateIdentifierError(source, identifier string, position int) *DuplicateIdentifierError {
	return &DuplicateIdentifierError{Source: source, Identifier: identifier, Position: position}
}

// Violation is a single schema failure at a document path.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// String renders the violation as "path: message".
func (v Violation) String() string {
	path := v.Path
	if path == "" {
		path = "/"
	}
	return path + ": " + v.Message
}

// SchemaViolationError aggregates every violation found for one document.
type SchemaViolationError struct {
	Identifier string
	Title      string
	Schema     string
	Violations []Violation
}

// Error implements the error interface
func (e *SchemaViolationError) Error() string {
	return e.Diagnostic()
}

// Diagnostic returns the triage string: total count, identifier, title and
// every violated path.
func (e *SchemaViolationError) Diagnostic() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%d schema violation(s) against %s for identifier=%q title=%q: %s",
		len(e.Violations), e.Schema, e.Identifier, e.Title, strings.Join(parts, "; "))
}

// Is implements errors.Is support
func (e *SchemaViolationError) Is(target error) bool {
	return target == ErrSchemaViolation
}

// NewSchemaViolationError creates a new SchemaViolationError
func NewSchemaViolationError(schema, identifier, title string, violations []Violation) *SchemaViolationError {
	return &SchemaViolationError{
		Identifier: identifier,
		Title:      title,
		Schema:     schema,
		Violations: violations,
	}
}

// IdentityError is raised when a slug cannot be assigned.
type IdentityError struct {
	Title   string
	ID      string
	Message string
	Err     error
}

// Error implements the error interface
func (e *IdentityError) Error() string {
	return fmt.Sprintf("resolve name for %q (id %s): %s", e.Title, e.ID, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IdentityError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *IdentityError) Is(target error) bool {
	return target == ErrIdentity
}

// NewIdentityError creates a new IdentityError
func NewIdentityError(title, id string, err error) *IdentityError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IdentityError{Title: title, ID: id, Message: message, Err: err}
}

// PersistError represents a storage failure during a write or read.
type PersistError struct {
	Operation string // "create", "update", "tombstone", "trace", "lookup"
	Resource  string // "record", "trace"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *PersistError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *PersistError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *PersistError) Is(target error) bool {
	return target == ErrPersist
}

// NewPersistError creates a new PersistError
func NewPersistError(operation, resource, id string, err error) *PersistError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &PersistError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// ClassificationError is raised by strict format normalization.
type ClassificationError struct {
	Value string
}

// Error implements the error interface
func (e *ClassificationError) Error() string {
	return fmt.Sprintf("cannot classify format %q", e.Value)
}

// Is implements errors.Is support
func (e *ClassificationError) Is(target error) bool {
	return target == ErrUnclassifiable
}

// NewClassificationError creates a new ClassificationError
func NewClassificationError(value string) *ClassificationError {
	return &ClassificationError{Value: value}
}

// ContactPointError rejects a record from export.
type ContactPointError struct {
	Identifier string
	Name       string
	Email      string
}

// Error implements the error interface
func (e *ContactPointError) Error() string {
	return fmt.Sprintf("record %q has no usable contact point (name=%q email=%q)", e.Identifier, e.Name, e.Email)
}

// Is implements errors.Is support
func (e *ContactPointError) Is(target error) bool {
	return target == ErrContactPoint
}

// NewContactPointError creates a new ContactPointError
func NewContactPointError(identifier, name, email string) *ContactPointError {
	return &ContactPointError{Identifier: identifier, Name: name, Email: email}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// LockError is returned when a run lock cannot be obtained.
type LockError struct {
	Key string
	Err error
}

// Error implements the error interface
func (e *LockError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lock %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("lock %s is held by another run", e.Key)
}

// Unwrap implements errors.Unwrap
func (e *LockError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *LockError) Is(target error) bool {
	return target == ErrLocked && e.Err == nil
}

// NewLockError creates a new LockError. A nil err means the lock is held
// by another run.
func NewLockError(key string, err error) *LockError {
	return &LockError{Key: key, Err: err}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "upload"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsFetch checks if an error aborted a fetch
func IsFetch(err error) bool {
	return errors.Is(err, ErrFetch)
}

// IsSchemaViolation checks if an error is a schema violation
func IsSchemaViolation(err error) bool {
	return errors.Is(err, ErrSchemaViolation)
}

// IsPersist checks if an error came from the storage collaborator
func IsPersist(err error) bool {
	return errors.Is(err, ErrPersist)
}

// IsLocked checks if an error reports a held source lock
func IsLocked(err error) bool {
	return errors.Is(err, ErrLocked)
}

// IsConfig checks if an error is a configuration error
func IsConfig(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapPersist wraps an error as a PersistError
func WrapPersist(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistError
	if errors.As(err, &pe) {
		return err
	}
	return NewPersistError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapFetch wraps an error as a FetchError
func WrapFetch(source, url string, err error) error {
	if err == nil {
		return nil
	}
	return NewFetchError(source, url, 0, err.Error(), err)
}
