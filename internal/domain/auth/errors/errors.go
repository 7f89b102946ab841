package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInternal           = errors.New("internal error")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUnverified         = errors.New("account is not activated")
	ErrExpired            = errors.New("expired")
	ErrSigning            = errors.New("token signing misconfigured")
	ErrForbidden          = errors.New("forbidden")
)

// ValidationError carries every field violation found in one request.
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
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrInvalidArgument, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

func NewValidation(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}

// NewFieldError is a shorthand for a single-field validation failure.
func NewFieldError(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// DetailError pairs an error kind with a message that is safe to show to clients.
type DetailError struct {
	Kind   error
	Detail string
}

func (e *DetailError) Error() string { return e.Kind.Error() + ": " + e.Detail }

func (e *DetailError) Unwrap() error { return e.Kind }

func WithDetail(kind error, detail string) error {
	return &DetailError{Kind: kind, Detail: detail}
}

// Detail returns the client-facing message attached anywhere in the chain.
func Detail(err error) (string, bool) {
	var d *DetailError
	if errors.As(err, &d) {
		return d.Detail, true
	}
	return "", false
}

func NewInvalidArgument(msg string) error {
	return WithDetail(ErrInvalidArgument, msg)
}

func NewAlreadyExists(msg string) error {
	return WithDetail(ErrAlreadyExists, msg)
}

func NewNotFound(msg string) error {
	return WithDetail(ErrNotFound, msg)
}

func WrapInternal(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, context, err)
}

// Fields returns the field map of a ValidationError anywhere in the chain.
func Fields(err error) map[string]string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Fields
	}
	return nil
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsUnverified(err error) bool {
	return errors.Is(err, ErrUnverified)
}

func IsExpired(err error) bool {
	return errors.Is(err, ErrExpired)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
