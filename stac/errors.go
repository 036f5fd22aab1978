// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failure. Callers branch on the kind rather than on
// message text.
type ErrorKind string

const (
	KindParse              ErrorKind = "Parse"              // malformed input bytes
	KindStructural         ErrorKind = "Structural"         // well-formed but violates document invariants
	KindUnsupportedVersion ErrorKind = "UnsupportedVersion" // stac_version outside the supported range
	KindExtensionMismatch  ErrorKind = "ExtensionMismatch"  // field disagrees with a registered extension
	KindSchemaMismatch     ErrorKind = "SchemaMismatch"     // columnar encode/decode shape disagreement
	KindValidationFailed   ErrorKind = "ValidationFailed"   // aggregate of JSON-Schema violations
	KindIo                 ErrorKind = "Io"                 // local I/O, surfaced from collaborators
	KindNetwork            ErrorKind = "Network"            // remote I/O, surfaced from collaborators
)

// Sentinels for use with errors.Is. ErrStac matches every *Error; the others
// match only errors of their kind.
var (
	ErrStac               = &Error{}
	ErrParse              = &Error{Kind: KindParse}
	ErrStructural         = &Error{Kind: KindStructural}
	ErrUnsupportedVersion = &Error{Kind: KindUnsupportedVersion}
	ErrExtensionMismatch  = &Error{Kind: KindExtensionMismatch}
	ErrSchemaMismatch     = &Error{Kind: KindSchemaMismatch}
	ErrValidationFailed   = &Error{Kind: KindValidationFailed}
	ErrIo                 = &Error{Kind: KindIo}
	ErrNetwork            = &Error{Kind: KindNetwork}
)

// Error is the error type returned by every operation in this module.
type Error struct {
	Kind    ErrorKind
	Path    string // JSON pointer to the offending member, "" for the whole input
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is supports errors.Is. A target without a kind matches any *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// Errorf builds an *Error of the given kind.
func Errorf(kind ErrorKind, path string, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps err as an *Error of the given kind. A nil err yields nil.
func WrapError(kind ErrorKind, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Path: path, Err: err}
}

func structuralf(path string, format string, args ...any) *Error {
	return Errorf(KindStructural, path, format, args...)
}

// decodeError classifies a failure of the ordered decoder: duplicate members
// keep their Structural error, anything else is malformed JSON.
func decodeError(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindParse, Message: "malformed JSON", Err: err}
}

func missing(path string) *Error {
	return &Error{Kind: KindStructural, Path: path, Message: "missing required field"}
}

// Violation is one JSON-Schema or consistency failure found by a validator.
type Violation struct {
	Path    string // JSON pointer into the document
	Message string
	Schema  string // URI of the schema that reported it, if any
}

func (v Violation) String() string {
	p := v.Path
	if p == "" {
		p = "/"
	}
	return p + ": " + v.Message
}

// ValidationError aggregates every violation found in one document.
type ValidationError struct {
	ID         string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d violation(s)", KindValidationFailed, len(e.Violations))
	if e.ID != "" {
		fmt.Fprintf(&b, " in %q", e.ID)
	}
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v.String())
	}
	return b.String()
}

// Is matches ErrValidationFailed and ErrStac.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == KindValidationFailed
}

// pointer appends an escaped reference token to a JSON pointer.
func pointer(parent string, token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	token = strings.ReplaceAll(token, "/", "~1")
	return parent + "/" + token
}

func index(parent string, i int) string {
	return fmt.Sprintf("%s/%d", parent, i)
}
