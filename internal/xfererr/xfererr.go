// Copyright (c) 2026 Netskope, Inc. All rights reserved.

// Package xfererr classifies transfer failures into the small set of kinds the
// operator sees in a run report.
//
// Components wrap SDK errors into an *Error carrying a Kind and the failed
// operation. Callers match kinds with errors.Is against the exported sentinels:
//
//	if errors.Is(err, xfererr.ErrNotFound) { ... }
package xfererr

import (
	"errors"
	"fmt"
)

// Kind is the high-level class of a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindConnection
	KindNotFound
	KindConversion
	KindPermission
	KindChecksumMismatch
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "AuthError"
	case KindConnection:
		return "ConnectionError"
	case KindNotFound:
		return "NotFoundError"
	case KindConversion:
		return "ConversionError"
	case KindPermission:
		return "PermissionError"
	case KindChecksumMismatch:
		return "ChecksumMismatch"
	default:
		return "UnknownError"
	}
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrAuth             = &Error{Kind: KindAuth}
	ErrConnection       = &Error{Kind: KindConnection}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrConversion       = &Error{Kind: KindConversion}
	ErrPermission       = &Error{Kind: KindPermission}
	ErrChecksumMismatch = &Error{Kind: KindChecksumMismatch}
)

// Error is a classified failure of a single operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New wraps err with a kind and the operation that produced it.
func New(kind Kind, op string, err error) error {
	if err == nil {
		err = errors.New(kind.String())
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted cause.
func Newf(kind Kind, op, format string, args ...any) error {
	return New(kind, op, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
