package core

import "errors"

var (
	ErrMalformedStatement  = errors.New("malformed statement")
	ErrUnknownColumn       = errors.New("unknown column")
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrIOFailure           = errors.New("i/o failure")
	ErrNoDatabaseSelected  = errors.New("no database selected")
	ErrNotFound            = errors.New("not found")
	ErrNoActiveTransaction = errors.New("no active transaction")
)
