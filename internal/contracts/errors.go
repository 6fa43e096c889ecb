package contracts

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures so callers can tell
// "degraded but computed" from "rejected".
type ErrorKind string

const (
	// KindInsufficientData: lookback window exceeds available history
	KindInsufficientData ErrorKind = "insufficient_data"
	// KindUndefinedRatio: a ratio with a zero divisor (e.g. zero put volume)
	KindUndefinedRatio ErrorKind = "undefined_ratio"
	// KindInvalidParameter: caller input rejected before any computation
	KindInvalidParameter ErrorKind = "invalid_parameter"
	// KindUpstreamDataGap: an auxiliary input (chain, index series) is missing
	KindUpstreamDataGap ErrorKind = "upstream_data_gap"
)

// Error is the structured engine error (kind + context)
// ⭐ SSOT: 엔진 에러는 문자열이 아닌 이 타입으로만 전달
type Error struct {
	Kind   ErrorKind `json:"kind"`
	Op     string    `json:"op,omitempty"`
	Field  string    `json:"field,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrInsufficientData) works
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Field == "" && t.Detail == ""
}

// Sentinels for errors.Is
var (
	ErrInsufficientData = &Error{Kind: KindInsufficientData}
	ErrUndefinedRatio   = &Error{Kind: KindUndefinedRatio}
	ErrInvalidParameter = &Error{Kind: KindInvalidParameter}
	ErrUpstreamDataGap  = &Error{Kind: KindUpstreamDataGap}
)

// InsufficientData reports a lookback that exceeds history
func InsufficientData(op string, need, have int) error {
	return &Error{
		Kind:   KindInsufficientData,
		Op:     op,
		Detail: fmt.Sprintf("need %d bars, have %d", need, have),
	}
}

// UndefinedRatio reports a division by zero
func UndefinedRatio(op, detail string) error {
	return &Error{Kind: KindUndefinedRatio, Op: op, Detail: detail}
}

// InvalidParameter reports a rejected input field
func InvalidParameter(field, detail string) error {
	return &Error{Kind: KindInvalidParameter, Field: field, Detail: detail}
}

// UpstreamDataGap reports a missing auxiliary input
func UpstreamDataGap(op, detail string) error {
	return &Error{Kind: KindUpstreamDataGap, Op: op, Detail: detail}
}

// KindOf extracts the kind of a (possibly wrapped) engine error, or "" for foreign errors
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
