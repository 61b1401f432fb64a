// Package cperrors implements CostPilot's structured error signature: every
// error that crosses an invocation boundary is a {code, category, message,
// context, hint, signature_hash} value, never a free-form string or a
// stack trace. The hint text is a fixed template keyed off the error code
// (internal/cperrors/hints.go) — it is never generated.
package cperrors

import (
	"fmt"
	"sort"

	"costpilot/internal/canon"
)

// Kind names one of the seven error categories the core can surface.
// These are the only categories that exist — callers classify into one
// of them, never invent a new one ad hoc.
type Kind string

const (
	KindParse           Kind = "ParseError"
	KindValidation      Kind = "ValidationError"
	KindPolicyViolation Kind = "PolicyViolation"
	KindSandboxExceeded Kind = "SandboxExceeded"
	KindLicense         Kind = "LicenseError"
	KindConfiguration   Kind = "ConfigurationError"
	KindInternal        Kind = "InternalError"
)

// Code identifies a specific error condition within a Kind, e.g.
// "plan_format_unrecognized" under KindParse. Codes are stable across
// releases; they are part of the hash input and the hint lookup key.
type Code string

// Error is CostPilot's structured error value. It always carries a Kind,
// a stable Code, a human-readable Message, sorted Context, and a fixed
// Hint selected by Code — never free-form remediation text.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Context map[string]string
	Hint    string
}

// New builds an Error. Context may be nil; it is copied and iterated in
// sorted key order wherever it affects output, so construction order
// never leaks into the signature hash.
func New(kind Kind, code Code, message string, context map[string]string) *Error {
	ctxCopy := make(map[string]string, len(context))
	for k, v := range context {
		ctxCopy[k] = v
	}
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Context: ctxCopy,
		Hint:    hintFor(code),
	}
}

// Error implements the error interface with a plain-text rendering; this
// is for logs and terminals, not the canonical signature (see Signature).
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Code, e.Message)
}

// SortedContextKeys returns Context's keys in lexicographic order.
func (e *Error) SortedContextKeys() []string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Signature computes signature_hash: SHA-256 over code || sorted-context.
// The same logical error therefore hashes identically across runs and
// platforms — message text and hint are deliberately excluded so that
// wording changes never change the signature that tooling keys off of.
func (e *Error) Signature() (string, error) {
	keys := e.SortedContextKeys()
	ordered := make([]string, 0, len(keys)*2+1)
	ordered = append(ordered, string(e.Code))
	for _, k := range keys {
		ordered = append(ordered, k, e.Context[k])
	}
	parts := make([]string, len(ordered))
	copy(parts, ordered)
	return canon.ID(parts...), nil
}

// Signal is the full structured output emitted at an invocation boundary:
// {code, category, message, context[sorted], hint, signature_hash}.
type Signal struct {
	Code          Code              `json:"code"`
	Category      Kind              `json:"category"`
	Message       string            `json:"message"`
	Context       map[string]string `json:"context,omitempty"`
	Hint          string            `json:"hint"`
	SignatureHash string            `json:"signature_hash"`
}

// ToSignal renders the error's invocation-boundary signature. A debug
// flag may ask a caller to additionally attach a call trace elsewhere
// (the core never does this itself — see spec.md §7 "no stack traces by
// default").
func (e *Error) ToSignal() (*Signal, error) {
	sig, err := e.Signature()
	if err != nil {
		return nil, err
	}
	return &Signal{
		Code:          e.Code,
		Category:      e.Kind,
		Message:       e.Message,
		Context:       e.Context,
		Hint:          e.Hint,
		SignatureHash: sig,
	}, nil
}

// Is reports whether target is a *Error with the same Code, satisfying
// errors.Is.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}
