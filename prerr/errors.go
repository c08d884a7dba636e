// Package prerr defines the typed error taxonomy shared by every
// prbot component. Components never return bare
// fmt.Errorf strings for conditions an HTTP handler or a caller needs
// to branch on; they return one of these kinds, optionally wrapping an
// underlying cause.
package prerr

import (
	"errors"
	"fmt"
)

// Kind is one of the closed error categories components can return.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindReferentialIntegrity Kind = "referential_integrity"
	KindForgeAPI             Kind = "forge_api"
	KindLock                 Kind = "lock"
	KindConfig               Kind = "config"
	KindCrypto               Kind = "crypto"
	KindAuth                 Kind = "auth"
	KindRegex                Kind = "regex"
	KindJSON                 Kind = "json"
	KindIO                   Kind = "io"
	KindMerge                Kind = "merge"
)

// Error is a taxonomy-tagged error. Entity names attached context
// (e.g. "pull_request", "repository") for NotFound/ReferentialIntegrity
// errors.
type Error struct {
	Kind   Kind
	Entity string
	Msg    string
	Cause  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Entity != "" {
		msg += "(" + e.Entity + ")"
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match two *Error values sharing a Kind and Entity,
// ignoring Msg/Cause, which is what callers generally check for.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Entity == "" || e.Entity == t.Entity)
}

func newErr(k Kind, entity, msg string, cause error) *Error {
	return &Error{Kind: k, Entity: entity, Msg: msg, Cause: cause}
}

func NotFound(entity string, cause error) error {
	return newErr(KindNotFound, entity, "", cause)
}

func ReferentialIntegrity(entity, msg string) error {
	return newErr(KindReferentialIntegrity, entity, msg, nil)
}

func ForgeAPI(statusCode int, body string) error {
	return newErr(KindForgeAPI, "", fmt.Sprintf("status %d: %s", statusCode, body), nil)
}

func Lock(msg string, cause error) error {
	return newErr(KindLock, "", msg, cause)
}

func Config(msg string, cause error) error {
	return newErr(KindConfig, "", msg, cause)
}

func Crypto(msg string, cause error) error {
	return newErr(KindCrypto, "", msg, cause)
}

func Auth(msg string) error {
	return newErr(KindAuth, "", msg, nil)
}

func Regex(msg string, cause error) error {
	return newErr(KindRegex, "", msg, cause)
}

func JSON(msg string, cause error) error {
	return newErr(KindJSON, "", msg, cause)
}

func IO(msg string, cause error) error {
	return newErr(KindIO, "", msg, cause)
}

func Merge(msg string, cause error) error {
	return newErr(KindMerge, "", msg, cause)
}

// KindOf extracts the Kind of err if it (or something it wraps) is a
// *Error, and false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsNotFound reports whether err is (or wraps) a NotFound error.
func IsNotFound(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindNotFound
}
