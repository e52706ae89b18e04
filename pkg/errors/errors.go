// Package errors defines the structured error types surfaced by the cartable
// client. Every error raised to a caller carries a kind (the failure class),
// the upstream response code when one exists, and a human-readable message
// suitable for direct display.
package errors

import (
	"errors"
	"fmt"

	"github.com/cartable-app/cartable/pkg/constants"
)

// Kind classifies a client failure. The set mirrors the behaviors callers must
// distinguish: actionable credential problems, the challenge sub-flow, expired
// sessions, variant mismatches, connectivity failures and caller-driven aborts.
type Kind string

const (
	// KindAuthentication covers bad credentials, blocked accounts and every
	// other upstream refusal of a login. Never retried automatically.
	KindAuthentication Kind = "authentication"

	// KindChallengeRequired is not a failure but a required next step: the
	// caller must present the question and answer it via AnswerChallenge.
	KindChallengeRequired Kind = "challenge_required"

	// KindSessionExpired indicates the upstream rejected the session tokens
	// mid-flight; the caller is expected to re-authenticate and retry.
	KindSessionExpired Kind = "session_expired"

	// KindPermission indicates the operation is not allowed for the current
	// account variant. Never retried.
	KindPermission Kind = "permission"

	// KindTransport wraps network or protocol-level failures. Safe to retry
	// with backoff at the caller's discretion.
	KindTransport Kind = "transport"

	// KindCancelled indicates a caller-initiated abort, not a failure.
	KindCancelled Kind = "cancelled"

	// KindUsage indicates a programmer error, such as answering a challenge
	// that was never issued.
	KindUsage Kind = "usage"
)

// ================================================================================
// ClientError
// ================================================================================

// ClientError is the structured error surfaced by every client operation.
type ClientError interface {
	error

	// Kind returns the failure class.
	Kind() Kind

	// Code returns the upstream response code, or 0 when the failure never
	// reached (or never came from) the upstream.
	Code() constants.UpstreamCode

	// Unwrap returns the underlying cause for error-chain support.
	Unwrap() error

	// WithCause attaches an underlying cause.
	WithCause(cause error) ClientError
}

type clientError struct {
	kind    Kind
	code    constants.UpstreamCode
	message string
	cause   error
}

func (e *clientError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *clientError) Kind() Kind                   { return e.kind }
func (e *clientError) Code() constants.UpstreamCode { return e.code }
func (e *clientError) Unwrap() error                { return e.cause }

func (e *clientError) WithCause(cause error) ClientError {
	e.cause = cause
	return e
}

// New creates a ClientError with the given kind, upstream code and message.
func New(kind Kind, code constants.UpstreamCode, message string) ClientError {
	return &clientError{kind: kind, code: code, message: message}
}

// ================================================================================
// Constructors
// ================================================================================

// ErrAuthentication builds an authentication error for an upstream code,
// resolving the display message through the code table. Unknown codes fall
// back to the upstream-provided message, then to the generic one.
func ErrAuthentication(code constants.UpstreamCode, upstreamMessage string) ClientError {
	msg, ok := constants.UpstreamMessages[code]
	if !ok {
		msg = upstreamMessage
	}
	if msg == "" {
		msg = constants.GenericErrorMessage
	}
	return New(KindAuthentication, code, msg)
}

// ErrIncorrectAnswer reports a wrong answer to the security question. The
// pending challenge is left in place so the caller may retry another index.
func ErrIncorrectAnswer(code constants.UpstreamCode) ClientError {
	return New(KindAuthentication, code, "Réponse incorrecte au QCM")
}

// ErrSessionExpired reports upstream codes 520/525 on a data call.
func ErrSessionExpired(code constants.UpstreamCode) ClientError {
	return New(KindSessionExpired, code, "Session expirée, veuillez vous reconnecter")
}

// ErrPermission reports an operation invoked with the wrong account variant.
func ErrPermission(message string) ClientError {
	return New(KindPermission, 0, message)
}

// ErrNotAuthenticated reports a data call issued with no live session.
func ErrNotAuthenticated() ClientError {
	return New(KindPermission, 0, "Non authentifié")
}

// ErrTransport wraps a network-level failure.
func ErrTransport(message string, cause error) ClientError {
	return New(KindTransport, 0, message).WithCause(cause)
}

// ErrCancelled reports a caller-initiated abort of an in-flight request.
func ErrCancelled() ClientError {
	return New(KindCancelled, 0, "Requête annulée")
}

// ErrUsage reports a programmer error.
func ErrUsage(message string) ClientError {
	return New(KindUsage, 0, message)
}

// ================================================================================
// ChallengeRequired
// ================================================================================

// ChallengeRequired is returned by Login when the upstream demands the
// double-authentication step (code 250). It is a ClientError of kind
// KindChallengeRequired and carries the decoded question and answer choices
// for the caller to present.
type ChallengeRequired struct {
	Question string
	Choices  []string
}

func (e *ChallengeRequired) Error() string {
	return constants.UpstreamMessages[constants.CodeChallengeRequired]
}

func (e *ChallengeRequired) Kind() Kind                   { return KindChallengeRequired }
func (e *ChallengeRequired) Code() constants.UpstreamCode { return constants.CodeChallengeRequired }
func (e *ChallengeRequired) Unwrap() error                { return nil }
func (e *ChallengeRequired) WithCause(cause error) ClientError {
	return e
}

// ================================================================================
// Predicates
// ================================================================================

// AsClientError attempts to extract a ClientError from an error chain.
func AsClientError(err error) (ClientError, bool) {
	var ce ClientError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsKind reports whether any error in the chain is a ClientError of the given kind.
func IsKind(err error, kind Kind) bool {
	if ce, ok := AsClientError(err); ok {
		return ce.Kind() == kind
	}
	return false
}

// IsAuthentication reports whether err is an authentication failure.
func IsAuthentication(err error) bool { return IsKind(err, KindAuthentication) }

// IsChallengeRequired reports whether err signals the challenge sub-flow.
func IsChallengeRequired(err error) bool { return IsKind(err, KindChallengeRequired) }

// IsSessionExpired reports whether err signals an expired session.
func IsSessionExpired(err error) bool { return IsKind(err, KindSessionExpired) }

// IsPermission reports whether err is a variant/permission refusal.
func IsPermission(err error) bool { return IsKind(err, KindPermission) }

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool { return IsKind(err, KindTransport) }

// IsCancelled reports whether err is a caller-initiated abort.
func IsCancelled(err error) bool { return IsKind(err, KindCancelled) }

// AsChallengeRequired extracts the challenge payload from an error chain.
func AsChallengeRequired(err error) (*ChallengeRequired, bool) {
	var cr *ChallengeRequired
	if errors.As(err, &cr) {
		return cr, true
	}
	return nil, false
}
