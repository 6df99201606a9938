package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	perrors "github.com/jmgilman/go/errors"
)

// Kind tags an error with the condition that caused it.
type Kind int

const (
	// KindUnknown is any untagged error. It is never retried.
	KindUnknown Kind = iota
	KindNetwork
	KindTimeout
	KindUnavailable
	KindValidation
	KindNotFound
	KindPermission
	KindCanceled
)

var kindNames = [...]string{
	KindUnknown:     "unknown",
	KindNetwork:     "network",
	KindTimeout:     "timeout",
	KindUnavailable: "unavailable",
	KindValidation:  "validation",
	KindNotFound:    "not_found",
	KindPermission:  "permission",
	KindCanceled:    "canceled",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Retryable reports whether failures of this kind are transient.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindUnavailable:
		return true
	default:
		return false
	}
}

// Network tags err as a network failure. A nil err yields a fresh error.
func Network(err error, msg string) error { return tag(err, perrors.CodeNetwork, msg) }

// Timeout tags err as a timeout.
func Timeout(err error, msg string) error { return tag(err, perrors.CodeTimeout, msg) }

// Unavailable tags err as a temporarily unavailable upstream (5xx, overload).
func Unavailable(err error, msg string) error { return tag(err, perrors.CodeUnavailable, msg) }

// Validation tags err as invalid input. Never retried.
func Validation(err error, msg string) error { return tag(err, perrors.CodeInvalidInput, msg) }

// NotFound tags err as a missing resource. Never retried.
func NotFound(err error, msg string) error { return tag(err, perrors.CodeNotFound, msg) }

// Permission tags err as an authorization failure. Never retried.
func Permission(err error, msg string) error { return tag(err, perrors.CodeForbidden, msg) }

func tag(err error, code perrors.ErrorCode, msg string) error {
	if err == nil {
		return perrors.New(code, msg)
	}
	// Wrap keeps the cause reachable through errors.Is/As. An inner
	// PlatformError's classification is preserved by Wrap.
	return perrors.Wrap(err, code, msg)
}

// Classify returns the Kind of err. Tagged errors map from their code;
// standard library transport errors are recognised by type.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var pe perrors.PlatformError
	if errors.As(err, &pe) {
		switch pe.Code() {
		case perrors.CodeNetwork:
			return KindNetwork
		case perrors.CodeTimeout:
			return KindTimeout
		case perrors.CodeUnavailable, perrors.CodeRateLimit, perrors.CodeDatabase:
			return KindUnavailable
		case perrors.CodeInvalidInput, perrors.CodeInvalidConfig, perrors.CodeSchemaFailed:
			return KindValidation
		case perrors.CodeNotFound:
			return KindNotFound
		case perrors.CodeUnauthorized, perrors.CodeForbidden:
			return KindPermission
		}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return KindNetwork
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return KindNetwork
	}
	return KindUnknown
}

// IsRetryable is the default retry predicate. An explicit classification
// on a tagged error wins over its kind, so callers can pin a normally
// transient failure as permanent with errors.WithClassification.
func IsRetryable(err error) bool {
	var pe perrors.PlatformError
	if errors.As(err, &pe) && pe.Code() != perrors.CodeUnknown {
		if !pe.Classification().IsRetryable() {
			return false
		}
	}
	return Classify(err).Retryable()
}
