package internal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies resolution failures.
type ErrorType int

const (
	// ErrInput marks a malformed or unsupported share URL. Not retryable;
	// surfaced to the user with a corrective hint.
	ErrInput ErrorType = iota
	// ErrTokenExtraction marks a share page whose markup no longer carries
	// the embedded authorization token. Not retryable.
	ErrTokenExtraction
	// ErrDomain marks a nonzero status code in an upstream JSON envelope.
	ErrDomain
	// ErrEndpoint marks a transport failure or an unparseable response.
	ErrEndpoint
	// ErrExhausted marks a download-link chain where every strategy failed.
	ErrExhausted
	// ErrConfig marks invalid runtime configuration.
	ErrConfig
)

// String returns the string representation of ErrorType.
func (et ErrorType) String() string {
	switch et {
	case ErrInput:
		return "Input"
	case ErrTokenExtraction:
		return "TokenExtraction"
	case ErrDomain:
		return "Domain"
	case ErrEndpoint:
		return "Endpoint"
	case ErrExhausted:
		return "ExhaustedStrategies"
	case ErrConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

// ResolveError is the error type produced by every stage of the
// resolver. Code carries the upstream errno for Domain errors and the
// HTTP status for Endpoint errors; zero otherwise.
type ResolveError struct {
	Code       int
	Message    string
	Type       ErrorType
	Suggestion string
	Context    map[string]any
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	parts := []string{fmt.Sprintf("%s error", e.Type)}
	if e.Code != 0 {
		parts[0] = fmt.Sprintf("%s error (code %d)", e.Type, e.Code)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Suggestion != "" {
		parts = append(parts, "suggestion: "+e.Suggestion)
	}
	return strings.Join(parts, ": ")
}

// WithSuggestion attaches a corrective hint for the end user.
func (e *ResolveError) WithSuggestion(s string) *ResolveError {
	e.Suggestion = s
	return e
}

// WithContext attaches a key/value pair for diagnostics.
func (e *ResolveError) WithContext(key string, value any) *ResolveError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Retryable reports whether retrying the same request could help.
// Input and token-extraction failures are terminal until the user or
// the upstream site changes something.
func (e *ResolveError) Retryable() bool {
	return e.Type == ErrEndpoint
}

// NewInputError creates an error for a malformed or unsupported URL.
func NewInputError(message string) *ResolveError {
	return &ResolveError{
		Type:       ErrInput,
		Message:    message,
		Suggestion: "provide a TeraBox share link such as https://terabox.com/s/1AbCdEf or .../sharing/link?surl=AbCdEf",
	}
}

// NewTokenExtractionError signals that the share page markup changed.
func NewTokenExtractionError(message string) *ResolveError {
	return &ResolveError{
		Type:       ErrTokenExtraction,
		Message:    message,
		Suggestion: "the source site changed its page layout; this link shape is currently unsupported",
	}
}

// NewDomainError wraps a nonzero errno from an upstream envelope.
func NewDomainError(errno int, errmsg string) *ResolveError {
	msg := errnoMessage(errno)
	if errmsg != "" {
		msg = fmt.Sprintf("%s (%s)", msg, errmsg)
	}
	return &ResolveError{Type: ErrDomain, Code: errno, Message: msg}
}

// NewVerificationError builds the distinct Domain error for the
// verification-required condition.
func NewVerificationError(errno int) *ResolveError {
	return &ResolveError{
		Type:       ErrDomain,
		Code:       errno,
		Message:    "upstream requires human verification for this network origin",
		Suggestion: "supply pre-authenticated session cookies via the cookie file option",
	}
}

// NewEndpointError wraps a transport or parse failure for one endpoint.
func NewEndpointError(message string, status int) *ResolveError {
	return &ResolveError{Type: ErrEndpoint, Code: status, Message: message}
}

// NewExhaustedError signals that every download-link strategy failed.
func NewExhaustedError(attempts []string) *ResolveError {
	return &ResolveError{
		Type:    ErrExhausted,
		Message: "all download-link strategies failed: " + strings.Join(attempts, "; "),
	}
}

// NewConfigError creates an error for invalid configuration.
func NewConfigError(field, message string) *ResolveError {
	e := &ResolveError{Type: ErrConfig, Message: message}
	return e.WithContext("field", field)
}

// IsVerificationRequired reports whether err is the Domain error that
// asks for pre-authenticated cookies. The errno is configurable because
// the upstream value has drifted over time.
func IsVerificationRequired(err error, verifyErrno int) bool {
	var re *ResolveError
	if !errors.As(err, &re) {
		return false
	}
	return re.Type == ErrDomain && re.Code == verifyErrno
}

// IsType reports whether err is a ResolveError of the given type.
func IsType(err error, t ErrorType) bool {
	var re *ResolveError
	if !errors.As(err, &re) {
		return false
	}
	return re.Type == t
}

// errnoMessage maps observed upstream error codes to readable text.
// The codes are asserted from observed behavior and may be stale.
func errnoMessage(errno int) string {
	switch errno {
	case -1:
		return "invalid request parameters"
	case -2:
		return "authentication required or invalid"
	case -3:
		return "access denied"
	case -4, 7, 10:
		return "file not found or share removed"
	case -6:
		return "rate limit exceeded"
	case -9:
		return "verification required"
	case 11:
		return "share cancelled"
	case 12:
		return "share expired"
	case 14:
		return "share password required"
	case 15:
		return "share password incorrect"
	case 31045:
		return "verification code required"
	case 31061:
		return "file download forbidden"
	default:
		return fmt.Sprintf("upstream API error %d", errno)
	}
}
