package internal

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestResolveError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ResolveError
		contains []string
	}{
		{
			name:     "type_and_message",
			err:      &ResolveError{Type: ErrInput, Message: "empty URL"},
			contains: []string{"Input error", "empty URL"},
		},
		{
			name:     "code_included",
			err:      &ResolveError{Type: ErrDomain, Code: 12, Message: "share expired"},
			contains: []string{"Domain error (code 12)", "share expired"},
		},
		{
			name:     "suggestion_appended",
			err:      (&ResolveError{Type: ErrConfig, Message: "bad proxy"}).WithSuggestion("check the scheme"),
			contains: []string{"Config error", "bad proxy", "suggestion: check the scheme"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, missing %q", msg, want)
				}
			}
		})
	}
}

func TestNewDomainError_KnownErrnos(t *testing.T) {
	tests := []struct {
		errno int
		want  string
	}{
		{errno: -6, want: "rate limit"},
		{errno: -9, want: "verification required"},
		{errno: 12, want: "share expired"},
		{errno: 31061, want: "download forbidden"},
		{errno: 9999, want: "upstream API error 9999"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("errno_%d", tt.errno), func(t *testing.T) {
			err := NewDomainError(tt.errno, "")
			if !strings.Contains(err.Message, tt.want) {
				t.Errorf("errno %d: message %q missing %q", tt.errno, err.Message, tt.want)
			}
			if err.Code != tt.errno {
				t.Errorf("errno %d: Code = %d", tt.errno, err.Code)
			}
		})
	}
}

func TestNewDomainError_WrapsUpstreamMessage(t *testing.T) {
	err := NewDomainError(-1, "param missing")
	if !strings.Contains(err.Message, "param missing") {
		t.Errorf("upstream errmsg not preserved: %q", err.Message)
	}
}

func TestIsVerificationRequired(t *testing.T) {
	verify := NewVerificationError(-9)
	if !IsVerificationRequired(verify, -9) {
		t.Error("verification error with matching errno not recognized")
	}
	if IsVerificationRequired(verify, -6) {
		t.Error("errno mismatch should not match")
	}

	// A generic Domain error with the verify errno also qualifies.
	if !IsVerificationRequired(NewDomainError(-9, ""), -9) {
		t.Error("domain error carrying the verify errno should match")
	}

	if IsVerificationRequired(errors.New("plain"), -9) {
		t.Error("plain error should not match")
	}

	// Wrapped errors are unwrapped before matching.
	wrapped := fmt.Errorf("resolve: %w", verify)
	if !IsVerificationRequired(wrapped, -9) {
		t.Error("wrapped verification error not recognized")
	}
}

func TestIsType(t *testing.T) {
	if !IsType(NewInputError("bad"), ErrInput) {
		t.Error("input error not classified as ErrInput")
	}
	if IsType(NewInputError("bad"), ErrDomain) {
		t.Error("input error misclassified as ErrDomain")
	}
	if IsType(errors.New("plain"), ErrInput) {
		t.Error("plain error misclassified")
	}
}

func TestRetryable(t *testing.T) {
	if NewInputError("bad").Retryable() {
		t.Error("input errors are terminal")
	}
	if NewTokenExtractionError("layout changed").Retryable() {
		t.Error("token extraction errors are terminal")
	}
	if !NewEndpointError("timeout", 0).Retryable() {
		t.Error("endpoint errors should be retryable")
	}
}

func TestNewExhaustedError_ListsAttempts(t *testing.T) {
	err := NewExhaustedError([]string{"download endpoint: 403", "cdn redirect: no link"})
	if err.Type != ErrExhausted {
		t.Errorf("Type = %v, want ErrExhausted", err.Type)
	}
	if !strings.Contains(err.Message, "download endpoint: 403") {
		t.Errorf("attempts missing from message: %q", err.Message)
	}
}

func TestWithContext(t *testing.T) {
	err := NewConfigError("proxy_url", "bad scheme")
	if err.Context["field"] != "proxy_url" {
		t.Errorf("Context[field] = %v, want proxy_url", err.Context["field"])
	}
}
