// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verkada

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bureau-foundation/decommission/lib/netutil"
)

var (
	// ErrAuthFailed is a rejected login. Fatal for the run.
	ErrAuthFailed = errors.New("verkada: authentication failed")

	// ErrSessionParse means a login reply lacked one of the session
	// fields. No partial session is ever produced.
	ErrSessionParse = errors.New("verkada: login response missing session fields")

	// ErrNoPendingChallenge is returned by CompleteChallenge without a
	// preceding Login that asked for a code.
	ErrNoPendingChallenge = errors.New("verkada: no pending login attempt")

	// ErrChallengeInvalid is a wrong or expired one-time code.
	ErrChallengeInvalid = errors.New("verkada: incorrect verification code")

	// ErrLoginRequired accompanies ErrChallengeInvalid when the
	// authenticator discards the challenge; the caller must Login again.
	ErrLoginRequired = errors.New("verkada: challenge discarded, login again")

	// ErrChallengeFailed is any other failure while completing a
	// challenge.
	ErrChallengeFailed = errors.New("verkada: verification failed")

	// ErrNotAuthenticated is returned by internal calls made before a
	// session exists.
	ErrNotAuthenticated = errors.New("verkada: not authenticated")

	// ErrTokenExchange is a failed API key to token exchange. Fatal for
	// the run.
	ErrTokenExchange = errors.New("verkada: token exchange failed")

	// ErrTokenExpired is a 401 from the external surface that could not
	// be recovered by refreshing the token.
	ErrTokenExpired = errors.New("verkada: external API token expired")

	// ErrAPIKeyLimit is the console refusing to mint another API key
	// because the organization already has ten.
	ErrAPIKeyLimit = errors.New("verkada: organization API key limit reached")
)

// APIError is a non-2xx reply from either surface.
type APIError struct {
	Surface    Surface
	Method     string
	Path       string
	StatusCode int

	// Message is the "message" field of a JSON error body, if any.
	Message string

	// Body is the raw reply, bounded by netutil.MaxResponseSize. Empty
	// list detection on the external surface matches against it.
	Body string
}

func (err *APIError) Error() string {
	detail := err.Message
	if detail == "" {
		detail = netutil.Snippet([]byte(err.Body))
	}
	if detail == "" {
		detail = http.StatusText(err.StatusCode)
	}
	return fmt.Sprintf("verkada: %s %s %s: HTTP %d: %s",
		err.Surface, err.Method, err.Path, err.StatusCode, detail)
}

// Contains reports whether the reply body or message mentions fragment.
func (err *APIError) Contains(fragment string) bool {
	return strings.Contains(err.Body, fragment) || strings.Contains(err.Message, fragment)
}

func newAPIError(surface Surface, method, path string, status int, body []byte) *APIError {
	apiError := &APIError{
		Surface:    surface,
		Method:     method,
		Path:       path,
		StatusCode: status,
		Body:       string(body),
	}
	var envelope struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		apiError.Message = envelope.Message
	}
	return apiError
}

func statusOf(err error) int {
	var apiError *APIError
	if errors.As(err, &apiError) {
		return apiError.StatusCode
	}
	return 0
}

// IsForbidden reports a 403, which on the internal surface usually
// means the admin lacks an access-control or site role.
func IsForbidden(err error) bool { return statusOf(err) == http.StatusForbidden }

// IsUnauthorized reports a 401.
func IsUnauthorized(err error) bool { return statusOf(err) == http.StatusUnauthorized }

// IsTransient reports a status the external retry policy treats as
// retryable by default.
func IsTransient(err error) bool {
	switch statusOf(err) {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// AuthError carries the server's reply to a rejected login.
type AuthError struct {
	StatusCode int
	Body       string
}

func (err *AuthError) Error() string {
	return fmt.Sprintf("verkada: login failed with status %d: %s",
		err.StatusCode, netutil.Snippet([]byte(err.Body)))
}

// Unwrap lets errors.Is match ErrAuthFailed.
func (err *AuthError) Unwrap() error { return ErrAuthFailed }

// TokenExchangeError carries the token endpoint's reply.
type TokenExchangeError struct {
	StatusCode int
	Body       string
	Err        error
}

func (err *TokenExchangeError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("verkada: token exchange: %v", err.Err)
	}
	return fmt.Sprintf("verkada: token exchange failed with status %d: %s",
		err.StatusCode, netutil.Snippet([]byte(err.Body)))
}

// Unwrap exposes both ErrTokenExchange and the underlying cause.
func (err *TokenExchangeError) Unwrap() []error {
	if err.Err != nil {
		return []error{ErrTokenExchange, err.Err}
	}
	return []error{ErrTokenExchange}
}
