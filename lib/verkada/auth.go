// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verkada

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// Signatures the console uses in a 400 reply when the organization
// requires a one-time code, and when a submitted code is wrong.
const (
	mfaRequiredSignature = "mfa_required_for_org_admin"
	mfaInvalidSignature  = "2FA invalid"
)

// State is the authenticator's position in the login flow.
type State int

const (
	StateUnauthenticated State = iota
	StateAwaitingChallenge
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAwaitingChallenge:
		return "awaiting_challenge"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// InvalidCodePolicy decides what an incorrect one-time code does to the
// pending challenge.
type InvalidCodePolicy int

const (
	// RetainChallenge keeps the challenge so the caller can submit
	// another code.
	RetainChallenge InvalidCodePolicy = iota

	// DiscardChallenge drops the challenge and fails the
	// authenticator; the caller must Login again.
	DiscardChallenge
)

// ParseInvalidCodePolicy maps "retain" and "discard" to a policy.
func ParseInvalidCodePolicy(name string) (InvalidCodePolicy, error) {
	switch name {
	case "retain", "":
		return RetainChallenge, nil
	case "discard":
		return DiscardChallenge, nil
	default:
		return 0, fmt.Errorf("verkada: unknown invalid-code policy %q", name)
	}
}

// LoginOutcome distinguishes a finished login from one that needs a
// code.
type LoginOutcome int

const (
	LoginAuthenticated LoginOutcome = iota
	LoginChallengeRequired
)

// LoginResult is the non-error result of Login.
type LoginResult struct {
	Outcome LoginOutcome

	// Session is set when Outcome is LoginAuthenticated.
	Session *Session

	// Hint describes where the code was sent (a masked phone number)
	// when Outcome is LoginChallengeRequired. May be empty.
	Hint string
}

// loginPayload is the body of the console login POST. OTP is added
// only when completing a challenge.
type loginPayload struct {
	Email        string `json:"email"`
	OrgShortName string `json:"org_short_name"`
	TermsAcked   bool   `json:"termsAcked"`
	Password     string `json:"password"`
	Shard        string `json:"shard"`
	Subdomain    bool   `json:"subdomain"`
	OTP          string `json:"otp,omitempty"`
}

// pendingChallenge is what Login captured for CompleteChallenge.
type pendingChallenge struct {
	url         string
	credentials Credentials
	hint        string
}

// payload rebuilds the original login body. The password crosses into
// a heap string only for the duration of the request.
func (p *pendingChallenge) payload() loginPayload {
	return newLoginPayload(p.credentials)
}

func newLoginPayload(credentials Credentials) loginPayload {
	return loginPayload{
		Email:        credentials.Email,
		OrgShortName: credentials.OrgShortName,
		TermsAcked:   true,
		Password:     credentials.Password.String(),
		Shard:        credentials.Shard,
		Subdomain:    true,
	}
}

// AuthenticatorConfig configures an Authenticator.
type AuthenticatorConfig struct {
	// InvalidCode selects the behavior after a wrong code. Defaults to
	// RetainChallenge.
	InvalidCode InvalidCodePolicy

	// Logger defaults to the client's logger.
	Logger *slog.Logger
}

// Authenticator runs the console login flow and installs the resulting
// Session into its InternalClient. It is safe for concurrent use, but
// the flow itself is sequential: one Login, then at most one pending
// challenge at a time.
type Authenticator struct {
	client *InternalClient
	policy InvalidCodePolicy
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	pending *pendingChallenge
}

// NewAuthenticator returns an authenticator in StateUnauthenticated.
func NewAuthenticator(client *InternalClient, config AuthenticatorConfig) *Authenticator {
	logger := config.Logger
	if logger == nil {
		logger = client.logger
	}
	return &Authenticator{
		client: client,
		policy: config.InvalidCode,
		logger: logger,
		state:  StateUnauthenticated,
	}
}

// State returns the current state.
func (a *Authenticator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Hint returns the delivery hint of the pending challenge, if any.
func (a *Authenticator) Hint() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return ""
	}
	return a.pending.hint
}

// Session returns the session installed in the client, if any.
func (a *Authenticator) Session() *Session {
	return a.client.Session()
}

// Login submits credentials. A nil error with LoginChallengeRequired
// means the caller must obtain a code and call CompleteChallenge. Any
// error leaves the authenticator in StateFailed, except invalid
// credentials input, which is rejected before any request.
func (a *Authenticator) Login(ctx context.Context, credentials Credentials) (LoginResult, error) {
	if err := credentials.validate(); err != nil {
		return LoginResult{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = nil

	loginURL := a.client.endpoint(credentials.OrgShortName, loginSubdomain, "user/login", nil)
	a.logger.Info("logging in to console",
		"email", credentials.Email,
		"org", credentials.OrgShortName,
	)

	status, body, err := a.client.send(ctx, http.MethodPost, loginURL, newLoginPayload(credentials), nil)
	if err != nil {
		a.state = StateFailed
		return LoginResult{}, fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}

	var reply loginReply
	decodeErr := json.Unmarshal(body, &reply)

	if status == http.StatusOK && decodeErr == nil && reply.LoggedIn {
		session, err := reply.session(credentials.OrgShortName)
		if err != nil {
			a.state = StateFailed
			return LoginResult{}, err
		}
		a.install(session)
		a.logger.Info("logged in without challenge", "session", session)
		return LoginResult{Outcome: LoginAuthenticated, Session: session}, nil
	}

	if status == http.StatusBadRequest {
		message := reply.Message
		if message == "" {
			message = string(body)
		}
		if strings.Contains(message, mfaRequiredSignature) || strings.Contains(message, mfaInvalidSignature) {
			a.pending = &pendingChallenge{
				url:         loginURL,
				credentials: credentials,
				hint:        string(reply.Data.SMSSent),
			}
			a.state = StateAwaitingChallenge
			a.logger.Info("console requires a verification code",
				"email", credentials.Email,
				"hint", a.pending.hint,
			)
			return LoginResult{Outcome: LoginChallengeRequired, Hint: a.pending.hint}, nil
		}
	}

	a.state = StateFailed
	return LoginResult{}, &AuthError{StatusCode: status, Body: string(body)}
}

// CompleteChallenge resubmits the pending login with code. On success
// the session is installed and returned. On ErrChallengeInvalid the
// InvalidCodePolicy decides whether another attempt is allowed.
func (a *Authenticator) CompleteChallenge(ctx context.Context, code string) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending == nil || a.state != StateAwaitingChallenge {
		return nil, ErrNoPendingChallenge
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: empty code", ErrChallengeInvalid)
	}

	payload := a.pending.payload()
	payload.OTP = code

	a.logger.Info("submitting verification code")
	status, body, err := a.client.send(ctx, http.MethodPost, a.pending.url, payload, nil)
	if err != nil {
		// The server never judged the code; the challenge stays usable.
		return nil, fmt.Errorf("%w: %w", ErrChallengeFailed, err)
	}

	if status == http.StatusOK {
		var reply loginReply
		if err := json.Unmarshal(body, &reply); err != nil {
			a.fail()
			return nil, fmt.Errorf("%w: %w", ErrSessionParse, err)
		}
		session, err := reply.session(a.pending.credentials.OrgShortName)
		if err != nil {
			a.fail()
			return nil, err
		}
		a.install(session)
		a.logger.Info("verification complete", "session", session)
		return session, nil
	}

	var reply loginReply
	message := string(body)
	if json.Unmarshal(body, &reply) == nil && reply.Message != "" {
		message = reply.Message
	}

	if strings.Contains(message, mfaInvalidSignature) {
		if a.policy == DiscardChallenge {
			a.fail()
			return nil, errors.Join(ErrChallengeInvalid, ErrLoginRequired)
		}
		a.logger.Warn("verification code rejected, challenge retained")
		return nil, ErrChallengeInvalid
	}

	a.fail()
	return nil, fmt.Errorf("%w: status %d: %s", ErrChallengeFailed, status, message)
}

// Cancel abandons a pending challenge and returns to
// StateUnauthenticated. It is a no-op in any other state.
func (a *Authenticator) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateAwaitingChallenge {
		return
	}
	a.pending = nil
	a.state = StateUnauthenticated
}

// Logout ends the console session and clears it from the client.
func (a *Authenticator) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	session := a.client.Session()
	if session == nil {
		return ErrNotAuthenticated
	}
	_, err := a.client.Do(ctx, Request{
		Method:    http.MethodPost,
		Subdomain: loginSubdomain,
		Path:      "user/logout",
		Body: map[string]any{
			"logoutCurrentEmailOnly": false,
			"orgShortName":           session.OrgShortName(),
		},
	})
	a.client.SwapSession(nil)
	a.state = StateUnauthenticated
	if err != nil {
		return fmt.Errorf("verkada: logout: %w", err)
	}
	a.logger.Info("logged out of console", "session", session)
	return nil
}

// install swaps session in and clears the pending challenge. Caller
// holds a.mu.
func (a *Authenticator) install(session *Session) {
	a.client.SwapSession(session)
	a.pending = nil
	a.state = StateAuthenticated
}

// fail clears the pending challenge and enters StateFailed. Caller
// holds a.mu.
func (a *Authenticator) fail() {
	a.pending = nil
	a.state = StateFailed
}
