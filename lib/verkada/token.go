// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verkada

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bureau-foundation/decommission/lib/clock"
	"github.com/bureau-foundation/decommission/lib/secret"
	"github.com/bureau-foundation/decommission/lib/version"
)

// DefaultRegion is the US public API region.
const DefaultRegion = "api"

// RegionURL returns https://{region}.verkada.com.
func RegionURL(region string) string {
	if region == "" {
		region = DefaultRegion
	}
	return "https://" + region + ".verkada.com"
}

// Token is a short-lived external API token. The platform expires it
// on its own schedule; the client does not track expiry.
type Token struct {
	value    string
	issuedAt time.Time
}

// NewToken wraps a raw token value.
func NewToken(value string, issuedAt time.Time) *Token {
	return &Token{value: value, issuedAt: issuedAt}
}

// Value is the raw bearer string for x-verkada-auth.
func (t *Token) Value() string { return t.value }

// IssuedAt is when the exchange returned the token.
func (t *Token) IssuedAt() time.Time { return t.issuedAt }

// LogValue keeps the bearer string out of structured logs.
func (t *Token) LogValue() slog.Value {
	return slog.GroupValue(slog.Time("issued_at", t.issuedAt))
}

// TokenSource produces a fresh token. ExternalClient calls it once when
// a request is rejected with 401.
type TokenSource interface {
	Token(ctx context.Context) (*Token, error)
}

// TokenExchangerConfig configures a TokenExchanger.
type TokenExchangerConfig struct {
	// BaseURL defaults to RegionURL(DefaultRegion).
	BaseURL string

	// Retry defaults to DefaultRetryPolicy().
	Retry *RetryPolicy

	HTTPClient *http.Client
	Clock      clock.Clock
	Logger     *slog.Logger
}

// TokenExchanger trades an API key for a token at {BaseURL}/token.
type TokenExchanger struct {
	baseURL string
	retrier *retrier
	logger  *slog.Logger
}

// NewTokenExchanger applies defaults. BaseURL must be HTTPS.
func NewTokenExchanger(config TokenExchangerConfig) (*TokenExchanger, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = RegionURL(DefaultRegion)
	}
	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("verkada: external API requires HTTPS (got %q)", baseURL)
	}
	retry := newRetrier(config.Retry, config.HTTPClient, config.Clock, config.Logger)
	return &TokenExchanger{baseURL: baseURL, retrier: retry, logger: retry.logger}, nil
}

func newRetrier(policy *RetryPolicy, httpClient *http.Client, clk clock.Clock, logger *slog.Logger) *retrier {
	resolved := DefaultRetryPolicy()
	if policy != nil {
		resolved = *policy
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &retrier{policy: resolved, httpClient: httpClient, clock: clk, logger: logger}
}

// Exchange posts apiKey and returns the token. apiKey is borrowed.
// Every failure wraps ErrTokenExchange.
func (e *TokenExchanger) Exchange(ctx context.Context, apiKey *secret.Buffer) (*Token, error) {
	if apiKey == nil || apiKey.Len() == 0 {
		return nil, &TokenExchangeError{Err: fmt.Errorf("API key is empty")}
	}

	header := http.Header{}
	header.Set("accept", "application/json")
	header.Set("x-api-key", apiKey.String())
	header.Set("User-Agent", version.UserAgent())

	reply, err := e.retrier.do(ctx, http.MethodPost, e.baseURL+"/token", nil, header)
	if err != nil {
		return nil, &TokenExchangeError{Err: err}
	}
	if reply.status < 200 || reply.status >= 300 {
		return nil, &TokenExchangeError{StatusCode: reply.status, Body: string(reply.body)}
	}

	var decoded struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(reply.body, &decoded); err != nil {
		return nil, &TokenExchangeError{StatusCode: reply.status, Err: fmt.Errorf("decoding reply: %w", err)}
	}
	if decoded.Token == "" {
		return nil, &TokenExchangeError{StatusCode: reply.status, Err: fmt.Errorf("reply has no token field")}
	}

	token := NewToken(decoded.Token, e.retrier.clock.Now())
	e.logger.Info("exchanged API key for external token", "token", token)
	return token, nil
}

// KeyTokenSource re-exchanges a fixed API key on demand.
type KeyTokenSource struct {
	Exchanger *TokenExchanger
	APIKey    *secret.Buffer
}

// Token implements TokenSource.
func (s KeyTokenSource) Token(ctx context.Context) (*Token, error) {
	return s.Exchanger.Exchange(ctx, s.APIKey)
}
