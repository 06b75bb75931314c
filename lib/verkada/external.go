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
	"sync/atomic"

	"github.com/bureau-foundation/decommission/lib/clock"
	"github.com/bureau-foundation/decommission/lib/secret"
	"github.com/bureau-foundation/decommission/lib/version"
)

// ExternalConfig configures an ExternalClient.
type ExternalConfig struct {
	// BaseURL defaults to RegionURL(DefaultRegion). Must be HTTPS.
	BaseURL string

	// Token is the initial bearer token. Required.
	Token *Token

	// Refresh, if set, is asked for a new token once when a request
	// comes back 401. Without it a 401 is reported as ErrTokenExpired.
	Refresh TokenSource

	// Retry defaults to DefaultRetryPolicy().
	Retry *RetryPolicy

	HTTPClient *http.Client
	Clock      clock.Clock
	Logger     *slog.Logger
}

// ExternalClient calls the public API with x-verkada-auth, retrying
// transient failures under its RetryPolicy.
type ExternalClient struct {
	baseURL string
	retrier *retrier
	refresh TokenSource
	logger  *slog.Logger

	token atomic.Pointer[Token]

	// refreshMu serializes refreshes so concurrent 401s trigger one
	// exchange.
	refreshMu sync.Mutex
}

// NewExternalClient validates config and applies defaults.
func NewExternalClient(config ExternalConfig) (*ExternalClient, error) {
	if config.Token == nil {
		return nil, fmt.Errorf("verkada: external client requires a token")
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = RegionURL(DefaultRegion)
	}
	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("verkada: external API requires HTTPS (got %q)", baseURL)
	}
	retry := newRetrier(config.Retry, config.HTTPClient, config.Clock, config.Logger)
	client := &ExternalClient{
		baseURL: baseURL,
		retrier: retry,
		refresh: config.Refresh,
		logger:  retry.logger,
	}
	client.token.Store(config.Token)
	return client, nil
}

// Token returns the current bearer token.
func (c *ExternalClient) Token() *Token {
	return c.token.Load()
}

// Do sends request with the current token. On a 401 it refreshes the
// token once (if a TokenSource is configured) and replays the request.
func (c *ExternalClient) Do(ctx context.Context, request Request) ([]byte, error) {
	var body []byte
	if request.Body != nil {
		encoded, err := json.Marshal(request.Body)
		if err != nil {
			return nil, fmt.Errorf("verkada: encoding request body: %w", err)
		}
		body = encoded
	}

	target := c.baseURL + "/" + strings.TrimLeft(request.Path, "/")
	if len(request.Query) > 0 {
		target += "?" + request.Query.Encode()
	}

	token := c.token.Load()
	reply, err := c.retrier.do(ctx, request.Method, target, body, c.header(token, body != nil))
	if err != nil {
		return nil, err
	}

	if reply.status == http.StatusUnauthorized {
		expired := newAPIError(SurfaceExternal, request.Method, request.describe(), reply.status, reply.body)
		if c.refresh == nil {
			return nil, errors.Join(ErrTokenExpired, expired)
		}
		fresh, refreshErr := c.refreshToken(ctx, token)
		if refreshErr != nil {
			return nil, errors.Join(ErrTokenExpired, expired, refreshErr)
		}
		reply, err = c.retrier.do(ctx, request.Method, target, body, c.header(fresh, body != nil))
		if err != nil {
			return nil, err
		}
		if reply.status == http.StatusUnauthorized {
			return nil, errors.Join(ErrTokenExpired,
				newAPIError(SurfaceExternal, request.Method, request.describe(), reply.status, reply.body))
		}
	}

	if reply.status < 200 || reply.status >= 300 {
		return nil, newAPIError(SurfaceExternal, request.Method, request.describe(), reply.status, reply.body)
	}
	c.logger.Debug("external request complete",
		"method", request.Method,
		"path", request.describe(),
		"status", reply.status,
	)
	return reply.body, nil
}

// refreshToken exchanges for a new token unless another caller already
// replaced stale while this one waited.
func (c *ExternalClient) refreshToken(ctx context.Context, stale *Token) (*Token, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.token.Load(); current != stale {
		return current, nil
	}
	fresh, err := c.refresh.Token(ctx)
	if err != nil {
		return nil, err
	}
	c.token.Store(fresh)
	c.logger.Info("refreshed external token after 401")
	return fresh, nil
}

func (c *ExternalClient) header(token *Token, hasBody bool) http.Header {
	header := http.Header{}
	header.Set("accept", "application/json")
	header.Set("x-verkada-auth", token.Value())
	header.Set("User-Agent", version.UserAgent())
	if hasBody {
		header.Set("content-type", "application/json")
	}
	return header
}

// ConnectExternal exchanges apiKey for a token and returns a client
// that refreshes with the same key on 401. The client keeps apiKey;
// the caller must not close it while the client is in use.
func ConnectExternal(ctx context.Context, apiKey *secret.Buffer, config ExternalConfig) (*ExternalClient, error) {
	exchanger, err := NewTokenExchanger(TokenExchangerConfig{
		BaseURL:    config.BaseURL,
		Retry:      config.Retry,
		HTTPClient: config.HTTPClient,
		Clock:      config.Clock,
		Logger:     config.Logger,
	})
	if err != nil {
		return nil, err
	}
	token, err := exchanger.Exchange(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	config.Token = token
	config.Refresh = KeyTokenSource{Exchanger: exchanger, APIKey: apiKey}
	return NewExternalClient(config)
}
