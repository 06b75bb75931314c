// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verkada

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/decommission/lib/clock"
	"github.com/bureau-foundation/decommission/lib/netutil"
	"github.com/bureau-foundation/decommission/lib/version"
)

// loginSubdomain hosts the console login, logout, and org settings.
const loginSubdomain = "vprovision"

// DefaultConsoleURL returns https://{subdomain}.command.verkada.com.
func DefaultConsoleURL(subdomain string) string {
	return "https://" + subdomain + ".command.verkada.com"
}

// InternalConfig configures an InternalClient.
type InternalConfig struct {
	// ConsoleURL maps a console subdomain (vprovision, vcerberus, ...)
	// to its base URL. Defaults to DefaultConsoleURL. Tests point every
	// subdomain at one httptest server.
	ConsoleURL func(subdomain string) string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Limiter, if set, paces every console request.
	Limiter *rate.Limiter

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// InternalClient calls the console API with the current Session. It
// never retries: a failed call is reported to the caller immediately.
type InternalClient struct {
	consoleURL func(string) string
	httpClient *http.Client
	limiter    *rate.Limiter
	clock      clock.Clock
	logger     *slog.Logger

	session atomic.Pointer[Session]
}

// NewInternalClient builds an unauthenticated client. Use an
// Authenticator to obtain and install a Session.
func NewInternalClient(config InternalConfig) *InternalClient {
	consoleURL := config.ConsoleURL
	if consoleURL == nil {
		consoleURL = DefaultConsoleURL
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalClient{
		consoleURL: consoleURL,
		httpClient: httpClient,
		limiter:    config.Limiter,
		clock:      clk,
		logger:     logger,
	}
}

// Session returns the installed session, or nil.
func (c *InternalClient) Session() *Session {
	return c.session.Load()
}

// SwapSession installs session (nil to clear) and returns the previous
// one. Requests already in flight finish with the session they loaded.
func (c *InternalClient) SwapSession(session *Session) *Session {
	return c.session.Swap(session)
}

// Do sends request with the current session's headers.
func (c *InternalClient) Do(ctx context.Context, request Request) ([]byte, error) {
	session := c.session.Load()
	if session == nil {
		return nil, ErrNotAuthenticated
	}
	if request.Subdomain == "" {
		return nil, fmt.Errorf("verkada: internal request %s has no subdomain", request.Path)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("verkada: waiting for request slot: %w", err)
		}
	}

	target := c.endpoint(session.OrgShortName(), request.Subdomain, request.Path, request.Query)
	status, body, err := c.send(ctx, request.Method, target, request.Body, session)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, newAPIError(SurfaceInternal, request.Method, request.describe(), status, body)
	}
	c.logger.Debug("console request complete",
		"method", request.Method,
		"path", request.describe(),
		"status", status,
	)
	return body, nil
}

// endpoint builds {console}/__v/{org}/{path}?{query}.
func (c *InternalClient) endpoint(org, subdomain, path string, query url.Values) string {
	target := strings.TrimRight(c.consoleURL(subdomain), "/") +
		"/__v/" + url.PathEscape(org) + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

// send performs one HTTP exchange. session may be nil for the login
// request itself. Transport failures are returned as errors; any HTTP
// status is returned with its body.
func (c *InternalClient) send(ctx context.Context, method, target string, payload any, session *Session) (int, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("verkada: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("verkada: creating request: %w", err)
	}
	if session != nil {
		session.apply(request.Header)
	} else {
		request.Header.Set("Accept", "application/json")
	}
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("User-Agent", version.UserAgent())

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, nil, fmt.Errorf("verkada: %s %s: %w", method, target, err)
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return response.StatusCode, nil, fmt.Errorf("verkada: %s %s: %w", method, target, err)
	}
	return response.StatusCode, body, nil
}
