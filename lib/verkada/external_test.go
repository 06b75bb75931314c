// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verkada

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/decommission/lib/clock"
	"github.com/bureau-foundation/decommission/lib/secret"
	"github.com/bureau-foundation/decommission/lib/testutil"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testAPIKey(t *testing.T) *secret.Buffer {
	t.Helper()
	key, err := secret.FromString("api-key-1")
	if err != nil {
		t.Fatalf("FromString: %v", err)
	}
	t.Cleanup(func() { key.Close() })
	return key
}

func newTestExternalClient(t *testing.T, server *fakeServer, fake *clock.FakeClock, refresh TokenSource) *ExternalClient {
	t.Helper()
	client, err := NewExternalClient(ExternalConfig{
		BaseURL:    server.URL,
		Token:      NewToken("token-1", epoch),
		Refresh:    refresh,
		HTTPClient: server.Client(),
		Clock:      fake,
		Logger:     discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewExternalClient: %v", err)
	}
	return client
}

// drive advances fake through n backoff waits while the request runs.
func drive(fake *clock.FakeClock, n int) {
	for i := range n {
		fake.WaitForTimers(1)
		fake.Advance(fake.Waited()[i])
	}
}

func TestExternalRetryScheduleBounded(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"message": "busy"})
	})
	fake := clock.Fake(epoch)
	client := newTestExternalClient(t, server, fake, nil)

	done := make(chan error, 1)
	go func() {
		_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "cameras/v1/devices"})
		done <- err
	}()
	drive(fake, 3)
	err := testutil.RequireReceive(t, done, 5*time.Second, "request finished")

	var apiError *APIError
	if !errors.As(err, &apiError) || apiError.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want 503 APIError", err)
	}
	if !IsTransient(err) {
		t.Errorf("IsTransient(503) = false")
	}
	if got := len(server.recorded()); got != 4 {
		t.Errorf("attempts = %d, want 4", got)
	}
	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}
	if got := fake.Waited(); !slices.Equal(got, want) {
		t.Errorf("backoff = %v, want %v", got, want)
	}
}

func TestExternalRetryHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"message": "slow down"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cameras": []any{}})
	})
	fake := clock.Fake(epoch)
	client := newTestExternalClient(t, server, fake, nil)

	done := make(chan error, 1)
	go func() {
		_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "cameras/v1/devices"})
		done <- err
	}()
	drive(fake, 1)
	if err := testutil.RequireReceive(t, done, 5*time.Second, "request finished"); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got := fake.Waited(); !slices.Equal(got, []time.Duration{7 * time.Second}) {
		t.Errorf("waits = %v, want [7s]", got)
	}
}

func TestExternalServerErrorIgnoresRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "boom"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cameras": []any{}})
	})
	fake := clock.Fake(epoch)
	client := newTestExternalClient(t, server, fake, nil)

	done := make(chan error, 1)
	go func() {
		_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "cameras/v1/devices"})
		done <- err
	}()
	drive(fake, 1)
	if err := testutil.RequireReceive(t, done, 5*time.Second, "request finished"); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got := fake.Waited(); !slices.Equal(got, []time.Duration{500 * time.Millisecond}) {
		t.Errorf("waits = %v, want [500ms]", got)
	}
}

func TestExternalDoesNotRetryClientErrors(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "must include cameras"})
	})
	fake := clock.Fake(epoch)
	client := newTestExternalClient(t, server, fake, nil)

	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "cameras/v1/devices"})
	var apiError *APIError
	if !errors.As(err, &apiError) || !apiError.Contains("must include cameras") {
		t.Fatalf("err = %v, want 400 APIError carrying the message", err)
	}
	if got := len(server.recorded()); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestExternalHeaders(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	client := newTestExternalClient(t, server, clock.Fake(epoch), nil)

	_, err := client.Do(context.Background(), Request{
		Method: http.MethodDelete,
		Path:   "core/v1/user",
		Query:  map[string][]string{"user_id": {"u-9"}},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	request := server.recorded()[0]
	if request.Method != http.MethodDelete || request.Path != "/core/v1/user" || request.Query != "user_id=u-9" {
		t.Errorf("request = %s %s?%s", request.Method, request.Path, request.Query)
	}
	if got := request.Header.Get("x-verkada-auth"); got != "token-1" {
		t.Errorf("x-verkada-auth = %q", got)
	}
	if got := request.Header.Get("accept"); got != "application/json" {
		t.Errorf("accept = %q", got)
	}
}

func TestExternalRequiresHTTPS(t *testing.T) {
	_, err := NewExternalClient(ExternalConfig{
		BaseURL: "http://api.verkada.com",
		Token:   NewToken("t", epoch),
	})
	if err == nil {
		t.Fatal("NewExternalClient accepted a plain HTTP base URL")
	}
}

func TestTokenExchange(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" || r.Header.Get("x-api-key") != "api-key-1" {
			writeJSON(w, http.StatusForbidden, map[string]any{"message": "no"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"token": "token-abc"})
	})
	fake := clock.Fake(epoch)
	exchanger, err := NewTokenExchanger(TokenExchangerConfig{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Clock:      fake,
		Logger:     discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewTokenExchanger: %v", err)
	}

	token, err := exchanger.Exchange(context.Background(), testAPIKey(t))
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if token.Value() != "token-abc" || !token.IssuedAt().Equal(epoch) {
		t.Errorf("token = %q issued %v", token.Value(), token.IssuedAt())
	}
	if server.recorded()[0].Method != http.MethodPost {
		t.Errorf("exchange method = %s, want POST", server.recorded()[0].Method)
	}
}

func TestTokenExchangeFailures(t *testing.T) {
	for _, test := range []struct {
		name   string
		status int
		reply  map[string]any
	}{
		{"rejected", http.StatusUnauthorized, map[string]any{"message": "invalid api key"}},
		{"missing token", http.StatusOK, map[string]any{"other": "x"}},
	} {
		t.Run(test.name, func(t *testing.T) {
			server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, test.status, test.reply)
			})
			exchanger, err := NewTokenExchanger(TokenExchangerConfig{
				BaseURL:    server.URL,
				HTTPClient: server.Client(),
				Clock:      clock.Fake(epoch),
				Logger:     discardLogger(),
			})
			if err != nil {
				t.Fatalf("NewTokenExchanger: %v", err)
			}
			_, err = exchanger.Exchange(context.Background(), testAPIKey(t))
			if !errors.Is(err, ErrTokenExchange) {
				t.Fatalf("err = %v, want ErrTokenExchange", err)
			}
			var exchangeError *TokenExchangeError
			if !errors.As(err, &exchangeError) || exchangeError.StatusCode != test.status {
				t.Errorf("err = %#v, want *TokenExchangeError with status %d", err, test.status)
			}
		})
	}
}

type countingSource struct {
	calls atomic.Int32
	token *Token
	err   error
}

func (s *countingSource) Token(context.Context) (*Token, error) {
	s.calls.Add(1)
	return s.token, s.err
}

func TestExternalRefreshesOnUnauthorized(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-verkada-auth") != "token-2" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	source := &countingSource{token: NewToken("token-2", epoch)}
	client := newTestExternalClient(t, server, clock.Fake(epoch), source)

	if _, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "guest/v1/sites"}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if source.calls.Load() != 1 {
		t.Errorf("refresh calls = %d, want 1", source.calls.Load())
	}
	if client.Token().Value() != "token-2" {
		t.Errorf("token not swapped: %q", client.Token().Value())
	}
	if got := len(server.recorded()); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestExternalUnauthorizedWithoutRefresh(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "expired"})
	})
	client := newTestExternalClient(t, server, clock.Fake(epoch), nil)

	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "guest/v1/sites"})
	if !errors.Is(err, ErrTokenExpired) || !IsUnauthorized(err) {
		t.Fatalf("err = %v, want ErrTokenExpired carrying the 401", err)
	}
}

func TestExternalUnauthorizedAfterRefresh(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "expired"})
	})
	source := &countingSource{token: NewToken("token-2", epoch)}
	client := newTestExternalClient(t, server, clock.Fake(epoch), source)

	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "guest/v1/sites"})
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
	if source.calls.Load() != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", source.calls.Load())
	}
}

func TestRetryAfterParsing(t *testing.T) {
	now := epoch
	for _, test := range []struct {
		value string
		want  time.Duration
		ok    bool
	}{
		{"", 0, false},
		{"3", 3 * time.Second, true},
		{now.Add(10 * time.Second).Format(http.TimeFormat), 10 * time.Second, true},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0, true},
		{"soon", 0, false},
	} {
		got, ok := retryAfter(test.value, now)
		if got != test.want || ok != test.ok {
			t.Errorf("retryAfter(%q) = %v, %v; want %v, %v", test.value, got, ok, test.want, test.ok)
		}
	}
}

func TestBackoffCapped(t *testing.T) {
	policy := DefaultRetryPolicy()
	header := http.Header{}
	header.Set("Retry-After", "3600")
	if got := policy.backoff(1, http.StatusTooManyRequests, header, epoch); got != policy.MaxBackoff {
		t.Errorf("backoff = %v, want cap %v", got, policy.MaxBackoff)
	}
}

func TestBackoffRetryAfterOnlyForThrottling(t *testing.T) {
	policy := DefaultRetryPolicy()
	header := http.Header{}
	header.Set("Retry-After", "7")
	for _, test := range []struct {
		status int
		want   time.Duration
	}{
		{http.StatusTooManyRequests, 7 * time.Second},
		{http.StatusServiceUnavailable, 7 * time.Second},
		{http.StatusInternalServerError, policy.InitialBackoff * 2},
		{http.StatusBadGateway, policy.InitialBackoff * 2},
		{http.StatusGatewayTimeout, policy.InitialBackoff * 2},
	} {
		if got := policy.backoff(2, test.status, header, epoch); got != test.want {
			t.Errorf("backoff(2, %d) = %v, want %v", test.status, got, test.want)
		}
	}
}
