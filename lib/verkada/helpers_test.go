// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verkada

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bureau-foundation/decommission/lib/secret"
)

// recorded is one request seen by a fake server.
type recorded struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   map[string]any
}

// fakeServer is a TLS server whose handler is swapped per test and
// which records every request it receives.
type fakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recorded
	handler  http.HandlerFunc
}

func newFakeServer(t *testing.T, handler http.HandlerFunc) *fakeServer {
	t.Helper()
	fake := &fakeServer{handler: handler}
	fake.Server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(data))
		entry := recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, &entry.Body)
		}
		fake.mu.Lock()
		fake.requests = append(fake.requests, entry)
		current := fake.handler
		fake.mu.Unlock()
		current(w, r)
	}))
	t.Cleanup(fake.Close)
	return fake
}

func (f *fakeServer) setHandler(handler http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
}

func (f *fakeServer) recorded() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.requests...)
}

// consoleURL routes every console subdomain to a path prefix on the
// fake server.
func (f *fakeServer) consoleURL(subdomain string) string {
	return f.URL + "/" + subdomain
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func decodeBody(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testCredentials(t *testing.T) Credentials {
	t.Helper()
	password, err := secret.FromString("hunter2")
	if err != nil {
		t.Fatalf("FromString: %v", err)
	}
	t.Cleanup(func() { password.Close() })
	return Credentials{
		Email:        "admin@example.com",
		Password:     password,
		OrgShortName: "acme",
		Shard:        "prod1",
	}
}

func loggedInReply() map[string]any {
	return map[string]any{
		"loggedIn":       true,
		"csrfToken":      "csrf-1",
		"userToken":      "user-token-1",
		"organizationId": "org-1",
		"userId":         "user-1",
	}
}

func newTestInternalClient(server *fakeServer) *InternalClient {
	return NewInternalClient(InternalConfig{
		ConsoleURL: server.consoleURL,
		HTTPClient: server.Client(),
		Logger:     discardLogger(),
	})
}

// installSession gives client a fixed session without a login round
// trip.
func installSession(t *testing.T, client *InternalClient) *Session {
	t.Helper()
	session, err := NewSession("acme", "csrf-1", "user-token-1", "org-1", "user-1")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	client.SwapSession(session)
	return session
}
