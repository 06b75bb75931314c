// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verkada

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/decommission/lib/clock"
)

func TestInternalRequestHeaders(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	client := newTestInternalClient(server)
	installSession(t, client)

	_, err := client.Do(context.Background(), Request{
		Method:    http.MethodGet,
		Subdomain: "vdoorman",
		Path:      "package_site/org/org-1",
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	request := server.recorded()[0]
	if request.Path != "/vdoorman/__v/acme/package_site/org/org-1" {
		t.Errorf("path = %q", request.Path)
	}
	for name, want := range map[string]string{
		"Accept":                    "*/*",
		"Cookie":                    "auth=user-token-1; org=org-1; usr=user-1; token=csrf-1;",
		"X-Verkada-Organization-Id": "org-1",
		"X-Verkada-Token":           "csrf-1",
		"X-Verkada-User-Id":         "user-1",
		"Origin":                    "https://acme.command.verkada.com",
		"Referer":                   "https://acme.command.verkada.com/",
	} {
		if got := request.Header.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestInternalRequiresSession(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	client := newTestInternalClient(server)
	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Subdomain: "vsensor", Path: "x"})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestInternalForbidden(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"message": "permission denied"})
	})
	client := newTestInternalClient(server)
	installSession(t, client)

	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Subdomain: "vcerberus", Path: "x"})
	if !IsForbidden(err) {
		t.Fatalf("err = %v, want 403", err)
	}
	if got := len(server.recorded()); got != 1 {
		t.Errorf("internal surface retried: %d requests", got)
	}
}

func TestCreateExternalAPIKey(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"apiKey": "vkd_api_123"})
	})
	fake := clock.Fake(epoch)
	client := NewInternalClient(InternalConfig{
		ConsoleURL: server.consoleURL,
		HTTPClient: server.Client(),
		Clock:      fake,
		Logger:     discardLogger(),
	})
	installSession(t, client)

	key, err := client.CreateExternalAPIKey(context.Background())
	if err != nil {
		t.Fatalf("CreateExternalAPIKey: %v", err)
	}
	defer key.Close()
	if key.String() != "vkd_api_123" {
		t.Errorf("key = %q", key.String())
	}

	request := server.recorded()[0]
	if request.Path != "/apiadmin/__v/acme/admin/orgs/org-1/v2/granular_apikeys" {
		t.Errorf("path = %q", request.Path)
	}
	name, _ := request.Body["api_key_name"].(string)
	if !strings.HasPrefix(name, "Decommissioning API Key - ") {
		t.Errorf("api_key_name = %q", name)
	}
	if got, want := request.Body["expires_at"], float64(epoch.Add(time.Hour).Unix()); got != want {
		t.Errorf("expires_at = %v, want %v", got, want)
	}
	roles, _ := request.Body["roles"].([]any)
	if len(roles) != len(apiKeyRoles) {
		t.Errorf("roles = %v", roles)
	}
}

func TestCreateExternalAPIKeyLimit(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Would exceed 10 api keys limit"})
	})
	client := newTestInternalClient(server)
	installSession(t, client)

	_, err := client.CreateExternalAPIKey(context.Background())
	if !errors.Is(err, ErrAPIKeyLimit) {
		t.Fatalf("err = %v, want ErrAPIKeyLimit", err)
	}
}

func TestEscalatePrivileges(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "roles/modify") {
			writeJSON(w, http.StatusForbidden, map[string]any{"message": "nope"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	client := newTestInternalClient(server)
	installSession(t, client)

	err := client.EscalatePrivileges(context.Background())
	if !IsForbidden(err) {
		t.Fatalf("err = %v, want the roles failure reported", err)
	}

	requests := server.recorded()
	if len(requests) != 2 {
		t.Fatalf("requests = %d, want 2 (settings update still attempted)", len(requests))
	}
	grants, _ := requests[0].Body["grants"].([]any)
	if len(grants) != 2 {
		t.Fatalf("grants = %v", requests[0].Body)
	}
	first, _ := grants[0].(map[string]any)
	if first["entityId"] != "org-1" || first["granteeId"] != "user-1" || first["roleKey"] != "ACCESS_CONTROL_SYSTEM_ADMIN" {
		t.Errorf("first grant = %v", first)
	}
	if requests[1].Path != "/vprovision/__v/acme/org/settings/update" {
		t.Errorf("settings path = %q", requests[1].Path)
	}
	settings, _ := requests[1].Body["settings"].(map[string]any)
	if settings["globalSiteAdmin"] != true {
		t.Errorf("settings body = %v", requests[1].Body)
	}
}

func TestInviteUser(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	client := newTestInternalClient(server)
	installSession(t, client)

	err := client.InviteUser(context.Background(), Invite{
		Email:     "guest@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	if err != nil {
		t.Fatalf("InviteUser: %v", err)
	}
	body := server.recorded()[0].Body
	for key, want := range map[string]any{
		"organizationId":   "org-1",
		"email":            "guest@example.com",
		"orgAdmin":         false,
		"commandUserAdmin": false,
		"firstName":        "Ada",
		"lastName":         "Lovelace",
		"inviteFf":         true,
	} {
		if body[key] != want {
			t.Errorf("invite body[%q] = %v, want %v", key, body[key], want)
		}
	}
}

func TestGuestVisits(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"visits": []any{
				map[string]any{"visit_id": "v1", "guest": map[string]any{"full_name": "Mary Ann Smith", "email": "mary@example.com"}},
				map[string]any{"visit_id": "v2", "guest": map[string]any{"full_name": "Prince", "email": ""}},
			},
		})
	})
	client := newTestExternalClient(t, server, clock.Fake(epoch), nil)

	start := epoch
	visits, err := client.GuestVisits(context.Background(), "site-1", start, start.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("GuestVisits: %v", err)
	}
	if len(visits) != 2 {
		t.Fatalf("visits = %d, want 2", len(visits))
	}
	if visits[0].FirstName != "Mary Ann" || visits[0].LastName != "Smith" || visits[0].Email != "mary@example.com" {
		t.Errorf("visit 0 = %+v", visits[0])
	}
	if visits[1].FirstName != "Prince" || visits[1].LastName != "Prince" {
		t.Errorf("visit 1 = %+v", visits[1])
	}
	query := server.recorded()[0].Query
	if !strings.Contains(query, "site_id=site-1") || !strings.Contains(query, "page_size=100") {
		t.Errorf("query = %q", query)
	}
}

func TestSessionRequiresAllFields(t *testing.T) {
	_, err := NewSession("acme", "", "user-token", "", "user")
	if !errors.Is(err, ErrSessionParse) {
		t.Fatalf("err = %v, want ErrSessionParse", err)
	}
	for _, field := range []string{"csrfToken", "organizationId"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not name %s", err, field)
		}
	}
}
