// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/bureau-foundation/decommission/lib/verkada"
)

// fakeDoer answers requests by "subdomain/path" key and records every
// request.
type fakeDoer struct {
	mu       sync.Mutex
	replies  map[string]any
	failures map[string]error
	requests []verkada.Request
}

func newFakeDoer() *fakeDoer {
	return &fakeDoer{replies: map[string]any{}, failures: map[string]error{}}
}

func (f *fakeDoer) reply(route string, value any) *fakeDoer {
	f.replies[route] = value
	return f
}

func (f *fakeDoer) fail(route string, err error) *fakeDoer {
	f.failures[route] = err
	return f
}

func routeOf(request verkada.Request) string {
	if request.Subdomain == "" {
		return request.Path
	}
	return request.Subdomain + "/" + request.Path
}

func (f *fakeDoer) Do(_ context.Context, request verkada.Request) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request)
	route := routeOf(request)
	if err, ok := f.failures[route]; ok {
		return nil, err
	}
	if value, ok := f.replies[route]; ok {
		return json.Marshal(value)
	}
	return []byte(`{}`), nil
}

func (f *fakeDoer) recorded() []verkada.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]verkada.Request(nil), f.requests...)
}

var testScope = Scope{OrganizationID: "org-1"}

func TestNewRegistryCoversEveryCategory(t *testing.T) {
	registry := NewRegistry()
	for _, category := range Categories() {
		descriptor := registry.Descriptor(category)
		if descriptor.Category != category {
			t.Errorf("descriptor for %s is labelled %s", category, descriptor.Category)
		}
		if descriptor.List == nil && descriptor.Delete == nil {
			t.Errorf("%s has no operations", category)
		}
	}
	if registry.Descriptor(AlarmSystems).List != nil {
		t.Errorf("alarm systems must not be listable")
	}
	if registry.Descriptor(UnassignedDevices).Delete != nil {
		t.Errorf("unassigned devices must not be deletable")
	}
}

func TestNewRegistryRejectsMissingDescriptor(t *testing.T) {
	descriptors := verkadaDescriptors()
	descriptors = descriptors[:len(descriptors)-1]
	_, err := newRegistry(descriptors)
	if err == nil || !strings.Contains(err.Error(), UnassignedDevices.String()) {
		t.Fatalf("err = %v, want missing Unassigned Devices", err)
	}
}

func TestNewRegistryRejectsDuplicate(t *testing.T) {
	descriptors := verkadaDescriptors()
	descriptors = append(descriptors, descriptors[0])
	if _, err := newRegistry(descriptors); err == nil {
		t.Fatal("duplicate descriptor accepted")
	}
}

func TestListInternalMapping(t *testing.T) {
	doer := newFakeDoer().reply("vproconfig/org/get_devices_and_alarm_systems", map[string]any{
		"devices": []any{
			map[string]any{"id": "ad-1", "name": "Panel", "verkadaDeviceConfig": map[string]any{"serialNumber": "SN-1"}},
			map[string]any{"id": 42, "name": "Keypad"},
			map[string]any{"name": "no id"},
		},
	})
	assets, err := NewRegistry().List(context.Background(), Clients{Internal: doer}, testScope, AlarmDevices)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("assets = %d, want 2 (item without id dropped)", len(assets))
	}
	if assets[0].ID != "ad-1" || assets[0].Serial != "SN-1" || assets[0].Category != AlarmDevices {
		t.Errorf("asset 0 = %+v", assets[0])
	}
	if assets[1].ID != "42" || assets[1].Serial != "" {
		t.Errorf("asset 1 = %+v", assets[1])
	}
	request := doer.recorded()[0]
	if request.Method != http.MethodPost || request.Body != nil {
		t.Errorf("request = %s body %v", request.Method, request.Body)
	}
}

func TestListKeepsLargeNumericIDs(t *testing.T) {
	doer := newFakeDoer().reply("vproconfig/org/get_devices_and_alarm_systems", json.RawMessage(
		`{"devices": [{"id": 9007199254740993, "name": "Keypad"}, {"id": 1.5e3, "name": "Siren"}]}`,
	))
	assets, err := NewRegistry().List(context.Background(), Clients{Internal: doer}, testScope, AlarmDevices)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("assets = %d, want 2", len(assets))
	}
	if assets[0].ID != "9007199254740993" {
		t.Errorf("id = %q, want 9007199254740993", assets[0].ID)
	}
	if assets[1].ID != "1.5e3" {
		t.Errorf("id = %q, want the literal 1.5e3", assets[1].ID)
	}
}

func TestListSubstitutesOrganization(t *testing.T) {
	doer := newFakeDoer()
	if _, err := NewRegistry().List(context.Background(), Clients{Internal: doer}, testScope, Intercoms); err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := doer.recorded()[0].Path; got != "vinter/v1/user/organization/org-1/device" {
		t.Errorf("path = %q", got)
	}
}

func TestListAlarmSites(t *testing.T) {
	doer := newFakeDoer().reply("vproresponse/response/site/list", map[string]any{
		"responseSites": []any{
			map[string]any{"id": "as-1", "siteId": "s-1", "alarmSystemId": "sys-1", "businessName": "HQ"},
			map[string]any{"id": "as-2", "siteId": "s-2", "businessName": "Annex"},
		},
	})
	assets, err := NewRegistry().List(context.Background(), Clients{Internal: doer}, testScope, AlarmSites)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if assets[0].Key() != "as-1, s-1" || assets[0].AlarmSystemID != "sys-1" || assets[0].DisplayName() != "HQ" {
		t.Errorf("asset 0 = %+v", assets[0])
	}
	if assets[1].AlarmSystemID != "" {
		t.Errorf("asset 1 alarm system = %q", assets[1].AlarmSystemID)
	}
	body, _ := doer.recorded()[0].Body.(map[string]any)
	if body["includeResponseConfigs"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestListExternalEmptySignature(t *testing.T) {
	for _, test := range []struct {
		name      string
		message   string
		wantEmpty bool
	}{
		{"empty collection", "request must include cameras", true},
		{"genuine failure", "invalid page token", false},
	} {
		t.Run(test.name, func(t *testing.T) {
			doer := newFakeDoer().fail("cameras/v1/devices", &verkada.APIError{
				Surface:    verkada.SurfaceExternal,
				StatusCode: http.StatusBadRequest,
				Message:    test.message,
				Body:       `{"message":"` + test.message + `"}`,
			})
			assets, err := NewRegistry().List(context.Background(), Clients{External: doer}, testScope, Cameras)
			if test.wantEmpty {
				if err != nil || assets == nil || len(assets) != 0 {
					t.Fatalf("assets = %v, err = %v; want empty list", assets, err)
				}
			} else if err == nil {
				t.Fatalf("err = nil, want failure")
			}
			if got := doer.recorded()[0].Query.Get("page_size"); got != "200" {
				t.Errorf("page_size = %q", got)
			}
		})
	}
}

func TestListMissingSurface(t *testing.T) {
	if _, err := NewRegistry().List(context.Background(), Clients{}, testScope, Users); err == nil {
		t.Fatal("List without an external client succeeded")
	}
}

func TestListNotListable(t *testing.T) {
	_, err := NewRegistry().List(context.Background(), Clients{Internal: newFakeDoer()}, testScope, AlarmSystems)
	if !errors.Is(err, ErrNotListable) {
		t.Fatalf("err = %v, want ErrNotListable", err)
	}
}

func TestDeleteRequests(t *testing.T) {
	for _, test := range []struct {
		asset   Asset
		method  string
		route   string
		query   string
		body    map[string]any
		surface verkada.Surface
	}{
		{
			asset:   Asset{ID: "u-1", Category: Users},
			method:  http.MethodDelete,
			route:   "core/v1/user",
			query:   "user_id=u-1",
			surface: verkada.SurfaceExternal,
		},
		{
			asset:  Asset{ID: "ic-1", Category: Intercoms},
			method: http.MethodDelete,
			route:  "api/vinter/v1/user/async/organization/org-1/device/ic-1",
		},
		{
			asset:  Asset{ID: "ds-1", Category: DeskStations},
			method: http.MethodDelete,
			route:  "api/vinter/v1/user/async/organization/org-1/device/ds-1",
			body:   map[string]any{"sharding": true},
		},
		{
			asset:  Asset{ID: "ac-1", Category: AccessControllers},
			method: http.MethodPost,
			route:  "vcerberus/access_device/decommission",
			body:   map[string]any{"deviceId": "ac-1", "sharding": true},
		},
		{
			asset:  Asset{ID: "se-1", Category: Sensors},
			method: http.MethodPost,
			route:  "vsensor/devices/decommission",
			body:   map[string]any{"deviceId": "se-1", "sharding": true},
		},
		{
			asset:  Asset{ID: "ms-1", Category: MailroomSites},
			method: http.MethodDelete,
			route:  "vdoorman/package_site/org/org-1",
			query:  "siteId=ms-1",
		},
		{
			asset:  Asset{ID: "gs-1", Category: GuestSites},
			method: http.MethodDelete,
			route:  "vdoorman/site/org/org-1",
			query:  "siteId=gs-1",
		},
		{
			asset:  Asset{ID: "sys-1", Category: AlarmSystems},
			method: http.MethodPost,
			route:  "vproconfig/alarm_system/delete",
			body:   map[string]any{"alarmSystemId": "sys-1"},
		},
		{
			asset:  Asset{ID: "ad-1", Category: AlarmDevices},
			method: http.MethodPost,
			route:  "vproconfig/device/decommission",
			body:   map[string]any{"deviceId": "ad-1"},
		},
		{
			asset:  Asset{ID: "as-1", AlarmSiteID: "as-1", SiteID: "s-1", Category: AlarmSites},
			method: http.MethodPost,
			route:  "vproresponse/response/site/delete",
			body:   map[string]any{"responseSiteId": "as-1", "siteId": "s-1"},
		},
		{
			asset:  Asset{ID: "cam-1", Category: Cameras},
			method: http.MethodPost,
			route:  "vprovision/camera/decommission",
			body:   map[string]any{"cameraId": "cam-1"},
		},
	} {
		t.Run(test.asset.Category.Slug(), func(t *testing.T) {
			internal, external := newFakeDoer(), newFakeDoer()
			err := NewRegistry().Delete(context.Background(), Clients{Internal: internal, External: external}, testScope, test.asset)
			if err != nil {
				t.Fatalf("Delete: %v", err)
			}
			used, idle := internal, external
			if test.surface == verkada.SurfaceExternal {
				used, idle = external, internal
			}
			if len(idle.recorded()) != 0 {
				t.Fatalf("request sent on the wrong surface")
			}
			request := used.recorded()[0]
			if request.Method != test.method || routeOf(request) != test.route || request.Query.Encode() != test.query {
				t.Errorf("request = %s %s?%s", request.Method, routeOf(request), request.Query.Encode())
			}
			if test.body == nil {
				if request.Body != nil {
					t.Errorf("unexpected body %v", request.Body)
				}
				return
			}
			body, _ := request.Body.(map[string]any)
			for key, want := range test.body {
				if body[key] != want {
					t.Errorf("body[%q] = %v, want %v", key, body[key], want)
				}
			}
		})
	}
}

func TestDeleteAlarmSiteIncompleteIdentifier(t *testing.T) {
	doer := newFakeDoer()
	asset := Asset{ID: "as-1", AlarmSiteID: "as-1", Category: AlarmSites}
	err := NewRegistry().Delete(context.Background(), Clients{Internal: doer}, testScope, asset)
	if !errors.Is(err, ErrIncompleteIdentifier) {
		t.Fatalf("err = %v, want ErrIncompleteIdentifier", err)
	}
	if len(doer.recorded()) != 0 {
		t.Errorf("a request was sent for an incomplete identifier")
	}
}

func TestDeleteNotDeletable(t *testing.T) {
	err := NewRegistry().Delete(context.Background(), Clients{Internal: newFakeDoer()}, testScope,
		Asset{ID: "x", Category: UnassignedDevices})
	if !errors.Is(err, ErrNotDeletable) {
		t.Fatalf("err = %v, want ErrNotDeletable", err)
	}
}
