// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"net/http"

	"github.com/bureau-foundation/decommission/lib/verkada"
)

const (
	intercomListPath   = "vinter/v1/user/organization/{orgId}/device"
	intercomDeletePath = "vinter/v1/user/async/organization/{orgId}/device/{id}"
)

var deviceMapping = Mapping{ID: "deviceId", Name: "name", Serial: "serialNumber"}

func shardedDevice(_ Scope, asset Asset) any {
	return map[string]any{"deviceId": asset.ID, "sharding": true}
}

// verkadaDescriptors is the strategy table. Paths and reply fields
// match the console and public API as they behave today.
func verkadaDescriptors() []Descriptor {
	return []Descriptor{
		{
			Category: Users,
			List: &ListOp{
				Surface:        verkada.SurfaceExternal,
				Method:         http.MethodGet,
				Path:           "access/v1/access_users",
				Field:          "access_members",
				Mapping:        Mapping{ID: "user_id", Name: "full_name", Email: "email"},
				EmptySignature: "must include users",
			},
			Delete: &DeleteOp{
				Surface:  verkada.SurfaceExternal,
				Method:   http.MethodDelete,
				Path:     "core/v1/user",
				QueryKey: "user_id",
			},
		},
		{
			Category: Sensors,
			List: &ListOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodPost,
				Subdomain: "vsensor",
				Path:      "devices/list",
				Body: func(scope Scope) any {
					return map[string]any{"organizationId": scope.OrganizationID}
				},
				Field:   "sensorDevice",
				Mapping: Mapping{ID: "deviceId", Name: "name", Serial: "claimedSerialNumber"},
			},
			Delete: &DeleteOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodPost,
				Subdomain: "vsensor",
				Path:      "devices/decommission",
				Body:      shardedDevice,
			},
		},
		{
			Category: Intercoms,
			List: &ListOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodGet,
				Subdomain: "api",
				Path:      intercomListPath,
				Field:     "intercoms",
				Mapping:   deviceMapping,
			},
			Delete: &DeleteOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodDelete,
				Subdomain: "api",
				Path:      intercomDeletePath,
			},
		},
		{
			Category: DeskStations,
			List: &ListOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodGet,
				Subdomain: "api",
				Path:      intercomListPath,
				Field:     "deskApps",
				Mapping:   deviceMapping,
			},
			Delete: &DeleteOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodDelete,
				Subdomain: "api",
				Path:      intercomDeletePath,
				Body: func(Scope, Asset) any {
					return map[string]any{"sharding": true}
				},
			},
		},
		{
			Category: MailroomSites,
			List: &ListOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodGet,
				Subdomain: "vdoorman",
				Path:      "package_site/org/{orgId}",
				Field:     "package_sites",
				Mapping:   Mapping{ID: "siteId", Name: "siteName", SiteID: "siteId"},
			},
			Delete: &DeleteOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodDelete,
				Subdomain: "vdoorman",
				Path:      "package_site/org/{orgId}",
				QueryKey:  "siteId",
			},
		},
		{
			Category: GuestSites,
			List: &ListOp{
				Surface:        verkada.SurfaceExternal,
				Method:         http.MethodGet,
				Path:           "guest/v1/sites",
				Field:          "guest_sites",
				Mapping:        Mapping{ID: "site_id", Name: "site_name", SiteID: "site_id"},
				EmptySignature: "must include guest sites",
			},
			Delete: &DeleteOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodDelete,
				Subdomain: "vdoorman",
				Path:      "site/org/{orgId}",
				QueryKey:  "siteId",
			},
		},
		{
			Category: AccessControllers,
			List: &ListOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodGet,
				Subdomain: "vcerberus",
				Path:      "access/v2/user/access_controllers",
				Field:     "accessControllers",
				Mapping:   Mapping{ID: "accessControllerId", Name: "name", Serial: "serialNumber"},
			},
			Delete: &DeleteOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodPost,
				Subdomain: "vcerberus",
				Path:      "access_device/decommission",
				Body:      shardedDevice,
			},
		},
		{
			Category: Cameras,
			List: &ListOp{
				Surface:        verkada.SurfaceExternal,
				Method:         http.MethodGet,
				Path:           "cameras/v1/devices",
				Field:          "cameras",
				Mapping:        Mapping{ID: "camera_id", Name: "name", Serial: "serial"},
				EmptySignature: "must include cameras",
			},
			Delete: &DeleteOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodPost,
				Subdomain: "vprovision",
				Path:      "camera/decommission",
				Body: func(_ Scope, asset Asset) any {
					return map[string]any{"cameraId": asset.ID}
				},
			},
		},
		{
			Category: AlarmDevices,
			List: &ListOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodPost,
				Subdomain: "vproconfig",
				Path:      "org/get_devices_and_alarm_systems",
				Field:     "devices",
				Mapping:   Mapping{ID: "id", Name: "name", Serial: "verkadaDeviceConfig.serialNumber"},
			},
			Delete: &DeleteOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodPost,
				Subdomain: "vproconfig",
				Path:      "device/decommission",
				Body: func(_ Scope, asset Asset) any {
					return map[string]any{"deviceId": asset.ID}
				},
			},
		},
		{
			Category: AlarmSites,
			List: &ListOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodPost,
				Subdomain: "vproresponse",
				Path:      "response/site/list",
				Body: func(Scope) any {
					return map[string]any{"includeResponseConfigs": true}
				},
				Field: "responseSites",
				Mapping: Mapping{
					ID:            "id",
					AlarmSiteID:   "id",
					SiteID:        "siteId",
					AlarmSystemID: "alarmSystemId",
					BusinessName:  "businessName",
				},
			},
			Delete: &DeleteOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodPost,
				Subdomain: "vproresponse",
				Path:      "response/site/delete",
				Body: func(_ Scope, asset Asset) any {
					return map[string]any{"responseSiteId": asset.AlarmSiteID, "siteId": asset.SiteID}
				},
				Requires: func(asset Asset) []string {
					return []string{asset.AlarmSiteID, asset.SiteID}
				},
			},
		},
		{
			// Alarm systems are reached through their alarm site.
			Category: AlarmSystems,
			Delete: &DeleteOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodPost,
				Subdomain: "vproconfig",
				Path:      "alarm_system/delete",
				Body: func(_ Scope, asset Asset) any {
					return map[string]any{"alarmSystemId": asset.ID}
				},
			},
		},
		{
			// Inventory only: unassigned devices have no delete call.
			Category: UnassignedDevices,
			List: &ListOp{
				Surface:   verkada.SurfaceInternal,
				Method:    http.MethodGet,
				Subdomain: "vconductor",
				Path:      "org/{orgId}/unassigned_devices",
				Field:     "devices",
				Mapping:   deviceMapping,
			},
		},
	}
}
