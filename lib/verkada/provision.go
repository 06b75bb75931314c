// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verkada

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bureau-foundation/decommission/lib/secret"
)

// apiKeyLimitSignature is the console's message when an organization
// already holds the maximum number of API keys.
const apiKeyLimitSignature = "Would exceed 10 api keys limit"

// apiKeyLifetime bounds keys minted for a decommission run.
const apiKeyLifetime = time.Hour

// apiKeyRoles grants read-write on every product the tool touches.
var apiKeyRoles = []string{
	"PUBLIC_API_CAMERA_READ_WRITE",
	"PUBLIC_API_SENSORS_READ_WRITE",
	"PUBLIC_API_ACCESS_READ_WRITE",
	"PUBLIC_API_ALARMS_READ_WRITE",
	"PUBLIC_API_CORE_READ_WRITE",
	"PUBLIC_API_WORKPLACE_READ_WRITE",
	"PUBLIC_API_INTERCOM_READ_WRITE",
}

// accessAdminRoles are the access-control roles granted to the admin
// before scanning. Without them access controllers and users come back
// 403.
var accessAdminRoles = []string{
	"ACCESS_CONTROL_SYSTEM_ADMIN",
	"ACCESS_CONTROL_USER_ADMIN",
}

// CreateExternalAPIKey mints a one-hour API key with read-write roles
// on every product and returns it in a secret buffer. The caller owns
// the buffer.
func (c *InternalClient) CreateExternalAPIKey(ctx context.Context) (*secret.Buffer, error) {
	session := c.session.Load()
	if session == nil {
		return nil, ErrNotAuthenticated
	}

	now := c.clock.Now()
	body, err := c.Do(ctx, Request{
		Method:    http.MethodPost,
		Subdomain: "apiadmin",
		Path:      "admin/orgs/" + session.OrganizationID() + "/v2/granular_apikeys",
		Body: map[string]any{
			"api_key_name": "Decommissioning API Key - " + now.UTC().Format(time.RFC3339),
			"expires_at":   now.Add(apiKeyLifetime).Unix(),
			"roles":        apiKeyRoles,
		},
	})
	if err != nil {
		var apiError *APIError
		if errors.As(err, &apiError) && apiError.StatusCode == http.StatusBadRequest &&
			apiError.Contains(apiKeyLimitSignature) {
			return nil, errors.Join(ErrAPIKeyLimit, err)
		}
		return nil, fmt.Errorf("verkada: creating API key: %w", err)
	}

	var reply struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("verkada: decoding API key reply: %w", err)
	}
	key, err := secret.FromString(reply.APIKey)
	if err != nil {
		return nil, fmt.Errorf("verkada: API key reply: %w", err)
	}
	c.logger.Info("created external API key", "expires_in", apiKeyLifetime)
	return key, nil
}

// SetAccessSystemAdmin grants the session's user the access-control
// admin roles.
func (c *InternalClient) SetAccessSystemAdmin(ctx context.Context) error {
	session := c.session.Load()
	if session == nil {
		return ErrNotAuthenticated
	}
	grants := make([]map[string]string, 0, len(accessAdminRoles))
	for _, role := range accessAdminRoles {
		grants = append(grants, map[string]string{
			"entityId":  session.OrganizationID(),
			"granteeId": session.UserID(),
			"roleKey":   role,
			"role":      role,
		})
	}
	_, err := c.Do(ctx, Request{
		Method:    http.MethodPost,
		Subdomain: "vcerberus",
		Path:      "access/v2/user/roles/modify",
		Body:      map[string]any{"grants": grants},
	})
	if err != nil {
		return fmt.Errorf("verkada: granting access admin roles: %w", err)
	}
	return nil
}

// EnableGlobalSiteAdmin turns on the organization's global site admin
// setting so the admin sees every site.
func (c *InternalClient) EnableGlobalSiteAdmin(ctx context.Context) error {
	session := c.session.Load()
	if session == nil {
		return ErrNotAuthenticated
	}
	_, err := c.Do(ctx, Request{
		Method:    http.MethodPost,
		Subdomain: loginSubdomain,
		Path:      "org/settings/update",
		Body: map[string]any{
			"organizationId": session.OrganizationID(),
			"settings":       map[string]any{"globalSiteAdmin": true},
		},
	})
	if err != nil {
		return fmt.Errorf("verkada: enabling global site admin: %w", err)
	}
	return nil
}

// EscalatePrivileges runs SetAccessSystemAdmin then
// EnableGlobalSiteAdmin. Each failure is logged and does not stop the
// other; the joined error is returned for callers that care.
func (c *InternalClient) EscalatePrivileges(ctx context.Context) error {
	var errs []error
	if err := c.SetAccessSystemAdmin(ctx); err != nil {
		c.logger.Warn("access admin grant failed", "error", err)
		errs = append(errs, err)
	}
	if err := c.EnableGlobalSiteAdmin(ctx); err != nil {
		c.logger.Warn("global site admin setting failed", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Invite describes an organization user invitation.
type Invite struct {
	Email     string
	FirstName string
	LastName  string
	OrgAdmin  bool
}

// InviteUser invites a person to the session's organization.
func (c *InternalClient) InviteUser(ctx context.Context, invite Invite) error {
	session := c.session.Load()
	if session == nil {
		return ErrNotAuthenticated
	}
	if invite.Email == "" {
		return fmt.Errorf("verkada: invite requires an email")
	}
	_, err := c.Do(ctx, Request{
		Method:    http.MethodPost,
		Subdomain: loginSubdomain,
		Path:      "org/invite",
		Body: map[string]any{
			"organizationId":   session.OrganizationID(),
			"email":            invite.Email,
			"orgAdmin":         invite.OrgAdmin,
			"commandUserAdmin": false,
			"firstName":        invite.FirstName,
			"lastName":         invite.LastName,
			"inviteFf":         true,
		},
	})
	if err != nil {
		return fmt.Errorf("verkada: inviting %s: %w", invite.Email, err)
	}
	return nil
}
