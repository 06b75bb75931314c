// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verkada

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/bureau-foundation/decommission/lib/secret"
)

// Credentials identify the organization admin. Password is borrowed:
// the caller keeps ownership and must not close it until the login
// (including any challenge) has finished.
type Credentials struct {
	Email        string
	Password     *secret.Buffer
	OrgShortName string

	// Shard is the backend shard sent with the login, "prod1" for most
	// organizations.
	Shard string
}

func (c Credentials) validate() error {
	switch {
	case c.Email == "":
		return fmt.Errorf("verkada: credentials: email is required")
	case c.Password == nil || c.Password.Len() == 0:
		return fmt.Errorf("verkada: credentials: password is required")
	case c.OrgShortName == "":
		return fmt.Errorf("verkada: credentials: organization short name is required")
	case c.Shard == "":
		return fmt.Errorf("verkada: credentials: shard is required")
	}
	return nil
}

// Session is an authenticated console session. It is never modified
// after construction.
type Session struct {
	orgShortName   string
	csrfToken      string
	userToken      string
	organizationID string
	userID         string
	cookie         string
}

// NewSession builds a Session from the four login fields. All four are
// required.
func NewSession(orgShortName, csrfToken, userToken, organizationID, userID string) (*Session, error) {
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"csrfToken", csrfToken},
		{"userToken", userToken},
		{"organizationId", organizationID},
		{"userId", userID},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionParse, strings.Join(missing, ", "))
	}

	return &Session{
		orgShortName:   orgShortName,
		csrfToken:      csrfToken,
		userToken:      userToken,
		organizationID: organizationID,
		userID:         userID,
		cookie: "auth=" + userToken + "; org=" + organizationID +
			"; usr=" + userID + "; token=" + csrfToken + ";",
	}, nil
}

// OrgShortName is the console short name the session belongs to.
func (s *Session) OrgShortName() string { return s.orgShortName }

// OrganizationID is the organization's UUID.
func (s *Session) OrganizationID() string { return s.organizationID }

// UserID is the logged-in admin's user id.
func (s *Session) UserID() string { return s.userID }

// Cookie is the synthesized cookie header value.
func (s *Session) Cookie() string { return s.cookie }

// Origin is the organization's console origin.
func (s *Session) Origin() string {
	return "https://" + s.orgShortName + ".command.verkada.com"
}

// Referer is Origin with a trailing slash.
func (s *Session) Referer() string { return s.Origin() + "/" }

// apply sets the console authentication headers on header.
func (s *Session) apply(header http.Header) {
	header.Set("Accept", "*/*")
	header.Set("Cookie", s.cookie)
	header.Set("x-verkada-organization-id", s.organizationID)
	header.Set("x-verkada-token", s.csrfToken)
	header.Set("x-verkada-user-id", s.userID)
	header.Set("origin", s.Origin())
	header.Set("referer", s.Referer())
}

// LogValue keeps tokens out of structured logs.
func (s *Session) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("org", s.orgShortName),
		slog.String("organization_id", s.organizationID),
		slog.String("user_id", s.userID),
	)
}

// loginReply is the console's answer to a login or challenge POST.
type loginReply struct {
	LoggedIn       bool       `json:"loggedIn"`
	CSRFToken      flexString `json:"csrfToken"`
	UserToken      flexString `json:"userToken"`
	OrganizationID flexString `json:"organizationId"`
	UserID         flexString `json:"userId"`
	Message        string     `json:"message"`
	Data           struct {
		SMSSent flexString `json:"smsSent"`
	} `json:"data"`
}

func (r *loginReply) session(orgShortName string) (*Session, error) {
	return NewSession(orgShortName,
		string(r.CSRFToken), string(r.UserToken),
		string(r.OrganizationID), string(r.UserID))
}

// flexString accepts a JSON string or number. The console has returned
// numeric organization and user ids in some shards.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*f = flexString(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	if _, err := strconv.ParseFloat(number.String(), 64); err != nil {
		return err
	}
	*f = flexString(number.String())
	return nil
}
