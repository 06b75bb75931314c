// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verkada

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// GuestVisit is one visitor entry from a guest site's log.
type GuestVisit struct {
	VisitID   string `json:"visit_id"`
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

// GuestVisits lists the visits to siteID between start and end.
func (c *ExternalClient) GuestVisits(ctx context.Context, siteID string, start, end time.Time) ([]GuestVisit, error) {
	query := url.Values{}
	query.Set("site_id", siteID)
	query.Set("start_time", strconv.FormatInt(start.Unix(), 10))
	query.Set("end_time", strconv.FormatInt(end.Unix(), 10))
	query.Set("page_size", "100")

	body, err := c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   "guest/v1/visits",
		Query:  query,
	})
	if err != nil {
		return nil, fmt.Errorf("verkada: listing guest visits for site %s: %w", siteID, err)
	}

	var reply struct {
		Visits []struct {
			VisitID string `json:"visit_id"`
			Guest   struct {
				FullName string `json:"full_name"`
				Email    string `json:"email"`
			} `json:"guest"`
		} `json:"visits"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("verkada: decoding guest visits: %w", err)
	}

	visits := make([]GuestVisit, 0, len(reply.Visits))
	for _, visit := range reply.Visits {
		fullName := strings.TrimSpace(visit.Guest.FullName)
		first, last := SplitFullName(fullName)
		visits = append(visits, GuestVisit{
			VisitID:   visit.VisitID,
			FullName:  fullName,
			FirstName: first,
			LastName:  last,
			Email:     strings.TrimSpace(visit.Guest.Email),
		})
	}
	return visits, nil
}

// SplitFullName splits on the last space. A name without a space is
// used as both first and last name.
func SplitFullName(fullName string) (first, last string) {
	fullName = strings.TrimSpace(fullName)
	index := strings.LastIndex(fullName, " ")
	if index < 0 {
		return fullName, fullName
	}
	return strings.TrimSpace(fullName[:index]), fullName[index+1:]
}
