// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verkada

import (
	"context"
	"net/url"
)

// Surface identifies which API a request goes to.
type Surface uint8

const (
	// SurfaceInternal is the cookie-authenticated console API.
	SurfaceInternal Surface = iota
	// SurfaceExternal is the token-authenticated public API.
	SurfaceExternal
)

func (s Surface) String() string {
	switch s {
	case SurfaceInternal:
		return "internal"
	case SurfaceExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Request is one call on either surface. Path is relative: for the
// internal surface it follows /__v/{org}/, for the external surface it
// follows the regional host. Subdomain is ignored on the external
// surface.
type Request struct {
	Method    string
	Subdomain string
	Path      string
	Query     url.Values

	// Body is JSON-encoded when non-nil.
	Body any
}

// Doer executes a Request and returns the reply body of a 2xx response.
// Non-2xx replies are returned as *APIError. Both InternalClient and
// ExternalClient implement it.
type Doer interface {
	Do(ctx context.Context, request Request) ([]byte, error)
}

// describe renders the request for logs and errors.
func (r Request) describe() string {
	path := r.Path
	if r.Subdomain != "" {
		path = r.Subdomain + "/" + path
	}
	if len(r.Query) > 0 {
		path += "?" + r.Query.Encode()
	}
	return path
}
