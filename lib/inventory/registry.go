// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bureau-foundation/decommission/lib/verkada"
)

// ErrIncompleteIdentifier is a delete that needs a composite id with
// one part missing. No request is sent.
var ErrIncompleteIdentifier = errors.New("inventory: asset is missing part of its identifier")

// ErrNotListable and ErrNotDeletable are returned for categories whose
// descriptor has no list or delete operation.
var (
	ErrNotListable  = errors.New("inventory: category has no list operation")
	ErrNotDeletable = errors.New("inventory: category has no delete operation")
)

// externalPageSize is sent as page_size on every public API list.
const externalPageSize = "200"

// Scope is the organization a request is made for.
type Scope struct {
	OrganizationID string
}

// Clients holds one Doer per surface. A nil client makes every
// operation on its surface fail.
type Clients struct {
	Internal verkada.Doer
	External verkada.Doer
}

func (c Clients) forSurface(surface verkada.Surface) (verkada.Doer, error) {
	var doer verkada.Doer
	switch surface {
	case verkada.SurfaceInternal:
		doer = c.Internal
	case verkada.SurfaceExternal:
		doer = c.External
	}
	if doer == nil {
		return nil, fmt.Errorf("inventory: no %s client configured", surface)
	}
	return doer, nil
}

// Mapping names the reply fields copied into an Asset. Dotted names
// reach into nested objects. Values may be JSON strings or numbers.
type Mapping struct {
	ID            string
	Name          string
	Serial        string
	Email         string
	SiteID        string
	AlarmSiteID   string
	AlarmSystemID string
	BusinessName  string
}

// ListOp lists a category.
type ListOp struct {
	Surface verkada.Surface
	Method  string

	// Subdomain is the console subdomain; empty on the public API.
	Subdomain string

	// Path may contain {orgId}.
	Path string

	// Body builds the JSON body for POST lists.
	Body func(scope Scope) any

	// Field is the reply field holding the item array.
	Field string

	Mapping Mapping

	// EmptySignature, when set, turns a 400 whose body contains it
	// into an empty list. The public API answers an empty collection
	// this way.
	EmptySignature string
}

// DeleteOp deletes one item.
type DeleteOp struct {
	Surface   verkada.Surface
	Method    string
	Subdomain string

	// Path may contain {orgId} and {id}.
	Path string

	// QueryKey, when set, carries the asset id as a query parameter.
	QueryKey string

	// Body builds the JSON body from the asset.
	Body func(scope Scope, asset Asset) any

	// Requires lists identifiers that must be present. A missing one
	// fails the delete with ErrIncompleteIdentifier.
	Requires func(asset Asset) []string
}

// Descriptor is the strategy for one category.
type Descriptor struct {
	Category Category
	List     *ListOp
	Delete   *DeleteOp
}

// Registry maps every Category to its Descriptor.
type Registry struct {
	descriptors [categoryCount]Descriptor
}

// NewRegistry returns the registry of Verkada asset strategies.
func NewRegistry() *Registry {
	registry, err := newRegistry(verkadaDescriptors())
	if err != nil {
		panic(err)
	}
	return registry
}

func newRegistry(descriptors []Descriptor) (*Registry, error) {
	registry := &Registry{}
	var seen [categoryCount]bool
	for _, descriptor := range descriptors {
		if !descriptor.Category.Valid() {
			return nil, fmt.Errorf("inventory: descriptor for invalid category %d", uint8(descriptor.Category))
		}
		if seen[descriptor.Category] {
			return nil, fmt.Errorf("inventory: duplicate descriptor for %s", descriptor.Category)
		}
		if descriptor.List == nil && descriptor.Delete == nil {
			return nil, fmt.Errorf("inventory: descriptor for %s has no operations", descriptor.Category)
		}
		if descriptor.List != nil && (descriptor.List.Field == "" || descriptor.List.Mapping.ID == "") {
			return nil, fmt.Errorf("inventory: list operation for %s needs a field and an id mapping", descriptor.Category)
		}
		seen[descriptor.Category] = true
		registry.descriptors[descriptor.Category] = descriptor
	}
	var missing []string
	for category, ok := range seen {
		if !ok {
			missing = append(missing, Category(category).String())
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("inventory: no descriptor for %s", strings.Join(missing, ", "))
	}
	return registry, nil
}

// Descriptor returns the strategy for category.
func (r *Registry) Descriptor(category Category) Descriptor {
	return r.descriptors[category]
}

// List fetches and normalizes every item of category. Items without an
// id are dropped. An empty-collection 400 yields an empty slice.
func (r *Registry) List(ctx context.Context, clients Clients, scope Scope, category Category) ([]Asset, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("inventory: invalid category %d", uint8(category))
	}
	op := r.descriptors[category].List
	if op == nil {
		return nil, fmt.Errorf("%s: %w", category, ErrNotListable)
	}
	doer, err := clients.forSurface(op.Surface)
	if err != nil {
		return nil, err
	}

	request := verkada.Request{
		Method:    op.Method,
		Subdomain: op.Subdomain,
		Path:      expand(op.Path, scope, ""),
	}
	if op.Body != nil {
		request.Body = op.Body(scope)
	}
	if op.Surface == verkada.SurfaceExternal {
		request.Query = url.Values{"page_size": {externalPageSize}}
	}

	body, err := doer.Do(ctx, request)
	if err != nil {
		var apiError *verkada.APIError
		if op.EmptySignature != "" && errors.As(err, &apiError) &&
			apiError.StatusCode == http.StatusBadRequest && apiError.Contains(op.EmptySignature) {
			return []Asset{}, nil
		}
		return nil, err
	}
	return decodeItems(body, category, op)
}

func decodeItems(body []byte, category Category, op *ListOp) ([]Asset, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("inventory: decoding %s reply: %w", category, err)
	}
	field, ok := envelope[op.Field]
	if !ok || string(field) == "null" {
		return []Asset{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(field, &items); err != nil {
		return nil, fmt.Errorf("inventory: %s reply field %q is not a list: %w", category, op.Field, err)
	}

	assets := make([]Asset, 0, len(items))
	for _, item := range items {
		asset, err := normalize(item, category, op.Mapping)
		if err != nil {
			return nil, fmt.Errorf("inventory: decoding %s item: %w", category, err)
		}
		if asset.ID == "" {
			continue
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

func normalize(item json.RawMessage, category Category, mapping Mapping) (Asset, error) {
	decoder := json.NewDecoder(bytes.NewReader(item))
	decoder.UseNumber()
	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return Asset{}, err
	}
	return Asset{
		ID:            lookup(fields, mapping.ID),
		Category:      category,
		Name:          lookup(fields, mapping.Name),
		Serial:        lookup(fields, mapping.Serial),
		Email:         lookup(fields, mapping.Email),
		SiteID:        lookup(fields, mapping.SiteID),
		AlarmSiteID:   lookup(fields, mapping.AlarmSiteID),
		AlarmSystemID: lookup(fields, mapping.AlarmSystemID),
		BusinessName:  lookup(fields, mapping.BusinessName),
		Raw:           item,
	}, nil
}

// lookup follows a dotted path and renders the leaf as a string.
func lookup(fields map[string]any, path string) string {
	if path == "" {
		return ""
	}
	var current any = fields
	for _, part := range strings.Split(path, ".") {
		object, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current = object[part]
	}
	switch value := current.(type) {
	case string:
		return strings.TrimSpace(value)
	case json.Number:
		return value.String()
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}

// Delete removes asset through its category's delete operation.
func (r *Registry) Delete(ctx context.Context, clients Clients, scope Scope, asset Asset) error {
	if !asset.Category.Valid() {
		return fmt.Errorf("inventory: invalid category %d", uint8(asset.Category))
	}
	op := r.descriptors[asset.Category].Delete
	if op == nil {
		return fmt.Errorf("%s: %w", asset.Category, ErrNotDeletable)
	}
	if op.Requires != nil {
		for _, part := range op.Requires(asset) {
			if part == "" {
				return fmt.Errorf("%s %q: %w", asset.Category, asset.Key(), ErrIncompleteIdentifier)
			}
		}
	} else if asset.ID == "" {
		return fmt.Errorf("%s: %w", asset.Category, ErrIncompleteIdentifier)
	}
	doer, err := clients.forSurface(op.Surface)
	if err != nil {
		return err
	}

	request := verkada.Request{
		Method:    op.Method,
		Subdomain: op.Subdomain,
		Path:      expand(op.Path, scope, asset.ID),
	}
	if op.QueryKey != "" {
		request.Query = url.Values{op.QueryKey: {asset.ID}}
	}
	if op.Body != nil {
		request.Body = op.Body(scope, asset)
	}
	_, err = doer.Do(ctx, request)
	return err
}

func expand(path string, scope Scope, id string) string {
	return strings.NewReplacer(
		"{orgId}", url.PathEscape(scope.OrganizationID),
		"{id}", url.PathEscape(id),
	).Replace(path)
}
