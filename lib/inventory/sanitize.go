// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

// Sanitize returns the candidates whose serial number does not appear
// among base's serials. Empty serials never match. Neither input is
// modified, and applying Sanitize twice gives the same result as once.
func Sanitize(base, candidates []Asset) []Asset {
	serials := make(map[string]struct{}, len(base))
	for _, asset := range base {
		if asset.Serial != "" {
			serials[asset.Serial] = struct{}{}
		}
	}
	kept := make([]Asset, 0, len(candidates))
	for _, asset := range candidates {
		if asset.Serial != "" {
			if _, duplicate := serials[asset.Serial]; duplicate {
				continue
			}
		}
		kept = append(kept, asset)
	}
	return kept
}
