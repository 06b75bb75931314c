// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

var initScheme sync.Once

// MatchResult is an asset that matched a fuzzy pattern.
type MatchResult struct {
	Asset Asset
	Score int
}

// Match returns the assets whose label, id, or category fuzzy-match
// pattern, best score first. Ties keep input order. An empty pattern
// matches everything with score zero. Matching is case-insensitive.
func Match(assets []Asset, pattern string) []MatchResult {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		results := make([]MatchResult, len(assets))
		for i, asset := range assets {
			results[i] = MatchResult{Asset: asset}
		}
		return results
	}

	initScheme.Do(func() { algo.Init("default") })
	runes := []rune(strings.ToLower(pattern))
	slab := util.MakeSlab(100*1024, 2048)

	var results []MatchResult
	for _, asset := range assets {
		text := asset.Label() + " " + asset.Key() + " " + asset.Category.String()
		chars := util.ToChars([]byte(text))
		result, _ := algo.FuzzyMatchV2(false, true, true, &chars, runes, false, slab)
		if result.Start < 0 {
			continue
		}
		results = append(results, MatchResult{Asset: asset, Score: result.Score})
	}
	slices.SortStableFunc(results, func(a, b MatchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return results
}
