// Package blacklist classifies sightings against the watch registry.
package blacklist

import (
	"sort"
	"strings"

	"anpr-engine/internal/models"
)

// Classify decides the blacklist status of one sighting. Policy, in order:
// exact plate match (case-insensitive), then attribute-similarity match on
// the (type, color, brand) triple. Only the first matching entry is
// reported, with entries considered in ascending ID order. Classification is
// pure; the caller decides whether to alert.
//
// A similarity hit can flag unrelated vehicles sharing common attributes,
// which is why the result carries a confidence tier instead of a bare
// boolean.
func Classify(s models.Sighting, entries []models.BlacklistEntry) models.MatchResult {
	if len(entries) == 0 {
		return models.MatchResult{}
	}

	sorted := make([]models.BlacklistEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for i := range sorted {
		if strings.EqualFold(s.Plate, sorted[i].Plate) {
			return models.MatchResult{
				Blacklisted: true,
				Confidence:  models.MatchExact,
				Reason:      sorted[i].Reason,
				Entry:       &sorted[i],
			}
		}
	}

	for i := range sorted {
		if s.Attributes == sorted[i].Attributes {
			return models.MatchResult{
				Blacklisted: true,
				Confidence:  models.MatchSimilarity,
				Reason:      sorted[i].Reason,
				Entry:       &sorted[i],
			}
		}
	}

	return models.MatchResult{}
}
