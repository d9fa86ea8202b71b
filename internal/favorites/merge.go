package favorites

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"weatherapp/internal/models"
)

// Merge combines the remote list with the local set. Every remote record is
// kept as is, so remote wins for ids known to both sides; local records whose
// id the remote does not know are appended. The result is stably sorted by
// name, bytewise, so equal names keep remote-then-local order.
func Merge(remote, local []models.Place) []models.Place {
	remote = dedupe(remote)
	merged := make([]models.Place, 0, len(remote)+len(local))
	merged = append(merged, remote...)
	merged = append(merged, LocalOnly(remote, local)...)

	slices.SortStableFunc(merged, func(a, b models.Place) int {
		return strings.Compare(a.Name, b.Name)
	})
	return merged
}

// LocalOnly returns the local places whose id is absent from remote.
func LocalOnly(remote, local []models.Place) []models.Place {
	remoteIDs := make(map[uuid.UUID]struct{}, len(remote))
	for _, p := range remote {
		remoteIDs[p.ID] = struct{}{}
	}
	var out []models.Place
	for _, p := range local {
		if _, ok := remoteIDs[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// dedupe drops repeated ids, keeping the first occurrence.
func dedupe(places []models.Place) []models.Place {
	seen := make(map[uuid.UUID]struct{}, len(places))
	out := make([]models.Place, 0, len(places))
	for _, p := range places {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
