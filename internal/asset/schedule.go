package asset

import (
	"sort"
	"time"
)

// IsActive evaluates the scheduling window of an asset.
//
// An asset is active when it is enabled, both window bounds are present,
// and start <= now < end. A missing bound means the asset can never be
// active regardless of the enabled flag.
//
// Parameters:
//   - enabled: The asset's is_enabled flag
//   - start: Window start (inclusive), nil if unset
//   - end: Window end (exclusive), nil if unset
//   - now: The instant to evaluate against
func IsActive(enabled bool, start, end *time.Time, now time.Time) bool {
	if !enabled || start == nil || end == nil {
		return false
	}
	return !now.Before(*start) && now.Before(*end)
}

// Resolve derives the active set from a candidate pool at a single instant.
//
// The result contains every asset in pool that is active at now, ordered by
// play_order ascending with asset_id as the tie-break. The pool is typically
// the store's enabled-and-windowed subset; passing the full asset list gives
// the same result.
//
// The active set is always recomputed from scratch; callers must capture one
// now per pass so every asset is judged against the same instant.
func Resolve(pool []Asset, now time.Time) []Asset {
	active := make([]Asset, 0, len(pool))
	for _, a := range pool {
		if a.IsActive(now) {
			active = append(active, a)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].PlayOrder != active[j].PlayOrder {
			return active[i].PlayOrder < active[j].PlayOrder
		}
		return active[i].ID < active[j].ID
	})

	return active
}

// ResolveIDs is Resolve reduced to the ordered identifier list,
// the reconciler's working representation.
func ResolveIDs(pool []Asset, now time.Time) []string {
	active := Resolve(pool, now)
	ids := make([]string, len(active))
	for i, a := range active {
		ids[i] = a.ID
	}
	return ids
}
