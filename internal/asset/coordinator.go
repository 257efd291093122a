package asset

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CreateInput carries the fields accepted when creating an asset.
//
// PlayOrder is the desired position within the active set at creation time;
// it is clamped to the valid range. Duration is stored as given (the API
// layer fills in the settings default for non-video assets).
type CreateInput struct {
	ID             string
	Name           string
	URI            string
	Mimetype       Mimetype
	StartDate      *time.Time
	EndDate        *time.Time
	Duration       int
	IsEnabled      bool
	IsProcessing   bool
	NoCache        bool
	SkipAssetCheck bool
	PlayOrder      int
}

// UpdateInput carries the fields accepted when updating an asset.
//
// Nil pointers leave the stored value unchanged. The window bounds use an
// explicit Set flag so a bound can be cleared (Set true, value nil).
//
// Identity and media fields (asset_id, uri, mimetype, is_processing) are
// deliberately absent: clients may send them, the API layer drops them.
type UpdateInput struct {
	Name           *string
	IsEnabled      *bool
	NoCache        *bool
	SkipAssetCheck *bool
	Duration       *int
	PlayOrder      *int

	StartDate    *time.Time
	StartDateSet bool
	EndDate      *time.Time
	EndDateSet   bool
}

// Coordinator serializes asset mutations and keeps the active ordering
// invariant: after every mutation, active assets hold the dense ranks
// 0..k-1 in their resolved order.
//
// Every mutation follows the same shape: snapshot the active ordering,
// write the record, re-derive the active set, apply the list operation,
// and persist the ranks in one transaction. A per-coordinator mutex
// serializes the snapshot-to-rank-write window so concurrent mutations
// cannot interleave and corrupt the ordering.
//
// There is no rollback between the record write and the rank write; a
// crash between the two leaves an ordering that the next mutation's
// from-scratch re-derivation repairs.
type Coordinator struct {
	repo  Repository
	clock Clock

	mu sync.Mutex
}

// NewCoordinator creates a Coordinator over the given repository.
// A nil clock defaults to the system clock.
func NewCoordinator(repo Repository, clock Clock) *Coordinator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Coordinator{
		repo:  repo,
		clock: clock,
	}
}

// Get retrieves a single asset by ID.
func (c *Coordinator) Get(ctx context.Context, id string) (*Asset, error) {
	return c.repo.GetByID(ctx, id)
}

// List retrieves all assets ordered by play_order, then asset_id.
func (c *Coordinator) List(ctx context.Context) ([]Asset, error) {
	return c.repo.List(ctx)
}

// Active returns the currently active assets in playback order.
// One instant is captured for the whole pass.
func (c *Coordinator) Active(ctx context.Context) ([]Asset, error) {
	pool, err := c.repo.ListEnabledWindowed(ctx)
	if err != nil {
		return nil, err
	}
	return Resolve(pool, c.clock.Now()), nil
}

// Create validates and stores a new asset, then reconciles the active
// ordering. If the new asset is active at creation time it is inserted at
// the requested position (clamped); otherwise the ordering is re-persisted
// unchanged, which also repairs any stale ranks.
//
// Returns:
//   - *Asset: The committed record re-read from the store
//   - error: *ValidationError, ErrExists, or a wrapped store error
func (c *Coordinator) Create(ctx context.Context, in CreateInput) (*Asset, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	a := &Asset{
		ID:             in.ID,
		Name:           in.Name,
		URI:            in.URI,
		Mimetype:       in.Mimetype,
		StartDate:      normalizeTime(in.StartDate),
		EndDate:        normalizeTime(in.EndDate),
		Duration:       in.Duration,
		IsEnabled:      in.IsEnabled,
		IsProcessing:   in.IsProcessing,
		NoCache:        in.NoCache,
		SkipAssetCheck: in.SkipAssetCheck,
	}
	if a.ID == "" {
		a.ID = NewID()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()

	ids, err := c.activeIDs(ctx, now)
	if err != nil {
		return nil, err
	}

	if err := c.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	if a.IsActive(now) {
		ids = insertAt(ids, a.ID, in.PlayOrder)
	}

	if err := c.repo.UpdateRanks(ctx, ids); err != nil {
		return nil, fmt.Errorf("reconciling ordering after create: %w", err)
	}

	return c.repo.GetByID(ctx, a.ID)
}

// Update applies a partial update to an existing asset, then reconciles the
// active ordering: the asset is removed from the snapshot and, if still
// active after the update, re-inserted at its (possibly new) position.
//
// Returns:
//   - *Asset: The committed record re-read from the store
//   - error: ErrNotFound, *ValidationError, or a wrapped store error
func (c *Coordinator) Update(ctx context.Context, id string, in UpdateInput) (*Asset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	applyUpdate(&updated, in)

	if err := c.repo.Update(ctx, &updated); err != nil {
		return nil, err
	}

	now := c.clock.Now()

	ids, err := c.activeIDs(ctx, now)
	if err != nil {
		return nil, err
	}

	ids = remove(ids, id)
	if updated.IsActive(now) {
		ids = insertAt(ids, id, updated.PlayOrder)
	}

	if err := c.repo.UpdateRanks(ctx, ids); err != nil {
		return nil, fmt.Errorf("reconciling ordering after update: %w", err)
	}

	return c.repo.GetByID(ctx, id)
}

// Delete removes an asset and re-packs the remaining active ranks.
// Deleting an inactive asset leaves the ordering untouched apart from the
// usual re-persist.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}

	now := c.clock.Now()

	ids, err := c.activeIDs(ctx, now)
	if err != nil {
		return err
	}

	ids = remove(ids, id)

	if err := c.repo.UpdateRanks(ctx, ids); err != nil {
		return fmt.Errorf("reconciling ordering after delete: %w", err)
	}

	return nil
}

// SetOrder replaces the active ordering with the given identifier sequence.
//
// Identifiers that are not currently active are dropped. Active assets
// missing from the sequence are appended after the listed ones in their
// current resolved order, so the dense-rank invariant holds for the whole
// active set.
//
// Returns:
//   - []Asset: The resulting active set in its new order
//   - error: A wrapped store error
func (c *Coordinator) SetOrder(ctx context.Context, orderedIDs []string) ([]Asset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()

	pool, err := c.repo.ListEnabledWindowed(ctx)
	if err != nil {
		return nil, err
	}
	active := Resolve(pool, now)

	activeSet := make(map[string]bool, len(active))
	for _, a := range active {
		activeSet[a.ID] = true
	}

	ids := make([]string, 0, len(active))
	seen := make(map[string]bool, len(active))
	for _, id := range orderedIDs {
		if activeSet[id] && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	for _, a := range active {
		if !seen[a.ID] {
			ids = append(ids, a.ID)
		}
	}

	if err := c.repo.UpdateRanks(ctx, ids); err != nil {
		return nil, fmt.Errorf("persisting playlist order: %w", err)
	}

	return c.Active(ctx)
}

// activeIDs snapshots the current active ordering as an identifier list.
func (c *Coordinator) activeIDs(ctx context.Context, now time.Time) ([]string, error) {
	pool, err := c.repo.ListEnabledWindowed(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshotting active ordering: %w", err)
	}
	return ResolveIDs(pool, now), nil
}

// validateCreate checks a CreateInput for invalid fields.
func validateCreate(in CreateInput) error {
	verr := NewValidationError()

	if in.Name == "" {
		verr.Add("name", "is required")
	}

	if in.URI == "" {
		verr.Add("uri", "is required")
	}

	if !in.Mimetype.Valid() {
		verr.Add("mimetype", fmt.Sprintf("unsupported mimetype %q", in.Mimetype))
	}

	if in.Duration < 0 {
		verr.Add("duration", "must not be negative")
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

// applyUpdate merges an UpdateInput into an asset record.
//
// Duration changes only apply to video assets; for other mimetypes the
// stored duration is kept.
func applyUpdate(a *Asset, in UpdateInput) {
	if in.Name != nil {
		a.Name = *in.Name
	}
	if in.IsEnabled != nil {
		a.IsEnabled = *in.IsEnabled
	}
	if in.NoCache != nil {
		a.NoCache = *in.NoCache
	}
	if in.SkipAssetCheck != nil {
		a.SkipAssetCheck = *in.SkipAssetCheck
	}
	if in.Duration != nil && a.Mimetype == MimetypeVideo {
		a.Duration = *in.Duration
	}
	if in.PlayOrder != nil {
		a.PlayOrder = *in.PlayOrder
	}
	if in.StartDateSet {
		a.StartDate = normalizeTime(in.StartDate)
	}
	if in.EndDateSet {
		a.EndDate = normalizeTime(in.EndDate)
	}
}

// normalizeTime converts an optional timestamp to UTC.
func normalizeTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
