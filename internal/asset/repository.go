package asset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for asset persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves an asset by its unique identifier.
	// Returns ErrNotFound if the asset does not exist.
	GetByID(ctx context.Context, id string) (*Asset, error)

	// List retrieves all assets ordered by play_order, then asset_id.
	List(ctx context.Context) ([]Asset, error)

	// ListEnabledWindowed retrieves the resolver's candidate pool: enabled
	// assets with both window bounds present, ordered by play_order then
	// asset_id.
	ListEnabledWindowed(ctx context.Context) ([]Asset, error)

	// Create inserts a new asset.
	// Returns ErrExists if an asset with the same ID already exists.
	Create(ctx context.Context, a *Asset) error

	// Update replaces an existing asset record.
	// Returns ErrNotFound if the asset does not exist.
	Update(ctx context.Context, a *Asset) error

	// Delete removes an asset by ID.
	// Returns ErrNotFound if the asset does not exist.
	Delete(ctx context.Context, id string) error

	// UpdateRanks persists a complete active ordering in one transaction:
	// each listed asset gets play_order = its index. Unlisted assets are
	// untouched.
	UpdateRanks(ctx context.Context, ordered []string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const assetColumns = `asset_id, name, uri, mimetype, start_date, end_date, duration,
		is_enabled, is_processing, nocache, skip_asset_check, play_order,
		created_at, updated_at`

// GetByID retrieves an asset by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM assets
		WHERE asset_id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	a, err := scanAssetRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying asset by id: %w", err)
	}
	return a, nil
}

// List retrieves all assets ordered by play_order, then asset_id.
func (r *SQLiteRepository) List(ctx context.Context) ([]Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM assets
		ORDER BY play_order, asset_id`

	return r.queryAssets(ctx, query)
}

// ListEnabledWindowed retrieves enabled assets with both window bounds present.
func (r *SQLiteRepository) ListEnabledWindowed(ctx context.Context) ([]Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM assets
		WHERE is_enabled = 1
		  AND start_date IS NOT NULL
		  AND end_date IS NOT NULL
		ORDER BY play_order, asset_id`

	return r.queryAssets(ctx, query)
}

// Create inserts a new asset.
func (r *SQLiteRepository) Create(ctx context.Context, a *Asset) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	query := `
		INSERT INTO assets (
			asset_id, name, uri, mimetype, start_date, end_date, duration,
			is_enabled, is_processing, nocache, skip_asset_check, play_order,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.Name,
		a.URI,
		string(a.Mimetype),
		nullableTime(a.StartDate),
		nullableTime(a.EndDate),
		a.Duration,
		boolToInt(a.IsEnabled),
		boolToInt(a.IsProcessing),
		boolToInt(a.NoCache),
		boolToInt(a.SkipAssetCheck),
		a.PlayOrder,
		a.CreatedAt.Format(time.RFC3339),
		a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting asset: %w", err)
	}

	return nil
}

// Update replaces an existing asset record.
func (r *SQLiteRepository) Update(ctx context.Context, a *Asset) error {
	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE assets SET
			name = ?, uri = ?, mimetype = ?, start_date = ?, end_date = ?,
			duration = ?, is_enabled = ?, is_processing = ?, nocache = ?,
			skip_asset_check = ?, play_order = ?, updated_at = ?
		WHERE asset_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		a.Name,
		a.URI,
		string(a.Mimetype),
		nullableTime(a.StartDate),
		nullableTime(a.EndDate),
		a.Duration,
		boolToInt(a.IsEnabled),
		boolToInt(a.IsProcessing),
		boolToInt(a.NoCache),
		boolToInt(a.SkipAssetCheck),
		a.PlayOrder,
		a.UpdatedAt.Format(time.RFC3339),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating asset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes an asset by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM assets WHERE asset_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateRanks persists a complete active ordering in one transaction.
func (r *SQLiteRepository) UpdateRanks(ctx context.Context, ordered []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting rank transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	now := time.Now().UTC().Format(time.RFC3339)
	for rank, id := range ordered {
		if _, err := tx.ExecContext(ctx,
			"UPDATE assets SET play_order = ?, updated_at = ? WHERE asset_id = ?",
			rank, now, id,
		); err != nil {
			return fmt.Errorf("writing rank for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ranks: %w", err)
	}
	return nil
}

// queryAssets executes a query and returns a slice of assets.
func (r *SQLiteRepository) queryAssets(ctx context.Context, query string, args ...any) ([]Asset, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		a, err := scanAssetRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		assets = append(assets, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assets: %w", err)
	}

	return assets, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanAssetRow scans a row or rows result into an Asset.
func scanAssetRow(scanner rowScanner) (*Asset, error) {
	var a Asset
	var mimetype string
	var startDate, endDate sql.NullString
	var isEnabled, isProcessing, noCache, skipAssetCheck int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&a.ID,
		&a.Name,
		&a.URI,
		&mimetype,
		&startDate,
		&endDate,
		&a.Duration,
		&isEnabled,
		&isProcessing,
		&noCache,
		&skipAssetCheck,
		&a.PlayOrder,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Mimetype = Mimetype(mimetype)
	a.IsEnabled = isEnabled != 0
	a.IsProcessing = isProcessing != 0
	a.NoCache = noCache != 0
	a.SkipAssetCheck = skipAssetCheck != 0

	if startDate.Valid {
		t, err := time.Parse(time.RFC3339, startDate.String)
		if err == nil {
			a.StartDate = &t
		}
	}
	if endDate.Valid {
		t, err := time.Parse(time.RFC3339, endDate.String)
		if err == nil {
			a.EndDate = &t
		}
	}

	var parseErr error
	a.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	a.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &a, nil
}

// nullableTime returns a sql.NullString for optional time pointers (as RFC3339 strings).
func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
