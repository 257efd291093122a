package asset

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the assets table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Each pool connection would get its own in-memory database.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE assets (
			asset_id         TEXT PRIMARY KEY,
			name             TEXT NOT NULL DEFAULT '',
			uri              TEXT NOT NULL DEFAULT '',
			mimetype         TEXT NOT NULL DEFAULT 'webpage',
			start_date       TEXT,
			end_date         TEXT,
			duration         INTEGER NOT NULL DEFAULT 0,
			is_enabled       INTEGER NOT NULL DEFAULT 0,
			is_processing    INTEGER NOT NULL DEFAULT 0,
			nocache          INTEGER NOT NULL DEFAULT 0,
			skip_asset_check INTEGER NOT NULL DEFAULT 0,
			play_order       INTEGER NOT NULL DEFAULT 0,
			created_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL
		);
		CREATE INDEX idx_assets_play_order ON assets (play_order, asset_id);
		CREATE INDEX idx_assets_enabled ON assets (is_enabled);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// testAsset creates an enabled, windowed asset for testing.
func testAsset(id string, playOrder int) *Asset {
	return &Asset{
		ID:        id,
		Name:      "asset " + id,
		URI:       "https://example.com/" + id,
		Mimetype:  MimetypeWebpage,
		StartDate: tp(testNow.Add(-time.Hour)),
		EndDate:   tp(testNow.Add(time.Hour)),
		IsEnabled: true,
		PlayOrder: playOrder,
	}
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("creates asset successfully", func(t *testing.T) {
		a := testAsset("asset-001", 0)

		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.GetByID(ctx, "asset-001")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Name != "asset asset-001" {
			t.Errorf("Name = %q, want %q", got.Name, "asset asset-001")
		}
		if got.Mimetype != MimetypeWebpage {
			t.Errorf("Mimetype = %q, want %q", got.Mimetype, MimetypeWebpage)
		}
		if got.StartDate == nil || got.EndDate == nil {
			t.Error("window bounds should round-trip")
		}
		if !got.IsEnabled {
			t.Error("IsEnabled should round-trip")
		}
		if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
			t.Error("timestamps should be set on create")
		}
	})

	t.Run("returns ErrExists for duplicate ID", func(t *testing.T) {
		a := testAsset("asset-dup", 0)
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("first Create() error = %v", err)
		}

		if err := repo.Create(ctx, testAsset("asset-dup", 1)); !errors.Is(err, ErrExists) {
			t.Errorf("Create() error = %v, want ErrExists", err)
		}
	})

	t.Run("stores nil window bounds as NULL", func(t *testing.T) {
		a := testAsset("asset-nodates", 0)
		a.StartDate = nil
		a.EndDate = nil

		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.GetByID(ctx, "asset-nodates")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.StartDate != nil || got.EndDate != nil {
			t.Error("nil window bounds should round-trip as nil")
		}
	})
}

func TestSQLiteRepository_GetByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_List_Ordering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	// Insert out of order, with a rank tie between bbb and aaa
	for _, a := range []*Asset{
		testAsset("ccc", 2),
		testAsset("bbb", 0),
		testAsset("aaa", 0),
	} {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create(%s) error = %v", a.ID, err)
		}
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"aaa", "bbb", "ccc"}
	if len(got) != len(want) {
		t.Fatalf("List() returned %d assets, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d = %q, want %q", i, got[i].ID, want[i])
		}
	}
}

func TestSQLiteRepository_ListEnabledWindowed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	windowed := testAsset("windowed", 0)

	disabled := testAsset("disabled", 1)
	disabled.IsEnabled = false

	noStart := testAsset("nostart", 2)
	noStart.StartDate = nil

	noEnd := testAsset("noend", 3)
	noEnd.EndDate = nil

	for _, a := range []*Asset{windowed, disabled, noStart, noEnd} {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create(%s) error = %v", a.ID, err)
		}
	}

	got, err := repo.ListEnabledWindowed(ctx)
	if err != nil {
		t.Fatalf("ListEnabledWindowed() error = %v", err)
	}

	if len(got) != 1 || got[0].ID != "windowed" {
		ids := make([]string, len(got))
		for i, a := range got {
			ids[i] = a.ID
		}
		t.Errorf("ListEnabledWindowed() = %v, want [windowed]", ids)
	}
}

func TestSQLiteRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	a := testAsset("asset-upd", 0)
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	a.Name = "renamed"
	a.IsEnabled = false
	if err := repo.Update(ctx, a); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "asset-upd")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "renamed" {
		t.Errorf("Name = %q, want %q", got.Name, "renamed")
	}
	if got.IsEnabled {
		t.Error("IsEnabled should be false after update")
	}

	t.Run("returns ErrNotFound for missing asset", func(t *testing.T) {
		missing := testAsset("missing", 0)
		if err := repo.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, testAsset("asset-del", 0)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(ctx, "asset-del"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := repo.GetByID(ctx, "asset-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}

	if err := repo.Delete(ctx, "asset-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_UpdateRanks(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	for _, a := range []*Asset{
		testAsset("aaa", 7),
		testAsset("bbb", 3),
		testAsset("ccc", 9),
	} {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create(%s) error = %v", a.ID, err)
		}
	}

	if err := repo.UpdateRanks(ctx, []string{"ccc", "aaa", "bbb"}); err != nil {
		t.Fatalf("UpdateRanks() error = %v", err)
	}

	wantRanks := map[string]int{"ccc": 0, "aaa": 1, "bbb": 2}
	for id, want := range wantRanks {
		got, err := repo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID(%s) error = %v", id, err)
		}
		if got.PlayOrder != want {
			t.Errorf("%s PlayOrder = %d, want %d", id, got.PlayOrder, want)
		}
	}

	t.Run("empty ordering is a no-op", func(t *testing.T) {
		if err := repo.UpdateRanks(ctx, nil); err != nil {
			t.Errorf("UpdateRanks(nil) error = %v", err)
		}
	})
}
