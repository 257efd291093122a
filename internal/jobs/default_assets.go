package jobs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sqoia-dev/panel.sh/internal/asset"
)

// defaultAssetWindowYears is the scheduling window given to provisioned
// default assets.
const defaultAssetWindowYears = 6

// defaultAssetManifest is the shape of default_assets.yml.
type defaultAssetManifest struct {
	Assets []defaultAssetEntry `yaml:"assets"`
}

type defaultAssetEntry struct {
	Name     string `yaml:"name"`
	URI      string `yaml:"uri"`
	Mimetype string `yaml:"mimetype"`
}

// addDefaultAssets provisions the assets listed in the default-assets
// manifest. Each gets a "default_" prefixed identifier and a six-year
// scheduling window starting now.
//
// Idempotent: an entry whose name already exists among the default assets is
// skipped, so QoS 1 redelivery and repeated toggling converge. Entries with
// missing fields or an unsupported mimetype are logged and skipped.
func (w *Worker) addDefaultAssets(ctx context.Context) error {
	data, err := os.ReadFile(w.defaultAssetsPath)
	if err != nil {
		return fmt.Errorf("reading default assets manifest: %w", err)
	}

	var manifest defaultAssetManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("parsing default assets manifest: %w", err)
	}

	existing, err := w.defaultAssetNames(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	end := now.AddDate(defaultAssetWindowYears, 0, 0)
	duration := w.store.Get().DefaultDuration

	for _, entry := range manifest.Assets {
		if entry.Name == "" || entry.URI == "" || entry.Mimetype == "" {
			w.log.Warn("default asset entry missing required fields",
				"name", entry.Name, "uri", entry.URI, "mimetype", entry.Mimetype)
			continue
		}

		mimetype := asset.Mimetype(entry.Mimetype)
		if !mimetype.Valid() {
			w.log.Warn("default asset entry has unsupported mimetype",
				"name", entry.Name, "mimetype", entry.Mimetype)
			continue
		}

		if existing[entry.Name] {
			continue
		}

		_, err := w.assets.Create(ctx, asset.CreateInput{
			ID:        asset.DefaultAssetPrefix + asset.NewID(),
			Name:      entry.Name,
			URI:       entry.URI,
			Mimetype:  mimetype,
			StartDate: &now,
			EndDate:   &end,
			Duration:  duration,
			IsEnabled: true,
			PlayOrder: 0,
		})
		if err != nil {
			w.log.Error("provisioning default asset failed",
				"name", entry.Name, "error", err)
			continue
		}
		existing[entry.Name] = true
	}

	return nil
}

// removeDefaultAssets deletes every default-prefixed asset. Idempotent:
// concurrent deletion of an already-gone asset is not an error.
func (w *Worker) removeDefaultAssets(ctx context.Context) error {
	all, err := w.assets.List(ctx)
	if err != nil {
		return fmt.Errorf("listing assets: %w", err)
	}

	for _, a := range all {
		if !a.IsDefault() {
			continue
		}
		if err := w.assets.Delete(ctx, a.ID); err != nil && !errors.Is(err, asset.ErrNotFound) {
			return fmt.Errorf("deleting default asset %s: %w", a.ID, err)
		}
	}

	return nil
}

// defaultAssetNames returns the names of the currently stored default assets.
func (w *Worker) defaultAssetNames(ctx context.Context) (map[string]bool, error) {
	all, err := w.assets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}

	names := make(map[string]bool)
	for _, a := range all {
		if a.IsDefault() {
			names[a.Name] = true
		}
	}
	return names, nil
}

// cleanupTmpFiles removes stale *.tmp files left behind by interrupted asset
// downloads.
func (w *Worker) cleanupTmpFiles() error {
	if w.assetsDir == "" {
		return nil
	}

	err := filepath.WalkDir(w.assetsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tmp") {
			return nil
		}
		if err := os.Remove(p); err != nil {
			w.log.Warn("removing tmp file failed", "path", p, "error", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("walking assets directory: %w", err)
	}
	return nil
}
