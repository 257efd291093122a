package jobs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sqoia-dev/panel.sh/internal/asset"
	"github.com/sqoia-dev/panel.sh/internal/infrastructure/mqtt"
	"github.com/sqoia-dev/panel.sh/internal/settings"
)

// fakeBus records publishes and subscriptions.
type fakeBus struct {
	mu         sync.Mutex
	published  []publishedMessage
	subscribed []string
}

type publishedMessage struct {
	topic   string
	payload string
	qos     byte
}

func (b *fakeBus) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribed = append(b.subscribed, topic)
	return nil
}

func (b *fakeBus) Publish(topic string, payload []byte, qos byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedMessage{topic: topic, payload: string(payload), qos: qos})
	return nil
}

func (b *fakeBus) messages() []publishedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]publishedMessage(nil), b.published...)
}

// fakeAssets is an in-memory AssetService.
type fakeAssets struct {
	mu     sync.Mutex
	assets []asset.Asset
}

func (f *fakeAssets) List(ctx context.Context) ([]asset.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]asset.Asset(nil), f.assets...), nil
}

func (f *fakeAssets) Create(ctx context.Context, in asset.CreateInput) (*asset.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := asset.Asset{
		ID:        in.ID,
		Name:      in.Name,
		URI:       in.URI,
		Mimetype:  in.Mimetype,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Duration:  in.Duration,
		IsEnabled: in.IsEnabled,
	}
	f.assets = append(f.assets, a)
	return &a, nil
}

func (f *fakeAssets) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.assets {
		if a.ID == id {
			f.assets = append(f.assets[:i], f.assets[i+1:]...)
			return nil
		}
	}
	return asset.ErrNotFound
}

func newTestWorker(t *testing.T, opts Options) *Worker {
	t.Helper()
	if opts.Bus == nil {
		opts.Bus = &fakeBus{}
	}
	if opts.Assets == nil {
		opts.Assets = &fakeAssets{}
	}
	if opts.Settings == nil {
		opts.Settings = settings.NewStore(filepath.Join(t.TempDir(), "settings.yml"))
	}
	if opts.Probe == nil {
		opts.Probe = func(ctx context.Context) (bool, error) { return true, nil }
	}
	opts.DeviceID = "panelsh-test"
	return NewWorker(opts)
}

func TestHandleTask_HostCommands(t *testing.T) {
	for _, command := range []string{"reboot", "shutdown"} {
		t.Run(command, func(t *testing.T) {
			bus := &fakeBus{}
			w := newTestWorker(t, Options{Bus: bus})

			if err := w.handleTask("panelsh/task/"+command, nil); err != nil {
				t.Fatalf("handleTask() error = %v", err)
			}

			msgs := bus.messages()
			if len(msgs) != 1 {
				t.Fatalf("published %d messages, want 1", len(msgs))
			}
			wantTopic := "panelsh/system/command/" + command
			if msgs[0].topic != wantTopic {
				t.Errorf("topic = %q, want %q", msgs[0].topic, wantTopic)
			}
			if msgs[0].qos != 1 {
				t.Errorf("qos = %d, want 1", msgs[0].qos)
			}
		})
	}
}

func TestHandleTask_UnknownTask(t *testing.T) {
	bus := &fakeBus{}
	w := newTestWorker(t, Options{Bus: bus})

	if err := w.handleTask("panelsh/task/frobnicate", nil); err != nil {
		t.Fatalf("handleTask() error = %v", err)
	}
	if len(bus.messages()) != 0 {
		t.Error("unknown task should not publish anything")
	}
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "default_assets.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	return path
}

const testManifest = `assets:
  - name: Welcome screen
    uri: https://example.com/welcome.html
    mimetype: webpage
  - name: Promo clip
    uri: https://example.com/promo.mp4
    mimetype: video
  - name: Broken entry
    uri: https://example.com/broken.pdf
    mimetype: pdf
  - name: ""
    uri: https://example.com/unnamed.png
    mimetype: image
`

func TestAddDefaultAssets(t *testing.T) {
	assets := &fakeAssets{}
	w := newTestWorker(t, Options{Assets: assets})
	w.defaultAssetsPath = writeManifest(t, testManifest)

	if err := w.addDefaultAssets(context.Background()); err != nil {
		t.Fatalf("addDefaultAssets() error = %v", err)
	}

	got, _ := assets.List(context.Background())
	if len(got) != 2 {
		t.Fatalf("provisioned %d assets, want 2 (invalid entries skipped)", len(got))
	}

	for _, a := range got {
		if !a.IsDefault() {
			t.Errorf("asset %s missing default prefix", a.ID)
		}
		if !a.IsEnabled {
			t.Errorf("asset %s should be enabled", a.ID)
		}
		if a.StartDate == nil || a.EndDate == nil {
			t.Fatalf("asset %s missing scheduling window", a.ID)
		}
		wantEnd := a.StartDate.AddDate(defaultAssetWindowYears, 0, 0)
		if !a.EndDate.Equal(wantEnd) {
			t.Errorf("asset %s window end = %v, want %v", a.ID, a.EndDate, wantEnd)
		}
		if a.Duration != settings.Defaults().DefaultDuration {
			t.Errorf("asset %s duration = %d, want settings default %d",
				a.ID, a.Duration, settings.Defaults().DefaultDuration)
		}
	}

	t.Run("second run is idempotent", func(t *testing.T) {
		if err := w.addDefaultAssets(context.Background()); err != nil {
			t.Fatalf("addDefaultAssets() error = %v", err)
		}
		got, _ := assets.List(context.Background())
		if len(got) != 2 {
			t.Errorf("after rerun have %d assets, want still 2", len(got))
		}
	})
}

func TestAddDefaultAssets_MissingManifest(t *testing.T) {
	w := newTestWorker(t, Options{})
	w.defaultAssetsPath = filepath.Join(t.TempDir(), "nope.yml")

	if err := w.addDefaultAssets(context.Background()); err == nil {
		t.Error("addDefaultAssets() error = nil, want error for missing manifest")
	}
}

func TestRemoveDefaultAssets(t *testing.T) {
	assets := &fakeAssets{assets: []asset.Asset{
		{ID: "default_aaa", Name: "splash"},
		{ID: "user-asset", Name: "mine"},
		{ID: "default_bbb", Name: "promo"},
	}}
	w := newTestWorker(t, Options{Assets: assets})

	if err := w.removeDefaultAssets(context.Background()); err != nil {
		t.Fatalf("removeDefaultAssets() error = %v", err)
	}

	got, _ := assets.List(context.Background())
	if len(got) != 1 || got[0].ID != "user-asset" {
		t.Errorf("remaining assets = %v, want only user-asset", got)
	}

	t.Run("rerun is idempotent", func(t *testing.T) {
		if err := w.removeDefaultAssets(context.Background()); err != nil {
			t.Errorf("removeDefaultAssets() rerun error = %v", err)
		}
	})
}

func TestCleanupTmpFiles(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "video.mp4")
	stale := filepath.Join(dir, "download.tmp")
	nested := filepath.Join(dir, "sub", "partial.tmp")

	for _, p := range []string{keep, stale} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(nested), 0o755); err != nil {
		t.Fatalf("creating nested dir: %v", err)
	}
	if err := os.WriteFile(nested, []byte("x"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	w := newTestWorker(t, Options{})
	w.assetsDir = dir

	if err := w.cleanupTmpFiles(); err != nil {
		t.Fatalf("cleanupTmpFiles() error = %v", err)
	}

	if _, err := os.Stat(keep); err != nil {
		t.Errorf("non-tmp file should survive: %v", err)
	}
	for _, p := range []string{stale, nested} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("tmp file %s should be removed", p)
		}
	}

	t.Run("missing directory is not an error", func(t *testing.T) {
		w := newTestWorker(t, Options{})
		w.assetsDir = filepath.Join(t.TempDir(), "gone")
		if err := w.cleanupTmpFiles(); err != nil {
			t.Errorf("cleanupTmpFiles() error = %v", err)
		}
	})
}

func TestDisplayPowerCache(t *testing.T) {
	w := newTestWorker(t, Options{
		Probe: func(ctx context.Context) (bool, error) { return true, nil },
	})

	if _, ok := w.DisplayPower(); ok {
		t.Error("DisplayPower() should report no sample before first poll")
	}

	w.pollDisplayPower(context.Background())

	got, ok := w.DisplayPower()
	if !ok || got != "1" {
		t.Errorf("DisplayPower() = %q, %v, want \"1\", true", got, ok)
	}

	t.Run("stale sample is dropped", func(t *testing.T) {
		w.powerMu.Lock()
		w.power.at = time.Now().Add(-2 * time.Hour)
		w.powerMu.Unlock()

		if _, ok := w.DisplayPower(); ok {
			t.Error("DisplayPower() should drop samples older than an hour")
		}
	})
}

func TestStart_SubscribesToTasks(t *testing.T) {
	bus := &fakeBus{}
	w := newTestWorker(t, Options{Bus: bus})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.subscribed) != 1 || bus.subscribed[0] != "panelsh/task/+" {
		t.Errorf("subscribed = %v, want [panelsh/task/+]", bus.subscribed)
	}
}
