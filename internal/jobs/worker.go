package jobs

import (
	"context"
	"fmt"
	"os/exec"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/sqoia-dev/panel.sh/internal/asset"
	"github.com/sqoia-dev/panel.sh/internal/infrastructure/logging"
	"github.com/sqoia-dev/panel.sh/internal/infrastructure/mqtt"
	"github.com/sqoia-dev/panel.sh/internal/settings"
)

// Default intervals for the periodic jobs, in line with the poll cadence the
// device has always used: display power every five minutes, cleanup hourly.
const (
	defaultDisplayPowerInterval = 5 * time.Minute
	defaultCleanupInterval      = time.Hour

	// displayPowerTTL is how long a power sample stays valid for /info.
	displayPowerTTL = time.Hour

	// taskQoS is the delivery guarantee for task consumption. At-least-once:
	// every handler must therefore be idempotent.
	taskQoS = 1

	// taskTimeout bounds a single task execution.
	taskTimeout = 30 * time.Second
)

// Bus is the subset of the MQTT client the worker needs.
type Bus interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// AssetService is the subset of the asset coordinator the worker needs.
type AssetService interface {
	List(ctx context.Context) ([]asset.Asset, error)
	Create(ctx context.Context, in asset.CreateInput) (*asset.Asset, error)
	Delete(ctx context.Context, id string) error
}

// Telemetry receives display power samples from the poll loop.
// The InfluxDB client satisfies this.
type Telemetry interface {
	WriteDisplayPower(deviceID string, powered bool)
}

// PowerProbe reports whether the attached display is powered.
type PowerProbe func(ctx context.Context) (bool, error)

// Options configures a Worker.
type Options struct {
	Bus      Bus
	Assets   AssetService
	Settings *settings.Store
	Logger   *logging.Logger

	// Telemetry is optional; nil disables power sample export.
	Telemetry Telemetry

	DeviceID          string
	DefaultAssetsPath string
	AssetsDir         string

	DisplayPowerInterval time.Duration
	CleanupInterval      time.Duration

	// Probe overrides the display power probe. Nil uses vcgencmd.
	Probe PowerProbe
}

// powerSample is the cached result of the last display power poll.
type powerSample struct {
	powered bool
	at      time.Time
}

// Worker consumes background tasks from the MQTT bus and runs the periodic
// device jobs.
//
// Tasks arrive on panelsh/task/+ with QoS 1, so every handler is idempotent:
// re-delivering add_default_assets or remove_default_assets converges to the
// same state, and reboot/shutdown are single host command publications.
type Worker struct {
	bus       Bus
	assets    AssetService
	store     *settings.Store
	telemetry Telemetry
	log       *logging.Logger

	deviceID          string
	defaultAssetsPath string
	assetsDir         string

	displayPowerInterval time.Duration
	cleanupInterval      time.Duration
	probe                PowerProbe

	powerMu sync.RWMutex
	power   *powerSample

	topics mqtt.Topics
}

// NewWorker creates a Worker from the given options.
func NewWorker(opts Options) *Worker {
	w := &Worker{
		bus:                  opts.Bus,
		assets:               opts.Assets,
		store:                opts.Settings,
		telemetry:            opts.Telemetry,
		log:                  opts.Logger,
		deviceID:             opts.DeviceID,
		defaultAssetsPath:    opts.DefaultAssetsPath,
		assetsDir:            opts.AssetsDir,
		displayPowerInterval: opts.DisplayPowerInterval,
		cleanupInterval:      opts.CleanupInterval,
		probe:                opts.Probe,
	}

	if w.log == nil {
		w.log = logging.Default()
	}
	if w.displayPowerInterval <= 0 {
		w.displayPowerInterval = defaultDisplayPowerInterval
	}
	if w.cleanupInterval <= 0 {
		w.cleanupInterval = defaultCleanupInterval
	}
	if w.probe == nil {
		w.probe = vcgencmdProbe
	}

	return w
}

// Start subscribes to the task topics and launches the periodic loops.
// The loops stop when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.bus.Subscribe(w.topics.AllTasks(), taskQoS, w.handleTask); err != nil {
		return fmt.Errorf("subscribing to task topics: %w", err)
	}

	go w.runDisplayPowerLoop(ctx)
	go w.runCleanupLoop(ctx)

	w.log.Info("jobs worker started",
		"display_power_interval", w.displayPowerInterval.String(),
		"cleanup_interval", w.cleanupInterval.String())

	return nil
}

// handleTask dispatches a task message by the last topic segment.
func (w *Worker) handleTask(topic string, payload []byte) error {
	name := path.Base(topic)

	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	w.log.Info("running task", "task", name)

	var err error
	switch name {
	case "reboot", "shutdown":
		err = w.publishHostCommand(name)
	case "add_default_assets":
		err = w.addDefaultAssets(ctx)
	case "remove_default_assets":
		err = w.removeDefaultAssets(ctx)
	case "cleanup":
		err = w.cleanupTmpFiles()
	default:
		w.log.Warn("unknown task", "task", name, "topic", topic)
		return nil
	}

	if err != nil {
		w.log.Error("task failed", "task", name, "error", err)
		return err
	}
	return nil
}

// publishHostCommand forwards a reboot/shutdown request to the host command
// topic. On balena devices the supervisor bridge subscribes there; on plain
// hosts a host agent does.
func (w *Worker) publishHostCommand(command string) error {
	topic := w.topics.SystemCommand(command)
	if err := w.bus.Publish(topic, []byte(`{}`), taskQoS, false); err != nil {
		return fmt.Errorf("publishing host command %q: %w", command, err)
	}
	return nil
}

// DisplayPower returns the cached display power state from the last poll.
//
// Returns:
//   - string: "1" or "0"
//   - bool: false when no poll has run yet or the sample is older than an hour
func (w *Worker) DisplayPower() (string, bool) {
	w.powerMu.RLock()
	defer w.powerMu.RUnlock()

	if w.power == nil || time.Since(w.power.at) > displayPowerTTL {
		return "", false
	}
	if w.power.powered {
		return "1", true
	}
	return "0", true
}

// pollDisplayPower runs one probe cycle: cache the sample and export it.
func (w *Worker) pollDisplayPower(ctx context.Context) {
	powered, err := w.probe(ctx)
	if err != nil {
		w.log.Warn("display power probe failed", "error", err)
		return
	}

	w.powerMu.Lock()
	w.power = &powerSample{powered: powered, at: time.Now()}
	w.powerMu.Unlock()

	if w.telemetry != nil {
		w.telemetry.WriteDisplayPower(w.deviceID, powered)
	}
}

func (w *Worker) runDisplayPowerLoop(ctx context.Context) {
	ticker := time.NewTicker(w.displayPowerInterval)
	defer ticker.Stop()

	w.pollDisplayPower(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollDisplayPower(ctx)
		}
	}
}

func (w *Worker) runCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.cleanupTmpFiles(); err != nil {
				w.log.Warn("tmp cleanup failed", "error", err)
			}
		}
	}
}

// vcgencmdProbe queries the GPU firmware for display power state.
// Output looks like "display_power=1".
func vcgencmdProbe(ctx context.Context) (bool, error) {
	out, err := exec.CommandContext(ctx, "vcgencmd", "display_power").Output()
	if err != nil {
		return false, fmt.Errorf("running vcgencmd: %w", err)
	}
	return strings.Contains(string(out), "display_power=1"), nil
}
