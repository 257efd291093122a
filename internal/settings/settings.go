package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// File permission constants.
const (
	dirPermissions  = 0750
	filePermissions = 0600
)

// Settings holds the mutable device settings exposed through the API.
//
// These are distinct from the static process configuration: settings can be
// changed at runtime through PATCH /api/v2/device_settings and persist across
// restarts in a YAML file on the device.
type Settings struct {
	PlayerName               string `yaml:"player_name" json:"player_name"`
	AudioOutput              string `yaml:"audio_output" json:"audio_output"`
	DefaultDuration          int    `yaml:"default_duration" json:"default_duration"`
	DefaultStreamingDuration int    `yaml:"default_streaming_duration" json:"default_streaming_duration"`
	DateFormat               string `yaml:"date_format" json:"date_format"`
	AuthBackend              string `yaml:"auth_backend" json:"auth_backend"`
	User                     string `yaml:"user" json:"user"`
	Password                 string `yaml:"password" json:"-"`
	ShowSplash               bool   `yaml:"show_splash" json:"show_splash"`
	DefaultAssets            bool   `yaml:"default_assets" json:"default_assets"`
	ShufflePlaylist          bool   `yaml:"shuffle_playlist" json:"shuffle_playlist"`
	Use24HourClock           bool   `yaml:"use_24_hour_clock" json:"use_24_hour_clock"`
	DebugLogging             bool   `yaml:"debug_logging" json:"debug_logging"`
}

// Defaults returns the settings applied on first boot, before any
// settings file exists on the device.
func Defaults() Settings {
	return Settings{
		PlayerName:               "",
		AudioOutput:              "hdmi",
		DefaultDuration:          10,
		DefaultStreamingDuration: 300,
		DateFormat:               "mm/dd/yyyy",
		AuthBackend:              "",
		ShowSplash:               true,
	}
}

// Store is a YAML-file-backed settings store.
//
// All access goes through the store so that concurrent API requests and
// background jobs see a consistent view. Mutations are persisted to disk
// before Update returns.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Store struct {
	path string

	mu     sync.RWMutex
	values Settings
}

// NewStore creates a Store backed by the YAML file at path.
// Call Load before first use.
func NewStore(path string) *Store {
	return &Store{
		path:   path,
		values: Defaults(),
	}
}

// Load reads the settings file from disk.
//
// A missing file is not an error: the store keeps its defaults and the file
// is created on the first Save. Unparseable content is an error so a corrupt
// file is never silently replaced.
//
// Returns:
//   - error: If the file exists but cannot be read or parsed
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading settings file: %w", err)
	}

	values := Defaults()
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parsing settings file: %w", err)
	}

	s.mu.Lock()
	s.values = values
	s.mu.Unlock()

	return nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

// Update applies mutate to the settings under lock and persists the result.
//
// If saving fails the in-memory values are still updated; the next
// successful Save will write them out.
//
// Parameters:
//   - mutate: Function that modifies the settings in place
//
// Returns:
//   - error: If writing the settings file fails
func (s *Store) Update(mutate func(*Settings)) error {
	s.mu.Lock()
	mutate(&s.values)
	values := s.values
	s.mu.Unlock()

	return s.write(values)
}

// Save persists the current settings to disk.
func (s *Store) Save() error {
	s.mu.RLock()
	values := s.values
	s.mu.RUnlock()

	return s.write(values)
}

// Path returns the filesystem path of the settings file.
func (s *Store) Path() string {
	return s.path
}

// write marshals values and writes them to the settings file atomically
// (write to temp file, then rename).
func (s *Store) write(values Settings) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshalling settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, filePermissions); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing settings file: %w", err)
	}

	return nil
}
