// Package settings manages the mutable device settings for panel.sh.
//
// Settings are the runtime-changeable values exposed through the
// /api/v2/device_settings endpoint: player name, playlist behaviour,
// authentication backend and credentials, and display options. They are
// persisted in a YAML file on the device (default
// ~/.panelsh/device_settings.yml) and survive restarts.
//
// The Store is handed to components as an explicit dependency; nothing in
// this package reads global state.
//
//	store := settings.NewStore(cfg.Settings.Path)
//	if err := store.Load(); err != nil {
//	    log.Fatal(err)
//	}
//	current := store.Get()
package settings
