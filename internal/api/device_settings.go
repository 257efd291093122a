package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/sqoia-dev/panel.sh/internal/auth"
	"github.com/sqoia-dev/panel.sh/internal/infrastructure/mqtt"
	"github.com/sqoia-dev/panel.sh/internal/settings"
	"github.com/sqoia-dev/panel.sh/internal/sysinfo"
)

// storagePayload is the disk usage block returned with device settings.
type storagePayload struct {
	Total       int64   `json:"total"`
	Used        int64   `json:"used"`
	Free        int64   `json:"free"`
	PercentUsed float64 `json:"percent_used"`
}

// updateSettingsRequest is the accepted body for PATCH /device_settings.
//
// Pointer fields distinguish absent keys from zero values. The credential
// fields follow the original management UI: password and password_2 must
// match, and current_password authorizes credential or backend changes.
type updateSettingsRequest struct {
	PlayerName               *string `json:"player_name"`
	AudioOutput              *string `json:"audio_output"`
	DefaultDuration          *int    `json:"default_duration"`
	DefaultStreamingDuration *int    `json:"default_streaming_duration"`
	DateFormat               *string `json:"date_format"`
	ShowSplash               *bool   `json:"show_splash"`
	DefaultAssets            *bool   `json:"default_assets"`
	ShufflePlaylist          *bool   `json:"shuffle_playlist"`
	Use24HourClock           *bool   `json:"use_24_hour_clock"`
	DebugLogging             *bool   `json:"debug_logging"`

	AuthBackend     *string `json:"auth_backend"`
	CurrentPassword string  `json:"current_password"`
	Username        *string `json:"username"`
	Password        string  `json:"password"`
	Password2       string  `json:"password_2"`
}

// handleGetDeviceSettings returns the device settings plus the storage
// usage block. The settings file is reloaded first so external edits are
// picked up.
func (s *Server) handleGetDeviceSettings(w http.ResponseWriter, r *http.Request) {
	if err := s.settings.Load(); err != nil {
		s.logger.Error("reloading settings failed", "error", err)
		writeInternalError(w, "failed to reload device settings")
		return
	}

	current := s.settings.Get()

	username := ""
	if current.AuthBackend == auth.BackendKeyBasic {
		username = current.User
	}

	payload := map[string]any{
		"player_name":                current.PlayerName,
		"audio_output":               current.AudioOutput,
		"default_duration":           current.DefaultDuration,
		"default_streaming_duration": current.DefaultStreamingDuration,
		"date_format":                current.DateFormat,
		"auth_backend":               current.AuthBackend,
		"show_splash":                current.ShowSplash,
		"default_assets":             current.DefaultAssets,
		"shuffle_playlist":           current.ShufflePlaylist,
		"use_24_hour_clock":          current.Use24HourClock,
		"debug_logging":              current.DebugLogging,
		"username":                   username,
	}

	if disk, err := sysinfo.DiskUsage("/"); err == nil {
		percent := 0.0
		if disk.Total > 0 {
			percent = math.Round(float64(disk.Used)/float64(disk.Total)*10000) / 100
		}
		payload["storage"] = storagePayload{
			Total:       disk.Total,
			Used:        disk.Used,
			Free:        disk.Free,
			PercentUsed: percent,
		}
	}

	writeJSON(w, http.StatusOK, payload)
}

// handleUpdateDeviceSettings applies a partial settings update.
//
// Switching the auth backend away from a credentialed backend requires the
// current password. Credential changes go through the target backend's
// update rules. The default_assets toggle enqueues exactly one provisioning
// or removal task per off-to-on / on-to-off edge.
func (s *Server) handleUpdateDeviceSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	current := s.settings.Get()

	if req.AuthBackend != nil {
		if err := s.applyAuthBackendChange(current, req); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
	} else if req.Username != nil || req.Password != "" {
		// Credential change within the current backend.
		backend, err := auth.Active(s.settings, s.sessions)
		if err != nil {
			writeInternalError(w, "authentication backend misconfigured")
			return
		}
		username := current.User
		if req.Username != nil {
			username = *req.Username
		}
		if err := backend.UpdateCredentials(req.CurrentPassword, username, req.Password, req.Password2); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
	}

	// Track the toggle edge before persisting the new value.
	defaultAssetsEdge := req.DefaultAssets != nil && *req.DefaultAssets != current.DefaultAssets

	err := s.settings.Update(func(v *settings.Settings) {
		if req.PlayerName != nil {
			v.PlayerName = *req.PlayerName
		}
		if req.AudioOutput != nil {
			v.AudioOutput = *req.AudioOutput
		}
		if req.DefaultDuration != nil {
			v.DefaultDuration = *req.DefaultDuration
		}
		if req.DefaultStreamingDuration != nil {
			v.DefaultStreamingDuration = *req.DefaultStreamingDuration
		}
		if req.DateFormat != nil {
			v.DateFormat = *req.DateFormat
		}
		if req.ShowSplash != nil {
			v.ShowSplash = *req.ShowSplash
		}
		if req.DefaultAssets != nil {
			v.DefaultAssets = *req.DefaultAssets
		}
		if req.ShufflePlaylist != nil {
			v.ShufflePlaylist = *req.ShufflePlaylist
		}
		if req.Use24HourClock != nil {
			v.Use24HourClock = *req.Use24HourClock
		}
		if req.DebugLogging != nil {
			v.DebugLogging = *req.DebugLogging
		}
	})
	if err != nil {
		s.logger.Error("saving settings failed", "error", err)
		writeInternalError(w, "failed to save device settings")
		return
	}

	if defaultAssetsEdge {
		task := "remove_default_assets"
		if *req.DefaultAssets {
			task = "add_default_assets"
		}
		s.enqueueTask(task)
	}

	// Takes effect immediately, no restart needed.
	if req.DebugLogging != nil {
		s.logger.SetDebug(*req.DebugLogging)
	}

	s.notifySettingsChanged()

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Settings were successfully saved.",
	})
}

// applyAuthBackendChange validates and applies a change of auth backend,
// including any credential update for the target backend.
func (s *Server) applyAuthBackendChange(current settings.Settings, req updateSettingsRequest) error {
	newBackend := *req.AuthBackend

	backends := auth.Backends(s.settings, s.sessions)
	target, ok := backends[newBackend]
	if !ok {
		return auth.ErrUnknownBackend
	}

	// Leaving a credentialed backend requires proof of the current password.
	if newBackend != current.AuthBackend && current.AuthBackend != auth.BackendKeyNone {
		active := backends[current.AuthBackend]
		if req.CurrentPassword == "" {
			return auth.ErrCurrentPasswordRequired
		}
		if !active.CheckPassword(req.CurrentPassword) {
			return auth.ErrCurrentPasswordIncorrect
		}
	}

	if newBackend == auth.BackendKeyBasic {
		username := current.User
		if req.Username != nil {
			username = *req.Username
		}
		if err := target.UpdateCredentials(req.CurrentPassword, username, req.Password, req.Password2); err != nil {
			return err
		}
		// Enabling basic auth with no credential locks everyone out.
		if s.settings.Get().Password == "" {
			return errors.New("must provide a password to enable authentication")
		}
	}

	return s.settings.Update(func(v *settings.Settings) {
		v.AuthBackend = newBackend
	})
}

// enqueueTask publishes a background task to the job queue.
func (s *Server) enqueueTask(name string) {
	if s.bus == nil {
		s.logger.Warn("cannot enqueue task, message bus unavailable", "task", name)
		return
	}
	topic := mqtt.Topics{}.Task(name)
	if err := s.bus.Publish(topic, []byte(`{}`), 1, false); err != nil {
		s.logger.Error("enqueueing task failed", "task", name, "error", err)
	}
}

// notifySettingsChanged pushes a settings_changed event to WebSocket clients
// and tells the playback engine to reload.
func (s *Server) notifySettingsChanged() {
	if s.hub != nil {
		s.hub.Broadcast(ChannelSettingsChanged, nil)
	}
	if s.bus != nil {
		topic := mqtt.Topics{}.ViewerEvent(ChannelSettingsChanged)
		if err := s.bus.Publish(topic, []byte(`{}`), 0, false); err != nil {
			s.logger.Warn("publishing settings_changed failed", "error", err)
		}
	}
}
