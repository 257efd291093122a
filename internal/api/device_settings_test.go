package api

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/sqoia-dev/panel.sh/internal/auth"
)

func TestGetDeviceSettings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v2/device_settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	got := decodeBody[map[string]any](t, rec)
	if got["default_duration"] != float64(10) {
		t.Errorf("default_duration = %v, want 10", got["default_duration"])
	}
	if got["audio_output"] != "hdmi" {
		t.Errorf("audio_output = %v, want hdmi", got["audio_output"])
	}
	if got["username"] != "" {
		t.Errorf("username = %v, want empty while auth is disabled", got["username"])
	}
	if _, ok := got["password"]; ok {
		t.Error("password digest must never appear in responses")
	}

	t.Run("username appears once basic auth is active", func(t *testing.T) {
		enableBasicAuth(t, env, "admin", "hunter2")

		req := env.do(t, http.MethodGet, "/api/v2/device_settings", nil)
		if req.Code != http.StatusUnauthorized {
			// Settings are protected once auth is on.
			t.Fatalf("unauthenticated status = %d, want 401", req.Code)
		}
	})
}

func TestUpdateDeviceSettings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/api/v2/device_settings", map[string]any{
		"player_name":      "Lobby Screen",
		"default_duration": 25,
		"shuffle_playlist": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	current := env.store.Get()
	if current.PlayerName != "Lobby Screen" {
		t.Errorf("PlayerName = %q", current.PlayerName)
	}
	if current.DefaultDuration != 25 {
		t.Errorf("DefaultDuration = %d, want 25", current.DefaultDuration)
	}
	if !current.ShufflePlaylist {
		t.Error("ShufflePlaylist not applied")
	}
	// Untouched fields keep their values.
	if current.AudioOutput != "hdmi" {
		t.Errorf("AudioOutput = %q, want hdmi", current.AudioOutput)
	}
}

func TestUpdateDeviceSettings_DebugLoggingToggle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if env.logger.Enabled(ctx, slog.LevelDebug) {
		t.Fatal("debug output should start disabled")
	}

	rec := env.do(t, http.MethodPatch, "/api/v2/device_settings", map[string]any{"debug_logging": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !env.store.Get().DebugLogging {
		t.Error("debug_logging not persisted")
	}
	if !env.logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug output should be enabled without a restart")
	}

	rec = env.do(t, http.MethodPatch, "/api/v2/device_settings", map[string]any{"debug_logging": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if env.logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug output should be restored to the configured level")
	}
}

func TestUpdateDeviceSettings_DefaultAssetsToggle(t *testing.T) {
	env := newTestEnv(t)

	taskTopics := func() []string {
		var topics []string
		for _, m := range env.bus.messages() {
			if m.qos == 1 {
				topics = append(topics, m.topic)
			}
		}
		return topics
	}

	// Off -> on enqueues exactly one provisioning task.
	env.do(t, http.MethodPatch, "/api/v2/device_settings", map[string]any{"default_assets": true})
	if got := taskTopics(); len(got) != 1 || got[0] != "panelsh/task/add_default_assets" {
		t.Fatalf("tasks after enable = %v, want [panelsh/task/add_default_assets]", got)
	}

	// Writing true again is not an edge; no new task.
	env.do(t, http.MethodPatch, "/api/v2/device_settings", map[string]any{"default_assets": true})
	if got := taskTopics(); len(got) != 1 {
		t.Fatalf("tasks after repeat = %v, want no new task", got)
	}

	// On -> off enqueues the removal task.
	env.do(t, http.MethodPatch, "/api/v2/device_settings", map[string]any{"default_assets": false})
	got := taskTopics()
	if len(got) != 2 || got[1] != "panelsh/task/remove_default_assets" {
		t.Fatalf("tasks after disable = %v, want removal task appended", got)
	}
}

func TestUpdateDeviceSettings_AuthBackend(t *testing.T) {
	t.Run("enabling basic auth requires a password", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPatch, "/api/v2/device_settings", map[string]any{
			"auth_backend": auth.BackendKeyBasic,
			"username":     "admin",
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if env.store.Get().AuthBackend != auth.BackendKeyNone {
			t.Error("backend must not change when enabling fails")
		}
	})

	t.Run("enabling basic auth with credentials succeeds", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPatch, "/api/v2/device_settings", map[string]any{
			"auth_backend": auth.BackendKeyBasic,
			"username":     "admin",
			"password":     "hunter2",
			"password_2":   "hunter2",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}

		current := env.store.Get()
		if current.AuthBackend != auth.BackendKeyBasic {
			t.Errorf("AuthBackend = %q, want %q", current.AuthBackend, auth.BackendKeyBasic)
		}
		if current.User != "admin" || current.Password == "" {
			t.Error("credential not stored")
		}
	})

	t.Run("mismatched confirmation is rejected", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPatch, "/api/v2/device_settings", map[string]any{
			"auth_backend": auth.BackendKeyBasic,
			"username":     "admin",
			"password":     "hunter2",
			"password_2":   "hunter3",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("disabling auth requires the current password", func(t *testing.T) {
		env := newTestEnv(t)
		enableBasicAuth(t, env, "admin", "hunter2")

		do := func(body map[string]any) int {
			req := env.authedPatch(t, "/api/v2/device_settings", "admin", "hunter2", body)
			return req.Code
		}

		if code := do(map[string]any{"auth_backend": auth.BackendKeyNone}); code != http.StatusBadRequest {
			t.Errorf("without current_password: status = %d, want 400", code)
		}
		if code := do(map[string]any{
			"auth_backend":     auth.BackendKeyNone,
			"current_password": "wrong",
		}); code != http.StatusBadRequest {
			t.Errorf("with wrong current_password: status = %d, want 400", code)
		}
		if code := do(map[string]any{
			"auth_backend":     auth.BackendKeyNone,
			"current_password": "hunter2",
		}); code != http.StatusOK {
			t.Errorf("with correct current_password: status = %d, want 200", code)
		}
		if env.store.Get().AuthBackend != auth.BackendKeyNone {
			t.Error("backend not switched off")
		}
	})

	t.Run("unknown backend is rejected", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPatch, "/api/v2/device_settings", map[string]any{
			"auth_backend": "ldap",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}
