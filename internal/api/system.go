package api

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/sqoia-dev/panel.sh/internal/infrastructure/mqtt"
	"github.com/sqoia-dev/panel.sh/internal/sysinfo"
)

// healthCheckTimeout bounds each dependency probe in /health.
const healthCheckTimeout = 2 * time.Second

// handleInfo returns host diagnostics for the management UI.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"panelsh_version": s.version,
		"host_user":       os.Getenv("HOST_USER"),
	}

	var displayPower any
	if s.power != nil {
		if state, ok := s.power.DisplayPower(); ok {
			displayPower = state
		}
	}
	payload["display_power"] = displayPower

	if disk, err := sysinfo.DiskUsage("/"); err == nil {
		payload["free_space"] = sysinfo.HumanSize(disk.Free)
	}

	payload["ip_addresses"] = sysinfo.IPAddresses()
	payload["mac_address"] = sysinfo.MACAddress()

	if s.sysinfo != nil {
		if load, err := s.sysinfo.LoadAvg(); err == nil {
			payload["loadavg"] = load
		}
		if uptime, err := s.sysinfo.Uptime(); err == nil {
			payload["uptime"] = uptime
		}
		if memory, err := s.sysinfo.Memory(); err == nil {
			payload["memory"] = memory
		}
		payload["device_model"] = s.sysinfo.DeviceModel()
	}

	writeJSON(w, http.StatusOK, payload)
}

// handleIntegrations reports platform integration metadata.
// On balena devices the supervisor environment is included.
func (s *Server) handleIntegrations(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"is_balena": isBalena(),
	}

	if payload["is_balena"] == true {
		payload["balena_device_id"] = os.Getenv("BALENA_DEVICE_UUID")
		payload["balena_app_id"] = os.Getenv("BALENA_APP_ID")
		payload["balena_app_name"] = os.Getenv("BALENA_APP_NAME")
		payload["balena_supervisor_version"] = os.Getenv("BALENA_SUPERVISOR_VERSION")
		payload["balena_host_os_version"] = os.Getenv("BALENA_HOST_OS_VERSION")
		payload["balena_device_name_at_init"] = os.Getenv("BALENA_DEVICE_NAME_AT_INIT")
	}

	writeJSON(w, http.StatusOK, payload)
}

// handleHealth aggregates dependency health into ok/degraded.
// Unauthenticated so external monitors can probe the device.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := map[string]any{
		"database": s.checkService(r.Context(), s.storeHealth),
		"broker":   s.checkService(r.Context(), s.brokerHealth),
	}

	// Disabled dependencies do not count against the aggregate.
	status := "ok"
	for _, svc := range services {
		if svc.(map[string]string)["status"] == "error" {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   status,
		"version":  s.version,
		"services": services,
	})
}

// checkService probes one dependency with a short timeout.
func (s *Server) checkService(ctx context.Context, checker HealthChecker) map[string]string {
	if checker == nil {
		return map[string]string{"status": "disabled"}
	}

	probeCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := checker.HealthCheck(probeCtx); err != nil {
		return map[string]string{"status": "error", "error": err.Error()}
	}
	return map[string]string{"status": "ok"}
}

// handleReboot enqueues a reboot task.
func (s *Server) handleReboot(w http.ResponseWriter, r *http.Request) {
	s.handleHostCommand(w, "reboot", "Reboot command was successfully sent.")
}

// handleShutdown enqueues a shutdown task.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	s.handleHostCommand(w, "shutdown", "Shutdown command was successfully sent.")
}

func (s *Server) handleHostCommand(w http.ResponseWriter, task, message string) {
	if s.bus == nil {
		writeServiceUnavailable(w, "message bus unavailable")
		return
	}

	topic := mqtt.Topics{}.Task(task)
	if err := s.bus.Publish(topic, []byte(`{}`), 1, false); err != nil {
		s.logger.Error("enqueueing host command failed", "task", task, "error", err)
		writeServiceUnavailable(w, "enqueueing command failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// isBalena reports whether the process runs under the balena supervisor.
func isBalena() bool {
	return os.Getenv("BALENA_DEVICE_UUID") != "" || os.Getenv("BALENA") != ""
}
