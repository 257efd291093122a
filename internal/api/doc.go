// Package api provides the HTTP REST API and WebSocket server for panel.sh.
//
// It exposes the v2 device management surface: playlist asset CRUD with
// ordering, device settings, diagnostics, host power control, and a
// WebSocket hub that pushes assets_changed/settings_changed events to
// management UIs.
//
// The server follows the same lifecycle pattern as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Authentication is enforced by a routing-layer interceptor backed by the
// backend selected in device settings; /health and /auth/login stay open.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
