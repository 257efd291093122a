package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v2 routes
	r.Route("/api/v2", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Session issuance (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Asset endpoints
			r.Route("/assets", func(r chi.Router) {
				r.Get("/", s.handleListAssets)
				r.Post("/", s.handleCreateAsset)
				r.Post("/order", s.handleSetPlaylistOrder)
				r.Post("/control/{command}", s.handleAssetsControl)

				r.Route("/{asset_id}", func(r chi.Router) {
					r.Get("/", s.handleGetAsset)
					r.Patch("/", s.handleUpdateAsset)
					r.Put("/", s.handleUpdateAsset)
					r.Delete("/", s.handleDeleteAsset)
				})
			})

			// Device settings
			r.Get("/device_settings", s.handleGetDeviceSettings)
			r.Patch("/device_settings", s.handleUpdateDeviceSettings)

			// Diagnostics
			r.Get("/info", s.handleInfo)
			r.Get("/integrations", s.handleIntegrations)

			// Host power control
			r.Post("/reboot", s.handleReboot)
			r.Post("/shutdown", s.handleShutdown)

			// WebSocket (auth via the interceptor like any other route)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}
