package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/warden/internal/handlers"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	credentialHandler *handlers.CredentialHandler,
	resetHandler *handlers.ResetHandler,
	health http.HandlerFunc,
	metrics http.Handler,
) {
	router.Get("/health", health)
	router.Method(http.MethodGet, "/metrics", metrics)

	router.Route("/credentials", func(r chi.Router) {
		r.Post("/", credentialHandler.Create)
		r.Put("/", credentialHandler.Update)
		r.Delete("/", credentialHandler.Delete)
	})

	router.Post("/verify", credentialHandler.Verify)

	router.Route("/reset", func(r chi.Router) {
		r.Post("/", resetHandler.Request)
		r.Put("/", resetHandler.Confirm)
	})
}
