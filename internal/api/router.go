package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/bcnelson/waf-ipset-manager/internal/api/handler"
	"github.com/bcnelson/waf-ipset-manager/internal/api/middleware"
	"github.com/bcnelson/waf-ipset-manager/internal/service"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(svc *service.UpdateService, apiKey string, log logrus.FieldLogger) http.Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(log))

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes (auth required, JSON Content-Type)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(middleware.Auth(apiKey))

		ipsetHandler := handler.NewIPSetHandler(svc)
		r.Route("/ipsets/{name}", func(r chi.Router) {
			r.Get("/", ipsetHandler.Get)
			r.Post("/addresses", ipsetHandler.AddAddresses)
			r.Delete("/addresses", ipsetHandler.RemoveAddresses)
			r.Get("/addresses/*", ipsetHandler.Contains)
		})

		operationHandler := handler.NewOperationHandler(svc)
		r.Get("/operations", operationHandler.List)
		r.Get("/operations/{id}", operationHandler.Get)
	})

	return r
}
