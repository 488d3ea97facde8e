package api

import (
	"github.com/gorilla/mux"

	"github.com/andychuong/spendsense-sub000/internal/metrics"
	"github.com/andychuong/spendsense-sub000/internal/models"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Per-user decision surface
	api.HandleFunc("/users/{userID}/signals", handler.GetSignals).Methods("GET")
	api.HandleFunc("/users/{userID}/run", handler.RunPipeline).Methods("POST")
	api.HandleFunc("/run", handler.RunAll).Methods("POST")
	api.HandleFunc("/users/{userID}/persona", handler.GetPersona).Methods("GET")
	api.HandleFunc("/users/{userID}/persona/history", handler.GetPersonaHistory).Methods("GET")
	api.HandleFunc("/users/{userID}/recommendations", handler.GetRecommendations).Methods("GET")

	// Consent
	api.HandleFunc("/users/{userID}/consent", handler.GetConsent).Methods("GET")
	api.HandleFunc("/users/{userID}/consent", handler.SetConsent).Methods("PUT")

	// Review lifecycle
	api.HandleFunc("/recommendations/{id}/approve", handler.ReviewRecommendation(models.StatusApproved)).Methods("POST")
	api.HandleFunc("/recommendations/{id}/reject", handler.ReviewRecommendation(models.StatusRejected)).Methods("POST")

	// Audit
	api.HandleFunc("/traces/{id}", handler.GetTrace).Methods("GET")

	// Evaluation
	api.HandleFunc("/evaluation", handler.GetEvaluation).Methods("GET")

	return r
}
