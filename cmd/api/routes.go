package main

import (
	"net/http"

	"github.com/rs/zerolog"

	httphandlers "spendsync/internal/interfaces/http"
	"spendsync/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, logger zerolog.Logger, telemetryEnabled bool) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT)

	mux.Handle("/api/import", authMiddleware(http.HandlerFunc(deps.ImportHandler.HandleImport)))
	mux.Handle("/api/sync/transactions", authMiddleware(http.HandlerFunc(deps.SyncHandler.HandleSyncTransactions)))
	mux.Handle("/api/sync/recurring", authMiddleware(http.HandlerFunc(deps.SyncHandler.HandleSyncRecurring)))
	mux.Handle("/api/transactions", authMiddleware(http.HandlerFunc(deps.TransactionHandler.HandleListTransactions)))
	mux.Handle("/api/recurring", authMiddleware(http.HandlerFunc(deps.RecurringHandler.HandleListRecurring)))

	// Apply global middleware
	handler := middleware.Logging(logger)(mux)
	if telemetryEnabled {
		handler = middleware.Telemetry(middleware.Tracing(handler))
	}

	return handler
}
