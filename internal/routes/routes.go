package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mindhaven/mindhaven-api/internal/authz"
	"github.com/mindhaven/mindhaven-api/internal/handlers"
	"github.com/mindhaven/mindhaven-api/internal/models"
)

// NewRouter sets up the API routes.
func NewRouter(
	jwtSecret string,
	alertHandler *handlers.AlertHandler,
	notificationHandler *handlers.NotificationHandler,
	signalHandler *handlers.SignalHandler,
	eventHandler *handlers.EventHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(authz.JWTMiddleware(jwtSecret))

	// Crisis alerts: clinician-facing routes require the psychologist role;
	// creation is also called service-to-service by upstream contexts.
	psychologistOnly := authz.RequireRole(models.RolePsychologist)
	api.Handle("/alerts", psychologistOnly(http.HandlerFunc(alertHandler.List))).Methods(http.MethodGet)
	api.Handle("/alerts/pending-count", psychologistOnly(http.HandlerFunc(alertHandler.PendingCount))).Methods(http.MethodGet)
	api.Handle("/alerts/{alertID}", psychologistOnly(http.HandlerFunc(alertHandler.Get))).Methods(http.MethodGet)
	api.Handle("/alerts/{alertID}/status", psychologistOnly(http.HandlerFunc(alertHandler.UpdateStatus))).Methods(http.MethodPut)
	api.Handle("/alerts/{alertID}/severity", psychologistOnly(http.HandlerFunc(alertHandler.UpdateSeverity))).Methods(http.MethodPut)
	api.HandleFunc("/alerts", alertHandler.Create).Methods(http.MethodPost)

	// Notifications for the authenticated user.
	api.HandleFunc("/notifications", notificationHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/unread-count", notificationHandler.UnreadCount).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{notificationID}/read", notificationHandler.MarkRead).Methods(http.MethodPost)

	// Signal ingress from the chat, facial-analysis, and check-in contexts.
	api.HandleFunc("/signals/chat-message", signalHandler.ChatMessage).Methods(http.MethodPost)
	api.HandleFunc("/signals/emotion", signalHandler.EmotionObservation).Methods(http.MethodPost)
	api.HandleFunc("/signals/checkin", signalHandler.CheckIn).Methods(http.MethodPost)

	// Cross-context domain events from the library, assignment, and
	// messaging contexts.
	api.HandleFunc("/events/content-assigned", eventHandler.ContentAssigned).Methods(http.MethodPost)
	api.HandleFunc("/events/assignment-completed", eventHandler.AssignmentCompleted).Methods(http.MethodPost)
	api.HandleFunc("/events/all-assignments-completed", eventHandler.AllAssignmentsCompleted).Methods(http.MethodPost)
	api.HandleFunc("/events/message-sent", eventHandler.MessageSent).Methods(http.MethodPost)

	return router
}
