// Package api exposes the HTTP JSON surface: one handler file per domain,
// all routed through gorilla/mux with the shared middleware chain.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/backlot-app/backlot/internal/authz"
	"github.com/backlot-app/backlot/internal/database"
	"github.com/backlot-app/backlot/internal/errors"
	"github.com/backlot-app/backlot/internal/httputil"
	"github.com/backlot-app/backlot/internal/logging"
	"github.com/backlot-app/backlot/internal/metrics"
	"github.com/backlot-app/backlot/internal/middleware"
	"github.com/backlot-app/backlot/internal/notify"
	"github.com/backlot-app/backlot/internal/supabase"
)

// Config wires the API's collaborators.
type Config struct {
	Repo              *database.Repository
	Authorizer        *authz.Authorizer
	Supabase          *supabase.Client
	Notifier          *notify.Notifier
	Logger            *logging.Logger
	Metrics           *metrics.Metrics
	FilesBucket       string
	AttachmentsBucket string
}

// API bundles the HTTP handlers.
type API struct {
	repo              *database.Repository
	auth              *authz.Authorizer
	supa              *supabase.Client
	notifier          *notify.Notifier
	logger            *logging.Logger
	metrics           *metrics.Metrics
	filesBucket       string
	attachmentsBucket string
}

// New creates the API.
func New(cfg Config) *API {
	return &API{
		repo:              cfg.Repo,
		auth:              cfg.Authorizer,
		supa:              cfg.Supabase,
		notifier:          cfg.Notifier,
		logger:            cfg.Logger,
		metrics:           cfg.Metrics,
		filesBucket:       cfg.FilesBucket,
		attachmentsBucket: cfg.AttachmentsBucket,
	}
}

// Routes registers every endpoint on router.
func (a *API) Routes(router *mux.Router) {
	router.Use(a.recoverMiddleware)

	router.HandleFunc("/api/admin/users", a.handleAdminCreateUser).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/users", a.handleAdminListUsers).Methods(http.MethodGet)
	router.HandleFunc("/api/admin/users/{id}", a.handleAdminUpdateUser).Methods(http.MethodPatch)
	router.HandleFunc("/api/admin/users/{id}", a.handleAdminDeleteUser).Methods(http.MethodDelete)

	router.HandleFunc("/api/profile", a.handleGetOwnProfile).Methods(http.MethodGet)
	router.HandleFunc("/api/profile", a.handleUpdateOwnProfile).Methods(http.MethodPatch)

	router.HandleFunc("/api/projects", a.handleListProjects).Methods(http.MethodGet)
	router.HandleFunc("/api/projects", a.handleCreateProject).Methods(http.MethodPost)
	router.HandleFunc("/api/projects/{id}", a.handleGetProject).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{id}", a.handleUpdateProject).Methods(http.MethodPatch)
	router.HandleFunc("/api/projects/{id}", a.handleDeleteProject).Methods(http.MethodDelete)
	router.HandleFunc("/api/projects/{id}/members", a.handleListMembers).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{id}/members", a.handleAddMember).Methods(http.MethodPost)
	router.HandleFunc("/api/projects/{id}/members/{userId}", a.handleRemoveMember).Methods(http.MethodDelete)

	router.HandleFunc("/api/tasks", a.handleListTasks).Methods(http.MethodGet)
	router.HandleFunc("/api/tasks", a.handleCreateTask).Methods(http.MethodPost)
	router.HandleFunc("/api/tasks/{id}", a.handleGetTask).Methods(http.MethodGet)
	router.HandleFunc("/api/tasks/{id}", a.handleUpdateTask).Methods(http.MethodPatch)
	router.HandleFunc("/api/tasks/{id}", a.handleDeleteTask).Methods(http.MethodDelete)

	router.HandleFunc("/api/projects/{id}/schedules", a.handleListSchedules).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{id}/schedules", a.handleCreateSchedule).Methods(http.MethodPost)
	router.HandleFunc("/api/schedules/{id}", a.handleUpdateSchedule).Methods(http.MethodPatch)
	router.HandleFunc("/api/schedules/{id}", a.handleDeleteSchedule).Methods(http.MethodDelete)

	router.HandleFunc("/api/projects/{id}/expenses", a.handleListExpenses).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{id}/expenses", a.handleCreateExpense).Methods(http.MethodPost)
	router.HandleFunc("/api/expenses/{id}", a.handleUpdateExpense).Methods(http.MethodPatch)
	router.HandleFunc("/api/expenses/{id}", a.handleDeleteExpense).Methods(http.MethodDelete)

	router.HandleFunc("/api/projects/{id}/files", a.handleListFiles).Methods(http.MethodGet)
	router.HandleFunc("/api/projects/{id}/files", a.handleUploadFile).Methods(http.MethodPost)
	router.HandleFunc("/api/files/{id}", a.handleUpdateFile).Methods(http.MethodPatch)
	router.HandleFunc("/api/files/{id}", a.handleDeleteFile).Methods(http.MethodDelete)
	router.HandleFunc("/api/files/{id}/url", a.handleSignedFileURL).Methods(http.MethodGet)

	router.HandleFunc("/api/messages", a.handleListConversations).Methods(http.MethodGet)
	router.HandleFunc("/api/messages", a.handleSendMessage).Methods(http.MethodPost)
	router.HandleFunc("/api/messages/{conversationId}", a.handleGetConversation).Methods(http.MethodGet)
	router.HandleFunc("/api/messages/{conversationId}", a.handleAppendMessage).Methods(http.MethodPost)
	router.HandleFunc("/api/messages/{conversationId}", a.handleMarkConversationRead).Methods(http.MethodPatch)

	router.HandleFunc("/api/reports", a.handleListReports).Methods(http.MethodGet)
	router.HandleFunc("/api/reports", a.handleCreateReport).Methods(http.MethodPost)
	router.HandleFunc("/api/reports/{id}", a.handleGetReport).Methods(http.MethodGet)
	router.HandleFunc("/api/reports/{id}", a.handleUpdateReport).Methods(http.MethodPatch)
	router.HandleFunc("/api/reports/{id}", a.handleDeleteReport).Methods(http.MethodDelete)
	router.HandleFunc("/api/reports/{id}/comments", a.handleListReportComments).Methods(http.MethodGet)
	router.HandleFunc("/api/reports/{id}/comments", a.handleCreateReportComment).Methods(http.MethodPost)
	router.HandleFunc("/api/comments/{id}", a.handleUpdateReportComment).Methods(http.MethodPatch)
	router.HandleFunc("/api/comments/{id}", a.handleDeleteReportComment).Methods(http.MethodDelete)

	router.HandleFunc("/api/notifications", a.handleListNotifications).Methods(http.MethodGet)
	router.HandleFunc("/api/notifications/read-all", a.handleMarkAllNotificationsRead).Methods(http.MethodPost)
	router.HandleFunc("/api/notifications/stream", a.handleNotificationStream).Methods(http.MethodGet)
	router.HandleFunc("/api/notifications/{id}", a.handleMarkNotificationRead).Methods(http.MethodPatch)

	router.HandleFunc("/api/dashboard/projects/{id}/budget", a.handleProjectBudget).Methods(http.MethodGet)
	router.HandleFunc("/api/dashboard/projects/{id}/expenses/monthly", a.handleMonthlyExpenses).Methods(http.MethodGet)
	router.HandleFunc("/api/dashboard/projects/{id}/expenses/categories", a.handleExpenseCategories).Methods(http.MethodGet)
	router.HandleFunc("/api/dashboard/projects/{id}/files/summary", a.handleFileSummary).Methods(http.MethodGet)
}

// resolveCaller loads the caller's profile, writing the error response on
// failure. The second return value reports success.
func (a *API) resolveCaller(w http.ResponseWriter, r *http.Request) (*authz.Caller, bool) {
	caller, err := a.auth.ResolveCaller(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		a.writeError(w, r, err)
		return nil, false
	}
	return caller, true
}

// writeError logs upstream failures with context and writes the mapped
// response. Non-service errors become a generic 500.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	se := errors.GetServiceError(err)
	if se == nil {
		switch {
		case database.IsNotFound(err):
			se = errors.NotFound("resource")
		case database.IsInvalidInput(err):
			se = errors.Validation(trimSentinel(err))
		default:
			se = errors.Upstream("", err)
		}
	}
	if se.Code == errors.CodeUpstream {
		a.logger.WithContext(r.Context()).Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg("request failed")
	}
	httputil.WriteError(w, se.HTTPStatus, se.Message)
}

// trimSentinel strips the "invalid input: " prefix from repository errors
// so the client message reads cleanly.
func trimSentinel(err error) string {
	msg := err.Error()
	const prefix = "invalid input: "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

// recoverMiddleware converts panics into a generic 500.
func (a *API) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				a.logger.WithContext(r.Context()).Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("handler panic")
				httputil.InternalError(w, "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
