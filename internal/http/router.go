package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/medconnect/backend/internal/access"
	"github.com/medconnect/backend/internal/account"
	"github.com/medconnect/backend/internal/apierror"
	"github.com/medconnect/backend/internal/appointment"
	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/cache"
	"github.com/medconnect/backend/internal/chat"
	"github.com/medconnect/backend/internal/config"
	"github.com/medconnect/backend/internal/connection"
	"github.com/medconnect/backend/internal/dossier"
	"github.com/medconnect/backend/internal/messaging"
	"github.com/medconnect/backend/internal/notification"
	"github.com/medconnect/backend/internal/telemetry"
	"github.com/medconnect/backend/internal/upload"
	"github.com/medconnect/backend/internal/users"
)

const serviceName = "med-connect-api"

// Dependencies are the shared resources the router builds its services from.
// Publisher and Metrics may be nil.
type Dependencies struct {
	Config      *config.Config
	DB          *sql.DB
	Cache       *cache.Client
	Publisher   messaging.PublisherInterface
	Verifier    *auth.Verifier
	Issuer      *auth.Issuer
	Permissions auth.Permissions
	Metrics     *telemetry.Metrics
	Store       upload.BlobStore
}

type handlers struct {
	account      *account.Handler
	users        *users.Handler
	access       *access.Handler
	dossier      *dossier.Handler
	connection   *connection.Handler
	appointment  *appointment.Handler
	chat         *chat.Handler
	notification *notification.Handler
	upload       *upload.Handler
}

func buildHandlers(d Dependencies) handlers {
	cfg := d.Config
	rdb := d.Cache.Redis()

	notifications := notification.NewService(
		notification.NewRepository(d.DB),
		notification.NewRedisBroadcaster(rdb),
		d.Metrics,
	)
	grants := access.NewService(access.NewRepository(d.DB), notifications)
	userRepo := users.NewRepository(d.DB)
	files := upload.NewService(upload.NewRepository(d.DB), d.Store, grants, notifications, d.Metrics, cfg.UploadMaxBytes)

	accounts := account.NewService(userRepo, d.Issuer, d.Verifier, account.Stores{
		Challenges: account.NewChallengeStore(rdb, cfg.TwoFactorTTL, cfg.TwoFactorMaxAttempts),
		Tokens:     account.NewTokenStore(rdb),
		Limiter:    account.NewLoginLimiter(rdb, cfg.LoginMaxFailures, cfg.LoginLockout),
	}, d.Publisher, d.Metrics, cfg.TwoFactorRequired)

	return handlers{
		account:      account.NewHandler(accounts),
		users:        users.NewHandler(users.NewService(userRepo, d.Publisher)),
		access:       access.NewHandler(grants),
		dossier:      dossier.NewHandler(dossier.NewService(dossier.NewRepository(d.DB), grants, notifications, d.Publisher, d.Metrics)),
		connection:   connection.NewHandler(connection.NewService(connection.NewRepository(d.DB), grants, notifications, d.Publisher)),
		appointment:  appointment.NewHandler(appointment.NewService(appointment.NewRepository(d.DB), grants, notifications, d.Publisher)),
		chat:         chat.NewHandler(chat.NewService(chat.NewRepository(d.DB), grants, files, notifications, d.Publisher, d.Metrics)),
		notification: notification.NewHandler(notifications),
		upload:       upload.NewHandler(files),
	}
}

// SetupRouter wires every module and registers its routes.
func SetupRouter(d Dependencies) *mux.Router {
	h := buildHandlers(d)

	r := mux.NewRouter()
	r.Use(otelmux.Middleware(serviceName))
	r.Use(AccessLog(d.Metrics))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierror.Respond(w, http.StatusNotFound, apierror.KindNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierror.Respond(w, http.StatusMethodNotAllowed, apierror.KindValidation, "method not allowed")
	})

	r.HandleFunc("/health", healthHandler(d)).Methods("GET")

	authn := auth.MiddlewareWithMetrics(d.Verifier, d.Metrics)
	protect := func(per string, fn http.HandlerFunc) http.Handler {
		return authn(auth.RequirePermissionWithMetrics(per, d.Permissions, d.Metrics)(fn))
	}
	// Handlers behind protectRole read the principal as that role.
	protectRole := func(role, per string, fn http.HandlerFunc) http.Handler {
		return protect(per, auth.RequireRole(role)(fn).ServeHTTP)
	}

	// Authentication
	r.HandleFunc("/auth/register", h.account.Register).Methods("POST")
	r.HandleFunc("/auth/login", h.account.Login).Methods("POST")
	r.HandleFunc("/auth/2fa/verify", h.account.VerifyTwoFactor).Methods("POST")
	r.HandleFunc("/auth/2fa/resend", h.account.ResendTwoFactor).Methods("POST")
	r.HandleFunc("/auth/refresh", h.account.Refresh).Methods("POST")
	r.HandleFunc("/auth/logout", h.account.Logout).Methods("POST")
	r.Handle("/auth/me", protect("profile:view", h.account.Me)).Methods("GET")
	r.Handle("/auth/password", protect("profile:update", h.account.ChangePassword)).Methods("POST")

	// Profiles and directory
	r.Handle("/users/me", protect("profile:view", h.users.GetMe)).Methods("GET")
	r.Handle("/users/me", protect("profile:update", h.users.UpdateMe)).Methods("PATCH")
	r.Handle("/doctors", protect("doctor:search", h.users.ListDoctors)).Methods("GET")

	// Administration
	r.Handle("/admin/users", protectRole(auth.RoleAdmin, "user:manage", h.users.ListUsers)).Methods("GET")
	r.Handle("/admin/users/{id}", protectRole(auth.RoleAdmin, "user:manage", h.users.GetUser)).Methods("GET")
	r.Handle("/admin/users/{id}/status", protectRole(auth.RoleAdmin, "user:manage", h.users.UpdateStatus)).Methods("PATCH")
	r.Handle("/admin/users/{id}/verify", protectRole(auth.RoleAdmin, "user:manage", h.users.VerifyDoctor)).Methods("POST")
	r.Handle("/admin/users/{id}", protectRole(auth.RoleAdmin, "user:manage", h.users.DeleteUser)).Methods("DELETE")
	r.Handle("/admin/stats", protectRole(auth.RoleAdmin, "user:manage", h.users.Stats)).Methods("GET")

	// Dossiers
	r.Handle("/dossiers/me", protect("dossier:own", h.dossier.GetOwn)).Methods("GET")
	r.Handle("/dossiers/me", protect("dossier:own", h.dossier.UpdateOwn)).Methods("PATCH")
	r.Handle("/patients/{patientId}/dossier", protect("dossier:read", h.dossier.GetPatient)).Methods("GET")
	r.Handle("/patients/{patientId}/dossier", protect("dossier:write", h.dossier.UpdatePatient)).Methods("PATCH")
	r.Handle("/patients/{patientId}/dossier/entries", protect("dossier:write", h.dossier.AddEntry)).Methods("POST")
	r.Handle("/patients/{patientId}/dossier/entries", protect("dossier:read", h.dossier.ListEntries)).Methods("GET")
	r.Handle("/patients/{patientId}/dossier/entries/{entryId}", protect("dossier:write", h.dossier.DeleteEntry)).Methods("DELETE")

	// Access grants
	r.Handle("/access", protect("access:manage", h.access.ListGrants)).Methods("GET")
	r.Handle("/access/{doctorId}", protect("access:manage", h.access.ChangeLevel)).Methods("PATCH")
	r.Handle("/access/{doctorId}", protect("access:manage", h.access.Revoke)).Methods("DELETE")
	r.Handle("/doctor/patients", protectRole(auth.RoleDoctor, "access:view", h.access.ListPatients)).Methods("GET")

	// Connection requests
	r.Handle("/connections", protect("connection:create", h.connection.Create)).Methods("POST")
	r.Handle("/connections", protect("connection:view", h.connection.List)).Methods("GET")
	r.Handle("/connections/{id}", protect("connection:view", h.connection.Get)).Methods("GET")
	r.Handle("/connections/{id}/accept", protect("connection:respond", h.connection.Accept)).Methods("POST")
	r.Handle("/connections/{id}/refuse", protect("connection:respond", h.connection.Refuse)).Methods("POST")
	r.Handle("/connections/{id}/cancel", protect("connection:create", h.connection.Cancel)).Methods("POST")

	// Appointments
	r.Handle("/appointments", protect("appointment:create", h.appointment.Create)).Methods("POST")
	r.Handle("/appointments", protect("appointment:view", h.appointment.List)).Methods("GET")
	r.Handle("/appointments/{id}", protect("appointment:view", h.appointment.Get)).Methods("GET")
	r.Handle("/appointments/{id}/confirm", protect("appointment:update", h.appointment.Confirm)).Methods("POST")
	r.Handle("/appointments/{id}/cancel", protect("appointment:update", h.appointment.Cancel)).Methods("POST")
	r.Handle("/appointments/{id}/complete", protect("appointment:update", h.appointment.Complete)).Methods("POST")

	// Messaging
	r.Handle("/messages", protect("message:send", h.chat.Send)).Methods("POST")
	r.Handle("/messages/unread-count", protect("message:view", h.chat.UnreadCount)).Methods("GET")
	r.Handle("/conversations", protect("message:view", h.chat.Conversations)).Methods("GET")
	r.Handle("/conversations/{userId}", protect("message:view", h.chat.Messages)).Methods("GET")
	r.Handle("/conversations/{userId}/read", protect("message:view", h.chat.MarkRead)).Methods("POST")

	// Notifications
	r.Handle("/notifications", protect("notification:view", h.notification.List)).Methods("GET")
	r.Handle("/notifications/unread-count", protect("notification:view", h.notification.UnreadCount)).Methods("GET")
	streamAuthn := auth.StreamMiddlewareWithMetrics(d.Verifier, d.Metrics)
	r.Handle("/notifications/stream", streamAuthn(auth.RequirePermissionWithMetrics("notification:view", d.Permissions, d.Metrics)(http.HandlerFunc(h.notification.Stream)))).Methods("GET")
	r.Handle("/notifications/read-all", protect("notification:update", h.notification.MarkAllRead)).Methods("POST")
	r.Handle("/notifications/{id}/read", protect("notification:update", h.notification.MarkRead)).Methods("POST")
	r.Handle("/notifications/{id}", protect("notification:update", h.notification.Delete)).Methods("DELETE")

	// Files
	r.Handle("/files", protect("file:upload", h.upload.Upload)).Methods("POST")
	r.Handle("/files/{id}", protect("file:view", h.upload.Get)).Methods("GET")
	r.Handle("/files/{id}/download", protect("file:view", h.upload.Download)).Methods("GET")
	r.Handle("/files/{id}", protect("file:delete", h.upload.Delete)).Methods("DELETE")
	r.Handle("/patients/{patientId}/files", protect("file:view", h.upload.ListForPatient)).Methods("GET")

	return r
}

// healthHandler reports ok only when PostgreSQL and Redis answer.
func healthHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"database": "ok", "redis": "ok"}
		status := http.StatusOK
		if err := d.DB.PingContext(ctx); err != nil {
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
		if err := d.Cache.Ping(ctx); err != nil {
			checks["redis"] = "unavailable"
			status = http.StatusServiceUnavailable
		}

		body := map[string]interface{}{
			"status":  "ok",
			"service": serviceName,
			"checks":  checks,
		}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		apierror.JSON(w, status, body)
	}
}
