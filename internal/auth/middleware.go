package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/medconnect/backend/internal/apierror"
)

type ctxKey string

const principalKey ctxKey = "auth_principal"

var tracer = otel.Tracer("github.com/medconnect/backend/internal/auth")

// MetricsRecorder records authentication failures.
type MetricsRecorder interface {
	RecordAuthFailure(ctx context.Context, reason string)
}

// Middleware validates the bearer token and injects the Principal into the request context.
func Middleware(ver *Verifier) func(http.Handler) http.Handler {
	return MiddlewareWithMetrics(ver, nil)
}

func MiddlewareWithMetrics(ver *Verifier, metrics MetricsRecorder) func(http.Handler) http.Handler {
	return authenticate(ver, metrics, false)
}

// StreamMiddlewareWithMetrics also accepts an access_token query parameter,
// for EventSource clients that cannot set headers. Mount it only on streams.
func StreamMiddlewareWithMetrics(ver *Verifier, metrics MetricsRecorder) func(http.Handler) http.Handler {
	return authenticate(ver, metrics, true)
}

func authenticate(ver *Verifier, metrics MetricsRecorder, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "auth.Middleware",
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			fail := func(reason, message string) {
				span.SetStatus(codes.Error, message)
				span.SetAttributes(attribute.String("error.type", reason))
				if metrics != nil {
					metrics.RecordAuthFailure(ctx, reason)
				}
				apierror.Respond(w, http.StatusUnauthorized, apierror.KindUnauthorized, message)
			}

			tok, reason := bearerToken(r, allowQuery)
			if reason != "" {
				fail(reason, strings.ReplaceAll(reason, "_", " "))
				return
			}

			pr, err := ver.ParseAndVerifyToken(tok)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("token validation failed")
				fail("invalid_token", "invalid token")
				return
			}

			span.SetAttributes(
				attribute.String("user.id", pr.UserID),
				attribute.StringSlice("user.roles", pr.Roles),
			)
			span.SetStatus(codes.Ok, "authentication successful")

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(ctx, pr)))
		})
	}
}

// bearerToken reads the token from the Authorization header, falling back to
// the access_token query parameter when allowQuery is set.
func bearerToken(r *http.Request, allowQuery bool) (string, string) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		if q := r.URL.Query().Get("access_token"); allowQuery && q != "" {
			return q, ""
		}
		return "", "missing_authorization"
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "invalid_header_format"
	}
	return parts[1], ""
}

// PermissionMetricsRecorder records permission check outcomes.
type PermissionMetricsRecorder interface {
	RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool)
}

// RequirePermission returns middleware that ensures the principal has permission.
func RequirePermission(per string, perms Permissions) func(http.Handler) http.Handler {
	return RequirePermissionWithMetrics(per, perms, nil)
}

func RequirePermissionWithMetrics(per string, perms Permissions, metrics PermissionMetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.Start(r.Context(), "auth.RequirePermission",
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attribute.String("permission.required", per)),
			)
			defer span.End()

			pr, ok := FromContext(ctx)
			if !ok {
				span.SetStatus(codes.Error, "unauthenticated")
				if metrics != nil {
					metrics.RecordPermissionCheck(ctx, per, float64(time.Since(start).Milliseconds()), false)
				}
				apierror.Respond(w, http.StatusUnauthorized, apierror.KindUnauthorized, "unauthenticated")
				return
			}

			allowed := HasPermission(pr, per, perms)
			span.SetAttributes(
				attribute.Bool("permission.allowed", allowed),
				attribute.String("user.id", pr.UserID),
			)
			if metrics != nil {
				metrics.RecordPermissionCheck(ctx, per, float64(time.Since(start).Milliseconds()), allowed)
			}

			if !allowed {
				log.Warn().
					Str("user_id", pr.UserID).
					Strs("roles", pr.Roles).
					Str("permission", per).
					Msg("permission denied")
				span.SetStatus(codes.Error, "forbidden")
				apierror.Respond(w, http.StatusForbidden, apierror.KindForbidden, "forbidden")
				return
			}

			span.SetStatus(codes.Ok, "permission granted")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole only lets principals holding one of roles through.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pr, ok := FromContext(r.Context())
			if !ok {
				apierror.Respond(w, http.StatusUnauthorized, apierror.KindUnauthorized, "unauthenticated")
				return
			}
			for _, role := range roles {
				if pr.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			apierror.Respond(w, http.StatusForbidden, apierror.KindForbidden, "forbidden")
		})
	}
}

// FromContext extracts Principal from context.
func FromContext(ctx context.Context) (*Principal, bool) {
	pr, ok := ctx.Value(principalKey).(*Principal)
	return pr, ok
}

// HasPermission checks the role -> permissions mapping. Role lookup is case-insensitive.
func HasPermission(pr *Principal, permission string, perms Permissions) bool {
	for _, role := range pr.Roles {
		pList, ok := perms[role]
		if !ok {
			pList, ok = perms[strings.ToUpper(role)]
		}
		if !ok {
			continue
		}
		for _, p := range pList {
			if p == permission {
				return true
			}
		}
	}
	return false
}
