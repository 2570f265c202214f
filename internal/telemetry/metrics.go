package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the service's custom instruments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	HTTPRequestsTotal       metric.Int64Counter
	HTTPDurationMs          metric.Float64Histogram
	AuthFailuresTotal       metric.Int64Counter
	PermissionCheckDuration metric.Float64Histogram
	LoginsTotal             metric.Int64Counter
	DossierOperationsTotal  metric.Int64Counter
	MessagesSentTotal       metric.Int64Counter
	NotificationsTotal      metric.Int64Counter
	UploadBytesTotal        metric.Int64Counter
}

// InitMetrics creates the instruments on the global meter provider.
func InitMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter("github.com/medconnect/backend"))
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.HTTPRequestsTotal, "http_server_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.AuthFailuresTotal, "auth_failures_total", "Total number of authentication failures", "{failure}"},
		{&m.LoginsTotal, "logins_total", "Login attempts by outcome", "{attempt}"},
		{&m.DossierOperationsTotal, "dossier_operations_total", "Medical record operations", "{operation}"},
		{&m.MessagesSentTotal, "messages_sent_total", "Messages sent between patients and doctors", "{message}"},
		{&m.NotificationsTotal, "notifications_created_total", "Notifications created", "{notification}"},
		{&m.UploadBytesTotal, "upload_bytes_total", "Bytes stored through file uploads", "By"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
	}

	m.HTTPDurationMs, err = meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	m.PermissionCheckDuration, err = meter.Float64Histogram(
		"permission_check_duration_ms",
		metric.WithDescription("Permission check duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPDurationMs.Record(ctx, durationMs, attrs)
}

func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	if m == nil {
		return
	}
	m.PermissionCheckDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("permission", permission),
		attribute.Bool("allowed", allowed),
	))
}

// RecordLogin records a login step outcome, e.g. "success", "bad_password", "locked", "2fa_pending".
func (m *Metrics) RecordLogin(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordDossierOperation(ctx context.Context, operation, actorRole string) {
	if m == nil {
		return
	}
	m.DossierOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("actor_role", actorRole),
	))
}

func (m *Metrics) RecordMessageSent(ctx context.Context, senderRole string) {
	if m == nil {
		return
	}
	m.MessagesSentTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("sender_role", senderRole)))
}

func (m *Metrics) RecordNotification(ctx context.Context, notificationType string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", notificationType)))
}

func (m *Metrics) RecordUpload(ctx context.Context, contentType string, size int64) {
	if m == nil {
		return
	}
	m.UploadBytesTotal.Add(ctx, size, metric.WithAttributes(attribute.String("content_type", contentType)))
}
