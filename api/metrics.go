package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rivo-reminders/domain"
)

const (
	remindersSpanName    = "reminders.run"
	remindersEventName   = "reminders.run.metrics"
	remindersEventDomain = "rivo.reminders"
)

type runMetrics struct {
	logger *log.Logger
	runID  string
	start  time.Time
	span   trace.Span
}

// newRunMetrics starts a span for one reminder run and returns the metrics
// recorder together with the span context, which callers should thread into
// downstream work.
func newRunMetrics(ctx context.Context, logger *log.Logger, runID string) (*runMetrics, context.Context) {
	spanCtx, span := otel.Tracer("rivo-reminders/api").Start(ctx, remindersSpanName)
	return &runMetrics{
		logger: logger,
		runID:  runID,
		start:  time.Now(),
		span:   span,
	}, spanCtx
}

// Log ends the run span and emits one observability event carrying the run
// counters, both as span attributes and as structured log fields.
func (m *runMetrics) Log(status int, sum domain.Summary, err error) {
	if m == nil || m.logger == nil {
		return
	}

	totalMS := durationToMillis(time.Since(m.start))
	severityText, severityNumber := severityForStatus(status, err)

	attrs := []attribute.KeyValue{
		attribute.String("http.route", "/api/reminders"),
		attribute.Int("http.status_code", status),
		attribute.String("rivo.reminders.run_id", m.runID),
		attribute.Float64("rivo.reminders.total_ms", totalMS),
		attribute.Int("rivo.reminders.tasks_due_tomorrow", sum.TasksDueTomorrow),
		attribute.Int("rivo.reminders.tasks_due_7d", sum.TasksDue7Days),
		attribute.Int("rivo.reminders.emails_sent", sum.EmailsSent.Total()),
		attribute.Int("rivo.reminders.tasks_marked", sum.TasksUpdated.Total()),
		attribute.Int("rivo.reminders.users_processed", sum.UsersProcessed),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}

	fields := log.Fields{
		"event.name":         remindersEventName,
		"event.domain":       remindersEventDomain,
		"route":              "/api/reminders",
		"run_id":             m.runID,
		"status":             status,
		"total_ms":           totalMS,
		"tasks_due_tomorrow": sum.TasksDueTomorrow,
		"tasks_due_7d":       sum.TasksDue7Days,
		"emails_sent":        sum.EmailsSent.Total(),
		"tasks_marked":       sum.TasksUpdated.Total(),
		"users_processed":    sum.UsersProcessed,
		"severity_text":      severityText,
		"severity_number":    severityNumber,
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		eventAttrs := append([]attribute.KeyValue{
			attribute.String("event.name", remindersEventName),
			attribute.String("event.domain", remindersEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}, attrs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
		if err != nil {
			m.span.SetStatus(codes.Error, err.Error())
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
		m.span.End()
	}

	m.logger.WithFields(fields).Info("observability.event")
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
