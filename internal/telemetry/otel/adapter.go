package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/telemetry"
)

const instrumentationName = "singlebrief.telemetry"

// LogEmitter is the subset of otellog.Logger used by the event emitter.
type LogEmitter interface {
	Emit(ctx context.Context, record otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via provider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return NewEventEmitterWithLogger(provider.Logger(instrumentationName))
}

// NewEventEmitterWithLogger returns an EventEmitter writing to logger.
func NewEventEmitterWithLogger(logger LogEmitter) telemetry.EventEmitter {
	if logger == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *telemetry.Event) error { return nil }

type otelEmitter struct {
	logger LogEmitter
}

// Emit converts the event to an OTel log record. Failures are reported with WARN severity.
func (e *otelEmitter) Emit(ctx context.Context, event *telemetry.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetObservedTimestamp(time.Now().UTC())
	rec.SetEventName(event.Type)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetSeverityText("INFO")
	if event.Detail != "" {
		rec.SetBody(otellog.StringValue(event.Detail))
		rec.SetSeverity(otellog.SeverityWarn)
		rec.SetSeverityText("WARN")
	}

	addIfSet := func(key, value string) {
		if value != "" {
			rec.AddAttributes(otellog.String(key, value))
		}
	}
	addIfSet("event_type", event.Type)
	addIfSet("user_id", event.UserID)
	addIfSet("org_id", event.OrgID)
	addIfSet("source", event.Source)
	for k, v := range event.Metadata {
		addIfSet("meta."+k, v)
	}

	e.logger.Emit(ctx, rec)
	return nil
}
