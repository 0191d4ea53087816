package orchestration

import (
	"context"

	"github.com/koscakluka/ema-voice/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type voiceMetrics struct {
	recognitionErrors   metric.Int64Counter
	recognitionRestarts metric.Int64Counter
	breakerTrips        metric.Int64Counter
	demotions           metric.Int64Counter
	utterancesSent      metric.Int64Counter
}

func newVoiceMetrics() voiceMetrics {
	fallback := noop.NewMeterProvider().Meter(scopeName)
	counter := func(name, description string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(description))
		if err != nil {
			logger.Warn("failed to create counter", "name", name, "error", err)
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}

	return voiceMetrics{
		recognitionErrors:   counter("voice.recognition.errors", "Recognition errors by code"),
		recognitionRestarts: counter("voice.recognition.restarts", "Automatic recognition session restarts"),
		breakerTrips:        counter("voice.circuit_breaker.trips", "Circuit breaker trips"),
		demotions:           counter("voice.mode.demotions", "Forced demotions from continuous to push-to-talk"),
		utterancesSent:      counter("voice.utterances.sent", "Utterances sent to the dialogue backend"),
	}
}

func (m voiceMetrics) recognitionError(ctx context.Context, err speechtotext.Error, handling string) {
	m.recognitionErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", err.Code),
		attribute.String("handling", handling),
	))
}

func (m voiceMetrics) restart(ctx context.Context, reason string) {
	m.recognitionRestarts.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m voiceMetrics) utteranceSent(ctx context.Context, modality string) {
	m.utterancesSent.Add(ctx, 1, metric.WithAttributes(attribute.String("modality", modality)))
}
