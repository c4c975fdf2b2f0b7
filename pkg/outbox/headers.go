package outbox

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/campusconnect/mconnect/pkg/correlationid"
)

// BuildHeaders creates a headers map with trace context and correlation ID
// injected from ctx, for storage alongside an outbox message.
func BuildHeaders(ctx context.Context) map[string]string {
	headers := map[string]string{}

	propagator := otel.GetTextMapPropagator()
	propagator.Inject(ctx, propagation.MapCarrier(headers))

	if correlationID, ok := correlationid.FromContext(ctx); ok {
		headers[correlationid.Header] = correlationID
	}

	return headers
}

// ExtractContextFromHeaders restores trace context and correlation ID from a
// headers map into ctx on the consuming side.
func ExtractContextFromHeaders(ctx context.Context, headers map[string]string) context.Context {
	propagator := otel.GetTextMapPropagator()
	ctx = propagator.Extract(ctx, propagation.MapCarrier(headers))

	if correlationID, ok := headers[correlationid.Header]; ok {
		ctx = correlationid.NewContext(ctx, correlationID)
	}

	return ctx
}
