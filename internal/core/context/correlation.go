package context

import (
	"context"

	"github.com/google/uuid"
)

// OriginHTTP marks work started by an API request.
const OriginHTTP = "http"

// Correlation ties the log lines of one unit of work together: an API
// request, or one run of a worker job.
type Correlation struct {
	RequestID string
	TraceID   string
	Origin    string
}

type correlationKey struct{}

func WithCorrelation(ctx context.Context, c Correlation) context.Context {
	return context.WithValue(ctx, correlationKey{}, c)
}

// CorrelationFrom returns the correlation stored in ctx.
func CorrelationFrom(ctx context.Context) (Correlation, bool) {
	c, ok := ctx.Value(correlationKey{}).(Correlation)
	return c, ok
}

// RequestID returns the request id of ctx, or "" outside any unit of work.
func RequestID(ctx context.Context) string {
	c, _ := CorrelationFrom(ctx)
	return c.RequestID
}

// ForJob starts a fresh correlation for a background job run. The trace id
// is inherited when ctx already carries one.
func ForJob(ctx context.Context, job string) context.Context {
	c := Correlation{RequestID: uuid.NewString(), Origin: job}
	if parent, ok := CorrelationFrom(ctx); ok && parent.TraceID != "" {
		c.TraceID = parent.TraceID
	} else {
		c.TraceID = uuid.NewString()
	}
	return WithCorrelation(ctx, c)
}
