package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_Empty(t *testing.T) {
	assert.Equal(t, "", RequestID(context.Background()))
}

func TestWithCorrelation(t *testing.T) {
	ctx := WithCorrelation(context.Background(), Correlation{RequestID: "r-1", TraceID: "t-1", Origin: OriginHTTP})

	c, ok := CorrelationFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "t-1", c.TraceID)
	assert.Equal(t, "r-1", RequestID(ctx))
}

func TestForJob(t *testing.T) {
	first := ForJob(context.Background(), "reconcile")
	second := ForJob(context.Background(), "reconcile")

	a, ok := CorrelationFrom(first)
	require.True(t, ok)
	b, _ := CorrelationFrom(second)
	assert.Equal(t, "reconcile", a.Origin)
	assert.NotEmpty(t, a.RequestID)
	assert.NotEqual(t, a.RequestID, b.RequestID)
	assert.NotEqual(t, a.TraceID, b.TraceID)

	nested, _ := CorrelationFrom(ForJob(first, "outbox"))
	assert.Equal(t, a.TraceID, nested.TraceID)
	assert.NotEqual(t, a.RequestID, nested.RequestID)
}
