package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "clinicledger/internal/core/context"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{zap.New(core).Sugar()}, logs
}

func TestInfo_CarriesRequestAndUser(t *testing.T) {
	log, logs := observed()

	ctx := WithLogger(context.Background(), log)
	ctx = appctx.WithCorrelation(ctx, appctx.Correlation{TraceID: "t-1", RequestID: "r-1", Origin: "reconcile"})
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "staff-7"})

	Info(ctx, "sale created", "invoice_no", "OPT-INV-2026-00001")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "t-1", fields["trace_id"])
	assert.Equal(t, "r-1", fields["request_id"])
	assert.Equal(t, "reconcile", fields["origin"])
	assert.Equal(t, "staff-7", fields["user_id"])
	assert.Equal(t, "OPT-INV-2026-00001", fields["invoice_no"])
}

func TestWithContext_BareContextAddsNothing(t *testing.T) {
	log, logs := observed()

	log.WithContext(context.Background()).Infow("ping")

	require.Equal(t, 1, logs.Len())
	assert.Empty(t, logs.All()[0].ContextMap())
}

func TestWithComponent(t *testing.T) {
	log, logs := observed()

	log.WithComponent("worker").Warnw("drift", "account", "optics")

	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "worker", entry.ContextMap()["component"])
}
