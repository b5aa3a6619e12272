package postgres

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_ExpandRoundTrip(t *testing.T) {
	s, err := NewAuditService(nil)
	require.NoError(t, err)

	changes, err := json.Marshal(map[string]any{
		"before": map[string]any{"description": strings.Repeat("lens order ", 800)},
		"after":  nil,
	})
	require.NoError(t, err)
	require.Greater(t, len(changes), s.compressThreshold)

	e := AuditEntry{
		ChangesCompressed: s.encoder.EncodeAll(changes, nil),
		CompressionAlgo:   CompressionZstd,
	}
	assert.Less(t, len(e.ChangesCompressed), len(changes))

	require.NoError(t, s.expand(&e))
	assert.JSONEq(t, string(changes), string(e.Changes))
	assert.Nil(t, e.ChangesCompressed)
}

func TestAuditService_ExpandLeavesPlainRows(t *testing.T) {
	s, err := NewAuditService(nil)
	require.NoError(t, err)

	e := AuditEntry{Changes: json.RawMessage(`{"before":1}`), CompressionAlgo: CompressionNone}
	require.NoError(t, s.expand(&e))
	assert.JSONEq(t, `{"before":1}`, string(e.Changes))
}
