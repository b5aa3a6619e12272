package postgres

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdempotencyRecord_ReplayDefaults(t *testing.T) {
	r := &IdempotencyRecord{Status: IdempotencyStatusSuccess, Response: []byte(`{"ok":true}`)}

	replay := r.replay()
	assert.Equal(t, http.StatusOK, replay.StatusCode)
	assert.Equal(t, "application/json", replay.ContentType)
	assert.JSONEq(t, `{"ok":true}`, string(replay.Body))
}

func TestIdempotencyRecord_ReplayKeepsStoredStatus(t *testing.T) {
	r := &IdempotencyRecord{
		Status:      IdempotencyStatusFailed,
		StatusCode:  http.StatusUnprocessableEntity,
		ContentType: "application/problem+json",
	}

	replay := r.replay()
	assert.Equal(t, http.StatusUnprocessableEntity, replay.StatusCode)
	assert.Equal(t, "application/problem+json", replay.ContentType)
}

func TestNewIdempotencyStore_DefaultTTL(t *testing.T) {
	s := NewIdempotencyStore(nil, 0)
	assert.Equal(t, 24*time.Hour, s.ttl)
}
