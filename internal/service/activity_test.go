package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipcast/api/internal/models"
)

type capturingActivityStore struct {
	records chan models.ActivityRecord
	err     error
}

func (s *capturingActivityStore) Insert(_ context.Context, record models.ActivityRecord) error {
	s.records <- record
	return s.err
}

func TestActivityLoggerRecord(t *testing.T) {
	store := &capturingActivityStore{records: make(chan models.ActivityRecord, 1)}
	logger := NewActivityLogger(store, zerolog.Nop())

	logger.Record("adm-1", "user.restrict", "user", "u1", map[string]any{"reason": "spam"}, true)

	select {
	case record := <-store.records:
		assert.NotEmpty(t, record.ID)
		assert.Equal(t, "adm-1", record.AdminID)
		assert.Equal(t, "user.restrict", record.Action)
		assert.Equal(t, "user", record.ResourceType)
		assert.Equal(t, "u1", record.ResourceID)
		assert.Equal(t, "spam", record.Details["reason"])
		assert.True(t, record.Success)
	case <-time.After(2 * time.Second):
		require.Fail(t, "record was never written")
	}
}

func TestActivityLoggerSwallowsStoreErrors(t *testing.T) {
	store := &capturingActivityStore{
		records: make(chan models.ActivityRecord, 1),
		err:     errors.New("insert failed"),
	}
	logger := NewActivityLogger(store, zerolog.Nop())

	// Must not panic or block the caller.
	logger.Record("adm-1", "user.delete", "user", "u1", nil, false)

	select {
	case record := <-store.records:
		assert.False(t, record.Success)
	case <-time.After(2 * time.Second):
		require.Fail(t, "record was never attempted")
	}
}
