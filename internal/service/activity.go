package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"clipcast/api/internal/ids"
	"clipcast/api/internal/models"
)

type ActivityStore interface {
	Insert(ctx context.Context, record models.ActivityRecord) error
}

// ActivityLogger appends an audit trail of mutating admin operations.
// Writes happen off the request goroutine and never fail the primary
// response; a lost record is only observability-logged.
type ActivityLogger struct {
	store ActivityStore
	log   zerolog.Logger
}

func NewActivityLogger(store ActivityStore, log zerolog.Logger) *ActivityLogger {
	return &ActivityLogger{store: store, log: log}
}

func (a *ActivityLogger) Record(adminID string, action string, resourceType string, resourceID string, details map[string]any, success bool) {
	record := models.ActivityRecord{
		ID:           ids.New(),
		AdminID:      adminID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		Success:      success,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.store.Insert(ctx, record); err != nil {
			a.log.Error().Err(err).
				Str("admin_id", adminID).
				Str("action", action).
				Msg("activity log write failed")
		}
	}()
}
