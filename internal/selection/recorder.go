package selection

import (
	"context"
	"log/slog"

	"github.com/hpungsan/kin/internal/logging"
)

// EngagementStore is the write side the recorder needs.
type EngagementStore interface {
	IncrementEngaged(ctx context.Context, contactID string) error
}

// Recorder records that the user acted on a surfaced contact.
type Recorder struct {
	store  EngagementStore
	logger *slog.Logger
}

// NewRecorder returns a recorder writing through store. A nil logger discards.
func NewRecorder(store EngagementStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Recorder{store: store, logger: logger}
}

// Record increments the engaged counter for contactID.
// An empty id records nothing and reports recorded=false.
func (r *Recorder) Record(ctx context.Context, contactID string) (bool, error) {
	if contactID == "" {
		return false, nil
	}
	if err := r.store.IncrementEngaged(ctx, contactID); err != nil {
		return false, asStorageFailure("increment engaged", err)
	}
	r.logger.Info("engagement recorded", "contact_id", contactID)
	return true, nil
}
