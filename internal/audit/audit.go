package audit

import (
	"context"

	"skyfall-dashboard/internal/storage"

	"go.uber.org/zap"
)

// Recorder appends moderation cases to the store. An append failure never
// fails the action that was already performed upstream; it is logged and
// swallowed.
type Recorder struct {
	store  *storage.Store
	logger *zap.Logger
}

func NewRecorder(store *storage.Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, entry storage.Case) {
	if r.store != nil {
		if err := r.store.AddCase(ctx, entry); err != nil {
			r.logger.Warn("audit append failed",
				zap.String("guild_id", entry.GuildID),
				zap.String("action", entry.ActionKind),
				zap.Error(err))
		}
	}
	r.logger.Info("moderation case",
		zap.String("guild_id", entry.GuildID),
		zap.String("action", entry.ActionKind),
		zap.String("target_user_id", entry.TargetUserID),
		zap.String("moderator_user_id", entry.ModeratorUserID),
		zap.String("reason", entry.Reason))
}
