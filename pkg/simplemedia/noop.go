package simplemedia

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
// Useful for production when you don't need event handling or for testing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// MediaCreated does nothing and returns nil
func (n *NoopEventSink) MediaCreated(ctx context.Context, media *Media) error {
	return nil
}

// MediaAttached does nothing and returns nil
func (n *NoopEventSink) MediaAttached(ctx context.Context, mediable *Mediable) error {
	return nil
}

// MediaDetached does nothing and returns nil
func (n *NoopEventSink) MediaDetached(ctx context.Context, mediaID string, owner OwnerRef) error {
	return nil
}

// MediaSoftDeleted does nothing and returns nil
func (n *NoopEventSink) MediaSoftDeleted(ctx context.Context, mediaID string) error {
	return nil
}

// ChildAdded does nothing and returns nil
func (n *NoopEventSink) ChildAdded(ctx context.Context, parentID, childID string) error {
	return nil
}

// SlogEventSink is an event sink that logs media lifecycle events through a
// structured logger and takes no other action. Useful for development and
// debugging.
type SlogEventSink struct {
	logger *slog.Logger
}

// NewSlogEventSink creates a new slog-backed event sink
func NewSlogEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogEventSink{logger: logger}
}

// MediaCreated logs the media creation event
func (l *SlogEventSink) MediaCreated(ctx context.Context, media *Media) error {
	l.logger.InfoContext(ctx, "media created",
		"media_id", media.ID, "name", media.Name, "disk", media.Disk, "mime_type", media.MimeType)
	return nil
}

// MediaAttached logs the attach event
func (l *SlogEventSink) MediaAttached(ctx context.Context, mediable *Mediable) error {
	l.logger.InfoContext(ctx, "media attached",
		"media_id", mediable.MediaID, "owner_type", mediable.OwnerType,
		"owner_id", mediable.OwnerID, "group", mediable.Group)
	return nil
}

// MediaDetached logs the detach event
func (l *SlogEventSink) MediaDetached(ctx context.Context, mediaID string, owner OwnerRef) error {
	l.logger.InfoContext(ctx, "media detached",
		"media_id", mediaID, "owner_type", owner.Type, "owner_id", owner.ID)
	return nil
}

// MediaSoftDeleted logs the soft-delete event
func (l *SlogEventSink) MediaSoftDeleted(ctx context.Context, mediaID string) error {
	l.logger.InfoContext(ctx, "media soft-deleted", "media_id", mediaID)
	return nil
}

// ChildAdded logs the hierarchy placement event
func (l *SlogEventSink) ChildAdded(ctx context.Context, parentID, childID string) error {
	l.logger.InfoContext(ctx, "media child added", "parent_id", parentID, "child_id", childID)
	return nil
}
