package simplemedia

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for content storage backends.
//
// The media manager itself never calls a BlobStore from its own operations:
// callers push bytes first, then record the result with CreateMedia, and
// delete blobs themselves (best-effort) before soft-deleting. Backends are
// registered on the service only so callers can resolve them by disk name.
type BlobStore interface {
	// Upload stores content under the given key
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams stores content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download reads content back by key
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes content by key
	Delete(ctx context.Context, objectKey string) error

	// Exists reports whether content is present under the key
	Exists(ctx context.Context, objectKey string) (bool, error)

	// GetDownloadURL returns a (possibly presigned) URL for downloading content
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)

	// GetObjectMeta retrieves storage-level metadata for a stored object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Repository defines the interface for media and mediable persistence.
//
// GetMedia returns soft-deleted rows as well; tombstones stay reachable by id
// and through associations. List methods likewise include tombstones unless
// documented otherwise -- filtering live media is the caller's choice.
type Repository interface {
	// Media operations
	CreateMedia(ctx context.Context, media *Media) error
	GetMedia(ctx context.Context, id string) (*Media, error)
	UpdateMedia(ctx context.Context, media *Media) error
	SoftDeleteMedia(ctx context.Context, id string, deletedBy *uuid.UUID, at time.Time) error
	ListChildren(ctx context.Context, parentID string) ([]*Media, error)

	// Association operations
	CreateMediable(ctx context.Context, mediable *Mediable) error
	DeleteMediable(ctx context.Context, mediaID string, owner OwnerRef, group *string) (bool, error)
	ListMediaByOwner(ctx context.Context, owner OwnerRef, group *string) ([]*Media, error)
	ListMediaByOwnerAndMimeType(ctx context.Context, owner OwnerRef, mimeType string) ([]*Media, error)
	ListMediablesByMedia(ctx context.Context, mediaID string) ([]*Mediable, error)

	// Tree operations. InsertChild performs the full nested-set insertion
	// (interval shifting plus child placement) atomically and returns the
	// repositioned child, stamped with the given update time.
	InsertChild(ctx context.Context, parentID, childID string, at time.Time) (*Media, error)
	ListDescendants(ctx context.Context, id string) ([]*Media, error)
	ListAncestors(ctx context.Context, id string) ([]*Media, error)
}

// EventSink defines the interface for media lifecycle event handling
type EventSink interface {
	// MediaCreated is fired when a media record is created
	MediaCreated(ctx context.Context, media *Media) error

	// MediaAttached is fired when a media is attached to an owner
	MediaAttached(ctx context.Context, mediable *Mediable) error

	// MediaDetached is fired when a media is detached from an owner
	MediaDetached(ctx context.Context, mediaID string, owner OwnerRef) error

	// MediaSoftDeleted is fired when a media is soft-deleted
	MediaSoftDeleted(ctx context.Context, mediaID string) error

	// ChildAdded is fired when a media is placed under a parent in the tree
	ChildAdded(ctx context.Context, parentID, childID string) error
}

// ObjectMeta contains storage-level metadata about a stored blob
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading a blob
type UploadParams struct {
	ObjectKey string
	MimeType  string
}
