package simplemedia

import "github.com/google/uuid"

// Request DTOs

// CreateMediaRequest contains parameters for creating a media record.
//
// Name, FileName, Disk, MimeType and Size are required; the rest is optional.
// The manager performs no MIME-type or size-bound validation beyond the
// size >= 0 data invariant -- upload validation belongs to the caller.
type CreateMediaRequest struct {
	Name            string
	FileName        string
	Disk            string
	MimeType        string
	Size            int64
	CreatedBy       *uuid.UUID
	Hash            string
	CustomAttribute string
	ParentID        *string
}

// AttachRequest contains parameters for attaching a media to an owner.
// An empty Group is persisted as GroupDefault.
type AttachRequest struct {
	MediaID string
	Owner   OwnerRef
	Group   string
}

// DetachRequest contains parameters for detaching a media from an owner.
// A nil Group removes the first matching association regardless of group.
type DetachRequest struct {
	MediaID string
	Owner   OwnerRef
	Group   *string
}
