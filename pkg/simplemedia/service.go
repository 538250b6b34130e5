package simplemedia

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface of the simple-media library: a thin,
// explicit media manager over a pluggable Repository, with named BlobStore
// backends registered for callers that move bytes around the metadata calls.
type Service interface {
	// Media operations
	CreateMedia(ctx context.Context, req CreateMediaRequest) (*Media, error)
	GetMedia(ctx context.Context, id string) (*Media, error)
	SoftDelete(ctx context.Context, mediaID string, deletedBy *uuid.UUID) (bool, error)

	// Association operations
	Attach(ctx context.Context, req AttachRequest) (*Mediable, error)
	Detach(ctx context.Context, req DetachRequest) (bool, error)
	GetMediaFor(ctx context.Context, owner OwnerRef, group *string) ([]*Media, error)
	GetMediaByTypeAndID(ctx context.Context, ownerType OwnerType, ownerID uuid.UUID, group *string) ([]*Media, error)
	GetMediaByMimeType(ctx context.Context, owner OwnerRef, mimeType string) ([]*Media, error)
	GetRelationshipsFor(ctx context.Context, mediaID string) ([]*Mediable, error)
	PolymorphicRelationships(ctx context.Context, mediaID string) (map[OwnerType][]*Mediable, error)

	// Hierarchy operations
	AddChild(ctx context.Context, parentID, childID string) (*Media, error)
	GetChildren(ctx context.Context, parentID string) ([]*Media, error)
	GetDescendants(ctx context.Context, id string) ([]*Media, error)
	GetAncestors(ctx context.Context, id string) ([]*Media, error)

	// Storage backend registry
	RegisterBackend(name string, backend BlobStore)
	GetBackend(name string) (BlobStore, error)
}
