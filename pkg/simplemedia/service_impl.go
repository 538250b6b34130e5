package simplemedia

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// service implements the Service interface
type service struct {
	repository Repository
	blobStores map[string]BlobStore
	eventSink  EventSink
	now        func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend under the given disk name
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithClock overrides the time source. Used by tests that assert on
// timestamp stamping.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores: make(map[string]BlobStore),
		now:        func() time.Time { return time.Now().UTC() },
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return s, nil
}

// NewMediaID allocates a new media identifier: a ULID, globally unique and
// lexicographically sortable by creation time.
func NewMediaID() string {
	return ulid.Make().String()
}

// Media operations

func (s *service) CreateMedia(ctx context.Context, req CreateMediaRequest) (*Media, error) {
	if req.Size < 0 {
		return nil, &MediaError{Op: "create", Err: ErrNegativeSize}
	}

	now := s.now()
	media := &Media{
		ID:              NewMediaID(),
		Name:            req.Name,
		FileName:        req.FileName,
		Disk:            req.Disk,
		MimeType:        req.MimeType,
		Size:            req.Size,
		Hash:            req.Hash,
		CustomAttribute: req.CustomAttribute,
		ParentID:        req.ParentID,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repository.CreateMedia(ctx, media); err != nil {
		return nil, &MediaError{MediaID: media.ID, Op: "create", Err: err}
	}

	// Re-read so repository-populated defaults are visible to the caller.
	created, err := s.repository.GetMedia(ctx, media.ID)
	if err != nil {
		return nil, &MediaError{MediaID: media.ID, Op: "create", Err: err}
	}

	if s.eventSink != nil {
		_ = s.eventSink.MediaCreated(ctx, created)
	}

	return created, nil
}

func (s *service) GetMedia(ctx context.Context, id string) (*Media, error) {
	return s.repository.GetMedia(ctx, id)
}

func (s *service) SoftDelete(ctx context.Context, mediaID string, deletedBy *uuid.UUID) (bool, error) {
	err := s.repository.SoftDeleteMedia(ctx, mediaID, deletedBy, s.now())
	if err != nil {
		if errors.Is(err, ErrMediaNotFound) {
			return false, nil
		}
		return false, &MediaError{MediaID: mediaID, Op: "soft_delete", Err: err}
	}

	if s.eventSink != nil {
		_ = s.eventSink.MediaSoftDeleted(ctx, mediaID)
	}

	return true, nil
}

// Association operations

func (s *service) Attach(ctx context.Context, req AttachRequest) (*Mediable, error) {
	if !req.Owner.Type.Valid() {
		return nil, &AttachmentError{MediaID: req.MediaID, Owner: req.Owner, Op: "attach", Err: ErrInvalidOwnerType}
	}

	group := req.Group
	if group == "" {
		group = GroupDefault
	}

	// The media must already exist; attach never creates media rows.
	if _, err := s.repository.GetMedia(ctx, req.MediaID); err != nil {
		return nil, &AttachmentError{MediaID: req.MediaID, Owner: req.Owner, Op: "attach", Err: err}
	}

	mediable := &Mediable{
		MediaID:   req.MediaID,
		OwnerID:   req.Owner.ID,
		OwnerType: req.Owner.Type,
		Group:     group,
	}

	if err := s.repository.CreateMediable(ctx, mediable); err != nil {
		return nil, &AttachmentError{MediaID: req.MediaID, Owner: req.Owner, Op: "attach", Err: err}
	}

	if s.eventSink != nil {
		_ = s.eventSink.MediaAttached(ctx, mediable)
	}

	return mediable, nil
}

func (s *service) Detach(ctx context.Context, req DetachRequest) (bool, error) {
	if !req.Owner.Type.Valid() {
		return false, &AttachmentError{MediaID: req.MediaID, Owner: req.Owner, Op: "detach", Err: ErrInvalidOwnerType}
	}

	removed, err := s.repository.DeleteMediable(ctx, req.MediaID, req.Owner, req.Group)
	if err != nil {
		return false, &AttachmentError{MediaID: req.MediaID, Owner: req.Owner, Op: "detach", Err: err}
	}

	if removed && s.eventSink != nil {
		_ = s.eventSink.MediaDetached(ctx, req.MediaID, req.Owner)
	}

	return removed, nil
}

func (s *service) GetMediaFor(ctx context.Context, owner OwnerRef, group *string) ([]*Media, error) {
	if !owner.Type.Valid() {
		return nil, ErrInvalidOwnerType
	}
	return s.repository.ListMediaByOwner(ctx, owner, group)
}

func (s *service) GetMediaByTypeAndID(ctx context.Context, ownerType OwnerType, ownerID uuid.UUID, group *string) ([]*Media, error) {
	return s.GetMediaFor(ctx, OwnerRef{Type: ownerType, ID: ownerID}, group)
}

func (s *service) GetMediaByMimeType(ctx context.Context, owner OwnerRef, mimeType string) ([]*Media, error) {
	if !owner.Type.Valid() {
		return nil, ErrInvalidOwnerType
	}
	return s.repository.ListMediaByOwnerAndMimeType(ctx, owner, mimeType)
}

func (s *service) GetRelationshipsFor(ctx context.Context, mediaID string) ([]*Mediable, error) {
	return s.repository.ListMediablesByMedia(ctx, mediaID)
}

func (s *service) PolymorphicRelationships(ctx context.Context, mediaID string) (map[OwnerType][]*Mediable, error) {
	mediables, err := s.repository.ListMediablesByMedia(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	grouped := make(map[OwnerType][]*Mediable)
	for _, mb := range mediables {
		grouped[mb.OwnerType] = append(grouped[mb.OwnerType], mb)
	}
	return grouped, nil
}

// Hierarchy operations

func (s *service) AddChild(ctx context.Context, parentID, childID string) (*Media, error) {
	child, err := s.repository.InsertChild(ctx, parentID, childID, s.now())
	if err != nil {
		return nil, &MediaError{MediaID: childID, Op: "add_child", Err: err}
	}

	if s.eventSink != nil {
		_ = s.eventSink.ChildAdded(ctx, parentID, childID)
	}

	return child, nil
}

func (s *service) GetChildren(ctx context.Context, parentID string) ([]*Media, error) {
	return s.repository.ListChildren(ctx, parentID)
}

func (s *service) GetDescendants(ctx context.Context, id string) ([]*Media, error) {
	return s.repository.ListDescendants(ctx, id)
}

func (s *service) GetAncestors(ctx context.Context, id string) ([]*Media, error) {
	return s.repository.ListAncestors(ctx, id)
}

// Storage backend registry

func (s *service) RegisterBackend(name string, backend BlobStore) {
	s.blobStores[name] = backend
}

func (s *service) GetBackend(name string) (BlobStore, error) {
	backend, ok := s.blobStores[name]
	if !ok {
		return nil, ErrStorageBackendNotFound
	}
	return backend, nil
}
