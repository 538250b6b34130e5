package simplemedia

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrMediaNotFound indicates a media record was not found
	ErrMediaNotFound = errors.New("media not found")

	// ErrMediableNotFound indicates a media association was not found
	ErrMediableNotFound = errors.New("media association not found")

	// ErrParentNotFound indicates the referenced parent media does not exist
	ErrParentNotFound = errors.New("parent media not found")

	// ErrStorageBackendNotFound indicates a storage backend was not found
	ErrStorageBackendNotFound = errors.New("storage backend not found")

	// ErrInvalidOwnerType indicates an owner type tag outside the recognized set
	ErrInvalidOwnerType = errors.New("invalid owner type")

	// ErrNegativeSize indicates a media size below zero
	ErrNegativeSize = errors.New("media size must not be negative")

	// ErrAlreadyAttached indicates an attach with an already existing
	// (media, owner, group) combination
	ErrAlreadyAttached = errors.New("media already attached to owner in group")

	// ErrAlreadyPositioned indicates an AddChild target that already holds
	// nested-set coordinates
	ErrAlreadyPositioned = errors.New("media already positioned in a tree")

	// ErrTreePositionConflict indicates a duplicate (record_left, record_right)
	// pair, which would corrupt the nested-set encoding
	ErrTreePositionConflict = errors.New("nested-set position already occupied")

	// ErrConcurrentTreeMutation indicates a concurrent writer invalidated the
	// interval renumbering mid-transaction; callers should retry AddChild
	ErrConcurrentTreeMutation = errors.New("concurrent tree mutation detected")

	// ErrHierarchyCycle indicates an AddChild that would make a node its own
	// ancestor
	ErrHierarchyCycle = errors.New("media cannot be its own ancestor")
)

// MediaError represents an error related to media operations
type MediaError struct {
	MediaID string
	Op      string
	Err     error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media operation %s failed for media %s: %v", e.Op, e.MediaID, e.Err)
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

// AttachmentError represents an error related to attach/detach operations
type AttachmentError struct {
	MediaID string
	Owner   OwnerRef
	Op      string
	Err     error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attachment operation %s failed for media %s and owner %s/%s: %v",
		e.Op, e.MediaID, e.Owner.Type, e.Owner.ID, e.Err)
}

func (e *AttachmentError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
