package simplemedia

import (
	"time"

	"github.com/google/uuid"
)

// OwnerType is the discriminator for the kind of entity a media item is
// attached to. The owning entity side of a Mediable is not a foreign key;
// it is resolved by (OwnerType, OwnerID) convention, so the set of accepted
// types is validated here at the application boundary.
type OwnerType string

// Owner type constants (typed).
const (
	OwnerTypeUser             OwnerType = "User"
	OwnerTypePeople           OwnerType = "People"
	OwnerTypeIdentityDocument OwnerType = "IdentityDocument"
)

// Valid reports whether t is a recognized owner type tag.
func (t OwnerType) Valid() bool {
	switch t {
	case OwnerTypeUser, OwnerTypePeople, OwnerTypeIdentityDocument:
		return true
	}
	return false
}

// OwnerRef identifies one owning entity. It is the application-layer view of
// the loosely-typed (owner_type, owner_id) pair persisted on mediables.
type OwnerRef struct {
	Type OwnerType `json:"owner_type"`
	ID   uuid.UUID `json:"owner_id"`
}

// GroupDefault is the group assigned to an attachment when the caller does
// not name one.
const GroupDefault = "default"

// Media represents one stored file plus its metadata and optional tree
// position.
//
// Media IDs are ULIDs: globally unique, time-ordered, and lexicographically
// sortable as plain strings.
//
// Two hierarchy mechanisms coexist. ParentID is a plain adjacency-list
// self-reference and is always maintained. RecordLeft/RecordRight/RecordDepth/
// RecordOrdering are nested-set coordinates maintained by AddChild; all nil
// means the node is not positioned in any nested-set tree, even when it has a
// ParentID.
type Media struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	FileName        string     `json:"file_name"`
	Disk            string     `json:"disk"`
	MimeType        string     `json:"mime_type"`
	Size            int64      `json:"size"`
	Hash            string     `json:"hash,omitempty"`
	CustomAttribute string     `json:"custom_attribute,omitempty"`
	ParentID        *string    `json:"parent_id,omitempty"`
	RecordLeft      *int64     `json:"record_left,omitempty"`
	RecordRight     *int64     `json:"record_right,omitempty"`
	RecordDepth     *int64     `json:"record_depth,omitempty"`
	RecordOrdering  *int64     `json:"record_ordering,omitempty"`
	CreatedBy       *uuid.UUID `json:"created_by,omitempty"`
	UpdatedBy       *uuid.UUID `json:"updated_by,omitempty"`
	DeletedBy       *uuid.UUID `json:"deleted_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

// Deleted reports whether the media has been soft-deleted. Soft-deleted rows
// stay queryable by id and through associations; callers that only want live
// media filter on this.
func (m *Media) Deleted() bool {
	return m.DeletedAt != nil
}

// Positioned reports whether the media holds nested-set coordinates. An
// unpositioned node participates in no nested-set query, even as an ancestor.
func (m *Media) Positioned() bool {
	return m.RecordLeft != nil && m.RecordRight != nil
}

// Mediable is one polymorphic association row linking a Media to an owning
// entity under a named group. Identity is the full
// (MediaID, OwnerID, OwnerType, Group) quadruple, so the same media may be
// attached to the same owner under any number of distinct groups.
//
// Mediable rows do not own the media's lifecycle: detaching never deletes the
// Media, and soft-deleting the Media leaves its mediables in place.
type Mediable struct {
	MediaID   string    `json:"media_id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	OwnerType OwnerType `json:"owner_type"`
	Group     string    `json:"group"`
}

// Owner returns the owning-entity reference of the association.
func (mb *Mediable) Owner() OwnerRef {
	return OwnerRef{Type: mb.OwnerType, ID: mb.OwnerID}
}
