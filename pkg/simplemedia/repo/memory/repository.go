package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-media/pkg/simplemedia"
)

// Repository implements simplemedia.Repository using in-memory storage.
//
// Mediables are kept in insertion order so that detach without a group
// removes the oldest matching association, and owner listings follow
// attachment order. All tree mutations run under the write lock, which
// serializes concurrent AddChild calls the same way the Postgres
// implementation does with its transaction-scoped advisory lock.
type Repository struct {
	mu        sync.RWMutex
	media     map[string]*simplemedia.Media
	mediables []*simplemedia.Mediable
}

// New creates a new in-memory repository
func New() simplemedia.Repository {
	return &Repository{
		media: make(map[string]*simplemedia.Media),
	}
}

// Media operations

func (r *Repository) CreateMedia(ctx context.Context, media *simplemedia.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.media[media.ID]; exists {
		return fmt.Errorf("media %s already exists", media.ID)
	}
	if err := r.validateMedia(media); err != nil {
		return err
	}

	// Create a copy to avoid external modifications
	mediaCopy := *media
	r.media[media.ID] = &mediaCopy

	return nil
}

func (r *Repository) GetMedia(ctx context.Context, id string) (*simplemedia.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	media, exists := r.media[id]
	if !exists {
		return nil, simplemedia.ErrMediaNotFound
	}

	// Tombstones stay reachable by id; no deleted_at filter here.
	mediaCopy := *media
	return &mediaCopy, nil
}

func (r *Repository) UpdateMedia(ctx context.Context, media *simplemedia.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.media[media.ID]; !exists {
		return simplemedia.ErrMediaNotFound
	}
	if err := r.validateMedia(media); err != nil {
		return err
	}

	mediaCopy := *media
	r.media[media.ID] = &mediaCopy

	return nil
}

func (r *Repository) SoftDeleteMedia(ctx context.Context, id string, deletedBy *uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	media, exists := r.media[id]
	if !exists {
		return simplemedia.ErrMediaNotFound
	}

	// Idempotent: a second call just re-stamps the tombstone.
	media.DeletedAt = &at
	media.DeletedBy = deletedBy
	media.UpdatedAt = at
	return nil
}

func (r *Repository) ListChildren(ctx context.Context, parentID string) ([]*simplemedia.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.media[parentID]; !exists {
		return nil, simplemedia.ErrMediaNotFound
	}

	result := []*simplemedia.Media{}
	for _, media := range r.media {
		if media.ParentID != nil && *media.ParentID == parentID {
			mediaCopy := *media
			result = append(result, &mediaCopy)
		}
	}

	// ULIDs sort by creation time, so id order is creation order.
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// validateMedia enforces the data-layer invariants: non-negative size, a
// resolvable parent reference, ordered interval bounds, and global
// uniqueness of non-nil (record_left, record_right) pairs.
// Caller must hold the write lock.
func (r *Repository) validateMedia(media *simplemedia.Media) error {
	if media.Size < 0 {
		return simplemedia.ErrNegativeSize
	}
	if media.ParentID != nil {
		if _, exists := r.media[*media.ParentID]; !exists {
			return simplemedia.ErrParentNotFound
		}
	}
	if media.RecordLeft != nil && media.RecordRight != nil {
		if *media.RecordLeft >= *media.RecordRight {
			return fmt.Errorf("record_left must be below record_right: %w", simplemedia.ErrTreePositionConflict)
		}
		for _, other := range r.media {
			if other.ID == media.ID || !other.Positioned() {
				continue
			}
			if *other.RecordLeft == *media.RecordLeft && *other.RecordRight == *media.RecordRight {
				return simplemedia.ErrTreePositionConflict
			}
		}
	}
	return nil
}

// Association operations

func (r *Repository) CreateMediable(ctx context.Context, mediable *simplemedia.Mediable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.media[mediable.MediaID]; !exists {
		return simplemedia.ErrMediaNotFound
	}

	for _, mb := range r.mediables {
		if mb.MediaID == mediable.MediaID &&
			mb.OwnerID == mediable.OwnerID &&
			mb.OwnerType == mediable.OwnerType &&
			mb.Group == mediable.Group {
			return simplemedia.ErrAlreadyAttached
		}
	}

	mediableCopy := *mediable
	r.mediables = append(r.mediables, &mediableCopy)

	return nil
}

func (r *Repository) DeleteMediable(ctx context.Context, mediaID string, owner simplemedia.OwnerRef, group *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, mb := range r.mediables {
		if mb.MediaID != mediaID || mb.OwnerID != owner.ID || mb.OwnerType != owner.Type {
			continue
		}
		if group != nil && mb.Group != *group {
			continue
		}
		r.mediables = append(r.mediables[:i], r.mediables[i+1:]...)
		return true, nil
	}

	// Absence is a normal outcome, not an error.
	return false, nil
}

func (r *Repository) ListMediaByOwner(ctx context.Context, owner simplemedia.OwnerRef, group *string) ([]*simplemedia.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*simplemedia.Media{}
	seen := make(map[string]bool)
	for _, mb := range r.mediables {
		if mb.OwnerID != owner.ID || mb.OwnerType != owner.Type {
			continue
		}
		if group != nil && mb.Group != *group {
			continue
		}
		if seen[mb.MediaID] {
			continue
		}
		seen[mb.MediaID] = true
		if media, exists := r.media[mb.MediaID]; exists {
			// Soft-deleted media stay visible through associations.
			mediaCopy := *media
			result = append(result, &mediaCopy)
		}
	}

	return result, nil
}

func (r *Repository) ListMediaByOwnerAndMimeType(ctx context.Context, owner simplemedia.OwnerRef, mimeType string) ([]*simplemedia.Media, error) {
	all, err := r.ListMediaByOwner(ctx, owner, nil)
	if err != nil {
		return nil, err
	}

	result := []*simplemedia.Media{}
	for _, media := range all {
		if media.MimeType == mimeType {
			result = append(result, media)
		}
	}
	return result, nil
}

func (r *Repository) ListMediablesByMedia(ctx context.Context, mediaID string) ([]*simplemedia.Mediable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.media[mediaID]; !exists {
		return nil, simplemedia.ErrMediaNotFound
	}

	result := []*simplemedia.Mediable{}
	for _, mb := range r.mediables {
		if mb.MediaID == mediaID {
			mediableCopy := *mb
			result = append(result, &mediableCopy)
		}
	}

	return result, nil
}

// Tree operations

func (r *Repository) InsertChild(ctx context.Context, parentID, childID string, at time.Time) (*simplemedia.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent, exists := r.media[parentID]
	if !exists {
		return nil, simplemedia.ErrParentNotFound
	}
	child, exists := r.media[childID]
	if !exists {
		return nil, simplemedia.ErrMediaNotFound
	}
	if parentID == childID {
		return nil, fmt.Errorf("media %s: %w", childID, simplemedia.ErrHierarchyCycle)
	}
	if child.Positioned() {
		return nil, simplemedia.ErrAlreadyPositioned
	}

	// Linking would close a ParentID loop if the child already sits on the
	// parent's ancestor chain.
	if r.onAncestorChain(parent, childID) {
		return nil, fmt.Errorf("media %s is an ancestor of %s: %w", childID, parentID, simplemedia.ErrHierarchyCycle)
	}

	// An unpositioned parent is first rooted in a fresh interval above every
	// existing tree, keeping the global (left, right) uniqueness invariant
	// for independent trees sharing one table.
	if !parent.Positioned() {
		maxRight := int64(0)
		for _, media := range r.media {
			if media.Positioned() && *media.RecordRight > maxRight {
				maxRight = *media.RecordRight
			}
		}
		left := maxRight + 1
		right := maxRight + 2
		depth := int64(0)
		parent.RecordLeft = &left
		parent.RecordRight = &right
		parent.RecordDepth = &depth
	}

	ordering := int64(1)
	for _, media := range r.media {
		if media.ID != childID && media.ParentID != nil && *media.ParentID == parentID {
			ordering++
		}
	}

	// Nested-set insertion: open a two-slot gap at the parent's right bound,
	// then place the child into it.
	gapAt := *parent.RecordRight
	for _, media := range r.media {
		if !media.Positioned() {
			continue
		}
		if *media.RecordLeft > gapAt {
			*media.RecordLeft += 2
		}
		if *media.RecordRight >= gapAt {
			*media.RecordRight += 2
		}
	}

	left := gapAt
	right := gapAt + 1
	depth := *parent.RecordDepth + 1
	child.RecordLeft = &left
	child.RecordRight = &right
	child.RecordDepth = &depth
	child.RecordOrdering = &ordering
	child.ParentID = &parent.ID
	child.UpdatedAt = at

	childCopy := *child
	return &childCopy, nil
}

func (r *Repository) ListDescendants(ctx context.Context, id string) ([]*simplemedia.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, exists := r.media[id]
	if !exists {
		return nil, simplemedia.ErrMediaNotFound
	}

	// A node without nested-set coordinates is served by a recursive
	// adjacency walk instead.
	if !node.Positioned() {
		return r.walkDescendants(id, map[string]bool{}), nil
	}

	result := []*simplemedia.Media{}
	for _, media := range r.media {
		if !media.Positioned() {
			continue
		}
		if *media.RecordLeft > *node.RecordLeft && *media.RecordRight < *node.RecordRight {
			mediaCopy := *media
			result = append(result, &mediaCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return *result[i].RecordLeft < *result[j].RecordLeft
	})

	return result, nil
}

func (r *Repository) ListAncestors(ctx context.Context, id string) ([]*simplemedia.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, exists := r.media[id]
	if !exists {
		return nil, simplemedia.ErrMediaNotFound
	}

	if !node.Positioned() {
		return r.walkAncestors(node), nil
	}

	result := []*simplemedia.Media{}
	for _, media := range r.media {
		if !media.Positioned() {
			continue
		}
		if *media.RecordLeft < *node.RecordLeft && *media.RecordRight > *node.RecordRight {
			mediaCopy := *media
			result = append(result, &mediaCopy)
		}
	}

	// Root first.
	sort.Slice(result, func(i, j int) bool {
		return *result[i].RecordLeft < *result[j].RecordLeft
	})

	return result, nil
}

// onAncestorChain reports whether id appears on node's ParentID chain.
// Caller must hold at least the read lock.
func (r *Repository) onAncestorChain(node *simplemedia.Media, id string) bool {
	seen := map[string]bool{node.ID: true}
	current := node
	for current.ParentID != nil {
		if *current.ParentID == id {
			return true
		}
		parent, exists := r.media[*current.ParentID]
		if !exists || seen[parent.ID] {
			return false
		}
		seen[parent.ID] = true
		current = parent
	}
	return false
}

// walkDescendants is the adjacency-list fallback: a preorder walk of the
// ParentID references. The seen set terminates the walk if the stored
// ParentID references ever form a loop. Caller must hold at least the
// read lock.
func (r *Repository) walkDescendants(id string, seen map[string]bool) []*simplemedia.Media {
	seen[id] = true

	children := []*simplemedia.Media{}
	for _, media := range r.media {
		if media.ParentID != nil && *media.ParentID == id && !seen[media.ID] {
			children = append(children, media)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		return children[i].ID < children[j].ID
	})

	result := []*simplemedia.Media{}
	for _, child := range children {
		childCopy := *child
		result = append(result, &childCopy)
		result = append(result, r.walkDescendants(child.ID, seen)...)
	}
	return result
}

// walkAncestors follows ParentID references up to the root and returns the
// chain root-first, stopping if the references form a loop. Caller must hold
// at least the read lock.
func (r *Repository) walkAncestors(node *simplemedia.Media) []*simplemedia.Media {
	chain := []*simplemedia.Media{}
	seen := map[string]bool{node.ID: true}
	current := node
	for current.ParentID != nil {
		parent, exists := r.media[*current.ParentID]
		if !exists || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		parentCopy := *parent
		chain = append([]*simplemedia.Media{&parentCopy}, chain...)
		current = parent
	}
	return chain
}
