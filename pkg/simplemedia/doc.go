// Package simplemedia provides a reusable library for managing media
// records and their polymorphic attachments to arbitrary owning entities,
// with pluggable repository and blob storage backends.
//
// It exposes a single Service interface that covers media creation,
// attach/detach of media to owners under named groups, inverse relationship
// inspection, soft deletion, and parent/child hierarchy management.
// Implementations of repositories (memory, Postgres) and blob stores
// (memory, filesystem, S3) are provided under subpackages.
//
// # Hierarchy
//
// Media rows carry two tree encodings. The adjacency list (ParentID) is
// always maintained and is the source of truth for direct parent/child
// derivation such as thumbnails. The nested-set coordinates
// (RecordLeft/RecordRight/RecordDepth) are assigned by Service.AddChild,
// which performs the full interval-shifting insertion atomically; they make
// GetDescendants and GetAncestors single range queries. Nodes never passed
// through AddChild keep nil coordinates and are served by recursive
// adjacency walks instead.
//
// # Soft delete
//
// SoftDelete stamps a tombstone and leaves every association in place;
// callers that only want live media filter on Media.Deleted. Blob cleanup is
// the caller's responsibility and is deliberately best-effort.
package simplemedia
