package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-media/pkg/simplemedia"
)

// DBTX is the subset of pgx behavior the repository needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the repository can run inside a
// caller-managed transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// treeLockID serializes nested-set writers. All AddChild transactions take
// this advisory xact lock first (single-writer-per-tree policy), so interval
// renumbering never interleaves.
const treeLockID = int64(0x6d65646961) // "media"

// Repository implements simplemedia.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) simplemedia.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) simplemedia.Repository {
	return &Repository{db: pool}
}

// mapError translates Postgres error codes into the domain error taxonomy.
func mapError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "tree_interval") ||
				strings.Contains(pgErr.ConstraintName, "tree_position") {
				return simplemedia.ErrTreePositionConflict
			}
			if strings.Contains(pgErr.ConstraintName, "mediables") {
				return simplemedia.ErrAlreadyAttached
			}
			return fmt.Errorf("duplicate entry in %s: %s", operation, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			if strings.Contains(pgErr.ConstraintName, "parent") {
				return simplemedia.ErrParentNotFound
			}
			return simplemedia.ErrMediaNotFound
		case "23514": // check_violation
			if strings.Contains(pgErr.ConstraintName, "size") {
				return simplemedia.ErrNegativeSize
			}
			return simplemedia.ErrTreePositionConflict
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return simplemedia.ErrConcurrentTreeMutation
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const mediaColumns = `id, name, file_name, disk, mime_type, size, hash,
	record_left, record_right, record_depth, record_ordering, parent_id,
	custom_attribute, created_by, updated_by, deleted_by,
	created_at, updated_at, deleted_at`

func scanMedia(row pgx.Row) (*simplemedia.Media, error) {
	var m simplemedia.Media
	var hash, customAttribute *string
	err := row.Scan(
		&m.ID, &m.Name, &m.FileName, &m.Disk, &m.MimeType, &m.Size, &hash,
		&m.RecordLeft, &m.RecordRight, &m.RecordDepth, &m.RecordOrdering, &m.ParentID,
		&customAttribute, &m.CreatedBy, &m.UpdatedBy, &m.DeletedBy,
		&m.CreatedAt, &m.UpdatedAt, &m.DeletedAt)
	if err != nil {
		return nil, err
	}
	if hash != nil {
		m.Hash = *hash
	}
	if customAttribute != nil {
		m.CustomAttribute = *customAttribute
	}
	return &m, nil
}

func collectMedia(rows pgx.Rows) ([]*simplemedia.Media, error) {
	defer rows.Close()

	result := []*simplemedia.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Media operations

func (r *Repository) CreateMedia(ctx context.Context, media *simplemedia.Media) error {
	if media.Size < 0 {
		return simplemedia.ErrNegativeSize
	}

	query := `
		INSERT INTO media (
			id, name, file_name, disk, mime_type, size, hash,
			record_left, record_right, record_depth, record_ordering, parent_id,
			custom_attribute, created_by, updated_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.Exec(ctx, query,
		media.ID, media.Name, media.FileName, media.Disk, media.MimeType, media.Size,
		nullable(media.Hash), media.RecordLeft, media.RecordRight, media.RecordDepth,
		media.RecordOrdering, media.ParentID, nullable(media.CustomAttribute),
		media.CreatedBy, media.UpdatedBy, media.CreatedAt, media.UpdatedAt)

	if err != nil {
		return mapError("create media", err)
	}

	return nil
}

func (r *Repository) GetMedia(ctx context.Context, id string) (*simplemedia.Media, error) {
	// No deleted_at filter: tombstones stay reachable by id.
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`

	media, err := scanMedia(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplemedia.ErrMediaNotFound
		}
		return nil, mapError("get media", err)
	}

	return media, nil
}

func (r *Repository) UpdateMedia(ctx context.Context, media *simplemedia.Media) error {
	query := `
		UPDATE media SET
			name = $2, file_name = $3, disk = $4, mime_type = $5, size = $6,
			hash = $7, record_left = $8, record_right = $9, record_depth = $10,
			record_ordering = $11, parent_id = $12, custom_attribute = $13,
			updated_by = $14, updated_at = $15
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		media.ID, media.Name, media.FileName, media.Disk, media.MimeType, media.Size,
		nullable(media.Hash), media.RecordLeft, media.RecordRight, media.RecordDepth,
		media.RecordOrdering, media.ParentID, nullable(media.CustomAttribute),
		media.UpdatedBy, media.UpdatedAt)
	if err != nil {
		return mapError("update media", err)
	}
	if tag.RowsAffected() == 0 {
		return simplemedia.ErrMediaNotFound
	}

	return nil
}

func (r *Repository) SoftDeleteMedia(ctx context.Context, id string, deletedBy *uuid.UUID, at time.Time) error {
	query := `UPDATE media SET deleted_at = $2, deleted_by = $3, updated_at = $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, at, deletedBy)
	if err != nil {
		return mapError("soft delete media", err)
	}
	if tag.RowsAffected() == 0 {
		return simplemedia.ErrMediaNotFound
	}

	return nil
}

func (r *Repository) ListChildren(ctx context.Context, parentID string) ([]*simplemedia.Media, error) {
	if _, err := r.GetMedia(ctx, parentID); err != nil {
		return nil, err
	}

	query := `SELECT ` + mediaColumns + ` FROM media
		WHERE parent_id = $1
		ORDER BY record_ordering NULLS LAST, id`

	rows, err := r.db.Query(ctx, query, parentID)
	if err != nil {
		return nil, mapError("list children", err)
	}

	return collectMedia(rows)
}

// Association operations

func (r *Repository) CreateMediable(ctx context.Context, mediable *simplemedia.Mediable) error {
	query := `
		INSERT INTO mediables (media_id, owner_id, owner_type, "group")
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query,
		mediable.MediaID, mediable.OwnerID, string(mediable.OwnerType), mediable.Group)
	if err != nil {
		return mapError("create mediable", err)
	}

	return nil
}

func (r *Repository) DeleteMediable(ctx context.Context, mediaID string, owner simplemedia.OwnerRef, group *string) (bool, error) {
	// ctid-based single-row delete: without a group only the oldest matching
	// association is removed. Mediable rows are never updated, so ctid order
	// is insertion order.
	query := `
		DELETE FROM mediables WHERE ctid = (
			SELECT ctid FROM mediables
			WHERE media_id = $1 AND owner_id = $2 AND owner_type = $3
			  AND ($4::text IS NULL OR "group" = $4)
			ORDER BY ctid
			LIMIT 1
		)`

	tag, err := r.db.Exec(ctx, query, mediaID, owner.ID, string(owner.Type), group)
	if err != nil {
		return false, mapError("delete mediable", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *Repository) ListMediaByOwner(ctx context.Context, owner simplemedia.OwnerRef, group *string) ([]*simplemedia.Media, error) {
	// Soft-deleted media stay visible through their associations.
	query := `
		SELECT DISTINCT ON (m.id) m.id, m.name, m.file_name, m.disk, m.mime_type, m.size, m.hash,
			m.record_left, m.record_right, m.record_depth, m.record_ordering, m.parent_id,
			m.custom_attribute, m.created_by, m.updated_by, m.deleted_by,
			m.created_at, m.updated_at, m.deleted_at
		FROM media m
		JOIN mediables mb ON mb.media_id = m.id
		WHERE mb.owner_id = $1 AND mb.owner_type = $2
		  AND ($3::text IS NULL OR mb."group" = $3)
		ORDER BY m.id`

	rows, err := r.db.Query(ctx, query, owner.ID, string(owner.Type), group)
	if err != nil {
		return nil, mapError("list media by owner", err)
	}

	return collectMedia(rows)
}

func (r *Repository) ListMediaByOwnerAndMimeType(ctx context.Context, owner simplemedia.OwnerRef, mimeType string) ([]*simplemedia.Media, error) {
	query := `
		SELECT DISTINCT ON (m.id) m.id, m.name, m.file_name, m.disk, m.mime_type, m.size, m.hash,
			m.record_left, m.record_right, m.record_depth, m.record_ordering, m.parent_id,
			m.custom_attribute, m.created_by, m.updated_by, m.deleted_by,
			m.created_at, m.updated_at, m.deleted_at
		FROM media m
		JOIN mediables mb ON mb.media_id = m.id
		WHERE mb.owner_id = $1 AND mb.owner_type = $2 AND m.mime_type = $3
		ORDER BY m.id`

	rows, err := r.db.Query(ctx, query, owner.ID, string(owner.Type), mimeType)
	if err != nil {
		return nil, mapError("list media by owner and mime type", err)
	}

	return collectMedia(rows)
}

func (r *Repository) ListMediablesByMedia(ctx context.Context, mediaID string) ([]*simplemedia.Mediable, error) {
	if _, err := r.GetMedia(ctx, mediaID); err != nil {
		return nil, err
	}

	query := `
		SELECT media_id, owner_id, owner_type, "group"
		FROM mediables WHERE media_id = $1
		ORDER BY owner_type, owner_id, "group"`

	rows, err := r.db.Query(ctx, query, mediaID)
	if err != nil {
		return nil, mapError("list mediables", err)
	}
	defer rows.Close()

	result := []*simplemedia.Mediable{}
	for rows.Next() {
		var mb simplemedia.Mediable
		var ownerType string
		if err := rows.Scan(&mb.MediaID, &mb.OwnerID, &ownerType, &mb.Group); err != nil {
			return nil, mapError("scan mediable", err)
		}
		mb.OwnerType = simplemedia.OwnerType(ownerType)
		result = append(result, &mb)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("iterate mediable rows", err)
	}

	return result, nil
}

// Tree operations

func (r *Repository) InsertChild(ctx context.Context, parentID, childID string, at time.Time) (*simplemedia.Media, error) {
	if parentID == childID {
		return nil, fmt.Errorf("media %s: %w", childID, simplemedia.ErrHierarchyCycle)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, mapError("insert child", err)
	}
	defer tx.Rollback(ctx)

	// Serialize all tree writers for the duration of the transaction. The
	// renumbering below assumes no concurrent interval mutation.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, treeLockID); err != nil {
		return nil, mapError("insert child", err)
	}

	var parentRight int64
	var parentLeft, parentDepth *int64
	var pr *int64
	err = tx.QueryRow(ctx,
		`SELECT record_left, record_right, record_depth FROM media WHERE id = $1 FOR UPDATE`,
		parentID).Scan(&parentLeft, &pr, &parentDepth)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplemedia.ErrParentNotFound
		}
		return nil, mapError("insert child", err)
	}

	var childLeft, childRight *int64
	err = tx.QueryRow(ctx,
		`SELECT record_left, record_right FROM media WHERE id = $1 FOR UPDATE`,
		childID).Scan(&childLeft, &childRight)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplemedia.ErrMediaNotFound
		}
		return nil, mapError("insert child", err)
	}
	if childLeft != nil && childRight != nil {
		return nil, simplemedia.ErrAlreadyPositioned
	}

	// Linking would close a parent_id loop if the child already sits on the
	// parent's ancestor chain. The path array terminates the walk even if the
	// stored references are already cyclic.
	var onChain bool
	err = tx.QueryRow(ctx, `
		WITH RECURSIVE chain AS (
			SELECT m.id, m.parent_id, ARRAY[m.id] AS path FROM media m WHERE m.id = $1
			UNION ALL
			SELECT m.id, m.parent_id, c.path || m.id FROM media m
			JOIN chain c ON c.parent_id = m.id
			WHERE m.id <> ALL(c.path)
		)
		SELECT EXISTS (SELECT 1 FROM chain WHERE id = $2 AND id <> $1)`,
		parentID, childID).Scan(&onChain)
	if err != nil {
		return nil, mapError("insert child", err)
	}
	if onChain {
		return nil, fmt.Errorf("media %s is an ancestor of %s: %w", childID, parentID, simplemedia.ErrHierarchyCycle)
	}

	// Root an unpositioned parent in a fresh interval above every existing
	// tree before opening the gap.
	if parentLeft == nil || pr == nil {
		var maxRight int64
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(record_right), 0) FROM media`).Scan(&maxRight); err != nil {
			return nil, mapError("insert child", err)
		}
		left, right, depth := maxRight+1, maxRight+2, int64(0)
		if _, err := tx.Exec(ctx,
			`UPDATE media SET record_left = $2, record_right = $3, record_depth = $4 WHERE id = $1`,
			parentID, left, right, depth); err != nil {
			return nil, mapError("insert child", err)
		}
		parentRight = right
		parentDepth = &depth
	} else {
		parentRight = *pr
	}

	var ordering int64
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) + 1 FROM media WHERE parent_id = $1 AND id <> $2`,
		parentID, childID).Scan(&ordering); err != nil {
		return nil, mapError("insert child", err)
	}

	// Open a two-slot gap at the parent's right bound.
	if _, err := tx.Exec(ctx,
		`UPDATE media SET record_right = record_right + 2 WHERE record_right >= $1`,
		parentRight); err != nil {
		return nil, mapError("insert child", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE media SET record_left = record_left + 2 WHERE record_left > $1`,
		parentRight); err != nil {
		return nil, mapError("insert child", err)
	}

	row := tx.QueryRow(ctx, `
		UPDATE media SET
			record_left = $2, record_right = $3, record_depth = $4,
			record_ordering = $5, parent_id = $6, updated_at = $7
		WHERE id = $1
		RETURNING `+mediaColumns,
		childID, parentRight, parentRight+1, *parentDepth+1, ordering, parentID, at)

	child, err := scanMedia(row)
	if err != nil {
		return nil, mapError("insert child", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapError("insert child", err)
	}

	return child, nil
}

func (r *Repository) ListDescendants(ctx context.Context, id string) ([]*simplemedia.Media, error) {
	node, err := r.GetMedia(ctx, id)
	if err != nil {
		return nil, err
	}

	if !node.Positioned() {
		return r.walkDescendants(ctx, id)
	}

	query := `SELECT ` + mediaColumns + ` FROM media
		WHERE record_left > $1 AND record_right < $2
		ORDER BY record_left`

	rows, err := r.db.Query(ctx, query, *node.RecordLeft, *node.RecordRight)
	if err != nil {
		return nil, mapError("list descendants", err)
	}

	return collectMedia(rows)
}

func (r *Repository) ListAncestors(ctx context.Context, id string) ([]*simplemedia.Media, error) {
	node, err := r.GetMedia(ctx, id)
	if err != nil {
		return nil, err
	}

	if !node.Positioned() {
		return r.walkAncestors(ctx, node)
	}

	query := `SELECT ` + mediaColumns + ` FROM media
		WHERE record_left < $1 AND record_right > $2
		ORDER BY record_left`

	rows, err := r.db.Query(ctx, query, *node.RecordLeft, *node.RecordRight)
	if err != nil {
		return nil, mapError("list ancestors", err)
	}

	return collectMedia(rows)
}

// walkDescendants is the adjacency-list fallback for nodes without
// nested-set coordinates: a recursive CTE over parent_id, preorder by path.
// The path array terminates the recursion on cyclic parent_id data.
func (r *Repository) walkDescendants(ctx context.Context, id string) ([]*simplemedia.Media, error) {
	query := `
		WITH RECURSIVE subtree AS (
			SELECT m.*, ARRAY[m.id] AS path FROM media m WHERE m.parent_id = $1
			UNION ALL
			SELECT m.*, s.path || m.id FROM media m
			JOIN subtree s ON m.parent_id = s.id
			WHERE m.id <> ALL(s.path) AND m.id <> $1
		)
		SELECT ` + mediaColumns + ` FROM subtree ORDER BY path`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, mapError("walk descendants", err)
	}

	return collectMedia(rows)
}

func (r *Repository) walkAncestors(ctx context.Context, node *simplemedia.Media) ([]*simplemedia.Media, error) {
	if node.ParentID == nil {
		return []*simplemedia.Media{}, nil
	}

	query := `
		WITH RECURSIVE chain AS (
			SELECT m.*, ARRAY[m.id] AS path FROM media m WHERE m.id = $1
			UNION ALL
			SELECT m.*, c.path || m.id FROM media m
			JOIN chain c ON c.parent_id = m.id
			WHERE m.id <> ALL(c.path)
		)
		SELECT ` + mediaColumns + ` FROM chain ORDER BY array_length(path, 1) DESC`

	rows, err := r.db.Query(ctx, query, *node.ParentID)
	if err != nil {
		return nil, mapError("walk ancestors", err)
	}

	return collectMedia(rows)
}
