package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-media/pkg/simplemedia"
	"github.com/tendant/simple-media/pkg/utils"
)

// MediaHandler handles HTTP requests for media records and their attachments
type MediaHandler struct {
	service     simplemedia.Service
	defaultDisk string
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(service simplemedia.Service, defaultDisk string) *MediaHandler {
	return &MediaHandler{
		service:     service,
		defaultDisk: defaultDisk,
	}
}

// Routes returns the routes for media
func (h *MediaHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateMedia)
	r.Post("/upload", h.UploadMedia)
	r.Get("/{mediaID}", h.GetMedia)
	r.Delete("/{mediaID}", h.DeleteMedia)

	r.Post("/{mediaID}/attach", h.Attach)
	r.Post("/{mediaID}/detach", h.Detach)
	r.Get("/{mediaID}/relationships", h.GetRelationships)

	r.Get("/{mediaID}/children", h.GetChildren)
	r.Get("/{mediaID}/descendants", h.GetDescendants)
	r.Get("/{mediaID}/ancestors", h.GetAncestors)
	r.Post("/{mediaID}/children/{childID}", h.AddChild)

	return r
}

// CreateMediaRequest is the request body for creating a media record
type CreateMediaRequest struct {
	Name            string  `json:"name"`
	FileName        string  `json:"file_name"`
	Disk            string  `json:"disk"`
	MimeType        string  `json:"mime_type"`
	Size            int64   `json:"size"`
	Hash            string  `json:"hash,omitempty"`
	CustomAttribute string  `json:"custom_attribute,omitempty"`
	ParentID        *string `json:"parent_id,omitempty"`
}

// MediaResponse is the response body for a media record
type MediaResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	FileName        string     `json:"file_name"`
	Disk            string     `json:"disk"`
	MimeType        string     `json:"mime_type"`
	Size            int64      `json:"size"`
	Hash            string     `json:"hash,omitempty"`
	CustomAttribute string     `json:"custom_attribute,omitempty"`
	ParentID        *string    `json:"parent_id,omitempty"`
	RecordDepth     *int64     `json:"record_depth,omitempty"`
	RecordOrdering  *int64     `json:"record_ordering,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	DownloadURL     string     `json:"download_url,omitempty"`
}

func toMediaResponse(m *simplemedia.Media) MediaResponse {
	return MediaResponse{
		ID:              m.ID,
		Name:            m.Name,
		FileName:        m.FileName,
		Disk:            m.Disk,
		MimeType:        m.MimeType,
		Size:            m.Size,
		Hash:            m.Hash,
		CustomAttribute: m.CustomAttribute,
		ParentID:        m.ParentID,
		RecordDepth:     m.RecordDepth,
		RecordOrdering:  m.RecordOrdering,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		DeletedAt:       m.DeletedAt,
	}
}

func toMediaResponses(media []*simplemedia.Media) []MediaResponse {
	result := make([]MediaResponse, 0, len(media))
	for _, m := range media {
		result = append(result, toMediaResponse(m))
	}
	return result
}

// MediableResponse is the response body for one media association
type MediableResponse struct {
	MediaID   string `json:"media_id"`
	OwnerID   string `json:"owner_id"`
	OwnerType string `json:"owner_type"`
	Group     string `json:"group"`
}

func toMediableResponse(mb *simplemedia.Mediable) MediableResponse {
	return MediableResponse{
		MediaID:   mb.MediaID,
		OwnerID:   mb.OwnerID.String(),
		OwnerType: string(mb.OwnerType),
		Group:     mb.Group,
	}
}

// CreateMedia records metadata for a blob the caller has already stored
func (h *MediaHandler) CreateMedia(w http.ResponseWriter, r *http.Request) {
	var req CreateMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Disk == "" {
		req.Disk = h.defaultDisk
	}

	media, err := h.service.CreateMedia(r.Context(), simplemedia.CreateMediaRequest{
		Name:            req.Name,
		FileName:        req.FileName,
		Disk:            req.Disk,
		MimeType:        req.MimeType,
		Size:            req.Size,
		CreatedBy:       Principal(r.Context()),
		Hash:            req.Hash,
		CustomAttribute: req.CustomAttribute,
		ParentID:        req.ParentID,
	})
	if err != nil {
		if errors.Is(err, simplemedia.ErrNegativeSize) || errors.Is(err, simplemedia.ErrParentNotFound) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to create media", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toMediaResponse(media))
}

// UploadMedia accepts a multipart upload: the blob goes to the storage
// backend first, then the metadata record is created from the stored bytes.
func (h *MediaHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	disk := r.FormValue("disk")
	if disk == "" {
		disk = h.defaultDisk
	}
	backend, err := h.service.GetBackend(disk)
	if err != nil {
		http.Error(w, "unknown disk: "+disk, http.StatusBadRequest)
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = utils.SanitizeFilename(header.Filename)
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	objectKey := simplemedia.NewMediaID() + filepath.Ext(header.Filename)

	hasher := sha256.New()
	err = backend.UploadWithParams(r.Context(), io.TeeReader(file, hasher), simplemedia.UploadParams{
		ObjectKey: objectKey,
		MimeType:  mimeType,
	})
	if err != nil {
		slog.Error("Failed to store blob", "disk", disk, "object_key", objectKey, "error", err)
		http.Error(w, "upload failed", http.StatusBadGateway)
		return
	}

	media, err := h.service.CreateMedia(r.Context(), simplemedia.CreateMediaRequest{
		Name:            name,
		FileName:        objectKey,
		Disk:            disk,
		MimeType:        mimeType,
		Size:            header.Size,
		CreatedBy:       Principal(r.Context()),
		Hash:            hex.EncodeToString(hasher.Sum(nil)),
		CustomAttribute: r.FormValue("custom_attribute"),
	})
	if err != nil {
		// The metadata write failed; don't leave the blob orphaned.
		if delErr := backend.Delete(r.Context(), objectKey); delErr != nil {
			slog.Warn("Failed to clean up blob after create failure",
				"disk", disk, "object_key", objectKey, "error", delErr)
		}
		slog.Error("Failed to create media", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toMediaResponse(media))
}

// GetMedia returns one media record, with a download URL when the disk
// supports them. Soft-deleted media stay reachable here.
func (h *MediaHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")

	media, err := h.service.GetMedia(r.Context(), mediaID)
	if err != nil {
		if errors.Is(err, simplemedia.ErrMediaNotFound) {
			http.Error(w, "Media not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get media", "media_id", mediaID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := toMediaResponse(media)
	if backend, err := h.service.GetBackend(media.Disk); err == nil {
		if url, err := backend.GetDownloadURL(r.Context(), media.FileName, media.Name); err == nil {
			resp.DownloadURL = url
		}
	}

	render.JSON(w, r, resp)
}

// DeleteMedia soft-deletes a media record. The blob is deleted first as a
// best-effort step; blob failures are logged and never block the tombstone.
func (h *MediaHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")

	media, err := h.service.GetMedia(r.Context(), mediaID)
	if err != nil {
		if errors.Is(err, simplemedia.ErrMediaNotFound) {
			http.Error(w, "Media not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get media", "media_id", mediaID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if backend, err := h.service.GetBackend(media.Disk); err == nil {
		if err := backend.Delete(r.Context(), media.FileName); err != nil {
			slog.Warn("Failed to delete blob", "disk", media.Disk, "file_name", media.FileName, "error", err)
		}
	}

	deleted, err := h.service.SoftDelete(r.Context(), mediaID, Principal(r.Context()))
	if err != nil {
		slog.Error("Failed to soft-delete media", "media_id", mediaID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "Media not found", http.StatusNotFound)
		return
	}

	render.JSON(w, r, map[string]string{"status": "deleted", "media_id": mediaID})
}

// AttachRequest is the request body for attaching media to an owner
type AttachRequest struct {
	OwnerType string `json:"owner_type"`
	OwnerID   string `json:"owner_id"`
	Group     string `json:"group,omitempty"`
}

// Attach links a media record to an owning entity under a group
func (h *MediaHandler) Attach(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")

	var req AttachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	owner, ok := parseOwner(w, req.OwnerType, req.OwnerID)
	if !ok {
		return
	}

	mediable, err := h.service.Attach(r.Context(), simplemedia.AttachRequest{
		MediaID: mediaID,
		Owner:   owner,
		Group:   req.Group,
	})
	if err != nil {
		switch {
		case errors.Is(err, simplemedia.ErrMediaNotFound):
			http.Error(w, "Media not found", http.StatusNotFound)
		case errors.Is(err, simplemedia.ErrAlreadyAttached):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, simplemedia.ErrInvalidOwnerType):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			slog.Error("Failed to attach media", "media_id", mediaID, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toMediableResponse(mediable))
}

// DetachRequest is the request body for detaching media from an owner
type DetachRequest struct {
	OwnerType string  `json:"owner_type"`
	OwnerID   string  `json:"owner_id"`
	Group     *string `json:"group,omitempty"`
}

// Detach removes an association. Absence is reported, not an error.
func (h *MediaHandler) Detach(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")

	var req DetachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	owner, ok := parseOwner(w, req.OwnerType, req.OwnerID)
	if !ok {
		return
	}

	detached, err := h.service.Detach(r.Context(), simplemedia.DetachRequest{
		MediaID: mediaID,
		Owner:   owner,
		Group:   req.Group,
	})
	if err != nil {
		if errors.Is(err, simplemedia.ErrInvalidOwnerType) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to detach media", "media_id", mediaID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, map[string]bool{"detached": detached})
}

// GetRelationships lists every association of a media record. With
// ?grouped=true the rows are returned keyed by owner type.
func (h *MediaHandler) GetRelationships(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")

	if r.URL.Query().Get("grouped") == "true" {
		grouped, err := h.service.PolymorphicRelationships(r.Context(), mediaID)
		if err != nil {
			h.relationshipError(w, mediaID, err)
			return
		}

		resp := make(map[string][]MediableResponse, len(grouped))
		for ownerType, mediables := range grouped {
			rows := make([]MediableResponse, 0, len(mediables))
			for _, mb := range mediables {
				rows = append(rows, toMediableResponse(mb))
			}
			resp[string(ownerType)] = rows
		}
		render.JSON(w, r, resp)
		return
	}

	mediables, err := h.service.GetRelationshipsFor(r.Context(), mediaID)
	if err != nil {
		h.relationshipError(w, mediaID, err)
		return
	}

	resp := make([]MediableResponse, 0, len(mediables))
	for _, mb := range mediables {
		resp = append(resp, toMediableResponse(mb))
	}
	render.JSON(w, r, resp)
}

func (h *MediaHandler) relationshipError(w http.ResponseWriter, mediaID string, err error) {
	if errors.Is(err, simplemedia.ErrMediaNotFound) {
		http.Error(w, "Media not found", http.StatusNotFound)
		return
	}
	slog.Error("Failed to list relationships", "media_id", mediaID, "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// AddChild places childID under mediaID in the hierarchy
func (h *MediaHandler) AddChild(w http.ResponseWriter, r *http.Request) {
	parentID := chi.URLParam(r, "mediaID")
	childID := chi.URLParam(r, "childID")

	child, err := h.service.AddChild(r.Context(), parentID, childID)
	if err != nil {
		switch {
		case errors.Is(err, simplemedia.ErrParentNotFound), errors.Is(err, simplemedia.ErrMediaNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, simplemedia.ErrAlreadyPositioned), errors.Is(err, simplemedia.ErrHierarchyCycle):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, simplemedia.ErrConcurrentTreeMutation):
			// Renumbering raced another writer; the whole operation is retryable.
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			slog.Error("Failed to add child", "parent_id", parentID, "child_id", childID, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toMediaResponse(child))
}

// GetChildren lists the direct children of a media record
func (h *MediaHandler) GetChildren(w http.ResponseWriter, r *http.Request) {
	h.listTree(w, r, h.service.GetChildren)
}

// GetDescendants lists the full subtree below a media record
func (h *MediaHandler) GetDescendants(w http.ResponseWriter, r *http.Request) {
	h.listTree(w, r, h.service.GetDescendants)
}

// GetAncestors lists the chain above a media record, root first
func (h *MediaHandler) GetAncestors(w http.ResponseWriter, r *http.Request) {
	h.listTree(w, r, h.service.GetAncestors)
}

func (h *MediaHandler) listTree(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, id string) ([]*simplemedia.Media, error)) {
	mediaID := chi.URLParam(r, "mediaID")

	media, err := list(r.Context(), mediaID)
	if err != nil {
		if errors.Is(err, simplemedia.ErrMediaNotFound) {
			http.Error(w, "Media not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to list hierarchy", "media_id", mediaID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, toMediaResponses(media))
}

// parseOwner validates the raw (ownerType, ownerID) pair from a request
func parseOwner(w http.ResponseWriter, ownerType, ownerID string) (simplemedia.OwnerRef, bool) {
	typ := simplemedia.OwnerType(ownerType)
	if !typ.Valid() {
		http.Error(w, "Invalid owner type", http.StatusBadRequest)
		return simplemedia.OwnerRef{}, false
	}

	id, err := uuid.Parse(ownerID)
	if err != nil {
		slog.Error("Invalid owner ID", "owner_id", ownerID, "error", err)
		http.Error(w, "Invalid owner ID", http.StatusBadRequest)
		return simplemedia.OwnerRef{}, false
	}

	return simplemedia.OwnerRef{Type: typ, ID: id}, true
}
