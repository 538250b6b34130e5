package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-media/pkg/simplemedia"
)

// OwnerHandler serves media lookups from the owning entity's side
type OwnerHandler struct {
	service simplemedia.Service
}

// NewOwnerHandler creates a new owner handler
func NewOwnerHandler(service simplemedia.Service) *OwnerHandler {
	return &OwnerHandler{service: service}
}

// Routes returns the routes for owner-side media queries
func (h *OwnerHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{ownerType}/{ownerID}/media", h.ListMedia)
	return r
}

// ListMedia returns the media attached to one owner. Supported filters:
// ?group= restricts to a single attachment group, ?mime_type= restricts
// by content type, and ?active=true drops soft-deleted records.
func (h *OwnerHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	owner, ok := parseOwner(w, chi.URLParam(r, "ownerType"), chi.URLParam(r, "ownerID"))
	if !ok {
		return
	}

	query := r.URL.Query()

	var media []*simplemedia.Media
	var err error
	if mimeType := query.Get("mime_type"); mimeType != "" {
		media, err = h.service.GetMediaByMimeType(r.Context(), owner, mimeType)
	} else {
		var group *string
		if g := query.Get("group"); g != "" {
			group = &g
		}
		media, err = h.service.GetMediaFor(r.Context(), owner, group)
	}
	if err != nil {
		slog.Error("Failed to list owner media",
			"owner_type", owner.Type, "owner_id", owner.ID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if query.Get("active") == "true" {
		active := media[:0]
		for _, m := range media {
			if !m.Deleted() {
				active = append(active, m)
			}
		}
		media = active
	}

	render.JSON(w, r, toMediaResponses(media))
}
