package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jardens/pricebasket/internal/blob"
	"github.com/jardens/pricebasket/internal/owner"
	"github.com/jardens/pricebasket/internal/store"
	ws "github.com/jardens/pricebasket/internal/websocket"
)

// maxImageSize caps uploads at 10 MiB.
const maxImageSize = 10 << 20

type ImageHandler struct {
	items  *store.ItemStore
	blobs  *blob.Manager
	hub    *ws.Hub
	logger *slog.Logger
}

func NewImageHandler(is *store.ItemStore, blobs *blob.Manager, hub *ws.Hub, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{items: is, blobs: blobs, hub: hub, logger: logger}
}

// Upload attaches an image to an item. The previous blob, if any, is
// deleted best-effort after the record points at the new one.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.blobs.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "image storage not configured")
		return
	}

	id := r.PathValue("id")
	existing, err := h.items.GetByID(id)
	if err != nil {
		h.logger.Error("get item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil || existing.OwnerID != owner.ID(r.Context()) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	key, err := h.blobs.Upload(r.Context(), existing.OwnerID, header.Filename, file)
	if errors.Is(err, blob.ErrDisabled) {
		writeError(w, http.StatusServiceUnavailable, "image storage not configured")
		return
	}
	if err != nil {
		h.logger.Error("upload image", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to upload image")
		return
	}

	item, err := h.items.SetImageRef(existing.ID, key)
	if err != nil || item == nil {
		h.logger.Error("set image ref", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save image reference")
		return
	}
	if existing.ImageRef != "" && existing.ImageRef != key {
		h.blobs.Delete(r.Context(), existing.ImageRef)
	}

	h.hub.Broadcast(ws.NewEvent("item", "updated", item.ID, nil))
	writeJSON(w, http.StatusOK, item)
}

// Serve streams a stored image back to the client.
func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "invalid key")
		return
	}

	body, err := h.blobs.Fetch(r.Context(), "images/"+key)
	if errors.Is(err, blob.ErrDisabled) {
		writeError(w, http.StatusServiceUnavailable, "image storage not configured")
		return
	}
	if err != nil {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	defer body.Close()

	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("serve image", "key", key, "error", err)
	}
}
