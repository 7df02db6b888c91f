package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jardens/pricebasket/internal/export"
	"github.com/jardens/pricebasket/internal/owner"
	ws "github.com/jardens/pricebasket/internal/websocket"
)

type ExportHandler struct {
	codec  *export.Codec
	hub    *ws.Hub
	logger *slog.Logger
}

func NewExportHandler(codec *export.Codec, hub *ws.Hub, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{codec: codec, hub: hub, logger: logger}
}

func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.codec.Snapshot(owner.ID(r.Context()))
	if err != nil {
		h.logger.Error("export", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export data")
		return
	}

	filename := fmt.Sprintf("pricebasket-export-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	writeJSON(w, http.StatusOK, doc)
}

// Import reads an interchange document and inserts its contents as new
// records. A document that fails to parse or validate is rejected before
// any write, and the whole batch commits or fails together.
func (h *ExportHandler) Import(w http.ResponseWriter, r *http.Request) {
	doc, err := export.Decode(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, stores, err := h.codec.Restore(owner.ID(r.Context()), doc)
	if err != nil {
		h.logger.Error("import", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to import data")
		return
	}

	h.hub.Broadcast(ws.NewEvent("data", "imported", "", map[string]any{
		"items":  items,
		"stores": stores,
	}))
	writeJSON(w, http.StatusOK, map[string]int{"items": items, "stores": stores})
}
