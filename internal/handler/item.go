package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jardens/pricebasket/internal/blob"
	"github.com/jardens/pricebasket/internal/model"
	"github.com/jardens/pricebasket/internal/owner"
	"github.com/jardens/pricebasket/internal/stats"
	"github.com/jardens/pricebasket/internal/store"
	ws "github.com/jardens/pricebasket/internal/websocket"
)

type ItemHandler struct {
	items  *store.ItemStore
	stores *store.StoreStore
	blobs  *blob.Manager
	hub    *ws.Hub
	logger *slog.Logger
}

func NewItemHandler(is *store.ItemStore, ss *store.StoreStore, blobs *blob.Manager, hub *ws.Hub, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: is, stores: ss, blobs: blobs, hub: hub, logger: logger}
}

type itemRequest struct {
	Name     string                     `json:"name"`
	Category string                     `json:"category"`
	Notes    string                     `json:"notes"`
	ImageURL string                     `json:"imageUrl"`
	Prices   map[string]decimal.Decimal `json:"prices"`
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	item, err := model.NewItem(owner.ID(r.Context()), req.Name, req.Category, req.Notes, req.Prices)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item.ImageRef = req.ImageURL

	if err := h.items.Create(item); err != nil {
		h.logger.Error("create item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.hub.Broadcast(ws.NewEvent("item", "created", item.ID, nil))
	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.ListByOwner(owner.ID(r.Context()))
	if err != nil {
		h.logger.Error("list items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) getOwned(w http.ResponseWriter, r *http.Request) *model.Item {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}
	item, err := h.items.GetByID(id)
	if err != nil {
		h.logger.Error("get item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return nil
	}
	if item == nil || item.OwnerID != owner.ID(r.Context()) {
		writeError(w, http.StatusNotFound, "item not found")
		return nil
	}
	return item
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	item := h.getOwned(w, r)
	if item == nil {
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Update replaces the item's editable fields. Price changes against the
// current map append history entries inside the store layer; an identical
// map appends nothing but still advances updatedAt. The prices field is
// replace-semantics: clients must send the full map on every edit, and a
// body that omits it clears every current price (history survives).
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.getOwned(w, r)
	if existing == nil {
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	imageRef := req.ImageURL
	if imageRef == "" {
		imageRef = existing.ImageRef
	}

	item, err := h.items.Update(existing.ID, req.Name, req.Category, req.Notes, imageRef, req.Prices)
	if err == model.ErrEmptyName || err == model.ErrEmptyCategory {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("update item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.hub.Broadcast(ws.NewEvent("item", "updated", item.ID, nil))
	writeJSON(w, http.StatusOK, item)
}

// Delete removes the item record first, then cleans up its image blob
// best-effort. The two are not atomic: a failed blob delete leaves an
// orphan, which is logged inside the blob manager and otherwise ignored.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing := h.getOwned(w, r)
	if existing == nil {
		return
	}

	if err := h.items.Delete(existing.ID); err != nil {
		h.logger.Error("delete item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	if existing.ImageRef != "" {
		h.blobs.Delete(r.Context(), existing.ImageRef)
	}

	h.hub.Broadcast(ws.NewEvent("item", "deleted", existing.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

type statsResponse struct {
	HasHistory bool             `json:"hasHistory"`
	Trend      stats.Trend      `json:"trend"`
	Summary    *stats.Summary   `json:"summary,omitempty"`
	Lowest     *decimal.Decimal `json:"lowestCurrent,omitempty"`
	Highest    *decimal.Decimal `json:"highestCurrent,omitempty"`
}

func (h *ItemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	item := h.getOwned(w, r)
	if item == nil {
		return
	}

	resp := statsResponse{Trend: stats.TrendOf(item.PriceHistory)}
	summary, err := stats.Summarize(item.PriceHistory)
	switch {
	case err == nil:
		resp.HasHistory = true
		resp.Summary = &summary
	case errors.Is(err, stats.ErrNoHistory):
		// No observations yet; hasHistory stays false rather than
		// reporting zeros.
	default:
		h.logger.Error("summarize", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	if low, high, ok := stats.PriceRange(item.Prices); ok {
		resp.Lowest = &low
		resp.Highest = &high
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ItemHandler) Chart(w http.ResponseWriter, r *http.Request) {
	item := h.getOwned(w, r)
	if item == nil {
		return
	}

	stores, err := h.stores.ListByOwner(owner.ID(r.Context()))
	if err != nil {
		h.logger.Error("list stores", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list stores")
		return
	}

	points := stats.ChartSeries(item.PriceHistory, stores)
	if points == nil {
		points = []stats.SeriesPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

type bulkRequest struct {
	IDs      []string                   `json:"ids"`
	Category *string                    `json:"category"`
	Prices   map[string]decimal.Decimal `json:"prices"`
}

// Bulk applies one update kind across the selected items in a single
// all-or-nothing batch. Bulk price updates overwrite the prices field and
// never append history; that asymmetry with single-item edits is the
// documented behavior.
func (h *ItemHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "no items selected")
		return
	}

	upd := store.BulkUpdate{Category: req.Category, Prices: req.Prices}
	err := h.items.BulkApply(owner.ID(r.Context()), req.IDs, upd)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNoUpdate), errors.Is(err, model.ErrEmptyCategory):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	default:
		h.logger.Error("bulk update", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to apply bulk update")
		return
	}

	h.hub.Broadcast(ws.NewEvent("items", "bulk_updated", "", map[string]any{"ids": req.IDs}))
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(req.IDs)})
}
