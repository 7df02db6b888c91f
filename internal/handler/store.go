package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jardens/pricebasket/internal/model"
	"github.com/jardens/pricebasket/internal/owner"
	"github.com/jardens/pricebasket/internal/store"
	ws "github.com/jardens/pricebasket/internal/websocket"
)

type StoreHandler struct {
	stores *store.StoreStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewStoreHandler(ss *store.StoreStore, hub *ws.Hub, logger *slog.Logger) *StoreHandler {
	return &StoreHandler{stores: ss, hub: hub, logger: logger}
}

type storeRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *StoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	st, err := model.NewStore(owner.ID(r.Context()), req.Name, req.Color)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.stores.Create(st); err != nil {
		h.logger.Error("create store", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create store")
		return
	}

	h.hub.Broadcast(ws.NewEvent("store", "created", st.ID, nil))
	writeJSON(w, http.StatusCreated, st)
}

func (h *StoreHandler) List(w http.ResponseWriter, r *http.Request) {
	stores, err := h.stores.ListByOwner(owner.ID(r.Context()))
	if err != nil {
		h.logger.Error("list stores", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list stores")
		return
	}
	if stores == nil {
		stores = []model.Store{}
	}
	writeJSON(w, http.StatusOK, stores)
}

// getOwned loads a store and hides it behind 404 when it belongs to a
// different owner.
func (h *StoreHandler) getOwned(w http.ResponseWriter, r *http.Request) *model.Store {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}
	st, err := h.stores.GetByID(id)
	if err != nil {
		h.logger.Error("get store", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get store")
		return nil
	}
	if st == nil || st.OwnerID != owner.ID(r.Context()) {
		writeError(w, http.StatusNotFound, "store not found")
		return nil
	}
	return st
}

func (h *StoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.getOwned(w, r)
	if existing == nil {
		return
	}

	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	st, err := h.stores.Update(existing.ID, req.Name, req.Color)
	if err == model.ErrEmptyName {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("update store", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update store")
		return
	}

	h.hub.Broadcast(ws.NewEvent("store", "updated", st.ID, nil))
	writeJSON(w, http.StatusOK, st)
}

// Delete removes a store. Items keep any price entries that reference it;
// those entries simply resolve to the unknown-store placeholder from now on.
func (h *StoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing := h.getOwned(w, r)
	if existing == nil {
		return
	}

	if err := h.stores.Delete(existing.ID); err != nil {
		h.logger.Error("delete store", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete store")
		return
	}

	h.hub.Broadcast(ws.NewEvent("store", "deleted", existing.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}
