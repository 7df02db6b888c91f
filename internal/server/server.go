package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/jardens/pricebasket/internal/blob"
	"github.com/jardens/pricebasket/internal/export"
	"github.com/jardens/pricebasket/internal/handler"
	"github.com/jardens/pricebasket/internal/middleware"
	"github.com/jardens/pricebasket/internal/store"
	ws "github.com/jardens/pricebasket/internal/websocket"
)

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	storeH       *handler.StoreHandler
	itemH        *handler.ItemHandler
	exportH      *handler.ExportHandler
	imageH       *handler.ImageHandler
	defaultOwner string
	logger       *slog.Logger
}

func New(db *sql.DB, blobCfg blob.Config, defaultOwner string, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	itemStore := store.NewItemStore(db)
	storeStore := store.NewStoreStore(db)
	blobs := blob.NewManager(blobCfg, logger.With("component", "blob"))
	codec := export.NewCodec(db, itemStore, storeStore)

	return &Server{
		db:           db,
		hub:          hub,
		storeH:       handler.NewStoreHandler(storeStore, hub, logger.With("component", "store")),
		itemH:        handler.NewItemHandler(itemStore, storeStore, blobs, hub, logger.With("component", "item")),
		exportH:      handler.NewExportHandler(codec, hub, logger.With("component", "export")),
		imageH:       handler.NewImageHandler(itemStore, blobs, hub, logger.With("component", "image")),
		defaultOwner: defaultOwner,
		logger:       logger,
	}
}

// Hub returns the realtime hub, exposed for shutdown accounting.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Store API
	mux.HandleFunc("POST /api/stores", s.storeH.Create)
	mux.HandleFunc("GET /api/stores", s.storeH.List)
	mux.HandleFunc("PUT /api/stores/{id}", s.storeH.Update)
	mux.HandleFunc("DELETE /api/stores/{id}", s.storeH.Delete)

	// Item API
	mux.HandleFunc("POST /api/items", s.itemH.Create)
	mux.HandleFunc("GET /api/items", s.itemH.List)
	mux.HandleFunc("GET /api/items/{id}", s.itemH.Get)
	mux.HandleFunc("PUT /api/items/{id}", s.itemH.Update)
	mux.HandleFunc("DELETE /api/items/{id}", s.itemH.Delete)
	mux.HandleFunc("GET /api/items/{id}/stats", s.itemH.Stats)
	mux.HandleFunc("GET /api/items/{id}/chart", s.itemH.Chart)
	mux.HandleFunc("POST /api/items/bulk", s.itemH.Bulk)

	// Import/export
	mux.HandleFunc("GET /api/export", s.exportH.Export)
	mux.HandleFunc("POST /api/import", s.exportH.Import)

	// Images
	mux.HandleFunc("POST /api/items/{id}/image", s.imageH.Upload)
	mux.HandleFunc("GET /images/{key...}", s.imageH.Serve)

	// Realtime sync
	mux.HandleFunc("GET /ws", ws.Handle(s.hub, s.logger.With("component", "websocket")))

	ownerMiddleware := middleware.ResolveOwner(s.defaultOwner)

	outer := http.NewServeMux()
	outer.HandleFunc("GET /health", s.healthHandler)
	outer.Handle("/", ownerMiddleware(mux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outer)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
