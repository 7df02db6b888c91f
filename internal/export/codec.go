// Package export round-trips the full dataset through the versioned
// interchange document.
package export

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jardens/pricebasket/internal/model"
	"github.com/jardens/pricebasket/internal/store"
)

// Version is the interchange document version this codec reads and
// writes. There is no migration logic for other versions.
const Version = "1.0.0"

// Document is the portable snapshot of one owner's items and stores.
type Document struct {
	Items      []model.Item  `json:"items"`
	Stores     []model.Store `json:"stores"`
	ExportDate int64         `json:"exportDate"`
	Version    string        `json:"version"`
}

// Codec snapshots and restores datasets against the persistence layer.
type Codec struct {
	db     *sql.DB
	items  *store.ItemStore
	stores *store.StoreStore
}

func NewCodec(db *sql.DB, items *store.ItemStore, stores *store.StoreStore) *Codec {
	return &Codec{db: db, items: items, stores: stores}
}

// Snapshot reads everything the owner has into a fresh document. Identity
// fields are included as-is so a document round-trips within the same
// account.
func (c *Codec) Snapshot(ownerID string) (*Document, error) {
	items, err := c.items.ListByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("snapshot items: %w", err)
	}
	stores, err := c.stores.ListByOwner(ownerID)
	if err != nil {
		return nil, fmt.Errorf("snapshot stores: %w", err)
	}
	if items == nil {
		items = []model.Item{}
	}
	if stores == nil {
		stores = []model.Store{}
	}
	return &Document{
		Items:      items,
		Stores:     stores,
		ExportDate: time.Now().UnixMilli(),
		Version:    Version,
	}, nil
}

// Decode parses and validates an interchange document. Nothing is written
// here: a document that fails any check is rejected wholesale before the
// restore begins.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if err := validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func validate(doc *Document) error {
	if doc.Version != Version {
		return fmt.Errorf("unsupported document version %q", doc.Version)
	}
	for i := range doc.Stores {
		if strings.TrimSpace(doc.Stores[i].Name) == "" {
			return fmt.Errorf("store %d: %w", i, model.ErrEmptyName)
		}
	}
	for i := range doc.Items {
		item := &doc.Items[i]
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("item %d: %w", i, model.ErrEmptyName)
		}
		if strings.TrimSpace(item.Category) == "" {
			return fmt.Errorf("item %d: %w", i, model.ErrEmptyCategory)
		}
		if err := model.ValidatePrices(item.Prices); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		for j, e := range item.PriceHistory {
			if e.Price.IsNegative() {
				return fmt.Errorf("item %d history %d: negative price %s", i, j, e.Price)
			}
		}
	}
	return nil
}

// Restore inserts every store and item from the document as a brand-new
// record: original ids are discarded, fresh ones issued, and ownership is
// forced to the importing owner. Records are never merged or upserted, so
// re-importing an export duplicates rather than updates. Store ids
// referenced inside item prices and history are intentionally left
// untouched; within the same account they still resolve, elsewhere they
// fall under the stale-key tolerance of the model. The whole document
// commits in one transaction or not at all.
func (c *Codec) Restore(ownerID string, doc *Document) (itemCount, storeCount int, err error) {
	tx, err := c.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for i := range doc.Stores {
		st := doc.Stores[i]
		st.ID = uuid.NewString()
		st.OwnerID = ownerID
		if err := c.stores.InsertTx(tx, &st); err != nil {
			return 0, 0, fmt.Errorf("restore store: %w", err)
		}
	}
	for i := range doc.Items {
		item := doc.Items[i]
		item.ID = uuid.NewString()
		item.OwnerID = ownerID
		if item.Prices == nil {
			item.Prices = map[string]decimal.Decimal{}
		}
		if err := c.items.InsertTx(tx, &item); err != nil {
			return 0, 0, fmt.Errorf("restore item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}
	return len(doc.Items), len(doc.Stores), nil
}
