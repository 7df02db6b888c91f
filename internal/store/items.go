package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jardens/pricebasket/internal/model"
)

// ErrNoUpdate is returned when a bulk edit names neither a category nor
// any prices. The caller must surface this as a validation failure instead
// of reporting a silent success.
var ErrNoUpdate = errors.New("bulk update: nothing to apply")

// ErrNotFound marks a write that targeted a missing or foreign record.
var ErrNotFound = errors.New("not found")

// ItemStore persists grocery items and their append-only price history.
type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

const itemCols = `id, owner_id, name, category, image_ref, notes, prices, created_at, updated_at`

func encodePrices(prices map[string]decimal.Decimal) (string, error) {
	if prices == nil {
		prices = map[string]decimal.Decimal{}
	}
	data, err := json.Marshal(prices)
	if err != nil {
		return "", fmt.Errorf("encode prices: %w", err)
	}
	return string(data), nil
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var item model.Item
	var prices string
	err := scanner.Scan(
		&item.ID, &item.OwnerID, &item.Name, &item.Category, &item.ImageRef,
		&item.Notes, &prices, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(prices), &item.Prices); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}
	if item.Prices == nil {
		item.Prices = map[string]decimal.Decimal{}
	}
	// priceHistory serializes as an array even when empty, same as prices.
	item.PriceHistory = []model.PriceEntry{}
	return &item, nil
}

func (s *ItemStore) GetByID(id string) (*model.Item, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	history, err := s.historyFor(id)
	if err != nil {
		return nil, err
	}
	item.PriceHistory = history
	return item, nil
}

// historyFor loads an item's history in insertion order. Chronological
// order is never assumed; consumers sort by date.
func (s *ItemStore) historyFor(itemID string) ([]model.PriceEntry, error) {
	rows, err := s.db.Query(
		`SELECT store_id, price, date FROM price_history WHERE item_id = ? ORDER BY rowid ASC`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	history := []model.PriceEntry{}
	for rows.Next() {
		e, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *e)
	}
	return history, rows.Err()
}

func scanHistoryEntry(scanner interface{ Scan(...any) error }) (*model.PriceEntry, error) {
	var e model.PriceEntry
	var price string
	if err := scanner.Scan(&e.StoreID, &price, &e.Date); err != nil {
		return nil, fmt.Errorf("scan history entry: %w", err)
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("decode history price: %w", err)
	}
	e.Price = d
	return &e, nil
}

func (s *ItemStore) ListByOwner(ownerID string) ([]model.Item, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM items WHERE owner_id = ? ORDER BY created_at ASC, name ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	index := make(map[string]int)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		index[item.ID] = len(items)
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hrows, err := s.db.Query(
		`SELECT ph.item_id, ph.store_id, ph.price, ph.date
		 FROM price_history ph
		 JOIN items i ON i.id = ph.item_id
		 WHERE i.owner_id = ?
		 ORDER BY ph.rowid ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer hrows.Close()

	for hrows.Next() {
		var itemID, price string
		var e model.PriceEntry
		if err := hrows.Scan(&itemID, &e.StoreID, &price, &e.Date); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("decode history price: %w", err)
		}
		e.Price = d
		if i, ok := index[itemID]; ok {
			items[i].PriceHistory = append(items[i].PriceHistory, e)
		}
	}
	return items, hrows.Err()
}

// Create inserts a new item along with its seeded history entries. There
// is no prior state, so every priced store gets exactly one entry.
func (s *ItemStore) Create(item *model.Item) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.insertTx(tx, item); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// InsertTx inserts an item and its history as part of a caller-owned
// transaction, preserving the entry dates as given. Used by the import
// codec.
func (s *ItemStore) InsertTx(tx *sql.Tx, item *model.Item) error {
	return s.insertTx(tx, item)
}

func (s *ItemStore) insertTx(tx *sql.Tx, item *model.Item) error {
	prices, err := encodePrices(item.Prices)
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT INTO items (`+itemCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.OwnerID, item.Name, item.Category, item.ImageRef,
		item.Notes, prices, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	for _, e := range item.PriceHistory {
		if err := appendHistoryTx(tx, item.ID, e); err != nil {
			return err
		}
	}
	return nil
}

func appendHistoryTx(tx *sql.Tx, itemID string, e model.PriceEntry) error {
	_, err := tx.Exec(
		`INSERT INTO price_history (item_id, store_id, price, date) VALUES (?, ?, ?, ?)`,
		itemID, e.StoreID, e.Price.String(), e.Date,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Update replaces an item's fields and applies the price-change history
// policy: for each store id in the new map, one history entry is appended
// when the id is new or its value differs from the current price, and none
// when the value is unchanged. The prices map is then replaced wholesale,
// so ids omitted from the new map are dropped while their old history
// entries remain. Returns nil when the item does not exist.
func (s *ItemStore) Update(id, name, category, notes, imageRef string, prices map[string]decimal.Decimal) (*model.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.ErrEmptyName
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, model.ErrEmptyCategory
	}
	if err := model.ValidatePrices(prices); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	current, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	now := time.Now().UnixMilli()
	for storeID, newPrice := range prices {
		old, had := current.Prices[storeID]
		if had && old.Equal(newPrice) {
			continue
		}
		e := model.PriceEntry{StoreID: storeID, Price: newPrice, Date: now}
		if err := appendHistoryTx(tx, id, e); err != nil {
			return nil, err
		}
	}

	encoded, err := encodePrices(prices)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(
		`UPDATE items SET name = ?, category = ?, notes = ?, image_ref = ?, prices = ?, updated_at = ? WHERE id = ?`,
		name, category, strings.TrimSpace(notes), imageRef, encoded, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

// SetImageRef updates only the stored image reference.
func (s *ItemStore) SetImageRef(id, imageRef string) (*model.Item, error) {
	res, err := s.db.Exec(
		`UPDATE items SET image_ref = ?, updated_at = ? WHERE id = ?`,
		imageRef, time.Now().UnixMilli(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set image ref: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByID(id)
}

// BulkUpdate describes the single change a bulk edit applies uniformly.
// Exactly one of Category or Prices is honored per call; Category wins
// when both are set.
type BulkUpdate struct {
	Category *string
	Prices   map[string]decimal.Decimal
}

// BulkApply applies one update to every item in ids as an all-or-nothing
// write: a missing or foreign item id fails the whole batch. The prices
// kind overwrites each target's map wholesale and deliberately skips the
// history-append comparison that single-item edits run.
func (s *ItemStore) BulkApply(ownerID string, ids []string, upd BulkUpdate) error {
	var category string
	kind := ""
	switch {
	case upd.Category != nil:
		category = strings.TrimSpace(*upd.Category)
		if category == "" {
			return model.ErrEmptyCategory
		}
		kind = "category"
	case len(upd.Prices) > 0:
		if err := model.ValidatePrices(upd.Prices); err != nil {
			return err
		}
		kind = "prices"
	default:
		return ErrNoUpdate
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for _, id := range ids {
		var res sql.Result
		switch kind {
		case "category":
			res, err = tx.Exec(
				`UPDATE items SET category = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
				category, now, id, ownerID,
			)
		case "prices":
			var encoded string
			encoded, err = encodePrices(upd.Prices)
			if err != nil {
				return err
			}
			res, err = tx.Exec(
				`UPDATE items SET prices = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
				encoded, now, id, ownerID,
			)
		}
		if err != nil {
			return fmt.Errorf("bulk update item %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("bulk update item %s: %w", id, ErrNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Delete removes an item together with its history rows in one
// transaction. Image blob cleanup happens outside this call and outside
// any transaction.
func (s *ItemStore) Delete(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM price_history WHERE item_id = ?`, id); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
