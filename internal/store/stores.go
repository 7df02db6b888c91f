package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jardens/pricebasket/internal/model"
)

// StoreStore persists grocery stores.
type StoreStore struct {
	db *sql.DB
}

func NewStoreStore(db *sql.DB) *StoreStore {
	return &StoreStore{db: db}
}

const storeCols = `id, owner_id, name, color, created_at`

func scanStore(scanner interface{ Scan(...any) error }) (*model.Store, error) {
	var st model.Store
	err := scanner.Scan(&st.ID, &st.OwnerID, &st.Name, &st.Color, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *StoreStore) GetByID(id string) (*model.Store, error) {
	row := s.db.QueryRow(`SELECT `+storeCols+` FROM stores WHERE id = ?`, id)
	st, err := scanStore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	return st, nil
}

func (s *StoreStore) ListByOwner(ownerID string) ([]model.Store, error) {
	rows, err := s.db.Query(`SELECT `+storeCols+` FROM stores WHERE owner_id = ? ORDER BY created_at ASC, name ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var stores []model.Store
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, *st)
	}
	return stores, rows.Err()
}

func (s *StoreStore) Create(st *model.Store) error {
	_, err := s.db.Exec(
		`INSERT INTO stores (`+storeCols+`) VALUES (?, ?, ?, ?, ?)`,
		st.ID, st.OwnerID, st.Name, st.Color, st.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert store: %w", err)
	}
	return nil
}

// InsertTx inserts a store as part of a caller-owned transaction. Used by
// the import codec so a whole document commits or fails together.
func (s *StoreStore) InsertTx(tx *sql.Tx, st *model.Store) error {
	_, err := tx.Exec(
		`INSERT INTO stores (`+storeCols+`) VALUES (?, ?, ?, ?, ?)`,
		st.ID, st.OwnerID, st.Name, st.Color, st.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert store: %w", err)
	}
	return nil
}

func (s *StoreStore) Update(id, name, color string) (*model.Store, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.ErrEmptyName
	}
	_, err := s.db.Exec(
		`UPDATE stores SET name = ?, color = ? WHERE id = ?`,
		name, strings.TrimSpace(color), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update store: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes a store. Price entries in items that reference it are
// left alone; they render with the unknown-store placeholder from then on.
func (s *StoreStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM stores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete store: %w", err)
	}
	return nil
}
