package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UnknownStoreName is the display placeholder for price entries whose store
// has been deleted. Stale references are kept; only their name lookup fails.
const UnknownStoreName = "Unknown Store"

var ErrEmptyName = errors.New("name is required")

// Store is a place groceries are bought. Stores are created, edited, and
// deleted independently of items; deleting one never touches the price
// entries that reference it.
type Store struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	OwnerID   string `json:"userId"`
	CreatedAt int64  `json:"createdAt"`
}

// NewStore builds a Store with a fresh id. The name is trimmed and must be
// non-empty; the color is a free-form display token.
func NewStore(ownerID, name, color string) (*Store, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return &Store{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     strings.TrimSpace(color),
		OwnerID:   ownerID,
		CreatedAt: time.Now().UnixMilli(),
	}, nil
}

// StoreName resolves a store id to its display name, falling back to the
// unknown-store placeholder when the id no longer matches any store.
func StoreName(stores []Store, id string) string {
	for i := range stores {
		if stores[i].ID == id {
			return stores[i].Name
		}
	}
	return UnknownStoreName
}
