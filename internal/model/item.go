package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Interchange documents (version 1.0.0) carry prices as plain JSON
	// numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

var ErrEmptyCategory = errors.New("category is required")

// PriceEntry is one observed price for an item at a store. History entries
// are append-only: never mutated, never deduplicated, never pruned. Their
// order in a history list is insertion order, not chronological order, so
// consumers must sort by Date themselves.
type PriceEntry struct {
	StoreID string          `json:"storeId"`
	Price   decimal.Decimal `json:"price"`
	Date    int64           `json:"date"`
}

// Item is a tracked grocery item with its current per-store prices and the
// full price observation history.
type Item struct {
	ID           string                     `json:"id"`
	Name         string                     `json:"name"`
	Category     string                     `json:"category"`
	ImageRef     string                     `json:"imageUrl,omitempty"`
	Prices       map[string]decimal.Decimal `json:"prices"`
	PriceHistory []PriceEntry               `json:"priceHistory"`
	Notes        string                     `json:"notes,omitempty"`
	OwnerID      string                     `json:"userId"`
	CreatedAt    int64                      `json:"createdAt"`
	UpdatedAt    int64                      `json:"updatedAt"`
}

// NewItem builds an Item with a fresh id and one seeded history entry per
// priced store, all dated now. Name and category are trimmed and required.
func NewItem(ownerID, name, category, notes string, prices map[string]decimal.Decimal) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrEmptyCategory
	}
	if err := ValidatePrices(prices); err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	item := &Item{
		ID:           uuid.NewString(),
		Name:         name,
		Category:     category,
		Notes:        strings.TrimSpace(notes),
		Prices:       prices,
		PriceHistory: []PriceEntry{},
		OwnerID:      ownerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if item.Prices == nil {
		item.Prices = map[string]decimal.Decimal{}
	}
	for storeID, price := range item.Prices {
		item.PriceHistory = append(item.PriceHistory, PriceEntry{
			StoreID: storeID,
			Price:   price,
			Date:    now,
		})
	}
	return item, nil
}

// ValidatePrices rejects negative values. A store with no price is simply
// absent from the map, so zero is a legitimate observed price.
func ValidatePrices(prices map[string]decimal.Decimal) error {
	for storeID, price := range prices {
		if price.IsNegative() {
			return fmt.Errorf("price for store %s: negative value %s", storeID, price)
		}
	}
	return nil
}

// ParsePrice converts free-text price input to a decimal. A blank string
// means "no price": ok is false and the value must be omitted from the
// prices map rather than stored as zero.
func ParsePrice(s string) (decimal.Decimal, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("parse price %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, false, fmt.Errorf("price %q: negative value", s)
	}
	return d, true, nil
}
