package store

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jardens/pricebasket/internal/database"
	"github.com/jardens/pricebasket/internal/model"
)

func setupTestDB(t *testing.T) (*ItemStore, *StoreStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewItemStore(db), NewStoreStore(db)
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func mustItem(t *testing.T, is *ItemStore, owner, name, category string, prices map[string]decimal.Decimal) *model.Item {
	t.Helper()
	item, err := model.NewItem(owner, name, category, "", prices)
	if err != nil {
		t.Fatalf("new item: %v", err)
	}
	if err := is.Create(item); err != nil {
		t.Fatalf("create item: %v", err)
	}
	got, err := is.GetByID(item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	return got
}

func TestCreateSeedsHistory(t *testing.T) {
	is, _ := setupTestDB(t)

	item := mustItem(t, is, "owner-1", "Milk", "Dairy", map[string]decimal.Decimal{
		"store-x": dec(t, "3.50"),
	})
	if len(item.PriceHistory) != 1 {
		t.Fatalf("expected 1 seeded entry, got %d", len(item.PriceHistory))
	}
	e := item.PriceHistory[0]
	if e.StoreID != "store-x" || !e.Price.Equal(dec(t, "3.50")) {
		t.Errorf("seeded entry = %+v", e)
	}
}

func TestHistorySerializesAsEmptyArray(t *testing.T) {
	is, _ := setupTestDB(t)

	item := mustItem(t, is, "owner-1", "Bread", "Bakery", nil)
	if item.PriceHistory == nil {
		t.Fatal("expected empty history slice, got nil")
	}

	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"priceHistory":[]`) {
		t.Errorf("expected priceHistory array in %s", data)
	}

	items, err := is.ListByOwner("owner-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if items[0].PriceHistory == nil {
		t.Error("expected empty history slice from list, got nil")
	}
}

func TestUpdateAppendsOnChangeOnly(t *testing.T) {
	is, _ := setupTestDB(t)

	// Milk at store-x for 3.50
	item := mustItem(t, is, "owner-1", "Milk", "Dairy", map[string]decimal.Decimal{
		"store-x": dec(t, "3.50"),
	})

	// Edit to store-x 3.00, store-y 4.00: two new entries
	updated, err := is.Update(item.ID, "Milk", "Dairy", "", "", map[string]decimal.Decimal{
		"store-x": dec(t, "3.00"),
		"store-y": dec(t, "4.00"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.PriceHistory) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(updated.PriceHistory))
	}
	if !updated.Prices["store-x"].Equal(dec(t, "3.00")) || !updated.Prices["store-y"].Equal(dec(t, "4.00")) {
		t.Errorf("prices = %v", updated.Prices)
	}

	// Re-edit with the identical map: no new entries, updatedAt advances
	before := updated.UpdatedAt
	time.Sleep(5 * time.Millisecond)
	again, err := is.Update(item.ID, "Milk", "Dairy", "", "", map[string]decimal.Decimal{
		"store-x": dec(t, "3.00"),
		"store-y": dec(t, "4.00"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(again.PriceHistory) != 3 {
		t.Fatalf("expected still 3 history entries, got %d", len(again.PriceHistory))
	}
	if again.UpdatedAt <= before {
		t.Errorf("updatedAt did not advance: %d -> %d", before, again.UpdatedAt)
	}
}

func TestUpdateEqualValueDifferentScale(t *testing.T) {
	is, _ := setupTestDB(t)

	item := mustItem(t, is, "owner-1", "Milk", "Dairy", map[string]decimal.Decimal{
		"store-x": dec(t, "3.50"),
	})

	// 3.5 is numerically equal to 3.50: no entry
	updated, err := is.Update(item.ID, "Milk", "Dairy", "", "", map[string]decimal.Decimal{
		"store-x": dec(t, "3.5"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.PriceHistory) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(updated.PriceHistory))
	}
}

func TestUpdateDropsOmittedStoreButKeepsHistory(t *testing.T) {
	is, _ := setupTestDB(t)

	item := mustItem(t, is, "owner-1", "Milk", "Dairy", map[string]decimal.Decimal{
		"store-x": dec(t, "3.50"),
		"store-y": dec(t, "4.00"),
	})

	// New map omits store-y entirely
	updated, err := is.Update(item.ID, "Milk", "Dairy", "", "", map[string]decimal.Decimal{
		"store-x": dec(t, "3.50"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, ok := updated.Prices["store-y"]; ok {
		t.Error("expected store-y removed from prices")
	}
	// History is never pruned
	var yEntries int
	for _, e := range updated.PriceHistory {
		if e.StoreID == "store-y" {
			yEntries++
		}
	}
	if yEntries != 1 {
		t.Errorf("expected store-y history retained, got %d entries", yEntries)
	}
}

func TestUpdateMissingItem(t *testing.T) {
	is, _ := setupTestDB(t)
	got, err := is.Update("nope", "Milk", "Dairy", "", "", nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing item, got %+v", got)
	}
}

func TestBulkApplyCategory(t *testing.T) {
	is, _ := setupTestDB(t)

	a := mustItem(t, is, "owner-1", "Chips", "Pantry", map[string]decimal.Decimal{"s": dec(t, "2.00")})
	b := mustItem(t, is, "owner-1", "Salsa", "Pantry", nil)

	category := "Snacks"
	err := is.BulkApply("owner-1", []string{a.ID, b.ID}, BulkUpdate{Category: &category})
	if err != nil {
		t.Fatalf("bulk apply: %v", err)
	}

	for _, id := range []string{a.ID, b.ID} {
		got, err := is.GetByID(id)
		if err != nil {
			t.Fatalf("get item: %v", err)
		}
		if got.Category != "Snacks" {
			t.Errorf("category = %q, want %q", got.Category, "Snacks")
		}
	}

	// Prices and history untouched
	got, _ := is.GetByID(a.ID)
	if !got.Prices["s"].Equal(dec(t, "2.00")) {
		t.Errorf("prices changed: %v", got.Prices)
	}
	if len(got.PriceHistory) != 1 {
		t.Errorf("history changed: %d entries", len(got.PriceHistory))
	}
}

func TestBulkApplyPricesSkipsHistory(t *testing.T) {
	is, _ := setupTestDB(t)

	a := mustItem(t, is, "owner-1", "Chips", "Snacks", map[string]decimal.Decimal{"s": dec(t, "2.00")})

	// Bulk price writes never append history, even when the value changes
	err := is.BulkApply("owner-1", []string{a.ID}, BulkUpdate{
		Prices: map[string]decimal.Decimal{"s": dec(t, "1.50")},
	})
	if err != nil {
		t.Fatalf("bulk apply: %v", err)
	}

	got, _ := is.GetByID(a.ID)
	if !got.Prices["s"].Equal(dec(t, "1.50")) {
		t.Errorf("price = %s, want 1.50", got.Prices["s"])
	}
	if len(got.PriceHistory) != 1 {
		t.Errorf("expected history untouched, got %d entries", len(got.PriceHistory))
	}
}

func TestBulkApplyNothing(t *testing.T) {
	is, _ := setupTestDB(t)
	a := mustItem(t, is, "owner-1", "Chips", "Snacks", nil)

	err := is.BulkApply("owner-1", []string{a.ID}, BulkUpdate{})
	if !errors.Is(err, ErrNoUpdate) {
		t.Fatalf("err = %v, want ErrNoUpdate", err)
	}
}

func TestBulkApplyAllOrNothing(t *testing.T) {
	is, _ := setupTestDB(t)

	a := mustItem(t, is, "owner-1", "Chips", "Pantry", nil)

	category := "Snacks"
	err := is.BulkApply("owner-1", []string{a.ID, "missing"}, BulkUpdate{Category: &category})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// The batch must have rolled back entirely
	got, _ := is.GetByID(a.ID)
	if got.Category != "Pantry" {
		t.Errorf("category = %q, want unchanged %q", got.Category, "Pantry")
	}
}

func TestBulkApplyForeignOwner(t *testing.T) {
	is, _ := setupTestDB(t)

	a := mustItem(t, is, "owner-1", "Chips", "Pantry", nil)

	category := "Snacks"
	err := is.BulkApply("owner-2", []string{a.ID}, BulkUpdate{Category: &category})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for foreign item", err)
	}
}

func TestDeleteRemovesHistory(t *testing.T) {
	is, _ := setupTestDB(t)

	item := mustItem(t, is, "owner-1", "Milk", "Dairy", map[string]decimal.Decimal{
		"store-x": dec(t, "3.50"),
	})

	if err := is.Delete(item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := is.GetByID(item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected item gone, got %+v", got)
	}
}

func TestListByOwnerLoadsHistory(t *testing.T) {
	is, _ := setupTestDB(t)

	mustItem(t, is, "owner-1", "Milk", "Dairy", map[string]decimal.Decimal{"s1": dec(t, "3.50")})
	mustItem(t, is, "owner-1", "Eggs", "Dairy", map[string]decimal.Decimal{"s1": dec(t, "5.00"), "s2": dec(t, "4.75")})
	mustItem(t, is, "owner-2", "Bread", "Bakery", nil)

	items, err := is.ListByOwner("owner-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	total := 0
	for _, it := range items {
		total += len(it.PriceHistory)
	}
	if total != 3 {
		t.Errorf("expected 3 history entries across items, got %d", total)
	}
}
