package store

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jardens/pricebasket/internal/model"
)

func mustStore(t *testing.T, ss *StoreStore, owner, name, color string) *model.Store {
	t.Helper()
	st, err := model.NewStore(owner, name, color)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := ss.Create(st); err != nil {
		t.Fatalf("create store: %v", err)
	}
	return st
}

func TestStoreCRUD(t *testing.T) {
	_, ss := setupTestDB(t)

	st := mustStore(t, ss, "owner-1", "Safeway", "red")

	got, err := ss.GetByID(st.ID)
	if err != nil {
		t.Fatalf("get store: %v", err)
	}
	if got.Name != "Safeway" || got.Color != "red" || got.OwnerID != "owner-1" {
		t.Errorf("store = %+v", got)
	}

	updated, err := ss.Update(st.ID, "  Safeway Downtown ", "blue")
	if err != nil {
		t.Fatalf("update store: %v", err)
	}
	if updated.Name != "Safeway Downtown" || updated.Color != "blue" {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := ss.Update(st.ID, "   ", "blue"); err != model.ErrEmptyName {
		t.Errorf("err = %v, want ErrEmptyName", err)
	}

	if err := ss.Delete(st.ID); err != nil {
		t.Fatalf("delete store: %v", err)
	}
	got, err = ss.GetByID(st.ID)
	if err != nil {
		t.Fatalf("get store: %v", err)
	}
	if got != nil {
		t.Errorf("expected store gone, got %+v", got)
	}
}

func TestListByOwnerScoped(t *testing.T) {
	_, ss := setupTestDB(t)

	mustStore(t, ss, "owner-1", "Safeway", "")
	mustStore(t, ss, "owner-1", "Costco", "")
	mustStore(t, ss, "owner-2", "Target", "")

	stores, err := ss.ListByOwner("owner-1")
	if err != nil {
		t.Fatalf("list stores: %v", err)
	}
	if len(stores) != 2 {
		t.Errorf("expected 2 stores, got %d", len(stores))
	}
}

// Deleting a store must not cascade into price entries referencing it;
// the orphaned references render as "Unknown Store" on lookup.
func TestDeleteStoreOrphansPriceEntries(t *testing.T) {
	is, ss := setupTestDB(t)

	st := mustStore(t, ss, "owner-1", "Safeway", "")
	item := mustItem(t, is, "owner-1", "Milk", "Dairy", map[string]decimal.Decimal{
		st.ID: dec(t, "3.50"),
	})

	if err := ss.Delete(st.ID); err != nil {
		t.Fatalf("delete store: %v", err)
	}

	got, err := is.GetByID(item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if _, ok := got.Prices[st.ID]; !ok {
		t.Error("expected stale price key retained")
	}
	if len(got.PriceHistory) != 1 {
		t.Fatalf("expected history retained, got %d entries", len(got.PriceHistory))
	}

	remaining, err := ss.ListByOwner("owner-1")
	if err != nil {
		t.Fatalf("list stores: %v", err)
	}
	if name := model.StoreName(remaining, st.ID); name != model.UnknownStoreName {
		t.Errorf("name = %q, want %q", name, model.UnknownStoreName)
	}
}
