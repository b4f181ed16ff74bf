package sqlite

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/abszero/smartledger/internal/models"
)

func TestSQLiteStore(t *testing.T) {
	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "smartledger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	t.Run("CreatePerson and GetPersonByEmail round-trip", func(t *testing.T) {
		person := models.NewPerson("alice@example.com", "Alice", "Ames", "hash-1")
		person.Groups = []string{"g-1"}
		person.Invites = []string{"g-2"}

		if err := store.CreatePerson(ctx, person); err != nil {
			t.Fatalf("CreatePerson failed: %v", err)
		}
		if person.Sub == "" {
			t.Fatal("Expected person sub to be generated")
		}

		got, err := store.GetPersonByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("GetPersonByEmail failed: %v", err)
		}
		if got.Sub != person.Sub {
			t.Errorf("Expected sub %s, got %s", person.Sub, got.Sub)
		}
		if len(got.Groups) != 1 || got.Groups[0] != "g-1" {
			t.Errorf("Expected groups [g-1], got %v", got.Groups)
		}
		if len(got.Invites) != 1 || got.Invites[0] != "g-2" {
			t.Errorf("Expected invites [g-2], got %v", got.Invites)
		}
	})

	t.Run("UpdatePerson replaces list state", func(t *testing.T) {
		person := models.NewPerson("bob@example.com", "Bob", "Banks", "hash-2")
		if err := store.CreatePerson(ctx, person); err != nil {
			t.Fatalf("CreatePerson failed: %v", err)
		}

		person.Groups = []string{"g-3", "g-4"}
		person.Invites = nil
		if err := store.UpdatePerson(ctx, person); err != nil {
			t.Fatalf("UpdatePerson failed: %v", err)
		}

		got, err := store.GetPerson(ctx, person.Sub)
		if err != nil {
			t.Fatalf("GetPerson failed: %v", err)
		}
		if len(got.Groups) != 2 {
			t.Errorf("Expected 2 groups, got %v", got.Groups)
		}
		if len(got.Invites) != 0 {
			t.Errorf("Expected no invites, got %v", got.Invites)
		}
	})

	t.Run("GetPerson for missing sub wraps ErrNotFound", func(t *testing.T) {
		_, err := store.GetPerson(ctx, "no-such-sub")
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Group round-trip preserves ledger and balances", func(t *testing.T) {
		settings := models.DefaultGroupSettings()
		settings.OnlyAdminRemoveMember = false
		group := &models.Group{
			Name:        "Ski Trip",
			Description: "Cabin weekend",
			Admin:       "u1",
			Members:     []string{"u1", "u2", "u3"},
			Invites:     []string{"carol@example.com"},
			Settings:    settings,
			Ledger:      map[string]float64{"u1": 40, "u2": -25, "u3": -15},
			Balances: map[string]map[string]float64{
				"u1": {"u2": 25, "u3": 15},
				"u2": {"u1": -25},
				"u3": {"u1": -15},
			},
			Transactions: []string{"t-1", "t-2"},
		}

		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if group.ID == "" {
			t.Fatal("Expected group ID to be generated")
		}

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.Name != "Ski Trip" || got.Admin != "u1" {
			t.Errorf("Unexpected group header: %+v", got)
		}
		if len(got.Members) != 3 {
			t.Errorf("Expected 3 members, got %v", got.Members)
		}
		if !got.Settings.OnlyOwnerDeleteTransaction {
			t.Error("Expected default settings to survive the round-trip")
		}
		if got.Settings.OnlyAdminRemoveMember {
			t.Error("Expected only_admin_remove override to survive the round-trip")
		}
		if math.Abs(got.Ledger["u1"]-40) > 1e-9 {
			t.Errorf("Expected ledger[u1]=40, got %f", got.Ledger["u1"])
		}
		if math.Abs(got.Balances["u1"]["u2"]-25) > 1e-9 {
			t.Errorf("Expected balances[u1][u2]=25, got %f", got.Balances["u1"]["u2"])
		}
		if math.Abs(got.Balances["u2"]["u1"]+25) > 1e-9 {
			t.Errorf("Expected balances[u2][u1]=-25, got %f", got.Balances["u2"]["u1"])
		}
		if len(got.Transactions) != 2 || got.Transactions[0] != "t-1" || got.Transactions[1] != "t-2" {
			t.Errorf("Expected ordered transactions [t-1 t-2], got %v", got.Transactions)
		}
	})

	t.Run("UpdateGroup atomically replaces aggregates", func(t *testing.T) {
		group := &models.Group{
			Name:     "Flatmates",
			Admin:    "u1",
			Members:  []string{"u1", "u2"},
			Settings: models.DefaultGroupSettings(),
			Ledger:   map[string]float64{"u1": 10, "u2": -10},
			Balances: map[string]map[string]float64{"u1": {"u2": 10}, "u2": {"u1": -10}},
		}
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		group.Ledger = map[string]float64{}
		group.Balances = map[string]map[string]float64{}
		group.Transactions = []string{"t-9"}
		group.Members = append(group.Members, "u3")
		if err := store.UpdateGroup(ctx, group); err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if len(got.Ledger) != 0 {
			t.Errorf("Expected cleared ledger, got %v", got.Ledger)
		}
		if len(got.Members) != 3 {
			t.Errorf("Expected 3 members, got %v", got.Members)
		}
		if len(got.Transactions) != 1 || got.Transactions[0] != "t-9" {
			t.Errorf("Expected transactions [t-9], got %v", got.Transactions)
		}
	})

	t.Run("DeleteGroup cascades and ListGroupIDs shrinks", func(t *testing.T) {
		group := &models.Group{
			Name:     "Doomed",
			Admin:    "u1",
			Members:  []string{"u1"},
			Settings: models.DefaultGroupSettings(),
		}
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		before, err := store.ListGroupIDs(ctx)
		if err != nil {
			t.Fatalf("ListGroupIDs failed: %v", err)
		}

		if err := store.DeleteGroup(ctx, group.ID); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}

		after, err := store.ListGroupIDs(ctx)
		if err != nil {
			t.Fatalf("ListGroupIDs failed: %v", err)
		}
		if len(after) != len(before)-1 {
			t.Errorf("Expected %d groups after delete, got %d", len(before)-1, len(after))
		}

		if _, err := store.GetGroup(ctx, group.ID); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("Transaction round-trip preserves deltas and item order", func(t *testing.T) {
		tx := &models.Transaction{
			GroupID:     "g-1",
			Title:       "Groceries",
			Description: "Weekly run",
			Vendor:      "Corner Shop",
			WhoPaid:     map[string]float64{"u1": 30, "u2": 10},
			Items: []models.TransactionItem{
				{ItemID: "i-1", OwedBy: "u2", Quantity: 2, ItemCost: 25},
				{ItemID: "i-2", OwedBy: "u3", Quantity: 1, ItemCost: 15},
			},
			TotalPrice:   40,
			LedgerDeltas: map[string]float64{"u1": 30, "u2": -15, "u3": -15},
			BalanceDeltas: map[string]map[string]float64{
				"u1": {"u2": 15, "u3": 15},
				"u2": {"u1": -15},
				"u3": {"u1": -15},
			},
			CreatedBy:     "u1",
			DatePurchased: 1700000000,
		}

		if err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
		if tx.ID == "" {
			t.Fatal("Expected transaction ID to be generated")
		}
		if tx.DateCreated == 0 {
			t.Error("Expected DateCreated to be set")
		}

		got, err := store.GetTransaction(ctx, tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}
		if got.Title != "Groceries" || got.Vendor != "Corner Shop" {
			t.Errorf("Unexpected transaction header: %+v", got)
		}
		if math.Abs(got.WhoPaid["u1"]-30) > 1e-9 || math.Abs(got.WhoPaid["u2"]-10) > 1e-9 {
			t.Errorf("Unexpected payments: %v", got.WhoPaid)
		}
		if len(got.Items) != 2 || got.Items[0].ItemID != "i-1" || got.Items[1].ItemID != "i-2" {
			t.Errorf("Expected ordered items [i-1 i-2], got %v", got.Items)
		}
		if got.Items[0].Quantity != 2 {
			t.Errorf("Expected quantity 2, got %d", got.Items[0].Quantity)
		}
		if math.Abs(got.LedgerDeltas["u3"]+15) > 1e-9 {
			t.Errorf("Expected ledger delta u3=-15, got %f", got.LedgerDeltas["u3"])
		}
		if math.Abs(got.BalanceDeltas["u1"]["u2"]-15) > 1e-9 {
			t.Errorf("Expected balance delta [u1][u2]=15, got %f", got.BalanceDeltas["u1"]["u2"])
		}
	})

	t.Run("DeleteTransaction removes dependent rows", func(t *testing.T) {
		tx := &models.Transaction{
			GroupID:      "g-1",
			Title:        "Short-lived",
			WhoPaid:      map[string]float64{"u1": 5},
			Items:        []models.TransactionItem{{ItemID: "i-3", OwedBy: "u2", Quantity: 1, ItemCost: 5}},
			TotalPrice:   5,
			LedgerDeltas: map[string]float64{"u1": 5, "u2": -5},
			BalanceDeltas: map[string]map[string]float64{
				"u1": {"u2": 5},
				"u2": {"u1": -5},
			},
			CreatedBy: "u1",
		}
		if err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}

		if err := store.DeleteTransaction(ctx, tx.ID); err != nil {
			t.Fatalf("DeleteTransaction failed: %v", err)
		}
		if _, err := store.GetTransaction(ctx, tx.ID); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
		if err := store.DeleteTransaction(ctx, tx.ID); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on double delete, got %v", err)
		}
	})

	t.Run("CreateItem converges on the existing record", func(t *testing.T) {
		first := &models.Item{Name: "Oat Milk", Description: "1L", UnitPrice: 2.5}
		if err := store.CreateItem(ctx, first); err != nil {
			t.Fatalf("CreateItem failed: %v", err)
		}
		if first.ID == "" {
			t.Fatal("Expected item ID to be generated")
		}
		if first.UsageCount != 1 {
			t.Errorf("Expected usage count 1 for a fresh item, got %d", first.UsageCount)
		}

		second := &models.Item{Name: "Oat Milk", Description: "1L", UnitPrice: 2.5}
		if err := store.CreateItem(ctx, second); err != nil {
			t.Fatalf("CreateItem (duplicate) failed: %v", err)
		}
		if second.ID != first.ID {
			t.Errorf("Expected duplicate create to converge on %s, got %s", first.ID, second.ID)
		}
		if second.UsageCount != 2 {
			t.Errorf("Expected duplicate create to take a reference, got count %d", second.UsageCount)
		}

		other := &models.Item{Name: "Oat Milk", Description: "1L", UnitPrice: 3.0}
		if err := store.CreateItem(ctx, other); err != nil {
			t.Fatalf("CreateItem (different price) failed: %v", err)
		}
		if other.ID == first.ID {
			t.Error("Expected a different price to create a distinct item")
		}
	})

	t.Run("Item reference counting deletes at zero", func(t *testing.T) {
		item := &models.Item{Name: "Coffee", Description: "Beans", UnitPrice: 12}
		if err := store.CreateItem(ctx, item); err != nil {
			t.Fatalf("CreateItem failed: %v", err)
		}

		if err := store.AddItemReference(ctx, item.ID); err != nil {
			t.Fatalf("AddItemReference failed: %v", err)
		}

		deleted, err := store.RemoveItemReference(ctx, item.ID)
		if err != nil {
			t.Fatalf("RemoveItemReference failed: %v", err)
		}
		if deleted {
			t.Error("Expected item to survive with one reference left")
		}

		got, err := store.GetItem(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}
		if got.UsageCount != 1 {
			t.Errorf("Expected usage count 1, got %d", got.UsageCount)
		}

		deleted, err = store.RemoveItemReference(ctx, item.ID)
		if err != nil {
			t.Fatalf("RemoveItemReference failed: %v", err)
		}
		if !deleted {
			t.Error("Expected item to be deleted at zero references")
		}
		if _, err := store.GetItem(ctx, item.ID); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
	})
}
