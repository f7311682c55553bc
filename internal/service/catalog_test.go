package service

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/and161185/timetill/internal/errs"
)

func TestCatalog_AddItem_Validation(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	producerID, _ := seedShop(t, e, 0)

	if _, err := e.catalog.AddItem(adminSession(), producerID, "", "", mustDec(t, "5")); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("empty name: err=%v, want ErrValidation", err)
	}
	if _, err := e.catalog.AddItem(adminSession(), producerID, "x", "", decimal.Zero); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("price=0: err=%v, want ErrValidation", err)
	}
	if _, err := e.catalog.AddItem(adminSession(), producerID, "x", "", mustDec(t, "-3")); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("negative price: err=%v, want ErrValidation", err)
	}
	if _, err := e.catalog.AddItem(adminSession(), 999, "x", "", mustDec(t, "3")); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("missing producer: err=%v, want ErrNotFound", err)
	}
	if _, err := e.catalog.AddItem(userSession(), producerID, "x", "", mustDec(t, "3")); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("non-admin: err=%v, want ErrUnauthorized", err)
	}
}

func TestCatalog_AddItem_OwnedAndAvailable(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	producerID, itemIDs := seedShop(t, e, 1)

	items := e.catalog.AvailableItems()
	if len(items) != 1 {
		t.Fatalf("available=%d, want 1", len(items))
	}
	if items[0].ID != itemIDs[0] || items[0].OwnerID != producerID || !items[0].Available {
		t.Fatalf("unexpected item %+v", items[0])
	}
}

func TestCatalog_DeleteProducer_CascadesToItemsAndCart(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	producerID, itemIDs := seedShop(t, e, 2)

	if err := e.cart.Add(userSession(), itemIDs[0]); err != nil {
		t.Fatalf("cart Add: %v", err)
	}

	if err := e.catalog.DeleteProducer(userSession(), producerID); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("non-admin: err=%v, want ErrUnauthorized", err)
	}
	if err := e.catalog.DeleteProducer(adminSession(), producerID); err != nil {
		t.Fatalf("DeleteProducer: %v", err)
	}

	if got := len(e.catalog.Producers()); got != 0 {
		t.Fatalf("producers=%d, want 0", got)
	}
	if got := len(e.catalog.AvailableItems()); got != 0 {
		t.Fatalf("items=%d, want 0 after cascade", got)
	}
	if got := len(e.cart.Lines()); got != 0 {
		t.Fatalf("cart lines=%d, want 0 after cascade", got)
	}
}

func TestCatalog_DeleteProducer_KeepsOrderSnapshots(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	producerID, itemIDs := seedShop(t, e, 1)

	if err := e.cart.Add(userSession(), itemIDs[0]); err != nil {
		t.Fatalf("cart Add: %v", err)
	}
	order := checkoutOK(t, e)

	if err := e.catalog.DeleteProducer(adminSession(), producerID); err != nil {
		t.Fatalf("DeleteProducer: %v", err)
	}

	got := e.orders.List()
	if len(got) != 1 || got[0].ID != order.ID || len(got[0].Lines) != 1 {
		t.Fatalf("order snapshot damaged by cascade: %+v", got)
	}
	if got[0].Lines[0].ProducerName != "Juliette" {
		t.Fatalf("line lost its producer snapshot: %+v", got[0].Lines[0])
	}
}

func TestCatalog_RemoveItem(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	_, itemIDs := seedShop(t, e, 2)

	if err := e.cart.Add(userSession(), itemIDs[1]); err != nil {
		t.Fatalf("cart Add: %v", err)
	}
	if err := e.catalog.RemoveItem(adminSession(), itemIDs[1]); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if err := e.catalog.RemoveItem(adminSession(), itemIDs[1]); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second remove: err=%v, want ErrNotFound", err)
	}
	if got := len(e.catalog.AvailableItems()); got != 1 {
		t.Fatalf("available=%d, want 1", got)
	}
	if got := len(e.cart.Lines()); got != 0 {
		t.Fatalf("cart lines=%d, want 0 after item removal", got)
	}
}
