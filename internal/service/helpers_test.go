package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/and161185/timetill/internal/crypto"
	"github.com/and161185/timetill/internal/ids"
	"github.com/and161185/timetill/internal/model"
	"github.com/and161185/timetill/internal/payment"
	"github.com/and161185/timetill/internal/store"
)

// fakeVerifier is a cheap stand-in for the argon2 verifier.
type fakeVerifier struct{}

var _ crypto.Verifier = fakeVerifier{}

func (fakeVerifier) Hash(password, salt []byte) []byte {
	out := append([]byte{}, password...)
	return append(out, salt...)
}

func (fakeVerifier) Verify(password, salt, expected []byte) bool {
	got := fakeVerifier{}.Hash(password, salt)
	if len(got) != len(expected) {
		return false
	}
	for i := range got {
		if got[i] != expected[i] {
			return false
		}
	}
	return true
}

// fakeGateway forces the payment outcome and can run a hook between the
// snapshot read and the store update, to model re-entrancy at the await.
type fakeGateway struct {
	approve bool
	err     error
	hook    func()
	calls   int
}

var _ payment.Gateway = (*fakeGateway)(nil)

func (g *fakeGateway) Authorize(context.Context, payment.Request) (payment.Result, error) {
	g.calls++
	if g.hook != nil {
		g.hook()
	}
	if g.err != nil {
		return payment.Result{}, g.err
	}
	return payment.Result{Approved: g.approve, Reference: "test"}, nil
}

type env struct {
	store   *store.Store
	users   *Users
	plans   *Plans
	catalog *Catalog
	orders  *Orders
	cart    *Cart
	gateway *fakeGateway
}

func newEnv(t *testing.T) *env {
	t.Helper()

	log := zap.NewNop()
	st := store.Open(filepath.Join(t.TempDir(), "document.json"), log)
	gen, err := ids.NewGenerator(0)
	if err != nil {
		t.Fatalf("ids.NewGenerator: %v", err)
	}
	gw := &fakeGateway{approve: true}
	return &env{
		store:   st,
		users:   NewUsers(st, fakeVerifier{}, gen, log),
		plans:   NewPlans(st, gen, log),
		catalog: NewCatalog(st, gen, log),
		orders:  NewOrders(st, log),
		cart:    NewCart(st, gw, gen, log),
		gateway: gw,
	}
}

func adminSession() *model.Session {
	return &model.Session{UserID: 1, Username: "root", IsAdmin: true}
}

func userSession() *model.Session {
	return &model.Session{UserID: 2, Username: "alice", IsAdmin: false}
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

// validPayload fills every checkout field with acceptable values.
func validPayload() model.CheckoutPayload {
	return model.CheckoutPayload{
		Name:       "Alice Doe",
		Email:      "alice@example.com",
		Address:    "1 Main St",
		City:       "Springfield",
		CardNumber: "4111 1111 1111 1111",
		CardExpiry: "12/27",
		CardCVV:    "123",
	}
}

// checkoutOK runs a checkout with the forced-approve gateway and fails the
// test on any error.
func checkoutOK(t *testing.T, e *env) *model.Order {
	t.Helper()
	e.gateway.approve = true
	order, err := e.cart.Checkout(context.Background(), userSession(), validPayload())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	return order
}

// seedShop creates a producer with n available items and returns their ids.
func seedShop(t *testing.T, e *env, n int) (producerID int64, itemIDs []int64) {
	t.Helper()

	p, err := e.catalog.CreateProducer(adminSession(), "Juliette", "j@example.com")
	if err != nil {
		t.Fatalf("CreateProducer: %v", err)
	}
	for i := 0; i < n; i++ {
		item, err := e.catalog.AddItem(adminSession(), p.ID, "scarf", "hand made", mustDec(t, "19.90"))
		if err != nil {
			t.Fatalf("AddItem: %v", err)
		}
		itemIDs = append(itemIDs, item.ID)
	}
	return p.ID, itemIDs
}
