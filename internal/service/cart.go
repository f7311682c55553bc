package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/and161185/timetill/internal/errs"
	"github.com/and161185/timetill/internal/ids"
	"github.com/and161185/timetill/internal/model"
	"github.com/and161185/timetill/internal/payment"
	"github.com/and161185/timetill/internal/session"
	"github.com/and161185/timetill/internal/store"
)

// Cart is the cart & checkout engine. Lines live in the persisted document,
// so a cart survives process restarts; checkout applies the stock flip, the
// order append, and the cart clear as one store update — no partially
// applied checkout is ever observable or persisted.
type Cart struct {
	store    *store.Store
	gateway  payment.Gateway
	ids      ids.Generator
	validate *validator.Validate
	log      *zap.Logger
}

// NewCart constructs the cart engine. The gateway is swappable; checkout
// only relies on its Authorize contract.
func NewCart(st *store.Store, gw payment.Gateway, gen ids.Generator, log *zap.Logger) *Cart {
	return &Cart{
		store:    st,
		gateway:  gw,
		ids:      gen,
		validate: validator.New(),
		log:      log,
	}
}

// Add appends a denormalized snapshot of the item to the cart.
// Requires an authenticated principal; the item must exist and be
// available; an item can be in the cart at most once (each item is a single
// unique unit of stock, so there are no quantity increments).
func (s *Cart) Add(principal *model.Session, itemID int64) error {
	if err := session.RequireUser(principal); err != nil {
		return err
	}
	return s.store.Update(func(doc *model.Document) error {
		item := doc.ItemByID(itemID)
		if item == nil || !item.Available {
			return fmt.Errorf("%w: no available item %d", errs.ErrNotFound, itemID)
		}
		if doc.CartLineByItemID(itemID) != nil {
			return fmt.Errorf("%w: item %d already in cart", errs.ErrAlreadyExists, itemID)
		}
		producerName := ""
		if p := doc.ProducerByID(item.OwnerID); p != nil {
			producerName = p.Name
		}
		doc.Cart = append(doc.Cart, model.CartLine{
			ItemID:       item.ID,
			Name:         item.Name,
			Price:        item.Price,
			ProducerName: producerName,
			AddedAt:      time.Now().UTC(),
		})
		return nil
	})
}

// Remove drops the cart line for itemID. Removing an absent id is a no-op.
func (s *Cart) Remove(itemID int64) error {
	return s.store.Update(func(doc *model.Document) error {
		for i := range doc.Cart {
			if doc.Cart[i].ItemID == itemID {
				doc.Cart = append(doc.Cart[:i], doc.Cart[i+1:]...)
				return nil
			}
		}
		return nil
	})
}

// Lines returns the current cart lines.
func (s *Cart) Lines() []model.CartLine {
	doc := s.store.Snapshot()
	return doc.Cart
}

// Total sums the line prices. Recomputed on every call, never cached.
func (s *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Lines() {
		total = total.Add(line.Price)
	}
	return total
}

var (
	cardNumberRe = regexp.MustCompile(`^\d{16}$`)
	cardExpiryRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cardCVVRe    = regexp.MustCompile(`^\d{3}$`)
)

// validatePayload checks the payload field by field in declared order and
// reports the first failure only. The card number is matched after
// stripping whitespace.
func (s *Cart) validatePayload(p *model.CheckoutPayload) error {
	fail := func(field, rule string) error {
		return fmt.Errorf("%w: %s %s", errs.ErrValidation, field, rule)
	}
	if s.validate.Var(p.Name, "required") != nil {
		return fail("name", "is required")
	}
	if s.validate.Var(p.Email, "required,email") != nil {
		return fail("email", "must be a valid address")
	}
	if s.validate.Var(p.Address, "required") != nil {
		return fail("address", "is required")
	}
	if s.validate.Var(p.City, "required") != nil {
		return fail("city", "is required")
	}
	p.CardNumber = strings.Join(strings.Fields(p.CardNumber), "")
	if !cardNumberRe.MatchString(p.CardNumber) {
		return fail("cardNumber", "must be exactly 16 digits")
	}
	if !cardExpiryRe.MatchString(p.CardExpiry) {
		return fail("cardExpiry", "must match MM/YY")
	}
	if !cardCVVRe.MatchString(p.CardCVV) {
		return fail("cardCVV", "must be exactly 3 digits")
	}
	return nil
}

// Checkout validates the payload, authorizes the charge, and on approval
// flips every line's backing item to unavailable, appends the order
// snapshot, and clears the cart — all in one store update. The gateway call
// happens outside the store's critical section, so availability is
// re-verified inside it; if any item was sold in between, nothing is
// applied. On decline, cart and stock are untouched and the caller may
// retry.
func (s *Cart) Checkout(ctx context.Context, principal *model.Session, payload model.CheckoutPayload) (*model.Order, error) {
	if err := session.RequireUser(principal); err != nil {
		return nil, err
	}
	if err := s.validatePayload(&payload); err != nil {
		return nil, err
	}

	snapshot := s.store.Snapshot()
	if len(snapshot.Cart) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", errs.ErrValidation)
	}
	total := decimal.Zero
	for _, line := range snapshot.Cart {
		total = total.Add(line.Price)
	}

	res, err := s.gateway.Authorize(ctx, payment.Request{
		Amount:     total,
		CardNumber: payload.CardNumber,
		CardExpiry: payload.CardExpiry,
		CardCVV:    payload.CardCVV,
		HolderName: payload.Name,
	})
	if err != nil {
		return nil, err
	}
	if !res.Approved {
		s.log.Info("checkout declined", zap.String("reference", res.Reference), zap.String("total", total.String()))
		return nil, errs.ErrDeclined
	}

	var order model.Order
	err = s.store.Update(func(doc *model.Document) error {
		if len(doc.Cart) == 0 {
			return fmt.Errorf("%w: cart is empty", errs.ErrValidation)
		}
		orderTotal := decimal.Zero
		for _, line := range doc.Cart {
			item := doc.ItemByID(line.ItemID)
			if item == nil || !item.Available {
				return fmt.Errorf("%w: item %d is no longer available", errs.ErrNotFound, line.ItemID)
			}
			orderTotal = orderTotal.Add(line.Price)
		}
		for _, line := range doc.Cart {
			doc.ItemByID(line.ItemID).Available = false
		}
		order = model.Order{
			ID:              s.ids.Next(),
			BuyerID:         principal.UserID,
			BuyerName:       payload.Name,
			BuyerEmail:      payload.Email,
			Lines:           append([]model.CartLine(nil), doc.Cart...),
			Total:           orderTotal,
			Status:          model.OrderPaid,
			ShippingAddress: payload.Address,
			ShippingCity:    payload.City,
			CreatedAt:       time.Now().UTC(),
		}
		doc.Orders = append(doc.Orders, order)
		doc.Cart = []model.CartLine{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("checkout approved",
		zap.Int64("orderId", order.ID),
		zap.String("reference", res.Reference),
		zap.String("total", order.Total.String()),
		zap.Int("lines", len(order.Lines)))
	return &order, nil
}
