package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/timetill/internal/errs"
	"github.com/and161185/timetill/internal/model"
	"github.com/and161185/timetill/internal/session"
	"github.com/and161185/timetill/internal/store"
)

// Orders reads the append-only order log. Orders are created exclusively by
// checkout; status is the only field that may change afterwards.
type Orders struct {
	store *store.Store
	log   *zap.Logger
}

// NewOrders constructs the order service.
func NewOrders(st *store.Store, log *zap.Logger) *Orders {
	return &Orders{store: st, log: log}
}

// List returns all orders in creation order.
func (s *Orders) List() []model.Order {
	doc := s.store.Snapshot()
	return doc.Orders
}

// SetStatus transitions an order to the given status. Admin only.
func (s *Orders) SetStatus(principal *model.Session, orderID int64, status model.OrderStatus) error {
	if err := session.RequireAdmin(principal); err != nil {
		return err
	}
	switch status {
	case model.OrderPaid, model.OrderShipped, model.OrderDelivered, model.OrderCancelled:
	default:
		return fmt.Errorf("%w: unknown order status %q", errs.ErrValidation, status)
	}
	err := s.store.Update(func(doc *model.Document) error {
		for i := range doc.Orders {
			if doc.Orders[i].ID == orderID {
				doc.Orders[i].Status = status
				return nil
			}
		}
		return fmt.Errorf("%w: order %d", errs.ErrNotFound, orderID)
	})
	if err == nil {
		s.log.Info("order status changed", zap.Int64("id", orderID), zap.String("status", string(status)))
	}
	return err
}
