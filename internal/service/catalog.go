package service

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/and161185/timetill/internal/errs"
	"github.com/and161185/timetill/internal/ids"
	"github.com/and161185/timetill/internal/model"
	"github.com/and161185/timetill/internal/session"
	"github.com/and161185/timetill/internal/store"
)

// Catalog manages producers and their one-of-a-kind items.
type Catalog struct {
	store *store.Store
	ids   ids.Generator
	log   *zap.Logger
}

// NewCatalog constructs the catalog service.
func NewCatalog(st *store.Store, gen ids.Generator, log *zap.Logger) *Catalog {
	return &Catalog{store: st, ids: gen, log: log}
}

// CreateProducer adds a producer with an empty item list. Admin only.
func (s *Catalog) CreateProducer(principal *model.Session, name, email string) (model.Producer, error) {
	if err := session.RequireAdmin(principal); err != nil {
		return model.Producer{}, err
	}
	if name == "" {
		return model.Producer{}, fmt.Errorf("%w: producer name required", errs.ErrValidation)
	}
	p := model.Producer{ID: s.ids.Next(), Name: name, Email: email, Items: []model.Item{}}
	err := s.store.Update(func(doc *model.Document) error {
		doc.Producers = append(doc.Producers, p)
		return nil
	})
	if err != nil {
		return model.Producer{}, err
	}
	return p, nil
}

// DeleteProducer removes a producer and cascades to all of its items.
// Historical orders are unaffected (they embed value snapshots), but the
// producer disappears from any future analytics, so the cascade is logged
// with the item count it erased.
func (s *Catalog) DeleteProducer(principal *model.Session, id int64) error {
	if err := session.RequireAdmin(principal); err != nil {
		return err
	}
	var removedItems int
	err := s.store.Update(func(doc *model.Document) error {
		for i := range doc.Producers {
			if doc.Producers[i].ID == id {
				removedItems = len(doc.Producers[i].Items)
				doc.Producers = append(doc.Producers[:i], doc.Producers[i+1:]...)
				// Drop cart lines that referenced the cascaded items.
				kept := doc.Cart[:0]
				for _, line := range doc.Cart {
					if item := doc.ItemByID(line.ItemID); item != nil {
						kept = append(kept, line)
					}
				}
				doc.Cart = kept
				return nil
			}
		}
		return fmt.Errorf("%w: producer %d", errs.ErrNotFound, id)
	})
	if err == nil {
		s.log.Info("producer deleted with item cascade",
			zap.Int64("id", id), zap.Int("items", removedItems), zap.String("by", principal.Username))
	}
	return err
}

// AddItem creates a single unit of stock owned by the producer. Admin only;
// price must be positive.
func (s *Catalog) AddItem(principal *model.Session, ownerID int64, name, description string, price decimal.Decimal) (model.Item, error) {
	if err := session.RequireAdmin(principal); err != nil {
		return model.Item{}, err
	}
	if name == "" {
		return model.Item{}, fmt.Errorf("%w: item name required", errs.ErrValidation)
	}
	if !price.IsPositive() {
		return model.Item{}, fmt.Errorf("%w: price must be positive", errs.ErrValidation)
	}
	item := model.Item{
		ID:          s.ids.Next(),
		Name:        name,
		Description: description,
		Price:       price,
		OwnerID:     ownerID,
		Available:   true,
	}
	err := s.store.Update(func(doc *model.Document) error {
		p := doc.ProducerByID(ownerID)
		if p == nil {
			return fmt.Errorf("%w: producer %d", errs.ErrNotFound, ownerID)
		}
		p.Items = append(p.Items, item)
		return nil
	})
	if err != nil {
		return model.Item{}, err
	}
	return item, nil
}

// RemoveItem deletes an item from its producer. Admin only. Any cart line
// referencing it is dropped as well.
func (s *Catalog) RemoveItem(principal *model.Session, itemID int64) error {
	if err := session.RequireAdmin(principal); err != nil {
		return err
	}
	return s.store.Update(func(doc *model.Document) error {
		for i := range doc.Producers {
			items := doc.Producers[i].Items
			for j := range items {
				if items[j].ID == itemID {
					doc.Producers[i].Items = append(items[:j], items[j+1:]...)
					for k := range doc.Cart {
						if doc.Cart[k].ItemID == itemID {
							doc.Cart = append(doc.Cart[:k], doc.Cart[k+1:]...)
							break
						}
					}
					return nil
				}
			}
		}
		return fmt.Errorf("%w: item %d", errs.ErrNotFound, itemID)
	})
}

// Producers returns all producers with their items.
func (s *Catalog) Producers() []model.Producer {
	doc := s.store.Snapshot()
	return doc.Producers
}

// AvailableItems returns every item still marked available, in producer order.
func (s *Catalog) AvailableItems() []model.Item {
	doc := s.store.Snapshot()
	items := []model.Item{}
	for i := range doc.Producers {
		for _, it := range doc.Producers[i].Items {
			if it.Available {
				items = append(items, it)
			}
		}
	}
	return items
}
