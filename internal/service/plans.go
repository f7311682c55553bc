package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/timetill/internal/errs"
	"github.com/and161185/timetill/internal/ids"
	"github.com/and161185/timetill/internal/model"
	"github.com/and161185/timetill/internal/session"
	"github.com/and161185/timetill/internal/store"
)

// Plans manages allowance plan templates. All mutations are admin only.
type Plans struct {
	store *store.Store
	ids   ids.Generator
	log   *zap.Logger
}

// NewPlans constructs the plan service.
func NewPlans(st *store.Store, gen ids.Generator, log *zap.Logger) *Plans {
	return &Plans{store: st, ids: gen, log: log}
}

func validatePlan(name string, value float64, unit model.PlanUnit) error {
	if name == "" {
		return fmt.Errorf("%w: plan name required", errs.ErrValidation)
	}
	if value <= 0 {
		return fmt.Errorf("%w: plan value must be positive", errs.ErrValidation)
	}
	if _, ok := unitFactors[unit]; !ok {
		return fmt.Errorf("%w: unknown unit %q", errs.ErrValidation, unit)
	}
	return nil
}

// Create adds a new plan and returns it.
func (s *Plans) Create(principal *model.Session, name string, value float64, unit model.PlanUnit) (model.Plan, error) {
	if err := session.RequireAdmin(principal); err != nil {
		return model.Plan{}, err
	}
	if err := validatePlan(name, value, unit); err != nil {
		return model.Plan{}, err
	}
	plan := model.Plan{ID: s.ids.Next(), Name: name, Value: value, Unit: unit}
	err := s.store.Update(func(doc *model.Document) error {
		doc.Plans = append(doc.Plans, plan)
		return nil
	})
	if err != nil {
		return model.Plan{}, err
	}
	s.log.Info("plan created", zap.Int64("id", plan.ID), zap.String("name", name))
	return plan, nil
}

// Update replaces the plan with the same id. Existing users keep their
// already-resolved allowance: resolution is by value, not by reference.
func (s *Plans) Update(principal *model.Session, plan model.Plan) error {
	if err := session.RequireAdmin(principal); err != nil {
		return err
	}
	if err := validatePlan(plan.Name, plan.Value, plan.Unit); err != nil {
		return err
	}
	return s.store.Update(func(doc *model.Document) error {
		p := doc.PlanByID(plan.ID)
		if p == nil {
			return fmt.Errorf("%w: plan %d", errs.ErrNotFound, plan.ID)
		}
		*p = plan
		return nil
	})
}

// Delete removes a plan. No referential check against users by design:
// user allowances are minute snapshots and survive the plan.
func (s *Plans) Delete(principal *model.Session, id int64) error {
	if err := session.RequireAdmin(principal); err != nil {
		return err
	}
	return s.store.Update(func(doc *model.Document) error {
		for i := range doc.Plans {
			if doc.Plans[i].ID == id {
				doc.Plans = append(doc.Plans[:i], doc.Plans[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: plan %d", errs.ErrNotFound, id)
	})
}

// List returns all plans.
func (s *Plans) List() []model.Plan {
	doc := s.store.Snapshot()
	return doc.Plans
}
