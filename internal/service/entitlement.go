// Package service contains the application services: entitlements, accounts,
// plans, catalog, orders, sites, and the cart/checkout engine.
package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/and161185/timetill/internal/errs"
	"github.com/and161185/timetill/internal/model"
)

// unitFactors maps a plan unit to its length in minutes.
var unitFactors = map[model.PlanUnit]float64{
	model.UnitMinutes: 1,
	model.UnitHours:   60,
	model.UnitDays:    1440,
	model.UnitWeeks:   10080,
	model.UnitMonths:  43200,
}

// ConvertToMinutes resolves a plan to its canonical minute count:
// max(1, round(value * unitFactor)). Pure and total; an unknown unit falls
// back to the minutes factor.
func ConvertToMinutes(p model.Plan) int64 {
	factor, ok := unitFactors[p.Unit]
	if !ok {
		factor = 1
	}
	m := int64(math.Round(p.Value * factor))
	if m < 1 {
		return 1
	}
	return m
}

// Selection chooses the source of a user's allowance: a plan by id, or an
// explicit custom minute count as entered.
type Selection struct {
	PlanID int64
	Custom string
}

// ResolveAllowance turns a selection into a minute count >= 1.
// Rules:
//   - custom input parses to an integer >= 1, otherwise ErrValidation
//   - a plan id resolves through ConvertToMinutes
//   - a plan id that matches no plan is ErrNotFound
//   - no selection at all is ErrValidation ("must choose a plan")
func ResolveAllowance(sel Selection, plans []model.Plan) (int64, error) {
	if custom := strings.TrimSpace(sel.Custom); custom != "" {
		n, err := cast.ToInt64E(custom)
		if err != nil {
			return 0, fmt.Errorf("%w: custom minutes %q is not a number", errs.ErrValidation, sel.Custom)
		}
		if n < 1 {
			return 0, fmt.Errorf("%w: custom minutes must be at least 1", errs.ErrValidation)
		}
		return n, nil
	}

	if sel.PlanID == 0 {
		return 0, fmt.Errorf("%w: must choose a plan", errs.ErrValidation)
	}
	for i := range plans {
		if plans[i].ID == sel.PlanID {
			return ConvertToMinutes(plans[i]), nil
		}
	}
	return 0, fmt.Errorf("%w: plan %d", errs.ErrNotFound, sel.PlanID)
}
