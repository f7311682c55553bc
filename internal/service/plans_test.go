package service

import (
	"errors"
	"reflect"
	"testing"

	"github.com/and161185/timetill/internal/errs"
	"github.com/and161185/timetill/internal/model"
)

func TestPlans_Create_Validation(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	if _, err := e.plans.Create(adminSession(), "", 1, model.UnitHours); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("empty name: err=%v, want ErrValidation", err)
	}
	if _, err := e.plans.Create(adminSession(), "bad", 0, model.UnitHours); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("value=0: err=%v, want ErrValidation", err)
	}
	if _, err := e.plans.Create(adminSession(), "bad", 1, model.PlanUnit("eons")); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("unknown unit: err=%v, want ErrValidation", err)
	}
	if _, err := e.plans.Create(userSession(), "day", 1, model.UnitDays); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("non-admin create: err=%v, want ErrUnauthorized", err)
	}
	if len(e.plans.List()) != 0 {
		t.Fatalf("failed creates must not persist plans")
	}
}

func TestPlans_Delete_RoleGating_SequenceUnchanged(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	p1, err := e.plans.Create(adminSession(), "hour", 1, model.UnitHours)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := e.plans.Create(adminSession(), "day", 1, model.UnitDays); err != nil {
		t.Fatalf("Create: %v", err)
	}

	before := e.plans.List()
	if err := e.plans.Delete(userSession(), p1.ID); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("non-admin delete: err=%v, want ErrUnauthorized", err)
	}
	if err := e.plans.Delete(nil, p1.ID); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("anonymous delete: err=%v, want ErrUnauthorized", err)
	}
	after := e.plans.List()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("denied delete changed the plans sequence:\nbefore=%v\nafter=%v", before, after)
	}

	if err := e.plans.Delete(adminSession(), p1.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if len(e.plans.List()) != 1 {
		t.Fatalf("plans=%d, want 1", len(e.plans.List()))
	}
}

func TestPlans_Delete_KeepsResolvedAllowances(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	plan, err := e.plans.Create(adminSession(), "week", 1, model.UnitWeeks)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	u, err := e.users.Create("bob", "password", Selection{PlanID: plan.ID})
	if err != nil {
		t.Fatalf("user Create: %v", err)
	}
	if err := e.plans.Delete(adminSession(), plan.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Allowance is a by-value snapshot; the plan's removal changes nothing.
	for _, got := range e.users.List() {
		if got.Username == "bob" && got.AllowanceMinutes != u.AllowanceMinutes {
			t.Fatalf("allowance changed after plan delete: %d != %d", got.AllowanceMinutes, u.AllowanceMinutes)
		}
	}
}

func TestPlans_Update(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	plan, err := e.plans.Create(adminSession(), "hour", 1, model.UnitHours)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	plan.Name = "two hours"
	plan.Value = 2
	if err := e.plans.Update(userSession(), plan); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("non-admin update: err=%v, want ErrUnauthorized", err)
	}
	if err := e.plans.Update(adminSession(), plan); err != nil {
		t.Fatalf("Update: %v", err)
	}

	missing := model.Plan{ID: 424242, Name: "ghost", Value: 1, Unit: model.UnitHours}
	if err := e.plans.Update(adminSession(), missing); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("missing plan: err=%v, want ErrNotFound", err)
	}

	got := e.plans.List()
	if len(got) != 1 || got[0].Name != "two hours" || got[0].Value != 2 {
		t.Fatalf("update not applied: %+v", got)
	}
}
