package wizard

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"procurehub/internal/model"
)

func completedSet(list []FieldStatus) map[string]bool {
	out := make(map[string]bool, len(list))
	for _, f := range list {
		out[f.Field] = f.Completed
	}
	return out
}

func fieldNames(list []FieldStatus) []string {
	out := make([]string, 0, len(list))
	for _, f := range list {
		out = append(out, f.Field)
	}
	return out
}

func deadline() *time.Time {
	d := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestChecklistBaseFieldsAlwaysPresent(t *testing.T) {
	for _, category := range []string{"", model.CategoryProduct, model.CategoryService, model.CategoryExpert, model.CategoryLogistics} {
		list := Checklist(&model.Requirement{Category: category})
		names := fieldNames(list)
		for _, want := range []string{"title", "category", "priority", "estimatedBudget", "deadline"} {
			found := false
			for _, n := range names {
				if n == want {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("category %q: field %s missing from checklist %v", category, want, names)
			}
		}
	}
}

func TestChecklistProductCategory(t *testing.T) {
	r := &model.Requirement{
		Title:    "500 steel brackets",
		Category: model.CategoryProduct,
		Priority: model.PriorityHigh,

		ProductSpecifications: "Grade 304 stainless, 5mm",
		Quantity:              0, // not yet filled
		EstimatedBudget:       decimal.NewFromInt(25000),
		Deadline:              deadline(),
	}

	done := completedSet(Checklist(r))
	if done["quantity"] {
		t.Error("quantity 0 reported complete")
	}
	if !done["productSpecifications"] {
		t.Error("productSpecifications reported incomplete")
	}
	if Complete(r) {
		t.Error("aggregate completion true with quantity missing")
	}

	r.Quantity = 500
	if !Complete(r) {
		t.Errorf("aggregate completion false with every field filled: %+v", completedSet(Checklist(r)))
	}
}

func TestChecklistExpertCategory(t *testing.T) {
	r := &model.Requirement{
		Title:           "Structural audit",
		Category:        model.CategoryExpert,
		Priority:        model.PriorityMedium,
		Specialization:  "Civil engineering",
		EstimatedBudget: decimal.NewFromInt(8000),
		Deadline:        deadline(),
	}

	done := completedSet(Checklist(r))
	if done["description"] {
		t.Error("blank description reported complete")
	}
	if !done["specialization"] {
		t.Error("specialization reported incomplete")
	}

	// Whitespace-only text does not count
	r.Description = "   "
	if completedSet(Checklist(r))["description"] {
		t.Error("whitespace-only description reported complete")
	}

	r.Description = "Inspect load-bearing walls of plant B"
	if !Complete(r) {
		t.Error("aggregate completion false with every field filled")
	}
}

func TestChecklistLogisticsCategory(t *testing.T) {
	r := &model.Requirement{
		Title:           "Freight to Pune",
		Category:        model.CategoryLogistics,
		Priority:        model.PriorityLow,
		EquipmentType:   "20ft container",
		PickupLocation:  "Chennai port",
		EstimatedBudget: decimal.NewFromInt(12000),
		Deadline:        deadline(),
	}

	if completedSet(Checklist(r))["deliveryLocation"] {
		t.Error("blank deliveryLocation reported complete")
	}

	r.DeliveryLocation = "Pune warehouse 4"
	if !Complete(r) {
		t.Error("aggregate completion false with every field filled")
	}
}

func TestChecklistBudgetMustBePositive(t *testing.T) {
	r := &model.Requirement{
		Title:              "Office cleaning",
		Category:           model.CategoryService,
		Priority:           model.PriorityLow,
		ServiceDescription: "Weekly deep clean",
		ScopeOfWork:        "Two floors, shared kitchen",
		Deadline:           deadline(),
	}

	if completedSet(Checklist(r))["estimatedBudget"] {
		t.Error("zero budget reported complete")
	}

	r.EstimatedBudget = decimal.NewFromInt(-5)
	if completedSet(Checklist(r))["estimatedBudget"] {
		t.Error("negative budget reported complete")
	}

	r.EstimatedBudget = decimal.NewFromFloat(0.01)
	if !completedSet(Checklist(r))["estimatedBudget"] {
		t.Error("positive budget reported incomplete")
	}
}

func TestChecklistNilRequirement(t *testing.T) {
	list := Checklist(nil)
	if len(list) == 0 {
		t.Fatal("nil requirement produced empty checklist")
	}
	for _, f := range list {
		if f.Completed {
			t.Errorf("nil requirement reports %s complete", f.Field)
		}
	}
	if Complete(nil) {
		t.Error("nil requirement reported complete")
	}
}

func TestChecklistStepAssignments(t *testing.T) {
	r := &model.Requirement{Category: model.CategoryProduct}
	for _, f := range Checklist(r) {
		switch f.Field {
		case "title", "category", "priority":
			if f.Step != StepBasics {
				t.Errorf("%s on step %d, want %d", f.Field, f.Step, StepBasics)
			}
		case "productSpecifications", "quantity":
			if f.Step != StepDetails {
				t.Errorf("%s on step %d, want %d", f.Field, f.Step, StepDetails)
			}
		case "estimatedBudget", "deadline":
			if f.Step != StepBudget {
				t.Errorf("%s on step %d, want %d", f.Field, f.Step, StepBudget)
			}
		}
		if f.StepName != StepName(f.Step) {
			t.Errorf("%s step name %q does not match step %d", f.Field, f.StepName, f.Step)
		}
	}
}
