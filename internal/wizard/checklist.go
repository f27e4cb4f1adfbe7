// Package wizard owns the requirement-creation wizard's server-side rules:
// which fields are mandatory for the selected category, which wizard step each
// field lives on, and how raw backend validation messages map back to fields.
package wizard

import (
	"strings"

	"github.com/shopspring/decimal"

	"procurehub/internal/model"
)

// Wizard steps, in presentation order
const (
	StepBasics    = 1 // title, category, priority
	StepDetails   = 2 // category-specific fields
	StepDocuments = 3 // attachments (never mandatory)
	StepBudget    = 4 // estimated budget, deadline
)

// StepName returns the display name for a wizard step.
func StepName(step int) string {
	switch step {
	case StepBasics:
		return "Basic Information"
	case StepDetails:
		return "Requirement Details"
	case StepDocuments:
		return "Documents"
	case StepBudget:
		return "Budget & Timeline"
	default:
		return "Unknown"
	}
}

// FieldStatus reports one required field's completion state.
type FieldStatus struct {
	Field     string `json:"field"`
	Label     string `json:"label"`
	Step      int    `json:"step"`
	StepName  string `json:"step_name"`
	Completed bool   `json:"completed"`
}

// Checklist returns the ordered required-field list for the requirement's
// category with per-field completion. A nil requirement yields the base
// fields, all incomplete — malformed input never passes validation.
func Checklist(r *model.Requirement) []FieldStatus {
	if r == nil {
		r = &model.Requirement{}
	}

	list := []FieldStatus{
		field("title", "Title", StepBasics, strings.TrimSpace(r.Title) != ""),
		field("category", "Category", StepBasics, r.Category != ""),
		field("priority", "Priority", StepBasics, r.Priority != ""),
	}

	switch r.Category {
	case model.CategoryProduct:
		list = append(list,
			field("productSpecifications", "Product Specifications", StepDetails, strings.TrimSpace(r.ProductSpecifications) != ""),
			field("quantity", "Quantity", StepDetails, r.Quantity > 0),
		)
	case model.CategoryExpert:
		list = append(list,
			field("specialization", "Specialization", StepDetails, strings.TrimSpace(r.Specialization) != ""),
			field("description", "Description", StepDetails, strings.TrimSpace(r.Description) != ""),
		)
	case model.CategoryService:
		list = append(list,
			field("serviceDescription", "Service Description", StepDetails, strings.TrimSpace(r.ServiceDescription) != ""),
			field("scopeOfWork", "Scope of Work", StepDetails, strings.TrimSpace(r.ScopeOfWork) != ""),
		)
	case model.CategoryLogistics:
		list = append(list,
			field("equipmentType", "Equipment Type", StepDetails, strings.TrimSpace(r.EquipmentType) != ""),
			field("pickupLocation", "Pickup Location", StepDetails, strings.TrimSpace(r.PickupLocation) != ""),
			field("deliveryLocation", "Delivery Location", StepDetails, strings.TrimSpace(r.DeliveryLocation) != ""),
		)
	}

	list = append(list,
		field("estimatedBudget", "Estimated Budget", StepBudget, r.EstimatedBudget.GreaterThan(decimal.Zero)),
		field("deadline", "Deadline", StepBudget, r.Deadline != nil && !r.Deadline.IsZero()),
	)

	return list
}

// Complete reports aggregate completion — every required field done.
func Complete(r *model.Requirement) bool {
	for _, f := range Checklist(r) {
		if !f.Completed {
			return false
		}
	}
	return true
}

func field(name, label string, step int, completed bool) FieldStatus {
	return FieldStatus{
		Field:     name,
		Label:     label,
		Step:      step,
		StepName:  StepName(step),
		Completed: completed,
	}
}
