package wizard

import (
	"regexp"
	"strings"
)

// FieldError is a validation failure resolved to a wizard field so the UI can
// route the user to the offending step.
type FieldError struct {
	Field    string `json:"field"`
	Label    string `json:"label"`
	Step     int    `json:"step"`
	StepName string `json:"step_name"`
	Message  string `json:"message"`
}

// fieldRegistry maps every known field name (and common aliases) to its label
// and wizard step.
var fieldRegistry = map[string]struct {
	label string
	step  int
}{
	"title":                 {"Title", StepBasics},
	"category":              {"Category", StepBasics},
	"priority":              {"Priority", StepBasics},
	"productSpecifications": {"Product Specifications", StepDetails},
	"quantity":              {"Quantity", StepDetails},
	"specialization":        {"Specialization", StepDetails},
	"description":           {"Description", StepDetails},
	"serviceDescription":    {"Service Description", StepDetails},
	"scopeOfWork":           {"Scope of Work", StepDetails},
	"equipmentType":         {"Equipment Type", StepDetails},
	"pickupLocation":        {"Pickup Location", StepDetails},
	"deliveryLocation":      {"Delivery Location", StepDetails},
	"documents":             {"Documents", StepDocuments},
	"estimatedBudget":       {"Estimated Budget", StepBudget},
	"deadline":              {"Deadline", StepBudget},
}

// Matches messages like: "title" is not allowed to be empty
var quotedFieldRe = regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_]*)"`)

// MapValidationMessage resolves a raw validation message to a field error.
// The second return is false when no known field can be identified; callers
// then surface the message unrouted.
func MapValidationMessage(msg string) (FieldError, bool) {
	m := quotedFieldRe.FindStringSubmatch(msg)
	if m == nil {
		return FieldError{}, false
	}

	name := normalizeField(m[1])
	entry, ok := fieldRegistry[name]
	if !ok {
		return FieldError{}, false
	}

	return FieldError{
		Field:    name,
		Label:    entry.label,
		Step:     entry.step,
		StepName: StepName(entry.step),
		Message:  friendlyMessage(msg, entry.label),
	}, true
}

// normalizeField converts snake_case aliases to the canonical camelCase name.
func normalizeField(name string) string {
	if _, ok := fieldRegistry[name]; ok {
		return name
	}
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return name
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

func friendlyMessage(raw, label string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "not allowed to be empty"), strings.Contains(lower, "required"):
		return label + " is required"
	case strings.Contains(lower, "must be greater"):
		return label + " must be greater than zero"
	case strings.Contains(lower, "must be one of"):
		return label + " has an unsupported value"
	default:
		return raw
	}
}
