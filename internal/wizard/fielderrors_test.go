package wizard

import "testing"

func TestMapValidationMessageQuotedField(t *testing.T) {
	fe, ok := MapValidationMessage(`"title" is not allowed to be empty`)
	if !ok {
		t.Fatal("known field not resolved")
	}
	if fe.Field != "title" || fe.Step != StepBasics {
		t.Errorf("resolved %+v", fe)
	}
	if fe.Message != "Title is required" {
		t.Errorf("message %q", fe.Message)
	}
}

func TestMapValidationMessageSnakeCaseAlias(t *testing.T) {
	fe, ok := MapValidationMessage(`"estimated_budget" must be greater than 0`)
	if !ok {
		t.Fatal("snake_case alias not resolved")
	}
	if fe.Field != "estimatedBudget" || fe.Step != StepBudget {
		t.Errorf("resolved %+v", fe)
	}
	if fe.Message != "Estimated Budget must be greater than zero" {
		t.Errorf("message %q", fe.Message)
	}
}

func TestMapValidationMessageUnsupportedValue(t *testing.T) {
	fe, ok := MapValidationMessage(`"category" must be one of the supported values`)
	if !ok {
		t.Fatal("known field not resolved")
	}
	if fe.Message != "Category has an unsupported value" {
		t.Errorf("message %q", fe.Message)
	}
}

func TestMapValidationMessageUnknownField(t *testing.T) {
	if _, ok := MapValidationMessage(`"warpDrive" is not allowed to be empty`); ok {
		t.Error("unknown field resolved")
	}
}

func TestMapValidationMessageNoQuotedField(t *testing.T) {
	if _, ok := MapValidationMessage("something went wrong"); ok {
		t.Error("message without a quoted field resolved")
	}
}

func TestMapValidationMessagePassthrough(t *testing.T) {
	fe, ok := MapValidationMessage(`"quantity" has a weird problem`)
	if !ok {
		t.Fatal("known field not resolved")
	}
	if fe.Message != `"quantity" has a weird problem` {
		t.Errorf("unrecognized message was rewritten: %q", fe.Message)
	}
}
