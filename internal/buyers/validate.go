package buyers

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. Field names in reported errors
// follow the json tags so handlers can echo them straight back to the client.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(leadInputStructLevel, LeadInput{})
	return v
}

// leadInputStructLevel holds the two cross-field rules: BHK is mandatory for
// Apartment and Villa, and budgetMax must not undercut budgetMin.
func leadInputStructLevel(sl validator.StructLevel) {
	in := sl.Current().Interface().(LeadInput)

	if PropertyType(in.PropertyType).RequiresBHK() && in.BHK == "" {
		sl.ReportError(in.BHK, "bhk", "BHK", "bhk_required", "")
	}
	if in.BudgetMin != nil && in.BudgetMax != nil && *in.BudgetMax < *in.BudgetMin {
		sl.ReportError(in.BudgetMax, "budgetMax", "BudgetMax", "budget_range", "")
	}
}

// Validate checks the already-normalized input in one pass and returns every
// field error at once, keyed by json field name.
func (in *LeadInput) Validate() FieldErrors {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{"_": err.Error()}
	}

	fe := make(FieldErrors, len(verrs))
	for _, ve := range verrs {
		field := ve.Field()
		// First error per field wins; later tags on the same field would
		// only repeat the problem.
		if _, seen := fe[field]; !seen {
			fe[field] = messageFor(ve)
		}
	}
	return fe
}

func messageFor(ve validator.FieldError) string {
	switch ve.Tag() {
	case "bhk_required":
		return "BHK is required for Apartment and Villa"
	case "budget_range":
		return "Budget max must be greater than or equal to budget min"
	}

	switch ve.Field() {
	case "fullName":
		return "Full name must be at least 2 characters"
	case "phone":
		return "Phone must be 10-15 digits"
	case "email":
		return "Invalid email"
	case "notes":
		return "Notes must be less than 1000 characters"
	case "budgetMin", "budgetMax":
		return "Budget must be a positive number"
	}

	switch ve.Tag() {
	case "required":
		return ve.Field() + " is required"
	case "oneof":
		return ve.Field() + " must be one of: " + strings.ReplaceAll(ve.Param(), " ", ", ")
	}
	return ve.Field() + " is invalid"
}
