package buyers

import (
	"slices"

	"github.com/propstack/buyer-intake/internal/history"
)

// diffLeads compares every declared lead field except identity, revision, and
// timestamps, and returns the changed ones keyed by json field name. An empty
// map means the update carried no visible change.
func diffLeads(oldLead, newLead *Lead) map[string]history.FieldChange {
	changes := map[string]history.FieldChange{}

	addString := func(field, from, to string) {
		if from != to {
			changes[field] = history.FieldChange{From: from, To: to}
		}
	}

	addString("fullName", oldLead.FullName, newLead.FullName)
	addString("email", oldLead.Email, newLead.Email)
	addString("phone", oldLead.Phone, newLead.Phone)
	addString("city", string(oldLead.City), string(newLead.City))
	addString("propertyType", string(oldLead.PropertyType), string(newLead.PropertyType))
	addString("bhk", string(oldLead.BHK), string(newLead.BHK))
	addString("purpose", string(oldLead.Purpose), string(newLead.Purpose))
	addString("timeline", string(oldLead.Timeline), string(newLead.Timeline))
	addString("source", string(oldLead.Source), string(newLead.Source))
	addString("status", string(oldLead.Status), string(newLead.Status))
	addString("notes", oldLead.Notes, newLead.Notes)

	if !intPtrEqual(oldLead.BudgetMin, newLead.BudgetMin) {
		changes["budgetMin"] = history.FieldChange{From: intPtrValue(oldLead.BudgetMin), To: intPtrValue(newLead.BudgetMin)}
	}
	if !intPtrEqual(oldLead.BudgetMax, newLead.BudgetMax) {
		changes["budgetMax"] = history.FieldChange{From: intPtrValue(oldLead.BudgetMax), To: intPtrValue(newLead.BudgetMax)}
	}
	if !slices.Equal(oldLead.Tags, newLead.Tags) {
		changes["tags"] = history.FieldChange{From: oldLead.Tags, To: newLead.Tags}
	}

	return changes
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// intPtrValue keeps nil budgets as JSON null in the diff payload.
func intPtrValue(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
