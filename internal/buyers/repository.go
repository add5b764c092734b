package buyers

import (
	"context"
)

// PageSize is the fixed page size for lead listings.
const PageSize = 10

// ListFilter narrows a listing or export. Zero values mean "no filter".
type ListFilter struct {
	City         string
	PropertyType string
	Status       string
	Timeline     string
	// Search matches fullName, phone, or email as a case-insensitive
	// substring.
	Search    string
	Page      int
	SortBy    string
	SortOrder string
}

// sortColumns is the allow-list of sortable fields. Anything else falls back
// to updatedAt.
var sortColumns = map[string]string{
	"fullName":     "full_name",
	"email":        "email",
	"phone":        "phone",
	"city":         "city",
	"propertyType": "property_type",
	"status":       "status",
	"timeline":     "timeline",
	"budgetMin":    "budget_min",
	"budgetMax":    "budget_max",
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
}

// normalize fills listing defaults: page 1, updatedAt desc.
func (f *ListFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if _, ok := sortColumns[f.SortBy]; !ok {
		f.SortBy = "updatedAt"
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
}

// ListPage is one page of leads plus the unpaginated total.
type ListPage struct {
	Leads      []Lead `json:"buyers"`
	Total      int    `json:"totalCount"`
	Page       int    `json:"page"`
	TotalPages int    `json:"totalPages"`
}

// Repository defines lead storage. Every operation is scoped to the owner;
// the owner predicate is part of the contract, not an optimization.
type Repository interface {
	Create(ctx context.Context, ownerID string, in *LeadInput) (*Lead, error)
	Get(ctx context.Context, ownerID, id string) (*Lead, error)
	// Update replaces the whole record. expectedRevision is the optimistic
	// concurrency token; a mismatch returns ErrConflict without writing.
	Update(ctx context.Context, ownerID, id string, in *LeadInput, expectedRevision int64) (*Lead, error)
	List(ctx context.Context, ownerID string, f ListFilter) (*ListPage, error)
	// ListAll applies the same predicates as List with no pagination; the
	// export pipeline is its only caller.
	ListAll(ctx context.Context, ownerID string, f ListFilter) ([]Lead, error)
	// ImportBatch inserts pre-validated rows and their history entries in
	// one transaction. Any failure rolls back the whole batch.
	ImportBatch(ctx context.Context, ownerID string, rows []*LeadInput) (int, error)
}
