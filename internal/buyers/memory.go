package buyers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/propstack/buyer-intake/internal/history"
)

// MemoryRepository keeps leads in process memory. It backs local development
// without a database and the handler tests. Semantics match the Postgres
// repository, including the revision check and the history trail.
type MemoryRepository struct {
	mu      sync.Mutex
	leads   map[string]*Lead
	entries map[string][]history.Entry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		leads:   make(map[string]*Lead),
		entries: make(map[string][]history.Entry),
	}
}

func (r *MemoryRepository) Create(_ context.Context, ownerID string, in *LeadInput) (*Lead, error) {
	in.Normalize()
	if fe := in.Validate(); fe != nil {
		return nil, fe
	}

	lead := in.toLead()
	lead.ID = uuid.NewString()
	lead.OwnerID = ownerID
	lead.Revision = 1
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	entry, err := history.NewSnapshot(history.ActionCreated, lead.ID, ownerID, in)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[lead.ID] = lead
	r.entries[lead.ID] = append(r.entries[lead.ID], entry)
	return copyLead(lead), nil
}

func (r *MemoryRepository) Get(_ context.Context, ownerID, id string) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok || lead.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return copyLead(lead), nil
}

func (r *MemoryRepository) Update(_ context.Context, ownerID, id string, in *LeadInput, expectedRevision int64) (*Lead, error) {
	in.Normalize()
	if fe := in.Validate(); fe != nil {
		return nil, fe
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.leads[id]
	if !ok || current.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	if current.Revision != expectedRevision {
		return nil, ErrConflict
	}

	next := in.toLead()
	next.ID = current.ID
	next.OwnerID = current.OwnerID
	next.Revision = current.Revision + 1
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = time.Now().UTC()

	if changes := diffLeads(current, next); len(changes) > 0 {
		entry, err := history.NewFieldDiff(id, ownerID, changes)
		if err != nil {
			return nil, err
		}
		r.entries[id] = append(r.entries[id], entry)
	}

	r.leads[id] = next
	return copyLead(next), nil
}

func (r *MemoryRepository) List(ctx context.Context, ownerID string, f ListFilter) (*ListPage, error) {
	f.normalize()
	matched, err := r.ListAll(ctx, ownerID, f)
	if err != nil {
		return nil, err
	}

	total := len(matched)
	start := (f.Page - 1) * PageSize
	if start > total {
		start = total
	}
	end := start + PageSize
	if end > total {
		end = total
	}

	return &ListPage{
		Leads:      matched[start:end],
		Total:      total,
		Page:       f.Page,
		TotalPages: (total + PageSize - 1) / PageSize,
	}, nil
}

func (r *MemoryRepository) ListAll(_ context.Context, ownerID string, f ListFilter) ([]Lead, error) {
	f.normalize()

	r.mu.Lock()
	defer r.mu.Unlock()

	matched := []Lead{}
	for _, lead := range r.leads {
		if lead.OwnerID != ownerID || !matches(lead, f) {
			continue
		}
		matched = append(matched, *copyLead(lead))
	}
	sortLeads(matched, f)
	return matched, nil
}

func (r *MemoryRepository) ImportBatch(_ context.Context, ownerID string, rows []*LeadInput) (int, error) {
	leads := make([]*Lead, 0, len(rows))
	entries := make([]history.Entry, 0, len(rows))
	now := time.Now().UTC()

	for _, in := range rows {
		lead := in.toLead()
		lead.ID = uuid.NewString()
		lead.OwnerID = ownerID
		lead.Revision = 1
		lead.CreatedAt = now
		lead.UpdatedAt = now

		entry, err := history.NewSnapshot(history.ActionImported, lead.ID, ownerID, in)
		if err != nil {
			return 0, err
		}
		leads = append(leads, lead)
		entries = append(entries, entry)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, lead := range leads {
		r.leads[lead.ID] = lead
		r.entries[lead.ID] = append(r.entries[lead.ID], entries[i])
	}
	return len(leads), nil
}

// ListForBuyer returns the lead's history newest first, owner scoped. It
// mirrors history.Service for deployments running without a database.
func (r *MemoryRepository) ListForBuyer(_ context.Context, buyerID, ownerID string) ([]history.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[buyerID]
	if !ok || lead.OwnerID != ownerID {
		return []history.Entry{}, nil
	}

	entries := append([]history.Entry{}, r.entries[buyerID]...)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ChangedAt.After(entries[j].ChangedAt)
	})
	return entries, nil
}

func matches(lead *Lead, f ListFilter) bool {
	if f.City != "" && string(lead.City) != f.City {
		return false
	}
	if f.PropertyType != "" && string(lead.PropertyType) != f.PropertyType {
		return false
	}
	if f.Status != "" && string(lead.Status) != f.Status {
		return false
	}
	if f.Timeline != "" && string(lead.Timeline) != f.Timeline {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(lead.FullName), needle) &&
			!strings.Contains(strings.ToLower(lead.Phone), needle) &&
			!strings.Contains(strings.ToLower(lead.Email), needle) {
			return false
		}
	}
	return true
}

func sortLeads(leads []Lead, f ListFilter) {
	sort.SliceStable(leads, func(i, j int) bool {
		a, b := leads[i], leads[j]
		var less bool
		switch f.SortBy {
		case "fullName":
			less = a.FullName < b.FullName
		case "createdAt":
			less = a.CreatedAt.Before(b.CreatedAt)
		case "status":
			less = a.Status < b.Status
		default:
			less = a.UpdatedAt.Before(b.UpdatedAt)
		}
		if f.SortOrder == "asc" {
			return less
		}
		return !less
	})
}

func copyLead(l *Lead) *Lead {
	out := *l
	out.Tags = append([]string{}, l.Tags...)
	if l.BudgetMin != nil {
		v := *l.BudgetMin
		out.BudgetMin = &v
	}
	if l.BudgetMax != nil {
		v := *l.BudgetMax
		out.BudgetMax = &v
	}
	return &out
}
