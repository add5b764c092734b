package buyers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/propstack/buyer-intake/internal/history"
)

var tracer = otel.Tracer("buyer-intake/buyers")

// PgxPool is the slice of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("buyers: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const leadColumns = `id, owner_id, full_name, email, phone, city, property_type, bhk, purpose,
	budget_min, budget_max, timeline, source, status, notes, tags, revision, created_at, updated_at`

func scanLead(row pgx.Row) (*Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.FullName, &l.Email, &l.Phone, &l.City, &l.PropertyType,
		&l.BHK, &l.Purpose, &l.BudgetMin, &l.BudgetMax, &l.Timeline, &l.Source,
		&l.Status, &l.Notes, &l.Tags, &l.Revision, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
	return &l, nil
}

// Create validates the input, inserts the lead, and appends a "created"
// history entry in the same transaction.
func (r *PostgresRepository) Create(ctx context.Context, ownerID string, in *LeadInput) (*Lead, error) {
	ctx, span := tracer.Start(ctx, "buyers.create")
	defer span.End()

	in.Normalize()
	if fe := in.Validate(); fe != nil {
		return nil, fe
	}

	lead := in.toLead()
	lead.ID = uuid.NewString()
	lead.OwnerID = ownerID
	lead.Revision = 1
	span.SetAttributes(attribute.String("buyers.lead_id", lead.ID))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("buyers: begin create tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertLead(ctx, tx, lead); err != nil {
		return nil, err
	}

	entry, err := history.NewSnapshot(history.ActionCreated, lead.ID, ownerID, in)
	if err != nil {
		return nil, err
	}
	if err := history.Append(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("buyers: commit create tx: %w", err)
	}
	return lead, nil
}

func insertLead(ctx context.Context, tx pgx.Tx, lead *Lead) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO buyers (id, owner_id, full_name, email, phone, city, property_type, bhk,
			purpose, budget_min, budget_max, timeline, source, status, notes, tags, revision)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING created_at, updated_at`,
		lead.ID, lead.OwnerID, lead.FullName, lead.Email, lead.Phone, lead.City,
		lead.PropertyType, lead.BHK, lead.Purpose, lead.BudgetMin, lead.BudgetMax,
		lead.Timeline, lead.Source, lead.Status, lead.Notes, lead.Tags, lead.Revision,
	).Scan(&lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return fmt.Errorf("buyers: insert lead: %w", err)
	}
	return nil
}

// Get fetches a lead scoped to its owner.
func (r *PostgresRepository) Get(ctx context.Context, ownerID, id string) (*Lead, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM buyers WHERE id = $1 AND owner_id = $2`, id, ownerID)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("buyers: select lead: %w", err)
	}
	return lead, nil
}

// Update replaces the record after the optimistic-concurrency check. The
// revision token must match the stored one or the update is rejected with
// ErrConflict and nothing is written. A history entry is appended only when
// at least one field actually changed; updated_at and the revision advance
// either way.
func (r *PostgresRepository) Update(ctx context.Context, ownerID, id string, in *LeadInput, expectedRevision int64) (*Lead, error) {
	ctx, span := tracer.Start(ctx, "buyers.update")
	defer span.End()
	span.SetAttributes(attribute.String("buyers.lead_id", id))

	in.Normalize()
	if fe := in.Validate(); fe != nil {
		return nil, fe
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("buyers: begin update tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanLead(tx.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM buyers WHERE id = $1 AND owner_id = $2 FOR UPDATE`, id, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("buyers: select lead for update: %w", err)
	}
	if current.Revision != expectedRevision {
		return nil, ErrConflict
	}

	next := in.toLead()
	next.ID = current.ID
	next.OwnerID = current.OwnerID
	next.Revision = current.Revision + 1
	next.CreatedAt = current.CreatedAt

	err = tx.QueryRow(ctx, `
		UPDATE buyers SET full_name=$1, email=$2, phone=$3, city=$4, property_type=$5,
			bhk=$6, purpose=$7, budget_min=$8, budget_max=$9, timeline=$10, source=$11,
			status=$12, notes=$13, tags=$14, revision=$15, updated_at=now()
		WHERE id = $16 AND owner_id = $17
		RETURNING updated_at`,
		next.FullName, next.Email, next.Phone, next.City, next.PropertyType, next.BHK,
		next.Purpose, next.BudgetMin, next.BudgetMax, next.Timeline, next.Source,
		next.Status, next.Notes, next.Tags, next.Revision, id, ownerID,
	).Scan(&next.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("buyers: update lead: %w", err)
	}

	if changes := diffLeads(current, next); len(changes) > 0 {
		entry, err := history.NewFieldDiff(id, ownerID, changes)
		if err != nil {
			return nil, err
		}
		if err := history.Append(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("buyers: commit update tx: %w", err)
	}
	return next, nil
}

// buildFilter renders the WHERE clause shared by List, ListAll, and the
// count query. The owner predicate always comes first and is not optional.
func buildFilter(ownerID string, f ListFilter) (string, []any) {
	where := "WHERE owner_id = $1"
	args := []any{ownerID}
	idx := 2

	addEq := func(column, value string) {
		if value == "" {
			return
		}
		where += fmt.Sprintf(" AND %s = $%d", column, idx)
		args = append(args, value)
		idx++
	}
	addEq("city", f.City)
	addEq("property_type", f.PropertyType)
	addEq("status", f.Status)
	addEq("timeline", f.Timeline)

	if f.Search != "" {
		where += fmt.Sprintf(" AND (full_name ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d)", idx, idx, idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	return where, args
}

func orderClause(f ListFilter) string {
	column := sortColumns[f.SortBy]
	direction := "DESC"
	if f.SortOrder == "asc" {
		direction = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}

// List returns one page of leads plus the total across all pages for the
// same predicates.
func (r *PostgresRepository) List(ctx context.Context, ownerID string, f ListFilter) (*ListPage, error) {
	ctx, span := tracer.Start(ctx, "buyers.list")
	defer span.End()

	f.normalize()
	where, args := buildFilter(ownerID, f)

	query := `SELECT ` + leadColumns + ` FROM buyers ` + where + orderClause(f) +
		fmt.Sprintf(" LIMIT %d OFFSET %d", PageSize, (f.Page-1)*PageSize)

	leads, err := r.queryLeads(ctx, query, args)
	if err != nil {
		return nil, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM buyers `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("buyers: count leads: %w", err)
	}

	return &ListPage{
		Leads:      leads,
		Total:      total,
		Page:       f.Page,
		TotalPages: (total + PageSize - 1) / PageSize,
	}, nil
}

// ListAll returns every lead matching the predicates, for export.
func (r *PostgresRepository) ListAll(ctx context.Context, ownerID string, f ListFilter) ([]Lead, error) {
	ctx, span := tracer.Start(ctx, "buyers.list_all")
	defer span.End()

	f.normalize()
	where, args := buildFilter(ownerID, f)
	return r.queryLeads(ctx, `SELECT `+leadColumns+` FROM buyers `+where+orderClause(f), args)
}

func (r *PostgresRepository) queryLeads(ctx context.Context, query string, args []any) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("buyers: query leads: %w", err)
	}
	defer rows.Close()

	out := []Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("buyers: scan lead: %w", err)
		}
		out = append(out, *lead)
	}
	return out, rows.Err()
}

// ImportBatch inserts every row plus its "imported" history entry in one
// transaction. All-or-nothing: one failed insert rolls back the whole batch.
func (r *PostgresRepository) ImportBatch(ctx context.Context, ownerID string, inputs []*LeadInput) (int, error) {
	ctx, span := tracer.Start(ctx, "buyers.import_batch")
	defer span.End()
	span.SetAttributes(attribute.Int("buyers.batch_size", len(inputs)))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("buyers: begin import tx: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, in := range inputs {
		lead := in.toLead()
		lead.ID = uuid.NewString()
		lead.OwnerID = ownerID
		lead.Revision = 1

		if err := insertLead(ctx, tx, lead); err != nil {
			return 0, err
		}
		entry, err := history.NewSnapshot(history.ActionImported, lead.ID, ownerID, in)
		if err != nil {
			return 0, err
		}
		if err := history.Append(ctx, tx, entry); err != nil {
			return 0, err
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("buyers: commit import tx: %w", err)
	}
	return inserted, nil
}
