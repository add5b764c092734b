package buyers

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// leadArgs matches the 17 bind parameters of the lead INSERT and UPDATE
// statements without pinning their values.
func leadArgs() []any {
	args := make([]any, 17)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

// historyArgs matches the 5 bind parameters of the history INSERT.
func historyArgs() []any {
	args := make([]any, 5)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func leadRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "owner_id", "full_name", "email", "phone", "city", "property_type", "bhk",
		"purpose", "budget_min", "budget_max", "timeline", "source", "status", "notes",
		"tags", "revision", "created_at", "updated_at",
	})
}

func addLeadRow(rows *pgxmock.Rows, id, owner string, revision int64) *pgxmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, owner, "Asha Verma", "asha@example.com", "9876543210",
		CityChandigarh, PropertyApartment, BHK2, PurposeBuy,
		intPtr(5000000), intPtr(7500000), TimelineImmediate, SourceWebsite,
		StatusNew, "prefers corner unit", []string{"urgent"}, revision, now, now,
	)
}

func TestPostgresGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(`SELECT (.+) FROM buyers WHERE id = \$1 AND owner_id = \$2`).
		WithArgs("lead-1", "agent-1").
		WillReturnRows(addLeadRow(leadRows(), "lead-1", "agent-1", 3))

	lead, err := repo.Get(context.Background(), "agent-1", "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "lead-1", lead.ID)
	assert.Equal(t, int64(3), lead.Revision)
	assert.Equal(t, CityChandigarh, lead.City)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(`SELECT (.+) FROM buyers WHERE id = \$1 AND owner_id = \$2`).
		WithArgs("missing", "agent-1").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.Get(context.Background(), "agent-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateWritesLeadAndHistory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO buyers`).
		WithArgs(leadArgs()...).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(`INSERT INTO buyer_history`).
		WithArgs(historyArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	in := validInput()
	lead, err := repo.Create(context.Background(), "agent-1", in)
	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, "agent-1", lead.OwnerID)
	assert.Equal(t, int64(1), lead.Revision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateRejectsInvalidInput(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	in := validInput()
	in.FullName = "A"
	_, err = repo.Create(context.Background(), "agent-1", in)

	fe, ok := AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fe, "fullName")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRevisionConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM buyers WHERE id = \$1 AND owner_id = \$2 FOR UPDATE`).
		WithArgs("lead-1", "agent-1").
		WillReturnRows(addLeadRow(leadRows(), "lead-1", "agent-1", 5))
	mock.ExpectRollback()

	_, err = repo.Update(context.Background(), "agent-1", "lead-1", validInput(), 4)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateWritesDiffHistory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	later := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM buyers WHERE id = \$1 AND owner_id = \$2 FOR UPDATE`).
		WithArgs("lead-1", "agent-1").
		WillReturnRows(addLeadRow(leadRows(), "lead-1", "agent-1", 2))
	mock.ExpectQuery(`UPDATE buyers SET`).
		WithArgs(leadArgs()...).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(later))
	mock.ExpectExec(`INSERT INTO buyer_history`).
		WithArgs(historyArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	in := validInput()
	in.Status = string(StatusQualified)

	lead, err := repo.Update(context.Background(), "agent-1", "lead-1", in, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), lead.Revision)
	assert.Equal(t, StatusQualified, lead.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIdenticalUpdateAppendsNoHistory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	later := time.Now()

	// No buyer_history insert is expected: the row is rewritten but the
	// trail stays untouched.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM buyers WHERE id = \$1 AND owner_id = \$2 FOR UPDATE`).
		WithArgs("lead-1", "agent-1").
		WillReturnRows(addLeadRow(leadRows(), "lead-1", "agent-1", 2))
	mock.ExpectQuery(`UPDATE buyers SET`).
		WithArgs(leadArgs()...).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(later))
	mock.ExpectCommit()

	in := &LeadInput{
		FullName:     "Asha Verma",
		Email:        "asha@example.com",
		Phone:        "9876543210",
		City:         string(CityChandigarh),
		PropertyType: string(PropertyApartment),
		BHK:          string(BHK2),
		Purpose:      string(PurposeBuy),
		BudgetMin:    intPtr(5000000),
		BudgetMax:    intPtr(7500000),
		Timeline:     string(TimelineImmediate),
		Source:       string(SourceWebsite),
		Status:       string(StatusNew),
		Notes:        "prefers corner unit",
		Tags:         TagList{"urgent"},
	}

	lead, err := repo.Update(context.Background(), "agent-1", "lead-1", in, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), lead.Revision)
	assert.Equal(t, later, lead.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListFiltersAndCounts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(`SELECT (.+) FROM buyers WHERE owner_id = \$1 AND city = \$2 AND \(full_name ILIKE \$3 OR phone ILIKE \$3 OR email ILIKE \$3\) ORDER BY updated_at DESC LIMIT 10 OFFSET 0`).
		WithArgs("agent-1", "Chandigarh", "%asha%").
		WillReturnRows(addLeadRow(leadRows(), "lead-1", "agent-1", 1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM buyers WHERE owner_id = \$1 AND city = \$2`).
		WithArgs("agent-1", "Chandigarh", "%asha%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(11))

	page, err := repo.List(context.Background(), "agent-1", ListFilter{City: "Chandigarh", Search: "asha"})
	require.NoError(t, err)
	assert.Len(t, page.Leads, 1)
	assert.Equal(t, 11, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresImportBatchAllOrNothing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	now := time.Now()

	mock.ExpectBegin()
	for range 2 {
		mock.ExpectQuery(`INSERT INTO buyers`).
			WithArgs(leadArgs()...).
			WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec(`INSERT INTO buyer_history`).
			WithArgs(historyArgs()...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	n, err := repo.ImportBatch(context.Background(), "agent-1", []*LeadInput{validInput(), validInput()})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
