package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var appointmentRowColumns = []string{"id", "session_id", "booking_ref", "owner_name", "pet_name", "phone", "preferred_datetime", "status", "notes", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface, time.Time) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	now := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	repo := NewPostgresRepositoryWithDB(mock)
	repo.now = func() time.Time { return now }
	repo.nextID = func() string { return "appt-1" }
	return repo, mock, now
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock, now := newMockRepo(t)
	when := time.Date(2099, 1, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs("appt-1", "sess-1", "ref-1", "Jane Doe", "Fido", "555-111-2222", when, "pending", "", now).
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns).
			AddRow("appt-1", "sess-1", "ref-1", "Jane Doe", "Fido", "555-111-2222", when, "pending", "", now, now))

	appt, err := repo.Create(context.Background(), CreateRequest{
		SessionID: "sess-1", BookingRef: "ref-1", OwnerName: " Jane Doe ", PetName: "Fido", Phone: "555-111-2222", PreferredDateTime: when,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, "appt-1", appt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetNotFound(t *testing.T) {
	repo, mock, _ := newMockRepo(t)

	mock.ExpectQuery("SELECT id, session_id").WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListBuildsFilters(t *testing.T) {
	repo, mock, now := newMockRepo(t)
	from := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE status = \$1 AND preferred_datetime >= \$2 ORDER BY preferred_datetime ASC, created_at ASC LIMIT \$3 OFFSET \$4`).
		WithArgs("confirmed", from, 20, 40).
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns).
			AddRow("appt-1", "sess-1", "ref-1", "Jane Doe", "Fido", "555", from, "confirmed", "", now, now).
			AddRow("appt-2", "sess-2", "ref-2", "Bob", "Rex", "556", from.Add(time.Hour), "confirmed", "", now, now))

	out, err := repo.List(context.Background(), ListFilter{Status: StatusConfirmed, From: &from, Limit: 20, Skip: 40})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "appt-2", out[1].ID)

	mock.ExpectQuery(`FROM appointments ORDER BY preferred_datetime ASC, created_at ASC LIMIT \$1 OFFSET \$2`).
		WithArgs(50, 0).
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns))
	empty, err := repo.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListBySession(t *testing.T) {
	repo, mock, now := newMockRepo(t)

	mock.ExpectQuery("WHERE session_id = \\$1 ORDER BY created_at DESC").
		WithArgs("sess-1").
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns).
			AddRow("appt-1", "sess-1", "ref-1", "Jane Doe", "Fido", "555", now, "pending", "", now, now))

	out, err := repo.ListBySession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateStatus(t *testing.T) {
	repo, mock, now := newMockRepo(t)

	mock.ExpectQuery("UPDATE appointments SET status").
		WithArgs("appt-1", "cancelled", now).
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns).
			AddRow("appt-1", "sess-1", "ref-1", "Jane Doe", "Fido", "555", now, "cancelled", "", now, now))
	mock.ExpectQuery("UPDATE appointments SET status").
		WithArgs("missing", "cancelled", now).
		WillReturnError(pgx.ErrNoRows)

	appt, err := repo.UpdateStatus(context.Background(), "appt-1", StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, appt.Status)

	_, err = repo.UpdateStatus(context.Background(), "missing", StatusCancelled)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.UpdateStatus(context.Background(), "appt-1", Status("bogus"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Stats(t *testing.T) {
	repo, mock, _ := newMockRepo(t)
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("COUNT\\(\\*\\) FILTER").
		WithArgs(start, start.AddDate(0, 0, 1)).
		WillReturnRows(pgxmock.NewRows([]string{"total", "pending", "confirmed", "today"}).AddRow(10, 4, 3, 2))

	stats, err := repo.Stats(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 10, Pending: 4, Confirmed: 3, TodayCount: 2}, *stats)

	mock.ExpectQuery("COUNT\\(\\*\\) FILTER").WillReturnError(errors.New("boom"))
	_, err = repo.Stats(context.Background(), now)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
