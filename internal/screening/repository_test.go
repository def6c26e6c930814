package screening

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var screeningCols = []string{"id", "patient_id", "first_name", "last_name", "image", "result",
	"parasite_count", "confidence", "notes", "created_at"}

const (
	ownerID   = "8d0c7a4e-5f0f-4a55-9a57-2f3c1f0e9b11"
	patientID = "3f6a1b2c-9d4e-4f8a-8b7c-6d5e4f3a2b1c"
)

func newScreening() NewScreening {
	return NewScreening{
		PatientID:     patientID,
		ImageKey:      "screenings/abc.png",
		Result:        ResultPositive,
		ParasiteCount: 96,
		Confidence:    0.96,
		Notes:         "fever 3 days",
	}
}

func TestRepository_CreateScreening_Commits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM patients WHERE id = $1 AND created_by = $2 FOR SHARE")).
		WithArgs(patientID, ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name"}).AddRow(patientID, "Abebe", "Kebede"))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO screenings")).
		WithArgs(patientID, "screenings/abc.png", ResultPositive, 96, 0.96, "fever 3 days").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("s-1", now))
	mock.ExpectCommit()

	sc, err := NewRepository(db).CreateScreening(context.Background(), ownerID, newScreening())
	require.NoError(t, err)
	assert.Equal(t, "s-1", sc.ID)
	assert.Equal(t, "Abebe", sc.Patient.FirstName)
	assert.Equal(t, ResultPositive, sc.Result)
	assert.Equal(t, now, sc.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateScreening_ForeignPatientRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR SHARE")).
		WithArgs(patientID, ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name"}))
	mock.ExpectRollback()

	_, err = NewRepository(db).CreateScreening(context.Background(), ownerID, newScreening())
	assert.ErrorIs(t, err, ErrPatientNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateScreening_InsertFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR SHARE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name"}).AddRow(patientID, "Abebe", "Kebede"))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO screenings")).
		WillReturnError(errors.New("duplicate key value violates unique constraint"))
	mock.ExpectRollback()

	_, err = NewRepository(db).CreateScreening(context.Background(), ownerID, newScreening())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrPatientNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByPatient_EmptyIsNotNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.created_by = $1 AND s.patient_id = $2 ORDER BY s.created_at DESC")).
		WithArgs(ownerID, patientID).
		WillReturnRows(sqlmock.NewRows(screeningCols))

	list, err := NewRepository(db).ListByPatient(context.Background(), ownerID, patientID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestRepository_ListScreenings_ScopedToOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.created_by = $1 ORDER BY s.created_at DESC, s.id DESC")).
		WithArgs(ownerID).
		WillReturnRows(sqlmock.NewRows(screeningCols).
			AddRow("s-2", patientID, "Abebe", "Kebede", "screenings/b.png", "N", 80, 0.8, "", now).
			AddRow("s-1", patientID, "Abebe", "Kebede", "screenings/a.png", "P", 96, 0.96, "fever", now.Add(-time.Hour)))

	list, err := NewRepository(db).ListScreenings(context.Background(), ownerID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s-2", list[0].ID)
	assert.Equal(t, ResultNegative, list[0].Result)
	assert.Equal(t, "Kebede", list[1].Patient.LastName)
}

func TestRepository_ListScreenings_NullNotes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.created_by = $1")).
		WithArgs(ownerID).
		WillReturnRows(sqlmock.NewRows(screeningCols).
			AddRow("s-3", patientID, "Abebe", "Kebede", "screenings/c.png", "I", 0, 0.0, nil, time.Now()))

	list, err := NewRepository(db).ListScreenings(context.Background(), ownerID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ResultInconclusive, list[0].Result)
	assert.Equal(t, "", list[0].Notes)
}

func TestRepository_ImageOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	query := regexp.QuoteMeta("WHERE s.image = $1 AND p.created_by = $2")
	mock.ExpectQuery(query).
		WithArgs("screenings/a.png", ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"owned"}).AddRow(true))
	mock.ExpectQuery(query).
		WithArgs("screenings/a.png", "someone-else").
		WillReturnRows(sqlmock.NewRows([]string{"owned"}).AddRow(false))
	mock.ExpectQuery(query).
		WithArgs("screenings/a.png", ownerID).
		WillReturnError(errors.New("connection reset"))

	repo := NewRepository(db)
	owned, err := repo.ImageOwned(context.Background(), ownerID, "screenings/a.png")
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = repo.ImageOwned(context.Background(), "someone-else", "screenings/a.png")
	require.NoError(t, err)
	assert.False(t, owned)

	_, err = repo.ImageOwned(context.Background(), ownerID, "screenings/a.png")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetScreening_NotOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.id = $1 AND p.created_by = $2")).
		WithArgs("s-1", "someone-else").
		WillReturnRows(sqlmock.NewRows(screeningCols))

	_, err = NewRepository(db).GetScreening(context.Background(), "someone-else", "s-1")
	assert.ErrorIs(t, err, ErrScreeningNotFound)
}

func TestRepository_Totals(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	since := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE s.result = 'P')")).
		WithArgs(ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"total", "positives"}).AddRow(10, 3))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY day")).
		WithArgs(ownerID, since, "UTC").
		WillReturnRows(sqlmock.NewRows([]string{"day", "count"}).
			AddRow("2024-03-07", 4).
			AddRow("2024-03-13", 6))

	totals, err := NewRepository(db).Totals(context.Background(), ownerID, since, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 10, totals.Total)
	assert.Equal(t, 3, totals.Positives)
	assert.Equal(t, map[string]int{"2024-03-07": 4, "2024-03-13": 6}, totals.Daily)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ReferencedImages(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT image FROM screenings WHERE image = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"image"}).AddRow("screenings/a.png"))

	refs, err := NewRepository(db).ReferencedImages(context.Background(), []string{"screenings/a.png", "screenings/b.png"})
	require.NoError(t, err)
	assert.True(t, refs["screenings/a.png"])
	assert.False(t, refs["screenings/b.png"])

	empty, err := NewRepository(db).ReferencedImages(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}
