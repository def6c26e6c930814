package patient

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var patientCols = []string{"id", "created_by", "first_name", "last_name", "gender", "birth_date", "address", "phone", "created_at"}

func TestRepository_ListPatients_ScopedToOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM patients WHERE created_by = $1 AND (first_name ILIKE $2")).
		WithArgs("owner-1", "%abe%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM patients WHERE created_by = \$1 .* ORDER BY created_at DESC, id LIMIT \$3 OFFSET \$4`).
		WithArgs("owner-1", "%abe%", 20, 0).
		WillReturnRows(sqlmock.NewRows(patientCols).
			AddRow("p-1", "owner-1", "Abebe", "Bikila", "M", "1990-01-01", "Addis", "0911", now))

	patients, total, err := NewRepository(db).ListPatients(context.Background(), "owner-1", "abe", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, patients, 1)
	assert.Equal(t, "1990-01-01", patients[0].BirthDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListPatients_EmptyIsNotNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT`).WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY created_at DESC, id$`).WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows(patientCols))

	patients, _, err := NewRepository(db).ListPatients(context.Background(), "owner-1", "", 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, patients)
	assert.Empty(t, patients)
}

func TestRepository_GetPatient_NotOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM patients WHERE id = $1 AND created_by = $2")).
		WithArgs("p-1", "owner-2").
		WillReturnRows(sqlmock.NewRows(patientCols))

	_, err = NewRepository(db).GetPatient(context.Background(), "owner-2", "p-1")
	assert.ErrorIs(t, err, ErrPatientNotFound)
}
