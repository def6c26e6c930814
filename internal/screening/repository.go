package screening

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const screeningSelect = `
	SELECT s.id, p.id, p.first_name, p.last_name, s.image, s.result,
		s.parasite_count, s.confidence, s.notes, s.created_at
	FROM screenings s
	JOIN patients p ON p.id = s.patient_id`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanScreening(s scanner) (*Screening, error) {
	var sc Screening
	var notes sql.NullString
	err := s.Scan(
		&sc.ID,
		&sc.Patient.ID,
		&sc.Patient.FirstName,
		&sc.Patient.LastName,
		&sc.ImageKey,
		&sc.Result,
		&sc.ParasiteCount,
		&sc.Confidence,
		&notes,
		&sc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sc.Notes = notes.String
	return &sc, nil
}

// PatientSummary returns the patient if it exists and belongs to ownerID.
func (r *Repository) PatientSummary(ctx context.Context, ownerID, patientID string) (*PatientSummary, error) {
	var p PatientSummary
	err := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name FROM patients WHERE id = $1 AND created_by = $2`,
		patientID, ownerID,
	).Scan(&p.ID, &p.FirstName, &p.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up patient: %w", err)
	}
	return &p, nil
}

// CreateScreening inserts the row in one transaction. The patient row is
// share-locked so it cannot be deleted or reassigned between the ownership
// check and the insert.
func (r *Repository) CreateScreening(ctx context.Context, ownerID string, in NewScreening) (*Screening, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sc := Screening{
		ImageKey:      in.ImageKey,
		Result:        in.Result,
		ParasiteCount: in.ParasiteCount,
		Confidence:    in.Confidence,
		Notes:         in.Notes,
	}

	err = tx.QueryRowContext(ctx,
		`SELECT id, first_name, last_name FROM patients WHERE id = $1 AND created_by = $2 FOR SHARE`,
		in.PatientID, ownerID,
	).Scan(&sc.Patient.ID, &sc.Patient.FirstName, &sc.Patient.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock patient: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO screenings (patient_id, image, result, parasite_count, confidence, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		in.PatientID, in.ImageKey, in.Result, in.ParasiteCount, in.Confidence, in.Notes,
	).Scan(&sc.ID, &sc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert screening: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit screening: %w", err)
	}
	return &sc, nil
}

func (r *Repository) listWhere(ctx context.Context, where string, args ...interface{}) ([]Screening, error) {
	query := screeningSelect + " " + where + " ORDER BY s.created_at DESC, s.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query screenings: %w", err)
	}
	defer rows.Close()

	out := []Screening{}
	for rows.Next() {
		sc, err := scanScreening(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan screening: %w", err)
		}
		out = append(out, *sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate screenings: %w", err)
	}
	return out, nil
}

// ListScreenings returns every screening of the owner's patients, newest first.
func (r *Repository) ListScreenings(ctx context.Context, ownerID string) ([]Screening, error) {
	return r.listWhere(ctx, "WHERE p.created_by = $1", ownerID)
}

// ListByPatient returns an empty slice for unknown or foreign patients.
func (r *Repository) ListByPatient(ctx context.Context, ownerID, patientID string) ([]Screening, error) {
	return r.listWhere(ctx, "WHERE p.created_by = $1 AND s.patient_id = $2", ownerID, patientID)
}

func (r *Repository) GetScreening(ctx context.Context, ownerID, id string) (*Screening, error) {
	sc, err := scanScreening(r.db.QueryRowContext(ctx,
		screeningSelect+" WHERE s.id = $1 AND p.created_by = $2", id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScreeningNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get screening: %w", err)
	}
	return sc, nil
}

// Totals counts the owner's screenings and buckets those created since
// `since` by calendar day in the given location.
func (r *Repository) Totals(ctx context.Context, ownerID string, since time.Time, loc *time.Location) (*Totals, error) {
	t := &Totals{Daily: map[string]int{}}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE s.result = 'P')
		FROM screenings s
		JOIN patients p ON p.id = s.patient_id
		WHERE p.created_by = $1`, ownerID,
	).Scan(&t.Total, &t.Positives)
	if err != nil {
		return nil, fmt.Errorf("failed to count screenings: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(s.created_at AT TIME ZONE $3, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM screenings s
		JOIN patients p ON p.id = s.patient_id
		WHERE p.created_by = $1 AND s.created_at >= $2
		GROUP BY day`, ownerID, since, loc.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		t.Daily[day] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily counts: %w", err)
	}
	return t, nil
}

// ImageOwned reports whether key is the image of a screening whose patient
// belongs to ownerID.
func (r *Repository) ImageOwned(ctx context.Context, ownerID, key string) (bool, error) {
	var owned bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM screenings s
			JOIN patients p ON p.id = s.patient_id
			WHERE s.image = $1 AND p.created_by = $2
		)`,
		key, ownerID,
	).Scan(&owned)
	if err != nil {
		return false, fmt.Errorf("failed to check image owner: %w", err)
	}
	return owned, nil
}

// ReferencedImages returns the subset of keys that some screening row points at.
func (r *Repository) ReferencedImages(ctx context.Context, keys []string) (map[string]bool, error) {
	refs := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return refs, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT image FROM screenings WHERE image = ANY($1)`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to query referenced images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan image key: %w", err)
		}
		refs[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate image keys: %w", err)
	}
	return refs, nil
}
