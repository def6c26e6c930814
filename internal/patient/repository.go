package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const patientColumns = `id, created_by, first_name, last_name, gender,
	to_char(birth_date, 'YYYY-MM-DD'), address, phone, created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(s scanner) (*Patient, error) {
	var p Patient
	err := s.Scan(
		&p.ID,
		&p.CreatedBy,
		&p.FirstName,
		&p.LastName,
		&p.Gender,
		&p.BirthDate,
		&p.Address,
		&p.Phone,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) CreatePatient(ctx context.Context, ownerID string, req CreatePatientRequest) (*Patient, error) {
	query := `
		INSERT INTO patients (created_by, first_name, last_name, gender, birth_date, address, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + patientColumns

	p, err := scanPatient(r.db.QueryRowContext(ctx, query,
		ownerID,
		req.FirstName,
		req.LastName,
		req.Gender,
		req.BirthDate,
		req.Address,
		req.Phone,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert patient: %w", err)
	}
	return p, nil
}

// ListPatients returns the owner's patients newest first and the total
// matching count. limit <= 0 returns every match.
func (r *Repository) ListPatients(ctx context.Context, ownerID, search string, limit, offset int) ([]Patient, int, error) {
	where := "WHERE created_by = $1"
	args := []interface{}{ownerID}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR phone ILIKE $%d)`,
			len(args), len(args), len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM patients "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	query := "SELECT " + patientColumns + " FROM patients " + where + " ORDER BY created_at DESC, id"
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	patients := []Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate patients: %w", err)
	}
	return patients, total, nil
}

func (r *Repository) GetPatient(ctx context.Context, ownerID, id string) (*Patient, error) {
	query := "SELECT " + patientColumns + " FROM patients WHERE id = $1 AND created_by = $2"

	p, err := scanPatient(r.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}
