package screening

import (
	"context"
	"time"
)

// RepositoryInterface defines screening data access. Every read is scoped to
// the user who created the screened patient.
type RepositoryInterface interface {
	PatientSummary(ctx context.Context, ownerID, patientID string) (*PatientSummary, error)
	CreateScreening(ctx context.Context, ownerID string, in NewScreening) (*Screening, error)
	ListScreenings(ctx context.Context, ownerID string) ([]Screening, error)
	ListByPatient(ctx context.Context, ownerID, patientID string) ([]Screening, error)
	GetScreening(ctx context.Context, ownerID, id string) (*Screening, error)
	Totals(ctx context.Context, ownerID string, since time.Time, loc *time.Location) (*Totals, error)
	ImageOwned(ctx context.Context, ownerID, key string) (bool, error)
	ReferencedImages(ctx context.Context, keys []string) (map[string]bool, error)
}

var _ RepositoryInterface = (*Repository)(nil)
