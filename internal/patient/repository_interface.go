package patient

import "context"

// RepositoryInterface defines the contract for patient data access. Every
// read is scoped to the owning user.
type RepositoryInterface interface {
	CreatePatient(ctx context.Context, ownerID string, req CreatePatientRequest) (*Patient, error)
	ListPatients(ctx context.Context, ownerID, search string, limit, offset int) ([]Patient, int, error)
	GetPatient(ctx context.Context, ownerID, id string) (*Patient, error)
}

var _ RepositoryInterface = (*Repository)(nil)
