package patient

import "context"

// ServiceInterface defines the contract for patient business logic operations
type ServiceInterface interface {
	CreatePatient(ctx context.Context, ownerID string, req CreatePatientRequest) (*Patient, error)
	ListPatients(ctx context.Context, ownerID string, params ListParams) ([]Patient, int, error)
	GetPatient(ctx context.Context, ownerID, id string) (*Patient, error)
}

// MetricsRecorder records patient operations.
type MetricsRecorder interface {
	RecordPatientOperation(ctx context.Context, operation string)
}

var _ ServiceInterface = (*Service)(nil)
