package screening

import "context"

// Classifier scores an encoded image. *inference.Classifier implements it.
type Classifier interface {
	Classify(ctx context.Context, raw []byte) (float32, error)
}

// ServiceInterface defines the screening intake and query operations.
type ServiceInterface interface {
	Upload(ctx context.Context, ownerID string, in UploadInput) (*ScreeningResponse, error)
	ListAll(ctx context.Context, ownerID string) ([]ScreeningResponse, error)
	ListByPatient(ctx context.Context, ownerID, patientID string) ([]ScreeningResponse, error)
	Get(ctx context.Context, ownerID, id string) (*ScreeningResponse, error)
	Dashboard(ctx context.Context, ownerID string) (*DashboardStats, error)
	ImageVisible(ctx context.Context, ownerID, key string) (bool, error)
}

// MetricsRecorder records screening and inference metrics.
type MetricsRecorder interface {
	RecordScreening(ctx context.Context, result string)
	RecordInference(ctx context.Context, durationMs float64)
	RecordInferenceFailure(ctx context.Context, reason string)
}

var _ ServiceInterface = (*Service)(nil)
