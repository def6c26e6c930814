package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/messaging"
)

type Service struct {
	repo      RepositoryInterface
	publisher messaging.PublisherInterface
	metrics   MetricsRecorder
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewService(repo RepositoryInterface, publisher messaging.PublisherInterface, metrics MetricsRecorder, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		log:       logger,
		now:       time.Now,
	}
}

func (s *Service) CreatePatient(ctx context.Context, ownerID string, req CreatePatientRequest) (*Patient, error) {
	if verr := validateCreate(&req, s.now()); verr != nil {
		return nil, verr
	}

	p, err := s.repo.CreatePatient(ctx, ownerID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordPatientOperation(ctx, "create")
	}
	s.publishCreated(ctx, p)
	return p, nil
}

func (s *Service) publishCreated(ctx context.Context, p *Patient) {
	if s.publisher == nil {
		return
	}
	event := messaging.PatientCreatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientCreated),
		Data: messaging.PatientCreatedData{
			PatientID: p.ID,
			CreatedBy: p.CreatedBy,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Gender:    p.Gender,
			CreatedAt: p.CreatedAt,
		},
	}
	if err := s.publisher.Publish(ctx, messaging.EventPatientCreated, event); err != nil {
		s.log.WithError(err).WithField("patient_id", p.ID).Warn("failed to publish patient.created event")
	}
}

func (s *Service) ListPatients(ctx context.Context, ownerID string, params ListParams) ([]Patient, int, error) {
	limit, offset := 0, 0
	if params.Paginate {
		params.Page.Validate()
		limit, offset = params.Page.Limit, params.Page.CalculateOffset()
	}

	patients, total, err := s.repo.ListPatients(ctx, ownerID, params.Search, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, total, nil
}

func (s *Service) GetPatient(ctx context.Context, ownerID, id string) (*Patient, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPatientNotFound
	}
	p, err := s.repo.GetPatient(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}
