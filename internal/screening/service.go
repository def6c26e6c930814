package screening

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/blob"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/inference"
	"github.com/edasaruhan/FTL-Ethiopia-ML2-Gr16/internal/messaging"
)

const (
	msgRequired = "This field is required."
	msgReadOnly = "This field is read-only."
)

// ReadOnlyFields are derived by the service and may not be supplied by clients.
var ReadOnlyFields = []string{"result", "parasite_count", "confidence"}

// Options configures the intake service.
type Options struct {
	KeyPrefix      string
	MaxUploadBytes int64
	Location       *time.Location
}

type Service struct {
	repo       RepositoryInterface
	classifier Classifier
	blobs      blob.Store
	publisher  messaging.PublisherInterface
	metrics    MetricsRecorder
	log        logrus.FieldLogger
	opts       Options
	now        func() time.Time
	newID      func() string
}

// NewService wires the intake and query service. classifier may be nil when
// the model failed to load; uploads then fail with inference.ErrModelUnavailable.
func NewService(repo RepositoryInterface, classifier Classifier, blobs blob.Store, publisher messaging.PublisherInterface,
	metrics MetricsRecorder, logger logrus.FieldLogger, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "screenings/"
	}
	return &Service{
		repo:       repo,
		classifier: classifier,
		blobs:      blobs,
		publisher:  publisher,
		metrics:    metrics,
		log:        logger,
		opts:       opts,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

func (s *Service) validate(in UploadInput) *ValidationError {
	fields := map[string]string{}
	for _, f := range in.ReadOnly {
		fields[f] = msgReadOnly
	}
	if in.PatientID == "" {
		fields["patient"] = msgRequired
	} else if _, err := uuid.Parse(in.PatientID); err != nil {
		fields["patient"] = fmt.Sprintf("%q is not a valid UUID.", in.PatientID)
	}
	if in.Image == nil {
		fields["image"] = "No file was submitted."
	} else if len(in.Image) == 0 {
		fields["image"] = "The submitted file is empty."
	} else if s.opts.MaxUploadBytes > 0 && int64(len(in.Image)) > s.opts.MaxUploadBytes {
		fields["image"] = fmt.Sprintf("Ensure this file is no larger than %d bytes.", s.opts.MaxUploadBytes)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func patientMissing(id string) *ValidationError {
	return &ValidationError{Fields: map[string]string{
		"patient": fmt.Sprintf("Invalid pk %q - object does not exist.", id),
	}}
}

// Upload runs the intake pipeline: validate, check ownership, classify,
// store the image, insert the row. On any error no row exists and no image
// is left behind.
func (s *Service) Upload(ctx context.Context, ownerID string, in UploadInput) (*ScreeningResponse, error) {
	if verr := s.validate(in); verr != nil {
		return nil, verr
	}

	if _, err := s.repo.PatientSummary(ctx, ownerID, in.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, patientMissing(in.PatientID)
		}
		return nil, fmt.Errorf("failed to check patient: %w", err)
	}

	if s.classifier == nil {
		return nil, inference.ErrModelUnavailable
	}

	start := time.Now()
	score, err := s.classifier.Classify(ctx, in.Image)
	if err != nil {
		var ierr *inference.InferenceError
		if errors.As(err, &ierr) && s.metrics != nil {
			s.metrics.RecordInferenceFailure(ctx, ierr.Reason)
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordInference(ctx, float64(time.Since(start).Microseconds())/1000)
	}

	d := Derive(score)

	contentType := http.DetectContentType(in.Image)
	key := s.opts.KeyPrefix + s.newID() + extensionFor(contentType)
	if err := s.blobs.Put(ctx, key, bytes.NewReader(in.Image), int64(len(in.Image)), contentType); err != nil {
		return nil, &PersistenceError{Op: "store image", Err: err}
	}

	sc, err := s.repo.CreateScreening(ctx, ownerID, NewScreening{
		PatientID:     in.PatientID,
		ImageKey:      key,
		Result:        d.Result,
		ParasiteCount: d.ParasiteCount,
		Confidence:    d.Confidence,
		Notes:         in.Notes,
	})
	if err != nil {
		s.discardBlob(key)
		if errors.Is(err, ErrPatientNotFound) {
			return nil, patientMissing(in.PatientID)
		}
		return nil, &PersistenceError{Op: "insert screening", Err: err}
	}

	if s.metrics != nil {
		s.metrics.RecordScreening(ctx, string(sc.Result))
	}
	s.publishCreated(ctx, ownerID, sc)

	s.log.WithFields(logrus.Fields{
		"screening_id": sc.ID,
		"patient_id":   sc.Patient.ID,
		"result":       sc.Result,
		"confidence":   sc.Confidence,
	}).Info("screening created")

	resp := s.toResponse(*sc)
	return &resp, nil
}

// discardBlob runs detached from the request context so a cancelled request
// still cleans up. Failures are left for the sweep job.
func (s *Service) discardBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Error("failed to delete image after aborted upload")
	}
}

func (s *Service) publishCreated(ctx context.Context, ownerID string, sc *Screening) {
	if s.publisher == nil {
		return
	}
	event := messaging.ScreeningCreatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventScreeningCreated),
		Data: messaging.ScreeningCreatedData{
			ScreeningID:   sc.ID,
			PatientID:     sc.Patient.ID,
			CreatedBy:     ownerID,
			Result:        string(sc.Result),
			ParasiteCount: sc.ParasiteCount,
			Confidence:    sc.Confidence,
			CreatedAt:     sc.CreatedAt,
		},
	}
	if err := s.publisher.Publish(ctx, messaging.EventScreeningCreated, event); err != nil {
		s.log.WithError(err).WithField("screening_id", sc.ID).Warn("failed to publish screening.created event")
	}
}

func (s *Service) toResponse(sc Screening) ScreeningResponse {
	return ScreeningResponse{
		ID:            sc.ID,
		Patient:       sc.Patient,
		Image:         s.blobs.URL(sc.ImageKey),
		Result:        sc.Result,
		ParasiteCount: sc.ParasiteCount,
		Confidence:    sc.Confidence,
		Notes:         sc.Notes,
		CreatedAt:     sc.CreatedAt,
	}
}

func (s *Service) toResponses(list []Screening) []ScreeningResponse {
	out := make([]ScreeningResponse, 0, len(list))
	for _, sc := range list {
		out = append(out, s.toResponse(sc))
	}
	return out
}

func (s *Service) ListAll(ctx context.Context, ownerID string) ([]ScreeningResponse, error) {
	list, err := s.repo.ListScreenings(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list screenings: %w", err)
	}
	return s.toResponses(list), nil
}

// ListByPatient never fails for unknown or foreign patients; it returns an
// empty list.
func (s *Service) ListByPatient(ctx context.Context, ownerID, patientID string) ([]ScreeningResponse, error) {
	if _, err := uuid.Parse(patientID); err != nil {
		return []ScreeningResponse{}, nil
	}
	list, err := s.repo.ListByPatient(ctx, ownerID, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient screenings: %w", err)
	}
	return s.toResponses(list), nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (*ScreeningResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrScreeningNotFound
	}
	sc, err := s.repo.GetScreening(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get screening: %w", err)
	}
	resp := s.toResponse(*sc)
	return &resp, nil
}

func (s *Service) Dashboard(ctx context.Context, ownerID string) (*DashboardStats, error) {
	now := s.now().In(s.opts.Location)
	since := weekStart(now)

	totals, err := s.repo.Totals(ctx, ownerID, since, s.opts.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dashboard: %w", err)
	}
	stats := buildDashboard(now, totals)
	return &stats, nil
}

// ImageVisible reports whether key is the image of one of ownerID's screenings.
func (s *Service) ImageVisible(ctx context.Context, ownerID, key string) (bool, error) {
	if !strings.HasPrefix(key, s.opts.KeyPrefix) {
		return false, nil
	}
	return s.repo.ImageOwned(ctx, ownerID, key)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
