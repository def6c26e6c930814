package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxQueryLen = 2000

// RepositoryInterface defines chat message storage, scoped per user.
type RepositoryInterface interface {
	CreateMessage(ctx context.Context, m Message) (*Message, error)
	ListMessages(ctx context.Context, userID string) ([]Message, error)
	DeleteMessage(ctx context.Context, userID, id string) error
}

// ServiceInterface defines the chatbot operations exposed over HTTP.
type ServiceInterface interface {
	Ask(ctx context.Context, userID, query string) (*Message, error)
	List(ctx context.Context, userID string) ([]Message, error)
	Delete(ctx context.Context, userID, id string) error
}

// MetricsRecorder records chatbot request outcomes.
type MetricsRecorder interface {
	RecordChatRequest(ctx context.Context, outcome string)
}

var (
	_ RepositoryInterface = (*Repository)(nil)
	_ ServiceInterface    = (*Service)(nil)
)

type Service struct {
	repo      RepositoryInterface
	searcher  Searcher
	generator Generator
	cache     SearchCache
	metrics   MetricsRecorder
	log       logrus.FieldLogger
}

// NewService wires the chatbot. searcher may be nil, in which case answers
// are generated without search context. generator nil disables Ask.
func NewService(repo RepositoryInterface, searcher Searcher, generator Generator, cache SearchCache,
	metrics MetricsRecorder, logger logrus.FieldLogger) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Service{
		repo:      repo,
		searcher:  searcher,
		generator: generator,
		cache:     cache,
		metrics:   metrics,
		log:       logger,
	}
}

func (s *Service) record(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordChatRequest(ctx, outcome)
	}
}

// Ask searches, prompts the language model with the top results and stores
// the exchange. The two upstream calls run one after the other.
func (s *Service) Ask(ctx context.Context, userID, query string) (*Message, error) {
	query = strings.TrimSpace(query)
	switch {
	case query == "":
		s.record(ctx, "invalid")
		return nil, ErrEmptyQuery
	case len(query) > maxQueryLen:
		s.record(ctx, "invalid")
		return nil, ErrQueryTooLong
	case s.generator == nil:
		s.record(ctx, "unavailable")
		return nil, ErrUnavailable
	}

	results, err := s.search(ctx, query)
	if err != nil {
		s.record(ctx, "search_failed")
		return nil, err
	}

	answer, err := s.generator.Generate(ctx, buildPrompt(query, results))
	if err != nil {
		s.record(ctx, "llm_failed")
		return nil, err
	}

	m, err := s.repo.CreateMessage(ctx, Message{
		UserID:        userID,
		Query:         query,
		Response:      answer,
		SearchResults: results,
		SearchURLs:    resultURLs(results),
	})
	if err != nil {
		s.record(ctx, "error")
		return nil, fmt.Errorf("failed to store chat message: %w", err)
	}

	s.record(ctx, "ok")
	return m, nil
}

func (s *Service) search(ctx context.Context, query string) ([]SearchResult, error) {
	if s.searcher == nil {
		return []SearchResult{}, nil
	}

	cached, hit, err := s.cache.Get(ctx, query)
	if err != nil {
		s.log.WithError(err).Warn("search cache read failed")
	}
	if hit {
		return cached, nil
	}

	results, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, query, results); err != nil {
		s.log.WithError(err).Warn("search cache write failed")
	}
	return results, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Message, error) {
	messages, err := s.repo.ListMessages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	return messages, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrMessageNotFound
	}
	if err := s.repo.DeleteMessage(ctx, userID, id); err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete chat message: %w", err)
	}
	return nil
}
