package chatbot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "0b8f3c1e-7a6d-4e2f-9c1b-5a4d3e2f1a0b"

type fakeRepo struct {
	created []Message
	listErr error
	delErr  error
}

func (f *fakeRepo) CreateMessage(ctx context.Context, m Message) (*Message, error) {
	m.ID = "c9d6a1f0-2b3c-4d5e-8f90-a1b2c3d4e5f6"
	m.CreatedAt = time.Now()
	f.created = append(f.created, m)
	return &m, nil
}

func (f *fakeRepo) ListMessages(ctx context.Context, uid string) ([]Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.created, nil
}

func (f *fakeRepo) DeleteMessage(ctx context.Context, uid, id string) error { return f.delErr }

type fakeSearcher struct {
	results []SearchResult
	err     error
	calls   int
}

func (f *fakeSearcher) Search(ctx context.Context, q string) ([]SearchResult, error) {
	f.calls++
	return f.results, f.err
}

type fakeGenerator struct {
	answer string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

type mapCache struct{ entries map[string][]SearchResult }

func (m *mapCache) Get(ctx context.Context, q string) ([]SearchResult, bool, error) {
	r, ok := m.entries[cacheKey(q)]
	return r, ok, nil
}

func (m *mapCache) Set(ctx context.Context, q string, r []SearchResult) error {
	m.entries[cacheKey(q)] = r
	return nil
}

type outcomes struct{ got []string }

func (o *outcomes) RecordChatRequest(ctx context.Context, outcome string) { o.got = append(o.got, outcome) }

var whoResult = SearchResult{Title: "WHO", Link: "https://who.int/malaria", Snippet: "Fever and chills"}

func TestService_Ask(t *testing.T) {
	repo := &fakeRepo{}
	searcher := &fakeSearcher{results: []SearchResult{whoResult}}
	gen := &fakeGenerator{answer: "Fever, chills and headache are common."}
	metrics := &outcomes{}
	svc := NewService(repo, searcher, gen, nil, metrics, quietLogger())

	m, err := svc.Ask(context.Background(), userID, "  what are malaria symptoms?  ")
	require.NoError(t, err)

	assert.Equal(t, "what are malaria symptoms?", m.Query)
	assert.Equal(t, "Fever, chills and headache are common.", m.Response)
	assert.Equal(t, []string{"https://who.int/malaria"}, m.SearchURLs)
	assert.Contains(t, gen.prompt, "Fever and chills")
	require.Len(t, repo.created, 1)
	assert.Equal(t, userID, repo.created[0].UserID)
	assert.Equal(t, []string{"ok"}, metrics.got)
}

func TestService_Ask_UsesCache(t *testing.T) {
	cache := &mapCache{entries: map[string][]SearchResult{}}
	searcher := &fakeSearcher{results: []SearchResult{whoResult}}
	svc := NewService(&fakeRepo{}, searcher, &fakeGenerator{answer: "a"}, cache, nil, quietLogger())

	_, err := svc.Ask(context.Background(), userID, "Malaria symptoms")
	require.NoError(t, err)
	_, err = svc.Ask(context.Background(), userID, "malaria   symptoms")
	require.NoError(t, err)

	assert.Equal(t, 1, searcher.calls)
}

func TestService_Ask_WithoutSearcher(t *testing.T) {
	gen := &fakeGenerator{answer: "a"}
	svc := NewService(&fakeRepo{}, nil, gen, nil, nil, quietLogger())

	m, err := svc.Ask(context.Background(), userID, "q")
	require.NoError(t, err)
	assert.Empty(t, m.SearchResults)
	assert.NotContains(t, gen.prompt, "Search results:")
}

func TestService_Ask_Errors(t *testing.T) {
	upstream := &UpstreamError{Service: "search", Err: errors.New("503")}

	testCases := []struct {
		name      string
		query     string
		searchErr error
		genErr    error
		noGen     bool
		expected  error
		outcome   string
	}{
		{"blank query", "   ", nil, nil, false, ErrEmptyQuery, "invalid"},
		{"search failure", "q", upstream, nil, false, upstream, "search_failed"},
		{"llm failure", "q", nil, &UpstreamError{Service: "llm", Err: errors.New("x")}, false, nil, "llm_failed"},
		{"not configured", "q", nil, nil, true, ErrUnavailable, "unavailable"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepo{}
			metrics := &outcomes{}
			var gen Generator = &fakeGenerator{answer: "a", err: tc.genErr}
			if tc.noGen {
				gen = nil
			}
			svc := NewService(repo, &fakeSearcher{err: tc.searchErr}, gen, nil, metrics, quietLogger())

			_, err := svc.Ask(context.Background(), userID, tc.query)
			require.Error(t, err)
			if tc.expected != nil {
				assert.ErrorIs(t, err, tc.expected)
			}
			assert.Empty(t, repo.created)
			assert.Equal(t, []string{tc.outcome}, metrics.got)
		})
	}
}

func TestService_Delete(t *testing.T) {
	svc := NewService(&fakeRepo{delErr: ErrMessageNotFound}, nil, nil, nil, nil, quietLogger())

	assert.ErrorIs(t, svc.Delete(context.Background(), userID, "not-a-uuid"), ErrMessageNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), userID, userID), ErrMessageNotFound)
}
