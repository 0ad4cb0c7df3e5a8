package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns canned vectors per text so similarity ordering is
// controlled by the test, not by a model.
type stubEmbedder struct {
	vectors map[string][]float64
	fail    bool
	calls   int
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	e.calls++
	if e.fail {
		return nil, errors.New("embedder down")
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 0, 0}, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			v = make([]float64, e.Dimension())
		}
		out[i] = v
	}
	return out, nil
}

func (e *stubEmbedder) Dimension() int { return 3 }

func newTestStore(t *testing.T, embedder *stubEmbedder) *Store {
	t.Helper()
	if embedder == nil {
		embedder = &stubEmbedder{}
	}
	s, err := Open(Config{
		DSN:                  filepath.Join(t.TempDir(), "test.db"),
		Embedder:             embedder,
		MaxRequestsPerMinute: 3,
		RateLimitingEnabled:  true,
		RateLimitFailOpen:    true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenSeedsDefaults(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	profile, err := s.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Prakersh Maheshwari", profile.Name)
	assert.Equal(t, "Software Engineer", profile.JobTitle)

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin", settings.Username)
	assert.Equal(t, "light", settings.Theme)

	assert.True(t, s.VerifyAdmin(ctx, "admin", "admin123"))
	assert.False(t, s.VerifyAdmin(ctx, "admin", "wrong"))
	assert.False(t, s.VerifyAdmin(ctx, "nobody", "admin123"))

	experience, err := s.ListExperience(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, experience)

	skills, err := s.ListSkills(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, skills)
}

func TestDocumentLifecycle(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	id, err := s.AddDocument(ctx, "About", "manual", "Short bio paragraph.", map[string]string{"section": "bio"})
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	doc, err := s.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "About", doc.Title)
	assert.Equal(t, "manual", doc.Source)
	assert.Equal(t, "Short bio paragraph.", doc.Content)
	assert.Equal(t, "bio", doc.Metadata["section"])

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, docs[0].ChunkCount)

	require.NoError(t, s.UpdateDocument(ctx, id, "About Me", "manual", "Rewritten bio.", nil))
	doc, err = s.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "About Me", doc.Title)
	assert.Equal(t, "Rewritten bio.", doc.Content)

	require.NoError(t, s.RemoveDocument(ctx, id))
	_, err = s.GetDocument(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentNotFound(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, s.UpdateDocument(ctx, 999, "x", "y", "z", nil), ErrNotFound)
	assert.ErrorIs(t, s.RemoveDocument(ctx, 999), ErrNotFound)
}

func TestDocumentValidation(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	_, err := s.AddDocument(ctx, "", "manual", "content", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.AddDocument(ctx, "title", "manual", "", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDuplicateTitlesGetDistinctIDs(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	first, err := s.AddDocument(ctx, "Same", "manual", "Body one.", nil)
	require.NoError(t, err)
	second, err := s.AddDocument(ctx, "Same", "manual", "Body two.", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestRemoveDocumentClearsChunksOnEveryConnection(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	id, err := s.AddDocument(ctx, "Doomed", "manual", "This document will be removed.", nil)
	require.NoError(t, err)

	// Pin the pooled connections so the delete runs on a fresh one.
	// SQLite scopes foreign_keys per connection, and cascades must fire
	// no matter which connection the pool hands out.
	c1, err := s.db.Conn(ctx)
	require.NoError(t, err)
	c2, err := s.db.Conn(ctx)
	require.NoError(t, err)

	err = s.RemoveDocument(ctx, id)
	c1.Close()
	c2.Close()
	require.NoError(t, err)

	var chunks int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rag_chunks").Scan(&chunks))
	assert.Zero(t, chunks)
}

func TestAddDocumentRollsBackOnChunkFailure(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		"CREATE TRIGGER block_chunks BEFORE INSERT ON rag_chunks BEGIN SELECT RAISE(ABORT, 'blocked'); END;")
	require.NoError(t, err)

	_, err = s.AddDocument(ctx, "Half-written", "manual", "Body that never lands.", nil)
	require.Error(t, err)

	var docs, chunks int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rag_documents").Scan(&docs))
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rag_chunks").Scan(&chunks))
	assert.Zero(t, docs)
	assert.Zero(t, chunks)
}

func TestSearchRanksAndFilters(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"query":         {1, 0, 0},
		"Exact match.":  {1, 0, 0},
		"Close match.":  {0.9, 0.1, 0},
		"Unrelated of.": {0, 1, 0},
	}}
	s := newTestStore(t, embedder)
	ctx := context.Background()

	for _, content := range []string{"Exact match.", "Close match.", "Unrelated of."} {
		_, err := s.AddDocument(ctx, content, "manual", content, nil)
		require.NoError(t, err)
	}

	results, err := s.Search(ctx, "query", 10, 0.6)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Exact match.", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "Close match.", results[1].Content)
	assert.Greater(t, results[0].Score, results[1].Score)

	// Limit truncates after ranking.
	results, err = s.Search(ctx, "query", 1, 0.6)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Exact match.", results[0].Content)
}

func TestSearchValidation(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	_, err := s.Search(ctx, "", 5, 0.6)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.Search(ctx, "q", MaxSearchLimit+1, 0.6)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSearchFailsClosedOnEmbedderError(t *testing.T) {
	embedder := &stubEmbedder{}
	s := newTestStore(t, embedder)
	ctx := context.Background()

	_, err := s.AddDocument(ctx, "Doc", "manual", "Body text.", nil)
	require.NoError(t, err)

	embedder.fail = true
	results, err := s.Search(ctx, "query", 5, 0.6)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRateLimit(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		assert.True(t, s.CheckRateLimit(ctx, "10.0.0.1"), "request %d should pass", i+1)
	}
	assert.False(t, s.CheckRateLimit(ctx, "10.0.0.1"))

	// A different client has its own window.
	assert.True(t, s.CheckRateLimit(ctx, "10.0.0.2"))

	// Window expiry resets the counter.
	s.now = func() time.Time { return base.Add(61 * time.Second) }
	assert.True(t, s.CheckRateLimit(ctx, "10.0.0.1"))
}

func TestRateLimitDisabled(t *testing.T) {
	s := newTestStore(t, nil)
	s.limitEnabled = false
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		assert.True(t, s.CheckRateLimit(ctx, "10.0.0.1"))
	}
}

func TestRateLimitEmptyAddr(t *testing.T) {
	s := newTestStore(t, nil)
	assert.False(t, s.CheckRateLimit(context.Background(), ""))
}

func TestHistoryRoundTrip(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	turns := []ChatTurn{
		{SessionID: "sess-1", UserMessage: "first", SystemResponse: "one", ClientAddr: "10.0.0.1", ContextIDs: []int64{1, 2}},
		{SessionID: "sess-1", UserMessage: "second", SystemResponse: "two", ClientAddr: "10.0.0.1"},
		{SessionID: "sess-2", UserMessage: "other", SystemResponse: "three", ClientAddr: "10.0.0.9"},
	}
	for _, turn := range turns {
		require.NoError(t, s.SaveHistory(ctx, turn))
	}

	history, err := s.GetHistory(ctx, "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].UserMessage)
	assert.Equal(t, "second", history[1].UserMessage)
	assert.Equal(t, []int64{1, 2}, history[0].ContextIDs)

	// Limit keeps the most recent turns, still oldest first.
	history, err = s.GetHistory(ctx, "sess-1", 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "second", history[0].UserMessage)
}

func TestEmbeddingCacheRoundTrip(t *testing.T) {
	s := newTestStore(t, nil)
	cache := s.NewEmbeddingCache(time.Hour)

	_, ok := cache.Get("model-a", "hello")
	assert.False(t, ok)

	require.NoError(t, cache.Set("model-a", "hello", []float64{0.1, 0.2, 0.3}))
	got, ok := cache.Get("model-a", "hello")
	require.True(t, ok)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, got)

	// Same text under another model is a separate entry.
	_, ok = cache.Get("model-b", "hello")
	assert.False(t, ok)
}

func TestEmbeddingCacheExpiry(t *testing.T) {
	s := newTestStore(t, nil)
	cache := s.NewEmbeddingCache(time.Hour)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	require.NoError(t, cache.Set("model-a", "hello", []float64{1}))

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, ok := cache.Get("model-a", "hello")
	assert.False(t, ok)
}

func TestExperienceOrder(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	before, err := s.ListExperience(ctx)
	require.NoError(t, err)
	require.Len(t, before, 2)

	// Reverse the seeded order.
	require.NoError(t, s.UpdateExperienceOrder(ctx, []int64{before[1].ID, before[0].ID}))

	after, err := s.ListExperience(ctx)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, before[1].ID, after[0].ID)
	assert.Equal(t, before[0].ID, after[1].ID)

	assert.ErrorIs(t, s.UpdateExperienceOrder(ctx, nil), ErrInvalidInput)
}

func TestResumeCRUD(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	require.NoError(t, s.SaveSkill(ctx, Skill{Category: "Languages", Name: "Rust", Level: 2}))
	skills, err := s.ListSkills(ctx)
	require.NoError(t, err)

	var added *Skill
	for i := range skills {
		if skills[i].Name == "Rust" {
			added = &skills[i]
		}
	}
	require.NotNil(t, added)

	added.Level = 4
	require.NoError(t, s.SaveSkill(ctx, *added))
	require.NoError(t, s.DeleteSkill(ctx, added.ID))
	assert.ErrorIs(t, s.DeleteSkill(ctx, added.ID), ErrNotFound)
}

func TestSettingsUpdates(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	require.NoError(t, s.UpdateTheme(ctx, "dark"))
	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dark", settings.Theme)

	assert.ErrorIs(t, s.UpdateTheme(ctx, "neon"), ErrInvalidInput)

	assert.ErrorIs(t, s.UpdatePassword(ctx, "short"), ErrInvalidInput)
	require.NoError(t, s.UpdatePassword(ctx, "longenough"))
	assert.True(t, s.VerifyAdmin(ctx, "admin", "longenough"))
	assert.False(t, s.VerifyAdmin(ctx, "admin", "admin123"))
}
