package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avicke/arxiv-store/internal/config"
	"github.com/avicke/arxiv-store/internal/dynamo"
	"github.com/avicke/arxiv-store/internal/models"
)

type stubStore struct {
	calls  int
	papers []models.Paper
	err    error
}

func (s *stubStore) RecentInCategory(_ context.Context, _ string, _ int) ([]models.Summary, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Summary, 0, len(s.papers))
	for _, p := range s.papers {
		out = append(out, p.Summarize())
	}
	return out, nil
}

func (s *stubStore) ByAuthor(_ context.Context, _ string) ([]models.Paper, error) {
	s.calls++
	return s.papers, s.err
}

func (s *stubStore) ByID(_ context.Context, id string) (models.Paper, error) {
	s.calls++
	if s.err != nil {
		return models.Paper{}, s.err
	}
	for _, p := range s.papers {
		if p.ArxivID == id {
			return p, nil
		}
	}
	return models.Paper{}, fmt.Errorf("%w: %s", dynamo.ErrNotFound, id)
}

func (s *stubStore) DateRangeInCategory(_ context.Context, _, _, _ string) ([]models.Paper, error) {
	s.calls++
	return s.papers, s.err
}

func (s *stubStore) ByKeyword(_ context.Context, _ string, _ int) ([]models.Paper, error) {
	s.calls++
	return s.papers, s.err
}

func newTestServer(store paperStore) *server {
	return &server{
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg: &config.API{
			Common:       config.Common{TableName: "arxiv-papers-test"},
			BindAddr:     ":0",
			DefaultLimit: 20,
			MaxLimit:     100,
		},
		store: store,
	}
}

func doGet(t *testing.T, h http.Handler, path string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	res := rec.Result()
	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	res.Body.Close()
	return res, body
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&stubStore{})
	res, body := doGet(t, srv.routes(), "/health")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "ok", body["status"])
}

func TestRecentPapers(t *testing.T) {
	store := &stubStore{papers: []models.Paper{
		{ArxivID: "2301.00001", Title: "A", Categories: []string{"cs.LG"}},
	}}
	srv := newTestServer(store)

	res, body := doGet(t, srv.routes(), "/papers/recent?category=cs.LG&limit=5")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "cs.LG", body["category"])
	require.EqualValues(t, 1, body["count"])
}

func TestRecentRequiresCategory(t *testing.T) {
	store := &stubStore{}
	srv := newTestServer(store)

	res, body := doGet(t, srv.routes(), "/papers/recent")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.NotEmpty(t, body["error"])
	require.Zero(t, store.calls)
}

func TestRecentRejectsNonIntegerLimit(t *testing.T) {
	store := &stubStore{}
	srv := newTestServer(store)

	res, body := doGet(t, srv.routes(), "/papers/recent?category=cs.LG&limit=abc")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "limit must be an integer", body["error"])
	require.Zero(t, store.calls)
}

func TestByIDFoundAndMissing(t *testing.T) {
	store := &stubStore{papers: []models.Paper{
		{ArxivID: "2301.00001", Title: "Found", Categories: []string{"cs.LG"}},
	}}
	srv := newTestServer(store)

	res, body := doGet(t, srv.routes(), "/papers/2301.00001")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "Found", body["title"])

	res, body = doGet(t, srv.routes(), "/papers/0000.00000")
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.NotEmpty(t, body["error"])
}

func TestSearchRequiresAllParams(t *testing.T) {
	store := &stubStore{}
	srv := newTestServer(store)

	res, _ := doGet(t, srv.routes(), "/papers/search?category=cs.LG&start=2023-05-01")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Zero(t, store.calls)
}

func TestSearchMapsBadRequest(t *testing.T) {
	store := &stubStore{err: fmt.Errorf("%w: start date must be YYYY-MM-DD", dynamo.ErrBadRequest)}
	srv := newTestServer(store)

	res, body := doGet(t, srv.routes(), "/papers/search?category=cs.LG&start=bad&end=2023-05-31")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Contains(t, body["error"], "YYYY-MM-DD")
}

func TestByKeyword(t *testing.T) {
	store := &stubStore{papers: []models.Paper{
		{ArxivID: "2301.00001", Categories: []string{"cs.LG"}},
		{ArxivID: "2301.00002", Categories: []string{"cs.LG"}},
	}}
	srv := newTestServer(store)

	res, body := doGet(t, srv.routes(), "/papers/keyword/transformers")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "transformers", body["keyword"])
	require.EqualValues(t, 2, body["count"])
}

func TestStoreFailureIsInternalError(t *testing.T) {
	store := &stubStore{err: fmt.Errorf("dial tcp: connection refused")}
	srv := newTestServer(store)

	res, body := doGet(t, srv.routes(), "/papers/author/Smith")
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)
	require.Equal(t, "internal error", body["error"])
}
