package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerdeck/tickerdeck/internal/domain"
)

type fakeWatchlistService struct {
	entries []domain.WatchlistEntry
	err     error

	addedSymbol   string
	removedSymbol string
}

func (f *fakeWatchlistService) List(ctx context.Context, userID string) ([]domain.WatchlistEntry, error) {
	return f.entries, f.err
}

func (f *fakeWatchlistService) Add(ctx context.Context, userID, symbol string) ([]domain.WatchlistEntry, error) {
	f.addedSymbol = symbol
	return f.entries, f.err
}

func (f *fakeWatchlistService) Remove(ctx context.Context, userID, symbol string) ([]domain.WatchlistEntry, error) {
	f.removedSymbol = symbol
	return f.entries, f.err
}

func TestWatchlistList(t *testing.T) {
	svc := &fakeWatchlistService{entries: []domain.WatchlistEntry{
		{Symbol: "AAPL", Price: 187.5, Change: 1.2, Volume: 1000},
	}}
	h := NewWatchlistHandler(svc, testMetrics())

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(http.MethodGet, "/api/watchlist", ""))

	require.Equal(t, http.StatusOK, rec.Code)

	var body watchlistResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Watchlist, 1)
	assert.Equal(t, "AAPL", body.Watchlist[0].Symbol)
}

func TestWatchlistListSoftFailsToEmpty(t *testing.T) {
	svc := &fakeWatchlistService{err: errors.New("pgx: connection refused")}
	h := NewWatchlistHandler(svc, testMetrics())

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(http.MethodGet, "/api/watchlist", ""))

	require.Equal(t, http.StatusOK, rec.Code)

	var body watchlistResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotNil(t, body.Watchlist)
	assert.Empty(t, body.Watchlist)
}

func TestWatchlistAdd(t *testing.T) {
	svc := &fakeWatchlistService{entries: []domain.WatchlistEntry{{Symbol: "MSFT"}}}
	h := NewWatchlistHandler(svc, testMetrics())

	rec := httptest.NewRecorder()
	h.Add(rec, authedRequest(http.MethodPost, "/api/watchlist", `{"ticker":"msft"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "msft", svc.addedSymbol)
}

func TestWatchlistAddRejectsInvalidSymbol(t *testing.T) {
	svc := &fakeWatchlistService{err: domain.Invalid("watchlist.add", "Invalid ticker symbol.")}
	h := NewWatchlistHandler(svc, testMetrics())

	rec := httptest.NewRecorder()
	h.Add(rec, authedRequest(http.MethodPost, "/api/watchlist", `{"ticker":"not a ticker"}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWatchlistRemoveUsesPathValue(t *testing.T) {
	svc := &fakeWatchlistService{entries: []domain.WatchlistEntry{}}
	h := NewWatchlistHandler(svc, testMetrics())

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/watchlist/{symbol}", h.Remove)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(http.MethodDelete, "/api/watchlist/TSLA", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "TSLA", svc.removedSymbol)
}
