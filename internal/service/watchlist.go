package service

import (
	"context"
	"strings"
	"unicode"

	"github.com/tickerdeck/tickerdeck/internal/domain"
	"github.com/tickerdeck/tickerdeck/internal/marketdata"
)

const maxSymbolLen = 8

// WatchlistService implements domain.WatchlistService: it owns symbol
// normalization and decorates stored symbols with current quotes.
type WatchlistService struct {
	store  domain.WatchlistStore
	quotes *marketdata.Service
}

var _ domain.WatchlistService = (*WatchlistService)(nil)

func NewWatchlistService(store domain.WatchlistStore, quotes *marketdata.Service) *WatchlistService {
	return &WatchlistService{store: store, quotes: quotes}
}

// NormalizeSymbol upper-cases and validates a ticker symbol. Tickers are
// 1-8 letters, dots, or hyphens (BRK.B, RDS-A).
func NormalizeSymbol(symbol string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" || len(sym) > maxSymbolLen {
		return "", domain.Errorf(domain.EINVALID, "", "Invalid ticker symbol.")
	}
	for _, r := range sym {
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) && r != '.' && r != '-' {
			return "", domain.Errorf(domain.EINVALID, "", "Invalid ticker symbol.")
		}
	}
	return sym, nil
}

func (s *WatchlistService) List(ctx context.Context, userID string) ([]domain.WatchlistEntry, error) {
	symbols, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, domain.WrapOp(err, "WatchlistService.List")
	}
	return s.decorate(symbols), nil
}

func (s *WatchlistService) Add(ctx context.Context, userID, symbol string) ([]domain.WatchlistEntry, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := s.store.Add(ctx, userID, sym); err != nil {
		return nil, domain.WrapOp(err, "WatchlistService.Add")
	}
	return s.List(ctx, userID)
}

func (s *WatchlistService) Remove(ctx context.Context, userID, symbol string) ([]domain.WatchlistEntry, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := s.store.Remove(ctx, userID, sym); err != nil {
		return nil, domain.WrapOp(err, "WatchlistService.Remove")
	}
	return s.List(ctx, userID)
}

func (s *WatchlistService) decorate(symbols []string) []domain.WatchlistEntry {
	entries := make([]domain.WatchlistEntry, len(symbols))
	for i, sym := range symbols {
		q := s.quotes.Quote(sym)
		entries[i] = domain.WatchlistEntry{
			Symbol: q.Symbol,
			Price:  q.Price,
			Change: q.Change,
			Volume: q.Volume,
		}
	}
	return entries
}
