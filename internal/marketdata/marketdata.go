// Package marketdata serves the dashboard's market datasets. Values are
// generated deterministically from the symbol, so the same ticker always
// reports the same prices across requests, restarts, and replicas —
// stable enough for the AI layer to quote without a real data vendor.
package marketdata

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/tickerdeck/tickerdeck/internal/domain"
)

// Dataset names accepted by Fetch and exposed to the AI tool.
const (
	DatasetQuote      = "quote"
	DatasetInsiders   = "insider_trades"
	DatasetAnalysts   = "analyst_ratings"
	DatasetOptions    = "options_flow"
	DatasetHedgeFunds = "hedge_fund_holdings"
	DatasetTechnicals = "technicals"
)

// DatasetNames lists every dataset Fetch understands, in display order.
var DatasetNames = []string{
	DatasetQuote,
	DatasetInsiders,
	DatasetAnalysts,
	DatasetOptions,
	DatasetHedgeFunds,
	DatasetTechnicals,
}

var insiderNames = []string{
	"J. Whitfield", "M. Okafor", "R. Lindqvist", "A. Castellanos",
	"D. Merchant", "K. Ishikawa", "P. Novak", "S. Duarte",
}

var insiderTitles = []string{
	"CEO", "CFO", "COO", "Director", "EVP Sales", "General Counsel",
	"Chief Technology Officer", "10% Owner",
}

var analystFirms = []string{
	"Morgan Stanley", "Goldman Sachs", "JP Morgan", "Barclays",
	"Wells Fargo", "Jefferies", "Piper Sandler", "Raymond James",
}

var ratingActions = []string{"upgrade", "downgrade", "initiate", "maintain"}
var ratingLabels = []string{"Buy", "Overweight", "Hold", "Underweight", "Sell"}

var hedgeFunds = []string{
	"Citadel Advisors", "Bridgewater Associates", "Renaissance Technologies",
	"Millennium Management", "Point72", "Two Sigma", "Tiger Global",
	"D.E. Shaw",
}

var holdingActions = []string{"new", "added", "reduced", "exited"}

// Service generates market datasets. Now is injectable so tests can pin
// the clock.
type Service struct {
	Now func() time.Time
}

func NewService() *Service {
	return &Service{Now: time.Now}
}

// rng is a tiny deterministic generator seeded from the symbol. It only
// needs to be stable and well-spread, not cryptographic.
type rng struct{ state uint64 }

func newRNG(symbol, stream string) *rng {
	h := fnv.New64a()
	h.Write([]byte(strings.ToUpper(symbol)))
	h.Write([]byte{'/'})
	h.Write([]byte(stream))
	return &rng{state: h.Sum64() | 1}
}

func (r *rng) next() uint64 {
	// xorshift64
	r.state ^= r.state << 13
	r.state ^= r.state >> 7
	r.state ^= r.state << 17
	return r.state
}

// float returns a value in [lo, hi).
func (r *rng) float(lo, hi float64) float64 {
	frac := float64(r.next()%1_000_000) / 1_000_000
	return lo + frac*(hi-lo)
}

func (r *rng) intn(n int) int {
	return int(r.next() % uint64(n))
}

func (r *rng) pick(options []string) string {
	return options[r.intn(len(options))]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Quote returns the price snapshot for a symbol.
func (s *Service) Quote(symbol string) domain.Quote {
	r := newRNG(symbol, "quote")
	price := round2(r.float(8, 950))
	return domain.Quote{
		Symbol: strings.ToUpper(symbol),
		Price:  price,
		Change: round2(r.float(-0.06, 0.06) * price),
		Volume: int64(r.float(400_000, 90_000_000)),
	}
}

// InsiderTrades returns recent insider transactions for a symbol.
func (s *Service) InsiderTrades(symbol string) []domain.InsiderTrade {
	r := newRNG(symbol, "insiders")
	price := s.Quote(symbol).Price
	now := s.Now().UTC()

	trades := make([]domain.InsiderTrade, 0, 5)
	for i := 0; i < 5; i++ {
		tradeType := "buy"
		if r.intn(3) > 0 {
			tradeType = "sell"
		}
		shares := int64(r.float(1_000, 250_000))
		px := round2(price * r.float(0.9, 1.1))
		trades = append(trades, domain.InsiderTrade{
			Symbol:    strings.ToUpper(symbol),
			Insider:   r.pick(insiderNames),
			Title:     r.pick(insiderTitles),
			TradeType: tradeType,
			Shares:    shares,
			Price:     px,
			ValueUSD:  round2(float64(shares) * px),
			FiledAt:   now.AddDate(0, 0, -(i*7 + r.intn(6))),
		})
	}
	return trades
}

// AnalystRatings returns recent broker actions for a symbol.
func (s *Service) AnalystRatings(symbol string) []domain.AnalystRating {
	r := newRNG(symbol, "analysts")
	price := s.Quote(symbol).Price
	now := s.Now().UTC()

	ratings := make([]domain.AnalystRating, 0, 4)
	for i := 0; i < 4; i++ {
		ratings = append(ratings, domain.AnalystRating{
			Symbol:      strings.ToUpper(symbol),
			Firm:        analystFirms[(r.intn(len(analystFirms))+i)%len(analystFirms)],
			Action:      r.pick(ratingActions),
			Rating:      r.pick(ratingLabels),
			PriceTarget: round2(price * r.float(0.75, 1.45)),
			RatedAt:     now.AddDate(0, 0, -(i*5 + r.intn(4))),
		})
	}
	return ratings
}

// OptionsFlow returns recent unusual options activity for a symbol.
func (s *Service) OptionsFlow(symbol string) []domain.OptionsFlowEntry {
	r := newRNG(symbol, "options")
	price := s.Quote(symbol).Price
	now := s.Now().UTC()

	entries := make([]domain.OptionsFlowEntry, 0, 6)
	for i := 0; i < 6; i++ {
		side := "call"
		sentiment := "bullish"
		if r.intn(2) == 1 {
			side = "put"
			sentiment = "bearish"
		}
		strike := round2(price * r.float(0.85, 1.25))
		entries = append(entries, domain.OptionsFlowEntry{
			Symbol:     strings.ToUpper(symbol),
			Side:       side,
			Sentiment:  sentiment,
			Strike:     strike,
			Expiry:     now.AddDate(0, 0, 7*(1+r.intn(12))),
			PremiumUSD: round2(r.float(50_000, 4_000_000)),
			TradedAt:   now.Add(-time.Duration(i*37+r.intn(30)) * time.Minute),
		})
	}
	return entries
}

// HedgeFundHoldings returns 13F position changes for a symbol.
func (s *Service) HedgeFundHoldings(symbol string) []domain.HedgeFundHolding {
	r := newRNG(symbol, "funds")
	price := s.Quote(symbol).Price
	now := s.Now().UTC()
	quarter := fmt.Sprintf("Q%d %d", (int(now.Month())-1)/3+1, now.Year())

	holdings := make([]domain.HedgeFundHolding, 0, 5)
	for i := 0; i < 5; i++ {
		shares := int64(r.float(50_000, 8_000_000))
		holdings = append(holdings, domain.HedgeFundHolding{
			Symbol:       strings.ToUpper(symbol),
			Fund:         hedgeFunds[(r.intn(len(hedgeFunds))+i)%len(hedgeFunds)],
			Action:       r.pick(holdingActions),
			Shares:       shares,
			ValueUSD:     round2(float64(shares) * price),
			PortfolioPct: round2(r.float(0.05, 6.5)),
			Quarter:      quarter,
		})
	}
	return holdings
}

// Technicals returns the indicator panel for a symbol.
func (s *Service) Technicals(symbol string) domain.TechnicalIndicators {
	r := newRNG(symbol, "technicals")
	price := s.Quote(symbol).Price

	rsi := round2(r.float(18, 82))
	signal := "neutral"
	switch {
	case rsi >= 60:
		signal = "bullish"
	case rsi <= 40:
		signal = "bearish"
	}

	return domain.TechnicalIndicators{
		Symbol:     strings.ToUpper(symbol),
		RSI14:      rsi,
		SMA50:      round2(price * r.float(0.92, 1.08)),
		SMA200:     round2(price * r.float(0.82, 1.18)),
		MACD:       round2(r.float(-4, 4)),
		Signal:     signal,
		Support:    round2(price * r.float(0.82, 0.95)),
		Resistance: round2(price * r.float(1.05, 1.2)),
	}
}

// Fetch returns the named dataset for a symbol. The AI tool and the
// market API handlers both dispatch through here.
func (s *Service) Fetch(dataset, symbol string) (any, error) {
	switch dataset {
	case DatasetQuote:
		return s.Quote(symbol), nil
	case DatasetInsiders:
		return s.InsiderTrades(symbol), nil
	case DatasetAnalysts:
		return s.AnalystRatings(symbol), nil
	case DatasetOptions:
		return s.OptionsFlow(symbol), nil
	case DatasetHedgeFunds:
		return s.HedgeFundHoldings(symbol), nil
	case DatasetTechnicals:
		return s.Technicals(symbol), nil
	default:
		return nil, fmt.Errorf("marketdata: unknown dataset %q", dataset)
	}
}
