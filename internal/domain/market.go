package domain

import "time"

// Quote is a point-in-time price snapshot for a symbol.
type Quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"`
	Volume int64   `json:"volume"`
}

// InsiderTrade is one reported insider transaction.
type InsiderTrade struct {
	Symbol     string    `json:"symbol"`
	Insider    string    `json:"insider"`
	Title      string    `json:"title"`
	TradeType  string    `json:"tradeType"` // "buy" or "sell"
	Shares     int64     `json:"shares"`
	Price      float64   `json:"price"`
	ValueUSD   float64   `json:"valueUsd"`
	FiledAt    time.Time `json:"filedAt"`
}

// AnalystRating is one broker rating action.
type AnalystRating struct {
	Symbol      string    `json:"symbol"`
	Firm        string    `json:"firm"`
	Action      string    `json:"action"` // "upgrade", "downgrade", "initiate", "maintain"
	Rating      string    `json:"rating"`
	PriceTarget float64   `json:"priceTarget"`
	RatedAt     time.Time `json:"ratedAt"`
}

// OptionsFlowEntry is one unusual options sweep/block.
type OptionsFlowEntry struct {
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"` // "call" or "put"
	Sentiment  string    `json:"sentiment"`
	Strike     float64   `json:"strike"`
	Expiry     time.Time `json:"expiry"`
	PremiumUSD float64   `json:"premiumUsd"`
	TradedAt   time.Time `json:"tradedAt"`
}

// HedgeFundHolding is one 13F position change.
type HedgeFundHolding struct {
	Symbol       string  `json:"symbol"`
	Fund         string  `json:"fund"`
	Action       string  `json:"action"` // "new", "added", "reduced", "exited"
	Shares       int64   `json:"shares"`
	ValueUSD     float64 `json:"valueUsd"`
	PortfolioPct float64 `json:"portfolioPct"`
	Quarter      string  `json:"quarter"`
}

// TechnicalIndicators is the indicator panel for a symbol.
type TechnicalIndicators struct {
	Symbol    string  `json:"symbol"`
	RSI14     float64 `json:"rsi14"`
	SMA50     float64 `json:"sma50"`
	SMA200    float64 `json:"sma200"`
	MACD      float64 `json:"macd"`
	Signal    string  `json:"signal"` // "bullish", "bearish", "neutral"
	Support   float64 `json:"support"`
	Resistance float64 `json:"resistance"`
}
