package rate

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceFeed names a source of exchange-rate observations for a base/quote
// token pair on one chain. The stored direction is whatever the source
// publishes; lookups must try both directions.
type PriceFeed struct {
	ID            uint64 `gorm:"primaryKey;column:id" json:"-"`
	FeedID        string `gorm:"size:32;column:feed_id;uniqueIndex:ux_price_feeds_feed_id" json:"feed_id"`
	BlockchainKey string `gorm:"size:32;column:blockchain_key;index:idx_price_feeds_pair" json:"blockchain_key"`
	BaseTokenID   string `gorm:"size:32;column:base_token_id;index:idx_price_feeds_pair" json:"base_token_id"`
	QuoteTokenID  string `gorm:"size:32;column:quote_token_id;index:idx_price_feeds_pair" json:"quote_token_id"`
	Provider      string `gorm:"size:64;column:provider" json:"provider"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (PriceFeed) TableName() string { return "price_feeds" }

// ExchangeRate is one observation on a feed. The series is append-only;
// "latest" means greatest source_date.
type ExchangeRate struct {
	ID         uint64          `gorm:"primaryKey;column:id" json:"-"`
	FeedID     string          `gorm:"size:32;column:feed_id;index:idx_exchange_rates_feed_date" json:"feed_id"`
	BidPrice   decimal.Decimal `gorm:"type:decimal(38,18);column:bid_price" json:"bid_price"`
	AskPrice   decimal.Decimal `gorm:"type:decimal(38,18);column:ask_price" json:"ask_price"`
	SourceDate time.Time       `gorm:"column:source_date;index:idx_exchange_rates_feed_date" json:"source_date"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime" json:"-"`
}

func (ExchangeRate) TableName() string { return "exchange_rates" }

// Quote is a resolved rate with its direction normalized to the caller's
// base/quote request. When the feed stores the inverse pair, bid and ask
// trade places and invert.
type Quote struct {
	FeedID     string
	BidPrice   decimal.Decimal
	AskPrice   decimal.Decimal
	SourceDate time.Time
	Inverted   bool
}

// Invert flips a quote into the opposite direction: 1/ask becomes the bid
// side and 1/bid the ask side.
func (q Quote) Invert() Quote {
	one := decimal.New(1, 0)
	return Quote{
		FeedID:     q.FeedID,
		BidPrice:   one.DivRound(q.AskPrice, 18),
		AskPrice:   one.DivRound(q.BidPrice, 18),
		SourceDate: q.SourceDate,
		Inverted:   !q.Inverted,
	}
}
