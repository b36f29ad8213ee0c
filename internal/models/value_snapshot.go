package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CollectionValueSnapshot stores a user's daily collection value for historical tracking
type CollectionValueSnapshot struct {
	ID           uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       string          `json:"user_id" gorm:"not null;uniqueIndex:idx_user_snapshot_date"`
	SnapshotDate time.Time       `json:"snapshot_date" gorm:"not null;uniqueIndex:idx_user_snapshot_date"`
	TotalCards   int             `json:"total_cards"`
	UniqueCards  int             `json:"unique_cards"`
	TotalValue   decimal.Decimal `json:"total_value" gorm:"type:numeric(14,2)"`
	PrizeValue   decimal.Decimal `json:"prize_value" gorm:"type:numeric(14,2)"`
	EliteValue   decimal.Decimal `json:"elite_value" gorm:"type:numeric(14,2)"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ValueHistoryResponse is the API response for value history
type ValueHistoryResponse struct {
	Snapshots []CollectionValueSnapshot `json:"snapshots"`
	Period    string                    `json:"period"` // "week", "month", "3month", "year", "all"
	Change    decimal.Decimal           `json:"change"` // last minus first total value
}
