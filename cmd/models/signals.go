package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Signal lifecycle: a signal is created active and is closed exactly once.
const (
	SignalActive = "active"
	SignalClosed = "closed"
)

const (
	SignalBuy  = "BUY"
	SignalSell = "SELL"
)

// TradingSignal mirrors the trading_signals table. Price fields are opaque
// text, stored and returned exactly as entered.
type TradingSignal struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Pair       string     `gorm:"column:pair;type:text;not null" json:"pair"`
	SignalType string     `gorm:"column:signal_type;type:text;not null" json:"signal_type"`
	Status     string     `gorm:"column:status;size:50;not null;default:active" json:"status"`
	EntryPrice string     `gorm:"column:entry_price;type:text" json:"entry_price"`
	ExitPrice  string     `gorm:"column:exit_price;type:text" json:"exit_price"`
	StopLoss   string     `gorm:"column:stop_loss;type:text" json:"stop_loss"`
	TakeProfit string     `gorm:"column:take_profit;type:text" json:"take_profit"`
	Note       string     `gorm:"column:note;type:text" json:"note"`
	CreatedBy  *uuid.UUID `gorm:"column:created_by;type:uuid" json:"created_by"`
	CreatedAt  time.Time  `gorm:"column:created_at" json:"created_at"`
	ClosedAt   *time.Time `gorm:"column:closed_at" json:"closed_at"`
}

func (TradingSignal) TableName() string {
	return "trading_signals"
}

func (s *TradingSignal) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
