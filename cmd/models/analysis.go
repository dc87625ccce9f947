package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnalysisCategories is the fixed category set for market analyses.
var AnalysisCategories = []string{"Forex", "Crypto", "Stocks", "Commodities"}

func ValidCategory(category string) bool {
	for _, c := range AnalysisCategories {
		if c == category {
			return true
		}
	}
	return false
}

type MarketAnalysis struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string     `gorm:"column:title;type:text;not null" json:"title"`
	Category  string     `gorm:"column:category;size:50;not null" json:"category"`
	Content   string     `gorm:"column:content;type:text;not null" json:"content"`
	ImageURL  string     `gorm:"column:image_url;type:text" json:"image_url"`
	CreatedBy *uuid.UUID `gorm:"column:created_by;type:uuid" json:"created_by"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (MarketAnalysis) TableName() string {
	return "market_analysis"
}

func (a *MarketAnalysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
