package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/mbanwusi/TradePulse-server/cmd/models"
)

// AnalysisService is the market_analysis surface of the API.
type AnalysisService struct {
	client *Client
}

type NewAnalysis struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

// AnalysisUpdate is a partial update; nil fields are left unchanged.
type AnalysisUpdate struct {
	Title    *string `json:"title,omitempty"`
	Category *string `json:"category,omitempty"`
	Content  *string `json:"content,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}

func (s *AnalysisService) GetAllAnalysis(ctx context.Context) ([]models.MarketAnalysis, error) {
	return s.list(ctx, "/analysis")
}

func (s *AnalysisService) GetAnalysisByCategory(ctx context.Context, category string) ([]models.MarketAnalysis, error) {
	return s.list(ctx, "/analysis/category/"+category)
}

func (s *AnalysisService) list(ctx context.Context, path string) ([]models.MarketAnalysis, error) {
	var envelope struct {
		Data []models.MarketAnalysis `json:"data"`
	}
	if err := s.client.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

func (s *AnalysisService) CreateAnalysis(ctx context.Context, analysis NewAnalysis) (*models.MarketAnalysis, error) {
	var envelope struct {
		Data models.MarketAnalysis `json:"data"`
	}
	if err := s.client.do(ctx, http.MethodPost, "/analysis", analysis, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

func (s *AnalysisService) UpdateAnalysis(ctx context.Context, id uuid.UUID, update AnalysisUpdate) (*models.MarketAnalysis, error) {
	var envelope struct {
		Data models.MarketAnalysis `json:"data"`
	}
	if err := s.client.do(ctx, http.MethodPut, "/analysis/"+id.String(), update, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

func (s *AnalysisService) DeleteAnalysis(ctx context.Context, id uuid.UUID) error {
	return s.client.do(ctx, http.MethodDelete, "/analysis/"+id.String(), nil, nil)
}
