package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/mbanwusi/TradePulse-server/cmd/models"
)

// SignalsService is the trading_signals surface of the API.
type SignalsService struct {
	client *Client
}

// NewSignal is the payload for creating a signal. Prices are opaque text.
type NewSignal struct {
	Pair       string `json:"pair"`
	SignalType string `json:"signal_type"`
	Status     string `json:"status"`
	EntryPrice string `json:"entry_price"`
	ExitPrice  string `json:"exit_price"`
	StopLoss   string `json:"stop_loss"`
	TakeProfit string `json:"take_profit"`
	Note       string `json:"note"`
}

// SignalUpdate is a partial update; nil fields are left unchanged.
type SignalUpdate struct {
	Pair       *string    `json:"pair,omitempty"`
	SignalType *string    `json:"signal_type,omitempty"`
	Status     *string    `json:"status,omitempty"`
	EntryPrice *string    `json:"entry_price,omitempty"`
	ExitPrice  *string    `json:"exit_price,omitempty"`
	StopLoss   *string    `json:"stop_loss,omitempty"`
	TakeProfit *string    `json:"take_profit,omitempty"`
	Note       *string    `json:"note,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

func (s *SignalsService) GetAllSignals(ctx context.Context) ([]models.TradingSignal, error) {
	return s.list(ctx, "/signals")
}

func (s *SignalsService) GetActiveSignals(ctx context.Context) ([]models.TradingSignal, error) {
	return s.list(ctx, "/signals/active")
}

func (s *SignalsService) GetClosedSignals(ctx context.Context) ([]models.TradingSignal, error) {
	return s.list(ctx, "/signals/closed")
}

// GetSignalsByPair filters by pair. The pair is sent as a query parameter so
// slash-containing pairs like "EUR/USD" survive the trip.
func (s *SignalsService) GetSignalsByPair(ctx context.Context, pair string) ([]models.TradingSignal, error) {
	return s.list(ctx, "/signals/pair?pair="+url.QueryEscape(pair))
}

func (s *SignalsService) list(ctx context.Context, path string) ([]models.TradingSignal, error) {
	var envelope struct {
		Data []models.TradingSignal `json:"data"`
	}
	if err := s.client.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

func (s *SignalsService) CreateSignal(ctx context.Context, signal NewSignal) (*models.TradingSignal, error) {
	var envelope struct {
		Data models.TradingSignal `json:"data"`
	}
	if err := s.client.do(ctx, http.MethodPost, "/signals", signal, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

func (s *SignalsService) UpdateSignal(ctx context.Context, id uuid.UUID, update SignalUpdate) (*models.TradingSignal, error) {
	var envelope struct {
		Data models.TradingSignal `json:"data"`
	}
	if err := s.client.do(ctx, http.MethodPut, "/signals/"+id.String(), update, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

func (s *SignalsService) DeleteSignal(ctx context.Context, id uuid.UUID) error {
	return s.client.do(ctx, http.MethodDelete, "/signals/"+id.String(), nil, nil)
}

// CloseSignal marks a signal closed, stamping the closing time client-side.
func (s *SignalsService) CloseSignal(ctx context.Context, id uuid.UUID) (*models.TradingSignal, error) {
	status := models.SignalClosed
	closedAt := time.Now().UTC()
	return s.UpdateSignal(ctx, id, SignalUpdate{
		Status:   &status,
		ClosedAt: &closedAt,
	})
}
