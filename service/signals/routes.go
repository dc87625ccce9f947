package signals

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mbanwusi/TradePulse-server/cmd/models"
	"github.com/mbanwusi/TradePulse-server/cmd/utils"
	"github.com/mbanwusi/TradePulse-server/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var validate = validator.New()

type SignalHandler struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSignalHandler(db *gorm.DB, log *logger.Logger) *SignalHandler {
	return &SignalHandler{db: db, log: log}
}

func (h *SignalHandler) RegisterRoutes(router *mux.Router) {
	signalRouter := router.PathPrefix("/signals").Subrouter()

	// Status-filtered and aggregate routes before the id route so they are
	// not captured by it.
	signalRouter.HandleFunc("/active", utils.AuthMiddleware(h.GetActiveSignals)).Methods("GET")
	signalRouter.HandleFunc("/closed", utils.AuthMiddleware(h.GetClosedSignals)).Methods("GET")
	signalRouter.HandleFunc("/stats", utils.AuthMiddleware(h.GetSignalStats)).Methods("GET")
	// The pair rides in ?pair= because real pairs contain a slash
	// ("EUR/USD"), which a path segment cannot carry.
	signalRouter.HandleFunc("/pair", utils.AuthMiddleware(h.GetSignalsByPair)).Methods("GET")

	signalRouter.HandleFunc("", utils.AdminMiddleware(h.db, h.CreateSignal)).Methods("POST")
	signalRouter.HandleFunc("", utils.AuthMiddleware(h.GetSignals)).Methods("GET")
	signalRouter.HandleFunc("/{id}", utils.AuthMiddleware(h.GetSignalByID)).Methods("GET")
	signalRouter.HandleFunc("/{id}", utils.AdminMiddleware(h.db, h.UpdateSignal)).Methods("PUT")
	signalRouter.HandleFunc("/{id}", utils.AdminMiddleware(h.db, h.DeleteSignal)).Methods("DELETE")
	signalRouter.HandleFunc("/{id}/close", utils.AdminMiddleware(h.db, h.CloseSignal)).Methods("POST")
}

// CreateSignalRequest carries the admin form fields. Prices are opaque text
// and deliberately not parsed as numbers.
type CreateSignalRequest struct {
	Pair       string `json:"pair" validate:"required"`
	SignalType string `json:"signal_type" validate:"required,oneof=BUY SELL"`
	EntryPrice string `json:"entry_price" validate:"required"`
	TakeProfit string `json:"take_profit" validate:"required"`
	StopLoss   string `json:"stop_loss" validate:"required"`
	ExitPrice  string `json:"exit_price"`
	Note       string `json:"note"`
	Status     string `json:"status" validate:"omitempty,oneof=active closed"`
}

type UpdateSignalRequest struct {
	Pair       *string    `json:"pair"`
	SignalType *string    `json:"signal_type"`
	Status     *string    `json:"status"`
	EntryPrice *string    `json:"entry_price"`
	ExitPrice  *string    `json:"exit_price"`
	StopLoss   *string    `json:"stop_loss"`
	TakeProfit *string    `json:"take_profit"`
	Note       *string    `json:"note"`
	ClosedAt   *time.Time `json:"closed_at"`
}

func (h *SignalHandler) CreateSignal(w http.ResponseWriter, r *http.Request) {
	profileID, err := utils.GetProfileIDFromContext(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing required fields: pair, signal_type, entry_price, take_profit and stop_loss are required")
		return
	}

	status := req.Status
	if status == "" {
		status = models.SignalActive
	}

	signal := models.TradingSignal{
		Pair:       req.Pair,
		SignalType: req.SignalType,
		Status:     status,
		EntryPrice: req.EntryPrice,
		ExitPrice:  req.ExitPrice,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Note:       req.Note,
		CreatedBy:  &profileID,
	}

	if err := h.db.Create(&signal).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error creating signal")
		return
	}

	h.log.Info("signal created",
		zap.String("signal_id", signal.ID.String()),
		zap.String("pair", signal.Pair))
	utils.RespondWithJSON(w, http.StatusCreated, utils.Response{Data: signal})
}

// GetSignals returns signals newest first, optionally filtered by ?status=.
func (h *SignalHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 100
	if query.Get("limit") != "" {
		if parsed, err := strconv.Atoi(query.Get("limit")); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	offset := 0
	if query.Get("offset") != "" {
		if parsed, err := strconv.Atoi(query.Get("offset")); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	tx := h.db.Order("created_at DESC").Limit(limit).Offset(offset)
	if status := query.Get("status"); status != "" {
		tx = tx.Where("status = ?", status)
	}

	signals := []models.TradingSignal{}
	if err := tx.Find(&signals).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving signals")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: signals})
}

func (h *SignalHandler) GetActiveSignals(w http.ResponseWriter, r *http.Request) {
	h.getSignalsByStatus(w, models.SignalActive)
}

func (h *SignalHandler) GetClosedSignals(w http.ResponseWriter, r *http.Request) {
	h.getSignalsByStatus(w, models.SignalClosed)
}

func (h *SignalHandler) getSignalsByStatus(w http.ResponseWriter, status string) {
	signals := []models.TradingSignal{}
	if err := h.db.Where("status = ?", status).Order("created_at DESC").Find(&signals).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving signals")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: signals})
}

func (h *SignalHandler) GetSignalByID(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid signal ID")
		return
	}

	var signal models.TradingSignal
	if err := h.db.First(&signal, "id = ?", id).Error; err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Signal not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: signal})
}

func (h *SignalHandler) UpdateSignal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid signal ID")
		return
	}

	var req UpdateSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var signal models.TradingSignal
	if err := h.db.First(&signal, "id = ?", id).Error; err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Signal not found")
		return
	}

	updates := map[string]interface{}{}
	if req.Pair != nil {
		updates["pair"] = *req.Pair
	}
	if req.SignalType != nil {
		updates["signal_type"] = *req.SignalType
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.EntryPrice != nil {
		updates["entry_price"] = *req.EntryPrice
	}
	if req.ExitPrice != nil {
		updates["exit_price"] = *req.ExitPrice
	}
	if req.StopLoss != nil {
		updates["stop_loss"] = *req.StopLoss
	}
	if req.TakeProfit != nil {
		updates["take_profit"] = *req.TakeProfit
	}
	if req.Note != nil {
		updates["note"] = *req.Note
	}
	if req.ClosedAt != nil {
		updates["closed_at"] = *req.ClosedAt
	}

	if len(updates) > 0 {
		if err := h.db.Model(&signal).Updates(updates).Error; err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Error updating signal")
			return
		}
		if err := h.db.First(&signal, "id = ?", id).Error; err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving signal")
			return
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: signal})
}

func (h *SignalHandler) DeleteSignal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid signal ID")
		return
	}

	result := h.db.Delete(&models.TradingSignal{}, "id = ?", id)
	if result.Error != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error deleting signal")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Signal not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: map[string]string{
		"message": "Signal deleted successfully",
	}})
}

// CloseSignal marks a signal closed and stamps closed_at.
func (h *SignalHandler) CloseSignal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid signal ID")
		return
	}

	var signal models.TradingSignal
	if err := h.db.First(&signal, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Signal not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving signal")
		return
	}

	now := time.Now().UTC()
	signal.Status = models.SignalClosed
	signal.ClosedAt = &now

	if err := h.db.Save(&signal).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error closing signal")
		return
	}

	h.log.Info("signal closed", zap.String("signal_id", signal.ID.String()))
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: signal})
}

func (h *SignalHandler) GetSignalsByPair(w http.ResponseWriter, r *http.Request) {
	pair := r.URL.Query().Get("pair")
	if pair == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing pair parameter")
		return
	}

	signals := []models.TradingSignal{}
	if err := h.db.Where("pair = ?", pair).Order("created_at DESC").Find(&signals).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving signals")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: signals})
}

// GetSignalStats returns aggregate signal counts.
func (h *SignalHandler) GetSignalStats(w http.ResponseWriter, r *http.Request) {
	var stats struct {
		TotalCount  int64          `json:"total_count"`
		PairCounts  map[string]int `json:"pair_counts"`
		TypeCounts  map[string]int `json:"type_counts"`
		ActiveCount int64          `json:"active_count"`
		ClosedCount int64          `json:"closed_count"`
	}
	stats.PairCounts = make(map[string]int)
	stats.TypeCounts = make(map[string]int)

	h.db.Model(&models.TradingSignal{}).Count(&stats.TotalCount)
	h.db.Model(&models.TradingSignal{}).Where("status = ?", models.SignalActive).Count(&stats.ActiveCount)
	h.db.Model(&models.TradingSignal{}).Where("status = ?", models.SignalClosed).Count(&stats.ClosedCount)

	var pairResults []struct {
		Pair  string
		Count int
	}
	h.db.Model(&models.TradingSignal{}).Select("pair, count(*) as count").Group("pair").Find(&pairResults)
	for _, result := range pairResults {
		stats.PairCounts[result.Pair] = result.Count
	}

	var typeResults []struct {
		SignalType string
		Count      int
	}
	h.db.Model(&models.TradingSignal{}).Select("signal_type, count(*) as count").Group("signal_type").Find(&typeResults)
	for _, result := range typeResults {
		stats.TypeCounts[result.SignalType] = result.Count
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: stats})
}
