package analysis

import (
	"encoding/json"
	"net/http"
	"strconv"

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

type AnalysisHandler struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisHandler(db *gorm.DB, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{db: db, log: log}
}

func (h *AnalysisHandler) RegisterRoutes(router *mux.Router) {
	analysisRouter := router.PathPrefix("/analysis").Subrouter()

	analysisRouter.HandleFunc("/category/{category}", utils.AuthMiddleware(h.GetAnalysisByCategory)).Methods("GET")

	analysisRouter.HandleFunc("", utils.AdminMiddleware(h.db, h.CreateAnalysis)).Methods("POST")
	analysisRouter.HandleFunc("", utils.AuthMiddleware(h.GetAllAnalysis)).Methods("GET")
	analysisRouter.HandleFunc("/{id}", utils.AuthMiddleware(h.GetAnalysisByID)).Methods("GET")
	analysisRouter.HandleFunc("/{id}", utils.AdminMiddleware(h.db, h.UpdateAnalysis)).Methods("PUT")
	analysisRouter.HandleFunc("/{id}", utils.AdminMiddleware(h.db, h.DeleteAnalysis)).Methods("DELETE")
}

type CreateAnalysisRequest struct {
	Title    string `json:"title" validate:"required"`
	Category string `json:"category" validate:"required,oneof=Forex Crypto Stocks Commodities"`
	Content  string `json:"content" validate:"required"`
	ImageURL string `json:"image_url"`
}

type UpdateAnalysisRequest struct {
	Title    *string `json:"title"`
	Category *string `json:"category"`
	Content  *string `json:"content"`
	ImageURL *string `json:"image_url"`
}

func (h *AnalysisHandler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	profileID, err := utils.GetProfileIDFromContext(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing required fields: title, category and content are required")
		return
	}

	record := models.MarketAnalysis{
		Title:     req.Title,
		Category:  req.Category,
		Content:   req.Content,
		ImageURL:  req.ImageURL,
		CreatedBy: &profileID,
	}

	if err := h.db.Create(&record).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error creating analysis")
		return
	}

	h.log.Info("analysis created",
		zap.String("analysis_id", record.ID.String()),
		zap.String("category", record.Category))
	utils.RespondWithJSON(w, http.StatusCreated, utils.Response{Data: record})
}

// GetAllAnalysis returns analyses newest first, optionally filtered by
// ?category=.
func (h *AnalysisHandler) GetAllAnalysis(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 100
	if query.Get("limit") != "" {
		if parsed, err := strconv.Atoi(query.Get("limit")); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	tx := h.db.Order("created_at DESC").Limit(limit)
	if category := query.Get("category"); category != "" {
		tx = tx.Where("category = ?", category)
	}

	records := []models.MarketAnalysis{}
	if err := tx.Find(&records).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving analysis")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: records})
}

func (h *AnalysisHandler) GetAnalysisByCategory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	category := vars["category"]

	if !models.ValidCategory(category) {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown category")
		return
	}

	records := []models.MarketAnalysis{}
	if err := h.db.Where("category = ?", category).Order("created_at DESC").Find(&records).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving analysis")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: records})
}

func (h *AnalysisHandler) GetAnalysisByID(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid analysis ID")
		return
	}

	var record models.MarketAnalysis
	if err := h.db.First(&record, "id = ?", id).Error; err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Analysis not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: record})
}

func (h *AnalysisHandler) UpdateAnalysis(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid analysis ID")
		return
	}

	var req UpdateAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Category != nil && !models.ValidCategory(*req.Category) {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown category")
		return
	}

	var record models.MarketAnalysis
	if err := h.db.First(&record, "id = ?", id).Error; err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Analysis not found")
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}

	if len(updates) > 0 {
		if err := h.db.Model(&record).Updates(updates).Error; err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Error updating analysis")
			return
		}
		if err := h.db.First(&record, "id = ?", id).Error; err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving analysis")
			return
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: record})
}

func (h *AnalysisHandler) DeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid analysis ID")
		return
	}

	result := h.db.Delete(&models.MarketAnalysis{}, "id = ?", id)
	if result.Error != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error deleting analysis")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Analysis not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: map[string]string{
		"message": "Analysis deleted successfully",
	}})
}
