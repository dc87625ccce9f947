package dashboard

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mbanwusi/TradePulse-server/cmd/models"
	"github.com/mbanwusi/TradePulse-server/cmd/utils"
	"github.com/mbanwusi/TradePulse-server/pkg/logger"
	"github.com/mbanwusi/TradePulse-server/service/subscription"
	"gorm.io/gorm"
)

const feedLimit = 20

type DashboardHandler struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDashboardHandler(db *gorm.DB, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{db: db, log: log}
}

func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	dashboardRouter := router.PathPrefix("/dashboard").Subrouter()
	dashboardRouter.HandleFunc("", utils.AuthMiddleware(h.GetDashboard)).Methods("GET")
	dashboardRouter.HandleFunc("/stats", utils.AdminMiddleware(h.db, h.GetDashboardStats)).Methods("GET")
}

// Feed is everything the home screen needs in one response: the member's
// subscription card plus the latest signals and analyses.
type Feed struct {
	Profile      models.Profile          `json:"profile"`
	Subscription subscription.View       `json:"subscription"`
	Signals      []models.TradingSignal  `json:"signals"`
	Analyses     []models.MarketAnalysis `json:"analyses"`
}

func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	profileID, err := utils.GetProfileIDFromContext(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var profile models.Profile
	if err := h.db.First(&profile, "id = ?", profileID).Error; err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Profile not found")
		return
	}

	feed := Feed{
		Profile:      profile,
		Subscription: subscription.NewView(&profile),
		Signals:      []models.TradingSignal{},
		Analyses:     []models.MarketAnalysis{},
	}

	if err := h.db.Where("status = ?", models.SignalActive).
		Order("created_at DESC").Limit(feedLimit).
		Find(&feed.Signals).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving signals")
		return
	}

	if err := h.db.Order("created_at DESC").Limit(feedLimit).
		Find(&feed.Analyses).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving analysis")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: feed})
}

type DashboardStats struct {
	TotalMembers      int64 `json:"total_members"`
	ActiveSubscribers int64 `json:"active_subscribers"`
	ActiveSignals     int64 `json:"active_signals"`
	ClosedSignals     int64 `json:"closed_signals"`
	PublishedAnalyses int64 `json:"published_analyses"`
}

func (h *DashboardHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	var stats DashboardStats

	h.db.Model(&models.Profile{}).Count(&stats.TotalMembers)
	h.db.Model(&models.Profile{}).Where("subscription_status = ?", models.SubscriptionActive).Count(&stats.ActiveSubscribers)
	h.db.Model(&models.TradingSignal{}).Where("status = ?", models.SignalActive).Count(&stats.ActiveSignals)
	h.db.Model(&models.TradingSignal{}).Where("status = ?", models.SignalClosed).Count(&stats.ClosedSignals)
	h.db.Model(&models.MarketAnalysis{}).Count(&stats.PublishedAnalyses)

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: stats})
}
