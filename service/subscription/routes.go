package subscription

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mbanwusi/TradePulse-server/cmd/models"
	"github.com/mbanwusi/TradePulse-server/cmd/utils"
	"github.com/mbanwusi/TradePulse-server/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// View is the subscription card shown on the dashboard.
type View struct {
	Status    string     `json:"status"`
	Expires   *time.Time `json:"expires"`
	IsExpired bool       `json:"is_expired"`
	DaysLeft  int        `json:"days_left"`
}

// NewView derives the subscription card from a profile.
func NewView(profile *models.Profile) View {
	view := View{
		Status:  profile.SubscriptionStatus,
		Expires: profile.SubscriptionExpires,
	}

	if profile.SubscriptionExpires != nil {
		now := time.Now()
		if profile.SubscriptionExpires.Before(now) {
			view.IsExpired = true
		} else {
			view.DaysLeft = int(profile.SubscriptionExpires.Sub(now).Hours() / 24)
		}
	}

	return view
}

type SubscriptionHandler struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubscriptionHandler(db *gorm.DB, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{db: db, log: log}
}

func (h *SubscriptionHandler) RegisterRoutes(router *mux.Router) {
	subscriptionRouter := router.PathPrefix("/subscriptions").Subrouter()

	subscriptionRouter.HandleFunc("/me", utils.AuthMiddleware(h.GetMySubscription)).Methods("GET")
	subscriptionRouter.HandleFunc("/user/{id}", utils.AdminMiddleware(h.db, h.SetUserSubscription)).Methods("PUT")
}

func (h *SubscriptionHandler) GetMySubscription(w http.ResponseWriter, r *http.Request) {
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

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: NewView(&profile)})
}

// SetUserSubscription lets an admin set a member's subscription status and
// expiry.
func (h *SubscriptionHandler) SetUserSubscription(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid profile ID")
		return
	}

	var req struct {
		Status  string     `json:"status"`
		Expires *time.Time `json:"expires"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch req.Status {
	case models.SubscriptionInactive, models.SubscriptionActive, models.SubscriptionExpired:
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid subscription status")
		return
	}

	var profile models.Profile
	if err := h.db.First(&profile, "id = ?", id).Error; err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Profile not found")
		return
	}

	updates := map[string]interface{}{
		"subscription_status":  req.Status,
		"subscription_expires": req.Expires,
	}
	if err := h.db.Model(&profile).Updates(updates).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error updating subscription")
		return
	}
	if err := h.db.First(&profile, "id = ?", id).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving profile")
		return
	}

	h.log.Info("subscription updated",
		zap.String("profile_id", profile.ID.String()),
		zap.String("status", req.Status))
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: NewView(&profile)})
}

// ExpireOverdue flips active subscriptions whose expiry has passed. Run
// periodically by the scheduler.
func ExpireOverdue(db *gorm.DB) (int64, error) {
	result := db.Model(&models.Profile{}).
		Where("subscription_status = ? AND subscription_expires IS NOT NULL AND subscription_expires < ?",
			models.SubscriptionActive, time.Now()).
		Update("subscription_status", models.SubscriptionExpired)
	return result.RowsAffected, result.Error
}
