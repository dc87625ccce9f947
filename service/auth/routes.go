package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mbanwusi/TradePulse-server/cmd/models"
	"github.com/mbanwusi/TradePulse-server/cmd/utils"
	"github.com/mbanwusi/TradePulse-server/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = 2 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
	resetTokenTTL   = 15 * time.Minute
)

// DefaultAdminEmail is the bootstrap admin account. Sign-ups with this
// address get the admin flag.
const DefaultAdminEmail = "testing@gmail.com"

// InvalidCredentialsMessage is returned verbatim for any failed login so the
// response does not reveal whether the account exists.
const InvalidCredentialsMessage = "Invalid login credentials"

func adminEmail() string {
	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		return email
	}
	return DefaultAdminEmail
}

type Handler struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHandler(db *gorm.DB, log *logger.Logger) *Handler {
	return &Handler{db: db, log: log}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/login", h.HandleLogin).Methods("POST")
	router.HandleFunc("/register", h.HandleRegister).Methods("POST")
	router.HandleFunc("/logout", utils.AuthMiddleware(h.HandleLogout)).Methods("POST")
	router.HandleFunc("/refresh", h.HandleRefreshToken).Methods("POST")
	router.HandleFunc("/me", utils.AuthMiddleware(h.GetCurrentProfile)).Methods("GET")
	router.HandleFunc("/profiles/{id}", utils.AuthMiddleware(h.GetProfile)).Methods("GET")
	router.HandleFunc("/reset-password", h.HandlePasswordResetRequest).Methods("POST")
	router.HandleFunc("/reset-password/{profileId}/confirm", h.HandlePasswordReset).Methods("POST")
	router.HandleFunc("/verify-reset-token", h.HandleVerifyResetToken).Methods("POST")
}

type loginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Profile      models.Profile `json:"profile"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var profile models.Profile
	result := h.db.Where("email = ?", loginRequest.Email).First(&profile)
	if result.Error != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, InvalidCredentialsMessage)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(loginRequest.Password)); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, InvalidCredentialsMessage)
		return
	}

	accessToken, err := utils.GenerateAccessToken(profile.ID, accessTokenTTL)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error generating access token")
		return
	}

	refreshToken, err := utils.GenerateAccessToken(profile.ID, refreshTokenTTL)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error generating refresh token")
		return
	}

	if err := h.saveRefreshToken(profile.ID, refreshToken); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error saving refresh token")
		return
	}

	h.log.Info("login", zap.String("profile_id", profile.ID.String()))
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: loginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Profile:      profile,
	}})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var registerRequest struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&registerRequest); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON input")
		return
	}

	if registerRequest.FullName == "" || registerRequest.Email == "" || registerRequest.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	var existing models.Profile
	if result := h.db.Where("email = ?", registerRequest.Email).First(&existing); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if result.Error != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Database error")
			return
		}
		utils.RespondWithError(w, http.StatusConflict, "Email is already in use")
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(registerRequest.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}

	profile := models.Profile{
		Email:              registerRequest.Email,
		FullName:           registerRequest.FullName,
		PasswordHash:       string(passwordHash),
		IsAdmin:            registerRequest.Email == adminEmail(),
		SubscriptionStatus: models.SubscriptionInactive,
	}

	if err := h.db.Create(&profile).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error registering user")
		return
	}

	h.log.Info("profile registered",
		zap.String("profile_id", profile.ID.String()),
		zap.Bool("is_admin", profile.IsAdmin))
	utils.RespondWithJSON(w, http.StatusCreated, utils.Response{Data: profile})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	profileID, err := utils.GetProfileIDFromContext(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.db.Where("profile_id = ?", profileID).Delete(&models.RefreshToken{}).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error revoking session")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: map[string]string{
		"message": "Signed out",
	}})
}

func (h *Handler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var refreshRequest struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&refreshRequest); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profileID, err := utils.ParseToken(refreshRequest.RefreshToken)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	var stored models.RefreshToken
	result := h.db.Where("profile_id = ? AND token = ?", profileID, refreshRequest.RefreshToken).First(&stored)
	if result.Error != nil || stored.ExpiresAt.Before(time.Now()) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Refresh token revoked or expired")
		return
	}

	accessToken, err := utils.GenerateAccessToken(profileID, accessTokenTTL)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error generating access token")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: map[string]string{
		"access_token": accessToken,
	}})
}

func (h *Handler) GetCurrentProfile(w http.ResponseWriter, r *http.Request) {
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

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: profile})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid profile ID")
		return
	}

	var profile models.Profile
	result := h.db.First(&profile, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Error retrieving profile")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: profile})
}

func (h *Handler) HandlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var resetRequest struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&resetRequest); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// The response is the same whether or not the account exists.
	message := map[string]string{"message": "If the account exists, a reset email has been sent"}

	var profile models.Profile
	if err := h.db.Where("email = ?", resetRequest.Email).First(&profile).Error; err != nil {
		utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: message})
		return
	}

	token := uuid.NewString()
	reset := models.PasswordResetToken{
		ProfileID: profile.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}

	if err := h.db.Where("profile_id = ?", profile.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
		h.log.Error("deleting stale reset tokens", zap.Error(err))
	}
	if err := h.db.Create(&reset).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error creating reset token")
		return
	}

	go func() {
		if err := sendResetEmail(profile.Email, profile.ID, token); err != nil {
			h.log.Error("sending reset email", zap.Error(err))
		}
	}()

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: message})
}

func (h *Handler) HandlePasswordReset(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	profileID, err := uuid.Parse(vars["profileId"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid profile ID")
		return
	}

	var resetRequest struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&resetRequest); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if resetRequest.Token == "" || resetRequest.NewPassword == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	var reset models.PasswordResetToken
	result := h.db.Where("profile_id = ? AND token = ?", profileID, resetRequest.Token).First(&reset)
	if result.Error != nil || reset.ExpiresAt.Before(time.Now()) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired reset token")
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(resetRequest.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}

	if err := h.db.Model(&models.Profile{}).Where("id = ?", profileID).
		Update("password_hash", string(passwordHash)).Error; err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error updating password")
		return
	}

	if err := h.db.Where("profile_id = ?", profileID).Delete(&models.PasswordResetToken{}).Error; err != nil {
		h.log.Error("deleting used reset token", zap.Error(err))
	}
	// Changing the password invalidates existing sessions.
	if err := h.db.Where("profile_id = ?", profileID).Delete(&models.RefreshToken{}).Error; err != nil {
		h.log.Error("revoking sessions after password reset", zap.Error(err))
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: map[string]string{
		"message": "Password updated",
	}})
}

func (h *Handler) HandleVerifyResetToken(w http.ResponseWriter, r *http.Request) {
	var verifyRequest struct {
		ProfileID string `json:"profile_id"`
		Token     string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&verifyRequest); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profileID, err := uuid.Parse(verifyRequest.ProfileID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid profile ID")
		return
	}

	var reset models.PasswordResetToken
	result := h.db.Where("profile_id = ? AND token = ?", profileID, verifyRequest.Token).First(&reset)
	valid := result.Error == nil && reset.ExpiresAt.After(time.Now())

	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Data: map[string]bool{
		"valid": valid,
	}})
}

func (h *Handler) saveRefreshToken(profileID uuid.UUID, token string) error {
	return h.db.Create(&models.RefreshToken{
		ProfileID: profileID,
		Token:     token,
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}).Error
}
