package subscription

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gorilla/mux"
	"github.com/mbanwusi/TradePulse-server/cmd/models"
	"github.com/mbanwusi/TradePulse-server/cmd/utils"
	"github.com/mbanwusi/TradePulse-server/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) (*mux.Router, *gorm.DB) {
	t.Helper()
	t.Setenv("SECRET_KEY", "test-secret")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Profile{}))

	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()
	NewSubscriptionHandler(db, logger.NewNop()).RegisterRoutes(subrouter)
	return router, db
}

func createProfile(t *testing.T, db *gorm.DB, email string, admin bool, status string, expires *time.Time) (models.Profile, string) {
	t.Helper()
	profile := models.Profile{
		Email:               email,
		FullName:            "Test Member",
		PasswordHash:        "irrelevant",
		IsAdmin:             admin,
		SubscriptionStatus:  status,
		SubscriptionExpires: expires,
	}
	require.NoError(t, db.Create(&profile).Error)

	token, err := utils.GenerateAccessToken(profile.ID, time.Hour)
	require.NoError(t, err)
	return profile, token
}

func doRequest(t *testing.T, router *mux.Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) View {
	t.Helper()
	var envelope struct {
		Data View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestNewView(t *testing.T) {
	t.Run("no expiry", func(t *testing.T) {
		view := NewView(&models.Profile{SubscriptionStatus: models.SubscriptionInactive})
		require.Equal(t, models.SubscriptionInactive, view.Status)
		require.Nil(t, view.Expires)
		require.False(t, view.IsExpired)
		require.Zero(t, view.DaysLeft)
	})

	t.Run("active with days left", func(t *testing.T) {
		expires := time.Now().Add(5*24*time.Hour + time.Hour)
		view := NewView(&models.Profile{
			SubscriptionStatus:  models.SubscriptionActive,
			SubscriptionExpires: &expires,
		})
		require.False(t, view.IsExpired)
		require.Equal(t, 5, view.DaysLeft)
	})

	t.Run("past expiry", func(t *testing.T) {
		expires := time.Now().Add(-time.Hour)
		view := NewView(&models.Profile{
			SubscriptionStatus:  models.SubscriptionActive,
			SubscriptionExpires: &expires,
		})
		require.True(t, view.IsExpired)
		require.Zero(t, view.DaysLeft)
	})
}

func TestGetMySubscription(t *testing.T) {
	router, db := setupTest(t)

	expires := time.Now().Add(30 * 24 * time.Hour)
	_, token := createProfile(t, db, "member@example.com", false, models.SubscriptionActive, &expires)

	w := doRequest(t, router, "GET", "/api/v1/subscriptions/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	view := decodeView(t, w)
	require.Equal(t, models.SubscriptionActive, view.Status)
	require.NotNil(t, view.Expires)
	require.False(t, view.IsExpired)
}

func TestSetUserSubscription(t *testing.T) {
	router, db := setupTest(t)

	_, adminToken := createProfile(t, db, "admin@example.com", true, models.SubscriptionInactive, nil)
	member, _ := createProfile(t, db, "member@example.com", false, models.SubscriptionInactive, nil)

	expires := time.Now().Add(30 * 24 * time.Hour).UTC()
	w := doRequest(t, router, "PUT", "/api/v1/subscriptions/user/"+member.ID.String(), adminToken, map[string]interface{}{
		"status":  models.SubscriptionActive,
		"expires": expires,
	})
	require.Equal(t, http.StatusOK, w.Code)

	view := decodeView(t, w)
	require.Equal(t, models.SubscriptionActive, view.Status)
	require.NotNil(t, view.Expires)

	var stored models.Profile
	require.NoError(t, db.First(&stored, "id = ?", member.ID).Error)
	require.Equal(t, models.SubscriptionActive, stored.SubscriptionStatus)
}

func TestSetUserSubscriptionRejectsUnknownStatus(t *testing.T) {
	router, db := setupTest(t)

	_, adminToken := createProfile(t, db, "admin@example.com", true, models.SubscriptionInactive, nil)
	member, _ := createProfile(t, db, "member@example.com", false, models.SubscriptionInactive, nil)

	w := doRequest(t, router, "PUT", "/api/v1/subscriptions/user/"+member.ID.String(), adminToken, map[string]string{
		"status": "trial",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetUserSubscriptionRequiresAdmin(t *testing.T) {
	router, db := setupTest(t)

	_, memberToken := createProfile(t, db, "member@example.com", false, models.SubscriptionInactive, nil)
	other, _ := createProfile(t, db, "other@example.com", false, models.SubscriptionInactive, nil)

	w := doRequest(t, router, "PUT", "/api/v1/subscriptions/user/"+other.ID.String(), memberToken, map[string]string{
		"status": models.SubscriptionActive,
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestExpireOverdue(t *testing.T) {
	_, db := setupTest(t)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(24 * time.Hour)

	overdue, _ := createProfile(t, db, "overdue@example.com", false, models.SubscriptionActive, &past)
	current, _ := createProfile(t, db, "current@example.com", false, models.SubscriptionActive, &future)
	open, _ := createProfile(t, db, "open@example.com", false, models.SubscriptionActive, nil)

	flipped, err := ExpireOverdue(db)
	require.NoError(t, err)
	require.EqualValues(t, 1, flipped)

	// Fresh destination per lookup: reusing one struct would feed the
	// previous row's primary key back into the next query.
	var flippedProfile models.Profile
	require.NoError(t, db.First(&flippedProfile, "id = ?", overdue.ID).Error)
	require.Equal(t, models.SubscriptionExpired, flippedProfile.SubscriptionStatus)

	var currentProfile models.Profile
	require.NoError(t, db.First(&currentProfile, "id = ?", current.ID).Error)
	require.Equal(t, models.SubscriptionActive, currentProfile.SubscriptionStatus)

	// No expiry set means nothing to expire.
	var openProfile models.Profile
	require.NoError(t, db.First(&openProfile, "id = ?", open.ID).Error)
	require.Equal(t, models.SubscriptionActive, openProfile.SubscriptionStatus)
}
