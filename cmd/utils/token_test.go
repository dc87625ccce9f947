package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/mbanwusi/TradePulse-server/cmd/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	profileID := uuid.New()
	token, err := GenerateAccessToken(profileID, time.Hour)
	require.NoError(t, err)

	parsed, err := ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, profileID, parsed)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	token, err := GenerateAccessToken(uuid.New(), -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token)
	require.Error(t, err)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	token, err := GenerateAccessToken(uuid.New(), time.Hour)
	require.NoError(t, err)

	t.Setenv("SECRET_KEY", "another-secret")
	_, err = ParseToken(token)
	require.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	profileID := uuid.New()
	token, err := GenerateAccessToken(profileID, time.Hour)
	require.NoError(t, err)

	handler := AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		got, err := GetProfileIDFromContext(r.Context())
		require.NoError(t, err)
		require.Equal(t, profileID, got)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()
		handler(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		handler(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAdminMiddleware(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Profile{}))

	admin := models.Profile{Email: "admin@example.com", FullName: "A", PasswordHash: "x", IsAdmin: true}
	member := models.Profile{Email: "member@example.com", FullName: "M", PasswordHash: "x"}
	require.NoError(t, db.Create(&admin).Error)
	require.NoError(t, db.Create(&member).Error)

	handler := AdminMiddleware(db, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	request := func(profileID uuid.UUID) *httptest.ResponseRecorder {
		token, err := GenerateAccessToken(profileID, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler(w, req)
		return w
	}

	require.Equal(t, http.StatusOK, request(admin.ID).Code)
	require.Equal(t, http.StatusForbidden, request(member.ID).Code)
	require.Equal(t, http.StatusUnauthorized, request(uuid.New()).Code)
}
