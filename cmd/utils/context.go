package utils

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/mbanwusi/TradePulse-server/cmd/models"
	"gorm.io/gorm"
)

type contextKey string

const ProfileIDKey contextKey = "profileID"

var ErrNoProfileInContext = errors.New("profile ID not found in context")

func GetProfileIDFromContext(ctx context.Context) (uuid.UUID, error) {
	profileID, ok := ctx.Value(ProfileIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrNoProfileInContext
	}
	return profileID, nil
}

// AuthMiddleware validates the bearer access token and stores the profile ID
// in the request context.
func AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			RespondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(os.Getenv("SECRET_KEY")), nil
		})
		if err != nil || !token.Valid {
			RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		profileID, err := uuid.Parse(claims.Subject)
		if err != nil {
			RespondWithError(w, http.StatusUnauthorized, "Invalid profile ID in token")
			return
		}

		ctx := context.WithValue(r.Context(), ProfileIDKey, profileID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// AdminMiddleware loads the authenticated profile and rejects the request
// unless the admin flag is set. Always stacked after AuthMiddleware.
func AdminMiddleware(db *gorm.DB, next http.HandlerFunc) http.HandlerFunc {
	return AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		profileID, err := GetProfileIDFromContext(r.Context())
		if err != nil {
			RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var profile models.Profile
		if err := db.First(&profile, "id = ?", profileID).Error; err != nil {
			RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if !profile.IsAdmin {
			RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
