package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/mbanwusi/TradePulse-server/cmd/api"
	"github.com/mbanwusi/TradePulse-server/cmd/models"
	"github.com/mbanwusi/TradePulse-server/pkg/client"
	"github.com/mbanwusi/TradePulse-server/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestServer serves the real route table over an in-memory database.
func newTestServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("ADMIN_EMAIL", client.BootstrapEmail)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.TradingSignal{},
		&models.MarketAnalysis{},
		&models.RefreshToken{},
		&models.PasswordResetToken{},
	))

	server := httptest.NewServer(api.NewApiServer("", db, logger.NewNop()).Router())
	t.Cleanup(server.Close)
	return server, db
}

func newClient(t *testing.T) (*client.Client, *gorm.DB) {
	t.Helper()
	server, db := newTestServer(t)
	return client.New(client.Config{BaseURL: server.URL, APIKey: "test-anon-key"}), db
}

func signInBootstrap(t *testing.T, c *client.Client) *client.Session {
	t.Helper()
	session, err := c.Auth().SignIn(context.Background(), client.BootstrapEmail, client.BootstrapPassword)
	require.NoError(t, err)
	require.NotNil(t, session)
	return session
}

func TestSignInRejectsNonBootstrapWithoutNetworkCall(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	c := client.New(client.Config{BaseURL: server.URL})
	session, err := c.Auth().SignIn(context.Background(), "someone@example.com", "password123")

	require.Nil(t, session)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, client.RejectionMessage, apiErr.Message)
	require.Zero(t, requests.Load(), "rejection must not hit the server")
}

func TestSignInProvisionsBootstrapAccountOnFirstUse(t *testing.T) {
	c, db := newClient(t)

	session := signInBootstrap(t, c)
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)

	var profile models.Profile
	require.NoError(t, db.Where("email = ?", client.BootstrapEmail).First(&profile).Error)
	require.Equal(t, profile.ID, session.ProfileID)
	require.True(t, profile.IsAdmin)
	require.Equal(t, client.BootstrapFullName, profile.FullName)

	// Second sign-in hits the existing account.
	again, err := c.Auth().SignIn(context.Background(), client.BootstrapEmail, client.BootstrapPassword)
	require.NoError(t, err)
	require.Equal(t, profile.ID, again.ProfileID)

	var count int64
	db.Model(&models.Profile{}).Count(&count)
	require.EqualValues(t, 1, count)
}

func TestAuthStateEvents(t *testing.T) {
	c, _ := newClient(t)

	var events []client.AuthEvent
	unsubscribe := c.OnAuthStateChange(func(event client.AuthEvent, session *client.Session) {
		events = append(events, event)
		if event == client.SignedOut {
			require.Nil(t, session)
		} else {
			require.NotNil(t, session)
		}
	})

	signInBootstrap(t, c)
	require.NoError(t, c.Auth().SignOut(context.Background()))
	require.Equal(t, []client.AuthEvent{client.SignedIn, client.SignedOut}, events)
	require.Nil(t, c.Session())

	unsubscribe()
	signInBootstrap(t, c)
	require.Len(t, events, 2, "unsubscribed handler must not fire")
}

func TestCurrentUser(t *testing.T) {
	c, _ := newClient(t)
	signInBootstrap(t, c)

	profile, err := c.Auth().CurrentUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, client.BootstrapEmail, profile.Email)
}

func TestGetProfileMissingReturnsNil(t *testing.T) {
	c, _ := newClient(t)
	signInBootstrap(t, c)

	profile, err := c.Auth().GetProfile(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, profile)
}

func TestRefreshSession(t *testing.T) {
	c, _ := newClient(t)
	first := signInBootstrap(t, c)

	refreshed, err := c.Auth().RefreshSession(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	require.Equal(t, first.RefreshToken, refreshed.RefreshToken)
	require.Equal(t, first.ProfileID, refreshed.ProfileID)
}

func TestSignalLifecycle(t *testing.T) {
	c, _ := newClient(t)
	signInBootstrap(t, c)
	ctx := context.Background()

	created, err := c.Signals().CreateSignal(ctx, client.NewSignal{
		Pair:       "BTC/USD",
		SignalType: "BUY",
		Status:     "active",
		EntryPrice: "$67,500",
		StopLoss:   "$66,000",
		TakeProfit: "$70,000",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	active, err := c.Signals().GetActiveSignals(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	before := time.Now().Add(-time.Second)
	closed, err := c.Signals().CloseSignal(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.SignalClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	require.False(t, closed.ClosedAt.Before(before))

	active, err = c.Signals().GetActiveSignals(ctx)
	require.NoError(t, err)
	require.Empty(t, active)

	closedList, err := c.Signals().GetClosedSignals(ctx)
	require.NoError(t, err)
	require.Len(t, closedList, 1)
	require.Equal(t, created.ID, closedList[0].ID)
}

func TestGetSignalsByPairWithSlash(t *testing.T) {
	c, _ := newClient(t)
	signInBootstrap(t, c)
	ctx := context.Background()

	for _, pair := range []string{"EUR/USD", "EUR/USD", "BTC/USD"} {
		_, err := c.Signals().CreateSignal(ctx, client.NewSignal{
			Pair:       pair,
			SignalType: "BUY",
			EntryPrice: "1.0850",
			StopLoss:   "1.0800",
			TakeProfit: "1.0950",
		})
		require.NoError(t, err)
	}

	signals, err := c.Signals().GetSignalsByPair(ctx, "EUR/USD")
	require.NoError(t, err)
	require.Len(t, signals, 2)
	for _, signal := range signals {
		require.Equal(t, "EUR/USD", signal.Pair)
	}
}

func TestCreateSignalSurfacesServerValidation(t *testing.T) {
	c, _ := newClient(t)
	signInBootstrap(t, c)

	_, err := c.Signals().CreateSignal(context.Background(), client.NewSignal{
		Pair:       "BTC/USD",
		SignalType: "BUY",
	})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Contains(t, apiErr.Message, "Missing required fields")
}

func TestAnalysisLifecycle(t *testing.T) {
	c, _ := newClient(t)
	signInBootstrap(t, c)
	ctx := context.Background()

	created, err := c.Analysis().CreateAnalysis(ctx, client.NewAnalysis{
		Title:    "Gold at resistance",
		Category: "Commodities",
		Content:  "XAU is testing the weekly high.",
	})
	require.NoError(t, err)

	byCategory, err := c.Analysis().GetAnalysisByCategory(ctx, "Commodities")
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	require.Equal(t, created.ID, byCategory[0].ID)

	title := "Gold rejected at resistance"
	updated, err := c.Analysis().UpdateAnalysis(ctx, created.ID, client.AnalysisUpdate{Title: &title})
	require.NoError(t, err)
	require.Equal(t, title, updated.Title)
	require.Equal(t, "Commodities", updated.Category)

	require.NoError(t, c.Analysis().DeleteAnalysis(ctx, created.ID))

	all, err := c.Analysis().GetAllAnalysis(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestRequestsRequireSession(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.Signals().GetAllSignals(context.Background())
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
