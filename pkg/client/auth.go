package client

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mbanwusi/TradePulse-server/cmd/models"
)

// Bootstrap credentials for the test deployment. Sign-in is gated on this
// pair client-side; the account is provisioned on first use.
// TODO: drop the gate once real account management ships.
const (
	BootstrapEmail    = "testing@gmail.com"
	BootstrapPassword = "okamgba1"
	BootstrapFullName = "Admin User"
)

// RejectionMessage is returned for any credential pair other than the
// bootstrap pair, without contacting the server.
const RejectionMessage = "Invalid credentials. Use testing@gmail.com / okamgba1"

// AuthService is the authentication surface of the API.
type AuthService struct {
	client *Client
}

type loginData struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Profile      models.Profile `json:"profile"`
}

// SignIn authenticates the bootstrap account. Any other credential pair is
// rejected locally with RejectionMessage. When the server reports invalid
// credentials for the bootstrap pair, the account is provisioned via SignUp.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if email != BootstrapEmail || password != BootstrapPassword {
		return nil, &APIError{StatusCode: http.StatusUnauthorized, Message: RejectionMessage}
	}

	session, err := s.login(ctx, BootstrapEmail, BootstrapPassword)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "Invalid login credentials") {
			return s.SignUp(ctx, BootstrapEmail, BootstrapPassword, BootstrapFullName)
		}
		return nil, err
	}

	return session, nil
}

// SignUp registers an account and opens a session for it. The profile read
// that follows is best effort: a failure is logged, not returned.
func (s *AuthService) SignUp(ctx context.Context, email, password, fullName string) (*Session, error) {
	body := map[string]string{
		"full_name": fullName,
		"email":     email,
		"password":  password,
	}
	if err := s.client.do(ctx, http.MethodPost, "/register", body, nil); err != nil {
		return nil, err
	}

	session, err := s.login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if _, err := s.CurrentUser(ctx); err != nil {
		log.Printf("profile read after sign-up failed: %v", err)
	}

	return session, nil
}

func (s *AuthService) login(ctx context.Context, email, password string) (*Session, error) {
	var envelope struct {
		Data loginData `json:"data"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := s.client.do(ctx, http.MethodPost, "/login", body, &envelope); err != nil {
		return nil, err
	}

	session := &Session{
		AccessToken:  envelope.Data.AccessToken,
		RefreshToken: envelope.Data.RefreshToken,
		ProfileID:    envelope.Data.Profile.ID,
	}
	s.client.setSession(session, SignedIn)
	return session, nil
}

// SignOut revokes the server-side session and clears the local one.
func (s *AuthService) SignOut(ctx context.Context) error {
	if err := s.client.do(ctx, http.MethodPost, "/logout", nil, nil); err != nil {
		return err
	}
	s.client.setSession(nil, SignedOut)
	return nil
}

// CurrentUser returns the authenticated profile.
func (s *AuthService) CurrentUser(ctx context.Context) (*models.Profile, error) {
	var envelope struct {
		Data models.Profile `json:"data"`
	}
	if err := s.client.do(ctx, http.MethodGet, "/me", nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// GetProfile fetches a profile by ID. A missing profile is not an error: the
// result is (nil, nil).
func (s *AuthService) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var envelope struct {
		Data models.Profile `json:"data"`
	}
	err := s.client.do(ctx, http.MethodGet, "/profiles/"+id.String(), nil, &envelope)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &envelope.Data, nil
}

// RefreshSession exchanges the stored refresh token for a new access token.
func (s *AuthService) RefreshSession(ctx context.Context) (*Session, error) {
	current := s.client.Session()
	if current == nil {
		return nil, &APIError{StatusCode: http.StatusUnauthorized, Message: "no session to refresh"}
	}

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	body := map[string]string{"refresh_token": current.RefreshToken}
	if err := s.client.do(ctx, http.MethodPost, "/refresh", body, &envelope); err != nil {
		return nil, err
	}

	session := &Session{
		AccessToken:  envelope.Data.AccessToken,
		RefreshToken: current.RefreshToken,
		ProfileID:    current.ProfileID,
	}
	s.client.setSession(session, TokenRefreshed)
	return session, nil
}
