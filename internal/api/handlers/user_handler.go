package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/isdelr/bizops-api/internal/api/response"
	"github.com/isdelr/bizops-api/internal/auth"
	"github.com/isdelr/bizops-api/internal/models"
	"github.com/isdelr/bizops-api/internal/services"
	"github.com/rs/zerolog/log"
)

const tokenCookie = "token"

// TokenIssuer issues and revokes session tokens.
type TokenIssuer interface {
	GenerateJWT(user models.User) (string, time.Time, error)
	Revoke(ctx context.Context, claims *auth.Claims) error
}

// UserHandler handles authentication and the current user.
type UserHandler struct {
	service       services.UserServiceProvider
	tokens        TokenIssuer
	secureCookies bool
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, tokens TokenIssuer, secureCookies bool) *UserHandler {
	return &UserHandler{service: service, tokens: tokens, secureCookies: secureCookies}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the data member of a successful login.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// Login handles user authentication and JWT generation.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeServiceError(w, r, err, "user")
		return
	}

	verr := &services.ValidationError{}
	if strings.TrimSpace(payload.Email) == "" {
		verr.Add("email", "The email field is required.")
	}
	if payload.Password == "" {
		verr.Add("password", "The password field is required.")
	}
	if verr.HasErrors() {
		response.ValidationError(w, verr.Fields)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), payload.Email, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed authentication attempt")
		writeServiceError(w, r, err, "user")
		return
	}

	token, expiresAt, err := h.tokens.GenerateJWT(user)
	if err != nil {
		log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to generate JWT")
		response.Error(w, response.CodeServerError, "Failed to generate token.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	response.OK(w, response.New("Logged in successfully.", LoginResult{Token: token, ExpiresAt: expiresAt, User: user}))
}

// Logout revokes the current token and clears the cookie.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, response.CodeUnauthorized, "Missing auth token.")
		return
	}

	if err := h.tokens.Revoke(r.Context(), claims); err != nil {
		log.Error().Err(err).Uint("user_id", claims.UserID).Msg("Failed to revoke token")
		response.Error(w, response.CodeServerError, "Failed to log out.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
	response.OK(w, response.New("Logged out successfully.", nil))
}

// RequireAccount reloads the account behind the token on every request.
// Deleted or deactivated accounts are rejected, and the role and email in
// the request claims are replaced with the stored ones.
func (h *UserHandler) RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, response.CodeUnauthorized, "Missing auth token.")
			return
		}

		user, err := h.service.GetUserByID(r.Context(), claims.UserID)
		if err != nil && !errors.Is(err, services.ErrNotFound) {
			writeServiceError(w, r, err, "user")
			return
		}
		if err != nil || !user.Active {
			log.Warn().Uint("user_id", claims.UserID).Msg("Rejected token for unavailable account")
			response.Error(w, response.CodeUnauthorized, "This account is no longer active.")
			return
		}

		current := *claims
		current.Role = user.Role
		current.Email = user.Email
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), &current)))
	})
}

// GetMe retrieves the currently authenticated user from the token.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, response.CodeUnauthorized, "Missing auth token.")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err, "user")
		return
	}
	response.OK(w, response.New("User retrieved successfully.", user))
}
