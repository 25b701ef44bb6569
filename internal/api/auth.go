package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dialforge/campaign-api/internal/auth"
	"github.com/dialforge/campaign-api/internal/storage"
)

// AuthHandler issues tokens for email/password logins
type AuthHandler struct {
	store       storage.Store
	jwtSecret   string
	tokenExpiry time.Duration
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(store storage.Store, jwtSecret string, tokenExpiry time.Duration, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		store:       store,
		jwtSecret:   jwtSecret,
		tokenExpiry: tokenExpiry,
		logger:      logger.With().Str("component", "auth_handler").Logger(),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string   `json:"token"`
	TokenType string   `json:"tokenType"`
	ExpiresIn int64    `json:"expiresIn"`
	Roles     []string `json:"roles"`
}

// Login verifies credentials and returns a bearer token
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err == storage.ErrNotFound {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load user")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	if !user.IsActive || !auth.CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.IssueToken(h.jwtSecret, user.ID, user.Roles, h.tokenExpiry)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to issue token")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.logger.Info().Int64("user_id", user.ID).Msg("user logged in")

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(h.tokenExpiry.Seconds()),
		Roles:     user.Roles,
	})
}
