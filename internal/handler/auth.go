package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/daybookhq/daybook/internal/ctxkeys"
	"github.com/daybookhq/daybook/internal/schema"
	"github.com/daybookhq/daybook/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register handles POST /users/.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req schema.UserCreate
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	err = schema.Validate(req)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	user, err := h.authService.Register(req.Username, req.Password)
	if errors.Is(err, service.ErrUsernameTaken) {
		respondError(w, http.StatusBadRequest, "username already registered")
		return
	}
	if err != nil {
		slog.Error("failed to register user", "error", err, "username", req.Username)
		respondError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	respondJSON(w, http.StatusOK, schema.NewUserResponse(user))
}

// Token handles POST /token. The request is form-encoded (OAuth2 password
// flow shape): username, password.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		respondError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	user, err := h.authService.Login(username, password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		respondError(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}
	if err != nil {
		slog.Error("failed to log in user", "error", err, "username", username)
		respondError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	token, err := h.authService.GenerateJWT(user)
	if err != nil {
		slog.Error("failed to sign token", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	respondJSON(w, http.StatusOK, schema.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// Me handles GET /users/me/.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	respondJSON(w, http.StatusOK, schema.NewUserResponse(user))
}
