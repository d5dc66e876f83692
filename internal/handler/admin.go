package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/JuampiHernandez/raave-outfit/internal/auth"
	"github.com/JuampiHernandez/raave-outfit/internal/service"
)

// AdminAuthenticator verifies the admin password and issues a token.
type AdminAuthenticator interface {
	Login(ctx context.Context, password string) (*service.LoginResult, error)
}

// AdminHandler serves the admin login and logout routes.
type AdminHandler struct {
	admin  AdminAuthenticator
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(admin AdminAuthenticator, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HandleLogin checks the password, sets the HttpOnly "token" cookie and
// returns the same token for scripts that prefer a Bearer header.
func (h *AdminHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.admin.Login(r.Context(), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: res.Token, ExpiresAt: res.ExpiresAt})
}

// HandleLogout clears the cookie. Issued tokens stay valid until they expire.
func (h *AdminHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
