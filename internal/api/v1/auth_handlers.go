package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/selams/selams-web/internal/auth"
	"github.com/selams/selams-web/internal/backend"
	"github.com/selams/selams-web/internal/config"
	"github.com/selams/selams-web/internal/service"
	"github.com/selams/selams-web/internal/utils"
)

type AuthHandler struct {
	cfg      *config.Config
	backend  Backend
	profiles *service.ProfileService
	log      *zap.Logger
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	UserID      string `json:"user_id"`
}

func NewAuthHandler(cfg *config.Config, b Backend, profiles *service.ProfileService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, backend: b, profiles: profiles, log: log}
}

// Login signs in with email and password. The session is returned in the
// body and also set as cookies so the HTML pages share it.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "Invalid request body", nil, err.Error())
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "Invalid request", nil, utils.FieldErrors(err))
		return
	}

	s, err := h.backend.SignInWithPassword(r.Context(), req.Email, req.Password)
	if errors.Is(err, backend.ErrInvalidCredentials) {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "invalid credentials", nil, nil)
		return
	}
	if err != nil {
		h.log.Error("sign in", zap.Error(err))
		utils.WriteJSONResponse(w, http.StatusBadGateway, false, "backend unavailable", nil, err.Error())
		return
	}
	auth.SetSessionCookies(w, s, h.cfg.CookieSecure)
	utils.WriteJSONResponse(w, http.StatusOK, true, "login successful", tokenResp{
		AccessToken: s.AccessToken,
		ExpiresIn:   s.ExpiresIn,
		UserID:      s.User.ID,
	}, nil)
}

// Refresh rotates the session using the refresh cookie, or
// {"refresh_token": "..."} in the body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	rt := auth.RefreshTokenFromRequest(r)
	if rt == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		rt = req.RefreshToken
	}
	if rt == "" {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "missing refresh token", nil, nil)
		return
	}

	s, err := h.backend.RefreshSession(r.Context(), rt)
	if errors.Is(err, backend.ErrInvalidCredentials) || errors.Is(err, backend.ErrUnauthorized) {
		auth.ClearSessionCookies(w, h.cfg.CookieSecure)
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "invalid refresh token", nil, nil)
		return
	}
	if err != nil {
		h.log.Error("refresh session", zap.Error(err))
		utils.WriteJSONResponse(w, http.StatusBadGateway, false, "backend unavailable", nil, err.Error())
		return
	}
	auth.SetSessionCookies(w, s, h.cfg.CookieSecure)
	utils.WriteJSONResponse(w, http.StatusOK, true, "refresh successful", tokenResp{
		AccessToken: s.AccessToken,
		ExpiresIn:   s.ExpiresIn,
		UserID:      s.User.ID,
	}, nil)
}

// Logout revokes the session upstream when there is one and always clears
// the cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if s := auth.GetSessionFromCtx(r.Context()); s != nil {
		if err := h.backend.SignOut(r.Context(), s.AccessToken); err != nil {
			h.log.Warn("sign out", zap.String("user_id", s.UserID), zap.Error(err))
		}
		h.profiles.Forget(r.Context(), s.UserID)
	}
	auth.ClearSessionCookies(w, h.cfg.CookieSecure)
	utils.WriteJSONResponse(w, http.StatusOK, true, "logged out", nil, nil)
}
