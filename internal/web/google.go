package web

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"github.com/selams/selams-web/internal/config"
	"github.com/selams/selams-web/internal/utils"
)

const stateCookie = "oauth_state"

// GoogleSignIn runs the authorization-code flow with Google and hands the
// resulting id token to the backend, which issues the session.
type GoogleSignIn struct {
	OAuth    *oauth2.Config
	Validate func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// NewGoogleSignIn returns nil when Google sign-in is not configured.
func NewGoogleSignIn(cfg *config.Config) *GoogleSignIn {
	if !cfg.GoogleEnabled() {
		return nil
	}
	return &GoogleSignIn{
		OAuth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		Validate: idtoken.Validate,
	}
}

// GET /auth/google
func (p *Pages) GoogleStart(w http.ResponseWriter, r *http.Request) {
	state, err := utils.RandomToken()
	if err != nil {
		p.renderError(w, r, http.StatusInternalServerError, "Could not start Google sign-in.")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   p.Config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, p.Google.OAuth.AuthCodeURL(state), http.StatusFound)
}

// GET /auth/google/callback
func (p *Pages) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || subtle.ConstantTimeCompare([]byte(c.Value), []byte(q.Get("state"))) != 1 {
		http.Redirect(w, r, "/login?error=Google+sign-in+expired,+please+try+again", http.StatusSeeOther)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth/google", MaxAge: -1})

	if e := q.Get("error"); e != "" {
		p.Log.Info("google sign-in cancelled", zap.String("error", e))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	token, err := p.Google.OAuth.Exchange(ctx, q.Get("code"))
	if err != nil {
		p.Log.Warn("google code exchange", zap.Error(err))
		http.Redirect(w, r, "/login?error=Google+sign-in+failed", http.StatusSeeOther)
		return
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		http.Redirect(w, r, "/login?error=Google+sign-in+failed", http.StatusSeeOther)
		return
	}
	payload, err := p.Google.Validate(ctx, rawIDToken, p.Google.OAuth.ClientID)
	if err != nil {
		p.Log.Warn("invalid google id token", zap.Error(err))
		http.Redirect(w, r, "/login?error=Google+sign-in+failed", http.StatusSeeOther)
		return
	}
	if email, _ := payload.Claims["email"].(string); email == "" {
		http.Redirect(w, r, "/login?error=Your+Google+account+has+no+email", http.StatusSeeOther)
		return
	}

	bs, err := p.Backend.SignInWithIDToken(ctx, "google", rawIDToken)
	if err != nil {
		p.Log.Error("backend id token sign-in", zap.Error(err))
		p.renderError(w, r, http.StatusBadGateway, "The learning service is unreachable right now. Please try again.")
		return
	}
	p.startSession(w, r, bs, "")
}
