package auth

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/selams/selams-web/internal/backend"
	"github.com/selams/selams-web/internal/models"
	"github.com/selams/selams-web/internal/utils"
)

type ctxKey string

const ctxSessionKey ctxKey = "session"

// Session is the signed-in user for one request.
type Session struct {
	UserID      string
	Email       string
	AccessToken string
	Profile     *models.Profile
}

// Role is the profile role; empty when the profile row does not exist.
func (s *Session) Role() models.Role {
	if s == nil || s.Profile == nil {
		return ""
	}
	return s.Profile.Role
}

func (s *Session) Name() string {
	fallback := "Guest"
	if s != nil && s.Email != "" {
		fallback = s.Email
	}
	if s == nil || s.Profile == nil {
		return fallback
	}
	return s.Profile.Name(fallback)
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey, s)
}

func GetSessionFromCtx(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxSessionKey).(*Session); ok {
		return s
	}
	return nil
}

// UserLookup verifies a token remotely when no JWT secret is configured.
type UserLookup interface {
	GetUser(ctx context.Context, accessToken string) (*backend.User, error)
}

type ProfileLoader interface {
	Get(ctx context.Context, accessToken, id string) (*models.Profile, error)
}

type SessionRefresher interface {
	RefreshSession(ctx context.Context, refreshToken string) (*backend.Session, error)
}

type Authenticator struct {
	jwtSecret    string
	users        UserLookup
	profiles     ProfileLoader
	refresher    SessionRefresher
	cookieSecure bool
	log          *zap.Logger
}

func NewAuthenticator(jwtSecret string, users UserLookup, profiles ProfileLoader, refresher SessionRefresher, cookieSecure bool, log *zap.Logger) *Authenticator {
	return &Authenticator{
		jwtSecret:    jwtSecret,
		users:        users,
		profiles:     profiles,
		refresher:    refresher,
		cookieSecure: cookieSecure,
		log:          log,
	}
}

// Resolve turns an access token into a Session. It returns ErrInvalidToken
// when the token is rejected; other errors mean the backend is unavailable.
func (a *Authenticator) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	s := &Session{AccessToken: token}
	if a.jwtSecret != "" {
		claims, err := ParseAccessToken(a.jwtSecret, token)
		if err != nil {
			return nil, err
		}
		s.UserID, s.Email = claims.Subject, claims.Email
	} else {
		u, err := a.users.GetUser(ctx, token)
		if errors.Is(err, backend.ErrUnauthorized) {
			return nil, ErrInvalidToken
		}
		if err != nil {
			return nil, err
		}
		s.UserID, s.Email = u.ID, u.Email
	}

	p, err := a.profiles.Get(ctx, token, s.UserID)
	switch {
	case errors.Is(err, backend.ErrNotFound):
		a.log.Warn("no profile for user, using student navigation", zap.String("user_id", s.UserID))
		p = &models.Profile{ID: s.UserID}
	case errors.Is(err, backend.ErrUnauthorized):
		return nil, ErrInvalidToken
	case err != nil:
		return nil, err
	}
	if _, ok := models.ParseRole(string(p.Role)); !ok && p.Role != "" {
		a.log.Warn("unrecognized role, using student navigation", zap.String("user_id", s.UserID), zap.String("role", string(p.Role)))
	}
	s.Profile = p
	return s, nil
}

// Middleware attaches a Session to the context when the request carries a
// valid token. An expired cookie session is renewed with the refresh
// cookie. Requests without a usable token pass through anonymously;
// backend outages are handed to onError.
func (a *Authenticator) Middleware(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := TokenFromRequest(r)
			if token == "" && RefreshTokenFromRequest(r) == "" {
				next.ServeHTTP(w, r)
				return
			}

			s, err := a.Resolve(ctx, token)
			if errors.Is(err, ErrInvalidToken) {
				s, err = a.refresh(w, r)
			}
			switch {
			case errors.Is(err, ErrInvalidToken):
				next.ServeHTTP(w, r)
				return
			case err != nil:
				a.log.Error("resolve session", zap.Error(err))
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(ctx, s)))
		})
	}
}

func (a *Authenticator) refresh(w http.ResponseWriter, r *http.Request) (*Session, error) {
	rt := RefreshTokenFromRequest(r)
	if rt == "" || a.refresher == nil {
		return nil, ErrInvalidToken
	}
	bs, err := a.refresher.RefreshSession(r.Context(), rt)
	if errors.Is(err, backend.ErrInvalidCredentials) || errors.Is(err, backend.ErrUnauthorized) {
		ClearSessionCookies(w, a.cookieSecure)
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	s, err := a.Resolve(r.Context(), bs.AccessToken)
	if err != nil {
		return nil, err
	}
	SetSessionCookies(w, bs, a.cookieSecure)
	a.log.Debug("session refreshed", zap.String("user_id", s.UserID))
	return s, nil
}

// RequireSession calls onDenied with 401 when no session is attached.
func RequireSession(onDenied func(http.ResponseWriter, *http.Request, int)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetSessionFromCtx(r.Context()) == nil {
				onDenied(w, r, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole allows only the given roles. onDenied receives 401 without a
// session and 403 for any other role.
func RequireRole(onDenied func(http.ResponseWriter, *http.Request, int), allowedRoles ...models.Role) func(http.Handler) http.Handler {
	set := map[models.Role]struct{}{}
	for _, r := range allowedRoles {
		set[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := GetSessionFromCtx(r.Context())
			if s == nil {
				onDenied(w, r, http.StatusUnauthorized)
				return
			}
			if _, ok := set[s.Role()]; !ok {
				onDenied(w, r, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DenyJSON is the API flavour of onDenied.
func DenyJSON(w http.ResponseWriter, _ *http.Request, status int) {
	msg := "unauthorized"
	if status == http.StatusForbidden {
		msg = "forbidden"
	}
	utils.WriteJSONResponse(w, status, false, msg, nil, nil)
}

// RoleMiddleware is RequireRole answering with the JSON envelope;
// usage: RoleMiddleware(models.RoleTeacher, models.RoleAdmin)
func RoleMiddleware(allowedRoles ...models.Role) func(http.Handler) http.Handler {
	return RequireRole(DenyJSON, allowedRoles...)
}
