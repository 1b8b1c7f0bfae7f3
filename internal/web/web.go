// Package web serves the server-rendered HTML pages.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/selams/selams-web/internal/auth"
	"github.com/selams/selams-web/internal/backend"
	"github.com/selams/selams-web/internal/config"
	"github.com/selams/selams-web/internal/models"
	"github.com/selams/selams-web/internal/nav"
	"github.com/selams/selams-web/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Backend is what the pages need from the backend client.
type Backend interface {
	SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error)
	SignInWithIDToken(ctx context.Context, provider, idToken string) (*backend.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	AvatarURL(ref *string) string
}

type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	Backend  Backend
	Auth     *auth.Authenticator
	Profiles *service.ProfileService
	Courses  *service.CourseService
	Limiter  *auth.LoginLimiter
	Google   *GoogleSignIn
}

type Pages struct {
	Deps
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"courseHref": courseHref,
	"initials":   initials,
}

var pageNames = []string{"index", "login", "dashboard", "courses", "calendar", "settings", "course", "error"}

func NewPages(d Deps) (*Pages, error) {
	base, err := template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	p := &Pages{Deps: d, pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		p.pages[name] = t
	}
	return p, nil
}

// view is the data every page template receives.
type view struct {
	Title         string
	Path          string
	Session       *auth.Session
	Name          string
	AvatarURL     string
	Menu          []models.MenuEntry
	SidebarOpen   bool
	SidebarToggle string
	Content       interface{}
}

func (p *Pages) newView(r *http.Request, title string, content interface{}) view {
	v := view{
		Title:       title,
		Path:        r.URL.Path,
		SidebarOpen: r.URL.Query().Get("sidebar") != "closed",
		Content:     content,
	}
	v.SidebarToggle = sidebarToggle(r.URL, v.SidebarOpen)
	if s := auth.GetSessionFromCtx(r.Context()); s != nil {
		v.Session = s
		v.Name = s.Name()
		if s.Profile != nil {
			v.AvatarURL = p.Backend.AvatarURL(s.Profile.AvatarURL)
		}
		v.Menu = nav.Active(nav.MenuFor(s.Role()), r.URL.Path)
	}
	return v
}

// sidebarToggle returns the current URL with the sidebar flag flipped.
func sidebarToggle(u *url.URL, open bool) string {
	q := u.Query()
	if open {
		q.Set("sidebar", "closed")
	} else {
		q.Del("sidebar")
	}
	out := url.URL{Path: u.Path, RawQuery: q.Encode()}
	return out.String()
}

func (p *Pages) render(w http.ResponseWriter, status int, name string, v view) {
	t, ok := p.pages[name]
	if !ok {
		p.Log.Error("unknown template", zap.String("name", name))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		p.Log.Error("render", zap.String("page", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorView struct {
	Status  int
	Heading string
	Message string
}

func (p *Pages) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	heading := http.StatusText(status)
	p.render(w, status, "error", p.newView(r, heading, errorView{Status: status, Heading: heading, Message: message}))
}

// backendUnavailable is the page flavour of the auth middleware's error hook.
func (p *Pages) backendUnavailable(w http.ResponseWriter, r *http.Request, _ error) {
	p.renderError(w, r, http.StatusBadGateway, "The learning service is unreachable right now. Please try again in a moment.")
}

// deny sends anonymous visitors to the login page and shows 403 otherwise.
func (p *Pages) deny(w http.ResponseWriter, r *http.Request, status int) {
	if status == http.StatusUnauthorized {
		http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}
	p.renderError(w, r, http.StatusForbidden, "Your account does not have access to this page.")
}

func (p *Pages) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(p.Auth.Middleware(p.backendUnavailable))

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", p.Index)
	r.Get("/login", p.LoginForm)
	r.With(p.limitLogin).Post("/login", p.Login)
	r.Post("/logout", p.Logout)
	if p.Google != nil {
		r.Get("/auth/google", p.GoogleStart)
		r.Get("/auth/google/callback", p.GoogleCallback)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(p.deny))
		r.Get("/dashboard", p.DashboardRedirect)
		r.Get("/student/dashboard", p.Dashboard)
		r.Get("/student/courses", p.MyCourses)
		r.Get("/student/calendar", p.Calendar)
		r.Get("/settings", p.Settings)
		r.Get("/course/{id}", p.CourseDetail)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(p.deny, models.RoleTeacher, models.RoleAdmin))
		r.Get("/teacher/dashboard", p.Dashboard)
		r.Get("/teacher/courses", p.MyCourses)
		r.Get("/teacher/calendar", p.Calendar)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		p.renderError(w, r, http.StatusNotFound, "We could not find that page.")
	})
	return r
}

func courseHref(id, open, lesson string) string {
	q := url.Values{}
	q.Set("open", open)
	if lesson != "" {
		q.Set("lesson", lesson)
	}
	return "/course/" + url.PathEscape(id) + "?" + q.Encode()
}

// initials gives up to two letters for the avatar fallback.
func initials(name string) string {
	var out []rune
	for _, f := range strings.Fields(name) {
		for _, r := range f {
			out = append(out, r)
			break
		}
		if len(out) == 2 {
			break
		}
	}
	return strings.ToUpper(string(out))
}
