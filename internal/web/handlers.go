package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/selams/selams-web/internal/auth"
	"github.com/selams/selams-web/internal/backend"
	"github.com/selams/selams-web/internal/catalog"
	"github.com/selams/selams-web/internal/course"
	"github.com/selams/selams-web/internal/models"
	"github.com/selams/selams-web/internal/nav"
	"github.com/selams/selams-web/internal/service"
	"github.com/selams/selams-web/internal/utils"
)

func teacherArea(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/teacher/")
}

// Index is the public landing page.
func (p *Pages) Index(w http.ResponseWriter, r *http.Request) {
	p.render(w, http.StatusOK, "index", p.newView(r, "SeLaMS", nil))
}

type loginView struct {
	Email         string
	Next          string
	Error         string
	Fields        map[string]string
	GoogleEnabled bool
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}

func (p *Pages) LoginForm(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if s := auth.GetSessionFromCtx(r.Context()); s != nil {
		if next == "" {
			next = nav.HomePath(s.Role())
		}
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	p.renderLogin(w, r, http.StatusOK, loginView{Next: next, Error: r.URL.Query().Get("error")})
}

func (p *Pages) renderLogin(w http.ResponseWriter, r *http.Request, status int, lv loginView) {
	lv.GoogleEnabled = p.Google != nil
	p.render(w, status, "login", p.newView(r, "Sign in", lv))
}

func (p *Pages) limitLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := auth.ClientIP(r)
		if !p.Limiter.Allow(ip) {
			p.Log.Warn("login rate limit exceeded", zap.String("ip", ip))
			p.renderLogin(w, r, http.StatusTooManyRequests, loginView{
				Email: r.PostFormValue("email"),
				Error: "Too many sign-in attempts. Please wait a minute and try again.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (p *Pages) Login(w http.ResponseWriter, r *http.Request) {
	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	lv := loginView{Email: form.Email, Next: safeNext(r.PostFormValue("next"))}
	if err := utils.Validate.Struct(form); err != nil {
		lv.Fields = utils.FieldErrors(err)
		p.renderLogin(w, r, http.StatusBadRequest, lv)
		return
	}

	bs, err := p.Backend.SignInWithPassword(r.Context(), form.Email, form.Password)
	if errors.Is(err, backend.ErrInvalidCredentials) {
		lv.Error = "Invalid email or password."
		p.renderLogin(w, r, http.StatusUnauthorized, lv)
		return
	}
	if err != nil {
		p.Log.Error("sign in", zap.Error(err))
		lv.Error = "The learning service is unreachable right now. Please try again."
		p.renderLogin(w, r, http.StatusBadGateway, lv)
		return
	}
	p.startSession(w, r, bs, lv.Next)
}

// startSession stores the cookies and sends the user to next or their home.
func (p *Pages) startSession(w http.ResponseWriter, r *http.Request, bs *backend.Session, next string) {
	auth.SetSessionCookies(w, bs, p.Config.CookieSecure)
	if next == "" {
		next = "/dashboard"
	}
	p.Log.Info("signed in", zap.String("user_id", bs.User.ID))
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (p *Pages) Logout(w http.ResponseWriter, r *http.Request) {
	if s := auth.GetSessionFromCtx(r.Context()); s != nil {
		if err := p.Backend.SignOut(r.Context(), s.AccessToken); err != nil {
			p.Log.Warn("sign out", zap.String("user_id", s.UserID), zap.Error(err))
		}
		p.Profiles.Forget(r.Context(), s.UserID)
	}
	auth.ClearSessionCookies(w, p.Config.CookieSecure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// DashboardRedirect sends the user to the dashboard of their role.
func (p *Pages) DashboardRedirect(w http.ResponseWriter, r *http.Request) {
	s := auth.GetSessionFromCtx(r.Context())
	http.Redirect(w, r, nav.HomePath(s.Role()), http.StatusSeeOther)
}

func (p *Pages) courseDataFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, catalog.ErrCourseNotFound) {
		p.renderError(w, r, http.StatusNotFound, "This course does not exist or is no longer available.")
		return
	}
	p.Log.Error("course data", zap.Error(err))
	p.renderError(w, r, http.StatusBadGateway, "Course data is unavailable right now. Please try again in a moment.")
}

type dashboardView struct {
	FirstName string
	Teacher   bool
	*service.Dashboard
}

func (p *Pages) Dashboard(w http.ResponseWriter, r *http.Request) {
	s := auth.GetSessionFromCtx(r.Context())
	var (
		d   *service.Dashboard
		err error
	)
	if teacherArea(r) {
		d, err = p.Courses.TeacherDashboard(r.Context(), s.UserID)
	} else {
		d, err = p.Courses.StudentDashboard(r.Context(), s.UserID)
	}
	if err != nil {
		p.courseDataFailed(w, r, err)
		return
	}
	first := s.Name()
	if f := strings.Fields(first); len(f) > 0 {
		first = f[0]
	}
	p.render(w, http.StatusOK, "dashboard", p.newView(r, "Dashboard", dashboardView{
		FirstName: first,
		Teacher:   teacherArea(r),
		Dashboard: d,
	}))
}

type coursesView struct {
	Teacher bool
	Tiles   []course.Tile
}

func (p *Pages) MyCourses(w http.ResponseWriter, r *http.Request) {
	s := auth.GetSessionFromCtx(r.Context())
	role := models.RoleStudent
	if teacherArea(r) {
		role = models.RoleTeacher
	}
	list, err := p.Courses.Courses(r.Context(), role, s.UserID)
	if err != nil {
		p.courseDataFailed(w, r, err)
		return
	}
	p.render(w, http.StatusOK, "courses", p.newView(r, "My Courses", coursesView{
		Teacher: teacherArea(r),
		Tiles:   p.Courses.Tiles(r.Context(), list),
	}))
}

func (p *Pages) Calendar(w http.ResponseWriter, r *http.Request) {
	p.render(w, http.StatusOK, "calendar", p.newView(r, "Calendar", nil))
}

type settingsView struct {
	Email     string
	Role      models.Role
	AvatarURL string
	Profile   *models.Profile
}

func (p *Pages) Settings(w http.ResponseWriter, r *http.Request) {
	s := auth.GetSessionFromCtx(r.Context())
	sv := settingsView{Email: s.Email, Role: s.Role(), Profile: s.Profile}
	if s.Profile != nil {
		sv.AvatarURL = p.Backend.AvatarURL(s.Profile.AvatarURL)
	}
	p.render(w, http.StatusOK, "settings", p.newView(r, "Settings", sv))
}

type courseView struct {
	*service.Detail
	Instructor string
}

func (p *Pages) CourseDetail(w http.ResponseWriter, r *http.Request) {
	s := auth.GetSessionFromCtx(r.Context())
	q := r.URL.Query()
	open := course.ParseExpanded(q.Get("open"), q.Has("open"))
	d, err := p.Courses.Detail(r.Context(), chi.URLParam(r, "id"), s.UserID, open, q.Get("lesson"))
	if err != nil {
		p.courseDataFailed(w, r, err)
		return
	}
	p.render(w, http.StatusOK, "course", p.newView(r, d.Course.Title, courseView{
		Detail:     d,
		Instructor: d.Course.InstructorName,
	}))
}
