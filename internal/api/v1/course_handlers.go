package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/selams/selams-web/internal/auth"
	"github.com/selams/selams-web/internal/catalog"
	"github.com/selams/selams-web/internal/course"
	"github.com/selams/selams-web/internal/service"
	"github.com/selams/selams-web/internal/utils"
)

type CourseHandler struct {
	courses *service.CourseService
	log     *zap.Logger
}

func NewCourseHandler(courses *service.CourseService, log *zap.Logger) *CourseHandler {
	return &CourseHandler{courses: courses, log: log}
}

func (h *CourseHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrCourseNotFound) {
		utils.WriteJSONResponse(w, http.StatusNotFound, false, "course not found", nil, nil)
		return
	}
	h.log.Error("course data", zap.Error(err))
	utils.WriteJSONResponse(w, http.StatusBadGateway, false, "course data unavailable", nil, err.Error())
}

// GET /dashboard
func (h *CourseHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	s := auth.GetSessionFromCtx(r.Context())
	d, err := h.courses.Dashboard(r.Context(), s.Role(), s.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "", d, nil)
}

// GET /courses
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	s := auth.GetSessionFromCtx(r.Context())
	list, err := h.courses.Courses(r.Context(), s.Role(), s.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "", h.courses.Tiles(r.Context(), list), nil)
}

// GET /courses/{id}?open=0,1&lesson=0.2
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	s := auth.GetSessionFromCtx(r.Context())
	q := r.URL.Query()
	open := course.ParseExpanded(q.Get("open"), q.Has("open"))
	d, err := h.courses.Detail(r.Context(), chi.URLParam(r, "id"), s.UserID, open, q.Get("lesson"))
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "", d, nil)
}

// GET /courses/{id}/outline?open=0&toggle=1 returns the outline after
// toggling module 1 in the expanded set {0}.
func (h *CourseHandler) GetOutline(w http.ResponseWriter, r *http.Request) {
	s := auth.GetSessionFromCtx(r.Context())
	q := r.URL.Query()
	open := course.ParseExpanded(q.Get("open"), q.Has("open"))
	if raw := q.Get("toggle"); raw != "" {
		i, err := strconv.Atoi(raw)
		if err != nil || i < 0 {
			utils.WriteJSONResponse(w, http.StatusBadRequest, false, "toggle must be a module index", nil, nil)
			return
		}
		open = open.Toggle(i)
	}
	c, err := h.courses.Source().GetCourse(r.Context(), chi.URLParam(r, "id"), s.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "", course.BuildOutline(c.Modules, open, q.Get("lesson")), nil)
}
