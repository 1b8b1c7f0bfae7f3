package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/selams/selams-web/internal/auth"
	"github.com/selams/selams-web/internal/catalog"
	"github.com/selams/selams-web/internal/media"
	"github.com/selams/selams-web/internal/models"
	"github.com/selams/selams-web/internal/service"
	"github.com/selams/selams-web/internal/utils"
)

const maxCoverSize = 5 << 20

type CoverHandler struct {
	courses *service.CourseService
	media   media.Store
	log     *zap.Logger
}

func NewCoverHandler(courses *service.CourseService, m media.Store, log *zap.Logger) *CoverHandler {
	return &CoverHandler{courses: courses, media: m, log: log}
}

// POST /courses/{id}/cover (multipart, field "file")
func (h *CoverHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	s := auth.GetSessionFromCtx(ctx)

	c, err := h.courses.Source().GetCourse(ctx, id, "")
	if errors.Is(err, catalog.ErrCourseNotFound) {
		utils.WriteJSONResponse(w, http.StatusNotFound, false, "course not found", nil, nil)
		return
	}
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusBadGateway, false, "course data unavailable", nil, err.Error())
		return
	}
	// Teachers may only change their own courses.
	if s.Role() == models.RoleTeacher && c.InstructorID != "" && c.InstructorID != s.UserID {
		utils.WriteJSONResponse(w, http.StatusForbidden, false, "forbidden", nil, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCoverSize+1<<10)
	if err := r.ParseMultipartForm(maxCoverSize); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "file too large or invalid form", nil, err.Error())
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "missing file field", nil, err.Error())
		return
	}
	defer file.Close()

	sniff := make([]byte, 512)
	n, _ := file.Read(sniff)
	contentType := http.DetectContentType(sniff[:n])
	if _, ok := media.ImageExtension(contentType); !ok {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "cover must be a PNG, JPEG, GIF or WebP image", nil, contentType)
		return
	}
	if _, err := file.Seek(0, 0); err != nil {
		utils.WriteJSONResponse(w, http.StatusInternalServerError, false, "failed to read file", nil, err.Error())
		return
	}

	key, err := h.media.Save(ctx, fmt.Sprintf("covers/%s", c.ID), contentType, file)
	if err != nil {
		h.log.Error("save cover", zap.String("course_id", c.ID), zap.Error(err))
		utils.WriteJSONResponse(w, http.StatusInternalServerError, false, "failed to save file", nil, err.Error())
		return
	}
	if err := h.courses.Source().SetCoverKey(ctx, c.ID, key); err != nil {
		_ = h.media.Delete(ctx, key)
		utils.WriteJSONResponse(w, http.StatusInternalServerError, false, "failed to update course", nil, err.Error())
		return
	}
	if c.CoverKey != "" {
		if err := h.media.Delete(ctx, c.CoverKey); err != nil {
			h.log.Warn("delete old cover", zap.String("key", c.CoverKey), zap.Error(err))
		}
	}

	url, err := h.media.URL(ctx, key)
	if err != nil {
		h.log.Warn("resolve cover url", zap.String("key", key), zap.Error(err))
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "cover uploaded", map[string]string{
		"key": key,
		"url": url,
	}, nil)
}
