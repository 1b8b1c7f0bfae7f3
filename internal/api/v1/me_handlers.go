package v1

import (
	"net/http"

	"github.com/selams/selams-web/internal/auth"
	"github.com/selams/selams-web/internal/models"
	"github.com/selams/selams-web/internal/nav"
	"github.com/selams/selams-web/internal/utils"
)

type MeHandler struct {
	backend Backend
}

func NewMeHandler(b Backend) *MeHandler {
	return &MeHandler{backend: b}
}

type meResp struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Role      models.Role     `json:"role"`
	AvatarURL string          `json:"avatar_url,omitempty"`
	Home      string          `json:"home"`
	Profile   *models.Profile `json:"profile"`
}

// GET /me
func (h *MeHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	s := auth.GetSessionFromCtx(r.Context())
	utils.WriteJSONResponse(w, http.StatusOK, true, "", meResp{
		ID:        s.UserID,
		Email:     s.Email,
		Name:      s.Name(),
		Role:      s.Role(),
		AvatarURL: h.backend.AvatarURL(s.Profile.AvatarURL),
		Home:      nav.HomePath(s.Role()),
		Profile:   s.Profile,
	}, nil)
}

// GET /nav?path=/student/courses
func (h *MeHandler) GetNav(w http.ResponseWriter, r *http.Request) {
	s := auth.GetSessionFromCtx(r.Context())
	entries := nav.MenuFor(s.Role())
	if p := r.URL.Query().Get("path"); p != "" {
		entries = nav.Active(entries, p)
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "", entries, nil)
}
