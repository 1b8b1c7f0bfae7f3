package models

import "time"

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// ParseRole normalises a stored role value. Unknown values come back as ""
// with ok=false; callers decide the fallback.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Profile mirrors a row of the backend's profiles table.
type Profile struct {
	ID          string    `json:"id"`
	DisplayName *string   `json:"display_name"`
	Role        Role      `json:"role"`
	AvatarURL   *string   `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Name returns the display name, or fallback when the profile has none.
func (p *Profile) Name(fallback string) string {
	if p == nil || p.DisplayName == nil || *p.DisplayName == "" {
		return fallback
	}
	return *p.DisplayName
}

// MenuEntry is one sidebar navigation item.
type MenuEntry struct {
	Label  string `json:"label"`
	Path   string `json:"path"`
	Icon   string `json:"icon"`
	Active bool   `json:"active,omitempty"`
}

type Trend struct {
	Text     string `json:"text"`
	Positive bool   `json:"positive"`
}
