package models

import (
	"time"

	"gorm.io/datatypes"
)

type LessonType string

const (
	LessonVideo      LessonType = "video"
	LessonDocument   LessonType = "document"
	LessonAssignment LessonType = "assignment"
	LessonLink       LessonType = "link"
)

type Course struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	Slug           string         `gorm:"uniqueIndex;size:160" json:"slug"`
	Title          string         `gorm:"not null" json:"title" validate:"required"`
	Description    string         `gorm:"type:text" json:"description"`
	CoverKey       string         `json:"cover_key,omitempty"`
	InstructorID   string         `gorm:"index;size:36" json:"instructor_id,omitempty"`
	InstructorName string         `json:"instructor" validate:"required"`
	Duration       string         `json:"duration"`
	Enrolled       int            `gorm:"default:0" json:"enrolled" validate:"gte=0"`
	Tags           datatypes.JSON `gorm:"type:jsonb" json:"tags,omitempty"`
	Progress       int            `gorm:"-" json:"progress"`
	Modules        []Module       `gorm:"foreignKey:CourseID" json:"modules,omitempty" validate:"dive"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type Module struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	CourseID string   `gorm:"index;size:36;not null" json:"course_id"`
	Position int      `gorm:"not null" json:"position"`
	Title    string   `gorm:"not null" json:"title" validate:"required"`
	Lessons  []Lesson `gorm:"foreignKey:ModuleID" json:"lessons" validate:"dive"`
}

type Lesson struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ModuleID  uint       `gorm:"index;not null" json:"module_id"`
	Position  int        `gorm:"not null" json:"position"`
	Title     string     `gorm:"not null" json:"title" validate:"required"`
	Type      LessonType `gorm:"type:text;not null" json:"type"`
	Body      string     `gorm:"type:text" json:"body,omitempty"`
	Completed bool       `gorm:"-" json:"completed"`
}

// Enrollment carries the per-user progress of a course.
type Enrollment struct {
	CourseID  string    `gorm:"primaryKey;size:36" json:"course_id"`
	UserID    string    `gorm:"primaryKey;size:36" json:"user_id"`
	Progress  int       `gorm:"default:0" json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LessonCompletion struct {
	LessonID    uint      `gorm:"primaryKey" json:"lesson_id"`
	UserID      string    `gorm:"primaryKey;size:36" json:"user_id"`
	CompletedAt time.Time `json:"completed_at"`
}
