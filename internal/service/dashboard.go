package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/selams/selams-web/internal/catalog"
	"github.com/selams/selams-web/internal/course"
	"github.com/selams/selams-web/internal/media"
	"github.com/selams/selams-web/internal/models"
)

type Dashboard struct {
	Stats   []course.StatTile `json:"stats"`
	Courses []course.Tile     `json:"courses"`
}

type CourseService struct {
	source catalog.Source
	media  media.Store
	log    *zap.Logger
}

func NewCourseService(src catalog.Source, m media.Store, log *zap.Logger) *CourseService {
	return &CourseService{source: src, media: m, log: log}
}

func (s *CourseService) Source() catalog.Source { return s.source }

// Tiles turns courses into cards, resolving cover images. A cover that
// cannot be resolved falls back to the placeholder.
func (s *CourseService) Tiles(ctx context.Context, courses []models.Course) []course.Tile {
	tiles := make([]course.Tile, 0, len(courses))
	for _, c := range courses {
		tiles = append(tiles, course.NewTile(c, s.CoverURL(ctx, c)))
	}
	return tiles
}

func (s *CourseService) CoverURL(ctx context.Context, c models.Course) string {
	if c.CoverKey == "" || s.media == nil {
		return ""
	}
	u, err := s.media.URL(ctx, c.CoverKey)
	if err != nil {
		s.log.Warn("cover url", zap.String("course_id", c.ID), zap.Error(err))
		return ""
	}
	return u
}

// Courses lists the courses relevant to role: taught courses for teachers,
// enrolled courses for everyone else.
func (s *CourseService) Courses(ctx context.Context, role models.Role, userID string) ([]models.Course, error) {
	if role == models.RoleTeacher {
		return s.source.ListTaught(ctx, userID)
	}
	return s.source.ListEnrolled(ctx, userID)
}

func (s *CourseService) StudentDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	courses, err := s.source.ListEnrolled(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrolled courses: %w", err)
	}
	done, err := s.source.CompletedLessons(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count completed lessons: %w", err)
	}
	return &Dashboard{
		Stats: []course.StatTile{
			course.NewStatTile("Active Courses", len(courses), "book-open", nil),
			course.NewStatTile("Completed Lessons", done, "check-circle", nil),
			course.NewStatTile("Average Progress", fmt.Sprintf("%d%%", course.AverageProgress(courses)), "trending-up", nil),
		},
		Courses: s.Tiles(ctx, courses),
	}, nil
}

func (s *CourseService) TeacherDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	courses, err := s.source.ListTaught(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list taught courses: %w", err)
	}
	students := 0
	for _, c := range courses {
		students += c.Enrolled
	}
	return &Dashboard{
		Stats: []course.StatTile{
			course.NewStatTile("Courses Taught", len(courses), "graduation-cap", nil),
			course.NewStatTile("Total Students", students, "users", nil),
			course.NewStatTile("Average Progress", fmt.Sprintf("%d%%", course.AverageProgress(courses)), "trending-up", nil),
		},
		Courses: s.Tiles(ctx, courses),
	}, nil
}

// Dashboard picks the dashboard for role.
func (s *CourseService) Dashboard(ctx context.Context, role models.Role, userID string) (*Dashboard, error) {
	if role == models.RoleTeacher {
		return s.TeacherDashboard(ctx, userID)
	}
	return s.StudentDashboard(ctx, userID)
}

// Detail is everything the course page renders.
type Detail struct {
	Course  *models.Course `json:"course"`
	Outline course.Outline `json:"outline"`
	Lesson  *models.Lesson `json:"lesson,omitempty"`
	Ring    course.Ring    `json:"ring"`
	Cover   string         `json:"cover_url,omitempty"`
}

func (s *CourseService) Detail(ctx context.Context, idOrSlug, userID string, open course.Expanded, lessonRef string) (*Detail, error) {
	c, err := s.source.GetCourse(ctx, idOrSlug, userID)
	if err != nil {
		return nil, err
	}
	d := &Detail{
		Course: c,
		Ring:   course.NewRing(c.Progress),
		Cover:  s.CoverURL(ctx, *c),
	}
	l, ref, ok := course.CurrentLesson(c.Modules, lessonRef)
	if ok {
		d.Lesson = &l
	}
	d.Outline = course.BuildOutline(c.Modules, open, ref)
	return d, nil
}
