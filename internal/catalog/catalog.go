// Package catalog defines where course data comes from. Static serves the
// built-in sample catalog; store.Store serves the backend's database.
package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/gosimple/slug"

	"github.com/selams/selams-web/internal/models"
	"github.com/selams/selams-web/internal/utils"
)

var ErrCourseNotFound = errors.New("course not found")

type Source interface {
	// ListEnrolled returns the courses userID follows, progress filled in.
	ListEnrolled(ctx context.Context, userID string) ([]models.Course, error)
	// ListTaught returns the courses of an instructor; progress is the
	// average over enrolled students.
	ListTaught(ctx context.Context, instructorID string) ([]models.Course, error)
	// GetCourse resolves an id or slug and fills the outline with userID's
	// completion flags.
	GetCourse(ctx context.Context, idOrSlug, userID string) (*models.Course, error)
	CompletedLessons(ctx context.Context, userID string) (int, error)
	SetCoverKey(ctx context.Context, courseID, key string) error
}

// Static is an in-memory catalog identical for every user.
type Static struct {
	mu      sync.RWMutex
	courses []models.Course
}

func NewStatic(courses []models.Course) *Static {
	return &Static{courses: courses}
}

// NewSample returns a Static loaded with SampleCourses.
func NewSample() *Static {
	return NewStatic(SampleCourses())
}

func (s *Static) ListEnrolled(_ context.Context, _ string) ([]models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Course, len(s.courses))
	for i, c := range s.courses {
		c.Modules = nil
		out[i] = c
	}
	return out, nil
}

func (s *Static) ListTaught(ctx context.Context, instructorID string) ([]models.Course, error) {
	return s.ListEnrolled(ctx, instructorID)
}

func (s *Static) GetCourse(_ context.Context, idOrSlug, _ string) (*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.courses {
		if c.ID == idOrSlug || c.Slug == idOrSlug {
			cp := c
			cp.Modules = copyModules(c.Modules)
			return &cp, nil
		}
	}
	return nil, ErrCourseNotFound
}

func (s *Static) CompletedLessons(_ context.Context, _ string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.courses {
		for _, m := range c.Modules {
			for _, l := range m.Lessons {
				if l.Completed {
					n++
				}
			}
		}
	}
	return n, nil
}

func (s *Static) SetCoverKey(_ context.Context, courseID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.courses {
		if s.courses[i].ID == courseID {
			s.courses[i].CoverKey = key
			return nil
		}
	}
	return ErrCourseNotFound
}

func copyModules(in []models.Module) []models.Module {
	out := make([]models.Module, len(in))
	for i, m := range in {
		m.Lessons = append([]models.Lesson(nil), m.Lessons...)
		out[i] = m
	}
	return out
}

// SampleCourses is the demo catalog shown when no database is configured.
func SampleCourses() []models.Course {
	courses := []models.Course{
		{
			ID:             "1",
			Title:          "Introduction to React & TypeScript",
			Description:    "Learn modern web development with React 18 and TypeScript from scratch",
			Progress:       68,
			InstructorName: "Dr. Sarah Johnson",
			Duration:       "12 hours",
			Enrolled:       1234,
			Tags:           utils.DatatypesJSONFromStrings([]string{"react", "typescript"}),
			Modules: []models.Module{
				{Position: 0, Title: "Getting Started", Lessons: []models.Lesson{
					{Position: 0, Title: "Introduction to React", Type: models.LessonVideo, Completed: true,
						Body: "The fundamentals of React: components, JSX and the virtual DOM, starting from a simple \"Hello World\"."},
					{Position: 1, Title: "Setting Up Development Environment", Type: models.LessonDocument, Completed: true},
					{Position: 2, Title: "Your First Component", Type: models.LessonVideo},
				}},
				{Position: 1, Title: "Core Concepts", Lessons: []models.Lesson{
					{Position: 0, Title: "JSX and Components", Type: models.LessonDocument},
					{Position: 1, Title: "Props and State", Type: models.LessonVideo},
					{Position: 2, Title: "Practice Exercise", Type: models.LessonAssignment},
				}},
			},
		},
		{
			ID:             "2",
			Title:          "Advanced Machine Learning",
			Description:    "Deep dive into neural networks, deep learning, and AI applications",
			Progress:       45,
			InstructorName: "Prof. Michael Chen",
			Duration:       "20 hours",
			Enrolled:       856,
			Tags:           utils.DatatypesJSONFromStrings([]string{"ml", "ai"}),
			Modules: []models.Module{
				{Position: 0, Title: "Neural Networks", Lessons: []models.Lesson{
					{Position: 0, Title: "Perceptrons", Type: models.LessonVideo, Completed: true},
					{Position: 1, Title: "Backpropagation", Type: models.LessonDocument},
					{Position: 2, Title: "Further Reading", Type: models.LessonLink},
				}},
			},
		},
		{
			ID:             "3",
			Title:          "UI/UX Design Fundamentals",
			Description:    "Master the principles of user interface and user experience design",
			Progress:       82,
			InstructorName: "Emma Williams",
			Duration:       "8 hours",
			Enrolled:       2341,
			Tags:           utils.DatatypesJSONFromStrings([]string{"design"}),
			Modules: []models.Module{
				{Position: 0, Title: "Principles", Lessons: []models.Lesson{
					{Position: 0, Title: "Visual Hierarchy", Type: models.LessonVideo, Completed: true},
					{Position: 1, Title: "Design Critique", Type: models.LessonAssignment, Completed: true},
				}},
			},
		},
		{
			ID:             "4",
			Title:          "Data Structures & Algorithms",
			Description:    "Essential programming concepts for technical interviews and problem solving",
			Progress:       23,
			InstructorName: "Dr. Alex Kumar",
			Duration:       "15 hours",
			Enrolled:       1678,
			Tags:           utils.DatatypesJSONFromStrings([]string{"algorithms"}),
			Modules: []models.Module{
				{Position: 0, Title: "Foundations", Lessons: []models.Lesson{
					{Position: 0, Title: "Big-O Notation", Type: models.LessonDocument},
					{Position: 1, Title: "Arrays and Lists", Type: models.LessonVideo},
				}},
			},
		},
	}
	for i := range courses {
		courses[i].Slug = slug.Make(courses[i].Title)
	}
	sort.SliceStable(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses
}
