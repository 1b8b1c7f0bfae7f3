package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/selams/selams-web/internal/catalog"
	"github.com/selams/selams-web/internal/course"
	"github.com/selams/selams-web/internal/models"
	"github.com/selams/selams-web/internal/utils"
)

var _ catalog.Source = (*Store)(nil)

/* ------------------ Catalog reads ------------------ */

func (s *Store) ListEnrolled(ctx context.Context, userID string) ([]models.Course, error) {
	var enrollments []models.Enrollment
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&enrollments).Error; err != nil {
		return nil, err
	}
	if len(enrollments) == 0 {
		return []models.Course{}, nil
	}
	progress := make(map[string]int, len(enrollments))
	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		progress[e.CourseID] = e.Progress
		ids = append(ids, e.CourseID)
	}

	var courses []models.Course
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Order("title").Find(&courses).Error; err != nil {
		return nil, err
	}
	for i := range courses {
		courses[i].Progress = course.ClampProgress(progress[courses[i].ID])
	}
	return courses, nil
}

func (s *Store) ListTaught(ctx context.Context, instructorID string) ([]models.Course, error) {
	var courses []models.Course
	if err := s.DB.WithContext(ctx).Where("instructor_id = ?", instructorID).Order("title").Find(&courses).Error; err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return courses, nil
	}
	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}

	var avgs []struct {
		CourseID string
		Avg      float64
	}
	if err := s.DB.WithContext(ctx).Model(&models.Enrollment{}).
		Select("course_id, AVG(progress) AS avg").
		Where("course_id IN ?", ids).
		Group("course_id").
		Scan(&avgs).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]int, len(avgs))
	for _, a := range avgs {
		byID[a.CourseID] = int(a.Avg)
	}
	for i := range courses {
		courses[i].Progress = course.ClampProgress(byID[courses[i].ID])
	}
	return courses, nil
}

func (s *Store) GetCourse(ctx context.Context, idOrSlug, userID string) (*models.Course, error) {
	var c models.Course
	err := s.DB.WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("id = ? OR slug = ?", idOrSlug, idOrSlug).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, catalog.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return &c, nil
	}

	var e models.Enrollment
	err = s.DB.WithContext(ctx).Where("course_id = ? AND user_id = ?", c.ID, userID).First(&e).Error
	switch {
	case err == nil:
		c.Progress = course.ClampProgress(e.Progress)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var lessonIDs []uint
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			lessonIDs = append(lessonIDs, l.ID)
		}
	}
	if len(lessonIDs) == 0 {
		return &c, nil
	}
	var done []uint
	if err := s.DB.WithContext(ctx).Model(&models.LessonCompletion{}).
		Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).
		Pluck("lesson_id", &done).Error; err != nil {
		return nil, err
	}
	doneSet := make(map[uint]bool, len(done))
	for _, id := range done {
		doneSet[id] = true
	}
	for mi := range c.Modules {
		for li := range c.Modules[mi].Lessons {
			l := &c.Modules[mi].Lessons[li]
			l.Completed = doneSet[l.ID]
		}
	}
	return &c, nil
}

func (s *Store) CompletedLessons(ctx context.Context, userID string) (int, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.LessonCompletion{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) SetCoverKey(ctx context.Context, courseID, key string) error {
	res := s.DB.WithContext(ctx).Model(&models.Course{}).Where("id = ?", courseID).
		Updates(map[string]interface{}{"cover_key": key, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return catalog.ErrCourseNotFound
	}
	return nil
}

/* ------------------ Seeding ------------------ */

// UpsertCourse inserts c with its outline, replacing an existing course of
// the same id. Ids and slugs are generated when empty. A lesson keeps its id
// when a lesson still sits at the same (module, lesson) position, so
// completions survive a reseed; completions of lessons that disappear are
// removed with them.
func (s *Store) UpsertCourse(ctx context.Context, c *models.Course) error {
	if c.ID == "" {
		c.ID = utils.GenerateID()
	}
	if c.Slug == "" {
		c.Slug = slug.Make(c.Title)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old []models.Module
		if err := tx.Preload("Lessons").Where("course_id = ?", c.ID).Find(&old).Error; err != nil {
			return err
		}
		kept := make(map[[2]int]uint)
		var oldLessonIDs, moduleIDs []uint
		for _, m := range old {
			moduleIDs = append(moduleIDs, m.ID)
			for _, l := range m.Lessons {
				kept[[2]int{m.Position, l.Position}] = l.ID
				oldLessonIDs = append(oldLessonIDs, l.ID)
			}
		}
		if len(moduleIDs) > 0 {
			if err := tx.Where("module_id IN ?", moduleIDs).Delete(&models.Lesson{}).Error; err != nil {
				return err
			}
			if err := tx.Where("course_id = ?", c.ID).Delete(&models.Module{}).Error; err != nil {
				return err
			}
		}

		modules := c.Modules
		c.Modules = nil
		defer func() { c.Modules = modules }()
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(c).Error; err != nil {
			return fmt.Errorf("upsert course %s: %w", c.ID, err)
		}
		reused := make(map[uint]bool)
		for mi := range modules {
			m := &modules[mi]
			m.ID = 0
			m.CourseID = c.ID
			m.Position = mi
			lessons := m.Lessons
			m.Lessons = nil
			if err := tx.Create(m).Error; err != nil {
				return err
			}
			for li := range lessons {
				l := &lessons[li]
				l.ID = kept[[2]int{mi, li}]
				l.ModuleID = m.ID
				l.Position = li
				if err := tx.Create(l).Error; err != nil {
					return fmt.Errorf("upsert lesson %d.%d: %w", mi, li, err)
				}
				reused[l.ID] = true
			}
			m.Lessons = lessons
		}

		var gone []uint
		for _, id := range oldLessonIDs {
			if !reused[id] {
				gone = append(gone, id)
			}
		}
		if len(gone) > 0 {
			if err := tx.Where("lesson_id IN ?", gone).Delete(&models.LessonCompletion{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Enroll records userID in a course, updating progress if already enrolled.
func (s *Store) Enroll(ctx context.Context, courseID, userID string, progress int) error {
	e := models.Enrollment{CourseID: courseID, UserID: userID, Progress: course.ClampProgress(progress)}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"progress", "updated_at"}),
	}).Create(&e).Error
}

func (s *Store) MarkCompleted(ctx context.Context, lessonID uint, userID string) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.LessonCompletion{LessonID: lessonID, UserID: userID, CompletedAt: time.Now()}).Error
}
